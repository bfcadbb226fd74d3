package increment

import (
	"io"
	"os"
	"time"

	"github.com/VividCortex/ewma"
	"github.com/gagliardetto/solana-go"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
	"go.firedancer.io/counter/cmd/counter/ledger"
	"go.firedancer.io/counter/pkg/counter"
	"go.firedancer.io/counter/pkg/util"
	"k8s.io/klog/v2"
)

var Cmd = cobra.Command{
	Use:   "increment",
	Short: "Increment the counter",
	Args:  cobra.NoArgs,
	Run:   run,
}

var times int

func init() {
	Cmd.Flags().IntVarP(&times, "times", "n", 1, "Number of increment transactions to send")
}

func run(c *cobra.Command, _ []string) {
	if times < 1 {
		klog.Exitf("--times must be at least 1")
	}

	l, err := ledger.Open(false)
	if err != nil {
		klog.Exitf("failed to open ledger: %s", err)
	}
	defer func() { util.VerboseHandleError(l.Close()) }()

	payer, err := ledger.LoadKeypair(l.PayerKeypairPath())
	if err != nil {
		l.Exitf("%s", err)
	}
	counterKey, err := ledger.LoadKeypair(l.CounterKeypairPath())
	if err != nil {
		l.Exitf("%s", err)
	}

	ix := counter.NewIncrementCounterInstruction(l.ProgramID, counterKey.PublicKey())

	if times == 1 {
		result, err := l.Send(c.Context(), []solana.Instruction{ix}, payer)
		if err != nil {
			l.Exitf("transaction rejected: %s", err)
		}
		ledger.PrintResult(result)
		return
	}

	var output io.Writer
	if isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd()) {
		output = os.Stderr
	}

	p := mpb.NewWithContext(c.Context(), mpb.WithOutput(output), mpb.WithWidth(48))
	bar := p.AddBar(int64(times),
		mpb.PrependDecorators(decor.Name("increment "), decor.CountersNoUnit("%d / %d")),
		mpb.AppendDecorators(decor.EwmaETA(decor.ET_STYLE_GO, 30), decor.Name(" "), decor.Percentage()),
	)

	cuAvg := ewma.NewMovingAverage()
	var succeeded, failed int

	for sent := 0; sent < times; {
		chunk := min(l.Config.BatchSize, times-sent)

		txs, err := l.NewTransactions(chunk, []solana.Instruction{ix}, payer)
		if err != nil {
			l.Exitf("%s", err)
		}

		start := time.Now()
		results, err := l.Bank.ProcessBatch(c.Context(), txs, l.Config.BatchSize)
		if err != nil {
			bar.Abort(false)
			p.Wait()
			l.Exitf("batch aborted: %s", err)
		}

		for _, result := range results {
			switch {
			case result.Rejected != nil:
				klog.Errorf("transaction rejected: %s", result.Rejected)
				failed++
			case result.Err != nil:
				klog.Errorf("transaction %s failed: %s", result.Signature, result.Err)
				failed++
			default:
				cuAvg.Add(float64(result.ComputeUnits))
				succeeded++
			}
		}

		sent += chunk
		bar.EwmaIncrBy(chunk, time.Since(start))
	}
	p.Wait()

	klog.Infof("%d increments succeeded, %d failed, %.0f compute units on average", succeeded, failed, cuAvg.Value())
}
