package initialize

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/spf13/cobra"
	"go.firedancer.io/counter/cmd/counter/ledger"
	"go.firedancer.io/counter/pkg/counter"
	"go.firedancer.io/counter/pkg/util"
	"k8s.io/klog/v2"
)

var Cmd = cobra.Command{
	Use:   "init",
	Short: "Create the counter account with an initial value",
	Args:  cobra.NoArgs,
	Run:   run,
}

var value uint64

func init() {
	Cmd.Flags().Uint64Var(&value, "value", 0, "Initial counter value")
}

func run(c *cobra.Command, _ []string) {
	l, err := ledger.Open(false)
	if err != nil {
		klog.Exitf("failed to open ledger: %s", err)
	}
	defer func() { util.VerboseHandleError(l.Close()) }()

	payer, err := ledger.LoadKeypair(l.PayerKeypairPath())
	if err != nil {
		l.Exitf("%s", err)
	}

	counterKey, created, err := ledger.LoadOrCreateKeypair(l.CounterKeypairPath())
	if err != nil {
		l.Exitf("%s", err)
	}
	if created {
		klog.Infof("wrote new counter keypair to %s", l.CounterKeypairPath())
	}

	ix := counter.NewInitializeCounterInstruction(l.ProgramID, counterKey.PublicKey(), payer.PublicKey(), value)
	result, err := l.Send(c.Context(), []solana.Instruction{ix}, payer, counterKey)
	if err != nil {
		l.Exitf("transaction rejected: %s", err)
	}

	ledger.PrintResult(result)
	if result.Success() {
		fmt.Printf("counter: %s\n", counterKey.PublicKey())
	}
}
