package show

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
	Use:   "show [counter address]",
	Short: "Print the counter account and its value",
	Args:  cobra.MaximumNArgs(1),
	Run:   run,
}

func run(c *cobra.Command, args []string) {
	l, err := ledger.Open(false)
	if err != nil {
		klog.Exitf("failed to open ledger: %s", err)
	}
	defer func() { util.VerboseHandleError(l.Close()) }()

	var addr solana.PublicKey
	if len(args) == 1 {
		addr, err = solana.PublicKeyFromBase58(args[0])
		if err != nil {
			l.Exitf("invalid address %q: %s", args[0], err)
		}
	} else {
		key, err := ledger.LoadKeypair(l.CounterKeypairPath())
		if err != nil {
			l.Exitf("%s", err)
		}
		addr = key.PublicKey()
	}

	acct, err := l.Bank.GetAccount(addr)
	if err != nil {
		l.Exitf("failed to read account %s: %s", addr, err)
	}

	fmt.Printf("address:  %s\n", addr)
	fmt.Printf("owner:    %s\n", acct.Owner)
	fmt.Printf("lamports: %d\n", acct.Lamports)
	fmt.Printf("hash:     %s\n", solana.HashFromBytes(util.CalculateAcctHash(*acct)))

	if acct.Owner != l.ProgramID {
		fmt.Printf("not a counter account\n")
		return
	}
	rec, err := counter.UnmarshalCounterRecord(acct.Data)
	if err != nil {
		l.Exitf("failed to decode counter: %s", err)
	}
	fmt.Printf("count:    %d\n", rec.Count)
}
