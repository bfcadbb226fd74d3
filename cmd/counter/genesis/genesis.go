package genesis

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.firedancer.io/counter/cmd/counter/ledger"
	"go.firedancer.io/counter/pkg/accounts"
	"go.firedancer.io/counter/pkg/sealevel"
	"k8s.io/klog/v2"
)

var Cmd = cobra.Command{
	Use:   "genesis",
	Short: "Create the ledger and fund the payer keypair",
	Args:  cobra.NoArgs,
	Run:   run,
}

var lamports uint64

func init() {
	Cmd.Flags().Uint64Var(&lamports, "lamports", 0, "Lamports to fund the payer with (defaults to genesis_lamports)")
}

func run(c *cobra.Command, _ []string) {
	l, err := ledger.Open(true)
	if err != nil {
		klog.Exitf("failed to open ledger: %s", err)
	}
	defer func() {
		if err := l.Close(); err != nil {
			klog.Errorf("failed to close ledger: %s", err)
		}
	}()

	payer, created, err := ledger.LoadOrCreateKeypair(l.PayerKeypairPath())
	if err != nil {
		l.Exitf("%s", err)
	}
	if created {
		klog.Infof("wrote new payer keypair to %s", l.PayerKeypairPath())
	}

	if lamports == 0 {
		lamports = l.Config.GenesisLamports
	}

	err = l.Bank.SetGenesisAccount(&accounts.Account{Key: payer.PublicKey(), Lamports: lamports, Owner: sealevel.SystemProgramAddr})
	if err != nil {
		l.Exitf("failed to fund payer: %s", err)
	}

	rent := l.Bank.Rent()
	fmt.Printf("ledger:  %s\n", l.Config.LedgerDir)
	fmt.Printf("program: %s\n", l.ProgramID)
	fmt.Printf("payer:   %s (%d lamports)\n", payer.PublicKey(), lamports)
	fmt.Printf("rent:    %d lamports/byte-year, exemption threshold %.1f\n", rent.LamportsPerUint8Year, rent.ExemptionThreshold)
}
