package main

import (
	"context"
	"flag"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"go.firedancer.io/counter/cmd/counter/genesis"
	"go.firedancer.io/counter/cmd/counter/increment"
	"go.firedancer.io/counter/cmd/counter/initialize"
	"go.firedancer.io/counter/cmd/counter/ledger"
	"go.firedancer.io/counter/cmd/counter/show"
	"k8s.io/klog/v2"
)

var cmd = cobra.Command{
	Use:   "counter",
	Short: "Run the counter program against a local ledger",
}

func init() {
	klogFlags := flag.NewFlagSet("klog", flag.ExitOnError)
	klog.InitFlags(klogFlags)
	cmd.PersistentFlags().AddGoFlagSet(klogFlags)
	cmd.PersistentFlags().StringVar(&ledger.ConfigPath, "config", "counter.yaml", "Path to the YAML config file")

	cmd.AddCommand(
		&genesis.Cmd,
		&initialize.Cmd,
		&increment.Cmd,
		&show.Cmd,
	)
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()
	cobra.CheckErr(cmd.ExecuteContext(ctx))
}
