package main

import (
	"fmt"
	"os"

	"krwx-ledger/config"

	"github.com/spf13/cobra"
)

var Version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "ledgerctl",
		Short:         "Operator tooling for the KRWX ledger",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().String("config", "", "path to config file")

	rootCmd.AddCommand(tokenCmd())
	rootCmd.AddCommand(snapshotCmd())
	rootCmd.AddCommand(unitsCmd())
	rootCmd.AddCommand(idsCmd())
	rootCmd.AddCommand(eventsCmd())

	return rootCmd
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	return config.Load(path)
}
