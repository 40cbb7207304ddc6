package main

import (
	"fmt"

	"krwx-ledger/internal/core/domain"

	"github.com/spf13/cobra"
)

func unitsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "units",
		Short: "Convert between token amounts and base units (18 decimals)",
	}
	cmd.AddCommand(&cobra.Command{
		Use:     "parse [tokens]",
		Short:   "Token amount to base units, e.g. 1.5 -> 1500000000000000000",
		Args:    cobra.ExactArgs(1),
		Example: "  ledgerctl units parse 1.5",
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := domain.ParseUnits(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), v.Dec())
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "format [base-units]",
		Short: "Base units to token amount, e.g. 1500000000000000000 -> 1.5",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := domain.ParseAmount(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), domain.FormatUnits(v))
			return nil
		},
	})
	return cmd
}
