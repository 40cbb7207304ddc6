package main

import (
	"fmt"

	"krwx-ledger/internal/core/domain"

	"github.com/spf13/cobra"
)

func idsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ids",
		Short: "Print role identifiers and event topics",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "roles",
		Short: "List every role with its bytes32 id",
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, r := range domain.AllRoles {
				fmt.Fprintf(cmd.OutOrStdout(), "%-12s %s\n", r, r.ID().Hex())
			}
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "topic [event-kind]",
		Short: "Print the keccak256 topic of an event, e.g. Transfer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind := domain.EventKind(args[0])
			if kind.Signature() == "" {
				return fmt.Errorf("unknown event kind %q", args[0])
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", kind.Signature(), kind.Topic().Hex())
			return nil
		},
	})
	return cmd
}
