package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	badgerStorage "krwx-ledger/internal/adapter/storage/badger"
	"krwx-ledger/internal/core/domain"
	"krwx-ledger/internal/core/ledger"

	"github.com/spf13/cobra"
)

func snapshotCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Inspect ledger snapshots (the server must be stopped)",
	}
	cmd.PersistentFlags().String("dir", "", "snapshot directory (default: ledger.snapshot_dir)")
	cmd.AddCommand(snapshotListCmd())
	cmd.AddCommand(snapshotShowCmd())
	cmd.AddCommand(snapshotVerifyCmd())
	return cmd
}

func openSnapshots(cmd *cobra.Command) (*badgerStorage.SnapshotStore, error) {
	dir, _ := cmd.Flags().GetString("dir")
	if dir == "" {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return nil, err
		}
		dir = cfg.Ledger.SnapshotDir
	}
	if dir == "" {
		return nil, errors.New("no snapshot directory")
	}
	return badgerStorage.Open(dir)
}

// loadSnapshot returns the snapshot at args[0] (a next-seq value), or the latest.
func loadSnapshot(cmd *cobra.Command, args []string) (*domain.Snapshot, error) {
	store, err := openSnapshots(cmd)
	if err != nil {
		return nil, err
	}
	defer store.Close()

	var snap *domain.Snapshot
	if len(args) == 1 {
		seq, err := strconv.ParseUint(args[0], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid sequence %q", args[0])
		}
		snap, err = store.LoadAt(cmd.Context(), seq)
		if err != nil {
			return nil, err
		}
	} else {
		snap, err = store.Load(cmd.Context())
		if err != nil {
			return nil, err
		}
	}
	if snap == nil {
		return nil, errors.New("snapshot not found")
	}
	return snap, nil
}

func snapshotListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored snapshots by next sequence number",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openSnapshots(cmd)
			if err != nil {
				return err
			}
			defer store.Close()

			seqs, err := store.History(cmd.Context())
			if err != nil {
				return err
			}
			for _, seq := range seqs {
				fmt.Fprintln(cmd.OutOrStdout(), seq)
			}
			return nil
		},
	}
}

func snapshotShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show [next-seq]",
		Short: "Print a snapshot as JSON",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			snap, err := loadSnapshot(cmd, args)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(snap)
		},
	}
}

func snapshotVerifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify [next-seq]",
		Short: "Check a snapshot's invariants by restoring it",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			snap, err := loadSnapshot(cmd, args)
			if err != nil {
				return err
			}
			l, err := ledger.Restore(snap)
			if err != nil {
				return fmt.Errorf("snapshot invalid: %w", err)
			}
			info := l.Info()
			supply, _ := domain.ParseAmount(info.TotalSupply)
			fmt.Fprintf(cmd.OutOrStdout(), "ok: %s supply=%s holders=%d next_seq=%d paused=%t fee=%dbps\n",
				info.Symbol, domain.FormatUnits(supply), len(snap.Balances), info.NextSeq, info.Paused, info.FeeRateBps)
			return nil
		},
	}
}
