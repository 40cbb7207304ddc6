package main

import (
	"errors"
	"fmt"
	"time"

	"krwx-ledger/internal/core/domain"
	"krwx-ledger/internal/service"

	"github.com/spf13/cobra"
)

func tokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Manage API bearer tokens",
	}
	cmd.AddCommand(tokenIssueCmd())
	return cmd
}

func tokenIssueCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "issue",
		Short: "Issue a bearer token whose subject is the given address",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if cfg.JWT.Secret == "" {
				return errors.New("jwt.secret is not configured")
			}

			raw, _ := cmd.Flags().GetString("address")
			addr, err := domain.ParseAddress(raw)
			if err != nil {
				return err
			}
			expiry := cfg.JWT.Expiry
			if ttl, _ := cmd.Flags().GetDuration("ttl"); ttl > 0 {
				expiry = ttl
			}

			svc := service.NewJWTTokenService(cfg.JWT.Secret, expiry, cfg.JWT.Issuer)
			token, exp, err := svc.Generate(addr)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			fmt.Fprintf(cmd.ErrOrStderr(), "expires %s\n", exp.UTC().Format(time.RFC3339))
			return nil
		},
	}
	cmd.Flags().String("address", "", "caller address (0x-prefixed)")
	cmd.Flags().Duration("ttl", 0, "token lifetime (default: jwt.expiry)")
	_ = cmd.MarkFlagRequired("address")
	return cmd
}
