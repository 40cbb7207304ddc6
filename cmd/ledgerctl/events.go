package main

import (
	"encoding/json"
	"errors"
	"os/signal"
	"syscall"

	redisStorage "krwx-ledger/internal/adapter/storage/redis"
	"krwx-ledger/pkg/logger"

	"github.com/spf13/cobra"
)

func eventsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Follow the live event feed",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "tail",
		Short: "Print events from the Redis channel as JSON lines until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if cfg.Events.RedisChannel == "" {
				return errors.New("events.redis_channel is not configured")
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			log := logger.New("warn", true)
			rdb, err := redisStorage.NewClient(ctx, cfg.Redis, log)
			if err != nil {
				return err
			}
			defer rdb.Close()

			events, err := redisStorage.Subscribe(ctx, rdb, cfg.Events.RedisChannel)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			for e := range events {
				if err := enc.Encode(e); err != nil {
					return err
				}
			}
			return nil
		},
	})
	return cmd
}
