package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"krwx-ledger/config"
	httpHandler "krwx-ledger/internal/adapter/http/handler"
	badgerStorage "krwx-ledger/internal/adapter/storage/badger"
	pgStorage "krwx-ledger/internal/adapter/storage/postgres"
	redisStorage "krwx-ledger/internal/adapter/storage/redis"
	"krwx-ledger/internal/core/domain"
	"krwx-ledger/internal/core/ledger"
	"krwx-ledger/internal/core/ports"
	"krwx-ledger/internal/service"
	"krwx-ledger/pkg/logger"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
)

func main() {
	configPath := flag.String("config", "", "path to config file (default: ./config.yaml or ./config/config.yaml)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Log.Level, cfg.Log.Pretty)
	gin.SetMode(cfg.Server.Mode)

	log.Info().
		Str("mode", cfg.Server.Mode).
		Int("port", cfg.Server.Port).
		Str("symbol", cfg.Ledger.Symbol).
		Msg("Starting KRWX ledger")

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	// PostgreSQL mirror
	pool, err := pgStorage.NewPool(ctx, cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()
	if err := pgStorage.EnsureSchema(ctx, pool); err != nil {
		log.Fatal().Err(err).Msg("Failed to prepare mirror schema")
	}
	log.Info().Msg("PostgreSQL connected")

	// Redis
	rdb, err := redisStorage.NewClient(ctx, cfg.Redis, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()
	log.Info().Msg("Redis connected")

	// Badger snapshots
	snapshots, err := badgerStorage.Open(cfg.Ledger.SnapshotDir)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open snapshot store")
	}
	defer snapshots.Close()

	// Event bus and its subscribers
	bus := service.NewEventBus(log)
	mirrorSvc := service.NewMirrorService(
		pgStorage.NewEventRepo(pool),
		pgStorage.NewBalanceRepo(pool),
		pgStorage.NewTransactor(pool),
		log,
	)
	bus.Subscribe(mirrorSvc)
	if cfg.Events.RedisChannel != "" {
		bus.Subscribe(redisStorage.NewEventPublisher(rdb, cfg.Events.RedisChannel))
	}
	var hub *httpHandler.StreamHub
	if cfg.Events.Websocket {
		hub = httpHandler.NewStreamHub(log)
		bus.Subscribe(hub)
	}
	bus.Start(ctx)

	// Ledger: restore the latest snapshot or deploy from config. The mirror
	// must not already hold the sequence numbers the ledger will emit.
	genesis := func() (ledger.Genesis, error) { return genesisFromConfig(cfg.Ledger) }
	l, err := service.BootstrapLedger(ctx, snapshots, genesis, mirrorSvc, log, ledger.WithPublisher(bus))
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to bootstrap ledger")
	}
	ledgerSvc := service.NewLedgerService(l, redisStorage.NewIdempotencyCache(rdb), snapshots, log)

	snapshotCtx, stopSnapshots := context.WithCancel(ctx)
	snapshotDone := make(chan struct{})
	go func() {
		defer close(snapshotDone)
		ledgerSvc.RunSnapshotter(snapshotCtx, cfg.Ledger.SnapshotInterval)
	}()

	tokenSvc := service.NewJWTTokenService(cfg.JWT.Secret, cfg.JWT.Expiry, cfg.JWT.Issuer)

	router := httpHandler.SetupRouter(httpHandler.RouterDeps{
		LedgerSvc:      ledgerSvc,
		MirrorSvc:      mirrorSvc,
		TokenSvc:       tokenSvc,
		StreamHub:      hub,
		RateLimitStore: redisStorage.NewRateLimitStore(rdb),
		HealthCheckers: []ports.HealthChecker{
			pgStorage.NewHealthCheck(pool),
			redisStorage.NewHealthCheck(rdb),
			badgerStorage.NewHealthCheck(snapshots),
		},
		Logger: log,
	})

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	// Final snapshot, then let subscribers drain before the stores close.
	stopSnapshots()
	<-snapshotDone
	bus.Close()

	log.Info().Uint64("next_seq", l.Info().NextSeq).Msg("Server exited")
}

func genesisFromConfig(c config.LedgerConfig) (ledger.Genesis, error) {
	if err := c.Validate(); err != nil {
		return ledger.Genesis{}, err
	}
	supply, err := domain.ParseUnits(c.InitialSupply)
	if err != nil {
		return ledger.Genesis{}, err
	}
	return ledger.Genesis{
		Name:          c.Name,
		Symbol:        c.Symbol,
		Admin:         common.HexToAddress(c.Admin),
		FeeRecipient:  common.HexToAddress(c.FeeRecipient),
		InitialSupply: supply,
		FeeRateBps:    c.FeeRateBps,
	}, nil
}
