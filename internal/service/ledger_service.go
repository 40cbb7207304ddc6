package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"krwx-ledger/internal/core/domain"
	"krwx-ledger/internal/core/ledger"
	"krwx-ledger/internal/core/ports"
	"krwx-ledger/pkg/apperror"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/rs/zerolog"
)

const (
	idempotencyTTL = 24 * time.Hour
	// reservationTTL bounds how long a crashed request keeps its key claimed.
	reservationTTL = 30 * time.Second
)

// LedgerServiceImpl implements ports.LedgerService on top of the in-memory
// ledger. It adds idempotent replay, logging and snapshot persistence.
type LedgerServiceImpl struct {
	ledger     *ledger.Ledger
	idempCache ports.IdempotencyCache
	snapshots  ports.SnapshotStore
	log        zerolog.Logger
}

// NewLedgerService creates a new ledger service. idempCache and snapshots
// may be nil.
func NewLedgerService(
	l *ledger.Ledger,
	idempCache ports.IdempotencyCache,
	snapshots ports.SnapshotStore,
	log zerolog.Logger,
) *LedgerServiceImpl {
	return &LedgerServiceImpl{
		ledger:     l,
		idempCache: idempCache,
		snapshots:  snapshots,
		log:        log.With().Str("component", "ledger").Logger(),
	}
}

// BuildIdempotencyKey scopes a client key to its caller.
func BuildIdempotencyKey(caller common.Address, key string) string {
	return caller.Hex() + ":" + key
}

// BootstrapLedger restores the latest snapshot from store, or deploys a new
// ledger from genesis() when none exists. checker, when set, must accept the
// starting sequence number before the ledger is built.
func BootstrapLedger(
	ctx context.Context,
	store ports.SnapshotStore,
	genesis func() (ledger.Genesis, error),
	checker ports.SequenceChecker,
	log zerolog.Logger,
	opts ...ledger.Option,
) (*ledger.Ledger, error) {
	if store != nil {
		snap, err := store.Load(ctx)
		if err != nil {
			return nil, apperror.ErrSnapshotFailure(fmt.Errorf("load snapshot: %w", err))
		}
		if snap != nil {
			if checker != nil {
				if err := checker.CheckStartSeq(ctx, snap.NextSeq); err != nil {
					return nil, err
				}
			}
			l, err := ledger.Restore(snap, opts...)
			if err != nil {
				return nil, fmt.Errorf("restore snapshot: %w", err)
			}
			log.Info().
				Uint64("next_seq", snap.NextSeq).
				Str("total_supply", snap.TotalSupply).
				Time("taken_at", snap.TakenAt).
				Msg("ledger restored from snapshot")
			return l, nil
		}
	}

	g, err := genesis()
	if err != nil {
		return nil, fmt.Errorf("genesis config: %w", err)
	}
	if checker != nil {
		if err := checker.CheckStartSeq(ctx, 0); err != nil {
			return nil, err
		}
	}
	l, err := ledger.New(g, opts...)
	if err != nil {
		return nil, fmt.Errorf("deploy ledger: %w", err)
	}
	log.Info().
		Str("admin", g.Admin.Hex()).
		Str("fee_recipient", g.FeeRecipient.Hex()).
		Str("initial_supply", domain.FormatUnits(g.InitialSupply)).
		Msg("ledger deployed from genesis")
	return l, nil
}

// ---- reads ----

func (s *LedgerServiceImpl) Info(_ context.Context) domain.LedgerInfo {
	return s.ledger.Info()
}

func (s *LedgerServiceImpl) Account(_ context.Context, address common.Address) domain.AccountInfo {
	return s.ledger.Account(address)
}

func (s *LedgerServiceImpl) Allowance(_ context.Context, owner, spender common.Address) *uint256.Int {
	return s.ledger.Allowance(owner, spender)
}

func (s *LedgerServiceImpl) RoleMembers(_ context.Context, role domain.Role) []common.Address {
	return s.ledger.Members(role)
}

// ---- value movement ----

func (s *LedgerServiceImpl) Transfer(ctx context.Context, req ports.TransferRequest) (*domain.Receipt, error) {
	return s.run(ctx, req.CallMeta, "transfer", func() (*domain.Receipt, error) {
		return s.ledger.Transfer(req.Caller, req.To, req.Amount)
	})
}

func (s *LedgerServiceImpl) BatchTransfer(ctx context.Context, req ports.BatchTransferRequest) (*domain.Receipt, error) {
	return s.run(ctx, req.CallMeta, "batchTransfer", func() (*domain.Receipt, error) {
		return s.ledger.BatchTransfer(req.Caller, req.Recipients, req.Amounts)
	})
}

func (s *LedgerServiceImpl) TransferFrom(ctx context.Context, req ports.TransferFromRequest) (*domain.Receipt, error) {
	return s.run(ctx, req.CallMeta, "transferFrom", func() (*domain.Receipt, error) {
		return s.ledger.TransferFrom(req.Caller, req.From, req.To, req.Amount)
	})
}

func (s *LedgerServiceImpl) Approve(ctx context.Context, req ports.ApproveRequest) (*domain.Receipt, error) {
	return s.run(ctx, req.CallMeta, "approve", func() (*domain.Receipt, error) {
		return s.ledger.Approve(req.Caller, req.Spender, req.Amount)
	})
}

// ---- administration ----

func (s *LedgerServiceImpl) Mint(ctx context.Context, req ports.MintRequest) (*domain.Receipt, error) {
	return s.run(ctx, req.CallMeta, "mint", func() (*domain.Receipt, error) {
		return s.ledger.Mint(req.Caller, req.To, req.Amount)
	})
}

func (s *LedgerServiceImpl) Burn(ctx context.Context, req ports.BurnRequest) (*domain.Receipt, error) {
	return s.run(ctx, req.CallMeta, "burnFrom", func() (*domain.Receipt, error) {
		return s.ledger.BurnFrom(req.Caller, req.From, req.Amount)
	})
}

func (s *LedgerServiceImpl) Pause(ctx context.Context, meta ports.CallMeta) (*domain.Receipt, error) {
	return s.run(ctx, meta, "pause", func() (*domain.Receipt, error) {
		return s.ledger.Pause(meta.Caller)
	})
}

func (s *LedgerServiceImpl) Unpause(ctx context.Context, meta ports.CallMeta) (*domain.Receipt, error) {
	return s.run(ctx, meta, "unpause", func() (*domain.Receipt, error) {
		return s.ledger.Unpause(meta.Caller)
	})
}

func (s *LedgerServiceImpl) Blacklist(ctx context.Context, req ports.AccountRequest) (*domain.Receipt, error) {
	receipt, err := s.run(ctx, req.CallMeta, "blacklist", func() (*domain.Receipt, error) {
		return s.ledger.Blacklist(req.Caller, req.Account)
	})
	if err == nil && req.Account == s.ledger.FeeRecipient() {
		s.log.Warn().Str("account", req.Account.Hex()).Msg("fee recipient blacklisted; fees keep accruing to it")
	}
	return receipt, err
}

func (s *LedgerServiceImpl) Unblacklist(ctx context.Context, req ports.AccountRequest) (*domain.Receipt, error) {
	return s.run(ctx, req.CallMeta, "unblacklist", func() (*domain.Receipt, error) {
		return s.ledger.Unblacklist(req.Caller, req.Account)
	})
}

func (s *LedgerServiceImpl) SetFeeRate(ctx context.Context, req ports.FeeRateRequest) (*domain.Receipt, error) {
	return s.run(ctx, req.CallMeta, "setTransferFeeRate", func() (*domain.Receipt, error) {
		return s.ledger.SetTransferFeeRate(req.Caller, req.RateBps)
	})
}

func (s *LedgerServiceImpl) SetFeeRecipient(ctx context.Context, req ports.AccountRequest) (*domain.Receipt, error) {
	receipt, err := s.run(ctx, req.CallMeta, "setFeeRecipient", func() (*domain.Receipt, error) {
		return s.ledger.SetFeeRecipient(req.Caller, req.Account)
	})
	if err == nil && s.ledger.IsBlacklisted(req.Account) {
		s.log.Warn().Str("account", req.Account.Hex()).Msg("fee recipient set to a blacklisted account")
	}
	return receipt, err
}

func (s *LedgerServiceImpl) GrantRole(ctx context.Context, req ports.RoleRequest) (*domain.Receipt, error) {
	return s.run(ctx, req.CallMeta, "grantRole", func() (*domain.Receipt, error) {
		return s.ledger.GrantRole(req.Caller, req.Role, req.Account)
	})
}

func (s *LedgerServiceImpl) RevokeRole(ctx context.Context, req ports.RoleRequest) (*domain.Receipt, error) {
	return s.run(ctx, req.CallMeta, "revokeRole", func() (*domain.Receipt, error) {
		return s.ledger.RevokeRole(req.Caller, req.Role, req.Account)
	})
}

func (s *LedgerServiceImpl) RenounceRole(ctx context.Context, req ports.RoleRequest) (*domain.Receipt, error) {
	return s.run(ctx, req.CallMeta, "renounceRole", func() (*domain.Receipt, error) {
		return s.ledger.RenounceRole(req.Caller, req.Role)
	})
}

func (s *LedgerServiceImpl) Recover(ctx context.Context, req ports.RecoverRequest) (*domain.Receipt, error) {
	return s.run(ctx, req.CallMeta, "emergencyRecover", func() (*domain.Receipt, error) {
		return s.ledger.EmergencyRecover(req.Caller, req.Asset, req.Amount)
	})
}

func (s *LedgerServiceImpl) DepositStray(_ context.Context, asset common.Address, amount *uint256.Int) error {
	if err := s.ledger.DepositStray(asset, amount); err != nil {
		return err
	}
	s.log.Info().Str("asset", asset.Hex()).Str("amount", domain.AmountString(amount)).Msg("stray asset credited")
	return nil
}

// ---- snapshots ----

// SaveSnapshot writes the current state to the snapshot store.
func (s *LedgerServiceImpl) SaveSnapshot(ctx context.Context) error {
	if s.snapshots == nil {
		return nil
	}
	snap := s.ledger.Snapshot()
	if err := s.snapshots.Save(ctx, snap); err != nil {
		return apperror.ErrSnapshotFailure(err)
	}
	s.log.Debug().Uint64("next_seq", snap.NextSeq).Msg("snapshot saved")
	return nil
}

// RunSnapshotter saves a snapshot every interval until ctx is cancelled,
// then saves once more.
func (s *LedgerServiceImpl) RunSnapshotter(ctx context.Context, interval time.Duration) {
	if s.snapshots == nil || interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := s.SaveSnapshot(ctx); err != nil {
				s.log.Error().Err(err).Msg("periodic snapshot failed")
			}
		case <-ctx.Done():
			// ctx is done; the final save gets a fresh one.
			final, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			if err := s.SaveSnapshot(final); err != nil {
				s.log.Error().Err(err).Msg("final snapshot failed")
			}
			cancel()
			return
		}
	}
}

// run executes op, replaying the cached receipt when the caller repeats an
// idempotency key. The key is reserved before execution so concurrent
// duplicates never both run.
func (s *LedgerServiceImpl) run(ctx context.Context, meta ports.CallMeta, op string, fn func() (*domain.Receipt, error)) (*domain.Receipt, error) {
	var (
		idempKey string
		reserved bool
	)
	if meta.IdempotencyKey != "" && s.idempCache != nil {
		idempKey = BuildIdempotencyKey(meta.Caller, meta.IdempotencyKey)
		ok, err := s.idempCache.Reserve(ctx, idempKey, reservationTTL)
		switch {
		case err != nil:
			s.log.Warn().Err(err).Str("key", idempKey).Msg("redis idempotency reserve failed, executing")
		case ok:
			reserved = true
		default:
			return s.existing(ctx, idempKey, op)
		}
	}

	receipt, err := fn()
	if err != nil {
		var appErr *apperror.AppError
		if errors.As(err, &appErr) {
			s.log.Info().
				Str("op", op).
				Str("caller", meta.Caller.Hex()).
				Str("error_code", appErr.Code).
				Msg("operation rejected")
		}
		if reserved {
			if relErr := s.idempCache.Release(ctx, idempKey); relErr != nil {
				s.log.Warn().Err(relErr).Str("key", idempKey).Msg("failed to release idempotency key")
			}
		}
		return nil, err
	}

	s.log.Info().
		Str("op", op).
		Str("caller", meta.Caller.Hex()).
		Str("operation_id", receipt.OperationID.String()).
		Int("events", len(receipt.Events)).
		Msg("operation committed")

	if idempKey != "" {
		data, err := json.Marshal(receipt)
		if err != nil {
			s.log.Warn().Err(err).Msg("failed to encode receipt for idempotency cache")
		} else if err := s.idempCache.Set(ctx, idempKey, data, idempotencyTTL); err != nil {
			s.log.Warn().Err(err).Str("key", idempKey).Msg("failed to cache receipt")
		}
	}
	return receipt, nil
}

// existing resolves a key some earlier request already holds.
func (s *LedgerServiceImpl) existing(ctx context.Context, idempKey, op string) (*domain.Receipt, error) {
	cached, err := s.idempCache.Get(ctx, idempKey)
	switch {
	case errors.Is(err, ports.ErrRequestInFlight):
		return nil, apperror.ErrRequestInFlight()
	case err != nil:
		return nil, apperror.InternalError(fmt.Errorf("idempotency lookup: %w", err))
	case cached == nil:
		// Reservation expired between the two calls; the caller retries.
		return nil, apperror.ErrRequestInFlight()
	}
	return s.replay(cached, op)
}

func (s *LedgerServiceImpl) replay(cached []byte, op string) (*domain.Receipt, error) {
	var receipt domain.Receipt
	if err := json.Unmarshal(cached, &receipt); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("decode cached receipt: %w", err))
	}
	if receipt.Operation != op {
		return nil, apperror.Validation("Idempotency-Key already used for a different operation")
	}
	s.log.Info().Str("op", op).Str("operation_id", receipt.OperationID.String()).Msg("idempotent replay")
	return &receipt, nil
}

var _ ports.LedgerService = (*LedgerServiceImpl)(nil)
