package service

import (
	"context"
	"fmt"

	"krwx-ledger/internal/core/domain"
	"krwx-ledger/internal/core/ports"
	"krwx-ledger/pkg/apperror"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"
)

const (
	defaultEventPageSize = 100
	maxEventPageSize     = 500
)

// MirrorService keeps the PostgreSQL mirror of events and balances in sync.
// It is an event bus subscriber and also serves mirror reads.
type MirrorService struct {
	events     ports.EventRepository
	balances   ports.BalanceRepository
	transactor ports.DBTransactor
	log        zerolog.Logger
}

// NewMirrorService creates a new mirror service.
func NewMirrorService(
	events ports.EventRepository,
	balances ports.BalanceRepository,
	transactor ports.DBTransactor,
	log zerolog.Logger,
) *MirrorService {
	return &MirrorService{
		events:     events,
		balances:   balances,
		transactor: transactor,
		log:        log.With().Str("component", "mirror").Logger(),
	}
}

func (s *MirrorService) Name() string { return "postgres-mirror" }

// Handle stores e and, for a newly stored Transfer, applies its balance
// deltas in the same transaction. Redelivered events are ignored.
func (s *MirrorService) Handle(ctx context.Context, e domain.Event) error {
	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return apperror.ErrDatabaseError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	inserted, err := s.events.Insert(ctx, dbTx, &e)
	if err != nil {
		return apperror.ErrDatabaseError(fmt.Errorf("insert event %d: %w", e.Seq, err))
	}
	if !inserted {
		s.log.Debug().Uint64("seq", e.Seq).Msg("event already mirrored")
		return nil
	}

	if e.Kind == domain.EventTransfer && e.Amount != nil && !e.Amount.IsZero() {
		amount := e.Amount.Dec()
		if !domain.IsZero(e.From) {
			if err := s.balances.ApplyDelta(ctx, dbTx, e.From, "-"+amount); err != nil {
				return apperror.ErrDatabaseError(fmt.Errorf("debit %s: %w", e.From.Hex(), err))
			}
		}
		if !domain.IsZero(e.To) {
			if err := s.balances.ApplyDelta(ctx, dbTx, e.To, amount); err != nil {
				return apperror.ErrDatabaseError(fmt.Errorf("credit %s: %w", e.To.Hex(), err))
			}
		}
	}

	if err := dbTx.Commit(ctx); err != nil {
		return apperror.ErrDatabaseError(fmt.Errorf("commit tx: %w", err))
	}
	return nil
}

// CheckStartSeq refuses a ledger that would start at or below the last
// mirrored sequence number; its new events would collide with stored ones
// and be dropped. A mirror that lags behind only gets a warning.
func (s *MirrorService) CheckStartSeq(ctx context.Context, nextSeq uint64) error {
	last, ok, err := s.events.LastSeq(ctx)
	if err != nil {
		return apperror.ErrDatabaseError(fmt.Errorf("last mirrored seq: %w", err))
	}
	if !ok {
		return nil
	}
	if last >= nextSeq {
		return apperror.ErrMirrorAhead(last, nextSeq)
	}
	if last+1 < nextSeq {
		s.log.Warn().
			Uint64("last_mirrored", last).
			Uint64("next_seq", nextSeq).
			Msg("mirror is missing events")
	}
	return nil
}

// ListEvents returns mirrored events with seq >= fromSeq.
func (s *MirrorService) ListEvents(ctx context.Context, fromSeq uint64, limit int) ([]domain.Event, error) {
	if limit <= 0 {
		limit = defaultEventPageSize
	}
	if limit > maxEventPageSize {
		limit = maxEventPageSize
	}
	events, err := s.events.List(ctx, fromSeq, limit)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("list events: %w", err))
	}
	if events == nil {
		events = []domain.Event{}
	}
	return events, nil
}

// GetBalance returns the mirrored balance; accounts never seen read as zero.
func (s *MirrorService) GetBalance(ctx context.Context, account common.Address) (*ports.MirroredBalance, error) {
	bal, err := s.balances.Get(ctx, account)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("get balance: %w", err))
	}
	if bal == nil {
		return &ports.MirroredBalance{Account: account, Balance: "0"}, nil
	}
	return bal, nil
}

var (
	_ ports.EventSubscriber = (*MirrorService)(nil)
	_ ports.SequenceChecker = (*MirrorService)(nil)
)
