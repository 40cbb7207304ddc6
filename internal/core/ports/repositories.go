package ports

import (
	"context"
	"time"

	"krwx-ledger/internal/core/domain"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jackc/pgx/v5"
)

// EventRepository persists the off-chain mirror of ledger events.
type EventRepository interface {
	// Insert stores e inside tx. It returns false when an event with the
	// same sequence number is already stored.
	Insert(ctx context.Context, tx pgx.Tx, e *domain.Event) (bool, error)
	List(ctx context.Context, fromSeq uint64, limit int) ([]domain.Event, error)
	// LastSeq returns the highest stored sequence number; ok is false when
	// the table is empty.
	LastSeq(ctx context.Context) (seq uint64, ok bool, err error)
}

// BalanceRepository maintains mirrored balances derived from Transfer events.
type BalanceRepository interface {
	// ApplyDelta adds a signed base-unit decimal delta to account inside tx.
	ApplyDelta(ctx context.Context, tx pgx.Tx, account common.Address, delta string) error
	Get(ctx context.Context, account common.Address) (*MirroredBalance, error)
}

// MirroredBalance is a row of the balance mirror.
type MirroredBalance struct {
	Account   common.Address
	Balance   string
	UpdatedAt time.Time
}

// SnapshotStore persists ledger snapshots.
type SnapshotStore interface {
	Save(ctx context.Context, s *domain.Snapshot) error
	// Load returns the latest snapshot, or nil when none was saved.
	Load(ctx context.Context) (*domain.Snapshot, error)
}

// DBTransactor provides database transaction management.
type DBTransactor interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}
