package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"krwx-ledger/internal/core/domain"

	"github.com/jackc/pgx/v5"
)

// EventRepo implements ports.EventRepository.
type EventRepo struct {
	pool Pool
}

// NewEventRepo creates a new EventRepo.
func NewEventRepo(pool Pool) *EventRepo {
	return &EventRepo{pool: pool}
}

// Insert stores e within tx, ignoring a sequence number already present.
func (r *EventRepo) Insert(ctx context.Context, tx pgx.Tx, e *domain.Event) (bool, error) {
	query := `INSERT INTO ledger_events (seq, kind, topic, operation_id, from_account, to_account, amount, payload, emitted_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7::text::numeric, $8, $9)
		ON CONFLICT (seq) DO NOTHING`

	payload, err := json.Marshal(e)
	if err != nil {
		return false, fmt.Errorf("encode event %d: %w", e.Seq, err)
	}

	from, to := eventParties(e)
	var amount *string
	if e.Amount != nil {
		s := e.Amount.Dec()
		amount = &s
	}

	tag, err := tx.Exec(ctx, query,
		int64(e.Seq), string(e.Kind), e.Kind.Topic().Hex(), e.OperationID,
		from, to, amount, payload, e.Timestamp,
	)
	if err != nil {
		return false, fmt.Errorf("insert event: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// List returns up to limit events with seq >= fromSeq in sequence order.
func (r *EventRepo) List(ctx context.Context, fromSeq uint64, limit int) ([]domain.Event, error) {
	query := `SELECT payload FROM ledger_events WHERE seq >= $1 ORDER BY seq ASC LIMIT $2`

	rows, err := r.pool.Query(ctx, query, int64(fromSeq), limit)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var events []domain.Event
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		var e domain.Event
		if err := json.Unmarshal(payload, &e); err != nil {
			return nil, fmt.Errorf("decode event: %w", err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return events, nil
}

// LastSeq returns the highest mirrored sequence number.
func (r *EventRepo) LastSeq(ctx context.Context) (uint64, bool, error) {
	var seq int64
	if err := r.pool.QueryRow(ctx, `SELECT COALESCE(MAX(seq), -1) FROM ledger_events`).Scan(&seq); err != nil {
		return 0, false, fmt.Errorf("last event seq: %w", err)
	}
	if seq < 0 {
		return 0, false, nil
	}
	return uint64(seq), true, nil
}

// eventParties returns the indexed from/to columns; nil for kinds without them.
func eventParties(e *domain.Event) (*string, *string) {
	hex := func(s string) *string { return &s }
	switch e.Kind {
	case domain.EventTransfer, domain.EventApproval, domain.EventFeeRecipientUpdated:
		return hex(e.From.Hex()), hex(e.To.Hex())
	case domain.EventEmergencyRecovered:
		return nil, hex(e.To.Hex())
	case domain.EventMint:
		return nil, hex(e.Account.Hex())
	case domain.EventBurn:
		return hex(e.Account.Hex()), nil
	case domain.EventBlacklisted, domain.EventUnBlacklisted, domain.EventRoleGranted, domain.EventRoleRevoked:
		return nil, hex(e.Account.Hex())
	}
	return nil, nil
}
