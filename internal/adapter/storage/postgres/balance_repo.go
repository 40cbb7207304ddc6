package postgres

import (
	"context"
	"errors"
	"fmt"

	"krwx-ledger/internal/core/ports"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jackc/pgx/v5"
)

// BalanceRepo implements ports.BalanceRepository.
type BalanceRepo struct {
	pool Pool
}

// NewBalanceRepo creates a new BalanceRepo.
func NewBalanceRepo(pool Pool) *BalanceRepo {
	return &BalanceRepo{pool: pool}
}

// ApplyDelta adds a signed decimal delta to the account's mirrored balance.
// The row is seeded at zero first so a debit never reaches the balance
// CHECK as a negative proposed row. Must be called within a transaction.
func (r *BalanceRepo) ApplyDelta(ctx context.Context, tx pgx.Tx, account common.Address, delta string) error {
	seed := `INSERT INTO account_balances (account, balance, updated_at)
		VALUES ($1, 0, NOW())
		ON CONFLICT (account) DO NOTHING`

	if _, err := tx.Exec(ctx, seed, account.Hex()); err != nil {
		return fmt.Errorf("seed balance row: %w", err)
	}

	update := `UPDATE account_balances
		SET balance = balance + $2::text::numeric, updated_at = NOW()
		WHERE account = $1`

	tag, err := tx.Exec(ctx, update, account.Hex(), delta)
	if err != nil {
		return fmt.Errorf("apply balance delta: %w", err)
	}
	if tag.RowsAffected() != 1 {
		return fmt.Errorf("apply balance delta: %s: no balance row", account.Hex())
	}
	return nil
}

// Get fetches the mirrored balance of account, or nil when never seen.
func (r *BalanceRepo) Get(ctx context.Context, account common.Address) (*ports.MirroredBalance, error) {
	query := `SELECT account, balance::text, updated_at FROM account_balances WHERE account = $1`

	var (
		addr string
		b    ports.MirroredBalance
	)
	err := r.pool.QueryRow(ctx, query, account.Hex()).Scan(&addr, &b.Balance, &b.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get balance: %w", err)
	}
	b.Account = common.HexToAddress(addr)
	return &b, nil
}
