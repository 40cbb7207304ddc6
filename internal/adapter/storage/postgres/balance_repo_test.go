package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func expectApplyDelta(mock pgxmock.PgxPoolIface, account, delta string) {
	mock.ExpectExec("INSERT INTO account_balances .+ VALUES \\(\\$1, 0, NOW\\(\\)\\) ON CONFLICT \\(account\\) DO NOTHING").
		WithArgs(account).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("UPDATE account_balances SET balance = balance \\+ \\$2::text::numeric").
		WithArgs(account, delta).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
}

func TestBalanceRepo_ApplyDelta(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewBalanceRepo(mock)
	ctx := context.Background()

	mock.ExpectBegin()
	tx, err := mock.Begin(ctx)
	require.NoError(t, err)

	expectApplyDelta(mock, alice.Hex(), "995")

	require.NoError(t, repo.ApplyDelta(ctx, tx, alice, "995"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBalanceRepo_ApplyDelta_CreditThenDebit(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewBalanceRepo(mock)
	ctx := context.Background()

	mock.ExpectBegin()
	tx, err := mock.Begin(ctx)
	require.NoError(t, err)

	// The debit must reach Postgres as an UPDATE, never as a negative
	// proposed row in an INSERT.
	expectApplyDelta(mock, alice.Hex(), "10")
	mock.ExpectExec("INSERT INTO account_balances .+ VALUES \\(\\$1, 0, NOW\\(\\)\\)").
		WithArgs(alice.Hex()).
		WillReturnResult(pgxmock.NewResult("INSERT", 0))
	mock.ExpectExec("UPDATE account_balances").
		WithArgs(alice.Hex(), "-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, repo.ApplyDelta(ctx, tx, alice, "10"))
	require.NoError(t, repo.ApplyDelta(ctx, tx, alice, "-1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBalanceRepo_ApplyDelta_CheckViolation(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	ctx := context.Background()
	mock.ExpectBegin()
	tx, err := mock.Begin(ctx)
	require.NoError(t, err)

	mock.ExpectExec("INSERT INTO account_balances").
		WithArgs(alice.Hex()).
		WillReturnResult(pgxmock.NewResult("INSERT", 0))
	mock.ExpectExec("UPDATE account_balances").
		WithArgs(alice.Hex(), "-1").
		WillReturnError(errors.New("violates check constraint"))

	err = NewBalanceRepo(mock).ApplyDelta(ctx, tx, alice, "-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "apply balance delta")
}

func TestBalanceRepo_ApplyDelta_SeedError(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	ctx := context.Background()
	mock.ExpectBegin()
	tx, err := mock.Begin(ctx)
	require.NoError(t, err)

	mock.ExpectExec("INSERT INTO account_balances").
		WithArgs(bob.Hex()).
		WillReturnError(errors.New("connection reset"))

	err = NewBalanceRepo(mock).ApplyDelta(ctx, tx, bob, "5")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "seed balance row")
}

func TestBalanceRepo_Get(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewBalanceRepo(mock)
	now := time.Now().UTC().Truncate(time.Microsecond)

	mock.ExpectQuery("SELECT account, balance::text, updated_at FROM account_balances").
		WithArgs(bob.Hex()).
		WillReturnRows(pgxmock.NewRows([]string{"account", "balance", "updated_at"}).
			AddRow(bob.Hex(), "995000000000000000000", now))

	bal, err := repo.Get(context.Background(), bob)
	require.NoError(t, err)
	require.NotNil(t, bal)
	assert.Equal(t, bob, bal.Account)
	assert.Equal(t, "995000000000000000000", bal.Balance)
	assert.Equal(t, now, bal.UpdatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBalanceRepo_Get_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("SELECT .+ FROM account_balances").
		WithArgs(alice.Hex()).
		WillReturnError(pgx.ErrNoRows)

	bal, err := NewBalanceRepo(mock).Get(context.Background(), alice)
	assert.NoError(t, err)
	assert.Nil(t, bal)
}
