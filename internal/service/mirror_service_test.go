package service

import (
	"context"
	"errors"
	"testing"

	"krwx-ledger/internal/core/domain"
	"krwx-ledger/internal/core/ports"
	"krwx-ledger/internal/core/ports/mocks"

	"github.com/holiman/uint256"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type mirrorTestDeps struct {
	svc        *MirrorService
	events     *mocks.MockEventRepository
	balances   *mocks.MockBalanceRepository
	transactor *mocks.MockDBTransactor
	ctrl       *gomock.Controller
}

func setupMirrorService(t *testing.T) *mirrorTestDeps {
	ctrl := gomock.NewController(t)
	d := &mirrorTestDeps{
		events:     mocks.NewMockEventRepository(ctrl),
		balances:   mocks.NewMockBalanceRepository(ctrl),
		transactor: mocks.NewMockDBTransactor(ctrl),
		ctrl:       ctrl,
	}
	d.svc = NewMirrorService(d.events, d.balances, d.transactor, zerolog.Nop())
	return d
}

// mockTx implements pgx.Tx for testing
type mockTx struct {
	pgx.Tx
	committed bool
}

func (m *mockTx) Rollback(_ context.Context) error { return nil }
func (m *mockTx) Commit(_ context.Context) error {
	m.committed = true
	return nil
}

func TestMirrorService_Handle_Transfer(t *testing.T) {
	d := setupMirrorService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	tx := &mockTx{}
	e := domain.Event{Seq: 7, Kind: domain.EventTransfer, From: testAdmin, To: testUser, Amount: uint256.NewInt(995)}

	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.events.EXPECT().Insert(ctx, tx, &e).Return(true, nil)
	d.balances.EXPECT().ApplyDelta(ctx, tx, testAdmin, "-995").Return(nil)
	d.balances.EXPECT().ApplyDelta(ctx, tx, testUser, "995").Return(nil)

	require.NoError(t, d.svc.Handle(ctx, e))
	assert.True(t, tx.committed)
}

func TestMirrorService_Handle_MintSkipsZeroAddress(t *testing.T) {
	d := setupMirrorService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	tx := &mockTx{}
	e := domain.Event{Seq: 1, Kind: domain.EventTransfer, From: domain.ZeroAddress, To: testUser, Amount: uint256.NewInt(10)}

	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.events.EXPECT().Insert(ctx, tx, gomock.Any()).Return(true, nil)
	d.balances.EXPECT().ApplyDelta(ctx, tx, testUser, "10").Return(nil)

	require.NoError(t, d.svc.Handle(ctx, e))
}

func TestMirrorService_Handle_NonTransferEvent(t *testing.T) {
	d := setupMirrorService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	tx := &mockTx{}
	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.events.EXPECT().Insert(ctx, tx, gomock.Any()).Return(true, nil)

	require.NoError(t, d.svc.Handle(ctx, domain.Event{Seq: 2, Kind: domain.EventPaused, Account: testAdmin}))
	assert.True(t, tx.committed)
}

func TestMirrorService_Handle_Redelivery(t *testing.T) {
	d := setupMirrorService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	tx := &mockTx{}
	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.events.EXPECT().Insert(ctx, tx, gomock.Any()).Return(false, nil)
	// no balance deltas for a duplicate

	e := domain.Event{Seq: 7, Kind: domain.EventTransfer, From: testAdmin, To: testUser, Amount: uint256.NewInt(1)}
	require.NoError(t, d.svc.Handle(ctx, e))
	assert.False(t, tx.committed)
}

func TestMirrorService_Handle_DBErrors(t *testing.T) {
	d := setupMirrorService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	e := domain.Event{Seq: 3, Kind: domain.EventTransfer, From: testAdmin, To: testUser, Amount: uint256.NewInt(1)}

	d.transactor.EXPECT().Begin(ctx).Return(nil, errors.New("conn refused"))
	assertAppError(t, d.svc.Handle(ctx, e), "SYS_001")

	tx := &mockTx{}
	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.events.EXPECT().Insert(ctx, tx, gomock.Any()).Return(true, nil)
	d.balances.EXPECT().ApplyDelta(ctx, tx, testAdmin, "-1").Return(errors.New("deadlock"))
	assertAppError(t, d.svc.Handle(ctx, e), "SYS_001")
	assert.False(t, tx.committed)
}

func TestMirrorService_ListEvents_ClampsLimit(t *testing.T) {
	d := setupMirrorService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	d.events.EXPECT().List(ctx, uint64(10), defaultEventPageSize).Return(nil, nil)
	events, err := d.svc.ListEvents(ctx, 10, 0)
	require.NoError(t, err)
	assert.NotNil(t, events)

	d.events.EXPECT().List(ctx, uint64(0), maxEventPageSize).Return([]domain.Event{{Seq: 0}}, nil)
	events, err = d.svc.ListEvents(ctx, 0, 10_000)
	require.NoError(t, err)
	assert.Len(t, events, 1)
}

func TestMirrorService_GetBalance(t *testing.T) {
	d := setupMirrorService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	d.balances.EXPECT().Get(ctx, testUser).Return(nil, nil)
	bal, err := d.svc.GetBalance(ctx, testUser)
	require.NoError(t, err)
	assert.Equal(t, "0", bal.Balance)

	d.balances.EXPECT().Get(ctx, testAdmin).Return(&ports.MirroredBalance{Account: testAdmin, Balance: "42"}, nil)
	bal, err = d.svc.GetBalance(ctx, testAdmin)
	require.NoError(t, err)
	assert.Equal(t, "42", bal.Balance)

	d.balances.EXPECT().Get(ctx, testAdmin).Return(nil, errors.New("timeout"))
	_, err = d.svc.GetBalance(ctx, testAdmin)
	assertAppError(t, err, "SYS_001")
}

func TestMirrorService_CheckStartSeq(t *testing.T) {
	tests := []struct {
		name    string
		last    uint64
		ok      bool
		nextSeq uint64
		code    string
	}{
		{"empty mirror", 0, false, 0, ""},
		{"mirror caught up", 41, true, 42, ""},
		{"mirror lagging", 10, true, 42, ""},
		{"mirror at next seq", 42, true, 42, "SYS_005"},
		{"mirror past snapshot", 57, true, 42, "SYS_005"},
		{"genesis over used mirror", 0, true, 0, "SYS_005"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := setupMirrorService(t)
			defer d.ctrl.Finish()

			d.events.EXPECT().LastSeq(gomock.Any()).Return(tt.last, tt.ok, nil)

			err := d.svc.CheckStartSeq(context.Background(), tt.nextSeq)
			if tt.code == "" {
				assert.NoError(t, err)
				return
			}
			assertAppError(t, err, tt.code)
		})
	}
}

func TestMirrorService_CheckStartSeq_DBError(t *testing.T) {
	d := setupMirrorService(t)
	defer d.ctrl.Finish()

	d.events.EXPECT().LastSeq(gomock.Any()).Return(uint64(0), false, errors.New("conn refused"))

	assertAppError(t, d.svc.CheckStartSeq(context.Background(), 6), "SYS_001")
}
