package ports

import (
	"context"
	"errors"
	"time"

	"krwx-ledger/internal/core/domain"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// TokenService issues and validates caller identity tokens (JWT).
type TokenService interface {
	Generate(address common.Address) (string, time.Time, error)
	Validate(tokenString string) (*TokenClaims, error)
}

// TokenClaims holds the parsed JWT claims.
type TokenClaims struct {
	Address common.Address
}

// ErrRequestInFlight is returned by IdempotencyCache.Get while the key is
// reserved but no receipt has been stored yet.
var ErrRequestInFlight = errors.New("idempotent request in flight")

// IdempotencyCache is the Redis-layer idempotency check.
type IdempotencyCache interface {
	// Reserve claims key for one execution. It reports false when the key is
	// already reserved or holds a receipt.
	Reserve(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Get(ctx context.Context, key string) ([]byte, error) // Returns cached receipt JSON or nil
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Release drops a reservation that never produced a receipt.
	Release(ctx context.Context, key string) error
}

// EventSubscriber receives committed ledger events from the event bus, one
// at a time and in sequence order.
type EventSubscriber interface {
	Name() string
	Handle(ctx context.Context, e domain.Event) error
}

// --- Service Ports (Business Logic) ---

// CallMeta identifies who performs an operation and, optionally, the
// client-chosen key that makes a retry return the original receipt.
type CallMeta struct {
	Caller         common.Address
	IdempotencyKey string
}

type TransferRequest struct {
	CallMeta
	To     common.Address
	Amount *uint256.Int
}

type BatchTransferRequest struct {
	CallMeta
	Recipients []common.Address
	Amounts    []*uint256.Int
}

type TransferFromRequest struct {
	CallMeta
	From   common.Address
	To     common.Address
	Amount *uint256.Int
}

type ApproveRequest struct {
	CallMeta
	Spender common.Address
	Amount  *uint256.Int
}

type MintRequest struct {
	CallMeta
	To     common.Address
	Amount *uint256.Int
}

type BurnRequest struct {
	CallMeta
	From   common.Address
	Amount *uint256.Int
}

// AccountRequest targets one account: blacklist, unblacklist, fee recipient.
type AccountRequest struct {
	CallMeta
	Account common.Address
}

type FeeRateRequest struct {
	CallMeta
	RateBps uint64
}

type RoleRequest struct {
	CallMeta
	Role    domain.Role
	Account common.Address // ignored by RenounceRole
}

type RecoverRequest struct {
	CallMeta
	Asset  common.Address
	Amount *uint256.Int
}

// LedgerService is the application facade over the token ledger.
type LedgerService interface {
	Info(ctx context.Context) domain.LedgerInfo
	Account(ctx context.Context, address common.Address) domain.AccountInfo
	Allowance(ctx context.Context, owner, spender common.Address) *uint256.Int
	RoleMembers(ctx context.Context, role domain.Role) []common.Address

	Transfer(ctx context.Context, req TransferRequest) (*domain.Receipt, error)
	BatchTransfer(ctx context.Context, req BatchTransferRequest) (*domain.Receipt, error)
	TransferFrom(ctx context.Context, req TransferFromRequest) (*domain.Receipt, error)
	Approve(ctx context.Context, req ApproveRequest) (*domain.Receipt, error)

	Mint(ctx context.Context, req MintRequest) (*domain.Receipt, error)
	Burn(ctx context.Context, req BurnRequest) (*domain.Receipt, error)
	Pause(ctx context.Context, meta CallMeta) (*domain.Receipt, error)
	Unpause(ctx context.Context, meta CallMeta) (*domain.Receipt, error)
	Blacklist(ctx context.Context, req AccountRequest) (*domain.Receipt, error)
	Unblacklist(ctx context.Context, req AccountRequest) (*domain.Receipt, error)
	SetFeeRate(ctx context.Context, req FeeRateRequest) (*domain.Receipt, error)
	SetFeeRecipient(ctx context.Context, req AccountRequest) (*domain.Receipt, error)
	GrantRole(ctx context.Context, req RoleRequest) (*domain.Receipt, error)
	RevokeRole(ctx context.Context, req RoleRequest) (*domain.Receipt, error)
	RenounceRole(ctx context.Context, req RoleRequest) (*domain.Receipt, error)
	Recover(ctx context.Context, req RecoverRequest) (*domain.Receipt, error)
	DepositStray(ctx context.Context, asset common.Address, amount *uint256.Int) error

	// SaveSnapshot persists the current state to the snapshot store.
	SaveSnapshot(ctx context.Context) error
}

// SequenceChecker vets the sequence number a ledger is about to start from
// against state kept outside the ledger.
type SequenceChecker interface {
	CheckStartSeq(ctx context.Context, nextSeq uint64) error
}

// MirrorService serves the off-chain event and balance mirror.
type MirrorService interface {
	ListEvents(ctx context.Context, fromSeq uint64, limit int) ([]domain.Event, error)
	GetBalance(ctx context.Context, account common.Address) (*MirroredBalance, error)
}
