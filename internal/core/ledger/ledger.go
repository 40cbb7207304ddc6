// Package ledger implements the KRWX token ledger: an in-memory,
// strictly serialized state machine over balances, allowances, roles,
// the blacklist, the pause flag and the transfer fee.
//
// Every mutating operation takes the write lock for its full duration and
// either commits all of its effects and events or none of them.
package ledger

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"krwx-ledger/internal/core/domain"
	"krwx-ledger/pkg/apperror"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// Publisher receives committed events in sequence order. Publish must not block.
type Publisher interface {
	Publish(events ...domain.Event)
}

// Genesis is the deployment configuration of a new ledger.
type Genesis struct {
	Name          string
	Symbol        string
	Self          common.Address // token id of the ledger itself; derived from Symbol when zero
	Admin         common.Address
	FeeRecipient  common.Address
	InitialSupply *uint256.Int
	FeeRateBps    uint64
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithPublisher sets the sink for committed events.
func WithPublisher(p Publisher) Option {
	return func(l *Ledger) { l.publisher = p }
}

// WithClock overrides the time source used for receipts and events.
func WithClock(clock func() time.Time) Option {
	return func(l *Ledger) { l.clock = clock }
}

// Ledger is the token state machine. The zero value is not usable; build
// one with New or Restore.
type Ledger struct {
	mu sync.RWMutex

	name   string
	symbol string
	self   common.Address

	balances    map[common.Address]*uint256.Int
	allowances  map[common.Address]map[common.Address]*uint256.Int
	totalSupply *uint256.Int
	holdings    map[common.Address]*uint256.Int

	blacklist    map[common.Address]struct{}
	paused       bool
	feeRateBps   uint64
	feeRecipient common.Address
	roles        map[domain.Role]map[common.Address]struct{}

	seq       uint64
	publisher Publisher
	clock     func() time.Time
}

func newLedger(opts []Option) *Ledger {
	l := &Ledger{
		balances:    make(map[common.Address]*uint256.Int),
		allowances:  make(map[common.Address]map[common.Address]*uint256.Int),
		totalSupply: new(uint256.Int),
		holdings:    make(map[common.Address]*uint256.Int),
		blacklist:   make(map[common.Address]struct{}),
		roles:       make(map[domain.Role]map[common.Address]struct{}),
		clock:       time.Now,
	}
	for _, r := range domain.AllRoles {
		l.roles[r] = make(map[common.Address]struct{})
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// DeriveAddress returns the token id used when Genesis.Self is unset.
func DeriveAddress(symbol string) common.Address {
	return common.BytesToAddress(domain.Keccak256Hash([]byte("ledger:" + symbol)).Bytes()[12:])
}

// New deploys a ledger: the admin receives every role and the whole
// initial supply. The genesis events are published like any other.
func New(g Genesis, opts ...Option) (*Ledger, error) {
	if domain.IsZero(g.Admin) {
		return nil, fmt.Errorf("genesis admin: %w", apperror.ErrZeroAddress())
	}
	if domain.IsZero(g.FeeRecipient) {
		return nil, fmt.Errorf("genesis fee recipient: %w", apperror.ErrZeroAddress())
	}
	if g.FeeRateBps > domain.MaxFeeRateBps {
		return nil, apperror.ErrFeeRateTooHigh()
	}

	l := newLedger(opts)
	l.name, l.symbol = g.Name, g.Symbol
	l.self = g.Self
	if domain.IsZero(l.self) {
		l.self = DeriveAddress(g.Symbol)
	}
	l.feeRateBps = g.FeeRateBps
	l.feeRecipient = g.FeeRecipient

	l.mu.Lock()
	defer l.mu.Unlock()

	t := l.begin()
	for _, r := range domain.AllRoles {
		t.grantRole(r, g.Admin, g.Admin)
	}
	if g.InitialSupply != nil && !g.InitialSupply.IsZero() {
		t.mint(g.Admin, g.InitialSupply)
	}
	t.commit("deploy", g.Admin)
	return l, nil
}

// Restore rebuilds a ledger from a snapshot after checking its invariants.
func Restore(s *domain.Snapshot, opts ...Option) (*Ledger, error) {
	if s == nil {
		return nil, errors.New("nil snapshot")
	}
	if s.FeeRateBps > domain.MaxFeeRateBps {
		return nil, fmt.Errorf("snapshot fee rate %d: %w", s.FeeRateBps, apperror.ErrFeeRateTooHigh())
	}
	if domain.IsZero(s.FeeRecipient) {
		return nil, fmt.Errorf("snapshot fee recipient: %w", apperror.ErrZeroAddress())
	}

	l := newLedger(opts)
	l.name, l.symbol, l.self = s.Name, s.Symbol, s.Self
	if domain.IsZero(l.self) {
		l.self = DeriveAddress(s.Symbol)
	}
	l.paused = s.Paused
	l.feeRateBps = s.FeeRateBps
	l.feeRecipient = s.FeeRecipient
	l.seq = s.NextSeq

	supply, err := domain.ParseAmount(s.TotalSupply)
	if err != nil {
		return nil, fmt.Errorf("snapshot total supply: %w", err)
	}
	l.totalSupply = supply

	for addr, raw := range s.Balances {
		v, err := domain.ParseAmount(raw)
		if err != nil {
			return nil, fmt.Errorf("snapshot balance of %s: %w", addr.Hex(), err)
		}
		if domain.IsZero(addr) && !v.IsZero() {
			return nil, fmt.Errorf("snapshot: balance held by zero address")
		}
		putAmount(l.balances, addr, v)
	}
	for owner, spenders := range s.Allowances {
		for spender, raw := range spenders {
			v, err := domain.ParseAmount(raw)
			if err != nil {
				return nil, fmt.Errorf("snapshot allowance %s->%s: %w", owner.Hex(), spender.Hex(), err)
			}
			if v.IsZero() {
				continue
			}
			if l.allowances[owner] == nil {
				l.allowances[owner] = make(map[common.Address]*uint256.Int)
			}
			l.allowances[owner][spender] = v
		}
	}
	for asset, raw := range s.Holdings {
		v, err := domain.ParseAmount(raw)
		if err != nil {
			return nil, fmt.Errorf("snapshot holding %s: %w", asset.Hex(), err)
		}
		putAmount(l.holdings, asset, v)
	}
	for _, addr := range s.Blacklist {
		l.blacklist[addr] = struct{}{}
	}
	for role, members := range s.Roles {
		if !role.Valid() {
			return nil, fmt.Errorf("snapshot: unknown role %d", uint8(role))
		}
		for _, addr := range members {
			l.roles[role][addr] = struct{}{}
		}
	}

	if err := l.verify(); err != nil {
		return nil, fmt.Errorf("snapshot: %w", err)
	}
	return l, nil
}

// Verify checks the conservation invariant: totalSupply equals the sum of
// all balances.
func (l *Ledger) Verify() error {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.verify()
}

func (l *Ledger) verify() error {
	sum := new(uint256.Int)
	for addr, b := range l.balances {
		if _, overflow := sum.AddOverflow(sum, b); overflow {
			return fmt.Errorf("balance sum overflows at %s", addr.Hex())
		}
	}
	if !sum.Eq(l.totalSupply) {
		return fmt.Errorf("total supply %s does not match balance sum %s", l.totalSupply.Dec(), sum.Dec())
	}
	return nil
}

// ---- reads ----

// Info returns token metadata and the global parameters.
func (l *Ledger) Info() domain.LedgerInfo {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return domain.LedgerInfo{
		Name:         l.name,
		Symbol:       l.symbol,
		Decimals:     domain.Decimals,
		Self:         l.self,
		TotalSupply:  l.totalSupply.Dec(),
		Paused:       l.paused,
		FeeRateBps:   l.feeRateBps,
		FeeRecipient: l.feeRecipient,
		NextSeq:      l.seq,
	}
}

// Account returns balance, blacklist status and roles of addr.
func (l *Ledger) Account(addr common.Address) domain.AccountInfo {
	l.mu.RLock()
	defer l.mu.RUnlock()
	info := domain.AccountInfo{
		Address:     addr,
		Balance:     l.balanceOf(addr).Dec(),
		Blacklisted: l.isBlacklisted(addr),
		Roles:       []domain.Role{},
	}
	for _, r := range domain.AllRoles {
		if l.hasRole(r, addr) {
			info.Roles = append(info.Roles, r)
		}
	}
	return info
}

func (l *Ledger) BalanceOf(addr common.Address) *uint256.Int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.balanceOf(addr)
}

func (l *Ledger) TotalSupply() *uint256.Int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return new(uint256.Int).Set(l.totalSupply)
}

func (l *Ledger) Allowance(owner, spender common.Address) *uint256.Int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.allowance(owner, spender)
}

func (l *Ledger) IsBlacklisted(addr common.Address) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.isBlacklisted(addr)
}

func (l *Ledger) Paused() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.paused
}

func (l *Ledger) FeeRateBps() uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.feeRateBps
}

func (l *Ledger) FeeRecipient() common.Address {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.feeRecipient
}

// Holding returns the stray balance of asset held by the ledger itself.
func (l *Ledger) Holding(asset common.Address) *uint256.Int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if v, ok := l.holdings[asset]; ok {
		return new(uint256.Int).Set(v)
	}
	return new(uint256.Int)
}

// Snapshot returns a consistent copy of the whole state.
func (l *Ledger) Snapshot() *domain.Snapshot {
	l.mu.RLock()
	defer l.mu.RUnlock()

	s := &domain.Snapshot{
		Name:         l.name,
		Symbol:       l.symbol,
		Self:         l.self,
		TotalSupply:  l.totalSupply.Dec(),
		Balances:     make(map[common.Address]string, len(l.balances)),
		Allowances:   make(map[common.Address]map[common.Address]string, len(l.allowances)),
		Blacklist:    make([]common.Address, 0, len(l.blacklist)),
		Paused:       l.paused,
		FeeRateBps:   l.feeRateBps,
		FeeRecipient: l.feeRecipient,
		Roles:        make(map[domain.Role][]common.Address, len(l.roles)),
		Holdings:     make(map[common.Address]string, len(l.holdings)),
		NextSeq:      l.seq,
		TakenAt:      l.clock().UTC(),
	}
	for addr, b := range l.balances {
		s.Balances[addr] = b.Dec()
	}
	for owner, spenders := range l.allowances {
		m := make(map[common.Address]string, len(spenders))
		for spender, v := range spenders {
			m[spender] = v.Dec()
		}
		s.Allowances[owner] = m
	}
	for addr := range l.blacklist {
		s.Blacklist = append(s.Blacklist, addr)
	}
	sortAddresses(s.Blacklist)
	for role, members := range l.roles {
		list := make([]common.Address, 0, len(members))
		for addr := range members {
			list = append(list, addr)
		}
		sortAddresses(list)
		s.Roles[role] = list
	}
	for asset, v := range l.holdings {
		s.Holdings[asset] = v.Dec()
	}
	return s
}

func sortAddresses(list []common.Address) {
	sort.Slice(list, func(i, j int) bool { return list[i].Cmp(list[j]) < 0 })
}

// balanceOf returns a copy so callers can never alias stored values.
func (l *Ledger) balanceOf(addr common.Address) *uint256.Int {
	if b, ok := l.balances[addr]; ok {
		return new(uint256.Int).Set(b)
	}
	return new(uint256.Int)
}

func (l *Ledger) allowance(owner, spender common.Address) *uint256.Int {
	if v, ok := l.allowances[owner][spender]; ok {
		return new(uint256.Int).Set(v)
	}
	return new(uint256.Int)
}

func (l *Ledger) isBlacklisted(addr common.Address) bool {
	_, ok := l.blacklist[addr]
	return ok
}

// execute runs fn as one serialized, all-or-nothing operation.
func (l *Ledger) execute(op string, caller common.Address, fn func(t *txn) error) (*domain.Receipt, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	t := l.begin()
	if err := fn(t); err != nil {
		t.rollback()
		return nil, err
	}
	return t.commit(op, caller), nil
}
