package ledger

import (
	"time"

	"krwx-ledger/internal/core/domain"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/holiman/uint256"
)

// journalEntry is a state modification that can be undone.
type journalEntry interface {
	revert(*Ledger)
}

// journal records every mutation applied by an in-flight operation so a
// failing operation can be rolled back in reverse order.
type journal struct {
	entries []journalEntry
}

func (j *journal) append(entry journalEntry) {
	j.entries = append(j.entries, entry)
}

func (j *journal) revert(l *Ledger) {
	for i := len(j.entries) - 1; i >= 0; i-- {
		j.entries[i].revert(l)
	}
	j.entries = j.entries[:0]
}

type (
	balanceChange struct {
		account common.Address
		prev    *uint256.Int // nil when the account had no entry
	}
	supplyChange struct {
		prev *uint256.Int
	}
	allowanceChange struct {
		owner, spender common.Address
		prev           *uint256.Int
	}
	holdingChange struct {
		asset common.Address
		prev  *uint256.Int
	}
)

func (ch balanceChange) revert(l *Ledger) {
	putAmount(l.balances, ch.account, ch.prev)
}

func (ch supplyChange) revert(l *Ledger) {
	l.totalSupply = ch.prev
}

func (ch allowanceChange) revert(l *Ledger) {
	spenders := l.allowances[ch.owner]
	if spenders == nil {
		spenders = make(map[common.Address]*uint256.Int)
		l.allowances[ch.owner] = spenders
	}
	putAmount(spenders, ch.spender, ch.prev)
	if len(spenders) == 0 {
		delete(l.allowances, ch.owner)
	}
}

func (ch holdingChange) revert(l *Ledger) {
	putAmount(l.holdings, ch.asset, ch.prev)
}

// putAmount stores v under key, deleting the entry for nil or zero.
// Stored values are never mutated in place, so journalled pointers stay valid.
func putAmount(m map[common.Address]*uint256.Int, key common.Address, v *uint256.Int) {
	if v == nil || v.IsZero() {
		delete(m, key)
		return
	}
	m[key] = v
}

// txn is one ledger operation in progress. It owns the journal, the
// events emitted so far, and the sequence number to restore on rollback.
type txn struct {
	l        *Ledger
	id       uuid.UUID
	now      time.Time
	startSeq uint64
	journal  journal
	events   []domain.Event
}

func (l *Ledger) begin() *txn {
	return &txn{
		l:        l,
		id:       uuid.New(),
		now:      l.clock().UTC(),
		startSeq: l.seq,
	}
}

func (t *txn) rollback() {
	t.journal.revert(t.l)
	t.l.seq = t.startSeq
	t.events = nil
}

func (t *txn) commit(op string, caller common.Address) *domain.Receipt {
	if t.l.publisher != nil && len(t.events) > 0 {
		t.l.publisher.Publish(t.events...)
	}
	return &domain.Receipt{
		OperationID: t.id,
		Operation:   op,
		Caller:      caller,
		Timestamp:   t.now,
		Events:      t.events,
	}
}

func (t *txn) emit(e domain.Event) {
	e.Seq = t.l.seq
	e.OperationID = t.id
	e.Timestamp = t.now
	t.l.seq++
	t.events = append(t.events, e)
}

func (t *txn) setBalance(account common.Address, v *uint256.Int) {
	t.journal.append(balanceChange{account: account, prev: t.l.balances[account]})
	putAmount(t.l.balances, account, v)
}

func (t *txn) setSupply(v *uint256.Int) {
	t.journal.append(supplyChange{prev: t.l.totalSupply})
	t.l.totalSupply = v
}

func (t *txn) setAllowance(owner, spender common.Address, v *uint256.Int) {
	var prev *uint256.Int
	if spenders := t.l.allowances[owner]; spenders != nil {
		prev = spenders[spender]
	}
	t.journal.append(allowanceChange{owner: owner, spender: spender, prev: prev})
	spenders := t.l.allowances[owner]
	if spenders == nil {
		spenders = make(map[common.Address]*uint256.Int)
		t.l.allowances[owner] = spenders
	}
	putAmount(spenders, spender, v)
	if len(spenders) == 0 {
		delete(t.l.allowances, owner)
	}
}

func (t *txn) setHolding(asset common.Address, v *uint256.Int) {
	t.journal.append(holdingChange{asset: asset, prev: t.l.holdings[asset]})
	putAmount(t.l.holdings, asset, v)
}
