package ledger

import (
	"fmt"

	"krwx-ledger/internal/core/domain"
	"krwx-ledger/pkg/apperror"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// Transfer moves amount from the caller to to, splitting off the transfer
// fee when one applies.
func (l *Ledger) Transfer(caller, to common.Address, amount *uint256.Int) (*domain.Receipt, error) {
	return l.execute("transfer", caller, func(t *txn) error {
		return t.transfer(caller, to, amount)
	})
}

// BatchTransfer applies transfer(caller, recipients[i], amounts[i]) in order.
// If any leg fails, no leg takes effect and the error names the leg.
func (l *Ledger) BatchTransfer(caller common.Address, recipients []common.Address, amounts []*uint256.Int) (*domain.Receipt, error) {
	return l.execute("batchTransfer", caller, func(t *txn) error {
		if len(recipients) != len(amounts) {
			return apperror.ErrArrayLengthMismatch()
		}
		if len(recipients) == 0 {
			return apperror.ErrEmptyBatch()
		}
		for i := range recipients {
			if err := t.transfer(caller, recipients[i], amounts[i]); err != nil {
				return fmt.Errorf("leg %d: %w", i, err)
			}
		}
		return nil
	})
}

// Approve sets the caller's allowance for spender. It is not gated by pause
// or blacklist.
func (l *Ledger) Approve(caller, spender common.Address, amount *uint256.Int) (*domain.Receipt, error) {
	return l.execute("approve", caller, func(t *txn) error {
		if domain.IsZero(caller) || domain.IsZero(spender) {
			return apperror.ErrZeroAddress()
		}
		if amount == nil {
			return apperror.ErrInvalidAmount()
		}
		t.setAllowance(caller, spender, new(uint256.Int).Set(amount))
		t.emit(domain.Event{Kind: domain.EventApproval, From: caller, To: spender, Amount: new(uint256.Int).Set(amount)})
		return nil
	})
}

// TransferFrom moves amount from from to to on behalf of the caller, which
// must hold a sufficient allowance. An allowance of domain.MaxAmount is
// never decremented.
func (l *Ledger) TransferFrom(caller, from, to common.Address, amount *uint256.Int) (*domain.Receipt, error) {
	return l.execute("transferFrom", caller, func(t *txn) error {
		if err := t.transfer(from, to, amount); err != nil {
			return err
		}
		allowed := t.l.allowance(from, caller)
		if allowed.Lt(amount) {
			return apperror.ErrInsufficientAllowance()
		}
		if !allowed.Eq(domain.MaxAmount) {
			t.setAllowance(from, caller, new(uint256.Int).Sub(allowed, amount))
		}
		return nil
	})
}

// transfer is the value-movement primitive. Checks run in a fixed order and
// the first failure wins; nothing is written before all checks pass.
func (t *txn) transfer(from, to common.Address, amount *uint256.Int) error {
	l := t.l
	if l.paused {
		return apperror.ErrPaused()
	}
	if l.isBlacklisted(from) {
		return apperror.ErrSenderBlacklisted()
	}
	if l.isBlacklisted(to) {
		return apperror.ErrRecipientBlacklisted()
	}
	if domain.IsZero(to) || domain.IsZero(from) {
		return apperror.ErrZeroAddress()
	}
	if amount == nil {
		return apperror.ErrInvalidAmount()
	}
	balance := l.balanceOf(from)
	if balance.Lt(amount) {
		return apperror.ErrInsufficientBalance()
	}

	fee := l.feeFor(from, to, amount)
	net := new(uint256.Int).Sub(amount, fee)

	t.setBalance(from, new(uint256.Int).Sub(balance, amount))
	t.setBalance(to, new(uint256.Int).Add(l.balanceOf(to), net))
	t.emit(domain.Event{Kind: domain.EventTransfer, From: from, To: to, Amount: net})

	if !fee.IsZero() {
		t.setBalance(l.feeRecipient, new(uint256.Int).Add(l.balanceOf(l.feeRecipient), fee))
		t.emit(domain.Event{Kind: domain.EventTransfer, From: from, To: l.feeRecipient, Amount: fee})
	}
	return nil
}

// feeFor returns floor(amount * rate / 10000), or zero when the rate is zero
// or either party is the fee recipient.
func (l *Ledger) feeFor(from, to common.Address, amount *uint256.Int) *uint256.Int {
	if l.feeRateBps == 0 || from == l.feeRecipient || to == l.feeRecipient {
		return new(uint256.Int)
	}
	// rate < denominator, so the quotient is below amount and cannot overflow.
	fee, _ := new(uint256.Int).MulDivOverflow(amount, uint256.NewInt(l.feeRateBps), uint256.NewInt(domain.BpsDenominator))
	return fee
}
