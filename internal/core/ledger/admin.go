package ledger

import (
	"krwx-ledger/internal/core/domain"
	"krwx-ledger/pkg/apperror"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// Mint creates amount new tokens for to. Requires MINTER.
func (l *Ledger) Mint(caller, to common.Address, amount *uint256.Int) (*domain.Receipt, error) {
	return l.execute("mint", caller, func(t *txn) error {
		if err := t.requireRole(domain.RoleMinter, caller); err != nil {
			return err
		}
		if domain.IsZero(to) {
			return apperror.ErrZeroAddress()
		}
		if t.l.isBlacklisted(to) {
			return apperror.ErrBlacklistedAccount()
		}
		if amount == nil || amount.IsZero() {
			return apperror.ErrInvalidAmount()
		}
		return t.mint(to, amount)
	})
}

func (t *txn) mint(to common.Address, amount *uint256.Int) error {
	supply, overflow := new(uint256.Int).AddOverflow(t.l.totalSupply, amount)
	if overflow {
		return apperror.ErrOverflow()
	}
	// balance <= supply, so this cannot overflow once the supply did not.
	t.setSupply(supply)
	t.setBalance(to, new(uint256.Int).Add(t.l.balanceOf(to), amount))
	amt := new(uint256.Int).Set(amount)
	t.emit(domain.Event{Kind: domain.EventTransfer, From: domain.ZeroAddress, To: to, Amount: amt})
	t.emit(domain.Event{Kind: domain.EventMint, Account: to, Amount: amt})
	return nil
}

// BurnFrom destroys amount tokens held by from. Requires MINTER.
func (l *Ledger) BurnFrom(caller, from common.Address, amount *uint256.Int) (*domain.Receipt, error) {
	return l.execute("burnFrom", caller, func(t *txn) error {
		if err := t.requireRole(domain.RoleMinter, caller); err != nil {
			return err
		}
		if domain.IsZero(from) {
			return apperror.ErrZeroAddress()
		}
		if t.l.isBlacklisted(from) {
			return apperror.ErrBlacklistedAccount()
		}
		if amount == nil || amount.IsZero() {
			return apperror.ErrInvalidAmount()
		}
		balance := t.l.balanceOf(from)
		if balance.Lt(amount) {
			return apperror.ErrInsufficientBalance()
		}
		t.setBalance(from, new(uint256.Int).Sub(balance, amount))
		t.setSupply(new(uint256.Int).Sub(t.l.totalSupply, amount))
		amt := new(uint256.Int).Set(amount)
		t.emit(domain.Event{Kind: domain.EventTransfer, From: from, To: domain.ZeroAddress, Amount: amt})
		t.emit(domain.Event{Kind: domain.EventBurn, Account: from, Amount: amt})
		return nil
	})
}

// Pause blocks transfers. Requires PAUSER; fails if already paused.
func (l *Ledger) Pause(caller common.Address) (*domain.Receipt, error) {
	return l.execute("pause", caller, func(t *txn) error {
		if err := t.requireRole(domain.RolePauser, caller); err != nil {
			return err
		}
		if t.l.paused {
			return apperror.ErrAlreadyPaused()
		}
		t.l.paused = true
		t.emit(domain.Event{Kind: domain.EventPaused, Account: caller})
		return nil
	})
}

// Unpause resumes transfers. Requires PAUSER; fails if not paused.
func (l *Ledger) Unpause(caller common.Address) (*domain.Receipt, error) {
	return l.execute("unpause", caller, func(t *txn) error {
		if err := t.requireRole(domain.RolePauser, caller); err != nil {
			return err
		}
		if !t.l.paused {
			return apperror.ErrNotPaused()
		}
		t.l.paused = false
		t.emit(domain.Event{Kind: domain.EventUnpaused, Account: caller})
		return nil
	})
}

// Blacklist bars account from sending, receiving, minting and burning.
// Balances are left untouched. Requires BLACKLISTER.
func (l *Ledger) Blacklist(caller, account common.Address) (*domain.Receipt, error) {
	return l.execute("blacklist", caller, func(t *txn) error {
		if err := t.requireRole(domain.RoleBlacklister, caller); err != nil {
			return err
		}
		if domain.IsZero(account) {
			return apperror.ErrZeroAddress()
		}
		if t.l.isBlacklisted(account) {
			return apperror.ErrAlreadyBlacklisted()
		}
		t.l.blacklist[account] = struct{}{}
		t.emit(domain.Event{Kind: domain.EventBlacklisted, Account: account})
		return nil
	})
}

// Unblacklist lifts the bar on account. Requires BLACKLISTER.
func (l *Ledger) Unblacklist(caller, account common.Address) (*domain.Receipt, error) {
	return l.execute("unblacklist", caller, func(t *txn) error {
		if err := t.requireRole(domain.RoleBlacklister, caller); err != nil {
			return err
		}
		if !t.l.isBlacklisted(account) {
			return apperror.ErrNotBlacklisted()
		}
		delete(t.l.blacklist, account)
		t.emit(domain.Event{Kind: domain.EventUnBlacklisted, Account: account})
		return nil
	})
}

// SetTransferFeeRate changes the fee rate in basis points. Requires ADMIN.
func (l *Ledger) SetTransferFeeRate(caller common.Address, rateBps uint64) (*domain.Receipt, error) {
	return l.execute("setTransferFeeRate", caller, func(t *txn) error {
		if err := t.requireRole(domain.RoleAdmin, caller); err != nil {
			return err
		}
		if rateBps > domain.MaxFeeRateBps {
			return apperror.ErrFeeRateTooHigh()
		}
		old := t.l.feeRateBps
		t.l.feeRateBps = rateBps
		t.emit(domain.Event{Kind: domain.EventFeeRateUpdated, OldRate: old, NewRate: rateBps})
		return nil
	})
}

// SetFeeRecipient changes the account credited with fees. A blacklisted
// account is accepted. Requires ADMIN.
func (l *Ledger) SetFeeRecipient(caller, recipient common.Address) (*domain.Receipt, error) {
	return l.execute("setFeeRecipient", caller, func(t *txn) error {
		if err := t.requireRole(domain.RoleAdmin, caller); err != nil {
			return err
		}
		if domain.IsZero(recipient) {
			return apperror.ErrZeroAddress()
		}
		old := t.l.feeRecipient
		t.l.feeRecipient = recipient
		t.emit(domain.Event{Kind: domain.EventFeeRecipientUpdated, From: old, To: recipient})
		return nil
	})
}

// DepositStray credits a foreign asset that arrived at the ledger's own
// address. The ledger's own token id is rejected.
func (l *Ledger) DepositStray(asset common.Address, amount *uint256.Int) error {
	_, err := l.execute("depositStray", l.self, func(t *txn) error {
		if asset == t.l.self {
			return apperror.ErrInvalidAsset()
		}
		if amount == nil || amount.IsZero() {
			return apperror.ErrInvalidAmount()
		}
		held := t.l.holdings[asset]
		if held == nil {
			held = new(uint256.Int)
		}
		sum, overflow := new(uint256.Int).AddOverflow(held, amount)
		if overflow {
			return apperror.ErrOverflow()
		}
		t.setHolding(asset, sum)
		return nil
	})
	return err
}

// EmergencyRecover sends amount of a stray asset to the caller. It never
// touches token balances or the supply. Requires ADMIN.
func (l *Ledger) EmergencyRecover(caller, asset common.Address, amount *uint256.Int) (*domain.Receipt, error) {
	return l.execute("emergencyRecover", caller, func(t *txn) error {
		if err := t.requireRole(domain.RoleAdmin, caller); err != nil {
			return err
		}
		if asset == t.l.self {
			return apperror.ErrInvalidAsset()
		}
		if amount == nil || amount.IsZero() {
			return apperror.ErrInvalidAmount()
		}
		held := t.l.holdings[asset]
		if held == nil || held.Lt(amount) {
			return apperror.ErrInsufficientBalance()
		}
		t.setHolding(asset, new(uint256.Int).Sub(held, amount))
		t.emit(domain.Event{Kind: domain.EventEmergencyRecovered, Asset: asset, To: caller, Amount: new(uint256.Int).Set(amount)})
		return nil
	})
}
