package ledger

import (
	"krwx-ledger/internal/core/domain"
	"krwx-ledger/pkg/apperror"

	"github.com/ethereum/go-ethereum/common"
)

// HasRole reports whether account holds role.
func (l *Ledger) HasRole(role domain.Role, account common.Address) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.hasRole(role, account)
}

// Members lists the holders of role in address order.
func (l *Ledger) Members(role domain.Role) []common.Address {
	l.mu.RLock()
	defer l.mu.RUnlock()
	list := make([]common.Address, 0, len(l.roles[role]))
	for addr := range l.roles[role] {
		list = append(list, addr)
	}
	sortAddresses(list)
	return list
}

// GrantRole gives role to account. Granting a role already held is a no-op
// and emits nothing.
func (l *Ledger) GrantRole(caller common.Address, role domain.Role, account common.Address) (*domain.Receipt, error) {
	return l.execute("grantRole", caller, func(t *txn) error {
		if err := t.requireRole(domain.RoleAdmin, caller); err != nil {
			return err
		}
		if !role.Valid() {
			return apperror.Validation("unknown role")
		}
		if domain.IsZero(account) {
			return apperror.ErrZeroAddress()
		}
		t.grantRole(role, account, caller)
		return nil
	})
}

// RevokeRole removes role from account. Revoking a role not held is a no-op.
// ADMIN may revoke its own role, including the last one.
func (l *Ledger) RevokeRole(caller common.Address, role domain.Role, account common.Address) (*domain.Receipt, error) {
	return l.execute("revokeRole", caller, func(t *txn) error {
		if err := t.requireRole(domain.RoleAdmin, caller); err != nil {
			return err
		}
		if !role.Valid() {
			return apperror.Validation("unknown role")
		}
		if domain.IsZero(account) {
			return apperror.ErrZeroAddress()
		}
		t.revokeRole(role, account, caller)
		return nil
	})
}

// RenounceRole drops role from the caller itself. No role is required.
func (l *Ledger) RenounceRole(caller common.Address, role domain.Role) (*domain.Receipt, error) {
	return l.execute("renounceRole", caller, func(t *txn) error {
		if !role.Valid() {
			return apperror.Validation("unknown role")
		}
		t.revokeRole(role, caller, caller)
		return nil
	})
}

func (l *Ledger) hasRole(role domain.Role, account common.Address) bool {
	_, ok := l.roles[role][account]
	return ok
}

func (t *txn) requireRole(role domain.Role, caller common.Address) error {
	if !t.l.hasRole(role, caller) {
		return apperror.ErrUnauthorized()
	}
	return nil
}

// Role changes are the last step of their operation and never need rollback.
func (t *txn) grantRole(role domain.Role, account, sender common.Address) {
	if t.l.hasRole(role, account) {
		return
	}
	t.l.roles[role][account] = struct{}{}
	t.emit(domain.Event{Kind: domain.EventRoleGranted, Role: role, Account: account, Sender: sender})
}

func (t *txn) revokeRole(role domain.Role, account, sender common.Address) {
	if !t.l.hasRole(role, account) {
		return
	}
	delete(t.l.roles[role], account)
	t.emit(domain.Event{Kind: domain.EventRoleRevoked, Role: role, Account: account, Sender: sender})
}
