package domain

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// Role is one of the four ledger capabilities. Roles are not hierarchical:
// holding ADMIN does not imply MINTER.
type Role uint8

const (
	RoleAdmin Role = iota
	RoleMinter
	RolePauser
	RoleBlacklister
)

// AllRoles lists every role in declaration order.
var AllRoles = []Role{RoleAdmin, RoleMinter, RolePauser, RoleBlacklister}

var roleNames = map[Role]string{
	RoleAdmin:       "ADMIN",
	RoleMinter:      "MINTER",
	RolePauser:      "PAUSER",
	RoleBlacklister: "BLACKLISTER",
}

func (r Role) String() string {
	if name, ok := roleNames[r]; ok {
		return name
	}
	return fmt.Sprintf("Role(%d)", uint8(r))
}

// Valid reports whether r is a declared role.
func (r Role) Valid() bool {
	_, ok := roleNames[r]
	return ok
}

// ID returns the bytes32 role identifier carried in role events:
// zero for ADMIN, keccak256("<NAME>_ROLE") otherwise.
func (r Role) ID() common.Hash {
	if r == RoleAdmin {
		return common.Hash{}
	}
	return Keccak256Hash([]byte(r.String() + "_ROLE"))
}

// ParseRole accepts a role name, case-insensitively, with or without the _ROLE suffix.
func ParseRole(s string) (Role, error) {
	name := strings.TrimSuffix(strings.ToUpper(strings.TrimSpace(s)), "_ROLE")
	for r, n := range roleNames {
		if n == name {
			return r, nil
		}
	}
	return 0, fmt.Errorf("unknown role %q", s)
}

func (r Role) MarshalText() ([]byte, error) {
	if !r.Valid() {
		return nil, fmt.Errorf("unknown role %d", uint8(r))
	}
	return []byte(r.String()), nil
}

func (r *Role) UnmarshalText(text []byte) error {
	parsed, err := ParseRole(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}
