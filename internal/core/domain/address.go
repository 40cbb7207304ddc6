package domain

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// ZeroAddress is the null account. It can never hold a balance, be a
// transfer recipient, or be blacklisted.
var ZeroAddress = common.Address{}

// ParseAddress parses a 0x-prefixed 20-byte hex address.
func ParseAddress(s string) (common.Address, error) {
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("invalid address %q", s)
	}
	return common.HexToAddress(s), nil
}

// IsZero reports whether addr is the null account.
func IsZero(addr common.Address) bool {
	return addr == ZeroAddress
}
