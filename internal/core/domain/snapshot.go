package domain

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Snapshot is a serializable copy of the full ledger state. Amounts are
// base-unit decimal strings.
type Snapshot struct {
	Name         string                                       `json:"name"`
	Symbol       string                                       `json:"symbol"`
	Self         common.Address                               `json:"self"`
	TotalSupply  string                                       `json:"total_supply"`
	Balances     map[common.Address]string                    `json:"balances"`
	Allowances   map[common.Address]map[common.Address]string `json:"allowances,omitempty"`
	Blacklist    []common.Address                             `json:"blacklist"`
	Paused       bool                                         `json:"paused"`
	FeeRateBps   uint64                                       `json:"fee_rate_bps"`
	FeeRecipient common.Address                               `json:"fee_recipient"`
	Roles        map[Role][]common.Address                    `json:"roles"`
	Holdings     map[common.Address]string                    `json:"holdings,omitempty"`
	NextSeq      uint64                                       `json:"next_seq"`
	TakenAt      time.Time                                    `json:"taken_at"`
}

// LedgerInfo is the read-only summary of the ledger exposed to callers.
type LedgerInfo struct {
	Name         string         `json:"name"`
	Symbol       string         `json:"symbol"`
	Decimals     uint8          `json:"decimals"`
	Self         common.Address `json:"self"`
	TotalSupply  string         `json:"total_supply"`
	Paused       bool           `json:"paused"`
	FeeRateBps   uint64         `json:"fee_rate_bps"`
	FeeRecipient common.Address `json:"fee_recipient"`
	NextSeq      uint64         `json:"next_seq"`
}

// AccountInfo is the per-account view.
type AccountInfo struct {
	Address     common.Address `json:"address"`
	Balance     string         `json:"balance"`
	Blacklisted bool           `json:"blacklisted"`
	Roles       []Role         `json:"roles"`
}
