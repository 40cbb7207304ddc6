package dto

import (
	"time"

	"krwx-ledger/internal/core/domain"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// Amounts travel as base-unit decimal strings. Validation leaves semantic
// checks (zero address, zero amount, batch shape) to the ledger so callers
// see the ledger's own error codes.

type TransferRequest struct {
	To     string `json:"to" binding:"required,eth_address"`
	Amount string `json:"amount" binding:"required,amount"`
}

type BatchTransferRequest struct {
	Recipients []string `json:"recipients" binding:"dive,eth_address"`
	Amounts    []string `json:"amounts" binding:"dive,amount"`
}

type TransferFromRequest struct {
	From   string `json:"from" binding:"required,eth_address"`
	To     string `json:"to" binding:"required,eth_address"`
	Amount string `json:"amount" binding:"required,amount"`
}

type ApproveRequest struct {
	Spender string `json:"spender" binding:"required,eth_address"`
	Amount  string `json:"amount" binding:"required,amount"`
}

type MintRequest struct {
	To     string `json:"to" binding:"required,eth_address"`
	Amount string `json:"amount" binding:"required,amount"`
}

type BurnRequest struct {
	From   string `json:"from" binding:"required,eth_address"`
	Amount string `json:"amount" binding:"required,amount"`
}

// AccountRequest is the body of blacklist, unblacklist and fee-recipient calls.
type AccountRequest struct {
	Account string `json:"account" binding:"required,eth_address"`
}

type FeeRateRequest struct {
	RateBps *uint64 `json:"rate_bps" binding:"required"`
}

type RoleRequest struct {
	Role    string `json:"role" binding:"required,role"`
	Account string `json:"account" binding:"required,eth_address"`
}

type RenounceRoleRequest struct {
	Role string `json:"role" binding:"required,role"`
}

// AssetRequest is the body of recover and stray-deposit calls. The zero
// address denotes the native asset.
type AssetRequest struct {
	Asset  string `json:"asset" binding:"required,eth_address"`
	Amount string `json:"amount" binding:"required,amount"`
}

// Amount pairs a raw base-unit value with its 18-decimal rendering.
type Amount struct {
	Raw       string `json:"raw"`
	Formatted string `json:"formatted"`
}

func NewAmount(v *uint256.Int) Amount {
	return Amount{Raw: domain.AmountString(v), Formatted: domain.FormatUnits(v)}
}

// AmountFromString renders a base-unit string. Unparseable input is
// returned raw with an empty formatted value.
func AmountFromString(s string) Amount {
	v, err := domain.ParseAmount(s)
	if err != nil {
		return Amount{Raw: s}
	}
	return NewAmount(v)
}

type LedgerResponse struct {
	Name         string         `json:"name"`
	Symbol       string         `json:"symbol"`
	Decimals     uint8          `json:"decimals"`
	Address      common.Address `json:"address"`
	TotalSupply  Amount         `json:"total_supply"`
	Paused       bool           `json:"paused"`
	FeeRateBps   uint64         `json:"fee_rate_bps"`
	FeeRecipient common.Address `json:"fee_recipient"`
	NextSeq      uint64         `json:"next_seq"`
}

func NewLedgerResponse(info domain.LedgerInfo) LedgerResponse {
	return LedgerResponse{
		Name:         info.Name,
		Symbol:       info.Symbol,
		Decimals:     info.Decimals,
		Address:      info.Self,
		TotalSupply:  AmountFromString(info.TotalSupply),
		Paused:       info.Paused,
		FeeRateBps:   info.FeeRateBps,
		FeeRecipient: info.FeeRecipient,
		NextSeq:      info.NextSeq,
	}
}

type AccountResponse struct {
	Address     common.Address `json:"address"`
	Balance     Amount         `json:"balance"`
	Blacklisted bool           `json:"blacklisted"`
	Roles       []domain.Role  `json:"roles"`
}

func NewAccountResponse(info domain.AccountInfo) AccountResponse {
	roles := info.Roles
	if roles == nil {
		roles = []domain.Role{}
	}
	return AccountResponse{
		Address:     info.Address,
		Balance:     AmountFromString(info.Balance),
		Blacklisted: info.Blacklisted,
		Roles:       roles,
	}
}

type RoleMembersResponse struct {
	Role    domain.Role      `json:"role"`
	RoleID  common.Hash      `json:"role_id"`
	Members []common.Address `json:"members"`
}

func NewRoleMembersResponse(role domain.Role, members []common.Address) RoleMembersResponse {
	if members == nil {
		members = []common.Address{}
	}
	return RoleMembersResponse{Role: role, RoleID: role.ID(), Members: members}
}

type AllowanceResponse struct {
	Owner     common.Address `json:"owner"`
	Spender   common.Address `json:"spender"`
	Allowance Amount         `json:"allowance"`
	Unlimited bool           `json:"unlimited"`
}

type MirroredBalanceResponse struct {
	Account   common.Address `json:"account"`
	Balance   Amount         `json:"balance"`
	UpdatedAt *time.Time     `json:"updated_at,omitempty"`
}

type EventListResponse struct {
	Events []domain.Event `json:"events"`
	// NextFromSeq is the from_seq for the following page.
	NextFromSeq uint64 `json:"next_from_seq"`
}
