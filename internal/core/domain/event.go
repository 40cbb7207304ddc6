package domain

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/holiman/uint256"
	"golang.org/x/crypto/sha3"
)

// EventKind names a ledger event.
type EventKind string

const (
	EventTransfer            EventKind = "Transfer"
	EventApproval            EventKind = "Approval"
	EventMint                EventKind = "Mint"
	EventBurn                EventKind = "Burn"
	EventBlacklisted         EventKind = "Blacklisted"
	EventUnBlacklisted       EventKind = "UnBlacklisted"
	EventFeeRateUpdated      EventKind = "FeeRateUpdated"
	EventFeeRecipientUpdated EventKind = "FeeRecipientUpdated"
	EventPaused              EventKind = "Paused"
	EventUnpaused            EventKind = "Unpaused"
	EventRoleGranted         EventKind = "RoleGranted"
	EventRoleRevoked         EventKind = "RoleRevoked"
	EventEmergencyRecovered  EventKind = "EmergencyRecovered"
)

var eventSignatures = map[EventKind]string{
	EventTransfer:            "Transfer(address,address,uint256)",
	EventApproval:            "Approval(address,address,uint256)",
	EventMint:                "Mint(address,uint256)",
	EventBurn:                "Burn(address,uint256)",
	EventBlacklisted:         "Blacklisted(address)",
	EventUnBlacklisted:       "UnBlacklisted(address)",
	EventFeeRateUpdated:      "FeeRateUpdated(uint256,uint256)",
	EventFeeRecipientUpdated: "FeeRecipientUpdated(address,address)",
	EventPaused:              "Paused(address)",
	EventUnpaused:            "Unpaused(address)",
	EventRoleGranted:         "RoleGranted(bytes32,address,address)",
	EventRoleRevoked:         "RoleRevoked(bytes32,address,address)",
	EventEmergencyRecovered:  "EmergencyRecovered(address,address,uint256)",
}

// Signature returns the canonical event signature.
func (k EventKind) Signature() string {
	return eventSignatures[k]
}

// Topic returns keccak256 of the event signature, the value an EVM log
// carries as topic 0 for the same event.
func (k EventKind) Topic() common.Hash {
	sig, ok := eventSignatures[k]
	if !ok {
		return common.Hash{}
	}
	return Keccak256Hash([]byte(sig))
}

// Keccak256Hash hashes data with legacy Keccak-256.
func Keccak256Hash(data ...[]byte) common.Hash {
	h := sha3.NewLegacyKeccak256()
	for _, b := range data {
		h.Write(b)
	}
	var out common.Hash
	h.Sum(out[:0])
	return out
}

// Event is one ledger log entry. Only the fields relevant to Kind are set:
//
//	Transfer, Approval:   From, To, Amount (Approval: From=owner, To=spender)
//	Mint, Burn:           Account, Amount
//	Blacklisted, UnBlacklisted, Paused, Unpaused: Account
//	FeeRateUpdated:       OldRate, NewRate
//	FeeRecipientUpdated:  From=old, To=new
//	RoleGranted, RoleRevoked: Role, Account, Sender
//	EmergencyRecovered:   Asset, To, Amount
type Event struct {
	Seq         uint64
	Kind        EventKind
	OperationID uuid.UUID
	From        common.Address
	To          common.Address
	Account     common.Address
	Sender      common.Address
	Asset       common.Address
	Amount      *uint256.Int
	Role        Role
	OldRate     uint64
	NewRate     uint64
	Timestamp   time.Time
}

type eventJSON struct {
	Seq         uint64          `json:"seq"`
	Kind        EventKind       `json:"kind"`
	Topic       common.Hash     `json:"topic"`
	OperationID uuid.UUID       `json:"operation_id"`
	From        *common.Address `json:"from,omitempty"`
	To          *common.Address `json:"to,omitempty"`
	Account     *common.Address `json:"account,omitempty"`
	Sender      *common.Address `json:"sender,omitempty"`
	Asset       *common.Address `json:"asset,omitempty"`
	Amount      string          `json:"amount,omitempty"`
	Role        string          `json:"role,omitempty"`
	RoleID      *common.Hash    `json:"role_id,omitempty"`
	OldRate     *uint64         `json:"old_rate_bps,omitempty"`
	NewRate     *uint64         `json:"new_rate_bps,omitempty"`
	Timestamp   time.Time       `json:"timestamp"`
}

// MarshalJSON writes amounts as decimal strings and omits fields the kind does not use.
func (e Event) MarshalJSON() ([]byte, error) {
	out := eventJSON{
		Seq:         e.Seq,
		Kind:        e.Kind,
		Topic:       e.Kind.Topic(),
		OperationID: e.OperationID,
		Timestamp:   e.Timestamp,
	}
	switch e.Kind {
	case EventTransfer, EventApproval, EventFeeRecipientUpdated:
		out.From, out.To = addrPtr(e.From), addrPtr(e.To)
	case EventMint, EventBurn, EventBlacklisted, EventUnBlacklisted, EventPaused, EventUnpaused:
		out.Account = addrPtr(e.Account)
	case EventFeeRateUpdated:
		out.OldRate, out.NewRate = &e.OldRate, &e.NewRate
	case EventRoleGranted, EventRoleRevoked:
		id := e.Role.ID()
		out.Role, out.RoleID = e.Role.String(), &id
		out.Account, out.Sender = addrPtr(e.Account), addrPtr(e.Sender)
	case EventEmergencyRecovered:
		out.Asset, out.To = addrPtr(e.Asset), addrPtr(e.To)
	}
	if e.Amount != nil {
		out.Amount = e.Amount.Dec()
	}
	return json.Marshal(out)
}

// UnmarshalJSON is the inverse of MarshalJSON.
func (e *Event) UnmarshalJSON(data []byte) error {
	var in eventJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	*e = Event{
		Seq:         in.Seq,
		Kind:        in.Kind,
		OperationID: in.OperationID,
		Timestamp:   in.Timestamp,
	}
	e.From, e.To = addrVal(in.From), addrVal(in.To)
	e.Account, e.Sender, e.Asset = addrVal(in.Account), addrVal(in.Sender), addrVal(in.Asset)
	if in.OldRate != nil {
		e.OldRate = *in.OldRate
	}
	if in.NewRate != nil {
		e.NewRate = *in.NewRate
	}
	if in.Role != "" {
		r, err := ParseRole(in.Role)
		if err != nil {
			return err
		}
		e.Role = r
	}
	if in.Amount != "" {
		amt, err := ParseAmount(in.Amount)
		if err != nil {
			return fmt.Errorf("event %d: %w", in.Seq, err)
		}
		e.Amount = amt
	}
	return nil
}

// Receipt is returned by every successful mutating operation.
type Receipt struct {
	OperationID uuid.UUID      `json:"operation_id"`
	Operation   string         `json:"operation"`
	Caller      common.Address `json:"caller"`
	Timestamp   time.Time      `json:"timestamp"`
	Events      []Event        `json:"events"`
}

// EventsOf returns the receipt's events of the given kind.
func (r *Receipt) EventsOf(kind EventKind) []Event {
	var out []Event
	for _, e := range r.Events {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

func addrPtr(a common.Address) *common.Address {
	return &a
}

func addrVal(a *common.Address) common.Address {
	if a == nil {
		return common.Address{}
	}
	return *a
}
