package domain

import (
	"encoding/json"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAddress(t *testing.T) {
	addr, err := ParseAddress("0x1111111111111111111111111111111111111111")
	require.NoError(t, err)
	assert.False(t, IsZero(addr))

	_, err = ParseAddress("0x123")
	assert.Error(t, err)

	zero, err := ParseAddress("0x0000000000000000000000000000000000000000")
	require.NoError(t, err)
	assert.True(t, IsZero(zero))
}

func TestParseUnits(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"1", "1000000000000000000", false},
		{"1.5", "1500000000000000000", false},
		{"0.000000000000000001", "1", false},
		{"0.0000000000000000001", "", true},
		{"-1", "", true},
		{"abc", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			v, err := ParseUnits(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, v.Dec())
		})
	}
}

func TestFormatUnits(t *testing.T) {
	v, err := ParseAmount("995000000000000000000")
	require.NoError(t, err)
	assert.Equal(t, "995", FormatUnits(v))
	assert.Equal(t, "0.000000000000000001", FormatUnits(uint256.NewInt(1)))
	assert.Equal(t, "0", FormatUnits(nil))
}

func TestParseAmount(t *testing.T) {
	_, err := ParseAmount("")
	assert.Error(t, err)
	_, err = ParseAmount("-5")
	assert.Error(t, err)
	_, err = ParseAmount("1.5")
	assert.Error(t, err)

	v, err := ParseAmount(MaxAmount.Dec())
	require.NoError(t, err)
	assert.True(t, v.Eq(MaxAmount))
}

func TestRole(t *testing.T) {
	assert.Equal(t, common.Hash{}, RoleAdmin.ID())
	// keccak256("MINTER_ROLE")
	assert.Equal(t,
		"0x9f2df0fed2c77648de5860a4cc508cd0818c85b8b8a1ab4ceeef8d981c8956a6",
		RoleMinter.ID().Hex())

	for _, in := range []string{"minter", "MINTER", "minter_role"} {
		r, err := ParseRole(in)
		require.NoError(t, err, in)
		assert.Equal(t, RoleMinter, r)
	}
	_, err := ParseRole("owner")
	assert.Error(t, err)
	assert.False(t, Role(9).Valid())
}

func TestEventTopic(t *testing.T) {
	// keccak256("Transfer(address,address,uint256)")
	assert.Equal(t,
		"0xddf252ad1be2c89b69c2b068fc378daa952ba7f163c4a11628f55a4df523b3ef",
		EventTransfer.Topic().Hex())
	assert.Equal(t, common.Hash{}, EventKind("Nope").Topic())
}

func TestEvent_JSON(t *testing.T) {
	amount, err := ParseUnits("12.5")
	require.NoError(t, err)

	in := Event{
		Seq:         42,
		Kind:        EventTransfer,
		OperationID: uuid.New(),
		From:        common.HexToAddress("0x1111111111111111111111111111111111111111"),
		To:          common.HexToAddress("0x2222222222222222222222222222222222222222"),
		Amount:      amount,
	}

	data, err := json.Marshal(in)
	require.NoError(t, err)

	var raw map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, "12500000000000000000", raw["amount"])
	assert.Equal(t, EventTransfer.Topic().Hex(), raw["topic"])
	assert.NotContains(t, raw, "account")

	var out Event
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, in.Seq, out.Seq)
	assert.Equal(t, in.From, out.From)
	assert.Equal(t, in.To, out.To)
	assert.True(t, in.Amount.Eq(out.Amount))
}

func TestEvent_JSONRoleEvent(t *testing.T) {
	in := Event{
		Kind:    EventRoleGranted,
		Role:    RolePauser,
		Account: common.HexToAddress("0x3333333333333333333333333333333333333333"),
		Sender:  common.HexToAddress("0x1111111111111111111111111111111111111111"),
	}
	data, err := json.Marshal(in)
	require.NoError(t, err)

	var raw map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, "PAUSER", raw["role"])
	assert.Equal(t, RolePauser.ID().Hex(), raw["role_id"])

	var out Event
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, RolePauser, out.Role)
	assert.Equal(t, in.Account, out.Account)
	assert.Nil(t, out.Amount)
}

func TestReceipt_EventsOf(t *testing.T) {
	r := &Receipt{Events: []Event{
		{Kind: EventTransfer}, {Kind: EventMint}, {Kind: EventTransfer},
	}}
	assert.Len(t, r.EventsOf(EventTransfer), 2)
	assert.Len(t, r.EventsOf(EventBurn), 0)
}
