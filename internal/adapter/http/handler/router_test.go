package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	redisStore "krwx-ledger/internal/adapter/storage/redis"
	"krwx-ledger/internal/core/domain"
	"krwx-ledger/internal/core/ledger"
	"krwx-ledger/internal/core/ports"
	"krwx-ledger/internal/service"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type apiFixture struct {
	server *httptest.Server
	hub    *StreamHub
	tokens map[string]string
}

// newAPIFixture wires a real ledger, service, event bus and stream hub behind
// the router. alice is the admin holding 1000 tokens, carol the fee
// recipient, fee 50 bps.
func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	return newAPIFixtureWith(t, nil, nil)
}

func newAPIFixtureWith(t *testing.T, idem ports.IdempotencyCache, limits *redisStore.RateLimitStore) *apiFixture {
	t.Helper()
	log := zerolog.Nop()

	hub := NewStreamHub(log)
	bus := service.NewEventBus(log)
	bus.Subscribe(hub)
	ctx, cancel := context.WithCancel(context.Background())
	bus.Start(ctx)

	supply, err := domain.ParseUnits("1000")
	require.NoError(t, err)
	l, err := ledger.New(ledger.Genesis{
		Name:          "KRWX Stablecoin",
		Symbol:        "KRWX",
		Admin:         alice,
		FeeRecipient:  carol,
		InitialSupply: supply,
		FeeRateBps:    50,
	}, ledger.WithPublisher(bus))
	require.NoError(t, err)

	tokenSvc := service.NewJWTTokenService("test-secret", time.Hour, "krwx-ledger")
	tokens := make(map[string]string)
	aliceTok, _, err := tokenSvc.Generate(alice)
	require.NoError(t, err)
	bobTok, _, err := tokenSvc.Generate(bob)
	require.NoError(t, err)
	tokens["alice"], tokens["bob"] = aliceTok, bobTok

	router := SetupRouter(RouterDeps{
		LedgerSvc:      service.NewLedgerService(l, idem, nil, log),
		TokenSvc:       tokenSvc,
		StreamHub:      hub,
		RateLimitStore: limits,
		Logger:         log,
	})
	server := httptest.NewServer(router)

	t.Cleanup(func() {
		server.Close()
		bus.Close()
		cancel()
	})
	return &apiFixture{server: server, hub: hub, tokens: tokens}
}

func (f *apiFixture) do(t *testing.T, method, path, who string, body interface{}) (int, map[string]interface{}) {
	t.Helper()
	return f.doWithHeaders(t, method, path, who, body, nil)
}

func (f *apiFixture) doWithHeaders(t *testing.T, method, path, who string, body interface{}, headers map[string]string) (int, map[string]interface{}) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(buf)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, f.server.URL+path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if who != "" {
		req.Header.Set("Authorization", "Bearer "+f.tokens[who])
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]interface{}
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp.StatusCode, out
}

func formattedBalance(t *testing.T, f *apiFixture, addr string) string {
	t.Helper()
	status, body := f.do(t, http.MethodGet, "/api/v1/accounts/"+addr, "", nil)
	require.Equal(t, http.StatusOK, status)
	data := body["data"].(map[string]interface{})
	return data["balance"].(map[string]interface{})["formatted"].(string)
}

func TestRouter_TransferWithFee(t *testing.T) {
	f := newAPIFixture(t)

	status, body := f.do(t, http.MethodPost, "/api/v1/transfers", "alice", map[string]string{
		"to": bob.Hex(), "amount": "100000000000000000000",
	})
	require.Equal(t, http.StatusCreated, status, body)

	events := body["data"].(map[string]interface{})["events"].([]interface{})
	require.Len(t, events, 2, "principal and fee legs")

	assert.Equal(t, "900", formattedBalance(t, f, alice.Hex()))
	assert.Equal(t, "99.5", formattedBalance(t, f, bob.Hex()))
	assert.Equal(t, "0.5", formattedBalance(t, f, carol.Hex()))

	status, body = f.do(t, http.MethodGet, "/api/v1/ledger", "", nil)
	require.Equal(t, http.StatusOK, status)
	data := body["data"].(map[string]interface{})
	assert.Equal(t, "1000", data["total_supply"].(map[string]interface{})["formatted"])
}

func TestRouter_AuthAndRoles(t *testing.T) {
	f := newAPIFixture(t)

	status, _ := f.do(t, http.MethodPost, "/api/v1/transfers", "", map[string]string{"to": bob.Hex(), "amount": "1"})
	assert.Equal(t, http.StatusUnauthorized, status)

	status, body := f.do(t, http.MethodPost, "/api/v1/admin/mint", "bob", map[string]string{"to": bob.Hex(), "amount": "1"})
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "LED_AUTH_001", body["error_code"])

	status, _ = f.do(t, http.MethodPost, "/api/v1/admin/roles/grant", "alice", map[string]string{"role": "MINTER", "account": bob.Hex()})
	require.Equal(t, http.StatusCreated, status)

	status, _ = f.do(t, http.MethodPost, "/api/v1/admin/mint", "bob", map[string]string{"to": bob.Hex(), "amount": "1000000000000000000"})
	assert.Equal(t, http.StatusCreated, status)
	assert.Equal(t, "1", formattedBalance(t, f, bob.Hex()))

	status, body = f.do(t, http.MethodGet, "/api/v1/accounts/"+bob.Hex(), "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, []interface{}{"MINTER"}, body["data"].(map[string]interface{})["roles"])

	status, body = f.do(t, http.MethodGet, "/api/v1/roles/MINTER", "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.ElementsMatch(t, []interface{}{alice.Hex(), bob.Hex()}, body["data"].(map[string]interface{})["members"])
}

func TestRouter_PauseBlocksTransfers(t *testing.T) {
	f := newAPIFixture(t)

	status, _ := f.do(t, http.MethodPost, "/api/v1/admin/pause", "alice", nil)
	require.Equal(t, http.StatusCreated, status)

	status, body := f.do(t, http.MethodPost, "/api/v1/transfers", "alice", map[string]string{"to": bob.Hex(), "amount": "1"})
	assert.Equal(t, http.StatusServiceUnavailable, status)
	assert.Equal(t, "LED_BIZ_005", body["error_code"])

	status, body = f.do(t, http.MethodPost, "/api/v1/admin/pause", "alice", nil)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "LED_STATE_003", body["error_code"])

	status, _ = f.do(t, http.MethodPost, "/api/v1/admin/unpause", "alice", nil)
	require.Equal(t, http.StatusCreated, status)

	status, _ = f.do(t, http.MethodPost, "/api/v1/transfers", "alice", map[string]string{"to": bob.Hex(), "amount": "1"})
	assert.Equal(t, http.StatusCreated, status)
}

func TestRouter_BatchTransferIsAtomic(t *testing.T) {
	f := newAPIFixture(t)

	status, body := f.do(t, http.MethodPost, "/api/v1/transfers/batch", "alice", map[string]interface{}{
		"recipients": []string{bob.Hex(), "0x0000000000000000000000000000000000000000"},
		"amounts":    []string{"1000000000000000000", "1"},
	})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "LED_VAL_001", body["error_code"])
	assert.Equal(t, "0", formattedBalance(t, f, bob.Hex()))

	status, body = f.do(t, http.MethodPost, "/api/v1/transfers/batch", "alice", map[string]interface{}{
		"recipients": []string{},
		"amounts":    []string{},
	})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "LED_VAL_004", body["error_code"])
}

func TestRouter_MirrorRoutesDisabled(t *testing.T) {
	f := newAPIFixture(t)

	status, _ := f.do(t, http.MethodGet, "/api/v1/events", "", nil)
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = f.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, status)
}

func TestRouter_EventStream(t *testing.T) {
	f := newAPIFixture(t)

	wsURL := "ws" + strings.TrimPrefix(f.server.URL, "http") + "/api/v1/events/stream?kinds=Mint,Burn"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return f.hub.Clients() == 1 }, 2*time.Second, 10*time.Millisecond)

	status, _ := f.do(t, http.MethodPost, "/api/v1/admin/mint", "alice", map[string]string{"to": bob.Hex(), "amount": "42"})
	require.Equal(t, http.StatusCreated, status)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)

	var ev domain.Event
	require.NoError(t, json.Unmarshal(msg, &ev))
	assert.Equal(t, domain.EventMint, ev.Kind, "Transfer(0x0, to) is filtered out")
	assert.Equal(t, bob, ev.Account)
	assert.Equal(t, "42", ev.Amount.Dec())

	conn.Close()
	assert.Eventually(t, func() bool { return f.hub.Clients() == 0 }, 2*time.Second, 10*time.Millisecond)
}
