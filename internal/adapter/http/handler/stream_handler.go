package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"krwx-ledger/internal/core/domain"
	"krwx-ledger/internal/core/ports"
	"krwx-ledger/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	streamClientBuffer = 256
	writeWait          = 10 * time.Second
	pongWait           = 60 * time.Second
	pingPeriod         = (pongWait * 9) / 10
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

type streamClient struct {
	send  chan []byte
	kinds map[domain.EventKind]bool // empty means all
}

func (sc *streamClient) wants(kind domain.EventKind) bool {
	return len(sc.kinds) == 0 || sc.kinds[kind]
}

// StreamHub fans committed events out to websocket clients. It is an event
// bus subscriber; a client whose buffer is full is disconnected rather than
// slowing the bus down.
type StreamHub struct {
	mu      sync.Mutex
	clients map[*streamClient]struct{}
	log     zerolog.Logger
}

func NewStreamHub(log zerolog.Logger) *StreamHub {
	return &StreamHub{
		clients: make(map[*streamClient]struct{}),
		log:     logger.Component(log, "ws-stream"),
	}
}

func (h *StreamHub) Name() string { return "websocket-stream" }

// Handle broadcasts e to every interested client.
func (h *StreamHub) Handle(_ context.Context, e domain.Event) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for cl := range h.clients {
		if !cl.wants(e.Kind) {
			continue
		}
		select {
		case cl.send <- payload:
		default:
			h.log.Warn().Uint64("seq", e.Seq).Msg("stream client too slow, dropping")
			h.removeLocked(cl)
		}
	}
	return nil
}

// Clients returns the number of connected clients.
func (h *StreamHub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *StreamHub) add(cl *streamClient) {
	h.mu.Lock()
	h.clients[cl] = struct{}{}
	h.mu.Unlock()
}

func (h *StreamHub) remove(cl *streamClient) {
	h.mu.Lock()
	h.removeLocked(cl)
	h.mu.Unlock()
}

func (h *StreamHub) removeLocked(cl *streamClient) {
	if _, ok := h.clients[cl]; ok {
		delete(h.clients, cl)
		close(cl.send)
	}
}

// Serve handles GET /api/v1/events/stream. The optional kinds query
// parameter is a comma-separated list of event kinds to receive.
func (h *StreamHub) Serve(c *gin.Context) {
	kinds := make(map[domain.EventKind]bool)
	if q := c.Query("kinds"); q != "" {
		for _, k := range strings.Split(q, ",") {
			kinds[domain.EventKind(strings.TrimSpace(k))] = true
		}
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Debug().Err(err).Msg("websocket upgrade failed")
		return
	}

	cl := &streamClient{send: make(chan []byte, streamClientBuffer), kinds: kinds}
	h.add(cl)
	h.log.Debug().Str("client_ip", c.ClientIP()).Msg("stream client connected")

	go h.readPump(conn, cl)
	h.writePump(conn, cl)
}

// readPump discards client messages and detects disconnects.
func (h *StreamHub) readPump(conn *websocket.Conn, cl *streamClient) {
	defer h.remove(cl)
	conn.SetReadLimit(512)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *StreamHub) writePump(conn *websocket.Conn, cl *streamClient) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case msg, ok := <-cl.send:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				h.remove(cl)
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				h.remove(cl)
				return
			}
		}
	}
}

var _ ports.EventSubscriber = (*StreamHub)(nil)
