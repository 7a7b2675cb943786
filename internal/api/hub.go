package api

import (
	"encoding/json"
	"log"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"revora-ledger/internal/domain"
	"revora-ledger/internal/observability"
)

// EventHub fans committed events out to WebSocket subscribers. It
// implements the core executor's Publisher; Publish never blocks the
// operation path: a subscriber that cannot keep up is dropped.
type EventHub struct {
	logger *log.Logger

	mu      sync.Mutex
	clients map[*hubClient]struct{}
	closed  bool

	upgrader websocket.Upgrader
}

// hubClient is one subscriber connection with its outbound queue.
type hubClient struct {
	conn *websocket.Conn
	send chan []byte
}

const (
	// clientBuffer absorbs bursts; a full buffer drops the client.
	clientBuffer = 256

	writeTimeout = 10 * time.Second
	pingInterval = 30 * time.Second
	pongTimeout  = 60 * time.Second
)

// NewEventHub creates an empty hub.
func NewEventHub(logger *log.Logger) *EventHub {
	if logger == nil {
		logger = log.New(os.Stdout, "[events] ", log.LstdFlags)
	}
	return &EventHub{
		logger:  logger,
		clients: make(map[*hubClient]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Read-only feed, no browser credentials involved.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// Publish broadcasts one event to every subscriber. Called by the core
// with its operation lock held, so it must not block.
func (h *EventHub) Publish(e *domain.Event) {
	payload, err := json.Marshal(eventMessage(e))
	if err != nil {
		h.logger.Printf("marshal event seq=%d: %v", e.Seq, err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- payload:
		default:
			// Slow consumer: drop it rather than stall the feed.
			h.dropLocked(c)
		}
	}
}

// ServeHTTP upgrades the request and streams events until the client
// disconnects.
func (h *EventHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Printf("upgrade: %v", err)
		return
	}

	c := &hubClient{conn: conn, send: make(chan []byte, clientBuffer)}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		conn.Close()
		return
	}
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()
	observability.DefaultMetrics.WSClients.Set(float64(n))

	go h.writeLoop(c)
	h.readLoop(c)
}

// Clients returns the current subscriber count.
func (h *EventHub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close disconnects every subscriber and rejects new ones.
func (h *EventHub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for c := range h.clients {
		h.dropLocked(c)
	}
}

// writeLoop drains the client queue and keeps the connection alive with
// pings.
func (h *EventHub) writeLoop(c *hubClient) {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-c.send:
			if !ok {
				c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
				c.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				h.remove(c)
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				h.remove(c)
				return
			}
		}
	}
}

// readLoop discards inbound frames; it exists to notice disconnects and
// answer pings. The feed is one-way.
func (h *EventHub) readLoop(c *hubClient) {
	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(pongTimeout))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongTimeout))
		return nil
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			h.remove(c)
			return
		}
	}
}

func (h *EventHub) remove(c *hubClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		h.dropLocked(c)
	}
}

// dropLocked detaches a client under h.mu. The write loop sees the closed
// send channel and finishes the handshake.
func (h *EventHub) dropLocked(c *hubClient) {
	delete(h.clients, c)
	close(c.send)
	observability.DefaultMetrics.WSClients.Set(float64(len(h.clients)))
}
