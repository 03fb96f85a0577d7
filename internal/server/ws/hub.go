// Package ws streams newly detected opportunities to WebSocket clients.
package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tonmev/tonmev/internal/domain"
)

const (
	// writeWait is the maximum time to wait for a write to complete.
	writeWait = 10 * time.Second

	// pongWait is the maximum time to wait for a pong from the client.
	pongWait = 60 * time.Second

	// pingPeriod sends pings at this interval. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// maxMessageSize bounds incoming control frames from clients.
	maxMessageSize = 4096

	// sendBufferSize is the per-client buffer of outgoing messages.
	sendBufferSize = 256
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Origin policy is enforced by the CORS middleware upstream.
		return true
	},
}

// client is a single WebSocket connection with an optional strategy filter.
type client struct {
	hub        *Hub
	conn       *websocket.Conn
	send       chan []byte
	mu         sync.RWMutex
	strategies map[string]bool // empty means all strategies
}

// filterMsg is the JSON message a client sends to narrow the stream to a
// subset of strategies. An empty list resets to all.
type filterMsg struct {
	Action     string   `json:"action"` // "filter"
	Strategies []string `json:"strategies"`
}

// opportunityEvent is the envelope pushed for each detected opportunity.
type opportunityEvent struct {
	Type    string             `json:"type"`
	Payload domain.Opportunity `json:"payload"`
}

// statusEvent is the envelope pushed once on connect.
type statusEvent struct {
	Type    string        `json:"type"`
	Payload statusPayload `json:"payload"`
}

type statusPayload struct {
	Mode          string   `json:"mode"`
	Strategies    []string `json:"strategies"`
	UptimeSeconds int64    `json:"uptime_seconds"`
}

// Hub fans newly detected opportunities out to connected WebSocket clients.
// It is fed by the strategy manager's subscriber callback via Broadcast.
type Hub struct {
	clients    map[*client]bool
	broadcast  chan domain.Opportunity
	register   chan *client
	unregister chan *client
	mu         sync.RWMutex
	logger     *slog.Logger
	mode       string
	strategies []string
	startedAt  time.Time
}

// Config carries runtime metadata reported in the connect-time status event.
type Config struct {
	Mode       string
	Strategies []string
}

// NewHub creates a Hub. Call Run in a goroutine, then wire Broadcast as a
// subscriber on the strategy manager.
func NewHub(cfg Config, logger *slog.Logger) *Hub {
	mode := cfg.Mode
	if mode == "" {
		mode = "unknown"
	}
	return &Hub{
		clients:    make(map[*client]bool),
		broadcast:  make(chan domain.Opportunity, 256),
		register:   make(chan *client),
		unregister: make(chan *client),
		logger:     logger.With(slog.String("component", "ws")),
		mode:       mode,
		strategies: cfg.Strategies,
		startedAt:  time.Now().UTC(),
	}
}

// Broadcast queues opportunities for delivery to connected clients. It never
// blocks the caller; when the hub's queue is full the oldest pending events
// are at risk of delay, not the detection path.
func (h *Hub) Broadcast(opps []domain.Opportunity) {
	for _, opp := range opps {
		select {
		case h.broadcast <- opp:
		default:
			h.logger.Warn("broadcast queue full, dropping opportunity",
				slog.String("id", opp.ID),
			)
		}
	}
}

// Run drives the hub's event loop until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for c := range h.clients {
				close(c.send)
				delete(h.clients, c)
			}
			h.mu.Unlock()
			return ctx.Err()

		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = true
			h.mu.Unlock()
			h.logger.Info("client connected", slog.Int("total_clients", h.clientCount()))

		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
			h.mu.Unlock()
			h.logger.Info("client disconnected", slog.Int("total_clients", h.clientCount()))

		case opp := <-h.broadcast:
			data, err := json.Marshal(opportunityEvent{Type: "opportunity", Payload: opp})
			if err != nil {
				h.logger.Error("marshal opportunity", slog.String("error", err.Error()))
				continue
			}
			h.mu.RLock()
			for c := range h.clients {
				if !c.wants(opp.Strategy) {
					continue
				}
				select {
				case c.send <- data:
				default:
					h.logger.Warn("dropping message for slow client")
				}
			}
			h.mu.RUnlock()
		}
	}
}

// HandleWS upgrades the request and registers the client.
// GET /ws
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("upgrade failed", slog.String("error", err.Error()))
		return
	}

	c := &client{
		hub:        h,
		conn:       conn,
		send:       make(chan []byte, sendBufferSize),
		strategies: make(map[string]bool),
	}

	h.register <- c
	c.sendStatus()

	go c.writePump()
	go c.readPump()
}

func (h *Hub) clientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// wants reports whether the client's filter admits the strategy. An empty
// filter admits everything.
func (c *client) wants(strategy string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if len(c.strategies) == 0 {
		return true
	}
	return c.strategies[strategy]
}

// readPump consumes client frames, applying strategy filter requests.
func (c *client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Warn("unexpected close", slog.String("error", err.Error()))
			}
			return
		}

		var f filterMsg
		if err := json.Unmarshal(message, &f); err == nil && f.Action == "filter" {
			c.setFilter(f.Strategies)
		}
	}
}

func (c *client) setFilter(strategies []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.strategies = make(map[string]bool, len(strategies))
	for _, s := range strategies {
		c.strategies[s] = true
	}
}

// sendStatus pushes a connect-time envelope so clients can mark the stream
// healthy before the first opportunity arrives.
func (c *client) sendStatus() {
	uptime := int64(time.Since(c.hub.startedAt).Seconds())
	if uptime < 0 {
		uptime = 0
	}
	data, err := json.Marshal(statusEvent{
		Type: "status",
		Payload: statusPayload{
			Mode:          c.hub.mode,
			Strategies:    c.hub.strategies,
			UptimeSeconds: uptime,
		},
	})
	if err != nil {
		return
	}
	select {
	case c.send <- data:
	default:
	}
}

// writePump writes queued events as JSON text frames and keeps the
// connection alive with periodic pings.
func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
