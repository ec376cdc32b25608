package httpapi

import (
	"context"
	"encoding/json"
	"time"

	"github.com/fitiq/fitiq/internal/contract"
	"github.com/fitiq/fitiq/internal/logging"
	"github.com/fitiq/fitiq/internal/server/models"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBuffer     = 32
)

type push struct {
	userID  string
	msgType string
	payload []byte
}

// Hub fans push messages out to the notification sockets of each user. All
// client bookkeeping happens on the Run goroutine.
type Hub struct {
	logger  logging.Logger
	metrics *Metrics

	clients    map[string]map[*wsClient]struct{}
	register   chan *wsClient
	unregister chan *wsClient
	broadcast  chan push
	done       chan struct{}
}

type wsClient struct {
	hub    *Hub
	conn   *websocket.Conn
	userID string
	send   chan []byte
}

func NewHub(logger logging.Logger, metrics *Metrics) *Hub {
	return &Hub{
		logger:     logger,
		metrics:    metrics,
		clients:    make(map[string]map[*wsClient]struct{}),
		register:   make(chan *wsClient),
		unregister: make(chan *wsClient),
		broadcast:  make(chan push, 64),
		done:       make(chan struct{}),
	}
}

// Run serves the hub until ctx is done, then closes every connection.
func (h *Hub) Run(ctx context.Context) error {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			for _, set := range h.clients {
				for c := range set {
					h.drop(c)
				}
			}
			return nil
		case c := <-h.register:
			set, ok := h.clients[c.userID]
			if !ok {
				set = make(map[*wsClient]struct{})
				h.clients[c.userID] = set
			}
			set[c] = struct{}{}
			h.metrics.wsClients.Inc()
		case c := <-h.unregister:
			if _, ok := h.clients[c.userID][c]; ok {
				h.drop(c)
			}
		case p := <-h.broadcast:
			h.deliver(p)
		}
	}
}

func (h *Hub) drop(c *wsClient) {
	set := h.clients[c.userID]
	delete(set, c)
	if len(set) == 0 {
		delete(h.clients, c.userID)
	}
	close(c.send)
	h.metrics.wsClients.Dec()
}

// deliver drops clients whose send buffer is full.
func (h *Hub) deliver(p push) {
	for c := range h.clients[p.userID] {
		select {
		case c.send <- p.payload:
			h.metrics.pushed.WithLabelValues(p.msgType).Inc()
		default:
			h.drop(c)
		}
	}
}

// PublishMealLog pushes the finished meal log to its owner. It never blocks
// past ctx or a stopped hub.
func (h *Hub) PublishMealLog(ctx context.Context, m *models.MealLog) {
	msgType := contract.PushMealLogCompleted
	if m.Status == models.MealLogFailed {
		msgType = contract.PushMealLogFailed
	}
	data, err := json.Marshal(mealLogDTO(m))
	if err != nil {
		h.logger.Error(ctx, "encode meal log push", "error", err)
		return
	}
	payload, err := json.Marshal(contract.PushMessage{Type: msgType, Data: data})
	if err != nil {
		h.logger.Error(ctx, "encode push message", "error", err)
		return
	}
	select {
	case h.broadcast <- push{userID: m.UserID, msgType: msgType, payload: payload}:
	case <-h.done:
	case <-ctx.Done():
	}
}

// attach registers conn for userID and runs its pumps until the connection
// closes or the hub stops.
func (h *Hub) attach(conn *websocket.Conn, userID string) {
	c := &wsClient{hub: h, conn: conn, userID: userID, send: make(chan []byte, sendBuffer)}
	select {
	case h.register <- c:
	case <-h.done:
		_ = conn.Close()
		return
	}
	go c.writePump()
	c.readPump()
}

// readPump discards client frames; it exists to process pongs and notice
// disconnects.
func (c *wsClient) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *wsClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
