package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"ticketflow/internal/models"

	"github.com/coder/websocket"
	"github.com/sirupsen/logrus"
)

const writeTimeout = 5 * time.Second

// Event is one realtime notification pushed to connected UI clients.
type Event struct {
	Type    string      `json:"type"` // "ticket" or "message"
	Action  string      `json:"action"`
	Payload interface{} `json:"payload"`
}

// Hub fans realtime events out to websocket subscribers. Slow subscribers
// are dropped rather than allowed to stall the broadcast path.
type Hub struct {
	logger *logrus.Logger

	mu    sync.Mutex
	conns map[*websocket.Conn]context.CancelFunc
}

func NewHub(logger *logrus.Logger) *Hub {
	return &Hub{
		logger: logger,
		conns:  make(map[*websocket.Conn]context.CancelFunc),
	}
}

// ServeHTTP upgrades the request and registers the connection until the
// client goes away.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		h.logger.WithError(err).Warn("Websocket accept failed")
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	h.mu.Lock()
	h.conns[conn] = cancel
	h.mu.Unlock()

	h.logger.Debug("Realtime subscriber connected")

	// The hub only writes; CloseRead surfaces client disconnects.
	readCtx := conn.CloseRead(ctx)
	<-readCtx.Done()

	h.remove(conn)
	_ = conn.Close(websocket.StatusNormalClosure, "")
}

// Broadcast sends the event to every subscriber. Failed writes evict the
// subscriber.
func (h *Hub) Broadcast(event Event) {
	data, err := json.Marshal(event)
	if err != nil {
		h.logger.WithError(err).Error("Failed to marshal realtime event")
		return
	}

	h.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(h.conns))
	for conn := range h.conns {
		conns = append(conns, conn)
	}
	h.mu.Unlock()

	for _, conn := range conns {
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		err := conn.Write(ctx, websocket.MessageText, data)
		cancel()
		if err != nil {
			h.logger.WithError(err).Debug("Evicting slow realtime subscriber")
			h.remove(conn)
			_ = conn.Close(websocket.StatusPolicyViolation, "write timeout")
		}
	}
}

// EmitTicket implements the ticket lifecycle notifier contract.
func (h *Hub) EmitTicket(action string, ticket *models.Ticket) {
	h.Broadcast(Event{Type: "ticket", Action: action, Payload: ticket})
}

// EmitMessage implements the message lifecycle notifier contract.
func (h *Hub) EmitMessage(action string, projection *models.MessageProjection) {
	h.Broadcast(Event{Type: "message", Action: action, Payload: projection})
}

// Close drops all subscribers; used on shutdown.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn, cancel := range h.conns {
		cancel()
		_ = conn.Close(websocket.StatusGoingAway, "server shutting down")
		delete(h.conns, conn)
	}
}

func (h *Hub) remove(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if cancel, ok := h.conns[conn]; ok {
		cancel()
		delete(h.conns, conn)
	}
}
