package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/peter-kozarec/barsim/pkg/bus"
	"github.com/peter-kozarec/barsim/pkg/common"
)

const (
	hubComponentName = "feed.hub"

	writeWait      = 5 * time.Second
	sendBufferSize = 256
)

// Envelope is the message every client receives.
type Envelope struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

type client struct {
	conn *websocket.Conn
	send chan []byte
	once sync.Once
}

func (c *client) close() {
	c.once.Do(func() { close(c.send) })
}

// Hub broadcasts bus events to websocket clients. A client whose buffer is full
// or whose connection fails is dropped.
type Hub struct {
	logger   *zap.Logger
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*client]struct{}
}

func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		logger: logger.Named(hubComponentName),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		clients: make(map[*client]struct{}),
	}
}

func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("upgrade failed", zap.String("remote", r.RemoteAddr), zap.Error(err))
		return
	}

	c := &client{conn: conn, send: make(chan []byte, sendBufferSize)}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	total := len(h.clients)
	h.mu.Unlock()
	h.logger.Info("client connected", zap.String("remote", r.RemoteAddr), zap.Int("clients", total))

	go h.write(c)

	// clients never send, reading only detects the disconnect
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			h.drop(c)
			return
		}
	}
}

func (h *Hub) write(c *client) {
	defer func() { _ = c.conn.Close() }()

	for msg := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			h.logger.Debug("write failed", zap.Error(err))
			h.drop(c)
			return
		}
	}
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
}

func (h *Hub) drop(c *client) {
	h.mu.Lock()
	_, ok := h.clients[c]
	delete(h.clients, c)
	total := len(h.clients)
	h.mu.Unlock()

	c.close()
	if ok {
		h.logger.Info("client disconnected", zap.Int("clients", total))
	}
}

func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Broadcast never blocks on a client.
func (h *Hub) Broadcast(eventType string, payload any) error {
	msg, err := json.Marshal(Envelope{Type: eventType, Payload: payload})
	if err != nil {
		return fmt.Errorf("unable to encode %s event: %w", eventType, err)
	}

	h.mu.Lock()
	var slow []*client
	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
			slow = append(slow, c)
		}
	}
	h.mu.Unlock()

	for _, c := range slow {
		h.logger.Warn("dropping slow client")
		h.drop(c)
	}
	return nil
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	clients := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		h.drop(c)
	}
}

func (h *Hub) publish(id bus.EventId, payload any) {
	if err := h.Broadcast(id.String(), payload); err != nil {
		h.logger.Warn("broadcast failed", zap.Error(err))
	}
}

func handler[T any](h *Hub, id bus.EventId) bus.EventHandler[T] {
	return func(_ context.Context, event T) { h.publish(id, event) }
}

// Attach adds the hub after the handlers already registered on router.
func (h *Hub) Attach(router *bus.Router) {
	router.OnBar = bus.MergeHandlers[common.Bar](router.OnBar, handler[common.Bar](h, bus.BarEvent))
	router.OnSignal = bus.MergeHandlers[common.Signal](router.OnSignal, handler[common.Signal](h, bus.SignalEvent))
	router.OnOrderPlaced = bus.MergeHandlers[common.OrderEvent](router.OnOrderPlaced, handler[common.OrderEvent](h, bus.OrderPlacedEvent))
	router.OnOrderFilled = bus.MergeHandlers[common.OrderEvent](router.OnOrderFilled, handler[common.OrderEvent](h, bus.OrderFilledEvent))
	router.OnOrderRejected = bus.MergeHandlers[common.OrderEvent](router.OnOrderRejected, handler[common.OrderEvent](h, bus.OrderRejectedEvent))
	router.OnOrderCancelled = bus.MergeHandlers[common.OrderEvent](router.OnOrderCancelled, handler[common.OrderEvent](h, bus.OrderCancelledEvent))
	router.OnRiskDecision = bus.MergeHandlers[common.RiskDecision](router.OnRiskDecision, handler[common.RiskDecision](h, bus.RiskDecisionEvent))
	router.OnTrade = bus.MergeHandlers[common.TradeRecord](router.OnTrade, handler[common.TradeRecord](h, bus.TradeEvent))
	router.OnEquity = bus.MergeHandlers[common.Equity](router.OnEquity, handler[common.Equity](h, bus.EquityEvent))
}
