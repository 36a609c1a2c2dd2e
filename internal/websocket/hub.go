package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"banvicdash/internal/infrastructure"
	"banvicdash/pkg/contracts/events"
)

// broadcastBuffer bounds the messages waiting for the run loop.
const broadcastBuffer = 64

var (
	// ErrHubStopped is returned when broadcasting on a stopped hub.
	ErrHubStopped = errors.New("websocket hub stopped")
	// ErrBroadcastFull is returned when the hub cannot keep up with broadcasts.
	ErrBroadcastFull = errors.New("websocket broadcast queue full")
)

type outbound struct {
	messageType events.MessageType
	data        []byte
	traceID     string
}

// Hub maintains the set of active clients and broadcasts messages to them.
type Hub struct {
	clients map[*Client]bool

	broadcast  chan outbound
	register   chan *Client
	unregister chan *Client

	mu      sync.RWMutex
	running bool
	quit    chan struct{}
	done    chan struct{}

	base    *slog.Logger
	logger  *slog.Logger
	metrics *hubMetrics
}

// NewHub creates a new Hub. Call Start before registering clients.
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan outbound, broadcastBuffer),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		quit:       make(chan struct{}),
		done:       make(chan struct{}),
		base:       logger,
		logger:     logger.With(slog.String("component", "websocket.hub")),
		metrics:    newHubMetrics(),
	}
}

// Start runs the hub loop in a new goroutine. It is idempotent.
func (h *Hub) Start() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.running {
		return
	}
	h.running = true
	go h.run()
}

// Stop closes every client and waits for the hub loop to exit.
func (h *Hub) Stop() {
	h.mu.Lock()
	if !h.running {
		h.mu.Unlock()
		return
	}
	h.running = false
	close(h.quit)
	h.mu.Unlock()

	<-h.done
}

// Register adds a client to the hub.
func (h *Hub) Register(c *Client) {
	select {
	case h.register <- c:
	case <-h.quit:
		c.conn.Close()
	}
}

// Unregister removes a client and closes its send channel.
func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.quit:
	}
}

// ClientCount returns the number of registered clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast queues a message for every client. It never blocks.
func (h *Hub) Broadcast(ctx context.Context, messageType events.MessageType, data any) error {
	traceID := infrastructure.GetTraceID(ctx)
	payload, err := encodeMessage(messageType, traceID, data)
	if err != nil {
		return err
	}

	select {
	case <-h.quit:
		return ErrHubStopped
	default:
	}

	select {
	case h.broadcast <- outbound{messageType: messageType, data: payload, traceID: traceID}:
		return nil
	default:
		h.logger.WarnContext(ctx, "broadcast dropped",
			slog.String("type", string(messageType)))
		return ErrBroadcastFull
	}
}

// BroadcastDatasetReloaded tells clients to refetch their report.
func (h *Hub) BroadcastDatasetReloaded(ctx context.Context, payload events.DatasetReloaded) {
	if err := h.Broadcast(ctx, events.MessageTypeDatasetReloaded, payload); err != nil {
		h.logger.DebugContext(ctx, "dataset reload not broadcast", slog.String("error", err.Error()))
	}
}

// BroadcastDatasetFailed tells clients a reload failed and the previous
// dataset is still served.
func (h *Hub) BroadcastDatasetFailed(ctx context.Context, cause error) {
	payload := events.DatasetFailed{Error: cause.Error()}
	if err := h.Broadcast(ctx, events.MessageTypeDatasetFailed, payload); err != nil {
		h.logger.DebugContext(ctx, "dataset failure not broadcast", slog.String("error", err.Error()))
	}
}

func (h *Hub) run() {
	defer close(h.done)

	for {
		select {
		case <-h.quit:
			h.mu.Lock()
			for c := range h.clients {
				delete(h.clients, c)
				close(c.send)
			}
			h.mu.Unlock()
			h.logger.Info("hub stopped")
			return

		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = true
			count := len(h.clients)
			h.mu.Unlock()

			ctx := c.context()
			h.metrics.connected(ctx)
			h.logger.InfoContext(ctx, "client registered",
				slog.String("client_id", c.id),
				slog.String("remote_addr", c.remoteAddr),
				slog.Int("total_clients", count))

			if msg, err := encodeMessage(events.MessageTypeConnect, c.traceID, map[string]string{"client_id": c.id}); err == nil {
				select {
				case c.send <- msg:
				default:
				}
			}

		case c := <-h.unregister:
			h.mu.Lock()
			_, ok := h.clients[c]
			if ok {
				delete(h.clients, c)
				close(c.send)
			}
			count := len(h.clients)
			h.mu.Unlock()

			if ok {
				ctx := c.context()
				h.metrics.disconnected(ctx, c.connectedAt)
				h.logger.InfoContext(ctx, "client unregistered",
					slog.String("client_id", c.id),
					slog.Int("total_clients", count))
			}

		case msg := <-h.broadcast:
			h.deliver(msg)
		}
	}
}

func (h *Hub) deliver(msg outbound) {
	ctx := context.Background()
	if msg.traceID != "" {
		ctx = infrastructure.WithTraceID(ctx, msg.traceID)
	}

	h.mu.Lock()
	sent := 0
	for c := range h.clients {
		select {
		case c.send <- msg.data:
			sent++
		default:
			delete(h.clients, c)
			close(c.send)
			h.metrics.dropped(ctx)
			h.logger.WarnContext(ctx, "client send buffer full, disconnecting",
				slog.String("client_id", c.id))
		}
	}
	h.mu.Unlock()

	h.metrics.sent(ctx, string(msg.messageType), sent)
	h.logger.DebugContext(ctx, "message broadcast",
		slog.String("type", string(msg.messageType)),
		slog.Int("clients", sent))
}

func encodeMessage(messageType events.MessageType, traceID string, data any) ([]byte, error) {
	return json.Marshal(events.WebSocketMessage{
		BaseMessage: events.BaseMessage{
			ID:        uuid.New().String(),
			Type:      messageType,
			Timestamp: time.Now().UTC(),
			TraceID:   traceID,
		},
		Data: data,
	})
}
