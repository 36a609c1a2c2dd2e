package websocket

import (
	"context"
	"time"

	"banvicdash/pkg/contracts/events"
)

// Connection is the part of a gorilla connection the hub needs, so clients
// can run against a fake in tests.
type Connection interface {
	WriteMessage(messageType int, data []byte) error
	ReadMessage() (messageType int, p []byte, err error)
	Close() error
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	SetReadLimit(limit int64)
	SetPongHandler(h func(string) error)
	RemoteAddr() string
}

// Notifier pushes dataset lifecycle events to open dashboards.
type Notifier interface {
	BroadcastDatasetReloaded(ctx context.Context, payload events.DatasetReloaded)
	BroadcastDatasetFailed(ctx context.Context, err error)
}

var _ Notifier = (*Hub)(nil)
