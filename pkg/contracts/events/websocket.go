// Package events contains the WebSocket message contracts pushed to open dashboards.
package events

import (
	"time"

	"cloud.google.com/go/civil"
)

// MessageType defines the type of WebSocket message
type MessageType string

const (
	// MessageTypeDatasetReloaded is sent when the source files changed and the
	// dataset was rebuilt. Clients should refetch their report.
	MessageTypeDatasetReloaded MessageType = "dataset.reloaded"
	// MessageTypeDatasetFailed is sent when a reload attempt failed; the
	// previous dataset stays in service.
	MessageTypeDatasetFailed MessageType = "dataset.failed"

	MessageTypeConnect MessageType = "connect"
	MessageTypeError   MessageType = "error"
)

// BaseMessage represents the base structure for all WebSocket messages
type BaseMessage struct {
	ID        string      `json:"id,omitempty"`
	Type      MessageType `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	TraceID   string      `json:"trace_id,omitempty"`
}

// WebSocketMessage represents a complete WebSocket message
type WebSocketMessage struct {
	BaseMessage
	Data interface{} `json:"data,omitempty"`
}

// DatasetReloaded is the payload of a dataset.reloaded message.
type DatasetReloaded struct {
	Fingerprint         string         `json:"fingerprint"`
	PreviousFingerprint string         `json:"previous_fingerprint,omitempty"`
	Rows                map[string]int `json:"rows"`
	MinDate             *civil.Date    `json:"min_date,omitempty"`
	MaxDate             *civil.Date    `json:"max_date,omitempty"`
}

// DatasetFailed is the payload of a dataset.failed message.
type DatasetFailed struct {
	Error string `json:"error"`
}
