// Package events decouples the import pipeline from whatever consumes its
// progress. The engine itself never emits events; services wrap engine
// outcomes into events and hand them to an EventEmitter.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event types emitted by the import pipeline.
const (
	EventBatchCompleted = "import.batch_completed"
	EventImportFinished = "import.finished"
)

// BatchEvent describes one batch-pipeline occurrence. The payload is
// serialized JSON so handlers need no compile-time dependency on the
// producing service.
type BatchEvent struct {
	// ID is a unique identifier for this event
	ID uuid.UUID `json:"id"`

	// Type indicates what happened, e.g. EventBatchCompleted
	Type string `json:"type"`

	// Payload contains the event-specific data serialized as JSON
	Payload json.RawMessage `json:"payload"`

	// CreatedAt is the timestamp when the event was created
	CreatedAt time.Time `json:"created_at"`
}

// UnmarshalPayload decodes the event payload into the provided structure.
func (e *BatchEvent) UnmarshalPayload(v any) error {
	return json.Unmarshal(e.Payload, v)
}

// NewBatchEvent creates a BatchEvent with the specified type and payload.
func NewBatchEvent(eventType string, payload any) (*BatchEvent, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	return &BatchEvent{
		ID:        uuid.New(),
		Type:      eventType,
		Payload:   payloadBytes,
		CreatedAt: time.Now(),
	}, nil
}

// EventHandler defines an interface for components that can handle events.
type EventHandler interface {
	// HandleEvent processes the given event within the provided context.
	HandleEvent(ctx context.Context, event *BatchEvent) error
}

// EventEmitter defines an interface for components that can emit events.
// This allows services to publish events without direct knowledge of
// handlers.
type EventEmitter interface {
	// EmitEvent publishes the given event to all registered handlers.
	EmitEvent(ctx context.Context, event *BatchEvent) error
}
