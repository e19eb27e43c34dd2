package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Type identifies what an event is about.
type Type string

// Known event types.
const (
	// TypeSyncStatus carries a SyncStatusPayload whenever the orchestrator's
	// last-sync time, pending count, or in-progress flag changes.
	TypeSyncStatus Type = "sync_status"

	// TypeConnectivity carries a ConnectivityPayload on online/offline
	// transitions.
	TypeConnectivity Type = "connectivity"

	// TypeUpdateAvailable fires when a newer cache version installed while
	// a previous one is still activated.
	TypeUpdateAvailable Type = "update_available"

	// TypeRestartRequired fires after a waiting cache version is forced
	// active; the host environment must restart to pick it up.
	TypeRestartRequired Type = "restart_required"
)

// SyncStatusPayload is the body of a TypeSyncStatus event.
type SyncStatusPayload struct {
	LastSyncTime   *time.Time `json:"last_sync_time"`
	PendingActions int        `json:"pending_actions"`
	SyncInProgress bool       `json:"sync_in_progress"`
}

// ConnectivityPayload is the body of a TypeConnectivity event.
type ConnectivityPayload struct {
	Online bool `json:"online"`
}

// UpdatePayload is the body of TypeUpdateAvailable and TypeRestartRequired
// events.
type UpdatePayload struct {
	Version string `json:"version"`
}

// Event is a single lifecycle or status-change notification. The payload is
// serialized JSON so handlers stay decoupled from the emitting package.
type Event struct {
	// ID is a unique identifier for this event
	ID uuid.UUID `json:"id"`

	// Type indicates what the event is about
	Type Type `json:"type"`

	// Payload contains the event-specific data serialized as JSON
	Payload json.RawMessage `json:"payload"`

	// CreatedAt is the timestamp when the event was created
	CreatedAt time.Time `json:"created_at"`
}

// UnmarshalPayload decodes the event payload into the provided structure.
func (e *Event) UnmarshalPayload(v interface{}) error {
	return json.Unmarshal(e.Payload, v)
}

// New creates an Event with the specified type and payload.
func New(eventType Type, payload interface{}) (*Event, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	return &Event{
		ID:        uuid.New(),
		Type:      eventType,
		Payload:   payloadBytes,
		CreatedAt: time.Now(),
	}, nil
}

// Handler defines an interface for components that can handle events.
type Handler interface {
	// HandleEvent processes the given event within the provided context.
	// Returns an error if the event cannot be handled successfully.
	HandleEvent(ctx context.Context, event *Event) error
}

// HandlerFunc adapts a plain function to the Handler interface.
type HandlerFunc func(ctx context.Context, event *Event) error

// HandleEvent implements Handler.
func (f HandlerFunc) HandleEvent(ctx context.Context, event *Event) error {
	return f(ctx, event)
}

// Emitter defines an interface for components that can emit events.
// This allows services to publish events without direct knowledge of handlers.
type Emitter interface {
	// Emit publishes the given event to all registered handlers.
	// Returns an error if the event cannot be emitted.
	Emit(ctx context.Context, event *Event) error
}
