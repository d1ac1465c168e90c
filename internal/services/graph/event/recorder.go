package event

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lumenfeed/lumenfeed/internal/platform/id"
	"github.com/lumenfeed/lumenfeed/internal/services/graph/storage"
)

// Recorder appends typed events to the read-model feed inside the caller's
// transaction.
type Recorder struct {
	store storage.EventStore
	clock func() time.Time
}

// NewRecorder creates a recorder bound to one transaction's event store.
func NewRecorder(store storage.EventStore, clock func() time.Time) *Recorder {
	if clock == nil {
		clock = time.Now
	}
	return &Recorder{store: store, clock: clock}
}

// Record marshals payload and appends it under the given event type.
func (r *Recorder) Record(ctx context.Context, eventType string, payload any) error {
	if r == nil || r.store == nil {
		return fmt.Errorf("event store is not configured")
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", eventType, err)
	}
	_, err = r.store.AppendEvent(ctx, storage.Event{
		ID:        id.New(),
		Type:      eventType,
		Payload:   raw,
		Timestamp: r.clock().UTC(),
	})
	if err != nil {
		return fmt.Errorf("append %s event: %w", eventType, err)
	}
	return nil
}
