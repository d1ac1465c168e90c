package sqlite

import (
	"context"
	"fmt"
	"strings"

	"github.com/lumenfeed/lumenfeed/internal/services/graph/storage"
)

// AppendEvent appends one event to the read-model feed and returns it with
// its assigned sequence number.
func (t *Tx) AppendEvent(ctx context.Context, evt storage.Event) (storage.Event, error) {
	if err := t.ready(ctx); err != nil {
		return storage.Event{}, err
	}
	if strings.TrimSpace(evt.ID) == "" {
		return storage.Event{}, fmt.Errorf("event id is required")
	}
	if strings.TrimSpace(evt.Type) == "" {
		return storage.Event{}, fmt.Errorf("event type is required")
	}
	if evt.Timestamp.IsZero() {
		return storage.Event{}, fmt.Errorf("event timestamp is required")
	}
	result, err := t.tx.ExecContext(
		ctx,
		`INSERT INTO events (event_id, event_type, payload, timestamp) VALUES (?, ?, ?, ?)`,
		evt.ID,
		evt.Type,
		string(evt.Payload),
		toMillis(evt.Timestamp),
	)
	if err != nil {
		return storage.Event{}, fmt.Errorf("append event: %w", err)
	}
	seq, err := result.LastInsertId()
	if err != nil {
		return storage.Event{}, fmt.Errorf("append event seq: %w", err)
	}
	evt.Seq = seq
	return evt, nil
}

// ListEvents returns up to limit events with sequence numbers greater than
// afterSeq, in append order.
func (t *Tx) ListEvents(ctx context.Context, afterSeq int64, limit int) ([]storage.Event, error) {
	if err := t.ready(ctx); err != nil {
		return nil, err
	}
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be greater than zero")
	}
	rows, err := t.tx.QueryContext(
		ctx,
		`SELECT seq, event_id, event_type, payload, timestamp
		 FROM events
		 WHERE seq > ?
		 ORDER BY seq ASC
		 LIMIT ?`,
		afterSeq,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var events []storage.Event
	for rows.Next() {
		var (
			evt       storage.Event
			payload   string
			timestamp int64
		)
		if err := rows.Scan(&evt.Seq, &evt.ID, &evt.Type, &payload, &timestamp); err != nil {
			return nil, fmt.Errorf("list events: %w", err)
		}
		evt.Payload = []byte(payload)
		evt.Timestamp = fromMillis(timestamp)
		events = append(events, evt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return events, nil
}
