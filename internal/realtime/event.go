// Package realtime carries row change events from the store to subscribers.
package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// EventType is the kind of row change.
type EventType string

const (
	Insert EventType = "INSERT"
	Update EventType = "UPDATE"
	Delete EventType = "DELETE"
	Any    EventType = "*"
)

// Event is one committed row change.
type Event struct {
	Table       string          `json:"table"`
	Type        EventType       `json:"type"`
	New         json.RawMessage `json:"new,omitempty"`
	Old         json.RawMessage `json:"old,omitempty"`
	CommittedAt time.Time       `json:"commit_timestamp"`
}

// NewEvent marshals the row images into an Event.
func NewEvent(table string, typ EventType, newRow, oldRow interface{}) (Event, error) {
	e := Event{Table: table, Type: typ, CommittedAt: time.Now().UTC()}
	if newRow != nil {
		b, err := json.Marshal(newRow)
		if err != nil {
			return Event{}, fmt.Errorf("marshal new row: %w", err)
		}
		e.New = b
	}
	if oldRow != nil {
		b, err := json.Marshal(oldRow)
		if err != nil {
			return Event{}, fmt.Errorf("marshal old row: %w", err)
		}
		e.Old = b
	}
	return e, nil
}

// Field returns a column value from the new row, falling back to the old row.
// Strings are returned unquoted, other values as their JSON text.
func (e Event) Field(column string) (string, bool) {
	for _, raw := range []json.RawMessage{e.New, e.Old} {
		if len(raw) == 0 {
			continue
		}
		var row map[string]json.RawMessage
		if err := json.Unmarshal(raw, &row); err != nil {
			continue
		}
		v, ok := row[column]
		if !ok {
			continue
		}
		var s string
		if err := json.Unmarshal(v, &s); err == nil {
			return s, true
		}
		return strings.TrimSpace(string(v)), true
	}
	return "", false
}

// Handler consumes events of one subscription, in publish order.
type Handler func(Event)

// Subscription is a live registration. Unsubscribe is idempotent.
type Subscription interface {
	Unsubscribe()
}

// Subscriber opens subscriptions. The hub, the Redis relay and the HTTP
// stream client all implement it.
type Subscriber interface {
	Subscribe(ctx context.Context, topic Topic, h Handler) (Subscription, error)
}

// Publisher emits committed changes.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}
