package realtime

import (
	"fmt"
	"strings"
)

// Filter restricts a topic to rows whose column equals a value.
type Filter struct {
	Column string
	Value  string
}

// ParseFilter parses "column=eq.value". An empty string yields nil.
func ParseFilter(s string) (*Filter, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	col, rest, ok := strings.Cut(s, "=")
	if !ok || col == "" {
		return nil, fmt.Errorf("invalid filter %q", s)
	}
	value, ok := strings.CutPrefix(rest, "eq.")
	if !ok {
		return nil, fmt.Errorf("unsupported filter operator in %q", s)
	}
	return &Filter{Column: col, Value: value}, nil
}

func (f Filter) String() string {
	return f.Column + "=eq." + f.Value
}

// Topic selects events by table, event type and optional filter.
type Topic struct {
	Table  string
	Event  EventType
	Filter *Filter
}

// Matches reports whether the event belongs to the topic.
func (t Topic) Matches(e Event) bool {
	if t.Table != e.Table {
		return false
	}
	if t.Event != "" && t.Event != Any && t.Event != e.Type {
		return false
	}
	if t.Filter == nil {
		return true
	}
	v, ok := e.Field(t.Filter.Column)
	return ok && v == t.Filter.Value
}

// Channel is a stable name for the topic, used in logs.
func (t Topic) Channel() string {
	ev := t.Event
	if ev == "" {
		ev = Any
	}
	name := fmt.Sprintf("realtime:%s:%s", t.Table, ev)
	if t.Filter != nil {
		name += ":" + t.Filter.String()
	}
	return name
}
