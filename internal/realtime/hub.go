package realtime

import (
	"context"
	"log"
	"sync"

	"biblioteca-mistica/internal/metrics"
)

const defaultBuffer = 64

// Hub fans events out to in-process subscriptions. Each subscription has a
// buffered channel drained by its own goroutine, so delivery order per
// subscription equals publish order. A full buffer drops the event.
type Hub struct {
	mu     sync.RWMutex
	subs   map[uint64]*hubSub
	nextID uint64
	buffer int
}

type hubSub struct {
	id      uint64
	topic   Topic
	events  chan Event
	done    chan struct{}
	once    sync.Once
	hub     *Hub
	handler Handler
}

// NewHub creates a hub. buffer <= 0 uses the default.
func NewHub(buffer int) *Hub {
	if buffer <= 0 {
		buffer = defaultBuffer
	}
	return &Hub{subs: make(map[uint64]*hubSub), buffer: buffer}
}

// Subscribe registers h for the topic until Unsubscribe or ctx is done.
func (h *Hub) Subscribe(ctx context.Context, topic Topic, handler Handler) (Subscription, error) {
	h.mu.Lock()
	h.nextID++
	s := &hubSub{
		id:      h.nextID,
		topic:   topic,
		events:  make(chan Event, h.buffer),
		done:    make(chan struct{}),
		hub:     h,
		handler: handler,
	}
	h.subs[s.id] = s
	total := len(h.subs)
	h.mu.Unlock()

	log.Printf("📡 [Realtime Hub] Subscribed %s (total: %d)", topic.Channel(), total)

	go s.run(ctx)
	return s, nil
}

func (s *hubSub) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			s.Unsubscribe()
			return
		case <-s.done:
			return
		case e := <-s.events:
			s.handler(e)
		}
	}
}

// Unsubscribe stops delivery. Safe to call more than once.
func (s *hubSub) Unsubscribe() {
	s.once.Do(func() {
		s.hub.mu.Lock()
		delete(s.hub.subs, s.id)
		remaining := len(s.hub.subs)
		s.hub.mu.Unlock()
		close(s.done)
		log.Printf("📡 [Realtime Hub] Unsubscribed %s (remaining: %d)", s.topic.Channel(), remaining)
	})
}

// Publish delivers the event to local subscriptions.
func (h *Hub) Publish(_ context.Context, e Event) error {
	h.Deliver(e)
	return nil
}

// Deliver fans an event out to every matching subscription without blocking.
func (h *Hub) Deliver(e Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	delivered := 0
	for _, s := range h.subs {
		if !s.topic.Matches(e) {
			continue
		}
		select {
		case s.events <- e:
			delivered++
		default:
			metrics.RealtimeEventsDropped.Inc()
			log.Printf("⚠️ [Realtime Hub] Subscriber buffer full on %s, dropping %s event", s.topic.Channel(), e.Type)
		}
	}
	if delivered > 0 {
		log.Printf("📡 [Realtime Hub] %s %s → %d subscriber(s)", e.Table, e.Type, delivered)
	}
}

// Count returns the number of live subscriptions.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}
