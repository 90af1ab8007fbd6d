package telemetry

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Event represents a container event: a state change, a safety trip, a
// fault, or a loop overrun.
type Event struct {
	ID   int64                  `json:"id,omitempty"`
	Type string                 `json:"type"`
	Data map[string]interface{} `json:"data"`
	TS   time.Time              `json:"ts"`
}

// Subscription is a live feed of events. Events not drained in time are
// dropped rather than blocking the publisher; Dropped reports how many.
type Subscription struct {
	ID     string
	Events <-chan Event

	hub    *Hub
	events chan Event

	mu      sync.Mutex
	closed  bool
	dropped int64
}

// Cancel detaches the subscription and closes its channel.
func (s *Subscription) Cancel() {
	s.hub.unsubscribe(s.ID)
}

// Dropped returns the number of events discarded because the subscriber
// was not draining.
func (s *Subscription) Dropped() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dropped
}

// send delivers an event without blocking. The subscription's own lock
// orders sends against close, so a concurrent Cancel can never close the
// channel out from under an in-flight publish.
func (s *Subscription) send(event Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	select {
	case s.events <- event:
	default:
		s.dropped++
	}
}

func (s *Subscription) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.events)
}

// Hub is the in-process event distributor. Publishing never blocks: slow
// subscribers lose events, and a bounded ring of recent events is kept for
// diagnostics.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[string]*Subscription
	recent      []Event
	capacity    int
	nextID      int64
	stopped     bool
}

// NewHub creates an event hub retaining up to capacity recent events.
func NewHub(capacity int) *Hub {
	if capacity <= 0 {
		capacity = 1
	}
	return &Hub{
		subscribers: make(map[string]*Subscription),
		recent:      make([]Event, 0, capacity),
		capacity:    capacity,
	}
}

// Subscribe registers a new subscriber with a buffered feed.
func (h *Hub) Subscribe() *Subscription {
	sub := &Subscription{
		ID:     uuid.NewString(),
		hub:    h,
		events: make(chan Event, 64),
	}
	sub.Events = sub.events

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.stopped {
		sub.close()
		return sub
	}
	h.subscribers[sub.ID] = sub
	return sub
}

// Publish assigns the event an ID and timestamp, buffers it, and fans it out
// to every subscriber without blocking.
func (h *Hub) Publish(event Event) {
	h.mu.Lock()
	if h.stopped {
		h.mu.Unlock()
		return
	}

	h.nextID++
	event.ID = h.nextID
	if event.TS.IsZero() {
		event.TS = time.Now().UTC()
	}

	if len(h.recent) == h.capacity {
		h.recent = append(h.recent[1:], event)
	} else {
		h.recent = append(h.recent, event)
	}

	subs := make([]*Subscription, 0, len(h.subscribers))
	for _, sub := range h.subscribers {
		subs = append(subs, sub)
	}
	h.mu.Unlock()

	for _, sub := range subs {
		sub.send(event)
	}
}

// Recent returns a copy of the retained event ring, oldest first.
func (h *Hub) Recent() []Event {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]Event, len(h.recent))
	copy(out, h.recent)
	return out
}

// Stop detaches every subscriber and rejects further publishes. Idempotent.
func (h *Hub) Stop() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.stopped {
		return
	}
	h.stopped = true
	for id, sub := range h.subscribers {
		sub.close()
		delete(h.subscribers, id)
	}
}

func (h *Hub) unsubscribe(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if sub, ok := h.subscribers[id]; ok {
		sub.close()
		delete(h.subscribers, id)
	}
}

// SubscriberCount returns the number of attached subscribers.
func (h *Hub) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}
