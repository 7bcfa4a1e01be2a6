package events

import (
	"strings"
	"sync"

	"github.com/google/uuid"

	"studyviz-backend/internal/shared/telemetry"
)

const defaultBuffer = 8

// Event is a document status change.
type Event struct {
	DocumentID string `json:"documentId"`
	Status     string `json:"status"`
	Terminal   bool   `json:"terminal"`
	Data       any    `json:"data,omitempty"`
}

// Subscription receives events for a single document.
type Subscription struct {
	ID         string
	DocumentID string
	ch         chan Event
	closed     bool
}

// C returns the receive channel. It is closed by Unsubscribe.
func (s *Subscription) C() <-chan Event {
	return s.ch
}

// Hub fans out document events to subscribers without blocking publishers.
type Hub struct {
	mu     sync.RWMutex
	buffer int
	subs   map[string]map[*Subscription]struct{}
}

// NewHub constructs a Hub.
func NewHub() *Hub {
	return &Hub{
		buffer: defaultBuffer,
		subs:   make(map[string]map[*Subscription]struct{}),
	}
}

// Subscribe registers interest in a document.
func (h *Hub) Subscribe(documentID string) *Subscription {
	sub := &Subscription{
		ID:         uuid.NewString(),
		DocumentID: strings.TrimSpace(documentID),
		ch:         make(chan Event, h.buffer),
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.subs[sub.DocumentID]
	if !ok {
		set = make(map[*Subscription]struct{})
		h.subs[sub.DocumentID] = set
	}
	set[sub] = struct{}{}
	return sub
}

// Unsubscribe removes sub and closes its channel. Calling it twice is a no-op.
func (h *Hub) Unsubscribe(sub *Subscription) {
	if sub == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if sub.closed {
		return
	}
	sub.closed = true
	if set, ok := h.subs[sub.DocumentID]; ok {
		delete(set, sub)
		if len(set) == 0 {
			delete(h.subs, sub.DocumentID)
		}
	}
	close(sub.ch)
}

// Publish delivers ev to every subscriber of its document. Full buffers drop the event.
func (h *Hub) Publish(ev Event) {
	if h == nil || ev.DocumentID == "" {
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for sub := range h.subs[ev.DocumentID] {
		select {
		case sub.ch <- ev:
		default:
			telemetry.Warn("events.dropped", map[string]any{
				"document_id":     ev.DocumentID,
				"subscription_id": sub.ID,
				"status":          ev.Status,
			})
		}
	}
}

// Subscribers returns the number of subscribers for a document.
func (h *Hub) Subscribers(documentID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[documentID])
}
