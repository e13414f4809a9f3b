package events

import (
	"strconv"
	"sync"

	"pickup-service/models"

	"go.uber.org/zap"
)

// Subscriber is one connected dashboard. Events arrive on C; the hub never
// blocks on a subscriber, so a slow consumer misses events rather than
// stalling the publisher. Clients reconcile with a full query, the push
// channel is not the source of truth.
type Subscriber struct {
	ID        string
	ViewerID  string
	Role      string
	marketers map[string]struct{}
	all       bool
	C         chan models.PickupEvent
}

// InScope reports whether the subscriber should receive events for a marketer.
func (s *Subscriber) InScope(marketerID string) bool {
	if s.all {
		return true
	}
	_, ok := s.marketers[marketerID]
	return ok
}

// Hub fans lifecycle events out to subscribed dashboards, scoped by
// hierarchy.
type Hub struct {
	mu     sync.RWMutex
	subs   map[string]*Subscriber
	nextID int
	logger *zap.Logger
}

// NewHub creates an empty Hub.
func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		subs:   make(map[string]*Subscriber),
		logger: logger,
	}
}

const subscriberBuffer = 16

// Subscribe registers a viewer with a resolved visibility scope. Pass
// all=true for roles that see the whole hierarchy.
func (h *Hub) Subscribe(viewerID, role string, marketerIDs []string, all bool) *Subscriber {
	scope := make(map[string]struct{}, len(marketerIDs))
	for _, id := range marketerIDs {
		scope[id] = struct{}{}
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	h.nextID++
	sub := &Subscriber{
		ID:        viewerID + "#" + strconv.Itoa(h.nextID),
		ViewerID:  viewerID,
		Role:      role,
		marketers: scope,
		all:       all,
		C:         make(chan models.PickupEvent, subscriberBuffer),
	}
	h.subs[sub.ID] = sub
	return sub
}

// Unsubscribe removes a subscriber and closes its channel.
func (h *Hub) Unsubscribe(sub *Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.subs[sub.ID]; ok {
		delete(h.subs, sub.ID)
		close(sub.C)
	}
}

// Publish delivers an event to every in-scope subscriber, at most once,
// dropping when a subscriber's buffer is full.
func (h *Hub) Publish(event models.PickupEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, sub := range h.subs {
		if !sub.InScope(event.Pickup.MarketerID) {
			continue
		}
		select {
		case sub.C <- event:
		default:
			if h.logger != nil {
				h.logger.Warn("dropping event for slow subscriber",
					zap.String("subscriber", sub.ID),
					zap.String("event", event.Type),
				)
			}
		}
	}
}

// SubscriberCount returns the number of connected subscribers.
func (h *Hub) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}
