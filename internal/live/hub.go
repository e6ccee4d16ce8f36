// Package live fans committed ride changes out to open subscriptions.
//
// A subscription sees the latest state, not every intermediate one: each
// subscriber has a one-slot mailbox and a newer event replaces an unread
// older one, so a slow reader never blocks a publisher.
package live

import (
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/pkordes/campusride/internal/domain"
	"github.com/pkordes/campusride/internal/metrics"
)

// EventType says what happened to the ride.
type EventType string

const (
	EventUpdated EventType = "updated"
	EventDeleted EventType = "deleted"
)

// Event is one change delivered to subscribers. Ride is nil for deletions.
type Event struct {
	Type   EventType
	RideID uuid.UUID
	Ride   *domain.Ride
}

// Hub routes events to subscribers by topic.
type Hub struct {
	mu      sync.Mutex
	topics  map[string]map[*subscriber]struct{}
	metrics *metrics.Metrics
}

type subscriber struct {
	ch chan Event
}

// NewHub returns an empty Hub. m may be nil.
func NewHub(m *metrics.Metrics) *Hub {
	return &Hub{topics: make(map[string]map[*subscriber]struct{}), metrics: m}
}

// RideTopic names the topic a ride's events are published on.
func RideTopic(groupID string, rideID uuid.UUID) string {
	return fmt.Sprintf("groups/%s/rides/%s", groupID, rideID)
}

// Subscribe registers interest in topic. The returned channel is closed by
// the unsubscribe func, which must be called exactly when the caller is done;
// calling it more than once is harmless.
func (h *Hub) Subscribe(topic string) (<-chan Event, func()) {
	sub := &subscriber{ch: make(chan Event, 1)}

	h.mu.Lock()
	subs, ok := h.topics[topic]
	if !ok {
		subs = make(map[*subscriber]struct{})
		h.topics[topic] = subs
	}
	subs[sub] = struct{}{}
	h.mu.Unlock()
	h.gauge(1)

	var once sync.Once
	return sub.ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.topics[topic], sub)
			if len(h.topics[topic]) == 0 {
				delete(h.topics, topic)
			}
			close(sub.ch)
			h.mu.Unlock()
			h.gauge(-1)
		})
	}
}

// Publish delivers ev to every subscriber of topic, replacing any event a
// subscriber has not read yet.
func (h *Hub) Publish(topic string, ev Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for sub := range h.topics[topic] {
		select {
		case <-sub.ch:
		default:
		}
		sub.ch <- ev
	}
}

// Subscribers returns the number of subscribers on topic.
func (h *Hub) Subscribers(topic string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.topics[topic])
}

// RideChanged publishes the new state of a ride.
func (h *Hub) RideChanged(ride domain.Ride) {
	h.Publish(RideTopic(ride.GroupID, ride.ID), Event{Type: EventUpdated, RideID: ride.ID, Ride: &ride})
}

// RideDeleted tells subscribers the ride is gone.
func (h *Hub) RideDeleted(groupID string, rideID uuid.UUID) {
	h.Publish(RideTopic(groupID, rideID), Event{Type: EventDeleted, RideID: rideID})
}

func (h *Hub) gauge(delta float64) {
	if h.metrics != nil {
		h.metrics.LiveSubscribers.Add(delta)
	}
}
