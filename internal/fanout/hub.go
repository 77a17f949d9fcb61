// Package fanout delivers state-change notifications to the live connections
// of a user. Delivery is best-effort and at-most-once: there is no queue, no
// persistence, and no redelivery. The ledger database remains the single
// source of truth; clients reconstruct state by re-fetching after reconnect.
package fanout

import "sync"

// Event names consumed by the UI and the browser extension.
const (
	EventRewardUpdate = "reward:update"
	EventPetReact     = "pet:react"
	EventIdleAlert    = "idle:alert"
)

// Reaction kinds carried by pet:react events.
const (
	ReactTaskComplete    = "taskComplete"
	ReactSessionComplete = "sessionComplete"
)

// RewardUpdate is the payload of a reward:update event.
type RewardUpdate struct {
	CurrencyDelta int `json:"currencyDelta"`
}

// PetReact is the payload of a pet:react event.
type PetReact struct {
	Kind      string `json:"kind"`
	SubjectID string `json:"subjectId"`
}

// IdleAlert is the payload of an idle:alert event.
type IdleAlert struct {
	Kind    string `json:"kind"`
	Context string `json:"context"`
}

// Event is one notification addressed to all live connections of a user.
type Event struct {
	Name    string `json:"event"`
	Payload any    `json:"payload"`
}

// Publisher is the write side of the hub, all the services need.
type Publisher interface {
	Publish(userID string, ev Event)
}

// subscriberBuffer bounds each connection's pending events. A connection
// that cannot drain in time silently loses events rather than blocking
// request handlers.
const subscriberBuffer = 16

// Subscriber is one live connection's receive handle.
type Subscriber struct {
	ch chan Event
}

// Events returns the channel this subscriber receives on. The channel is
// closed on Unsubscribe.
func (s *Subscriber) Events() <-chan Event {
	return s.ch
}

// Hub is a process-wide registry mapping a user identity to the set of its
// currently-connected subscribers (multiple tabs/devices per user).
type Hub struct {
	mu   sync.RWMutex
	subs map[string]map[*Subscriber]struct{}
}

// NewHub creates an empty Hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[string]map[*Subscriber]struct{})}
}

// Subscribe joins a new connection to the user's group.
func (h *Hub) Subscribe(userID string) *Subscriber {
	sub := &Subscriber{ch: make(chan Event, subscriberBuffer)}
	h.mu.Lock()
	defer h.mu.Unlock()
	group := h.subs[userID]
	if group == nil {
		group = make(map[*Subscriber]struct{})
		h.subs[userID] = group
	}
	group[sub] = struct{}{}
	return sub
}

// Unsubscribe removes the connection from its group and closes its channel.
// The write lock guarantees no Publish is mid-send when the channel closes.
func (h *Hub) Unsubscribe(userID string, sub *Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	group, ok := h.subs[userID]
	if !ok {
		return
	}
	if _, member := group[sub]; !member {
		return
	}
	delete(group, sub)
	if len(group) == 0 {
		delete(h.subs, userID)
	}
	close(sub.ch)
}

// Publish delivers ev to every connection currently in the user's group.
// An empty group drops the event. A subscriber with a full buffer is
// skipped; per-subscriber ordering follows publish order otherwise.
func (h *Hub) Publish(userID string, ev Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for sub := range h.subs[userID] {
		select {
		case sub.ch <- ev:
		default:
		}
	}
}

// Connections reports the number of live connections for a user.
func (h *Hub) Connections(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[userID])
}

// NoopPublisher drops every event; used in tests and batch tooling.
type NoopPublisher struct{}

func (NoopPublisher) Publish(string, Event) {}
