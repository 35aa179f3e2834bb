package orchestrator

import "sync"

// Event is one server-sent notification addressed to a user.
type Event struct {
	Event string    `json:"event"`
	Data  EventData `json:"data"`
}

type EventData struct {
	EntityName string `json:"entity_name"`
	Status     string `json:"status"`
}

// TaskCompleted is the event emitted when a handler finishes.
func TaskCompleted(entityName string) Event {
	return Event{
		Event: "taskStatus",
		Data:  EventData{EntityName: entityName, Status: "COMPLETED"},
	}
}

// Hub fans events out to per-user subscribers. Slow subscribers drop
// events rather than block the publisher; the UI refetches on
// reconnect.
type Hub struct {
	mu   sync.Mutex
	subs map[string]map[chan Event]struct{}
}

func NewHub() *Hub {
	return &Hub{subs: map[string]map[chan Event]struct{}{}}
}

// Subscribe registers a listener for one user's events. The returned
// cancel function must be called when the listener goes away.
func (h *Hub) Subscribe(userSub string) (<-chan Event, func()) {
	ch := make(chan Event, 16)

	h.mu.Lock()
	if h.subs[userSub] == nil {
		h.subs[userSub] = map[chan Event]struct{}{}
	}
	h.subs[userSub][ch] = struct{}{}
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if set, ok := h.subs[userSub]; ok {
			delete(set, ch)
			if len(set) == 0 {
				delete(h.subs, userSub)
			}
		}
	}
	return ch, cancel
}

// Publish delivers an event to every subscriber of one user.
func (h *Hub) Publish(userSub string, event Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs[userSub] {
		select {
		case ch <- event:
		default:
		}
	}
}
