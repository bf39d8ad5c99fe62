package shutterdeck

import (
	"sync"

	"github.com/google/uuid"

	"github.com/shutterdeck/go-client-sdk/api"
)

// EventHub shares one EventStream between many independent subscribers.
type EventHub struct {
	mu          sync.RWMutex
	order       []string
	subscribers map[string]EventHandlers
}

func NewEventHub() *EventHub {
	return &EventHub{subscribers: make(map[string]EventHandlers)}
}

// Subscribe registers handlers and returns a function that removes them.
// The returned function is safe to call more than once.
func (h *EventHub) Subscribe(handlers EventHandlers) (unsubscribe func()) {
	id := uuid.New().String()
	h.mu.Lock()
	h.subscribers[id] = handlers
	h.order = append(h.order, id)
	h.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { h.remove(id) })
	}
}

func (h *EventHub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.order)
}

func (h *EventHub) remove(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.subscribers, id)
	for i, existing := range h.order {
		if existing == id {
			h.order = append(h.order[:i], h.order[i+1:]...)
			break
		}
	}
}

func (h *EventHub) snapshot() []EventHandlers {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]EventHandlers, 0, len(h.order))
	for _, id := range h.order {
		out = append(out, h.subscribers[id])
	}
	return out
}

func (h *EventHub) each(pick func(EventHandlers) func(api.Envelope)) func(api.Envelope) {
	return func(envelope api.Envelope) {
		for _, subscriber := range h.snapshot() {
			if fn := pick(subscriber); fn != nil {
				fn(envelope)
			}
		}
	}
}

// Handlers returns an EventHandlers that broadcasts every callback to the
// current subscribers, in subscription order.
func (h *EventHub) Handlers() EventHandlers {
	return EventHandlers{
		OnPhotoEvent:      h.each(func(s EventHandlers) func(api.Envelope) { return s.OnPhotoEvent }),
		OnCollectionEvent: h.each(func(s EventHandlers) func(api.Envelope) { return s.OnCollectionEvent }),
		OnClientEvent:     h.each(func(s EventHandlers) func(api.Envelope) { return s.OnClientEvent }),
		OnGuestEvent:      h.each(func(s EventHandlers) func(api.Envelope) { return s.OnGuestEvent }),
		OnConnected: func() {
			for _, subscriber := range h.snapshot() {
				if subscriber.OnConnected != nil {
					subscriber.OnConnected()
				}
			}
		},
		OnError: func(err error) {
			for _, subscriber := range h.snapshot() {
				if subscriber.OnError != nil {
					subscriber.OnError(err)
				}
			}
		},
	}
}
