// Package events is the in-process fanout bus behind the SSE endpoint.
package events

import (
	"encoding/json"
	"log"
	"sync"

	"github.com/google/uuid"
)

// subscriberBuffer bounds each subscriber queue. Slow consumers drop events
// rather than stalling the pipeline.
const subscriberBuffer = 100

// Event is one pipeline or import notification.
type Event struct {
	Type string         `json:"type"`
	Data map[string]any `json:"data"`
}

// JSON renders the event payload for the wire.
func (e Event) JSON() []byte {
	data, err := json.Marshal(e.Data)
	if err != nil {
		return []byte("{}")
	}
	return data
}

// Subscriber receives events on C until Unsubscribe.
type Subscriber struct {
	ID string
	C  chan Event
}

// Bus fans events out to all current subscribers.
type Bus struct {
	mu   sync.Mutex
	subs map[string]*Subscriber
}

// NewBus creates an empty Bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[string]*Subscriber)}
}

// Subscribe registers a new listener.
func (b *Bus) Subscribe() *Subscriber {
	b.mu.Lock()
	defer b.mu.Unlock()

	sub := &Subscriber{
		ID: uuid.New().String(),
		C:  make(chan Event, subscriberBuffer),
	}
	b.subs[sub.ID] = sub
	return sub
}

// Unsubscribe removes a listener and closes its channel.
func (b *Bus) Unsubscribe(sub *Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.subs[sub.ID]; ok {
		delete(b.subs, sub.ID)
		close(sub.C)
	}
}

// Emit delivers an event to every subscriber. Full queues drop the event for
// that subscriber only.
func (b *Bus) Emit(eventType string, data map[string]any) {
	b.mu.Lock()
	defer b.mu.Unlock()

	event := Event{Type: eventType, Data: data}
	for _, sub := range b.subs {
		select {
		case sub.C <- event:
		default:
			log.Printf("⚠️ Dropping event %s for slow subscriber %s", eventType, sub.ID)
		}
	}
}

// SubscriberCount reports how many listeners are attached.
func (b *Bus) SubscriberCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}
