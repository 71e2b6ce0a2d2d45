package events

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// Event is a delivered occurrence with its typed payload.
type Event struct {
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Source    string    `json:"source"`
	Data      EventData `json:"data"`
}

// Handler receives events for a subscribed type.
type Handler func(Event)

// Subscription is a registered handler for one event type. Unsubscribing
// detaches it: once Unsubscribe returns, no further event invokes the handler.
type Subscription struct {
	id       uint64
	kind     EventType
	handler  Handler
	bus      *Bus
	detached atomic.Bool
}

// Unsubscribe detaches the subscription from the bus.
// Safe to call more than once.
func (s *Subscription) Unsubscribe() {
	s.detached.Store(true)
	s.bus.remove(s)
}

// Bus is a synchronous publish/subscribe dispatcher. Handlers run on the
// emitting goroutine, so delivery order matches emit order.
type Bus struct {
	mu     sync.Mutex
	nextID uint64
	subs   map[EventType][]*Subscription
	log    zerolog.Logger
}

// NewBus creates an event bus.
func NewBus(log zerolog.Logger) *Bus {
	return &Bus{
		subs: make(map[EventType][]*Subscription),
		log:  log.With().Str("component", "event_bus").Logger(),
	}
}

// Subscribe registers a handler for the given event type.
func (b *Bus) Subscribe(kind EventType, handler Handler) *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	sub := &Subscription{
		id:      b.nextID,
		kind:    kind,
		handler: handler,
		bus:     b,
	}
	b.subs[kind] = append(b.subs[kind], sub)
	return sub
}

// Emit delivers an event to every live subscription for data's event type.
func (b *Bus) Emit(source string, data EventData) {
	if data == nil {
		return
	}
	kind := data.EventType()

	b.mu.Lock()
	targets := make([]*Subscription, len(b.subs[kind]))
	copy(targets, b.subs[kind])
	b.mu.Unlock()

	event := Event{
		Type:      kind,
		Timestamp: time.Now(),
		Source:    source,
		Data:      data,
	}

	for _, sub := range targets {
		if sub.detached.Load() {
			continue
		}
		sub.handler(event)
	}

	b.log.Trace().Str("type", string(kind)).Str("source", source).Int("handlers", len(targets)).Msg("Event emitted")
}

// remove drops the subscription from the registration list.
func (b *Bus) remove(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	list := b.subs[sub.kind]
	for i, s := range list {
		if s.id == sub.id {
			b.subs[sub.kind] = append(list[:i], list[i+1:]...)
			return
		}
	}
}
