// Package events fans orchestrator events out to observers such as the
// event log. Publishing never blocks the control loop.
package events

import (
	"slices"
	"sync"
	"sync/atomic"

	"github.com/jscyril/chiptune_player/api"
)

// DefaultBuffer is the channel capacity of each subscription
const DefaultBuffer = 32

type subscription struct {
	ch    chan api.AudioEvent
	types []api.EventType
}

func (s *subscription) wants(t api.EventType) bool {
	return slices.Contains(s.types, t)
}

// EventBus delivers events to buffered subscriber channels
type EventBus struct {
	mu      sync.RWMutex
	subs    []*subscription
	buffer  int
	closed  bool
	dropped atomic.Uint64
}

// NewEventBus creates a bus with DefaultBuffer sized subscriptions
func NewEventBus() *EventBus {
	return NewEventBusSize(DefaultBuffer)
}

// NewEventBusSize creates a bus whose subscriptions buffer n events
func NewEventBusSize(n int) *EventBus {
	if n < 1 {
		n = 1
	}
	return &EventBus{buffer: n}
}

// Subscribe returns a channel receiving the given event types, or every
// type when none are given. On a closed bus the channel is already closed.
func (b *EventBus) Subscribe(types ...api.EventType) <-chan api.AudioEvent {
	if len(types) == 0 {
		types = api.AllEventTypes()
	}
	sub := &subscription{ch: make(chan api.AudioEvent, b.buffer), types: slices.Clone(types)}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		close(sub.ch)
		return sub.ch
	}
	b.subs = append(b.subs, sub)
	return sub.ch
}

// SubscribeAll returns a channel receiving every event type
func (b *EventBus) SubscribeAll() <-chan api.AudioEvent {
	return b.Subscribe()
}

// Publish hands event to every interested subscriber. A subscriber whose
// buffer is full misses the event and the drop is counted.
func (b *EventBus) Publish(event api.AudioEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, sub := range b.subs {
		if !sub.wants(event.Type) {
			continue
		}
		select {
		case sub.ch <- event:
		default:
			b.dropped.Add(1)
		}
	}
}

// Dropped returns how many deliveries were skipped because a subscriber
// was full
func (b *EventBus) Dropped() uint64 {
	return b.dropped.Load()
}

// Unsubscribe removes and closes a subscriber channel
func (b *EventBus) Unsubscribe(ch <-chan api.AudioEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.subs = slices.DeleteFunc(b.subs, func(sub *subscription) bool {
		if sub.ch == ch {
			close(sub.ch)
			return true
		}
		return false
	})
}

// Close closes all subscriber channels. Later publishes are no-ops.
func (b *EventBus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	for _, sub := range b.subs {
		close(sub.ch)
	}
	b.subs = nil
}
