// Package events provides a typed, multi-subscriber change notification bus.
// It decouples the watcher from any specific consumer (HTTP event stream,
// CLI, tests).
package events

import (
	"sync"

	"github.com/hyperjump/bunsho/internal/models"
)

// Bus fans ChangeEvents out to all current subscribers. Publish never
// blocks: a subscriber whose channel buffer is full misses the event.
type Bus struct {
	mu   sync.Mutex
	next int
	subs map[int]chan models.ChangeEvent
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[int]chan models.ChangeEvent)}
}

// Subscribe registers a new subscriber with the given channel buffer size
// and returns its channel plus a cancel func. Cancel closes the channel and
// removes the subscription; it is safe to call more than once.
func (b *Bus) Subscribe(buffer int) (<-chan models.ChangeEvent, func()) {
	if buffer <= 0 {
		buffer = 16
	}
	b.mu.Lock()
	id := b.next
	b.next++
	ch := make(chan models.ChangeEvent, buffer)
	b.subs[id] = ch
	b.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			if c, ok := b.subs[id]; ok {
				delete(b.subs, id)
				close(c)
			}
			b.mu.Unlock()
		})
	}
	return ch, cancel
}

// Publish delivers ev to every subscriber without blocking.
func (b *Bus) Publish(ev models.ChangeEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

// SubscriberCount returns the number of active subscribers.
func (b *Bus) SubscriberCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}
