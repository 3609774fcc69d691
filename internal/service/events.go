package service

import (
	"sync"

	"pcax/internal/domain"
)

const subscriberBuffer = 64

// Broadcaster fans progress events out to any number of subscribers.
// Publishing never blocks: a subscriber that cannot keep up loses events.
type Broadcaster struct {
	mu   sync.Mutex
	subs map[int]chan domain.ProgressEvent
	next int
}

// NewBroadcaster creates an empty broadcaster.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{subs: make(map[int]chan domain.ProgressEvent)}
}

// Subscribe registers a new listener. The returned cancel function must be
// called when the listener is done; it closes the channel.
func (b *Broadcaster) Subscribe() (<-chan domain.ProgressEvent, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.next
	b.next++
	ch := make(chan domain.ProgressEvent, subscriberBuffer)
	b.subs[id] = ch

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if sub, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(sub)
		}
	}
	return ch, cancel
}

// Publish delivers an event to every subscriber without blocking.
func (b *Broadcaster) Publish(ev domain.ProgressEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, ch := range b.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}
