// Package notify carries change signals from the write path to live query
// subscriptions. Topics are plain strings; payloads are not needed because
// watchers re-fetch full snapshots on every signal.
package notify

import (
	"context"
	"sync"
)

// Handler receives the topic of a published change
type Handler func(topic string)

// Bus fans change topics out to subscribers
type Bus interface {
	Publish(ctx context.Context, topic string) error
	Subscribe(h Handler) (cancel func())
	Close() error
}

// LocalBus is a single-process Bus
type LocalBus struct {
	mu   sync.RWMutex
	subs map[int]Handler
	next int
}

// NewLocalBus creates a new in-process bus
func NewLocalBus() *LocalBus {
	return &LocalBus{subs: make(map[int]Handler)}
}

func (b *LocalBus) Publish(ctx context.Context, topic string) error {
	b.mu.RLock()
	handlers := make([]Handler, 0, len(b.subs))
	for _, h := range b.subs {
		handlers = append(handlers, h)
	}
	b.mu.RUnlock()

	for _, h := range handlers {
		h(topic)
	}
	return nil
}

func (b *LocalBus) Subscribe(h Handler) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.next
	b.next++
	b.subs[id] = h

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.subs, id)
	}
}

func (b *LocalBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs = make(map[int]Handler)
	return nil
}
