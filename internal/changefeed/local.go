package changefeed

import (
	"context"
	"sync"
)

// LocalBus fans events out to in-process subscribers. It is used when no
// NATS server is configured and in tests.
type LocalBus struct {
	mu       sync.RWMutex
	next     int
	handlers map[int]func(Event)
	closed   bool
}

func NewLocalBus() *LocalBus {
	return &LocalBus{handlers: make(map[int]func(Event))}
}

func (b *LocalBus) Publish(ctx context.Context, ev Event) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return ErrClosed
	}
	for _, handler := range b.handlers {
		handler(ev)
	}
	return nil
}

func (b *LocalBus) Subscribe(handler func(Event)) (func(), error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, ErrClosed
	}
	id := b.next
	b.next++
	b.handlers[id] = handler

	return func() {
		b.mu.Lock()
		delete(b.handlers, id)
		b.mu.Unlock()
	}, nil
}

func (b *LocalBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	b.handlers = make(map[int]func(Event))
	return nil
}
