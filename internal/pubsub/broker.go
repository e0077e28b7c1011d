package pubsub

import (
	"context"
	"sync"
	"time"
)

// DefaultBufferSize is the default channel buffer for channel subscribers.
const DefaultBufferSize = 64

// BrokerOption configures a Broker.
type BrokerOption[T any] func(*Broker[T])

// WithBufferSize sets the channel buffer size for channel subscribers.
func WithBufferSize[T any](size int) BrokerOption[T] {
	return func(b *Broker[T]) {
		b.bufferSize = size
	}
}

// Broker is a typed broadcast broker. Events published before a subscriber
// registers are lost; there is no persistence.
//
// Handler subscribers (SubscribeFunc) are invoked synchronously from Publish,
// in registration order. Channel subscribers (Subscribe) receive events on a
// buffered channel and are dropped-on-full so a slow consumer never blocks a
// publisher.
type Broker[T any] struct {
	name       string
	subs       map[chan Event[T]]struct{}
	handlers   []*handlerEntry[T]
	nextID     int
	mu         sync.RWMutex
	done       chan struct{}
	bufferSize int
}

type handlerEntry[T any] struct {
	id int
	fn Handler[T]
}

// NewBroker creates a new typed broker.
func NewBroker[T any](name string, opts ...BrokerOption[T]) *Broker[T] {
	b := &Broker[T]{
		name:       name,
		subs:       make(map[chan Event[T]]struct{}),
		done:       make(chan struct{}),
		bufferSize: DefaultBufferSize,
	}

	for _, opt := range opts {
		opt(b)
	}

	return b
}

// Name returns the broker's name for debugging.
func (b *Broker[T]) Name() string {
	return b.name
}

// SubscribeFunc registers a handler invoked synchronously on every Publish
// until the returned unsubscribe func is called. Unsubscribe is idempotent.
func (b *Broker[T]) SubscribeFunc(fn Handler[T]) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	entry := &handlerEntry[T]{id: b.nextID, fn: fn}
	b.nextID++
	b.handlers = append(b.handlers, entry)

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		for i, h := range b.handlers {
			if h.id == entry.id {
				b.handlers = append(b.handlers[:i], b.handlers[i+1:]...)
				return
			}
		}
	}
}

// Subscribe creates a channel subscription that receives events until the
// context is cancelled. The channel is closed when the context is done or the
// broker shuts down.
func (b *Broker[T]) Subscribe(ctx context.Context) <-chan Event[T] {
	b.mu.Lock()
	defer b.mu.Unlock()

	select {
	case <-b.done:
		ch := make(chan Event[T])
		close(ch)
		return ch
	default:
	}

	sub := make(chan Event[T], b.bufferSize)
	b.subs[sub] = struct{}{}

	go func() {
		select {
		case <-ctx.Done():
		case <-b.done:
		}

		b.mu.Lock()
		defer b.mu.Unlock()

		if _, ok := b.subs[sub]; !ok {
			return
		}
		delete(b.subs, sub)
		close(sub)
	}()

	return sub
}

// Publish delivers an event to every current subscriber. Handler subscribers
// run synchronously in registration order; channel subscribers that are full
// have the event dropped.
func (b *Broker[T]) Publish(eventType EventType, payload T) {
	b.mu.RLock()

	select {
	case <-b.done:
		b.mu.RUnlock()
		return
	default:
	}

	handlers := make([]*handlerEntry[T], len(b.handlers))
	copy(handlers, b.handlers)

	channels := make([]chan Event[T], 0, len(b.subs))
	for sub := range b.subs {
		channels = append(channels, sub)
	}
	b.mu.RUnlock()

	event := Event[T]{
		Type:      eventType,
		Payload:   payload,
		Timestamp: time.Now(),
	}

	for _, h := range handlers {
		h.fn(event)
	}

	for _, sub := range channels {
		select {
		case sub <- event:
		default:
		}
	}
}

// Shutdown closes all channel subscriptions and drops all handlers.
func (b *Broker[T]) Shutdown() {
	select {
	case <-b.done:
		return
	default:
		close(b.done)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	for ch := range b.subs {
		delete(b.subs, ch)
		close(ch)
	}
	b.handlers = nil
}

// IsShutdown returns true if the broker has been shut down.
func (b *Broker[T]) IsShutdown() bool {
	select {
	case <-b.done:
		return true
	default:
		return false
	}
}

// SubscriberCount returns the current number of subscribers of both kinds.
func (b *Broker[T]) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs) + len(b.handlers)
}
