// Package pubsub provides a type-safe in-process broadcast broker.
package pubsub

import (
	"context"
	"time"
)

// EventType names the kind of event carried by a broker.
type EventType string

// Event is a typed event with metadata.
type Event[T any] struct {
	Type      EventType
	Payload   T
	Timestamp time.Time
}

// Handler receives events delivered synchronously by Publish.
type Handler[T any] func(Event[T])

// Publisher is the interface for publishing events.
type Publisher[T any] interface {
	Publish(EventType, T)
}

// Subscriber is the interface for subscribing to events.
type Subscriber[T any] interface {
	Subscribe(context.Context) <-chan Event[T]
	SubscribeFunc(Handler[T]) (unsubscribe func())
}

// PubSub combines Publisher and Subscriber.
type PubSub[T any] interface {
	Publisher[T]
	Subscriber[T]
}
