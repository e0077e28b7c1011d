package pubsub

import (
	"context"
	"testing"
	"time"
)

func TestBroker_SubscribeFunc(t *testing.T) {
	t.Run("delivers synchronously in registration order", func(t *testing.T) {
		b := NewBroker[string]("test")
		defer b.Shutdown()

		var order []string
		b.SubscribeFunc(func(e Event[string]) { order = append(order, "first:"+e.Payload) })
		b.SubscribeFunc(func(e Event[string]) { order = append(order, "second:"+e.Payload) })

		b.Publish("ping", "a")

		if len(order) != 2 {
			t.Fatalf("got %d deliveries, want 2", len(order))
		}
		if order[0] != "first:a" || order[1] != "second:a" {
			t.Errorf("order = %v, want [first:a second:a]", order)
		}
	})

	t.Run("unsubscribe stops delivery and is idempotent", func(t *testing.T) {
		b := NewBroker[int]("test")
		defer b.Shutdown()

		count := 0
		unsub := b.SubscribeFunc(func(Event[int]) { count++ })

		b.Publish("n", 1)
		unsub()
		unsub()
		b.Publish("n", 2)

		if count != 1 {
			t.Errorf("count = %d, want 1", count)
		}
	})

	t.Run("events before subscription are lost", func(t *testing.T) {
		b := NewBroker[int]("test")
		defer b.Shutdown()

		b.Publish("n", 1)

		count := 0
		b.SubscribeFunc(func(Event[int]) { count++ })
		if count != 0 {
			t.Errorf("count = %d, want 0", count)
		}
	})
}

func TestBroker_Subscribe(t *testing.T) {
	t.Run("receives published events", func(t *testing.T) {
		b := NewBroker[string]("test")
		defer b.Shutdown()

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		ch := b.Subscribe(ctx)
		b.Publish("ping", "hello")

		select {
		case e := <-ch:
			if e.Type != "ping" || e.Payload != "hello" {
				t.Errorf("got %v/%q, want ping/hello", e.Type, e.Payload)
			}
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for event")
		}
	})

	t.Run("channel closed on context cancel", func(t *testing.T) {
		b := NewBroker[string]("test")
		defer b.Shutdown()

		ctx, cancel := context.WithCancel(context.Background())
		ch := b.Subscribe(ctx)
		cancel()

		select {
		case _, ok := <-ch:
			if ok {
				t.Error("expected closed channel")
			}
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for close")
		}
	})
}

func TestBroker_Shutdown(t *testing.T) {
	b := NewBroker[int]("test")

	ctx := context.Background()
	ch := b.Subscribe(ctx)

	count := 0
	b.SubscribeFunc(func(Event[int]) { count++ })

	b.Shutdown()

	if !b.IsShutdown() {
		t.Error("IsShutdown() = false after Shutdown")
	}

	// Publishing after shutdown is a no-op.
	b.Publish("n", 1)
	if count != 0 {
		t.Errorf("handler invoked %d times after shutdown, want 0", count)
	}

	select {
	case _, ok := <-ch:
		if ok {
			t.Error("expected closed channel after shutdown")
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for close")
	}

	// Subscribing after shutdown yields a closed channel.
	ch2 := b.Subscribe(ctx)
	if _, ok := <-ch2; ok {
		t.Error("expected closed channel from post-shutdown Subscribe")
	}

	// Double shutdown is safe.
	b.Shutdown()
}
