package notify

import (
	"context"
	"testing"
)

func TestLocalBusPublish(t *testing.T) {
	bus := NewLocalBus()

	var got []string
	cancel := bus.Subscribe(func(topic string) {
		got = append(got, topic)
	})
	defer cancel()

	if err := bus.Publish(context.Background(), "post.abc"); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}
	if err := bus.Publish(context.Background(), "posts.kind.article"); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	if len(got) != 2 {
		t.Fatalf("Expected 2 deliveries, got %d", len(got))
	}
	if got[0] != "post.abc" || got[1] != "posts.kind.article" {
		t.Errorf("Unexpected topics: %v", got)
	}
}

func TestLocalBusCancel(t *testing.T) {
	bus := NewLocalBus()

	count := 0
	cancel := bus.Subscribe(func(string) { count++ })

	_ = bus.Publish(context.Background(), "a")
	cancel()
	_ = bus.Publish(context.Background(), "b")

	if count != 1 {
		t.Errorf("Expected 1 delivery after cancel, got %d", count)
	}

	// Cancelling twice must be harmless
	cancel()
}

func TestLocalBusMultipleSubscribers(t *testing.T) {
	bus := NewLocalBus()

	a, b := 0, 0
	cancelA := bus.Subscribe(func(string) { a++ })
	cancelB := bus.Subscribe(func(string) { b++ })
	defer cancelA()
	defer cancelB()

	_ = bus.Publish(context.Background(), "t")

	if a != 1 || b != 1 {
		t.Errorf("Expected both subscribers to receive, got a=%d b=%d", a, b)
	}
}
