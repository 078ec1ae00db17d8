package notifications

import (
	"testing"
	"time"
)

// TestHubPublishSubscribe проверяет доставку событий подписчику.
func TestHubPublishSubscribe(t *testing.T) {
	hub := NewHub()

	ch, unsubscribe := hub.Subscribe(42)
	defer unsubscribe()

	hub.Publish(42, Event{Type: EventStorageUpdated, Data: map[string]string{"key": "tasks"}})
	hub.Publish(7, Event{Type: "foreign"})

	select {
	case event := <-ch:
		if event.Type != EventStorageUpdated {
			t.Fatalf("expected event type %s, got %s", EventStorageUpdated, event.Type)
		}
		if event.Timestamp.IsZero() {
			t.Fatal("expected timestamp to be set")
		}
	case <-time.After(500 * time.Millisecond):
		t.Fatal("expected event to be delivered")
	}

	select {
	case event := <-ch:
		t.Fatalf("unexpected event %s for another user", event.Type)
	default:
	}
}

// TestHubUnsubscribe проверяет закрытие канала после отписки.
func TestHubUnsubscribe(t *testing.T) {
	hub := NewHub()

	ch, unsubscribe := hub.Subscribe(42)
	unsubscribe()
	unsubscribe()

	if _, ok := <-ch; ok {
		t.Fatal("expected channel to be closed")
	}
	if n := hub.Subscribers(42); n != 0 {
		t.Fatalf("expected no subscribers, got %d", n)
	}
}

// TestHubSlowSubscriber проверяет, что Publish не блокируется на полном буфере.
func TestHubSlowSubscriber(t *testing.T) {
	hub := NewHub()
	_, unsubscribe := hub.Subscribe(42)
	defer unsubscribe()

	done := make(chan struct{})
	go func() {
		for i := 0; i < subscriberBuffer*3; i++ {
			hub.Publish(42, Event{Type: "tick"})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a slow subscriber")
	}
}
