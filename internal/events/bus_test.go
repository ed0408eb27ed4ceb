package events

import (
	"sync"
	"testing"
)

func TestHandlersSeeEventsInOrder(t *testing.T) {
	bus := NewEventBus(64)

	var mu sync.Mutex
	var got []EventType
	record := func(e Event) {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, e.Type)
	}
	bus.Subscribe(EventTypeAttemptStarted, record)
	bus.Subscribe(EventTypePathSelected, record)
	bus.Subscribe(EventTypeAttemptRestarted, record)

	want := []EventType{EventTypeAttemptStarted, EventTypePathSelected, EventTypeAttemptRestarted}
	for i := 0; i < 10; i++ {
		bus.PublishAsync(NewAttemptStartedEvent("s", i, "ESCORT_PATH_A"))
		bus.PublishAsync(NewPathSelectedEvent("s", i, 2, "ESCORT_PATH_A_2", 12.5))
		bus.Publish(NewAttemptRestartedEvent("s", i, "marker_not_found", i+1))
	}
	bus.Stop()

	if len(got) != 30 {
		t.Fatalf("got %d events, want 30", len(got))
	}
	for i, typ := range got {
		if typ != want[i%3] {
			t.Fatalf("event %d = %s, want %s", i, typ, want[i%3])
		}
	}
}

func TestUnsubscribeAndPanics(t *testing.T) {
	bus := NewEventBus(8)

	calls := 0
	seen := make(chan struct{}, 2)
	id := bus.Subscribe(EventTypeError, func(Event) { calls++ })
	bus.Subscribe(EventTypeError, func(Event) {
		seen <- struct{}{}
		panic("boom")
	})
	if bus.GetSubscriberCount(EventTypeError) != 2 {
		t.Fatalf("expected 2 subscribers")
	}

	bus.Publish(Event{Type: EventTypeError})
	<-seen
	bus.Unsubscribe(id)
	bus.Publish(Event{Type: EventTypeError})
	bus.Stop()
	bus.Stop()

	if calls != 1 {
		t.Errorf("handler called %d times, want 1", calls)
	}
	// Publishing after Stop is dropped rather than blocking
	bus.Publish(Event{Type: EventTypeError})
	bus.PublishAsync(Event{Type: EventTypeError})
}

func TestPublishAsyncDropsWhenFull(t *testing.T) {
	bus := NewEventBus(1)
	block := make(chan struct{})
	started := make(chan struct{})
	var once sync.Once
	bus.Subscribe(EventTypeError, func(Event) {
		once.Do(func() { close(started) })
		<-block
	})

	bus.Publish(Event{Type: EventTypeError})
	<-started
	bus.PublishAsync(Event{Type: EventTypeError}) // fills the queue
	bus.PublishAsync(Event{Type: EventTypeError}) // dropped
	close(block)
	bus.Stop()

	if bus.Dropped() != 1 {
		t.Errorf("Dropped = %d, want 1", bus.Dropped())
	}
}
