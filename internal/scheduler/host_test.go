package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"jordanella.com/escort-bot/internal/events"
)

type recordingBus struct {
	mu     sync.Mutex
	events []events.Event
}

func (b *recordingBus) Subscribe(events.EventType, events.EventHandler) events.SubscriptionID {
	return 0
}
func (b *recordingBus) Unsubscribe(events.SubscriptionID) {}
func (b *recordingBus) Publish(e events.Event) { b.PublishAsync(e) }
func (b *recordingBus) Stop() {}

func (b *recordingBus) PublishAsync(e events.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, e)
}

func (b *recordingBus) count(t events.EventType) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, e := range b.events {
		if e.Type == t {
			n++
		}
	}
	return n
}

func waitDone(t *testing.T, ch <-chan struct{}) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatal("task did not finish")
	}
}

func TestRegisterValidation(t *testing.T) {
	h := NewHost(context.Background())
	noop := func(context.Context) error { return nil }

	tests := []struct {
		name string
		spec TaskSpec
	}{
		{"empty name", TaskSpec{Run: noop}},
		{"nil run", TaskSpec{Name: "a"}},
		{"trigger without interval", TaskSpec{Name: "b", Kind: Trigger, Run: noop}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := h.Register(tt.spec); err == nil {
				t.Error("expected registration error")
			}
		})
	}

	if err := h.Register(TaskSpec{Name: "ok", Run: noop}); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if err := h.Register(TaskSpec{Name: "ok", Run: noop}); err == nil {
		t.Error("expected duplicate registration error")
	}
}

func TestTriggerTaskEnableDisable(t *testing.T) {
	var ticks int32
	var cause atomic.Value

	bus := &recordingBus{}
	h := NewHost(context.Background()).WithEventBus(bus)
	err := h.Register(TaskSpec{
		Name:     "puzzle",
		Kind:     Trigger,
		Interval: 2 * time.Millisecond,
		Run: func(ctx context.Context) error {
			atomic.AddInt32(&ticks, 1)
			go func() {
				<-ctx.Done()
				cause.Store(context.Cause(ctx))
			}()
			return nil
		},
		Enabled: true,
	})
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if err := h.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer h.Stop()

	deadline := time.Now().Add(2 * time.Second)
	for atomic.LoadInt32(&ticks) < 3 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if !h.IsEnabled("puzzle") {
		t.Fatal("expected task enabled")
	}

	if err := h.Disable("puzzle"); err != nil {
		t.Fatalf("Disable failed: %v", err)
	}
	waitDone(t, h.Done("puzzle"))
	if h.IsEnabled("puzzle") {
		t.Error("expected task disabled")
	}

	stopped := atomic.LoadInt32(&ticks)
	time.Sleep(10 * time.Millisecond)
	if atomic.LoadInt32(&ticks) != stopped {
		t.Error("task kept running after Disable")
	}

	time.Sleep(5 * time.Millisecond)
	if c, _ := cause.Load().(error); !errors.Is(c, ErrTaskDisabled) {
		t.Errorf("cancel cause = %v, want ErrTaskDisabled", c)
	}

	if bus.count(events.EventTypeTaskEnabled) != 1 || bus.count(events.EventTypeTaskDisabled) != 1 {
		t.Errorf("unexpected events %+v", bus.events)
	}
	if stats := h.GetMetrics("puzzle").GetStats(); stats.SuccessCount < 2 {
		t.Errorf("expected at least 2 recorded runs, got %+v", stats)
	}
}

func TestOneTimeTaskFailureDisables(t *testing.T) {
	bus := &recordingBus{}
	h := NewHost(context.Background()).WithEventBus(bus)
	_ = h.Register(TaskSpec{
		Name: "escort",
		Run:  func(context.Context) error { return errors.New("window lost") },
	})
	if err := h.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer h.Stop()

	if h.Done("escort") != nil {
		t.Fatal("task should not start until enabled")
	}
	if err := h.Enable("escort"); err != nil {
		t.Fatalf("Enable failed: %v", err)
	}
	waitDone(t, h.Done("escort"))

	if h.IsEnabled("escort") {
		t.Error("failed task should be disabled")
	}
	if bus.count(events.EventTypeTaskFailed) != 1 {
		t.Errorf("expected one TaskFailed event")
	}
	if stats := h.GetMetrics("escort").GetStats(); stats.FailureCount != 1 || stats.LastError != "window lost" {
		t.Errorf("unexpected stats %+v", stats)
	}
}

func TestOneTimeTaskCanceledSilently(t *testing.T) {
	bus := &recordingBus{}
	h := NewHost(context.Background()).WithEventBus(bus)
	_ = h.Register(TaskSpec{
		Name: "escort",
		Run: func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		},
		Enabled: true,
	})
	_ = h.Start()

	if _, err := h.Toggle("escort"); err != nil {
		t.Fatalf("Toggle failed: %v", err)
	}
	waitDone(t, h.Done("escort"))
	h.Stop()

	if bus.count(events.EventTypeTaskFailed) != 0 {
		t.Error("cancellation should not be reported as a failure")
	}
	if stats := h.GetMetrics("escort").GetStats(); stats.FailureCount != 0 {
		t.Errorf("unexpected failure count %d", stats.FailureCount)
	}
}

func TestTriggerTaskDisabledAfterRepeatedErrors(t *testing.T) {
	bus := &recordingBus{}
	h := NewHost(context.Background()).WithEventBus(bus).WithFailureThreshold(2)
	_ = h.Register(TaskSpec{
		Name:     "automove",
		Kind:     Trigger,
		Interval: time.Millisecond,
		Run:      func(context.Context) error { return errors.New("capture failed") },
		Enabled:  true,
	})
	_ = h.Start()
	defer h.Stop()

	waitDone(t, h.Done("automove"))
	if got := h.CheckTaskHealth(2); len(got) != 1 || got[0] != "automove" {
		t.Errorf("CheckTaskHealth = %v", got)
	}
	if bus.count(events.EventTypeTaskFailed) != 1 {
		t.Error("expected one TaskFailed event")
	}
}

func TestUnknownTask(t *testing.T) {
	h := NewHost(context.Background())
	_ = h.Start()
	defer h.Stop()
	if err := h.Enable("missing"); !errors.Is(err, ErrTaskNotFound) {
		t.Errorf("Enable = %v, want ErrTaskNotFound", err)
	}
}
