package hotkey

import (
	"context"
	"testing"
	"time"
)

func expectFired(t *testing.T, ch <-chan string, want string) {
	t.Helper()
	select {
	case got := <-ch:
		if got != want {
			t.Errorf("fired %q, want %q", got, want)
		}
	case <-time.After(time.Second):
		t.Fatalf("hotkey %q did not fire", want)
	}
}

func expectQuiet(t *testing.T, ch <-chan string) {
	t.Helper()
	select {
	case got := <-ch:
		t.Errorf("unexpected hotkey %q", got)
	case <-time.After(20 * time.Millisecond):
	}
}

func TestRegisterValidation(t *testing.T) {
	m := NewManager()
	for _, hk := range []string{"", "Ctrl+Nope", "F25"} {
		if _, err := m.Register(hk, func() {}); err == nil {
			t.Errorf("Register(%q) should fail", hk)
		}
	}
	if id, err := m.Register("ctrl+shift+x", func() {}); err != nil || id != 0 {
		t.Errorf("Register = %d, %v", id, err)
	}
}

func TestCombinationFiresOncePerPress(t *testing.T) {
	fired := make(chan string, 4)
	m := NewManager()
	if _, err := m.Register("F8", func() { fired <- "stop" }); err != nil {
		t.Fatal(err)
	}
	if _, err := m.Register("Ctrl+F9", func() { fired <- "automove" }); err != nil {
		t.Fatal(err)
	}

	m.UpdateState("F8", true)
	expectFired(t, fired, "stop")

	// Auto-repeat while held does not fire again
	m.UpdateState("F8", true)
	expectQuiet(t, fired)

	m.UpdateState("F8", false)
	m.UpdateState("F8", true)
	expectFired(t, fired, "stop")
	m.UpdateState("F8", false)

	m.UpdateState("F9", true)
	expectQuiet(t, fired)
	m.UpdateState("ctrl", true)
	expectFired(t, fired, "automove")
}

func TestClear(t *testing.T) {
	fired := make(chan string, 1)
	m := NewManager()
	_, _ = m.Register("F8", func() { fired <- "stop" })
	m.Clear()
	m.UpdateState("F8", true)
	expectQuiet(t, fired)
}

func TestStartStop(t *testing.T) {
	m := NewManager().WithPollInterval(time.Millisecond)
	_, _ = m.Register("F8", func() {})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Run(ctx) }()

	time.Sleep(5 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run returned %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}

	// A stopped manager can be started again
	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("restart failed: %v", err)
	}
	m.Stop()
	m.Stop()
}

func TestLeftClickIgnoresInjected(t *testing.T) {
	fired := make(chan string, 2)
	m := NewManager()
	m.OnLeftClick(func() { fired <- "interrupt" })

	m.handleClick(true)
	expectQuiet(t, fired)

	m.handleClick(false)
	expectFired(t, fired, "interrupt")

	// Clicks are separate from key combinations
	m.UpdateState("F8", true)
	expectQuiet(t, fired)
}
