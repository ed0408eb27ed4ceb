package automove

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"jordanella.com/escort-bot/internal/input"
)

type fakeTeam struct {
	grouped atomic.Bool
}

func (f *fakeTeam) InGroupedContext() (bool, error) { return f.grouped.Load(), nil }

type fakeFocus struct {
	front atomic.Bool
}

func (f *fakeFocus) IsForeground() bool { return f.front.Load() }

type countingInjector struct {
	mu        sync.Mutex
	downs     int
	ups       int
	otherKeys int
}

func (c *countingInjector) MouseDown(input.Button) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.downs++
	return nil
}

func (c *countingInjector) MouseUp(input.Button) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ups++
	return nil
}

func (c *countingInjector) counts() (int, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.downs, c.ups
}

func (c *countingInjector) KeyDown(string) error { return nil }
func (c *countingInjector) KeyUp(string) error { return nil }
func (c *countingInjector) MoveRelative(int, int) error { return nil }
func (c *countingInjector) MoveAbsolute(int, int) error { return nil }

func fastConfig() Config {
	return Config{Press: 4 * time.Millisecond, Interval: 4 * time.Millisecond, Step: time.Millisecond}
}

func runAsync(m *Mover, ctx context.Context) <-chan error {
	done := make(chan error, 1)
	go func() { done <- m.Run(ctx) }()
	return done
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met in time")
		}
		time.Sleep(time.Millisecond)
	}
}

func waitReturn(t *testing.T, done <-chan error) {
	t.Helper()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run returned %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return")
	}
}

func TestToggleOnAndOff(t *testing.T) {
	team := &fakeTeam{}
	team.grouped.Store(true)
	inj := &countingInjector{}
	m := NewMover(team, inj, fastConfig())

	m.Signal()
	done := runAsync(m, context.Background())
	waitFor(t, func() bool { d, _ := inj.counts(); return d >= 2 })
	if !m.Active() {
		t.Error("expected active")
	}

	m.Signal()
	waitReturn(t, done)
	if m.Active() {
		t.Error("expected inactive after second signal")
	}
	if d, u := inj.counts(); d != u {
		t.Errorf("button left pressed: %d downs, %d ups", d, u)
	}
}

func TestSignalIgnoredOutsideMission(t *testing.T) {
	inj := &countingInjector{}
	m := NewMover(&fakeTeam{}, inj, fastConfig())

	m.Signal()
	if err := m.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if m.Active() {
		t.Error("should not activate outside a mission")
	}
	if d, _ := inj.counts(); d != 0 {
		t.Errorf("unexpected input %d", d)
	}
}

func TestToggleNeedsGameWindowInFront(t *testing.T) {
	team := &fakeTeam{}
	team.grouped.Store(true)
	focus := &fakeFocus{}
	inj := &countingInjector{}
	m := NewMover(team, inj, fastConfig()).WithFocus(focus)

	m.Signal()
	if err := m.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if m.Active() {
		t.Error("should not activate while another window has focus")
	}
	if d, _ := inj.counts(); d != 0 {
		t.Errorf("unexpected input %d", d)
	}

	// The signal was consumed; a fresh one applies once the game is in front
	focus.front.Store(true)
	m.Signal()
	done := runAsync(m, context.Background())
	waitFor(t, m.Active)
	m.Interrupt()
	waitReturn(t, done)
	if d, u := inj.counts(); d != u {
		t.Errorf("button left pressed: %d downs, %d ups", d, u)
	}
}

func TestLeavingMissionDeactivates(t *testing.T) {
	team := &fakeTeam{}
	team.grouped.Store(true)
	inj := &countingInjector{}
	m := NewMover(team, inj, fastConfig())

	m.Signal()
	done := runAsync(m, context.Background())
	waitFor(t, func() bool { d, _ := inj.counts(); return d >= 1 })

	team.grouped.Store(false)
	waitReturn(t, done)
	if m.Active() {
		t.Error("expected deactivation when the mission ends")
	}
	if d, u := inj.counts(); d != u {
		t.Errorf("button left pressed: %d downs, %d ups", d, u)
	}
}

func TestInterruptAndCancel(t *testing.T) {
	team := &fakeTeam{}
	team.grouped.Store(true)
	inj := &countingInjector{}
	m := NewMover(team, inj, fastConfig())

	m.Signal()
	done := runAsync(m, context.Background())
	waitFor(t, m.Active)
	m.Interrupt()
	waitReturn(t, done)
	if m.Active() {
		t.Error("expected interrupt to deactivate")
	}

	ctx, cancel := context.WithCancel(context.Background())
	m.Signal()
	done = runAsync(m, ctx)
	waitFor(t, func() bool { d, _ := inj.counts(); return d >= 2 })
	cancel()
	waitReturn(t, done)
	if m.Active() {
		t.Error("cancel should reset the mover")
	}
	if d, u := inj.counts(); d != u {
		t.Errorf("button left pressed: %d downs, %d ups", d, u)
	}
}
