// Package automove repeatedly taps the left mouse button to keep the
// character moving while the player holds a hotkey-toggled mode.
package automove

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"jordanella.com/escort-bot/internal/input"
	"jordanella.com/escort-bot/internal/logging"
)

var errDeactivated = errors.New("auto-move deactivated")

// Team reports whether the player is in a running mission
type Team interface {
	InGroupedContext() (bool, error)
}

// Focus reports whether the game window has keyboard and mouse focus
type Focus interface {
	IsForeground() bool
}

type Config struct {
	Press    time.Duration // how long the button is held
	Interval time.Duration // wait after release
	Step     time.Duration // interrupt check granularity
}

func DefaultConfig() Config {
	return Config{
		Press:    500 * time.Millisecond,
		Interval: 450 * time.Millisecond,
		Step:     100 * time.Millisecond,
	}
}

// Mover is run as a trigger task. Signal comes from the toggle hotkey and
// Interrupt from a physical left click.
type Mover struct {
	team     Team
	focus    Focus
	injector input.Injector
	cfg      Config
	logger   *logging.Logger

	mu        sync.Mutex
	active    bool
	signal    bool
	interrupt bool
}

func NewMover(team Team, injector input.Injector, cfg Config) *Mover {
	if cfg.Step <= 0 {
		cfg.Step = DefaultConfig().Step
	}
	return &Mover{
		team:     team,
		injector: injector,
		cfg:      cfg,
		logger:   logging.NewLogger("AutoMove"),
	}
}

// WithFocus makes toggles apply only while focus reports the game window in
// front. Without it every toggle applies.
func (m *Mover) WithFocus(focus Focus) *Mover {
	m.focus = focus
	return m
}

// Signal requests a toggle on the next tick
func (m *Mover) Signal() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.signal = true
}

// Interrupt stops an active run
func (m *Mover) Interrupt() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active {
		m.interrupt = true
	}
}

// Active reports whether auto-move is running
func (m *Mover) Active() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active
}

// Reset drops any pending signal and deactivates
func (m *Mover) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.active, m.signal, m.interrupt = false, false, false
}

// Run handles one tick: a pending toggle is applied only while grouped and
// with the game window in front, then the move loop runs until deactivated
// or ctx ends.
func (m *Mover) Run(ctx context.Context) error {
	if m.takeSignal() {
		grouped, err := m.team.InGroupedContext()
		if err != nil {
			return fmt.Errorf("check team: %w", err)
		}
		if !grouped {
			return nil
		}
		if m.focus != nil && !m.focus.IsForeground() {
			m.logger.Debug("Toggle ignored, game window not in front")
			return nil
		}
		m.switchState()
	}

	for m.Active() {
		if err := m.doMove(ctx); err != nil {
			if errors.Is(err, errDeactivated) {
				m.logger.Debug("Move loop ended")
				return nil
			}
			if ctx.Err() != nil {
				m.Reset()
				return nil
			}
			return err
		}
	}
	return nil
}

func (m *Mover) doMove(ctx context.Context) error {
	if err := m.injector.MouseDown(input.ButtonLeft); err != nil {
		return err
	}
	// Release even when the press was cut short
	pressErr := m.sleepCheck(ctx, m.cfg.Press, false)
	if err := m.injector.MouseUp(input.ButtonLeft); err != nil {
		return err
	}
	if pressErr != nil {
		return pressErr
	}
	return m.sleepCheck(ctx, m.cfg.Interval, true)
}

func (m *Mover) sleepCheck(ctx context.Context, d time.Duration, checkSignal bool) error {
	for remaining := d; remaining > 0; remaining -= m.cfg.Step {
		s := m.cfg.Step
		if remaining < s {
			s = remaining
		}
		if err := sleepCtx(ctx, s); err != nil {
			return err
		}
		if m.shouldInterrupt(checkSignal) {
			m.switchState()
		}
		if !m.Active() {
			return errDeactivated
		}
	}
	return nil
}

func (m *Mover) shouldInterrupt(checkSignal bool) bool {
	m.mu.Lock()
	pending := m.interrupt || (checkSignal && m.signal)
	m.mu.Unlock()
	if pending {
		return true
	}

	grouped, err := m.team.InGroupedContext()
	if err != nil {
		m.logger.Warn(fmt.Sprintf("Team check failed: %v", err))
		return true
	}
	return !grouped
}

func (m *Mover) takeSignal() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.signal
	m.signal = false
	return s
}

func (m *Mover) switchState() {
	m.mu.Lock()
	m.signal = false
	m.interrupt = false
	m.active = !m.active
	active := m.active
	m.mu.Unlock()

	if active {
		m.logger.Info("Auto-move activated")
	} else {
		m.logger.Info("Auto-move deactivated")
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
