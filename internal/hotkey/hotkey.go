// Package hotkey provides global hotkeys for stopping the bot and toggling
// auto-move, and a global left-click listener that interrupts auto-move.
package hotkey

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"jordanella.com/escort-bot/internal/input"
	"jordanella.com/escort-bot/internal/logging"
)

const defaultPollInterval = 20 * time.Millisecond

// Manager handles global hotkey registration and matching. Key state comes
// from UpdateState, fed by the platform poller between Start and Stop.
type Manager struct {
	mu           sync.RWMutex
	hotkeys      []*registeredHotkey
	currentState map[string]bool // canonical key names currently held
	pollInterval time.Duration
	logger       *logging.Logger
	clicks       []func()

	cancel     context.CancelFunc
	done       chan struct{}
	stopClicks func()
}

type registeredHotkey struct {
	parts    []string // canonical names, e.g. ["CTRL", "F8"]
	vks      []uint16
	original string
	callback func()
	active   bool
}

// NewManager creates a new hotkey manager
func NewManager() *Manager {
	return &Manager{
		currentState: make(map[string]bool),
		pollInterval: defaultPollInterval,
		logger:       logging.NewLogger("Hotkey"),
	}
}

// WithPollInterval sets how often key state is sampled
func (m *Manager) WithPollInterval(d time.Duration) *Manager {
	m.pollInterval = d
	return m
}

// Register registers a hotkey string (e.g. "F8", "Ctrl+Shift+X") and a
// callback. The callback fires once each time the combination becomes held.
func (m *Manager) Register(hotkeyStr string, callback func()) (int, error) {
	if strings.TrimSpace(hotkeyStr) == "" {
		return 0, fmt.Errorf("empty hotkey")
	}

	hk := &registeredHotkey{original: hotkeyStr, callback: callback}
	for _, p := range strings.Split(hotkeyStr, "+") {
		vk, err := input.VirtualKey(p)
		if err != nil {
			return 0, fmt.Errorf("hotkey %q: %w", hotkeyStr, err)
		}
		name := input.KeyName(vk)
		if name == "" {
			return 0, fmt.Errorf("hotkey %q: key %q cannot be polled", hotkeyStr, p)
		}
		hk.parts = append(hk.parts, name)
		hk.vks = append(hk.vks, vk)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.hotkeys = append(m.hotkeys, hk)
	return len(m.hotkeys) - 1, nil
}

// OnLeftClick registers callback for physical left-button presses anywhere on
// the desktop. Injected clicks, including the bot's own, never fire it.
func (m *Manager) OnLeftClick(callback func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clicks = append(m.clicks, callback)
}

// handleClick receives every left-button press seen by the click listener
func (m *Manager) handleClick(injected bool) {
	if injected {
		return
	}
	m.mu.RLock()
	callbacks := append([]func(){}, m.clicks...)
	m.mu.RUnlock()

	for _, cb := range callbacks {
		go cb()
	}
}

// Clear removes all registered hotkeys
func (m *Manager) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hotkeys = nil
}

// UpdateState updates the internal state of a key and checks for matches
func (m *Manager) UpdateState(key string, isDown bool) {
	m.mu.Lock()
	key = strings.ToUpper(key)
	if isDown {
		m.currentState[key] = true
	} else {
		delete(m.currentState, key)
	}
	fired := m.checkMatches()
	m.mu.Unlock()

	for _, hk := range fired {
		m.logger.Info(fmt.Sprintf("Hotkey triggered: %s", hk.original))
		go hk.callback()
	}
}

// checkMatches must be called with mu held
func (m *Manager) checkMatches() []*registeredHotkey {
	var fired []*registeredHotkey
	for _, hk := range m.hotkeys {
		match := true
		for _, part := range hk.parts {
			if !m.currentState[part] {
				match = false
				break
			}
		}
		if match && !hk.active {
			fired = append(fired, hk)
		}
		hk.active = match
	}
	return fired
}

// Start begins polling the registered keys. It returns an error if the
// manager is already running.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.cancel != nil {
		return fmt.Errorf("hotkey manager already started")
	}
	if !pollingSupported {
		m.logger.Warn("Global hotkeys are not supported on this platform")
		return nil
	}

	if len(m.clicks) > 0 {
		stop, err := listenClicks(m.handleClick)
		if err != nil {
			return fmt.Errorf("click listener: %w", err)
		}
		m.stopClicks = stop
	}

	ctx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.done = make(chan struct{})
	go m.poll(ctx, m.done)

	m.logger.Info(fmt.Sprintf("Listening for %d hotkey(s)", len(m.hotkeys)))
	return nil
}

// Stop ends polling and waits for the poller to exit
func (m *Manager) Stop() {
	m.mu.Lock()
	cancel, done, stopClicks := m.cancel, m.done, m.stopClicks
	m.cancel, m.done, m.stopClicks = nil, nil, nil
	m.mu.Unlock()

	if stopClicks != nil {
		stopClicks()
	}
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Run starts the manager and stops it when ctx ends
func (m *Manager) Run(ctx context.Context) error {
	if err := m.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	m.Stop()
	return nil
}

func (m *Manager) poll(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(m.pollInterval)
	defer ticker.Stop()

	last := make(map[uint16]bool)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		for _, vk := range m.watchedKeys() {
			down := keyDown(vk)
			if down != last[vk] {
				last[vk] = down
				m.UpdateState(input.KeyName(vk), down)
			}
		}
	}
}

func (m *Manager) watchedKeys() []uint16 {
	m.mu.RLock()
	defer m.mu.RUnlock()

	seen := make(map[uint16]bool)
	var vks []uint16
	for _, hk := range m.hotkeys {
		for _, vk := range hk.vks {
			if !seen[vk] {
				seen[vk] = true
				vks = append(vks, vk)
			}
		}
	}
	return vks
}
