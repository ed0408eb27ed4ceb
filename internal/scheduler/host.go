// Package scheduler hosts the bot's long-running and periodic tasks. Each
// task runs on its own goroutine under a context that is canceled when the
// task is disabled.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"jordanella.com/escort-bot/internal/events"
	"jordanella.com/escort-bot/internal/logging"
)

var (
	// ErrTaskDisabled is the cancel cause seen by a task that was switched off
	ErrTaskDisabled = errors.New("task disabled")
	// ErrTaskNotFound is returned for names that were never registered
	ErrTaskNotFound = errors.New("task not found")
)

// Kind selects how a task is driven
type Kind int

const (
	// OneTime tasks run once per enable until they return
	OneTime Kind = iota
	// Trigger tasks run once per interval while enabled
	Trigger
)

func (k Kind) String() string {
	if k == Trigger {
		return "trigger"
	}
	return "one-time"
}

// TaskSpec describes a task to the host
type TaskSpec struct {
	Name     string
	Kind     Kind
	Interval time.Duration
	Run      func(ctx context.Context) error
	// Enabled starts the task together with the host
	Enabled bool
}

type task struct {
	spec    TaskSpec
	metrics *TaskMetrics
	cancel  context.CancelCauseFunc
	done    chan struct{}
}

func (t *task) running() bool {
	if t.done == nil {
		return false
	}
	select {
	case <-t.done:
		return false
	default:
		return true
	}
}

// Host runs registered tasks
type Host struct {
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.RWMutex
	isRunning bool

	tasks map[string]*task
	order []string

	bus                events.EventBus
	logger             *logging.Logger
	unhealthyThreshold int64
}

// NewHost creates a host whose tasks stop when parent is canceled
func NewHost(parent context.Context) *Host {
	ctx, cancel := context.WithCancel(parent)
	return &Host{
		ctx:                ctx,
		cancel:             cancel,
		tasks:              make(map[string]*task),
		logger:             logging.NewLogger("Scheduler"),
		unhealthyThreshold: 3,
	}
}

// WithEventBus publishes task lifecycle events to bus
func (h *Host) WithEventBus(bus events.EventBus) *Host {
	h.bus = bus
	return h
}

// WithFailureThreshold sets how many consecutive trigger errors disable a task
func (h *Host) WithFailureThreshold(n int64) *Host {
	h.unhealthyThreshold = n
	return h
}

// Register adds a task. Registration is only allowed before Start.
func (h *Host) Register(spec TaskSpec) error {
	if spec.Name == "" {
		return fmt.Errorf("task name cannot be empty")
	}
	if spec.Run == nil {
		return fmt.Errorf("task %s: run function is nil", spec.Name)
	}
	if spec.Kind == Trigger && spec.Interval <= 0 {
		return fmt.Errorf("task %s: trigger interval must be positive", spec.Name)
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.isRunning {
		return fmt.Errorf("task %s: host already running", spec.Name)
	}
	if _, exists := h.tasks[spec.Name]; exists {
		return fmt.Errorf("task %s already registered", spec.Name)
	}
	h.tasks[spec.Name] = &task{spec: spec, metrics: NewTaskMetrics()}
	h.order = append(h.order, spec.Name)
	return nil
}

// Start launches every task registered as enabled
func (h *Host) Start() error {
	h.mu.Lock()
	if h.isRunning {
		h.mu.Unlock()
		return fmt.Errorf("scheduler already running")
	}
	h.isRunning = true
	var initial []string
	for _, name := range h.order {
		if h.tasks[name].spec.Enabled {
			initial = append(initial, name)
		}
	}
	h.mu.Unlock()

	for _, name := range initial {
		if err := h.Enable(name); err != nil {
			return err
		}
	}
	return nil
}

// Stop cancels every task and waits for them to return
func (h *Host) Stop() {
	h.mu.Lock()
	if !h.isRunning {
		h.mu.Unlock()
		return
	}
	h.isRunning = false
	h.mu.Unlock()

	h.cancel()
	h.wg.Wait()
}

// Enable starts name if it is not already running
func (h *Host) Enable(name string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	t, ok := h.tasks[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrTaskNotFound, name)
	}
	if !h.isRunning {
		return fmt.Errorf("task %s: host not running", name)
	}
	if t.running() {
		return nil
	}

	ctx, cancel := context.WithCancelCause(h.ctx)
	t.cancel = cancel
	t.done = make(chan struct{})

	h.wg.Add(1)
	go h.runTask(ctx, t, t.done)

	h.logger.Info(fmt.Sprintf("Enabled %s task %s", t.spec.Kind, name))
	h.publish(events.NewTaskEvent(events.EventTypeTaskEnabled, name))
	return nil
}

// Disable cancels name with ErrTaskDisabled. It does not wait for the task
// to return; use Done for that.
func (h *Host) Disable(name string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	t, ok := h.tasks[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrTaskNotFound, name)
	}
	if !t.running() {
		return nil
	}
	t.cancel(ErrTaskDisabled)

	h.logger.Info(fmt.Sprintf("Disabled task %s", name))
	h.publish(events.NewTaskEvent(events.EventTypeTaskDisabled, name))
	return nil
}

// Toggle flips name between enabled and disabled and reports the new state
func (h *Host) Toggle(name string) (bool, error) {
	if h.IsEnabled(name) {
		return false, h.Disable(name)
	}
	return true, h.Enable(name)
}

// IsEnabled reports whether name is currently running
func (h *Host) IsEnabled(name string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	t, ok := h.tasks[name]
	return ok && t.running()
}

// Done returns a channel closed when the current run of name returns. It is
// nil if the task has never been enabled.
func (h *Host) Done(name string) <-chan struct{} {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if t, ok := h.tasks[name]; ok {
		return t.done
	}
	return nil
}

// Tasks returns registered task names in registration order
func (h *Host) Tasks() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]string, len(h.order))
	copy(out, h.order)
	return out
}

// GetMetrics returns the metrics for a task
func (h *Host) GetMetrics(name string) *TaskMetrics {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if t, ok := h.tasks[name]; ok {
		return t.metrics
	}
	return nil
}

// GetAllMetrics returns a snapshot of every task's metrics
func (h *Host) GetAllMetrics() map[string]TaskStats {
	h.mu.RLock()
	defer h.mu.RUnlock()

	stats := make(map[string]TaskStats, len(h.tasks))
	for name, t := range h.tasks {
		stats[name] = t.metrics.GetStats()
	}
	return stats
}

// CheckTaskHealth returns the tasks whose consecutive errors reached the threshold
func (h *Host) CheckTaskHealth(consecutiveErrorThreshold int64) []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	var unhealthy []string
	for name, t := range h.tasks {
		if !t.metrics.IsHealthy(consecutiveErrorThreshold) {
			unhealthy = append(unhealthy, name)
		}
	}
	sort.Strings(unhealthy)
	return unhealthy
}

func (h *Host) runTask(ctx context.Context, t *task, done chan struct{}) {
	defer h.wg.Done()
	defer close(done)

	if t.spec.Kind == OneTime {
		h.runOnce(ctx, t)
		return
	}

	ticker := time.NewTicker(t.spec.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !h.runTrigger(ctx, t) {
				return
			}
		}
	}
}

func (h *Host) runOnce(ctx context.Context, t *task) {
	start := time.Now()
	err := h.safeRun(ctx, t)
	if ctx.Err() != nil {
		err = nil
	}
	t.metrics.RecordExecution(time.Since(start), err)

	if err != nil {
		h.fail(t, err)
		return
	}
	h.logger.Debug(fmt.Sprintf("Task %s finished", t.spec.Name))
}

// runTrigger runs one tick and reports whether the task should keep going
func (h *Host) runTrigger(ctx context.Context, t *task) bool {
	start := time.Now()
	err := h.safeRun(ctx, t)
	if ctx.Err() != nil {
		return false
	}
	t.metrics.RecordExecution(time.Since(start), err)
	if err == nil {
		return true
	}

	h.logger.Warn(fmt.Sprintf("Task %s error: %v", t.spec.Name, err))
	if !t.metrics.IsHealthy(h.unhealthyThreshold) {
		h.fail(t, fmt.Errorf("%d consecutive errors, last: %w", t.metrics.GetStats().ConsecutiveErrors, err))
		return false
	}
	return true
}

func (h *Host) safeRun(ctx context.Context, t *task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task %s panicked: %v", t.spec.Name, r)
		}
	}()
	return t.spec.Run(ctx)
}

// fail disables t after an error it cannot recover from
func (h *Host) fail(t *task, err error) {
	h.logger.ErrorWithContext("Task failed and was disabled", err, map[string]interface{}{
		"task": t.spec.Name,
		"kind": t.spec.Kind.String(),
	})
	h.mu.Lock()
	if t.cancel != nil {
		t.cancel(err)
	}
	h.mu.Unlock()
	h.publish(events.NewTaskFailedEvent(t.spec.Name, err))
}

func (h *Host) publish(event events.Event) {
	if h.bus != nil {
		h.bus.PublishAsync(event)
	}
}
