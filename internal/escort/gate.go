package escort

import (
	"context"
	"errors"
	"fmt"
	"image"
	"time"

	"jordanella.com/escort-bot/internal/cv"
	"jordanella.com/escort-bot/internal/events"
	"jordanella.com/escort-bot/internal/logging"
)

// Outcome is the result of waiting for a hand-off to clear
type Outcome int

const (
	OutcomeResolved Outcome = iota
	OutcomeNoConditionDetected
	OutcomeTimedOut
	OutcomeDetectionError
)

func (o Outcome) String() string {
	switch o {
	case OutcomeResolved:
		return "resolved"
	case OutcomeNoConditionDetected:
		return "no_condition_detected"
	case OutcomeTimedOut:
		return "timed_out"
	}
	return "detection_error"
}

// FrameSource captures a fresh frame for every poll
type FrameSource interface {
	Refresh() (*image.RGBA, error)
}

// Condition detects and solves the blocking on-screen condition
type Condition interface {
	EnsureGeometry() (cv.Region, error)
	ActiveCondition() (name string, present bool, err error)
	Solve(ctx context.Context, name string) error
}

// GateTimings controls the polling loop
type GateTimings struct {
	PreWait time.Duration
	Poll    time.Duration
	Settle  time.Duration
	// Grace is how long to wait for the condition to appear at all
	Grace time.Duration
}

// DefaultGateTimings returns the in-game timings
func DefaultGateTimings() GateTimings {
	return GateTimings{
		PreWait: 500 * time.Millisecond,
		Poll:    200 * time.Millisecond,
		Settle:  300 * time.Millisecond,
		Grace:   3 * time.Second,
	}
}

// Gate waits at a sync marker until the puzzle that follows it has been
// shown and cleared
type Gate struct {
	frames    FrameSource
	condition Condition
	timings   GateTimings
	bus       events.EventBus
	logger    *logging.Logger
}

// NewGate creates a gate with the default timings
func NewGate(frames FrameSource, condition Condition) *Gate {
	return &Gate{
		frames:    frames,
		condition: condition,
		timings:   DefaultGateTimings(),
		logger:    logging.NewLogger("Gate"),
	}
}

// WithTimings overrides the polling timings
func (g *Gate) WithTimings(t GateTimings) *Gate {
	g.timings = t
	return g
}

// WithEventBus publishes detection and resolution events to bus
func (g *Gate) WithEventBus(bus events.EventBus) *Gate {
	g.bus = bus
	return g
}

// WithLogger replaces the gate's logger
func (g *Gate) WithLogger(logger *logging.Logger) *Gate {
	g.logger = logger
	return g
}

// WaitForResolution polls until the condition has appeared and cleared.
// A solve is attempted once per appearance. Errors on the first poll are
// returned with OutcomeDetectionError; later errors are logged and the poll
// retried. A canceled ctx returns OutcomeDetectionError with ctx's error.
func (g *Gate) WaitForResolution(ctx context.Context, timeout time.Duration) (Outcome, error) {
	if err := sleepCtx(ctx, g.timings.PreWait); err != nil {
		return OutcomeDetectionError, err
	}
	if _, err := g.condition.EnsureGeometry(); err != nil {
		return OutcomeDetectionError, fmt.Errorf("detection geometry: %w", err)
	}

	start := time.Now()
	detected := false
	inProgress := false

	for iteration := 0; ; iteration++ {
		if err := ctx.Err(); err != nil {
			return OutcomeDetectionError, err
		}

		name, present, err := g.poll()
		if err != nil {
			if iteration == 0 {
				return OutcomeDetectionError, err
			}
			g.logger.Warn(fmt.Sprintf("Transient detection error: %v", err))
		} else {
			switch {
			case present && !inProgress:
				inProgress = true
				detected = true
				g.logger.Info(fmt.Sprintf("Detected %s", name))
				g.publish(events.NewConditionEvent(events.EventTypeConditionDetected, name))
				if err := g.condition.Solve(ctx, name); err != nil {
					if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
						return OutcomeDetectionError, err
					}
					g.logger.Error(fmt.Sprintf("Solving %s failed", name), err)
				}
			case inProgress && !present:
				if err := sleepCtx(ctx, g.timings.Settle); err != nil {
					return OutcomeDetectionError, err
				}
				g.logger.Info("Puzzle cleared")
				g.publish(events.NewConditionEvent(events.EventTypeConditionResolved, ""))
				return OutcomeResolved, nil
			}
		}

		elapsed := time.Since(start)
		if !detected && elapsed > g.timings.Grace {
			g.logger.Warn(fmt.Sprintf("No puzzle appeared within %v", g.timings.Grace))
			return OutcomeNoConditionDetected, nil
		}
		if elapsed >= timeout {
			break
		}
		if err := sleepCtx(ctx, g.timings.Poll); err != nil {
			return OutcomeDetectionError, err
		}
	}

	if detected {
		g.logger.Warn(fmt.Sprintf("Puzzle not cleared within %v", timeout))
		return OutcomeTimedOut, nil
	}
	return OutcomeNoConditionDetected, nil
}

func (g *Gate) poll() (string, bool, error) {
	if _, err := g.frames.Refresh(); err != nil {
		return "", false, fmt.Errorf("capture frame: %w", err)
	}
	name, present, err := g.condition.ActiveCondition()
	if err != nil {
		return "", false, fmt.Errorf("detect condition: %w", err)
	}
	return name, present, nil
}

func (g *Gate) publish(event events.Event) {
	if g.bus != nil {
		g.bus.PublishAsync(event)
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
