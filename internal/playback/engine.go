// Package playback replays recorded input segments with precise relative timing.
package playback

import (
	"context"
	"fmt"
	"time"

	"jordanella.com/escort-bot/internal/input"
	"jordanella.com/escort-bot/internal/logging"
	"jordanella.com/escort-bot/internal/path"
)

// Engine replays segments through an injector. It is used from a single task
// and holds no per-run state.
type Engine struct {
	injector input.Injector
	window   input.Window
	logger   *logging.Logger
	sleep    func(time.Duration)
}

// NewEngine creates an engine that foregrounds window before relative moves
func NewEngine(injector input.Injector, window input.Window) *Engine {
	return &Engine{
		injector: injector,
		window:   window,
		logger:   logging.NewLogger("Playback"),
		sleep:    PreciseSleep,
	}
}

// WithLogger replaces the engine's logger
func (e *Engine) WithLogger(logger *logging.Logger) *Engine {
	e.logger = logger
	return e
}

// Execute replays one segment. When skipFirstDelay is set the first event
// fires immediately. Cancellation is only observed before the segment
// starts; waits inside a segment are not interruptible. Injection errors are
// returned as-is.
func (e *Engine) Execute(ctx context.Context, segment path.Segment, skipFirstDelay bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	start := time.Now()
	var expected time.Duration

	for i, event := range segment.Events {
		delay := Seconds(event.Delay)
		if i == 0 && skipFirstDelay {
			delay = 0
		}
		expected += delay
		e.sleep(delay)

		if err := e.dispatch(event); err != nil {
			return fmt.Errorf("event %d (%s): %w", i, event.Type, err)
		}
	}

	e.logger.DebugWithContext("Segment played", map[string]interface{}{
		"events":       len(segment.Events),
		"ends_on_sync": segment.EndsOnMarker,
		"expected_ms":  expected.Milliseconds(),
		"actual_ms":    time.Since(start).Milliseconds(),
	})
	return nil
}

func (e *Engine) dispatch(event path.Event) error {
	switch event.Type {
	case path.EventMouseRotation:
		dx, dy, ok := event.Rotation()
		if !ok {
			e.logger.Warn(fmt.Sprintf("Skipping rotation with unknown direction %q", event.Direction))
			return nil
		}
		// Focus can be stolen between events, so claim it before every move
		if err := e.window.BringToFront(); err != nil {
			return fmt.Errorf("foreground window: %w", err)
		}
		return e.injector.MoveRelative(dx, dy)
	case path.EventMouseDown:
		return e.injector.MouseDown(input.Button(event.Button))
	case path.EventMouseUp:
		return e.injector.MouseUp(input.Button(event.Button))
	case path.EventKeyDown:
		return e.injector.KeyDown(event.Key)
	case path.EventKeyUp:
		return e.injector.KeyUp(event.Key)
	}

	e.logger.Warn(fmt.Sprintf("Skipping unknown event type %q", event.Type))
	return nil
}
