// Package actions builds executable routines from YAML step lists. Routines
// drive the game's menus: abandoning a mission, confirming dialogs and
// opening the in-mission menu.
package actions

import (
	"context"
	"fmt"
	"time"

	"jordanella.com/escort-bot/internal/cv"
	"jordanella.com/escort-bot/internal/logging"
)

// ActionStep is one YAML step. Validate checks its configuration and Build
// appends the executable Step to the builder.
type ActionStep interface {
	Validate(ab *ActionBuilder) error
	Build(ab *ActionBuilder) *ActionBuilder
}

// ActionBuilder holds a built routine. It keeps no execution state and can
// be executed any number of times.
type ActionBuilder struct {
	steps            []Step
	timeout          time.Duration
	ignoreErrors     bool
	templateRegistry TemplateRegistryInterface // Optional: for validating template names at build time
	logger           *logging.Logger
}

// NewActionBuilder creates a new ActionBuilder
func NewActionBuilder() *ActionBuilder {
	return &ActionBuilder{logger: logging.NewLogger("Routine")}
}

// WithTemplateRegistry sets the template registry for build-time validation
func (ab *ActionBuilder) WithTemplateRegistry(registry TemplateRegistryInterface) *ActionBuilder {
	ab.templateRegistry = registry
	return ab
}

type Step struct {
	name        string
	execute     func(ctx context.Context, rt Runtime) error
	issue       error
	timeout     time.Duration // Timeout for this specific step (0 = no timeout)
	maxAttempts int           // Maximum number of attempts for this step (0 or 1 = no retries)
	retryDelay  time.Duration // Delay between retry attempts (default: 1s)
}

// WithTimeout bounds the whole routine
func (ab *ActionBuilder) WithTimeout(d time.Duration) *ActionBuilder {
	ab.timeout = d
	return ab
}

// IgnoreErrors keeps executing after a step fails
func (ab *ActionBuilder) IgnoreErrors() *ActionBuilder {
	ab.ignoreErrors = true
	return ab
}

// Len returns the number of top-level steps
func (ab *ActionBuilder) Len() int {
	return len(ab.steps)
}

// StepNames returns the display names of the top-level steps
func (ab *ActionBuilder) StepNames() []string {
	names := make([]string, len(ab.steps))
	for i, s := range ab.steps {
		names[i] = s.name
	}
	return names
}

// Execute runs the routine against rt
func (ab *ActionBuilder) Execute(ctx context.Context, rt Runtime) error {
	if ab.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, ab.timeout)
		defer cancel()
	}
	return ab.executeSteps(ctx, rt)
}

func (ab *ActionBuilder) executeSteps(ctx context.Context, rt Runtime) error {
	for i := range ab.steps {
		step := &ab.steps[i]

		if err := ctx.Err(); err != nil {
			return err
		}

		if step.issue != nil {
			return fmt.Errorf("build configuration error for step '%s': %w", step.name, step.issue)
		}

		if err := ab.executeStepWithRetries(ctx, rt, step); err != nil {
			if !ab.ignoreErrors || ctx.Err() != nil {
				return err
			}
			ab.logger.Warn(fmt.Sprintf("Ignoring failed step '%s': %v", step.name, err))
		}
	}
	return nil
}

// executeStepWithRetries executes a single step with timeout and retry logic
func (ab *ActionBuilder) executeStepWithRetries(ctx context.Context, rt Runtime, step *Step) error {
	maxAttempts := step.maxAttempts
	if maxAttempts == 0 {
		maxAttempts = 1 // Default: no retries
	}

	retryDelay := step.retryDelay
	if retryDelay == 0 {
		retryDelay = 1 * time.Second
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		stepCtx := ctx
		cancel := context.CancelFunc(func() {})
		if step.timeout > 0 {
			stepCtx, cancel = context.WithTimeout(ctx, step.timeout)
		}

		// Run in a goroutine so a step stuck in a blocking call still times out
		done := make(chan error, 1)
		go func() {
			done <- step.execute(stepCtx, rt)
		}()

		select {
		case <-stepCtx.Done():
			cancel()
			if ctx.Err() != nil {
				return ctx.Err()
			}
			lastErr = fmt.Errorf("step '%s' timed out after %v", step.name, step.timeout)

		case err := <-done:
			cancel()
			if err == nil {
				if attempt > 1 {
					ab.logger.Info(fmt.Sprintf("Step '%s' succeeded on attempt %d/%d", step.name, attempt, maxAttempts))
				}
				return nil
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			lastErr = err
		}

		if attempt < maxAttempts {
			ab.logger.Warn(fmt.Sprintf("Step '%s' attempt %d/%d failed: %v, retrying in %v",
				step.name, attempt, maxAttempts, lastErr, retryDelay))
			if err := sleepCtx(ctx, retryDelay); err != nil {
				return err
			}
		}
	}

	if maxAttempts > 1 {
		return fmt.Errorf("step '%s' failed after %d attempts: %w", step.name, maxAttempts, lastErr)
	}
	return lastErr
}

func (ab *ActionBuilder) buildSteps(actions []ActionStep) []Step {
	// A temporary builder collects the nested steps
	tempBuilder := NewActionBuilder()
	tempBuilder.templateRegistry = ab.templateRegistry
	tempBuilder.logger = ab.logger

	for _, action := range actions {
		action.Build(tempBuilder)
	}
	return tempBuilder.steps
}

func (ab *ActionBuilder) validateTemplate(name string) error {
	if name == "" {
		return fmt.Errorf("template is required")
	}
	if ab.templateRegistry != nil && !ab.templateRegistry.Has(name) {
		return fmt.Errorf("template '%s' not found in registry", name)
	}
	return nil
}

// scaledRegion maps an optional base-resolution region onto the frame. A nil
// region lets detection fall back to the template's own region.
func scaledRegion(rt Runtime, region *cv.Region) (*cv.Region, error) {
	if region == nil {
		return nil, nil
	}
	scaled, err := rt.CV().ScaleRegion(*region)
	if err != nil {
		return nil, fmt.Errorf("scale region: %w", err)
	}
	return &scaled, nil
}

func thresholdOrDefault(threshold *float64) float64 {
	if threshold == nil {
		return 0
	}
	return *threshold
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
