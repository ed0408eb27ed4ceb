package actions

import (
	"context"
	"fmt"
	"time"

	"jordanella.com/escort-bot/internal/input"
)

// SendKey presses a key, holding it for Hold milliseconds
type SendKey struct {
	Key  string `yaml:"key"`
	Hold int    `yaml:"hold,omitempty"`
}

func (a *SendKey) Validate(ab *ActionBuilder) error {
	if a.Key == "" {
		return fmt.Errorf("key is required")
	}
	if _, err := input.VirtualKey(a.Key); err != nil {
		return err
	}
	if a.Hold < 0 {
		return fmt.Errorf("hold (%d) cannot be negative", a.Hold)
	}
	return nil
}

func (a *SendKey) Build(ab *ActionBuilder) *ActionBuilder {
	step := Step{
		name: fmt.Sprintf("Send Key (%s)", a.Key),
		execute: func(ctx context.Context, rt Runtime) error {
			if a.Hold == 0 {
				return input.Press(rt.Input(), a.Key)
			}
			if err := rt.Input().KeyDown(a.Key); err != nil {
				return err
			}
			// Always release, even when canceled mid-hold
			holdErr := sleepCtx(ctx, time.Duration(a.Hold)*time.Millisecond)
			if err := rt.Input().KeyUp(a.Key); err != nil {
				return err
			}
			return holdErr
		},
		issue: a.Validate(ab),
	}
	ab.steps = append(ab.steps, step)
	return ab
}
