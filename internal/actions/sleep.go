package actions

import (
	"context"
	"fmt"
	"time"
)

type Sleep struct {
	Duration int `yaml:"duration"` // milliseconds
}

func (a *Sleep) Validate(ab *ActionBuilder) error {
	if a.Duration <= 0 {
		return fmt.Errorf("duration (%d) must be greater than 0", a.Duration)
	}
	return nil
}

func (a *Sleep) Build(ab *ActionBuilder) *ActionBuilder {
	step := Step{
		name: fmt.Sprintf("Sleep (%dms)", a.Duration),
		execute: func(ctx context.Context, rt Runtime) error {
			return sleepCtx(ctx, time.Duration(a.Duration)*time.Millisecond)
		},
		issue: a.Validate(ab),
	}
	ab.steps = append(ab.steps, step)
	return ab
}
