package actions

import (
	"context"
	"fmt"
	"time"

	"jordanella.com/escort-bot/internal/cv"
)

const waitPollInterval = 100 * time.Millisecond

// WaitForImage polls fresh frames until the template appears
type WaitForImage struct {
	MaxWait   int        `yaml:"max_wait"`            // seconds
	Template  string     `yaml:"template"`            // Template lookup by name (required)
	Threshold *float64   `yaml:"threshold,omitempty"` // Optional: override template's threshold
	Region    *cv.Region `yaml:"region,omitempty"`    // Optional: override template's region
}

func (a *WaitForImage) Validate(ab *ActionBuilder) error {
	if a.MaxWait <= 0 {
		return fmt.Errorf("max_wait must be greater than 0")
	}
	return ab.validateTemplate(a.Template)
}

func (a *WaitForImage) Build(ab *ActionBuilder) *ActionBuilder {
	step := Step{
		name: fmt.Sprintf("WaitForImage(%s, %ds)", a.Template, a.MaxWait),
		execute: func(ctx context.Context, rt Runtime) error {
			deadline := time.Now().Add(time.Duration(a.MaxWait) * time.Second)
			for {
				if _, err := rt.CV().Refresh(); err != nil {
					return fmt.Errorf("capture frame: %w", err)
				}
				region, err := scaledRegion(rt, a.Region)
				if err != nil {
					return err
				}
				box, err := rt.CV().Detect(a.Template, region, thresholdOrDefault(a.Threshold))
				if err != nil {
					return fmt.Errorf("failed to find template: %w", err)
				}
				if box != nil {
					return nil
				}
				if !time.Now().Before(deadline) {
					return fmt.Errorf("template %s not found within %ds", a.Template, a.MaxWait)
				}
				if err := sleepCtx(ctx, waitPollInterval); err != nil {
					return err
				}
			}
		},
		issue: a.Validate(ab),
	}
	ab.steps = append(ab.steps, step)
	return ab
}
