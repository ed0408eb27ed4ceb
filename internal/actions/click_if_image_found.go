package actions

import (
	"context"
	"fmt"
	"image"

	"jordanella.com/escort-bot/internal/cv"
	"jordanella.com/escort-bot/internal/input"
)

// ClickIfImageFound clicks the center of a template match, shifted by
// Offset. Nothing happens when the template is absent.
type ClickIfImageFound struct {
	Template  string     `yaml:"template"`            // Template lookup by name (required)
	Threshold *float64   `yaml:"threshold,omitempty"` // Optional: override template's threshold
	Region    *cv.Region `yaml:"region,omitempty"`    // Optional: override template's region
	Offset    *cv.Point  `yaml:"offset,omitempty"`    // base-resolution pixels
	Button    string     `yaml:"button,omitempty"`
}

func (a *ClickIfImageFound) Validate(ab *ActionBuilder) error {
	if err := ab.validateTemplate(a.Template); err != nil {
		return err
	}
	return validateButton(a.Button)
}

func (a *ClickIfImageFound) Build(ab *ActionBuilder) *ActionBuilder {
	step := Step{
		name: fmt.Sprintf("ClickIfImageFound (%s)", a.Template),
		execute: func(ctx context.Context, rt Runtime) error {
			region, err := scaledRegion(rt, a.Region)
			if err != nil {
				return err
			}

			box, err := rt.CV().Detect(a.Template, region, thresholdOrDefault(a.Threshold))
			if err != nil {
				return fmt.Errorf("failed to find template: %w", err)
			}
			if box == nil {
				return nil
			}

			center := box.Center()
			if a.Offset != nil {
				offset, err := scalePoint(rt, *a.Offset)
				if err != nil {
					return err
				}
				center.X += offset.X
				center.Y += offset.Y
			}

			return input.ClickAt(rt.Input(), rt.Window(), image.Pt(center.X, center.Y), buttonOrLeft(a.Button))
		},
		issue: a.Validate(ab),
	}
	ab.steps = append(ab.steps, step)
	return ab
}
