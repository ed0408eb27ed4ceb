package actions

import (
	"context"
	"fmt"
	"image"

	"jordanella.com/escort-bot/internal/cv"
	"jordanella.com/escort-bot/internal/input"
)

// Click clicks a base-resolution client point
type Click struct {
	X      int    `yaml:"x"`
	Y      int    `yaml:"y"`
	Button string `yaml:"button,omitempty"`
}

func (a *Click) Validate(ab *ActionBuilder) error {
	if a.X < 0 || a.Y < 0 {
		return fmt.Errorf("coordinates (x=%d, y=%d) must be non-negative", a.X, a.Y)
	}
	return validateButton(a.Button)
}

func (a *Click) Build(ab *ActionBuilder) *ActionBuilder {
	step := Step{
		name: fmt.Sprintf("Click (%d,%d)", a.X, a.Y),
		execute: func(ctx context.Context, rt Runtime) error {
			p, err := scalePoint(rt, cv.Point{X: a.X, Y: a.Y})
			if err != nil {
				return err
			}
			return input.ClickAt(rt.Input(), rt.Window(), p, buttonOrLeft(a.Button))
		},
		issue: a.Validate(ab),
	}
	ab.steps = append(ab.steps, step)
	return ab
}

func scalePoint(rt Runtime, p cv.Point) (image.Point, error) {
	r, err := rt.CV().ScaleRegion(cv.Region{X1: p.X, Y1: p.Y, X2: p.X, Y2: p.Y})
	if err != nil {
		return image.Point{}, fmt.Errorf("scale point: %w", err)
	}
	return image.Pt(r.X1, r.Y1), nil
}

func validateButton(name string) error {
	switch input.Button(name) {
	case "", input.ButtonLeft, input.ButtonRight, input.ButtonMiddle:
		return nil
	}
	return fmt.Errorf("unknown mouse button '%s'", name)
}

func buttonOrLeft(name string) input.Button {
	if name == "" {
		return input.ButtonLeft
	}
	return input.Button(name)
}
