package actions

import (
	"context"
	"fmt"
)

type Repeat struct {
	Iterations int          `yaml:"iterations"`
	Actions    []ActionStep `yaml:"actions"`
}

// UnmarshalYAML implements custom unmarshaling for Repeat to handle polymorphic Actions field
func (a *Repeat) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var raw map[string]interface{}
	if err := unmarshal(&raw); err != nil {
		return err
	}

	if val, ok := raw["iterations"].(int); ok {
		a.Iterations = val
	}

	if actionsRaw, ok := raw["actions"]; ok && actionsRaw != nil {
		actions, err := unmarshalNestedActions(actionsRaw, "action")
		if err != nil {
			return err
		}
		a.Actions = actions
	}

	return nil
}

func (a *Repeat) Validate(ab *ActionBuilder) error {
	if a.Iterations <= 0 {
		return fmt.Errorf("iterations must be greater than 0")
	}
	if len(a.Actions) == 0 {
		return fmt.Errorf("actions cannot be empty")
	}

	for i, action := range a.Actions {
		if err := action.Validate(ab); err != nil {
			return fmt.Errorf("Repeat (%d) -> nested action %d: %w", a.Iterations, i+1, err)
		}
	}
	return nil
}

func (a *Repeat) Build(ab *ActionBuilder) *ActionBuilder {
	nestedSteps := ab.buildSteps(a.Actions)

	step := Step{
		name: fmt.Sprintf("Repeat (%d)", a.Iterations),
		execute: func(ctx context.Context, rt Runtime) error {
			sub := &ActionBuilder{steps: nestedSteps, logger: ab.logger}
			for i := 0; i < a.Iterations; i++ {
				if err := sub.executeSteps(ctx, rt); err != nil {
					return fmt.Errorf("repeat iteration %d failed: %w", i+1, err)
				}
			}
			return nil
		},
		issue: a.Validate(ab),
	}
	ab.steps = append(ab.steps, step)
	return ab
}
