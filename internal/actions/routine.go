package actions

import (
	"fmt"
	"reflect"
	"sort"
	"time"

	"gopkg.in/yaml.v3"
)

// Routine holds the entire routine definition from the YAML file
type Routine struct {
	RoutineName string       `yaml:"routine_name"`
	Description string       `yaml:"description,omitempty"`
	Tags        []string     `yaml:"tags,omitempty"`
	Steps       []ActionStep `yaml:"steps"`
}

// StepMetadata holds timeout and retry configuration for a step
type StepMetadata struct {
	Timeout     time.Duration // Timeout for the step (0 = no timeout)
	MaxAttempts int           // Maximum number of attempts (0 or 1 = no retries)
	RetryDelay  time.Duration // Delay between retries (0 = use default)
}

// HasMetadata returns true if any metadata is set
func (sm StepMetadata) HasMetadata() bool {
	return sm.Timeout > 0 || sm.MaxAttempts > 1 || sm.RetryDelay > 0
}

// ActionWithMetadata wraps an ActionStep with execution metadata
type ActionWithMetadata struct {
	Action   ActionStep
	Metadata StepMetadata
}

// Validate delegates to the wrapped action
func (a *ActionWithMetadata) Validate(ab *ActionBuilder) error {
	return a.Action.Validate(ab)
}

// Build delegates to the wrapped action and applies metadata to the built step
func (a *ActionWithMetadata) Build(ab *ActionBuilder) *ActionBuilder {
	ab = a.Action.Build(ab)

	if len(ab.steps) > 0 {
		lastStep := &ab.steps[len(ab.steps)-1]
		if a.Metadata.Timeout > 0 {
			lastStep.timeout = a.Metadata.Timeout
		}
		if a.Metadata.MaxAttempts > 1 {
			lastStep.maxAttempts = a.Metadata.MaxAttempts
		}
		if a.Metadata.RetryDelay > 0 {
			lastStep.retryDelay = a.Metadata.RetryDelay
		}
	}

	return ab
}

// UnmarshalYAML resolves each entry of 'steps' to its concrete ActionStep
// type through the action registry
func (r *Routine) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var raw map[string]interface{}
	if err := unmarshal(&raw); err != nil {
		return err
	}

	if name, ok := raw["routine_name"].(string); ok {
		r.RoutineName = name
	}
	if desc, ok := raw["description"].(string); ok {
		r.Description = desc
	}
	if tagsRaw, ok := raw["tags"].([]interface{}); ok {
		r.Tags = make([]string, 0, len(tagsRaw))
		for _, tag := range tagsRaw {
			if tagStr, ok := tag.(string); ok {
				r.Tags = append(r.Tags, tagStr)
			}
		}
	}

	stepsRaw, ok := raw["steps"]
	if !ok || stepsRaw == nil {
		// No steps is valid
		return nil
	}

	steps, err := unmarshalNestedActions(stepsRaw, "step")
	if err != nil {
		return err
	}
	r.Steps = steps
	return nil
}

// unmarshalNestedActions maps a raw YAML list onto concrete ActionStep types.
// label names the entries in error messages ("step", "action").
func unmarshalNestedActions(actionsRaw interface{}, label string) ([]ActionStep, error) {
	if actionsRaw == nil {
		return nil, nil
	}

	actionsSlice, ok := actionsRaw.([]interface{})
	if !ok {
		return nil, fmt.Errorf("'%ss' field must be a list", label)
	}

	actions := make([]ActionStep, len(actionsSlice))
	for i, item := range actionsSlice {
		rawStep, ok := item.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("%s %d: must be a map/object", label, i+1)
		}

		actionType, ok := rawStep["action"].(string)
		if !ok || actionType == "" {
			return nil, fmt.Errorf("%s %d: missing or invalid 'action' field", label, i+1)
		}

		// Step metadata is read before the step is decoded into its own type
		var metadata StepMetadata
		if timeoutMs, ok := rawStep["timeout"].(int); ok {
			metadata.Timeout = time.Duration(timeoutMs) * time.Millisecond
		}
		if maxAttempts, ok := rawStep["max_attempts"].(int); ok {
			metadata.MaxAttempts = maxAttempts
		}
		if retryDelayMs, ok := rawStep["retry_delay"].(int); ok {
			metadata.RetryDelay = time.Duration(retryDelayMs) * time.Millisecond
		}

		stepType, found := actionRegistry[normalizeActionName(actionType)]
		if !found {
			return nil, fmt.Errorf("%s %d: unknown action type '%s' (available types: %v)", label, i+1, actionType, getRegisteredActions())
		}

		action := reflect.New(stepType).Interface().(ActionStep)

		// Marshal the raw map back to YAML, then unmarshal it into the concrete struct
		stepBytes, err := yaml.Marshal(rawStep)
		if err != nil {
			return nil, fmt.Errorf("%s %d (%s): error marshaling raw step: %w", label, i+1, actionType, err)
		}
		if err := yaml.Unmarshal(stepBytes, action); err != nil {
			return nil, fmt.Errorf("%s %d (%s): error unmarshaling into %T: %w", label, i+1, actionType, action, err)
		}

		if metadata.HasMetadata() {
			actions[i] = &ActionWithMetadata{Action: action, Metadata: metadata}
		} else {
			actions[i] = action
		}
	}

	return actions, nil
}

// getRegisteredActions returns the registered action names for error messages
func getRegisteredActions() []string {
	actions := make([]string, 0, len(actionRegistry))
	for name := range actionRegistry {
		actions = append(actions, name)
	}
	sort.Strings(actions)
	return actions
}
