package actions

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type RoutineLoader struct {
	templateRegistry TemplateRegistryInterface // Optional: for build-time validation
}

func NewRoutineLoader() *RoutineLoader {
	return &RoutineLoader{}
}

// WithTemplateRegistry sets the template registry for build-time validation
func (rl *RoutineLoader) WithTemplateRegistry(registry TemplateRegistryInterface) *RoutineLoader {
	rl.templateRegistry = registry
	return rl
}

// LoadFromFile reads a YAML file and builds the executable routine
func (rl *RoutineLoader) LoadFromFile(filepath string) (*ActionBuilder, error) {
	builder, _, err := rl.loadFile(filepath)
	return builder, err
}

func (rl *RoutineLoader) loadFile(filepath string) (*ActionBuilder, *Routine, error) {
	data, err := os.ReadFile(filepath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read routine file %s: %w", filepath, err)
	}
	return rl.Load(data)
}

// Load unmarshals a routine, validates every step and builds it
func (rl *RoutineLoader) Load(data []byte) (*ActionBuilder, *Routine, error) {
	var routine Routine
	if err := yaml.Unmarshal(data, &routine); err != nil {
		return nil, nil, fmt.Errorf("failed to unmarshal routine YAML: %w", err)
	}

	ab := NewActionBuilder()
	if rl.templateRegistry != nil {
		ab.WithTemplateRegistry(rl.templateRegistry)
	}

	// Validation and building share one builder so nested steps see the registry
	for i, action := range routine.Steps {
		if err := action.Validate(ab); err != nil {
			return nil, nil, fmt.Errorf("routine '%s' step %d validation failed: %w", routine.RoutineName, i+1, err)
		}
		ab = action.Build(ab)
	}

	return ab, &routine, nil
}
