package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"jordanella.com/escort-bot/internal/cv"
	"jordanella.com/escort-bot/internal/escort"
)

// Routes describes the escort route layout: which sequence opens every
// attempt and where the position marker sits for each branch
type Routes struct {
	InitialSequence string                  `yaml:"initial_sequence"`
	MarkerKey       string                  `yaml:"marker_key"`
	BaseWidth       int                     `yaml:"base_width"`
	BaseHeight      int                     `yaml:"base_height"`
	ReferencePoints []escort.ReferencePoint `yaml:"reference_points"`
}

func DefaultRoutes() *Routes {
	return &Routes{
		InitialSequence: "ESCORT_PATH_A",
		MarkerKey:       "f",
		BaseWidth:       cv.DefaultBaseWidth,
		BaseHeight:      cv.DefaultBaseHeight,
		ReferencePoints: escort.DefaultReferencePoints(),
	}
}

// LoadRoutes reads a routes file. A missing file yields the default layout;
// fields left out of the file keep their defaults.
func LoadRoutes(path string) (*Routes, error) {
	routes := DefaultRoutes()

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return routes, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read routes file: %w", err)
	}

	var file Routes
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse routes file %s: %w", path, err)
	}
	if file.InitialSequence != "" {
		routes.InitialSequence = file.InitialSequence
	}
	if file.MarkerKey != "" {
		routes.MarkerKey = file.MarkerKey
	}
	if file.BaseWidth > 0 && file.BaseHeight > 0 {
		routes.BaseWidth, routes.BaseHeight = file.BaseWidth, file.BaseHeight
	}
	if len(file.ReferencePoints) > 0 {
		routes.ReferencePoints = file.ReferencePoints
	}

	if err := routes.Validate(); err != nil {
		return nil, fmt.Errorf("routes file %s: %w", path, err)
	}
	return routes, nil
}

// Validate checks that every branch has a distinct id and a sequence name
func (r *Routes) Validate() error {
	seen := make(map[int]bool, len(r.ReferencePoints))
	for i, p := range r.ReferencePoints {
		if p.Name == "" {
			return fmt.Errorf("reference point %d: sequence is required", i+1)
		}
		if seen[p.PathID] {
			return fmt.Errorf("reference point %d: duplicate id %d", i+1, p.PathID)
		}
		if p.X < 0 || p.Y < 0 || p.X >= r.BaseWidth || p.Y >= r.BaseHeight {
			return fmt.Errorf("reference point %d: (%d,%d) outside %dx%d", i+1, p.X, p.Y, r.BaseWidth, r.BaseHeight)
		}
		seen[p.PathID] = true
	}
	return nil
}

// Save writes the layout back as YAML
func (r *Routes) Save(path string) error {
	data, err := yaml.Marshal(r)
	if err != nil {
		return fmt.Errorf("failed to marshal routes: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}
