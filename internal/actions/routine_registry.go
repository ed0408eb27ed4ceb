package actions

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"jordanella.com/escort-bot/internal/logging"
)

// RoutineMetadata stores information about a routine
type RoutineMetadata struct {
	Filename    string   // e.g., "abandon_mission"
	DisplayName string   // routine_name from the file
	Description string
	Tags        []string
}

// RoutineRegistry loads every routine under a folder up front. Names are
// paths relative to the folder without extension, e.g. "menus/abandon".
type RoutineRegistry struct {
	mu               sync.RWMutex
	templateRegistry TemplateRegistryInterface
	routinesPath     string
	logger           *logging.Logger

	routines         map[string]*ActionBuilder
	metadata         map[string]*RoutineMetadata
	validationErrors map[string]error
}

// NewRoutineRegistry creates a registry for routinesPath. Nothing is loaded
// until Load is called.
func NewRoutineRegistry(routinesPath string) *RoutineRegistry {
	return &RoutineRegistry{
		routinesPath:     routinesPath,
		logger:           logging.NewLogger("RoutineRegistry"),
		routines:         make(map[string]*ActionBuilder),
		metadata:         make(map[string]*RoutineMetadata),
		validationErrors: make(map[string]error),
	}
}

// WithTemplateRegistry validates template names while loading
func (rr *RoutineRegistry) WithTemplateRegistry(registry TemplateRegistryInterface) *RoutineRegistry {
	rr.mu.Lock()
	defer rr.mu.Unlock()
	rr.templateRegistry = registry
	return rr
}

// Load discovers and builds every routine. Invalid routines are recorded
// and skipped; only a missing or unreadable folder is an error.
func (rr *RoutineRegistry) Load() error {
	rr.mu.Lock()
	defer rr.mu.Unlock()

	if _, err := os.Stat(rr.routinesPath); err != nil {
		return fmt.Errorf("routines folder %s: %w", rr.routinesPath, err)
	}

	loader := NewRoutineLoader()
	if rr.templateRegistry != nil {
		loader.WithTemplateRegistry(rr.templateRegistry)
	}

	err := filepath.Walk(rr.routinesPath, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		ext := filepath.Ext(path)
		if ext != ".yaml" && ext != ".yml" {
			return nil
		}

		relPath, err := filepath.Rel(rr.routinesPath, path)
		if err != nil {
			return err
		}
		name := filepath.ToSlash(relPath[:len(relPath)-len(ext)])

		builder, routine, err := loader.loadFile(path)
		if err != nil {
			rr.validationErrors[name] = err
			delete(rr.routines, name)
			return nil
		}

		rr.routines[name] = builder
		delete(rr.validationErrors, name)
		rr.metadata[name] = &RoutineMetadata{
			Filename:    name,
			DisplayName: routine.RoutineName,
			Description: routine.Description,
			Tags:        routine.Tags,
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to scan routines: %w", err)
	}

	rr.logger.Info(fmt.Sprintf("Loaded %d valid routine(s), %d invalid routine(s) from %s",
		len(rr.routines), len(rr.validationErrors), rr.routinesPath))
	for name, verr := range rr.validationErrors {
		rr.logger.Warn(fmt.Sprintf("Invalid routine '%s': %v", name, verr))
	}
	return nil
}

// Get returns the built routine for name
func (rr *RoutineRegistry) Get(name string) (*ActionBuilder, error) {
	rr.mu.RLock()
	defer rr.mu.RUnlock()

	if builder, ok := rr.routines[name]; ok {
		return builder, nil
	}
	if err, ok := rr.validationErrors[name]; ok {
		return nil, fmt.Errorf("routine '%s' is invalid: %w", name, err)
	}
	return nil, fmt.Errorf("routine '%s' not found", name)
}

// Has reports whether a valid routine named name exists
func (rr *RoutineRegistry) Has(name string) bool {
	rr.mu.RLock()
	defer rr.mu.RUnlock()
	_, ok := rr.routines[name]
	return ok
}

// Metadata returns the descriptive fields of a loaded routine
func (rr *RoutineRegistry) Metadata(name string) (*RoutineMetadata, bool) {
	rr.mu.RLock()
	defer rr.mu.RUnlock()
	m, ok := rr.metadata[name]
	return m, ok
}

// ListValid returns valid routine names in sorted order
func (rr *RoutineRegistry) ListValid() []string {
	rr.mu.RLock()
	defer rr.mu.RUnlock()
	return sortedKeys(rr.routines)
}

// ListInvalid returns the names of routines that failed validation
func (rr *RoutineRegistry) ListInvalid() []string {
	rr.mu.RLock()
	defer rr.mu.RUnlock()
	return sortedKeys(rr.validationErrors)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
