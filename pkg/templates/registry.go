package templates

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
	"jordanella.com/escort-bot/internal/cv"
)

// TemplateRegistry manages a dynamic collection of templates loaded from YAML files
type TemplateRegistry struct {
	mu         sync.RWMutex
	templates  map[string]cv.Template
	basePath   string      // Base path for template image files
	imageCache *ImageCache // Optional: for caching loaded images
}

// TemplateDefinition represents a template in the YAML file
type TemplateDefinition struct {
	Name        string     `yaml:"name"`
	Path        string     `yaml:"path"`
	Threshold   float64    `yaml:"threshold"`
	Region      *RegionDef `yaml:"region,omitempty"`       // base-resolution coordinates
	Preload     bool       `yaml:"preload,omitempty"`      // Load image at startup
	UnloadAfter bool       `yaml:"unload_after,omitempty"` // Unload after use
}

// RegionDef represents a region in the YAML file
type RegionDef struct {
	X1 int `yaml:"x1"`
	Y1 int `yaml:"y1"`
	X2 int `yaml:"x2"`
	Y2 int `yaml:"y2"`
}

// TemplateFile represents the structure of a template YAML file
type TemplateFile struct {
	Templates []TemplateDefinition `yaml:"templates"`
}

// NewTemplateRegistry creates a new template registry
// basePath is the root directory where template image files are stored
func NewTemplateRegistry(basePath string) *TemplateRegistry {
	return &TemplateRegistry{
		templates:  make(map[string]cv.Template),
		basePath:   basePath,
		imageCache: NewImageCache(),
	}
}

// WithoutImageCache disables image caching for this registry
func (tr *TemplateRegistry) WithoutImageCache() *TemplateRegistry {
	tr.imageCache = nil
	return tr
}

// LoadFromFile loads templates from a YAML file
func (tr *TemplateRegistry) LoadFromFile(filePath string) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("failed to read template file %s: %w", filePath, err)
	}

	var templateFile TemplateFile
	if err := yaml.Unmarshal(data, &templateFile); err != nil {
		return fmt.Errorf("failed to unmarshal template YAML: %w", err)
	}

	tr.mu.Lock()
	defer tr.mu.Unlock()

	for i, def := range templateFile.Templates {
		if def.Name == "" {
			return fmt.Errorf("template %d: name cannot be empty", i+1)
		}
		if def.Path == "" {
			return fmt.Errorf("template %d (%s): path cannot be empty", i+1, def.Name)
		}

		template := cv.Template{
			Name:      def.Name,
			Path:      filepath.Join(tr.basePath, def.Path),
			Threshold: def.Threshold,
		}
		if def.Region != nil {
			region := cv.NewRegion(def.Region.X1, def.Region.Y1, def.Region.X2, def.Region.Y2)
			template.Region = &region
		}
		if template.Threshold == 0 {
			template.Threshold = 0.8
		}

		tr.templates[def.Name] = template

		if tr.imageCache != nil {
			if err := tr.imageCache.Register(template, def.Preload, def.UnloadAfter); err != nil {
				// The image can still be loaded on demand
				fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
			}
		}
	}

	return nil
}

// LoadFromDirectory loads all YAML files from a directory
func (tr *TemplateRegistry) LoadFromDirectory(dirPath string) error {
	entries, err := os.ReadDir(dirPath)
	if err != nil {
		return fmt.Errorf("failed to read template directory %s: %w", dirPath, err)
	}

	var loadErrors []error
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := filepath.Ext(entry.Name())
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		if err := tr.LoadFromFile(filepath.Join(dirPath, entry.Name())); err != nil {
			loadErrors = append(loadErrors, fmt.Errorf("file %s: %w", entry.Name(), err))
		}
	}

	if len(loadErrors) > 0 {
		return fmt.Errorf("failed to load %d template files (first error): %w", len(loadErrors), loadErrors[0])
	}
	return nil
}

// Get retrieves a template by name
func (tr *TemplateRegistry) Get(name string) (cv.Template, bool) {
	tr.mu.RLock()
	defer tr.mu.RUnlock()

	template, ok := tr.templates[name]
	return template, ok
}

// Register adds a template to the registry programmatically
func (tr *TemplateRegistry) Register(template cv.Template) error {
	if template.Name == "" {
		return fmt.Errorf("template name cannot be empty")
	}

	tr.mu.Lock()
	defer tr.mu.Unlock()

	tr.templates[template.Name] = template
	if tr.imageCache != nil {
		return tr.imageCache.Register(template, false, false)
	}
	return nil
}

// Has checks if a template exists in the registry
func (tr *TemplateRegistry) Has(name string) bool {
	tr.mu.RLock()
	defer tr.mu.RUnlock()

	_, ok := tr.templates[name]
	return ok
}

// List returns all template names in sorted order
func (tr *TemplateRegistry) List() []string {
	return tr.WithPrefix("")
}

// WithPrefix returns the sorted names starting with prefix, e.g. "puzzle_"
func (tr *TemplateRegistry) WithPrefix(prefix string) []string {
	tr.mu.RLock()
	defer tr.mu.RUnlock()

	names := make([]string, 0, len(tr.templates))
	for name := range tr.templates {
		if strings.HasPrefix(name, prefix) {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// Count returns the number of templates in the registry
func (tr *TemplateRegistry) Count() int {
	tr.mu.RLock()
	defer tr.mu.RUnlock()

	return len(tr.templates)
}

// ImageCache returns the image cache, or nil when caching is disabled
func (tr *TemplateRegistry) ImageCache() cv.ImageCacheInterface {
	if tr.imageCache == nil {
		return nil
	}
	return tr.imageCache
}

// PreloadAll preloads all templates marked for preloading
func (tr *TemplateRegistry) PreloadAll() error {
	if tr.imageCache == nil {
		return fmt.Errorf("image cache not enabled")
	}
	return tr.imageCache.PreloadAll()
}

// CacheStats returns image cache statistics
func (tr *TemplateRegistry) CacheStats() CacheStats {
	if tr.imageCache == nil {
		return CacheStats{}
	}
	return tr.imageCache.Stats()
}
