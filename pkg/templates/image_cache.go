package templates

import (
	"fmt"
	"image"
	"image/draw"
	"image/png"
	"os"
	"sync"

	"jordanella.com/escort-bot/internal/cv"
)

// CachedTemplate extends cv.Template with image caching capabilities
type CachedTemplate struct {
	cv.Template
	image       *image.RGBA
	mu          sync.RWMutex
	preload     bool
	unloadAfter bool
}

// ImageCache manages template image loading and caching
type ImageCache struct {
	templates map[string]*CachedTemplate
	mu        sync.RWMutex
	stats     CacheStats
}

// CacheStats tracks cache performance
type CacheStats struct {
	Hits        int64
	Misses      int64
	Loads       int64
	Unloads     int64
	PreloadFail int64
}

// NewImageCache creates a new image cache
func NewImageCache() *ImageCache {
	return &ImageCache{
		templates: make(map[string]*CachedTemplate),
	}
}

// Register adds a template to the cache, loading it now if preload is set
func (ic *ImageCache) Register(template cv.Template, preload, unloadAfter bool) error {
	ic.mu.Lock()
	defer ic.mu.Unlock()

	cached := &CachedTemplate{
		Template:    template,
		preload:     preload,
		unloadAfter: unloadAfter,
	}
	ic.templates[template.Name] = cached

	if preload {
		if _, err := cached.getOrLoad(); err != nil {
			ic.stats.PreloadFail++
			return fmt.Errorf("failed to preload template %s: %w", template.Name, err)
		}
		ic.stats.Loads++
	}
	return nil
}

// Get retrieves a template and its image, loading if necessary
func (ic *ImageCache) Get(name string) (*image.RGBA, cv.Template, error) {
	ic.mu.RLock()
	cached, ok := ic.templates[name]
	ic.mu.RUnlock()

	if !ok {
		return nil, cv.Template{}, fmt.Errorf("template '%s' not found in cache", name)
	}

	wasLoaded := cached.IsLoaded()
	img, err := cached.getOrLoad()
	if err != nil {
		return nil, cv.Template{}, err
	}

	ic.mu.Lock()
	if wasLoaded {
		ic.stats.Hits++
	} else {
		ic.stats.Misses++
		ic.stats.Loads++
	}
	ic.mu.Unlock()

	return img, cached.Template, nil
}

// Release unloads a template image if unloadAfter is set
func (ic *ImageCache) Release(name string) error {
	ic.mu.RLock()
	cached, ok := ic.templates[name]
	ic.mu.RUnlock()

	if !ok {
		return fmt.Errorf("template '%s' not found in cache", name)
	}

	if cached.unloadAfter {
		cached.unload()
		ic.mu.Lock()
		ic.stats.Unloads++
		ic.mu.Unlock()
	}
	return nil
}

// PreloadAll loads all templates marked for preloading
func (ic *ImageCache) PreloadAll() error {
	ic.mu.RLock()
	pending := make([]*CachedTemplate, 0, len(ic.templates))
	for _, t := range ic.templates {
		if t.preload {
			pending = append(pending, t)
		}
	}
	ic.mu.RUnlock()

	var failures []error
	for _, cached := range pending {
		_, err := cached.getOrLoad()
		ic.mu.Lock()
		if err != nil {
			failures = append(failures, fmt.Errorf("template %s: %w", cached.Name, err))
			ic.stats.PreloadFail++
		} else {
			ic.stats.Loads++
		}
		ic.mu.Unlock()
	}

	if len(failures) > 0 {
		return fmt.Errorf("failed to preload %d templates: %w", len(failures), failures[0])
	}
	return nil
}

// Stats returns cache statistics
func (ic *ImageCache) Stats() CacheStats {
	ic.mu.RLock()
	defer ic.mu.RUnlock()
	return ic.stats
}

func (ct *CachedTemplate) getOrLoad() (*image.RGBA, error) {
	ct.mu.RLock()
	if ct.image != nil {
		defer ct.mu.RUnlock()
		return ct.image, nil
	}
	ct.mu.RUnlock()

	ct.mu.Lock()
	defer ct.mu.Unlock()
	if ct.image != nil {
		return ct.image, nil
	}

	file, err := os.Open(ct.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open template: %w", err)
	}
	defer file.Close()

	img, err := png.Decode(file)
	if err != nil {
		return nil, fmt.Errorf("failed to decode template: %w", err)
	}

	bounds := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(rgba, rgba.Bounds(), img, bounds.Min, draw.Src)

	ct.image = rgba
	return ct.image, nil
}

func (ct *CachedTemplate) unload() {
	ct.mu.Lock()
	defer ct.mu.Unlock()
	ct.image = nil
}

// IsLoaded returns true if the image is currently in memory
func (ct *CachedTemplate) IsLoaded() bool {
	ct.mu.RLock()
	defer ct.mu.RUnlock()
	return ct.image != nil
}
