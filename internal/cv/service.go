package cv

import (
	"context"
	"fmt"
	"image"
	"image/draw"
	"image/png"
	"os"
	"sync"
	"time"

	"github.com/nfnt/resize"
)

// Templates and regions are authored against a 4K client area by default
const (
	DefaultBaseWidth  = 3840
	DefaultBaseHeight = 2160
)

// TemplateRegistryInterface defines interface for template registry access
type TemplateRegistryInterface interface {
	Get(name string) (Template, bool)
	ImageCache() ImageCacheInterface
}

// ImageCacheInterface defines interface for image cache access
type ImageCacheInterface interface {
	Get(name string) (*image.RGBA, Template, error)
	Release(name string) error
}

// ResizeListener is told the new frame size whenever it changes
type ResizeListener func(width, height int)

type scaledKey struct {
	name  string
	width int
}

// Service handles all computer vision operations
type Service struct {
	capturer         Capturer
	templateRegistry TemplateRegistryInterface
	baseWidth        int
	baseHeight       int

	// Frame caching
	cachedFrame     *image.RGBA
	cachedFrameTime time.Time
	cacheDuration   time.Duration

	lastSize        image.Point
	resizeListeners []ResizeListener

	templateCache map[string]*image.RGBA
	scaledCache   map[scaledKey]*image.RGBA

	mu sync.RWMutex
}

// NewService creates a new CV service
func NewService(capturer Capturer) *Service {
	return &Service{
		capturer:      capturer,
		baseWidth:     DefaultBaseWidth,
		baseHeight:    DefaultBaseHeight,
		cacheDuration: 100 * time.Millisecond,
		templateCache: make(map[string]*image.RGBA),
		scaledCache:   make(map[scaledKey]*image.RGBA),
	}
}

// WithTemplateRegistry sets the template registry for image lookup
func (s *Service) WithTemplateRegistry(registry TemplateRegistryInterface) *Service {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.templateRegistry = registry
	return s
}

// WithCacheDuration sets how long a captured frame is reused
func (s *Service) WithCacheDuration(d time.Duration) *Service {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cacheDuration = d
	return s
}

// WithBaseResolution sets the resolution templates and regions are authored at
func (s *Service) WithBaseResolution(width, height int) *Service {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.baseWidth, s.baseHeight = width, height
	s.scaledCache = make(map[scaledKey]*image.RGBA)
	return s
}

// BaseResolution returns the authoring resolution
func (s *Service) BaseResolution() (width, height int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.baseWidth, s.baseHeight
}

// OnFrameResize registers a listener for frame size changes
func (s *Service) OnFrameResize(listener ResizeListener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resizeListeners = append(s.resizeListeners, listener)
}

// CaptureFrame captures current window frame with optional caching
func (s *Service) CaptureFrame(useCache bool) (*image.RGBA, error) {
	s.mu.Lock()
	if useCache && s.cachedFrame != nil && time.Since(s.cachedFrameTime) < s.cacheDuration {
		frame := s.cachedFrame
		s.mu.Unlock()
		return frame, nil
	}

	frame, err := s.capturer.CaptureFrame()
	if err != nil {
		s.mu.Unlock()
		return nil, fmt.Errorf("failed to capture frame: %w", err)
	}

	s.cachedFrame = frame
	s.cachedFrameTime = time.Now()

	size := frame.Bounds().Size()
	var notify []ResizeListener
	if s.lastSize != size {
		if s.lastSize != (image.Point{}) {
			notify = append(notify, s.resizeListeners...)
			s.scaledCache = make(map[scaledKey]*image.RGBA)
		}
		s.lastSize = size
	}
	s.mu.Unlock()

	for _, listener := range notify {
		listener(size.X, size.Y)
	}
	return frame, nil
}

// Refresh discards the cached frame and captures a new one
func (s *Service) Refresh() (*image.RGBA, error) {
	s.InvalidateCache()
	return s.CaptureFrame(true)
}

// InvalidateCache forces next capture to get fresh frame
func (s *Service) InvalidateCache() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cachedFrame = nil
}

// FrameSize returns the size of the current frame
func (s *Service) FrameSize() (width, height int, err error) {
	frame, err := s.CaptureFrame(true)
	if err != nil {
		return 0, 0, err
	}
	size := frame.Bounds().Size()
	return size.X, size.Y, nil
}

// ScaleRegion maps a base-resolution region onto the current frame
func (s *Service) ScaleRegion(r Region) (Region, error) {
	w, h, err := s.FrameSize()
	if err != nil {
		return Region{}, err
	}
	bw, bh := s.BaseResolution()
	return r.Scale(bw, bh, w, h), nil
}

// Detect looks for a named template. region is in frame coordinates; nil uses the
// template's own region scaled from the base resolution. threshold <= 0 uses the
// template's threshold.
func (s *Service) Detect(name string, region *Region, threshold float64) (*Box, error) {
	config, err := s.matchConfig(name, region, threshold)
	if err != nil {
		return nil, err
	}
	result, err := s.FindTemplate(name, config)
	if err != nil {
		return nil, err
	}
	if !result.Found {
		return nil, nil
	}
	return result.Box(name), nil
}

// FindBestMatch returns the first of names found above threshold, checked in order
func (s *Service) FindBestMatch(names []string, region *Region, threshold float64) (*Box, error) {
	for _, name := range names {
		box, err := s.Detect(name, region, threshold)
		if err != nil {
			return nil, fmt.Errorf("template %s: %w", name, err)
		}
		if box != nil {
			return box, nil
		}
	}
	return nil, nil
}

func (s *Service) matchConfig(name string, region *Region, threshold float64) (*MatchConfig, error) {
	config := DefaultMatchConfig()

	s.mu.RLock()
	registry := s.templateRegistry
	s.mu.RUnlock()

	var tmpl Template
	var ok bool
	if registry != nil {
		tmpl, ok = registry.Get(name)
	}
	if ok && tmpl.Threshold > 0 {
		config.Threshold = tmpl.Threshold
	}
	if threshold > 0 {
		config.Threshold = threshold
	}

	switch {
	case region != nil:
		config.SearchRegion = region.ToImageRectangle()
	case ok && tmpl.Region != nil:
		scaled, err := s.ScaleRegion(*tmpl.Region)
		if err != nil {
			return nil, err
		}
		config.SearchRegion = scaled.ToImageRectangle()
	}
	return config, nil
}

// FindTemplate finds a template by name in the current frame
func (s *Service) FindTemplate(templateName string, config *MatchConfig) (*MatchResult, error) {
	frame, err := s.CaptureFrame(true)
	if err != nil {
		return nil, err
	}

	template, err := s.scaledTemplate(templateName, frame.Bounds().Dx())
	if err != nil {
		return nil, fmt.Errorf("failed to load template: %w", err)
	}

	return FindTemplate(frame, template, config), nil
}

// WaitForTemplate polls until the template appears, the timeout passes or ctx ends
func (s *Service) WaitForTemplate(ctx context.Context, templateName string, config *MatchConfig, timeout time.Duration) (*MatchResult, error) {
	deadline := time.Now().Add(timeout)
	for {
		s.InvalidateCache()
		result, err := s.FindTemplate(templateName, config)
		if err != nil {
			return nil, err
		}
		if result.Found {
			return result, nil
		}
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("template %s not found within %v", templateName, timeout)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(50 * time.Millisecond):
		}
	}
}

// RegisterTemplateImage injects a template image directly, bypassing the registry
func (s *Service) RegisterTemplateImage(name string, img *image.RGBA) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.templateCache[name] = img
	for key := range s.scaledCache {
		if key.name == name {
			delete(s.scaledCache, key)
		}
	}
}

// ClearTemplateCache clears template cache (useful if templates change)
func (s *Service) ClearTemplateCache() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.templateCache = make(map[string]*image.RGBA)
	s.scaledCache = make(map[scaledKey]*image.RGBA)
}

// scaledTemplate returns the template resized for a frame of frameWidth pixels
func (s *Service) scaledTemplate(name string, frameWidth int) (*image.RGBA, error) {
	key := scaledKey{name: name, width: frameWidth}

	s.mu.RLock()
	cached, ok := s.scaledCache[key]
	baseWidth := s.baseWidth
	s.mu.RUnlock()
	if ok {
		return cached, nil
	}

	img, err := s.loadTemplate(name)
	if err != nil {
		return nil, err
	}

	if frameWidth != baseWidth && baseWidth > 0 {
		factor := float64(frameWidth) / float64(baseWidth)
		w := uint(float64(img.Bounds().Dx())*factor + 0.5)
		h := uint(float64(img.Bounds().Dy())*factor + 0.5)
		if w == 0 || h == 0 {
			return nil, fmt.Errorf("template %s scales to an empty image", name)
		}
		img = toRGBA(resize.Resize(w, h, img, resize.Bilinear))
	}

	s.mu.Lock()
	s.scaledCache[key] = img
	s.mu.Unlock()
	return img, nil
}

func (s *Service) loadTemplate(templateName string) (*image.RGBA, error) {
	s.mu.RLock()
	if cached, ok := s.templateCache[templateName]; ok {
		s.mu.RUnlock()
		return cached, nil
	}
	registry := s.templateRegistry
	s.mu.RUnlock()

	if registry == nil {
		return nil, fmt.Errorf("template '%s' not registered", templateName)
	}

	if imageCache := registry.ImageCache(); imageCache != nil {
		if img, _, err := imageCache.Get(templateName); err == nil {
			s.mu.Lock()
			s.templateCache[templateName] = img
			s.mu.Unlock()
			return img, nil
		}
	}

	template, ok := registry.Get(templateName)
	if !ok {
		return nil, fmt.Errorf("template '%s' not found in registry", templateName)
	}

	file, err := os.Open(template.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open template file %s: %w", template.Path, err)
	}
	defer file.Close()

	decoded, err := png.Decode(file)
	if err != nil {
		return nil, fmt.Errorf("failed to decode template: %w", err)
	}

	rgba := toRGBA(decoded)
	s.mu.Lock()
	s.templateCache[templateName] = rgba
	s.mu.Unlock()
	return rgba, nil
}

func toRGBA(img image.Image) *image.RGBA {
	if r, ok := img.(*image.RGBA); ok && r.Bounds().Min == (image.Point{}) {
		return r
	}
	b := img.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(out, out.Bounds(), img, b.Min, draw.Src)
	return out
}
