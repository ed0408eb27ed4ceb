package actions

import (
	"image"

	"jordanella.com/escort-bot/internal/cv"
	"jordanella.com/escort-bot/internal/input"
)

// Vision is the detection capability that steps need
type Vision interface {
	Refresh() (*image.RGBA, error)
	Detect(name string, region *cv.Region, threshold float64) (*cv.Box, error)
	// ScaleRegion maps base-resolution coordinates onto the current frame
	ScaleRegion(r cv.Region) (cv.Region, error)
}

// Runtime defines the capabilities that actions need at execution time.
// Routines are built once and can be executed against any Runtime.
type Runtime interface {
	Input() input.Injector
	Window() input.Window
	CV() Vision
}

// TemplateRegistryInterface is used to validate template names at build time
type TemplateRegistryInterface interface {
	Has(name string) bool
}
