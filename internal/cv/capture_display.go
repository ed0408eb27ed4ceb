package cv

import (
	"fmt"
	"image"

	"github.com/kbinani/screenshot"
)

// DisplayCapture grabs a full display, used when the game runs borderless fullscreen
type DisplayCapture struct {
	display int
	bounds  image.Rectangle
}

// NewDisplayCapture creates a capturer for display index n
func NewDisplayCapture(n int) (*DisplayCapture, error) {
	if count := screenshot.NumActiveDisplays(); n < 0 || n >= count {
		return nil, fmt.Errorf("display %d not available (%d active)", n, count)
	}
	return &DisplayCapture{
		display: n,
		bounds:  screenshot.GetDisplayBounds(n),
	}, nil
}

// CaptureFrame captures the display and rebases it to (0,0)
func (dc *DisplayCapture) CaptureFrame() (*image.RGBA, error) {
	dc.bounds = screenshot.GetDisplayBounds(dc.display)
	img, err := screenshot.CaptureRect(dc.bounds)
	if err != nil {
		return nil, fmt.Errorf("failed to capture display %d: %w", dc.display, err)
	}
	if img.Bounds().Min != (image.Point{}) {
		rebased := image.NewRGBA(image.Rect(0, 0, img.Bounds().Dx(), img.Bounds().Dy()))
		copy(rebased.Pix, img.Pix)
		img = rebased
	}
	return img, nil
}

// GetDimensions returns the display size
func (dc *DisplayCapture) GetDimensions() (width, height int) {
	return dc.bounds.Dx(), dc.bounds.Dy()
}
