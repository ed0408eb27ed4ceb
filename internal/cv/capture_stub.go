//go:build !windows

package cv

import (
	"fmt"
	"image"
)

// WindowCapture is unavailable off Windows; use DisplayCapture instead
type WindowCapture struct{}

// NewWindowCapture always fails on this platform
func NewWindowCapture(hwnd uintptr) (*WindowCapture, error) {
	return nil, fmt.Errorf("window capture not supported on this platform")
}

// CaptureFrame always fails on this platform
func (wc *WindowCapture) CaptureFrame() (*image.RGBA, error) {
	return nil, fmt.Errorf("window capture not supported on this platform")
}

// GetDimensions returns zero on this platform
func (wc *WindowCapture) GetDimensions() (width, height int) {
	return 0, 0
}
