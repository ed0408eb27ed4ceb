package cv

import (
	"image"
)

// Capturer interface for different capture methods
type Capturer interface {
	CaptureFrame() (*image.RGBA, error)
	GetDimensions() (width, height int)
}

// CaptureMethod defines how frames are captured
type CaptureMethod int

const (
	// CaptureMethodWindow captures the game window's client area (Windows only)
	CaptureMethodWindow CaptureMethod = iota
	// CaptureMethodDisplay captures a whole display
	CaptureMethodDisplay
)

// ParseCaptureMethod maps a settings value to a CaptureMethod
func ParseCaptureMethod(s string) CaptureMethod {
	if s == "display" {
		return CaptureMethodDisplay
	}
	return CaptureMethodWindow
}
