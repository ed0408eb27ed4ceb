//go:build !windows

package input

import "image"

// stubInjector reports ErrUnsupported for every call
type stubInjector struct{}

// NewInjector returns the platform injector
func NewInjector() Injector {
	return stubInjector{}
}

func (stubInjector) KeyDown(string) error { return ErrUnsupported }
func (stubInjector) KeyUp(string) error { return ErrUnsupported }
func (stubInjector) MouseDown(Button) error { return ErrUnsupported }
func (stubInjector) MouseUp(Button) error { return ErrUnsupported }
func (stubInjector) MoveRelative(int, int) error { return ErrUnsupported }
func (stubInjector) MoveAbsolute(int, int) error { return ErrUnsupported }

// GameWindow is unavailable off Windows
type GameWindow struct{}

// FindWindow always fails on this platform
func FindWindow(title string) (*GameWindow, error) {
	return nil, ErrUnsupported
}

func (w *GameWindow) Handle() uintptr { return 0 }

func (w *GameWindow) IsForeground() bool { return false }

func (w *GameWindow) BringToFront() error { return ErrUnsupported }

func (w *GameWindow) ClientToScreen(p image.Point) (image.Point, error) {
	return image.Point{}, ErrUnsupported
}

func (w *GameWindow) Size() (int, int, error) { return 0, 0, ErrUnsupported }
