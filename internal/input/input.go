// Package input injects keyboard and mouse events into the game window.
package input

import (
	"errors"
	"image"
)

// ErrUnsupported is returned by the stub implementation on platforms without injection
var ErrUnsupported = errors.New("input injection not supported on this platform")

// Button names a mouse button as it appears in recordings
type Button string

const (
	ButtonLeft   Button = "left"
	ButtonRight  Button = "right"
	ButtonMiddle Button = "middle"
)

// Injector sends synthetic input to whatever window has focus
type Injector interface {
	KeyDown(key string) error
	KeyUp(key string) error
	MouseDown(button Button) error
	MouseUp(button Button) error
	// MoveRelative moves the cursor by a raw delta, the way a physical mouse does
	MoveRelative(dx, dy int) error
	// MoveAbsolute places the cursor at screen coordinates
	MoveAbsolute(x, y int) error
}

// Window is the game window's foreground and geometry capability
type Window interface {
	BringToFront() error
	// ClientToScreen converts client-area coordinates to screen coordinates
	ClientToScreen(p image.Point) (image.Point, error)
	// Size returns the client-area size
	Size() (width, height int, err error)
}

// Press sends a key down followed by a key up
func Press(inj Injector, key string) error {
	if err := inj.KeyDown(key); err != nil {
		return err
	}
	return inj.KeyUp(key)
}

// ClickAt moves to a client point of win and clicks button there
func ClickAt(inj Injector, win Window, p image.Point, button Button) error {
	screen, err := win.ClientToScreen(p)
	if err != nil {
		return err
	}
	if err := inj.MoveAbsolute(screen.X, screen.Y); err != nil {
		return err
	}
	if err := inj.MouseDown(button); err != nil {
		return err
	}
	return inj.MouseUp(button)
}
