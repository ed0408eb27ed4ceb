//go:build windows

package input

import (
	"fmt"
	"image"
	"syscall"
	"unsafe"

	"github.com/lxn/win"
	"golang.org/x/sys/windows"
)

var (
	user32             = windows.NewLazySystemDLL("user32.dll")
	procMapVirtualKeyW = user32.NewProc("MapVirtualKeyW")
)

const mapvkVKToVSC = 0

// SendInputInjector injects events with SendInput using scan codes, which
// games reading DirectInput accept
type SendInputInjector struct{}

// NewInjector returns the platform injector
func NewInjector() Injector {
	return &SendInputInjector{}
}

func (s *SendInputInjector) KeyDown(key string) error {
	return s.sendKey(key, 0)
}

func (s *SendInputInjector) KeyUp(key string) error {
	return s.sendKey(key, win.KEYEVENTF_KEYUP)
}

func (s *SendInputInjector) sendKey(key string, flags uint32) error {
	vk, err := VirtualKey(key)
	if err != nil {
		return err
	}
	scan, _, _ := procMapVirtualKeyW.Call(uintptr(vk), mapvkVKToVSC)

	in := win.KEYBD_INPUT{
		Type: win.INPUT_KEYBOARD,
		Ki: win.KEYBDINPUT{
			WVk:     vk,
			WScan:   uint16(scan),
			DwFlags: flags | win.KEYEVENTF_SCANCODE,
		},
	}
	if isExtended(vk) {
		in.Ki.DwFlags |= win.KEYEVENTF_EXTENDEDKEY
	}
	if n := win.SendInput(1, unsafe.Pointer(&in), int32(unsafe.Sizeof(in))); n != 1 {
		return fmt.Errorf("SendInput key %s: %w", key, syscall.GetLastError())
	}
	return nil
}

func (s *SendInputInjector) MouseDown(button Button) error {
	flags, err := buttonFlags(button, true)
	if err != nil {
		return err
	}
	return s.sendMouse(0, 0, flags)
}

func (s *SendInputInjector) MouseUp(button Button) error {
	flags, err := buttonFlags(button, false)
	if err != nil {
		return err
	}
	return s.sendMouse(0, 0, flags)
}

func (s *SendInputInjector) MoveRelative(dx, dy int) error {
	return s.sendMouse(int32(dx), int32(dy), win.MOUSEEVENTF_MOVE)
}

func (s *SendInputInjector) MoveAbsolute(x, y int) error {
	if !win.SetCursorPos(int32(x), int32(y)) {
		return fmt.Errorf("SetCursorPos(%d, %d) failed", x, y)
	}
	return nil
}

func (s *SendInputInjector) sendMouse(dx, dy int32, flags uint32) error {
	in := win.MOUSE_INPUT{
		Type: win.INPUT_MOUSE,
		Mi: win.MOUSEINPUT{
			Dx:      dx,
			Dy:      dy,
			DwFlags: flags,
		},
	}
	if n := win.SendInput(1, unsafe.Pointer(&in), int32(unsafe.Sizeof(in))); n != 1 {
		return fmt.Errorf("SendInput mouse: %w", syscall.GetLastError())
	}
	return nil
}

func buttonFlags(button Button, down bool) (uint32, error) {
	switch button {
	case ButtonLeft, "":
		if down {
			return win.MOUSEEVENTF_LEFTDOWN, nil
		}
		return win.MOUSEEVENTF_LEFTUP, nil
	case ButtonRight:
		if down {
			return win.MOUSEEVENTF_RIGHTDOWN, nil
		}
		return win.MOUSEEVENTF_RIGHTUP, nil
	case ButtonMiddle:
		if down {
			return win.MOUSEEVENTF_MIDDLEDOWN, nil
		}
		return win.MOUSEEVENTF_MIDDLEUP, nil
	}
	return 0, fmt.Errorf("unknown mouse button %q", button)
}

func isExtended(vk uint16) bool {
	switch vk {
	case win.VK_LEFT, win.VK_UP, win.VK_RIGHT, win.VK_DOWN,
		win.VK_INSERT, win.VK_DELETE, win.VK_HOME, win.VK_END,
		win.VK_PRIOR, win.VK_NEXT, win.VK_RCONTROL, win.VK_RMENU:
		return true
	}
	return false
}

// GameWindow is a top-level window found by title
type GameWindow struct {
	hwnd win.HWND
}

// FindWindow locates a top-level window by its exact title
func FindWindow(title string) (*GameWindow, error) {
	name, err := syscall.UTF16PtrFromString(title)
	if err != nil {
		return nil, err
	}
	hwnd := win.FindWindow(nil, name)
	if hwnd == 0 {
		return nil, fmt.Errorf("window %q not found", title)
	}
	return &GameWindow{hwnd: hwnd}, nil
}

// Handle returns the raw window handle for capture
func (w *GameWindow) Handle() uintptr {
	return uintptr(w.hwnd)
}

// IsForeground reports whether the window currently has focus
func (w *GameWindow) IsForeground() bool {
	return win.GetForegroundWindow() == w.hwnd
}

func (w *GameWindow) BringToFront() error {
	if w.IsForeground() {
		return nil
	}
	if win.IsIconic(w.hwnd) {
		win.ShowWindow(w.hwnd, win.SW_RESTORE)
	}
	if !win.SetForegroundWindow(w.hwnd) {
		return fmt.Errorf("SetForegroundWindow failed")
	}
	return nil
}

func (w *GameWindow) ClientToScreen(p image.Point) (image.Point, error) {
	pt := win.POINT{X: int32(p.X), Y: int32(p.Y)}
	if !win.ClientToScreen(w.hwnd, &pt) {
		return image.Point{}, fmt.Errorf("ClientToScreen failed")
	}
	return image.Point{X: int(pt.X), Y: int(pt.Y)}, nil
}

func (w *GameWindow) Size() (int, int, error) {
	var rect win.RECT
	if !win.GetClientRect(w.hwnd, &rect) {
		return 0, 0, fmt.Errorf("GetClientRect failed")
	}
	return int(rect.Right - rect.Left), int(rect.Bottom - rect.Top), nil
}
