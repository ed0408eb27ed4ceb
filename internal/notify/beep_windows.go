//go:build windows

package notify

import "golang.org/x/sys/windows"

var (
	user32          = windows.NewLazySystemDLL("user32.dll")
	procMessageBeep = user32.NewProc("MessageBeep")
)

const (
	mbOK        = 0x00000000
	mbIconError = 0x00000010
)

// Beep plays the system sound for level
func Beep(level Level) {
	if procMessageBeep.Find() != nil {
		return
	}
	sound := uintptr(mbOK)
	if level == LevelError {
		sound = mbIconError
	}
	procMessageBeep.Call(sound)
}
