//go:build windows

package playback

import "golang.org/x/sys/windows"

var (
	winmm               = windows.NewLazySystemDLL("winmm.dll")
	procTimeBeginPeriod = winmm.NewProc("timeBeginPeriod")
	procTimeEndPeriod   = winmm.NewProc("timeEndPeriod")
)

// BeginHighResolutionTimer raises the system timer resolution to 1ms so the
// coarse half of PreciseSleep lands close to its target. Call the returned
// function to restore it.
func BeginHighResolutionTimer() (end func()) {
	if err := procTimeBeginPeriod.Find(); err != nil {
		return func() {}
	}
	procTimeBeginPeriod.Call(1)
	return func() {
		procTimeEndPeriod.Call(1)
	}
}
