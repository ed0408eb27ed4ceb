//go:build windows

package hotkey

import (
	"fmt"
	"runtime"
	"syscall"
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	user32                  = windows.NewLazySystemDLL("user32.dll")
	procGetAsyncKeyState    = user32.NewProc("GetAsyncKeyState")
	procSetWindowsHookEx    = user32.NewProc("SetWindowsHookExW")
	procUnhookWindowsHookEx = user32.NewProc("UnhookWindowsHookEx")
	procCallNextHookEx      = user32.NewProc("CallNextHookEx")
	procGetMessage          = user32.NewProc("GetMessageW")
	procPostThreadMessage   = user32.NewProc("PostThreadMessageW")
)

const pollingSupported = true

const (
	whMouseLL     = 14
	wmQuit        = 0x0012
	wmLButtonDown = 0x0201
	llmhfInjected = 0x00000001
)

type point struct {
	X, Y int32
}

type msllHookStruct struct {
	Pt          point
	MouseData   uint32
	Flags       uint32
	Time        uint32
	DwExtraInfo uintptr
}

type msg struct {
	Hwnd    uintptr
	Message uint32
	WParam  uintptr
	LParam  uintptr
	Time    uint32
	Pt      point
}

func keyDown(vk uint16) bool {
	state, _, _ := procGetAsyncKeyState.Call(uintptr(vk))
	return state&0x8000 != 0
}

// listenClicks installs a low-level mouse hook on its own OS thread and
// reports left-button presses to handle until stop is called
func listenClicks(handle func(injected bool)) (stop func(), err error) {
	type started struct {
		tid uint32
		err error
	}
	ready := make(chan started, 1)
	done := make(chan struct{})

	go func() {
		defer close(done)
		// Low-level hooks are delivered to the installing thread's message loop
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()

		proc := func(nCode int, wParam uintptr, lParam uintptr) uintptr {
			if nCode >= 0 && wParam == wmLButtonDown {
				info := (*msllHookStruct)(unsafe.Pointer(lParam))
				handle(info.Flags&llmhfInjected != 0)
			}
			ret, _, _ := procCallNextHookEx.Call(0, uintptr(nCode), wParam, lParam)
			return ret
		}
		hook, _, callErr := procSetWindowsHookEx.Call(whMouseLL, syscall.NewCallback(proc), 0, 0)
		if hook == 0 {
			ready <- started{err: fmt.Errorf("SetWindowsHookEx failed: %v", callErr)}
			return
		}
		defer procUnhookWindowsHookEx.Call(hook)
		ready <- started{tid: windows.GetCurrentThreadId()}

		var m msg
		for {
			ret, _, _ := procGetMessage.Call(uintptr(unsafe.Pointer(&m)), 0, 0, 0)
			if int32(ret) <= 0 {
				return
			}
		}
	}()

	s := <-ready
	if s.err != nil {
		<-done
		return nil, s.err
	}
	return func() {
		procPostThreadMessage.Call(uintptr(s.tid), wmQuit, 0, 0)
		<-done
	}, nil
}
