//go:build !windows

package hotkey

const pollingSupported = false

func keyDown(vk uint16) bool {
	return false
}

func listenClicks(handle func(injected bool)) (stop func(), err error) {
	return func() {}, nil
}
