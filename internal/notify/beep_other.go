//go:build !windows

package notify

import "os"

// Beep rings the terminal bell
func Beep(level Level) {
	os.Stderr.Write([]byte("\a"))
}
