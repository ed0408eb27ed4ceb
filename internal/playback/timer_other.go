//go:build !windows

package playback

// BeginHighResolutionTimer is a no-op where the scheduler already has
// sub-millisecond sleeps
func BeginHighResolutionTimer() (end func()) {
	return func() {}
}
