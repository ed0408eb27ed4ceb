package playback

import "time"

// coarseMargin is how much of each wait is left to busy-polling
const coarseMargin = 500 * time.Microsecond

// PreciseSleep waits for d. Waits longer than 1ms sleep for d-0.5ms and spin
// on the monotonic clock for the remainder; shorter waits use a single sleep.
func PreciseSleep(d time.Duration) {
	if d <= 0 {
		return
	}
	if d <= time.Millisecond {
		time.Sleep(d)
		return
	}

	deadline := time.Now().Add(d)
	time.Sleep(d - coarseMargin)
	for time.Now().Before(deadline) {
	}
}

// Seconds converts a recorded delay to a duration
func Seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
