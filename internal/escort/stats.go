package escort

import (
	"fmt"
	"time"
)

// MissionStats is a point-in-time copy of the controller's counters
type MissionStats struct {
	SessionID       string
	Phase           Phase
	Attempt         int
	RoundsCompleted int
	FailedAttempts  int
	TargetRounds    int
	SelectedPath    int
	SelectedName    string
	StartedAt       time.Time
	Elapsed         time.Duration
}

// AverageRound is the elapsed run time divided by completed rounds
func (s MissionStats) AverageRound() time.Duration {
	if s.RoundsCompleted == 0 {
		return 0
	}
	return s.Elapsed / time.Duration(s.RoundsCompleted)
}

// Remaining is the number of rounds left before the target is reached
func (s MissionStats) Remaining() int {
	if r := s.TargetRounds - s.RoundsCompleted; r > 0 {
		return r
	}
	return 0
}

// EstimatedRemaining projects the time left from the average round time
func (s MissionStats) EstimatedRemaining() time.Duration {
	return s.AverageRound() * time.Duration(s.Remaining())
}

// FormatDuration renders d as HH:MM:SS
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int(d / time.Second)
	return fmt.Sprintf("%02d:%02d:%02d", total/3600, total%3600/60, total%60)
}
