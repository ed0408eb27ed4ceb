package escort

import (
	"testing"
	"time"
)

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{0, "00:00:00"},
		{59 * time.Second, "00:00:59"},
		{time.Hour + 2*time.Minute + 3*time.Second, "01:02:03"},
		{26*time.Hour + 500*time.Millisecond, "26:00:00"},
		{-time.Second, "00:00:00"},
	}
	for _, tt := range tests {
		if got := FormatDuration(tt.in); got != tt.want {
			t.Errorf("FormatDuration(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestStatsAverages(t *testing.T) {
	s := MissionStats{RoundsCompleted: 4, TargetRounds: 10, Elapsed: 8 * time.Minute}
	if got := s.AverageRound(); got != 2*time.Minute {
		t.Errorf("AverageRound = %v", got)
	}
	if got := s.Remaining(); got != 6 {
		t.Errorf("Remaining = %d", got)
	}
	if got := s.EstimatedRemaining(); got != 12*time.Minute {
		t.Errorf("EstimatedRemaining = %v", got)
	}

	if (MissionStats{}).AverageRound() != 0 {
		t.Error("expected zero average without rounds")
	}
	if (MissionStats{RoundsCompleted: 5, TargetRounds: 3}).Remaining() != 0 {
		t.Error("expected no rounds remaining past the target")
	}
}
