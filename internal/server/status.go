package server

import (
	"time"

	"jordanella.com/escort-bot/internal/escort"
	"jordanella.com/escort-bot/internal/game"
	"jordanella.com/escort-bot/internal/scheduler"
)

// Status is the payload of /api/status and of every /ws frame
type Status struct {
	Time    time.Time                    `json:"time"`
	Escort  *EscortStatus                `json:"escort,omitempty"`
	Tasks   []TaskStatus                 `json:"tasks"`
	Screens []game.ScreenDetectionResult `json:"screens,omitempty"`
}

type EscortStatus struct {
	SessionID          string    `json:"session_id"`
	Phase              string    `json:"phase"`
	Attempt            int       `json:"attempt"`
	RoundsCompleted    int       `json:"rounds_completed"`
	FailedAttempts     int       `json:"failed_attempts"`
	TargetRounds       int       `json:"target_rounds"`
	Remaining          int       `json:"remaining"`
	SelectedPath       int       `json:"selected_path"`
	SelectedName       string    `json:"selected_name,omitempty"`
	StartedAt          time.Time `json:"started_at"`
	Elapsed            string    `json:"elapsed"`
	AverageRound       string    `json:"average_round"`
	EstimatedRemaining string    `json:"estimated_remaining"`
}

func NewEscortStatus(s escort.MissionStats) *EscortStatus {
	return &EscortStatus{
		SessionID:          s.SessionID,
		Phase:              s.Phase.String(),
		Attempt:            s.Attempt,
		RoundsCompleted:    s.RoundsCompleted,
		FailedAttempts:     s.FailedAttempts,
		TargetRounds:       s.TargetRounds,
		Remaining:          s.Remaining(),
		SelectedPath:       s.SelectedPath,
		SelectedName:       s.SelectedName,
		StartedAt:          s.StartedAt,
		Elapsed:            escort.FormatDuration(s.Elapsed),
		AverageRound:       escort.FormatDuration(s.AverageRound()),
		EstimatedRemaining: escort.FormatDuration(s.EstimatedRemaining()),
	}
}

type TaskStatus struct {
	Name    string              `json:"name"`
	Enabled bool                `json:"enabled"`
	Stats   scheduler.TaskStats `json:"stats"`
}

// StatusSource produces the current status
type StatusSource interface {
	Status() Status
}

// Collector assembles a Status from the running components. Nil fields are
// left out of the payload.
type Collector struct {
	Escort  interface{ Stats() escort.MissionStats }
	Host    *scheduler.Host
	Screens interface {
		RecentScreens(n int) []game.ScreenDetectionResult
	}
	ScreenCount int
}

func (c *Collector) Status() Status {
	st := Status{Time: time.Now(), Tasks: []TaskStatus{}}

	if c.Escort != nil {
		st.Escort = NewEscortStatus(c.Escort.Stats())
	}
	if c.Host != nil {
		for _, name := range c.Host.Tasks() {
			ts := TaskStatus{Name: name, Enabled: c.Host.IsEnabled(name)}
			if m := c.Host.GetMetrics(name); m != nil {
				ts.Stats = m.GetStats()
			}
			st.Tasks = append(st.Tasks, ts)
		}
	}
	if c.Screens != nil {
		n := c.ScreenCount
		if n <= 0 {
			n = 10
		}
		st.Screens = c.Screens.RecentScreens(n)
	}
	return st
}
