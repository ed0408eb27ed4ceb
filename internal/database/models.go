package database

import (
	"time"
)

// Attempt statuses
const (
	AttemptStarted   = "started"
	AttemptCompleted = "completed"
	AttemptFailed    = "failed"
	AttemptAbandoned = "abandoned"
)

// Session is one escort run, from start until termination or shutdown
type Session struct {
	ID              string     `db:"id" json:"id"`
	TargetRounds    int        `db:"target_rounds" json:"target_rounds"`
	RoundsCompleted int        `db:"rounds_completed" json:"rounds_completed"`
	FailedAttempts  int        `db:"failed_attempts" json:"failed_attempts"`
	StartedAt       time.Time  `db:"started_at" json:"started_at"`
	FinishedAt      *time.Time `db:"finished_at" json:"finished_at"`
	ElapsedSeconds  *int       `db:"elapsed_seconds" json:"elapsed_seconds"`
}

// Attempt is one pass through the escort route
type Attempt struct {
	ID           int64      `db:"id" json:"id"`
	SessionID    string     `db:"session_id" json:"session_id"`
	Attempt      int        `db:"attempt" json:"attempt"`
	Sequence     string     `db:"sequence" json:"sequence"`
	PathID       *int       `db:"path_id" json:"path_id"`
	PathName     *string    `db:"path_name" json:"path_name"`
	Distance     *float64   `db:"distance" json:"distance"`
	Status       string     `db:"status" json:"status"`
	Reason       *string    `db:"reason" json:"reason"`
	RoundSeconds *float64   `db:"round_seconds" json:"round_seconds"`
	StartedAt    time.Time  `db:"started_at" json:"started_at"`
	FinishedAt   *time.Time `db:"finished_at" json:"finished_at"`
}

// ErrorLog is a task failure or reported error
type ErrorLog struct {
	ID           int64     `db:"id" json:"id"`
	SessionID    *string   `db:"session_id" json:"session_id"`
	Source       string    `db:"source" json:"source"`
	Component    *string   `db:"component" json:"component"`
	ErrorMessage string    `db:"error_message" json:"error_message"`
	OccurredAt   time.Time `db:"occurred_at" json:"occurred_at"`
}

// PathStats aggregates attempts by the branch they took
type PathStats struct {
	PathID          int     `json:"path_id"`
	PathName        string  `json:"path_name"`
	Attempts        int     `json:"attempts"`
	Completed       int     `json:"completed"`
	AvgRoundSeconds float64 `json:"avg_round_seconds"`
}
