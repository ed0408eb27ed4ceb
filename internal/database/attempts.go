package database

import (
	"fmt"
	"time"
)

// StartAttempt records the start of an attempt
func (db *DB) StartAttempt(sessionID string, attempt int, sequence string, startedAt time.Time) error {
	_, err := db.conn.Exec(`
		INSERT INTO attempts (session_id, attempt, sequence, status, started_at)
		VALUES (?, ?, ?, 'started', ?)
	`, sessionID, attempt, sequence, startedAt)
	if err != nil {
		return fmt.Errorf("failed to start attempt: %w", err)
	}
	return nil
}

// SetAttemptPath records the branch chosen for an attempt
func (db *DB) SetAttemptPath(sessionID string, attempt, pathID int, pathName string, distance float64) error {
	_, err := db.conn.Exec(`
		UPDATE attempts
		SET path_id = ?, path_name = ?, distance = ?
		WHERE session_id = ? AND attempt = ?
	`, pathID, pathName, distance, sessionID, attempt)
	return err
}

// FailAttempt marks an attempt as restarted for reason
func (db *DB) FailAttempt(sessionID string, attempt int, reason string, finishedAt time.Time) error {
	_, err := db.conn.Exec(`
		UPDATE attempts
		SET status = 'failed', reason = ?, finished_at = ?
		WHERE session_id = ? AND attempt = ?
	`, reason, finishedAt, sessionID, attempt)
	if err != nil {
		return fmt.Errorf("failed to record failed attempt: %w", err)
	}
	return nil
}

// CompleteAttempt marks an attempt as a counted round
func (db *DB) CompleteAttempt(sessionID string, attempt int, roundTime time.Duration, finishedAt time.Time) error {
	_, err := db.conn.Exec(`
		UPDATE attempts
		SET status = 'completed', round_seconds = ?, finished_at = ?
		WHERE session_id = ? AND attempt = ?
	`, roundTime.Seconds(), finishedAt, sessionID, attempt)
	if err != nil {
		return fmt.Errorf("failed to complete attempt: %w", err)
	}
	return nil
}

// ListAttempts returns the attempts of a session in order
func (db *DB) ListAttempts(sessionID string) ([]*Attempt, error) {
	rows, err := db.conn.Query(`
		SELECT id, session_id, attempt, sequence, path_id, path_name, distance,
			status, reason, round_seconds, started_at, finished_at
		FROM attempts
		WHERE session_id = ?
		ORDER BY attempt
	`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	attempts := []*Attempt{}
	for rows.Next() {
		a := &Attempt{}
		if err := rows.Scan(
			&a.ID, &a.SessionID, &a.Attempt, &a.Sequence, &a.PathID, &a.PathName, &a.Distance,
			&a.Status, &a.Reason, &a.RoundSeconds, &a.StartedAt, &a.FinishedAt,
		); err != nil {
			return nil, err
		}
		attempts = append(attempts, a)
	}
	return attempts, rows.Err()
}

// GetFailureReasons returns failed attempt counts grouped by reason. An empty
// sessionID covers every session.
func (db *DB) GetFailureReasons(sessionID string) (map[string]int, error) {
	query := `
		SELECT COALESCE(reason, ''), COUNT(*)
		FROM attempts
		WHERE status = 'failed'
	`
	args := []interface{}{}
	if sessionID != "" {
		query += " AND session_id = ?"
		args = append(args, sessionID)
	}
	query += " GROUP BY reason"

	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stats := make(map[string]int)
	for rows.Next() {
		var reason string
		var count int
		if err := rows.Scan(&reason, &count); err != nil {
			return nil, err
		}
		stats[reason] = count
	}
	return stats, rows.Err()
}

// GetPathStats returns attempt outcomes per branch
func (db *DB) GetPathStats() ([]PathStats, error) {
	rows, err := db.conn.Query(`
		SELECT path_id, path_name, attempts, completed, avg_round_seconds
		FROM path_stats
		ORDER BY path_id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stats []PathStats
	for rows.Next() {
		var ps PathStats
		if err := rows.Scan(&ps.PathID, &ps.PathName, &ps.Attempts, &ps.Completed, &ps.AvgRoundSeconds); err != nil {
			return nil, err
		}
		stats = append(stats, ps)
	}
	return stats, rows.Err()
}
