package database

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ErrSessionNotFound is returned for unknown session ids
var ErrSessionNotFound = errors.New("session not found")

// StartSession records the start of an escort run
func (db *DB) StartSession(id string, targetRounds int, startedAt time.Time) error {
	_, err := db.conn.Exec(`
		INSERT INTO sessions (id, target_rounds, started_at)
		VALUES (?, ?, ?)
	`, id, targetRounds, startedAt)
	if err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}
	return nil
}

// UpdateSessionRounds stores the latest completed round count
func (db *DB) UpdateSessionRounds(id string, rounds int) error {
	_, err := db.conn.Exec(`UPDATE sessions SET rounds_completed = ? WHERE id = ?`, rounds, id)
	return err
}

// UpdateSessionFailures stores the latest failed attempt count
func (db *DB) UpdateSessionFailures(id string, failures int) error {
	_, err := db.conn.Exec(`UPDATE sessions SET failed_attempts = ? WHERE id = ?`, failures, id)
	return err
}

// FinishSession closes a run and marks attempts still in flight as abandoned
func (db *DB) FinishSession(id string, rounds, failures int, elapsed time.Duration, finishedAt time.Time) error {
	return db.ExecTx(func(tx *sql.Tx) error {
		result, err := tx.Exec(`
			UPDATE sessions
			SET rounds_completed = ?,
				failed_attempts = ?,
				elapsed_seconds = ?,
				finished_at = ?
			WHERE id = ?
		`, rounds, failures, int(elapsed.Seconds()), finishedAt, id)
		if err != nil {
			return fmt.Errorf("failed to finish session: %w", err)
		}
		if n, _ := result.RowsAffected(); n == 0 {
			return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
		}

		_, err = tx.Exec(`
			UPDATE attempts
			SET status = 'abandoned', finished_at = ?
			WHERE session_id = ? AND status = 'started'
		`, finishedAt, id)
		return err
	})
}

// GetSession retrieves a session by id
func (db *DB) GetSession(id string) (*Session, error) {
	s := &Session{}
	err := db.conn.QueryRow(`
		SELECT id, target_rounds, rounds_completed, failed_attempts,
			started_at, finished_at, elapsed_seconds
		FROM sessions
		WHERE id = ?
	`, id).Scan(
		&s.ID, &s.TargetRounds, &s.RoundsCompleted, &s.FailedAttempts,
		&s.StartedAt, &s.FinishedAt, &s.ElapsedSeconds,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

// ListSessions returns the most recent sessions, newest first
func (db *DB) ListSessions(limit int) ([]*Session, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := db.conn.Query(`
		SELECT id, target_rounds, rounds_completed, failed_attempts,
			started_at, finished_at, elapsed_seconds
		FROM sessions
		ORDER BY started_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sessions := []*Session{}
	for rows.Next() {
		s := &Session{}
		if err := rows.Scan(
			&s.ID, &s.TargetRounds, &s.RoundsCompleted, &s.FailedAttempts,
			&s.StartedAt, &s.FinishedAt, &s.ElapsedSeconds,
		); err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}
