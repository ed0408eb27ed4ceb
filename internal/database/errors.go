package database

import (
	"time"
)

// LogError creates a new error log entry
func (db *DB) LogError(sessionID *string, source string, component *string, message string, occurredAt time.Time) (int64, error) {
	result, err := db.conn.Exec(`
		INSERT INTO error_log (session_id, source, component, error_message, occurred_at)
		VALUES (?, ?, ?, ?, ?)
	`, sessionID, source, component, message, occurredAt)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

// GetRecentErrors returns the most recent errors
func (db *DB) GetRecentErrors(limit int) ([]*ErrorLog, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := db.conn.Query(`
		SELECT id, session_id, source, component, error_message, occurred_at
		FROM error_log
		ORDER BY occurred_at DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	errors := []*ErrorLog{}
	for rows.Next() {
		e := &ErrorLog{}
		if err := rows.Scan(&e.ID, &e.SessionID, &e.Source, &e.Component, &e.ErrorMessage, &e.OccurredAt); err != nil {
			return nil, err
		}
		errors = append(errors, e)
	}
	return errors, rows.Err()
}

// DeleteOldErrors deletes error logs older than the specified date
func (db *DB) DeleteOldErrors(olderThan time.Time) (int64, error) {
	result, err := db.conn.Exec(`
		DELETE FROM error_log
		WHERE occurred_at < ?
	`, olderThan)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
