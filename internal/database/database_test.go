package database

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"jordanella.com/escort-bot/internal/events"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := OpenAndMigrate(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestDatabaseInitialization(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "nested", "test.db")

	db, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	if err := db.RunMigrations(); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}
	// Running again is a no-op
	if err := db.RunMigrations(); err != nil {
		t.Fatalf("Second migration run failed: %v", err)
	}

	version, err := db.GetVersion()
	if err != nil {
		t.Fatalf("Failed to get version: %v", err)
	}
	if version != LatestVersion() {
		t.Errorf("Expected version %d, got %d", LatestVersion(), version)
	}

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("Database file was not created")
	}

	stats, err := db.GetStats()
	if err != nil {
		t.Fatalf("GetStats failed: %v", err)
	}
	for _, table := range []string{"sessions", "attempts", "error_log"} {
		if n, ok := stats[table]; !ok || n != 0 {
			t.Errorf("stats[%s] = %d, %v", table, n, ok)
		}
	}
}

func TestSessionLifecycle(t *testing.T) {
	db := openTestDB(t)
	start := time.Now()

	if err := db.StartSession("s1", 3, start); err != nil {
		t.Fatalf("StartSession failed: %v", err)
	}

	// Attempt 1 fails after choosing branch 2
	mustExec(t, db.StartAttempt("s1", 1, "ESCORT_PATH_A", start))
	mustExec(t, db.SetAttemptPath("s1", 1, 2, "ESCORT_PATH_A_2", 14.5))
	mustExec(t, db.FailAttempt("s1", 1, "resolution_timeout", start.Add(time.Minute)))

	// Attempt 2 completes on branch 2, attempt 3 is cut off by termination
	mustExec(t, db.StartAttempt("s1", 2, "ESCORT_PATH_A", start.Add(2*time.Minute)))
	mustExec(t, db.SetAttemptPath("s1", 2, 2, "ESCORT_PATH_A_2", 9))
	mustExec(t, db.CompleteAttempt("s1", 2, 90*time.Second, start.Add(4*time.Minute)))
	mustExec(t, db.StartAttempt("s1", 3, "ESCORT_PATH_A", start.Add(5*time.Minute)))
	mustExec(t, db.FinishSession("s1", 1, 1, 6*time.Minute, start.Add(6*time.Minute)))

	session, err := db.GetSession("s1")
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if session.RoundsCompleted != 1 || session.FailedAttempts != 1 || session.TargetRounds != 3 {
		t.Errorf("unexpected session %+v", session)
	}
	if session.FinishedAt == nil || session.ElapsedSeconds == nil || *session.ElapsedSeconds != 360 {
		t.Errorf("session not finished: %+v", session)
	}

	attempts, err := db.ListAttempts("s1")
	if err != nil {
		t.Fatalf("ListAttempts failed: %v", err)
	}
	wantStatus := []string{AttemptFailed, AttemptCompleted, AttemptAbandoned}
	if len(attempts) != len(wantStatus) {
		t.Fatalf("got %d attempts", len(attempts))
	}
	for i, a := range attempts {
		if a.Status != wantStatus[i] {
			t.Errorf("attempt %d status = %s, want %s", a.Attempt, a.Status, wantStatus[i])
		}
	}
	if attempts[0].Reason == nil || *attempts[0].Reason != "resolution_timeout" {
		t.Errorf("attempt 1 reason = %v", attempts[0].Reason)
	}
	if attempts[1].RoundSeconds == nil || *attempts[1].RoundSeconds != 90 {
		t.Errorf("attempt 2 round = %v", attempts[1].RoundSeconds)
	}
	if attempts[2].PathID != nil {
		t.Errorf("attempt 3 should have no branch")
	}

	reasons, err := db.GetFailureReasons("s1")
	if err != nil || reasons["resolution_timeout"] != 1 {
		t.Errorf("GetFailureReasons = %v, %v", reasons, err)
	}

	paths, err := db.GetPathStats()
	if err != nil {
		t.Fatalf("GetPathStats failed: %v", err)
	}
	if len(paths) != 1 || paths[0].PathID != 2 || paths[0].Attempts != 2 || paths[0].Completed != 1 || paths[0].AvgRoundSeconds != 90 {
		t.Errorf("unexpected path stats %+v", paths)
	}

	sessions, err := db.ListSessions(10)
	if err != nil || len(sessions) != 1 {
		t.Errorf("ListSessions = %v, %v", sessions, err)
	}
}

func TestUnknownSession(t *testing.T) {
	db := openTestDB(t)
	if _, err := db.GetSession("missing"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("GetSession = %v", err)
	}
	if err := db.FinishSession("missing", 0, 0, 0, time.Now()); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("FinishSession = %v", err)
	}
	if err := db.StartAttempt("missing", 1, "ESCORT_PATH_A", time.Now()); err == nil {
		t.Error("attempt without a session should violate the foreign key")
	}
}

func TestErrorLog(t *testing.T) {
	db := openTestDB(t)
	session := "s1"
	task := "escort"

	if _, err := db.LogError(&session, "scheduler", &task, "window lost", time.Now().Add(-time.Hour)); err != nil {
		t.Fatalf("LogError failed: %v", err)
	}
	if _, err := db.LogError(nil, "gate", nil, "capture failed", time.Now()); err != nil {
		t.Fatalf("LogError failed: %v", err)
	}

	recent, err := db.GetRecentErrors(10)
	if err != nil {
		t.Fatalf("GetRecentErrors failed: %v", err)
	}
	if len(recent) != 2 || recent[0].ErrorMessage != "capture failed" || recent[0].SessionID != nil {
		t.Errorf("unexpected errors %+v", recent)
	}
	if recent[1].Component == nil || *recent[1].Component != "escort" {
		t.Errorf("component = %v", recent[1].Component)
	}

	deleted, err := db.DeleteOldErrors(time.Now().Add(-30 * time.Minute))
	if err != nil || deleted != 1 {
		t.Errorf("DeleteOldErrors = %d, %v", deleted, err)
	}
}

func TestRecorder(t *testing.T) {
	db := openTestDB(t)
	bus := events.NewEventBus(64)
	recorder := NewRecorder(db, bus)

	bus.Publish(events.NewRunStartedEvent("run", 2))
	bus.Publish(events.NewAttemptStartedEvent("run", 1, "ESCORT_PATH_A"))
	bus.Publish(events.NewAttemptRestartedEvent("run", 1, "marker_not_found", 1))
	bus.Publish(events.NewAttemptStartedEvent("run", 2, "ESCORT_PATH_A"))
	bus.Publish(events.NewPathSelectedEvent("run", 2, 4, "ESCORT_PATH_A_4", 3.2))
	bus.Publish(events.NewRoundCompletedEvent("run", 2, 1, 75*time.Second))
	bus.Publish(events.NewTaskFailedEvent("puzzle", errors.New("solve path missing")))
	bus.Publish(events.NewRunTerminatedEvent("run", 1, 1, 3*time.Minute))
	bus.Stop()
	recorder.Close()

	session, err := db.GetSession("run")
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if session.RoundsCompleted != 1 || session.FailedAttempts != 1 || session.FinishedAt == nil {
		t.Errorf("unexpected session %+v", session)
	}

	attempts, err := db.ListAttempts("run")
	if err != nil || len(attempts) != 2 {
		t.Fatalf("ListAttempts = %v, %v", attempts, err)
	}
	if attempts[0].Status != AttemptFailed || attempts[1].Status != AttemptCompleted {
		t.Errorf("statuses = %s, %s", attempts[0].Status, attempts[1].Status)
	}
	if attempts[1].PathName == nil || *attempts[1].PathName != "ESCORT_PATH_A_4" {
		t.Errorf("path = %v", attempts[1].PathName)
	}

	recent, err := db.GetRecentErrors(5)
	if err != nil || len(recent) != 1 {
		t.Fatalf("GetRecentErrors = %v, %v", recent, err)
	}
	if recent[0].SessionID == nil || *recent[0].SessionID != "run" || recent[0].Source != "scheduler" {
		t.Errorf("unexpected error row %+v", recent[0])
	}
}

func TestBackupAndRollback(t *testing.T) {
	db := openTestDB(t)
	mustExec(t, db.StartSession("s1", 1, time.Now()))

	backup := filepath.Join(t.TempDir(), "backup", "history.db")
	if err := db.Backup(backup); err != nil {
		t.Fatalf("Backup failed: %v", err)
	}
	if err := db.Backup(backup); err == nil {
		t.Error("expected error when the backup already exists")
	}

	copyDB, err := Open(backup)
	if err != nil {
		t.Fatalf("open backup: %v", err)
	}
	defer copyDB.Close()
	if _, err := copyDB.GetSession("s1"); err != nil {
		t.Errorf("backup is missing data: %v", err)
	}

	if err := db.RollbackTo(2); err != nil {
		t.Fatalf("RollbackTo failed: %v", err)
	}
	if v, _ := db.GetVersion(); v != 2 {
		t.Errorf("version after rollback = %d", v)
	}
	if err := db.RunMigrations(); err != nil {
		t.Fatalf("re-migrate failed: %v", err)
	}
	if v, _ := db.GetVersion(); v != LatestVersion() {
		t.Errorf("version after re-migrate = %d", v)
	}
}

func mustExec(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatal(err)
	}
}
