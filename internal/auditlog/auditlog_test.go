package auditlog

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	db, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Failed to create database: %v", err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Errorf("Failed to close database: %v", err)
		}
	})
	return db
}

// TestDatabaseCreation verifies database file creation and initialization
func TestDatabaseCreation(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "history", "test.db")

	db, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Failed to create database: %v", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			t.Errorf("Failed to close database: %v", err)
		}
	}()

	// Parent directory and database file must both exist
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Errorf("Database file not created at %s", dbPath)
	}
}

// TestWALModeEnabled verifies that WAL mode is properly configured
func TestWALModeEnabled(t *testing.T) {
	db := openTestDB(t)

	var journalMode string
	if err := db.db.QueryRow("PRAGMA journal_mode").Scan(&journalMode); err != nil {
		t.Fatalf("Failed to query journal mode: %v", err)
	}
	if journalMode != "wal" {
		t.Errorf("journal_mode = %s, expected wal", journalMode)
	}
}

// TestRecordAndQuery verifies the insert/query round trip
func TestRecordAndQuery(t *testing.T) {
	db := openTestDB(t)

	events := []struct {
		runID  string
		action string
		url    string
		path   string
		errMsg string
	}{
		{"run-1", ActionRemoved, "/uploads/a.jpg", "/data/uploads/a.jpg", ""},
		{"run-1", ActionMissing, "/uploads/gone.png", "/data/uploads/gone.png", ""},
		{"run-2", ActionError, "/uploads/stuck.gif", "/data/uploads/stuck.gif", "permission denied"},
	}
	for _, e := range events {
		if err := db.Record(e.runID, e.action, e.url, e.path, e.errMsg); err != nil {
			t.Fatalf("Record failed: %v", err)
		}
	}

	recent, err := db.GetRecentEvents(10)
	if err != nil {
		t.Fatalf("GetRecentEvents failed: %v", err)
	}
	if len(recent) != 3 {
		t.Errorf("GetRecentEvents returned %d events, expected 3", len(recent))
	}

	run1, err := db.GetEventsByRun("run-1")
	if err != nil {
		t.Fatalf("GetEventsByRun failed: %v", err)
	}
	if len(run1) != 2 {
		t.Errorf("GetEventsByRun(run-1) returned %d events, expected 2", len(run1))
	}
	if run1[0].Action != ActionRemoved {
		t.Errorf("first run-1 event action = %s, expected %s", run1[0].Action, ActionRemoved)
	}
	if run1[0].FileName != "a.jpg" {
		t.Errorf("file_name = %s, expected a.jpg", run1[0].FileName)
	}

	errored, err := db.GetEventsByAction(ActionError)
	if err != nil {
		t.Fatalf("GetEventsByAction failed: %v", err)
	}
	if len(errored) != 1 || errored[0].ErrorMessage != "permission denied" {
		t.Errorf("GetEventsByAction(ERROR) = %+v, expected one event with message", errored)
	}

	byPath, err := db.GetEventsByPath("%/uploads/a.jpg")
	if err != nil {
		t.Fatalf("GetEventsByPath failed: %v", err)
	}
	if len(byPath) != 1 {
		t.Errorf("GetEventsByPath returned %d events, expected 1", len(byPath))
	}
}

// TestStats verifies aggregate statistics over a period
func TestStats(t *testing.T) {
	db := openTestDB(t)

	rows := []struct {
		runID  string
		action string
	}{
		{"run-1", ActionRemoved},
		{"run-1", ActionRemoved},
		{"run-1", ActionMissing},
		{"run-2", ActionError},
		{"run-2", ActionDryRun},
	}
	for i, r := range rows {
		path := filepath.Join("/data/uploads", fmt.Sprintf("f%d.jpg", i))
		if err := db.Record(r.runID, r.action, "/uploads/x", path, ""); err != nil {
			t.Fatalf("Record failed: %v", err)
		}
	}

	stats, err := db.GetStats(7)
	if err != nil {
		t.Fatalf("GetStats failed: %v", err)
	}

	if stats.TotalRemoved != 2 {
		t.Errorf("TotalRemoved = %d, expected 2", stats.TotalRemoved)
	}
	if stats.TotalMissing != 1 {
		t.Errorf("TotalMissing = %d, expected 1", stats.TotalMissing)
	}
	if stats.TotalErrors != 1 {
		t.Errorf("TotalErrors = %d, expected 1", stats.TotalErrors)
	}
	if stats.RunCount != 2 {
		t.Errorf("RunCount = %d, expected 2", stats.RunCount)
	}
	if stats.ByAction[ActionDryRun] != 1 {
		t.Errorf("ByAction[DRY_RUN] = %d, expected 1", stats.ByAction[ActionDryRun])
	}
}
