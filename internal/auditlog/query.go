package auditlog

import (
	"time"
)

// Stats summarizes audit events over a period
type Stats struct {
	StartDate    time.Time      `json:"start_date"`
	EndDate      time.Time      `json:"end_date"`
	TotalRemoved int            `json:"total_removed"`
	TotalMissing int            `json:"total_missing"`
	TotalErrors  int            `json:"total_errors"`
	ByAction     map[string]int `json:"by_action"`
	RunCount     int            `json:"run_count"`
}

const eventColumns = "id, run_id, timestamp, action, url, path, file_name, error_message"

// GetRecentEvents returns the N most recent audit events
func (d *DB) GetRecentEvents(limit int) ([]Event, error) {
	query := `
	SELECT ` + eventColumns + `
	FROM events
	ORDER BY timestamp DESC, id DESC
	LIMIT ?
	`

	return d.queryEvents(query, limit)
}

// GetEventsByRun returns all events of one GC run, oldest first
func (d *DB) GetEventsByRun(runID string) ([]Event, error) {
	query := `
	SELECT ` + eventColumns + `
	FROM events
	WHERE run_id = ?
	ORDER BY id ASC
	`

	return d.queryEvents(query, runID)
}

// GetEventsByAction returns events filtered by action type
func (d *DB) GetEventsByAction(action string) ([]Event, error) {
	query := `
	SELECT ` + eventColumns + `
	FROM events
	WHERE action = ?
	ORDER BY timestamp DESC, id DESC
	`

	return d.queryEvents(query, action)
}

// GetEventsByPath returns events matching a path pattern (SQL LIKE)
func (d *DB) GetEventsByPath(pathPattern string) ([]Event, error) {
	query := `
	SELECT ` + eventColumns + `
	FROM events
	WHERE path LIKE ?
	ORDER BY timestamp DESC, id DESC
	`

	return d.queryEvents(query, pathPattern)
}

// GetStats returns aggregate statistics for the last N days
func (d *DB) GetStats(days int) (*Stats, error) {
	end := time.Now().UTC()
	start := end.AddDate(0, 0, -days)

	stats := &Stats{
		StartDate: start,
		EndDate:   end,
		ByAction:  make(map[string]int),
	}

	rows, err := d.db.Query(`
	SELECT action, COUNT(*)
	FROM events
	WHERE timestamp BETWEEN ? AND ?
	GROUP BY action
	`, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var action string
		var count int
		if err := rows.Scan(&action, &count); err != nil {
			return nil, err
		}
		stats.ByAction[action] = count
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	stats.TotalRemoved = stats.ByAction[ActionRemoved]
	stats.TotalMissing = stats.ByAction[ActionMissing]
	stats.TotalErrors = stats.ByAction[ActionError]

	err = d.db.QueryRow(`
	SELECT COUNT(DISTINCT run_id)
	FROM events
	WHERE timestamp BETWEEN ? AND ?
	`, start, end).Scan(&stats.RunCount)
	if err != nil {
		return nil, err
	}

	return stats, nil
}

func (d *DB) queryEvents(query string, args ...interface{}) ([]Event, error) {
	rows, err := d.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var e Event
		if err := rows.Scan(
			&e.ID,
			&e.RunID,
			&e.Timestamp,
			&e.Action,
			&e.URL,
			&e.Path,
			&e.FileName,
			&e.ErrorMessage,
		); err != nil {
			return nil, err
		}
		events = append(events, e)
	}

	return events, rows.Err()
}
