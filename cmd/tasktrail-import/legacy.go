package main

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3" // register the sqlite3 driver

	"github.com/persistorai/tasktrail/internal/models"
)

// legacyTask is a row of the Flask "task" table.
type legacyTask struct {
	ID          int64
	Title       string
	Description sql.NullString
	Completed   bool
	Priority    string
	UserID      string
}

// legacyLog is a row of the Flask "task_log" table.
type legacyLog struct {
	ID        int64
	TaskID    int64
	Action    string
	Timestamp sql.NullString
	UserID    string
}

// skippedRow records a legacy row that could not be imported.
type skippedRow struct {
	Table  string
	ID     int64
	Reason string
}

// openLegacy opens the legacy database read-only.
func openLegacy(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", "file:"+path+"?mode=ro&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open legacy db: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("open legacy db: %w", err)
	}
	return db, nil
}

// readLegacyTasks reads every task row. Columns are cast to TEXT where the
// Flask schema allowed loose affinity.
func readLegacyTasks(ctx context.Context, db *sql.DB) ([]legacyTask, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, COALESCE(title, ''), description, COALESCE(completed, 0),
		        COALESCE(priority, ''), COALESCE(CAST(user_id AS TEXT), '')
		 FROM task ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tasks []legacyTask
	for rows.Next() {
		var t legacyTask
		if err := rows.Scan(&t.ID, &t.Title, &t.Description, &t.Completed, &t.Priority, &t.UserID); err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// readLegacyLogs reads every task_log row in insertion order.
func readLegacyLogs(ctx context.Context, db *sql.DB) ([]legacyLog, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, task_id, COALESCE(action, ''), CAST(timestamp AS TEXT), COALESCE(CAST(user_id AS TEXT), '')
		 FROM task_log ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []legacyLog
	for rows.Next() {
		var l legacyLog
		if err := rows.Scan(&l.ID, &l.TaskID, &l.Action, &l.Timestamp, &l.UserID); err != nil {
			return nil, fmt.Errorf("scan task log: %w", err)
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}

// convertTasks maps legacy rows onto models.Task. Unknown priorities fall
// back to Medium; rows that cannot satisfy the current schema are skipped.
func convertTasks(rows []legacyTask) ([]models.Task, []skippedRow) {
	tasks := make([]models.Task, 0, len(rows))
	var skipped []skippedRow

	for _, row := range rows {
		title := strings.TrimSpace(row.Title)
		switch {
		case title == "":
			skipped = append(skipped, skippedRow{"task", row.ID, "empty title"})
			continue
		case len([]rune(title)) > models.MaxTitleLen:
			skipped = append(skipped, skippedRow{"task", row.ID, "title too long"})
			continue
		case row.UserID == "":
			skipped = append(skipped, skippedRow{"task", row.ID, "missing user_id"})
			continue
		}

		var desc *string
		if row.Description.Valid {
			if len([]rune(row.Description.String)) > models.MaxDescriptionLen {
				skipped = append(skipped, skippedRow{"task", row.ID, "description too long"})
				continue
			}
			d := row.Description.String
			desc = &d
		}

		priority, err := models.ParsePriority(row.Priority)
		if err != nil {
			priority = models.PriorityMedium
		}

		tasks = append(tasks, models.Task{
			ID:          row.ID,
			Title:       title,
			Description: desc,
			Completed:   row.Completed,
			Priority:    priority,
			UserID:      row.UserID,
		})
	}
	return tasks, skipped
}

// convertLogs maps legacy rows onto models.AuditEntry. Entries keep their
// task_id even when the task itself was deleted or skipped.
func convertLogs(rows []legacyLog) ([]models.AuditEntry, []skippedRow) {
	entries := make([]models.AuditEntry, 0, len(rows))
	var skipped []skippedRow

	for _, row := range rows {
		action := models.Action(strings.ToLower(strings.TrimSpace(row.Action)))
		if !action.Valid() {
			skipped = append(skipped, skippedRow{"task_log", row.ID, fmt.Sprintf("unknown action %q", row.Action)})
			continue
		}
		if row.UserID == "" {
			skipped = append(skipped, skippedRow{"task_log", row.ID, "missing user_id"})
			continue
		}
		ts, ok := parseLegacyTime(row.Timestamp)
		if !ok {
			skipped = append(skipped, skippedRow{"task_log", row.ID, "unparseable timestamp"})
			continue
		}

		entries = append(entries, models.AuditEntry{
			ID:        row.ID,
			TaskID:    row.TaskID,
			Action:    action,
			Timestamp: ts,
			UserID:    row.UserID,
		})
	}
	return entries, skipped
}

// Layouts written by SQLAlchemy and by SQLite's CURRENT_TIMESTAMP.
var legacyTimeLayouts = []string{
	"2006-01-02 15:04:05.999999",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05.999999",
	time.RFC3339Nano,
}

// parseLegacyTime parses a naive UTC datetime string.
func parseLegacyTime(s sql.NullString) (time.Time, bool) {
	if !s.Valid || s.String == "" {
		return time.Time{}, false
	}
	for _, layout := range legacyTimeLayouts {
		if t, err := time.Parse(layout, s.String); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}
