package sqlite

import (
	"context"
	"time"

	"github.com/persistorai/tasktrail/internal/domain"
	"github.com/persistorai/tasktrail/internal/models"
	"github.com/persistorai/tasktrail/internal/store"
)

var _ domain.AuditRecorder = (*AuditRecorder)(nil)

// AuditRecorder appends to task_logs inside one scope's transaction.
// Timestamps are stored as Unix microseconds.
type AuditRecorder struct {
	s *scope
}

// Append inserts an audit entry.
func (ar *AuditRecorder) Append(ctx context.Context, taskID int64, action models.Action, actor string) (*models.AuditEntry, error) {
	if err := ar.s.writable(); err != nil {
		return nil, err
	}

	if actor == "" {
		return nil, models.ErrMissingActor
	}

	if !action.Valid() {
		return nil, models.ErrInvalidAction
	}

	ctx, cancel := store.WithTimeout(ctx)
	defer cancel()

	e := models.AuditEntry{
		TaskID:    taskID,
		Action:    action,
		Timestamp: ar.s.Clock.Now(),
		UserID:    actor,
	}

	err := ar.s.tx.QueryRowContext(ctx, `
		INSERT INTO task_logs (task_id, action, timestamp, user_id)
		VALUES (?, ?, ?, ?)
		RETURNING id`,
		e.TaskID, string(e.Action), e.Timestamp.UnixMicro(), e.UserID,
	).Scan(&e.ID)
	if err != nil {
		return nil, models.StorageError("inserting audit entry", err)
	}

	return &e, nil
}

// ListForActor returns the actor's entries, oldest first.
func (ar *AuditRecorder) ListForActor(ctx context.Context, actor string) ([]models.AuditEntry, error) {
	ctx, cancel := store.WithTimeout(ctx)
	defer cancel()

	rows, err := ar.s.tx.QueryContext(ctx, `
		SELECT id, task_id, action, timestamp, user_id
		FROM task_logs
		WHERE user_id = ?
		ORDER BY timestamp, id`, actor)
	if err != nil {
		return nil, models.StorageError("querying audit log", err)
	}
	defer rows.Close()

	entries := make([]models.AuditEntry, 0)
	for rows.Next() {
		var e models.AuditEntry
		var action string
		var micros int64

		if err := rows.Scan(&e.ID, &e.TaskID, &action, &micros, &e.UserID); err != nil {
			return nil, models.StorageError("scanning audit entry", err)
		}
		e.Action = models.Action(action)
		e.Timestamp = time.UnixMicro(micros).UTC()
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, models.StorageError("iterating audit log", err)
	}

	return entries, nil
}
