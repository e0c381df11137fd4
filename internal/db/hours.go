package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hvaldez/taskforge/internal/model"
)

// Hours implements store.HoursStore: an append-only per-assignee ledger
// aggregated on read.
type Hours struct {
	db *sql.DB
}

func (s *Hours) RecordHours(ctx context.Context, entry model.HourEntry) (model.HourEntry, error) {
	entry.CreatedAt = time.Now().UTC()
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO hour_entries (task_id, user_id, hours, created_at) VALUES (?, ?, ?, ?)`,
		entry.TaskID, entry.UserID, entry.Hours, entry.CreatedAt)
	if err != nil {
		return model.HourEntry{}, fmt.Errorf("record hours for task %d: %w", entry.TaskID, err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return model.HourEntry{}, err
	}
	entry.ID = id
	return entry, nil
}

func (s *Hours) SummaryByTask(ctx context.Context, taskID int64) (model.TimeTrackingSummary, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT user_id, SUM(hours) FROM hour_entries WHERE task_id = ? GROUP BY user_id ORDER BY user_id`, taskID)
	if err != nil {
		return model.TimeTrackingSummary{}, fmt.Errorf("summarize hours for task %d: %w", taskID, err)
	}
	defer rows.Close()

	summary := model.TimeTrackingSummary{PerAssignee: []model.AssigneeHours{}}
	for rows.Next() {
		var entry model.AssigneeHours
		if err := rows.Scan(&entry.UserID, &entry.Hours); err != nil {
			return model.TimeTrackingSummary{}, fmt.Errorf("scan hours summary: %w", err)
		}
		summary.PerAssignee = append(summary.PerAssignee, entry)
		summary.TotalHours += entry.Hours
	}
	return summary, rows.Err()
}
