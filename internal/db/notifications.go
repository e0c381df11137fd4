package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hvaldez/taskforge/internal/store"
)

// Notifications implements store.NotificationDispatcher by persisting one
// row per recipient; an outbound transport drains the table elsewhere.
type Notifications struct {
	db *sql.DB
}

func (s *Notifications) CreateAssignmentNotifications(ctx context.Context, n store.AssigneeNotification) (int, error) {
	return s.insertBatch(ctx, n.Task.ID, n.Type, n.AssignedByID, n.AssigneeIDs, "")
}

func (s *Notifications) CreateRemovalNotifications(ctx context.Context, n store.AssigneeNotification) (int, error) {
	return s.insertBatch(ctx, n.Task.ID, n.Type, n.AssignedByID, n.AssigneeIDs, "")
}

func (s *Notifications) CreateUpdateNotifications(ctx context.Context, n store.UpdateNotification) (int, error) {
	// Update notifications go to every current assignee and carry the
	// changed field names, never values.
	return s.insertBatch(ctx, n.Task.ID, store.NotifyTaskUpdate, n.UpdatedByID,
		n.Task.AssignedTo, strings.Join(n.Changes, ","))
}

func (s *Notifications) insertBatch(ctx context.Context, taskID int64, notifType string, actorID int64, recipients []int64, changes string) (int, error) {
	if len(recipients) == 0 {
		return 0, nil
	}

	batchID := uuid.NewString()
	now := time.Now().UTC()
	count := 0
	for _, userID := range recipients {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO notifications (batch_id, task_id, user_id, type, actor_id, changes, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			batchID, taskID, userID, notifType, actorID, changes, now)
		if err != nil {
			return count, fmt.Errorf("insert notification for user %d: %w", userID, err)
		}
		count++
	}
	return count, nil
}

// CountByUser reports pending notifications per recipient; used by tests
// and the CLI.
func (s *Notifications) CountByUser(ctx context.Context, userID int64) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM notifications WHERE user_id = ?`, userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count notifications for user %d: %w", userID, err)
	}
	return count, nil
}
