package engine

import (
	"context"
	"math"

	"github.com/hvaldez/taskforge/internal/errors"
	"github.com/hvaldez/taskforge/internal/model"
)

// RecordHours appends a ledger entry for the principal on the given task
// and returns the refreshed summary. Only a current assignee may log
// hours; the value must be non-negative and finite.
func (e *Engine) RecordHours(ctx context.Context, principalID, taskID int64, hours float64) (model.TimeTrackingSummary, error) {
	if math.IsNaN(hours) || math.IsInf(hours, 0) || hours < 0 {
		return model.TimeTrackingSummary{}, errors.Validation("hours must be a non-negative finite number, got %v", hours)
	}

	task, err := e.tasks.GetByID(ctx, taskID)
	if err != nil {
		return model.TimeTrackingSummary{}, err
	}
	if !task.Assigned(principalID) {
		return model.TimeTrackingSummary{}, errors.Permission("user %d is not assigned to task %d and cannot log hours", principalID, taskID)
	}

	if _, err := e.hours.RecordHours(ctx, model.HourEntry{TaskID: taskID, UserID: principalID, Hours: hours}); err != nil {
		return model.TimeTrackingSummary{}, err
	}
	return e.summary(ctx, task)
}

// summary returns the task's time-tracking aggregate. When no hours have
// been logged it still returns a summary listing every current assignee
// at zero.
func (e *Engine) summary(ctx context.Context, task model.Task) (model.TimeTrackingSummary, error) {
	summary, err := e.hours.SummaryByTask(ctx, task.ID)
	if err != nil {
		return model.TimeTrackingSummary{}, err
	}

	logged := make(map[int64]struct{}, len(summary.PerAssignee))
	for _, entry := range summary.PerAssignee {
		logged[entry.UserID] = struct{}{}
	}
	for _, id := range task.AssignedTo {
		if _, ok := logged[id]; !ok {
			summary.PerAssignee = append(summary.PerAssignee, model.AssigneeHours{UserID: id})
		}
	}
	if summary.PerAssignee == nil {
		summary.PerAssignee = []model.AssigneeHours{}
	}
	return summary, nil
}

// attachSummary populates task.TimeTracking in place.
func (e *Engine) attachSummary(ctx context.Context, task *model.Task) error {
	summary, err := e.summary(ctx, *task)
	if err != nil {
		return err
	}
	task.TimeTracking = &summary
	return nil
}
