package engine

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/hvaldez/taskforge/internal/model"
	"github.com/hvaldez/taskforge/internal/store"
)

// nextDeadline advances a deadline by one recurrence step. A missing
// deadline yields nil; no date arithmetic is attempted.
func nextDeadline(deadline *time.Time, freq model.Frequency, interval int) *time.Time {
	if deadline == nil {
		return nil
	}

	var next time.Time
	switch freq {
	case model.FreqDaily:
		next = deadline.AddDate(0, 0, interval)
	case model.FreqWeekly:
		next = deadline.AddDate(0, 0, 7*interval)
	case model.FreqMonthly:
		next = deadline.AddDate(0, interval, 0)
	default:
		return nil
	}
	return &next
}

// recurrenceTriggered reports whether an update transitioned the task
// into completed while a recurrence cadence is set. The spawn happens
// exactly once per such transition, never on repeated completed updates.
func recurrenceTriggered(before, after model.Task) bool {
	if before.Status == model.StatusCompleted || after.Status != model.StatusCompleted {
		return false
	}
	return after.Recurrence != nil && model.ValidFrequency(after.Recurrence.Freq)
}

// spawnRecurring clones a completed recurring task into the next
// occurrence of its series, then clones its subtasks under the new
// parent. Every failure in here is logged and swallowed; the triggering
// update already succeeded and must stay that way.
func (e *Engine) spawnRecurring(ctx context.Context, completed model.Task) {
	rec := *completed.Recurrence

	if rec.SeriesID == "" {
		rec.SeriesID = uuid.NewString()
		// Best-effort: stamp the series onto the original task so later
		// completions join the same series.
		e.bestEffort("persist series id", func() error {
			patch := store.TaskPatch{
				RecurrenceSet: true,
				Recurrence:    &model.Recurrence{Freq: rec.Freq, Interval: rec.Interval, SeriesID: rec.SeriesID},
			}
			_, err := e.tasks.UpdateByID(ctx, completed.ID, patch)
			return err
		})
	}

	successor := model.Task{
		ProjectID:   completed.ProjectID,
		Title:       completed.Title,
		Description: completed.Description,
		Status:      model.StatusPending,
		Priority:    completed.Priority,
		AssignedTo:  completed.AssignedTo,
		Tags:        completed.Tags,
		Deadline:    nextDeadline(completed.Deadline, rec.Freq, rec.Interval),
		Recurrence:  &model.Recurrence{Freq: rec.Freq, Interval: rec.Interval, SeriesID: rec.SeriesID},
	}

	var inserted model.Task
	e.bestEffort("recurrence clone", func() error {
		created, err := e.tasks.Insert(ctx, successor)
		if err != nil {
			return err
		}
		inserted = created
		return nil
	})
	if inserted.ID == 0 {
		return
	}

	e.bestEffort("recurrence subtask clones", func() error {
		subtasks, err := e.tasks.GetSubtasks(ctx, completed.ID)
		if err != nil {
			return err
		}
		if len(subtasks) == 0 {
			return nil
		}

		clones := make([]model.Task, 0, len(subtasks))
		for _, subtask := range subtasks {
			parentID := inserted.ID
			clones = append(clones, model.Task{
				ProjectID:   inserted.ProjectID,
				ParentID:    &parentID,
				Title:       subtask.Title,
				Description: subtask.Description,
				Status:      model.StatusPending,
				Priority:    subtask.Priority,
				AssignedTo:  subtask.AssignedTo,
				Tags:        subtask.Tags,
				Deadline:    nextDeadline(subtask.Deadline, rec.Freq, rec.Interval),
				Recurrence:  &model.Recurrence{Freq: rec.Freq, Interval: rec.Interval, SeriesID: rec.SeriesID},
			})
		}
		_, err = e.tasks.InsertMany(ctx, clones)
		return err
	})

	e.log.Info("recurring task spawned",
		"task_id", completed.ID, "successor_id", inserted.ID, "series_id", rec.SeriesID)
}
