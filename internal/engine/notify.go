package engine

import (
	"context"

	"github.com/hvaldez/taskforge/internal/model"
	"github.com/hvaldez/taskforge/internal/store"
)

// diffAssignees computes added and removed ids between two assignee sets.
// Order inside each set is irrelevant; results keep current/previous order.
func diffAssignees(previous, current []int64) (added, removed []int64) {
	prevSet := make(map[int64]struct{}, len(previous))
	for _, id := range previous {
		prevSet[id] = struct{}{}
	}
	curSet := make(map[int64]struct{}, len(current))
	for _, id := range current {
		curSet[id] = struct{}{}
	}

	for _, id := range current {
		if _, ok := prevSet[id]; !ok {
			added = append(added, id)
		}
	}
	for _, id := range previous {
		if _, ok := curSet[id]; !ok {
			removed = append(removed, id)
		}
	}
	return added, removed
}

// bestEffort runs a notification or clone side effect inside a
// catch-log-continue boundary. Errors and panics are logged and swallowed
// so a side effect is structurally unable to fail the owning mutation.
func (e *Engine) bestEffort(name string, fn func() error) {
	defer func() {
		if r := recover(); r != nil {
			e.log.Error("side effect panicked", "effect", name, "panic", r)
		}
	}()
	if err := fn(); err != nil {
		e.log.WithError(err).Warn("side effect failed", "effect", name)
	}
}

// notifyCreated emits a task_assignment batch for every initial assignee.
func (e *Engine) notifyCreated(ctx context.Context, task model.Task, createdByID int64) {
	if len(task.AssignedTo) == 0 {
		return
	}
	e.bestEffort("assignment notifications", func() error {
		count, err := e.notifier.CreateAssignmentNotifications(ctx, store.AssigneeNotification{
			Task:               task,
			Type:               store.NotifyTaskAssignment,
			AssigneeIDs:        task.AssignedTo,
			AssignedByID:       createdByID,
			CurrentAssigneeIDs: task.AssignedTo,
		})
		if err == nil {
			e.log.Debug("assignment notifications created", "task_id", task.ID, "count", count)
		}
		return err
	})
}

// notifyUpdated classifies an update for notification routing. A patch
// that touches assigned_to fires assignment/removal batches for the set
// delta (or nothing when the set is unchanged); any other patch fires a
// single task_update batch naming the changed fields. The two paths are
// mutually exclusive.
func (e *Engine) notifyUpdated(ctx context.Context, task model.Task, updatedByID int64, previous []int64, patch store.TaskPatch) {
	if patch.AssignedTo != nil {
		added, removed := diffAssignees(previous, task.AssignedTo)
		if len(added) > 0 {
			e.bestEffort("reassignment notifications", func() error {
				_, err := e.notifier.CreateAssignmentNotifications(ctx, store.AssigneeNotification{
					Task:                task,
					Type:                store.NotifyReassignment,
					AssigneeIDs:         added,
					AssignedByID:        updatedByID,
					PreviousAssigneeIDs: previous,
					CurrentAssigneeIDs:  task.AssignedTo,
				})
				return err
			})
		}
		if len(removed) > 0 {
			e.bestEffort("removal notifications", func() error {
				_, err := e.notifier.CreateRemovalNotifications(ctx, store.AssigneeNotification{
					Task:                task,
					Type:                store.NotifyRemoval,
					AssigneeIDs:         removed,
					AssignedByID:        updatedByID,
					PreviousAssigneeIDs: previous,
					CurrentAssigneeIDs:  task.AssignedTo,
				})
				return err
			})
		}
		return
	}

	changes := patch.Fields()
	if len(changes) == 0 {
		return
	}
	e.bestEffort("update notifications", func() error {
		_, err := e.notifier.CreateUpdateNotifications(ctx, store.UpdateNotification{
			Task:        task,
			UpdatedByID: updatedByID,
			Changes:     changes,
		})
		return err
	})
}
