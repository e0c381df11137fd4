// Package engine implements the task lifecycle engine: input
// normalization, access control, the per-assignee hours ledger,
// assignment-diff notification routing and completion-triggered
// recurrence cloning. Persistence and notification delivery stay behind
// the interfaces in internal/store.
package engine

import (
	"context"
	"time"

	"github.com/hvaldez/taskforge/internal/errors"
	"github.com/hvaldez/taskforge/internal/log"
	"github.com/hvaldez/taskforge/internal/model"
	"github.com/hvaldez/taskforge/internal/store"
)

// Deps bundles the collaborators an Engine needs. Logger and Now are
// optional; they default to a stderr logger and time.Now.
type Deps struct {
	Tasks    store.TaskStore
	Projects store.ProjectStore
	Users    store.UserDirectory
	Hours    store.HoursStore
	Notifier store.NotificationDispatcher
	Logger   *log.Logger
	Now      func() time.Time
}

type Engine struct {
	tasks    store.TaskStore
	projects store.ProjectStore
	users    store.UserDirectory
	hours    store.HoursStore
	notifier store.NotificationDispatcher
	access   *AccessFilter
	log      *log.Logger
	now      func() time.Time
}

func New(d Deps) *Engine {
	logger := d.Logger
	if logger == nil {
		logger = log.Default()
	}
	now := d.Now
	if now == nil {
		now = time.Now
	}
	return &Engine{
		tasks:    d.Tasks,
		projects: d.Projects,
		users:    d.Users,
		hours:    d.Hours,
		notifier: d.Notifier,
		access:   NewAccessFilter(d.Projects, d.Users),
		log:      logger,
		now:      now,
	}
}

// Access exposes the engine's access control filter for outer layers
// that need visibility or edit decisions without running a mutation.
func (e *Engine) Access() *AccessFilter {
	return e.access
}

// Create validates raw input into a new task, resolves its project
// linkage, inserts it and fires assignment notifications. The creating
// principal is auto-included as an assignee when omitted from the input.
func (e *Engine) Create(ctx context.Context, principalID int64, in TaskInput) (model.Task, error) {
	task, err := buildCreate(in, principalID, e.now())
	if err != nil {
		return model.Task{}, err
	}

	// A subtask inherits its parent's project; an explicit project_id in
	// the request is ignored.
	if task.ParentID != nil {
		parent, err := e.tasks.GetByID(ctx, *task.ParentID)
		if err != nil {
			if errors.IsNotFound(err) {
				return model.Task{}, errors.NotFound("parent task %d not found", *task.ParentID)
			}
			return model.Task{}, err
		}
		task.ProjectID = parent.ProjectID
	}
	if task.ProjectID == 0 {
		return model.Task{}, errors.Validation("project_id is required")
	}

	project, err := e.projects.GetByID(ctx, task.ProjectID)
	if err != nil {
		return model.Task{}, err
	}
	if project.Status != model.ProjectActive {
		return model.Task{}, errors.Permission("tasks can only be assigned to active projects")
	}

	created, err := e.tasks.Insert(ctx, task)
	if err != nil {
		return model.Task{}, err
	}

	e.recordHistory(ctx, created.ID, "created", createdDetails(created))

	if err := e.attachSummary(ctx, &created); err != nil {
		return model.Task{}, err
	}

	e.notifyCreated(ctx, created, principalID)
	return created, nil
}

// Update applies a validated patch to a task on behalf of a principal.
// Validation, the project immutability check and both permission checks
// run before any store write. Hours recording follows the field patch;
// notification dispatch and recurrence cloning run last as best-effort
// side effects. Phases are not transactional: a committed field patch
// stays committed even when a later phase fails.
func (e *Engine) Update(ctx context.Context, principalID, taskID int64, in TaskInput) (model.Task, error) {
	current, err := e.tasks.GetByID(ctx, taskID)
	if err != nil {
		return model.Task{}, err
	}

	if in.ProjectID != nil && *in.ProjectID != current.ProjectID {
		return model.Task{}, errors.ImmutableField("project assignment cannot change after creation")
	}

	hoursValue, err := extractHours(in)
	if err != nil {
		return model.Task{}, err
	}
	patch, err := buildPatch(in, e.now())
	if err != nil {
		return model.Task{}, err
	}

	principal, err := e.users.GetByID(ctx, principalID)
	if err != nil {
		return model.Task{}, err
	}
	allowed, err := e.access.CanEdit(ctx, current, principal)
	if err != nil {
		return model.Task{}, err
	}
	if !allowed {
		return model.Task{}, errors.Permission("user %d may not edit task %d", principalID, taskID)
	}
	if hoursValue != nil && !current.Assigned(principalID) {
		return model.Task{}, errors.Permission("user %d is not assigned to task %d and cannot log hours", principalID, taskID)
	}

	updated := current
	if !patch.Empty() {
		updated, err = e.tasks.UpdateByID(ctx, taskID, patch)
		if err != nil {
			return model.Task{}, err
		}
		e.recordHistory(ctx, taskID, "updated", updateDetails(current, updated))
	}

	if hoursValue != nil {
		if _, err := e.hours.RecordHours(ctx, model.HourEntry{TaskID: taskID, UserID: principalID, Hours: *hoursValue}); err != nil {
			// The field patch is already committed; this phase's failure
			// surfaces on its own.
			return model.Task{}, err
		}
	}

	if err := e.attachSummary(ctx, &updated); err != nil {
		return model.Task{}, err
	}

	e.notifyUpdated(ctx, updated, principalID, current.AssignedTo, patch)

	if recurrenceTriggered(current, updated) {
		e.spawnRecurring(ctx, updated)
	}

	return updated, nil
}

// Get loads a task with its time-tracking summary attached.
func (e *Engine) Get(ctx context.Context, taskID int64) (model.Task, error) {
	task, err := e.tasks.GetByID(ctx, taskID)
	if err != nil {
		return model.Task{}, err
	}
	if err := e.attachSummary(ctx, &task); err != nil {
		return model.Task{}, err
	}
	return task, nil
}

// List queries tasks and filters the result down to what the principal
// may see.
func (e *Engine) List(ctx context.Context, principal model.Principal, filter model.Filter) ([]model.Task, error) {
	if err := validateFilter(filter); err != nil {
		return nil, err
	}
	tasks, err := e.tasks.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	return e.access.FilterVisible(ctx, tasks, principal)
}

// Count reports how many tasks match the filter, without visibility
// filtering.
func (e *Engine) Count(ctx context.Context, filter model.Filter) (int64, error) {
	if err := validateFilter(filter); err != nil {
		return 0, err
	}
	return e.tasks.Count(ctx, filter)
}

// History returns the audit trail for a task.
func (e *Engine) History(ctx context.Context, taskID int64) ([]model.HistoryEntry, error) {
	return e.tasks.ListHistory(ctx, taskID)
}

// CanEdit loads the task and principal and runs the edit decision table.
func (e *Engine) CanEdit(ctx context.Context, principalID, taskID int64) (bool, error) {
	task, err := e.tasks.GetByID(ctx, taskID)
	if err != nil {
		return false, err
	}
	principal, err := e.users.GetByID(ctx, principalID)
	if err != nil {
		return false, err
	}
	return e.access.CanEdit(ctx, task, principal)
}
