// Package store declares the persistence and dispatch contracts the
// lifecycle engine consumes. Implementations live elsewhere (internal/db
// provides the SQLite one); the engine never depends on a concrete store.
package store

import (
	"context"
	"time"

	"github.com/hvaldez/taskforge/internal/model"
)

// Notification types emitted by the assignee-diff trigger.
const (
	NotifyTaskAssignment = "task_assignment"
	NotifyReassignment   = "reassignment"
	NotifyRemoval        = "task_removal"
	NotifyTaskUpdate     = "task_update"
)

// TaskPatch is a normalized, validated field patch. A nil pointer means
// the field is untouched. Deadline and Recurrence carry an explicit Set
// flag so "absent" and "cleared" stay distinguishable.
type TaskPatch struct {
	Title       *string
	Description *string
	Status      *model.Status
	Priority    *int
	AssignedTo  *[]int64
	Tags        *[]string
	Archived    *bool

	Deadline    *time.Time
	DeadlineSet bool

	Recurrence    *model.Recurrence
	RecurrenceSet bool
}

// Fields lists the names of the fields this patch touches, for
// task_update notification summaries and history entries.
func (p TaskPatch) Fields() []string {
	var names []string
	if p.Title != nil {
		names = append(names, "title")
	}
	if p.Description != nil {
		names = append(names, "description")
	}
	if p.Status != nil {
		names = append(names, "status")
	}
	if p.Priority != nil {
		names = append(names, "priority")
	}
	if p.AssignedTo != nil {
		names = append(names, "assigned_to")
	}
	if p.Tags != nil {
		names = append(names, "tags")
	}
	if p.DeadlineSet {
		names = append(names, "deadline")
	}
	if p.RecurrenceSet {
		names = append(names, "recurrence")
	}
	if p.Archived != nil {
		names = append(names, "archived")
	}
	return names
}

// Empty reports whether the patch touches nothing.
func (p TaskPatch) Empty() bool {
	return len(p.Fields()) == 0
}

type TaskStore interface {
	GetByID(ctx context.Context, id int64) (model.Task, error)
	Insert(ctx context.Context, task model.Task) (model.Task, error)
	InsertMany(ctx context.Context, tasks []model.Task) ([]model.Task, error)
	UpdateByID(ctx context.Context, id int64, patch TaskPatch) (model.Task, error)
	DeleteByID(ctx context.Context, id int64) error
	GetSubtasks(ctx context.Context, parentID int64) ([]model.Task, error)
	List(ctx context.Context, filter model.Filter) ([]model.Task, error)
	Count(ctx context.Context, filter model.Filter) (int64, error)
	AddHistory(ctx context.Context, taskID int64, eventType, details string) error
	ListHistory(ctx context.Context, taskID int64) ([]model.HistoryEntry, error)
}

type ProjectStore interface {
	GetByID(ctx context.Context, id int64) (model.Project, error)
	// AccessibleProjectIDs returns ids of projects the user created or manages.
	AccessibleProjectIDs(ctx context.Context, userID int64) ([]int64, error)
	// MemberProjectIDs returns ids of projects the user is a member of.
	MemberProjectIDs(ctx context.Context, userID int64) ([]int64, error)
}

type UserDirectory interface {
	GetByID(ctx context.Context, id int64) (model.Principal, error)
	GetManyByIDs(ctx context.Context, ids []int64) ([]model.Principal, error)
	// SubordinateIDs returns ids of principals in division whose hierarchy
	// is strictly below the given rank.
	SubordinateIDs(ctx context.Context, division string, belowRank int) ([]int64, error)
}

type HoursStore interface {
	RecordHours(ctx context.Context, entry model.HourEntry) (model.HourEntry, error)
	SummaryByTask(ctx context.Context, taskID int64) (model.TimeTrackingSummary, error)
}

// AssigneeNotification is the payload for assignment and removal batches.
type AssigneeNotification struct {
	Task                model.Task
	Type                string
	AssigneeIDs         []int64
	AssignedByID        int64
	PreviousAssigneeIDs []int64
	CurrentAssigneeIDs  []int64
}

// UpdateNotification summarizes a non-assignment update by field name.
type UpdateNotification struct {
	Task        model.Task
	UpdatedByID int64
	Changes     []string
}

// NotificationDispatcher delivers notification intents. Implementations
// return how many notifications were created; the engine treats every
// call as best-effort and never lets a dispatch failure surface.
type NotificationDispatcher interface {
	CreateAssignmentNotifications(ctx context.Context, n AssigneeNotification) (int, error)
	CreateRemovalNotifications(ctx context.Context, n AssigneeNotification) (int, error)
	CreateUpdateNotifications(ctx context.Context, n UpdateNotification) (int, error)
}
