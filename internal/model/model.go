package model

import "time"

// MaxAssignees is the fixed cap on simultaneous assignees per task.
const MaxAssignees = 5

type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
	StatusBlocked    Status = "blocked"
)

type Frequency string

const (
	FreqDaily   Frequency = "daily"
	FreqWeekly  Frequency = "weekly"
	FreqMonthly Frequency = "monthly"
)

type Role string

const (
	RoleAdmin   Role = "admin"
	RoleManager Role = "manager"
	RoleStaff   Role = "staff"
)

const (
	ProjectActive   = "active"
	ProjectArchived = "archived"
)

const (
	DefaultPriority = 5
	MinPriority     = 1
	MaxPriority     = 10
)

// DateLayout is the calendar-day format used for deadlines.
const DateLayout = "2006-01-02"

type Recurrence struct {
	Freq     Frequency `json:"freq"`
	Interval int       `json:"interval"`
	SeriesID string    `json:"series_id,omitempty"`
}

type Task struct {
	ID          int64       `json:"id"`
	ProjectID   int64       `json:"project_id"`
	ParentID    *int64      `json:"parent_id,omitempty"`
	Title       string      `json:"title"`
	Description string      `json:"description,omitempty"`
	Status      Status      `json:"status"`
	Priority    int         `json:"priority"`
	AssignedTo  []int64     `json:"assigned_to"`
	Tags        []string    `json:"tags,omitempty"`
	Deadline    *time.Time  `json:"deadline,omitempty"`
	Recurrence  *Recurrence `json:"recurrence,omitempty"`
	Archived    bool        `json:"archived"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`

	// TimeTracking is attached by the engine on reads and mutations;
	// it is never persisted on the task row itself.
	TimeTracking *TimeTrackingSummary `json:"time_tracking,omitempty"`
}

// Assigned reports whether userID is in the task's assignee set.
func (t Task) Assigned(userID int64) bool {
	for _, id := range t.AssignedTo {
		if id == userID {
			return true
		}
	}
	return false
}

type HourEntry struct {
	ID        int64     `json:"id"`
	TaskID    int64     `json:"task_id"`
	UserID    int64     `json:"user_id"`
	Hours     float64   `json:"hours"`
	CreatedAt time.Time `json:"created_at"`
}

type AssigneeHours struct {
	UserID int64   `json:"user_id"`
	Hours  float64 `json:"hours"`
}

type TimeTrackingSummary struct {
	TotalHours  float64         `json:"total_hours"`
	PerAssignee []AssigneeHours `json:"per_assignee"`
}

// Principal is consumed from the external user directory, never owned here.
type Principal struct {
	ID         int64  `json:"id"`
	Role       Role   `json:"role"`
	Hierarchy  int    `json:"hierarchy"`
	Division   string `json:"division"`
	Department string `json:"department"`
}

type Project struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Status    string `json:"status"`
	CreatorID int64  `json:"creator_id"`
}

type HistoryEntry struct {
	ID        int64     `json:"id"`
	TaskID    int64     `json:"task_id"`
	EventType string    `json:"event_type"`
	Details   string    `json:"details"`
	CreatedAt time.Time `json:"created_at"`
}

type Filter struct {
	Query           string     `json:"query"`
	Status          string     `json:"status"`
	Tags            []string   `json:"tags"`
	ProjectID       *int64     `json:"project_id"`
	AssigneeID      *int64     `json:"assignee_id"`
	IncludeArchived bool       `json:"include_archived"`
	DueBefore       *time.Time `json:"due_before"`
	DueAfter        *time.Time `json:"due_after"`
	SortBy          string     `json:"sort_by"`
	SortDesc        bool       `json:"sort_desc"`
	Limit           int        `json:"limit"`
	Offset          int        `json:"offset"`
}
