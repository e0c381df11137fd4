package engine

// RecurrenceInput is the raw recurrence shape before validation.
type RecurrenceInput struct {
	Freq     string `json:"freq"`
	Interval any    `json:"interval"`
}

// TaskInput is the raw create/update payload as the outer request layer
// hands it over. Polymorphic fields (priority, assignees, tags, hours)
// stay untyped here; the validator normalizes or rejects them. Nullable
// fields carry an explicit Set flag so "absent" and "cleared" are
// distinguishable after JSON decoding.
type TaskInput struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	Status      *string `json:"status,omitempty"`

	// Priority accepts an integer 1-10 or a legacy "low"/"medium"/"high".
	Priority any `json:"priority,omitempty"`

	// AssignedTo accepts a list of user ids as strings or numbers.
	AssignedTo any `json:"assigned_to,omitempty"`

	// Tags accepts a delimited string or a list of strings.
	Tags any `json:"tags,omitempty"`

	Deadline    *string `json:"deadline,omitempty"`
	DeadlineSet bool    `json:"-"`

	Recurrence    *RecurrenceInput `json:"recurrence,omitempty"`
	RecurrenceSet bool             `json:"-"`

	ProjectID *int64 `json:"project_id,omitempty"`
	ParentID  *int64 `json:"parent_id,omitempty"`

	Archived *bool `json:"archived,omitempty"`

	// Hours logs time for the requesting principal. TimeSpentHours is
	// the legacy alias; when both are present Hours wins.
	Hours          any `json:"hours,omitempty"`
	TimeSpentHours any `json:"time_spent_hours,omitempty"`
}
