package engine

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/hvaldez/taskforge/internal/errors"
	"github.com/hvaldez/taskforge/internal/model"
	"github.com/hvaldez/taskforge/internal/store"
)

func normalizeTitle(raw string) (string, error) {
	title := strings.TrimSpace(raw)
	if title == "" {
		return "", errors.Validation("title must not be empty")
	}
	return title, nil
}

func normalizeStatus(raw string) (model.Status, error) {
	status := model.Status(strings.ToLower(strings.TrimSpace(raw)))
	if !model.ValidStatus(status) {
		return "", errors.Validation("invalid status %q", raw)
	}
	return status, nil
}

// normalizePriority accepts an integer 1-10 or a legacy alias; anything
// else fails.
func normalizePriority(raw any) (int, error) {
	switch v := raw.(type) {
	case int:
		return checkPriorityRange(v)
	case int64:
		return checkPriorityRange(int(v))
	case float64:
		if v != math.Trunc(v) {
			return 0, errors.Validation("priority must be an integer, got %v", v)
		}
		return checkPriorityRange(int(v))
	case string:
		if p, ok := model.PriorityAliases[strings.ToLower(strings.TrimSpace(v))]; ok {
			return p, nil
		}
		return 0, errors.Validation("invalid priority %q", v)
	default:
		return 0, errors.Validation("invalid priority value of type %T", raw)
	}
}

func checkPriorityRange(p int) (int, error) {
	if p < model.MinPriority || p > model.MaxPriority {
		return 0, errors.Validation("priority %d out of range %d-%d", p, model.MinPriority, model.MaxPriority)
	}
	return p, nil
}

// normalizeTags accepts a comma-delimited string or a list; entries are
// trimmed, empties dropped, duplicates removed with first-seen order kept.
func normalizeTags(raw any) ([]string, error) {
	var parts []string
	switch v := raw.(type) {
	case string:
		parts = strings.Split(v, ",")
	case []string:
		parts = v
	case []any:
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, errors.Validation("tags must be strings, got %T", item)
			}
			parts = append(parts, s)
		}
	default:
		return nil, errors.Validation("tags must be a string or a list, got %T", raw)
	}

	seen := make(map[string]struct{}, len(parts))
	tags := make([]string, 0, len(parts))
	for _, part := range parts {
		tag := strings.TrimSpace(part)
		if tag == "" {
			continue
		}
		key := strings.ToLower(tag)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		tags = append(tags, tag)
	}
	return tags, nil
}

// normalizeAssignees converts a raw id list into a deduplicated []int64.
// String entries are trimmed and parsed, numeric entries must be finite
// integers; empty and non-finite values are dropped. A non-zero creatorID
// absent from the result is appended. The assignee cap applies last.
func normalizeAssignees(raw any, creatorID int64) ([]int64, error) {
	var items []any
	switch v := raw.(type) {
	case nil:
	case []any:
		items = v
	case []int64:
		for _, id := range v {
			items = append(items, id)
		}
	case []string:
		for _, s := range v {
			items = append(items, s)
		}
	default:
		return nil, errors.Validation("assigned_to must be a list, got %T", raw)
	}

	seen := make(map[int64]struct{}, len(items))
	ids := make([]int64, 0, len(items))
	add := func(id int64) {
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}

	for _, item := range items {
		switch v := item.(type) {
		case string:
			s := strings.TrimSpace(v)
			if s == "" {
				continue
			}
			id, err := strconv.ParseInt(s, 10, 64)
			if err != nil {
				return nil, errors.Validation("invalid assignee id %q", v)
			}
			add(id)
		case float64:
			if math.IsNaN(v) || math.IsInf(v, 0) || v != math.Trunc(v) {
				continue
			}
			add(int64(v))
		case int:
			add(int64(v))
		case int64:
			add(v)
		default:
			return nil, errors.Validation("invalid assignee id of type %T", item)
		}
	}

	if creatorID != 0 {
		add(creatorID)
	}

	if len(ids) > model.MaxAssignees {
		return nil, errors.Validation("at most %d assignees allowed, got %d", model.MaxAssignees, len(ids))
	}
	return ids, nil
}

// normalizeDeadline parses a calendar date and rejects dates before the
// current day. Comparison is by calendar day, not timestamp.
func normalizeDeadline(raw string, now time.Time) (time.Time, error) {
	value := strings.TrimSpace(raw)
	deadline, err := time.Parse(model.DateLayout, value)
	if err != nil {
		if ts, tsErr := time.Parse(time.RFC3339, value); tsErr == nil {
			deadline = ts
		} else {
			return time.Time{}, errors.Validation("invalid deadline %q", raw)
		}
	}

	today := truncateToDay(now)
	if truncateToDay(deadline).Before(today) {
		return time.Time{}, errors.Validation("deadline %s is in the past", deadline.Format(model.DateLayout))
	}
	return deadline, nil
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func normalizeRecurrence(in *RecurrenceInput) (*model.Recurrence, error) {
	if in == nil {
		// Explicit null clears recurrence.
		return nil, nil
	}

	freq := model.Frequency(strings.ToLower(strings.TrimSpace(in.Freq)))
	if !model.ValidFrequency(freq) {
		return nil, errors.Validation("invalid recurrence freq %q", in.Freq)
	}

	interval, err := normalizeInterval(in.Interval)
	if err != nil {
		return nil, err
	}
	return &model.Recurrence{Freq: freq, Interval: interval}, nil
}

func normalizeInterval(raw any) (int, error) {
	switch v := raw.(type) {
	case int:
		if v >= 1 {
			return v, nil
		}
	case int64:
		if v >= 1 {
			return int(v), nil
		}
	case float64:
		if v >= 1 && v == math.Trunc(v) {
			return int(v), nil
		}
	case nil:
		return 0, errors.Validation("recurrence interval is required")
	}
	return 0, errors.Validation("recurrence interval must be a positive integer, got %v", raw)
}

// extractHours pulls the logged-hours value out of a patch. Hours wins
// over the legacy time_spent_hours alias; exactly one is consumed. The
// value must be a non-negative finite number.
func extractHours(in TaskInput) (*float64, error) {
	raw := in.Hours
	if raw == nil {
		raw = in.TimeSpentHours
	}
	if raw == nil {
		return nil, nil
	}

	var hours float64
	switch v := raw.(type) {
	case float64:
		hours = v
	case int:
		hours = float64(v)
	case int64:
		hours = float64(v)
	default:
		return nil, errors.Validation("hours must be a number, got %T", raw)
	}

	if math.IsNaN(hours) || math.IsInf(hours, 0) || hours < 0 {
		return nil, errors.Validation("hours must be a non-negative finite number, got %v", hours)
	}
	return &hours, nil
}

// buildCreate validates raw create input into a Task ready for insert.
// Project linkage (parent inheritance, active-project check) is resolved
// by the engine before insert; a zero ProjectID here means the caller
// must supply one.
func buildCreate(in TaskInput, creatorID int64, now time.Time) (model.Task, error) {
	if in.Title == nil {
		return model.Task{}, errors.Validation("title is required")
	}
	title, err := normalizeTitle(*in.Title)
	if err != nil {
		return model.Task{}, err
	}

	task := model.Task{
		Title:    title,
		Status:   model.StatusPending,
		Priority: model.DefaultPriority,
	}

	if in.Description != nil {
		task.Description = strings.TrimSpace(*in.Description)
	}
	if in.Status != nil {
		status, err := normalizeStatus(*in.Status)
		if err != nil {
			return model.Task{}, err
		}
		task.Status = status
	}
	if in.Priority != nil {
		priority, err := normalizePriority(in.Priority)
		if err != nil {
			return model.Task{}, err
		}
		task.Priority = priority
	}

	assignees, err := normalizeAssignees(in.AssignedTo, creatorID)
	if err != nil {
		return model.Task{}, err
	}
	task.AssignedTo = assignees

	if in.Tags != nil {
		tags, err := normalizeTags(in.Tags)
		if err != nil {
			return model.Task{}, err
		}
		task.Tags = tags
	}
	if in.Deadline != nil {
		deadline, err := normalizeDeadline(*in.Deadline, now)
		if err != nil {
			return model.Task{}, err
		}
		task.Deadline = &deadline
	}
	if in.Recurrence != nil {
		recurrence, err := normalizeRecurrence(in.Recurrence)
		if err != nil {
			return model.Task{}, err
		}
		task.Recurrence = recurrence
	}
	if in.ProjectID != nil {
		task.ProjectID = *in.ProjectID
	}
	task.ParentID = in.ParentID

	return task, nil
}

// buildPatch validates raw update input into a normalized field patch.
// Assignees are not auto-extended with a creator on update. Project and
// parent linkage never appear in a patch; the engine rejects project
// changes before this runs.
func buildPatch(in TaskInput, now time.Time) (store.TaskPatch, error) {
	var patch store.TaskPatch

	if in.Title != nil {
		title, err := normalizeTitle(*in.Title)
		if err != nil {
			return store.TaskPatch{}, err
		}
		patch.Title = &title
	}
	if in.Description != nil {
		description := strings.TrimSpace(*in.Description)
		patch.Description = &description
	}
	if in.Status != nil {
		status, err := normalizeStatus(*in.Status)
		if err != nil {
			return store.TaskPatch{}, err
		}
		patch.Status = &status
	}
	if in.Priority != nil {
		priority, err := normalizePriority(in.Priority)
		if err != nil {
			return store.TaskPatch{}, err
		}
		patch.Priority = &priority
	}
	if in.AssignedTo != nil {
		assignees, err := normalizeAssignees(in.AssignedTo, 0)
		if err != nil {
			return store.TaskPatch{}, err
		}
		patch.AssignedTo = &assignees
	}
	if in.Tags != nil {
		tags, err := normalizeTags(in.Tags)
		if err != nil {
			return store.TaskPatch{}, err
		}
		patch.Tags = &tags
	}
	if in.DeadlineSet {
		patch.DeadlineSet = true
		if in.Deadline != nil && strings.TrimSpace(*in.Deadline) != "" {
			deadline, err := normalizeDeadline(*in.Deadline, now)
			if err != nil {
				return store.TaskPatch{}, err
			}
			patch.Deadline = &deadline
		}
	}
	if in.RecurrenceSet {
		patch.RecurrenceSet = true
		if in.Recurrence != nil {
			recurrence, err := normalizeRecurrence(in.Recurrence)
			if err != nil {
				return store.TaskPatch{}, err
			}
			patch.Recurrence = recurrence
		}
	}
	if in.Archived != nil {
		patch.Archived = in.Archived
	}

	return patch, nil
}

// validateFilter checks list parameters against the fixed sort-field table.
func validateFilter(filter model.Filter) error {
	if filter.SortBy != "" && !model.ValidSortField(filter.SortBy) {
		return errors.Validation("invalid sort field %q", filter.SortBy)
	}
	if filter.Status != "" {
		if _, err := normalizeStatus(filter.Status); err != nil {
			return err
		}
	}
	if filter.Limit < 0 || filter.Offset < 0 {
		return errors.Validation("limit and offset must not be negative")
	}
	return nil
}
