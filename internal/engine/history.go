package engine

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/hvaldez/taskforge/internal/model"
)

// recordHistory appends an audit row for a mutation. History is
// supporting metadata; failures never affect the mutation itself.
func (e *Engine) recordHistory(ctx context.Context, taskID int64, eventType, details string) {
	e.bestEffort("history entry", func() error {
		return e.tasks.AddHistory(ctx, taskID, eventType, details)
	})
}

func createdDetails(task model.Task) string {
	return fmt.Sprintf("created: title='%s' status=%s priority=%d project=%d deadline=%s assignees=%s tags=%s",
		task.Title, task.Status, task.Priority, task.ProjectID,
		formatDeadline(task.Deadline), formatIDs(task.AssignedTo), formatList(task.Tags))
}

func updateDetails(before, after model.Task) string {
	changes := []string{}
	if before.Title != after.Title {
		changes = append(changes, formatChange("title", before.Title, after.Title))
	}
	if before.Description != after.Description {
		changes = append(changes, formatChange("description", before.Description, after.Description))
	}
	if before.Status != after.Status {
		changes = append(changes, formatChange("status", string(before.Status), string(after.Status)))
	}
	if before.Priority != after.Priority {
		changes = append(changes, formatChange("priority", fmt.Sprintf("%d", before.Priority), fmt.Sprintf("%d", after.Priority)))
	}
	if formatIDs(before.AssignedTo) != formatIDs(after.AssignedTo) {
		changes = append(changes, formatChange("assignees", formatIDs(before.AssignedTo), formatIDs(after.AssignedTo)))
	}
	if formatDeadline(before.Deadline) != formatDeadline(after.Deadline) {
		changes = append(changes, formatChange("deadline", formatDeadline(before.Deadline), formatDeadline(after.Deadline)))
	}
	if formatList(before.Tags) != formatList(after.Tags) {
		changes = append(changes, formatChange("tags", formatList(before.Tags), formatList(after.Tags)))
	}
	if before.Archived != after.Archived {
		changes = append(changes, formatChange("archived", fmt.Sprintf("%t", before.Archived), fmt.Sprintf("%t", after.Archived)))
	}

	if len(changes) == 0 {
		return "updated: no changes"
	}
	return "updated: " + strings.Join(changes, "; ")
}

func formatChange(field, before, after string) string {
	return fmt.Sprintf("%s: '%s' -> '%s'", field, valueOrNone(before), valueOrNone(after))
}

func valueOrNone(value string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return "none"
	}
	return trimmed
}

func formatDeadline(value *time.Time) string {
	if value == nil {
		return "none"
	}
	return value.Format(model.DateLayout)
}

func formatIDs(ids []int64) string {
	if len(ids) == 0 {
		return "none"
	}
	sorted := make([]int64, len(ids))
	copy(sorted, ids)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	parts := make([]string, 0, len(sorted))
	for _, id := range sorted {
		parts = append(parts, fmt.Sprintf("%d", id))
	}
	return strings.Join(parts, ",")
}

func formatList(values []string) string {
	if len(values) == 0 {
		return "none"
	}
	sorted := make([]string, len(values))
	copy(sorted, values)
	sort.Strings(sorted)
	return strings.Join(sorted, ",")
}
