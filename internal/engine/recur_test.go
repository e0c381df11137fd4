package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hvaldez/taskforge/internal/model"
)

func datePtr(value string) *time.Time {
	t, err := time.Parse(model.DateLayout, value)
	if err != nil {
		panic(err)
	}
	return &t
}

func TestNextDeadline(t *testing.T) {
	tests := []struct {
		name     string
		deadline *time.Time
		freq     model.Frequency
		interval int
		want     string
	}{
		{name: "daily", deadline: datePtr("2024-06-01"), freq: model.FreqDaily, interval: 3, want: "2024-06-04"},
		{name: "weekly", deadline: datePtr("2024-06-01"), freq: model.FreqWeekly, interval: 2, want: "2024-06-15"},
		{name: "monthly", deadline: datePtr("2024-06-01"), freq: model.FreqMonthly, interval: 1, want: "2024-07-01"},
		{name: "monthly across year", deadline: datePtr("2024-11-15"), freq: model.FreqMonthly, interval: 3, want: "2025-02-15"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next := nextDeadline(tt.deadline, tt.freq, tt.interval)
			require.NotNil(t, next)
			assert.Equal(t, tt.want, next.Format(model.DateLayout))
		})
	}

	assert.Nil(t, nextDeadline(nil, model.FreqDaily, 1), "missing deadline yields no date arithmetic")
}

func completeTask(t *testing.T, env *testEnv, taskID int64, byUser int64) model.Task {
	t.Helper()
	status := string(model.StatusCompleted)
	updated, err := env.engine.Update(context.Background(), byUser, taskID, TaskInput{Status: &status})
	require.NoError(t, err)
	return updated
}

func TestCompletionSpawnsSuccessorAndSubtasks(t *testing.T) {
	env := newTestEnv()
	env.withUser(model.Principal{ID: 1, Role: model.RoleStaff})

	parent := env.tasks.put(model.Task{
		ProjectID:  3,
		Title:      "Weekly report",
		Priority:   8,
		Status:     model.StatusInProgress,
		AssignedTo: []int64{1, 2},
		Tags:       []string{"reporting"},
		Deadline:   datePtr("2024-06-01"),
		Recurrence: &model.Recurrence{Freq: model.FreqWeekly, Interval: 2},
	})
	sub := env.tasks.put(model.Task{
		ProjectID:  3,
		ParentID:   &parent.ID,
		Title:      "Collect numbers",
		Priority:   4,
		Status:     model.StatusCompleted,
		AssignedTo: []int64{2},
		Deadline:   datePtr("2024-06-03"),
	})

	completeTask(t, env, parent.ID, 1)

	all, _ := env.tasks.List(context.Background(), model.Filter{})
	require.Len(t, all, 4, "original parent, original subtask, successor, subtask clone")

	var successor, subClone model.Task
	for _, task := range all {
		if task.ID == parent.ID || task.ID == sub.ID {
			continue
		}
		if task.ParentID == nil {
			successor = task
		} else {
			subClone = task
		}
	}

	require.NotZero(t, successor.ID)
	assert.Equal(t, "Weekly report", successor.Title)
	assert.Equal(t, model.StatusPending, successor.Status)
	assert.Equal(t, parent.ProjectID, successor.ProjectID)
	assert.Equal(t, []int64{1, 2}, successor.AssignedTo)
	assert.Equal(t, 8, successor.Priority)
	require.NotNil(t, successor.Deadline)
	assert.Equal(t, "2024-06-15", successor.Deadline.Format(model.DateLayout))
	require.NotNil(t, successor.Recurrence)
	assert.Equal(t, model.FreqWeekly, successor.Recurrence.Freq)
	assert.Equal(t, 2, successor.Recurrence.Interval)
	assert.NotEmpty(t, successor.Recurrence.SeriesID)

	require.NotZero(t, subClone.ID)
	require.NotNil(t, subClone.ParentID)
	assert.Equal(t, successor.ID, *subClone.ParentID)
	assert.Equal(t, model.StatusPending, subClone.Status)
	assert.Equal(t, []int64{2}, subClone.AssignedTo)
	assert.Equal(t, 4, subClone.Priority)
	require.NotNil(t, subClone.Deadline)
	assert.Equal(t, "2024-06-17", subClone.Deadline.Format(model.DateLayout))
	require.NotNil(t, subClone.Recurrence)
	assert.Equal(t, successor.Recurrence.SeriesID, subClone.Recurrence.SeriesID)
}

func TestSeriesIDPersistedOntoOriginal(t *testing.T) {
	env := newTestEnv()
	env.withUser(model.Principal{ID: 1, Role: model.RoleStaff})
	task := env.tasks.put(model.Task{
		ProjectID:  1,
		Title:      "Daily standup notes",
		Status:     model.StatusPending,
		AssignedTo: []int64{1},
		Deadline:   datePtr("2024-05-02"),
		Recurrence: &model.Recurrence{Freq: model.FreqDaily, Interval: 1},
	})

	completeTask(t, env, task.ID, 1)

	original, err := env.tasks.GetByID(context.Background(), task.ID)
	require.NoError(t, err)
	require.NotNil(t, original.Recurrence)
	assert.NotEmpty(t, original.Recurrence.SeriesID)

	all, _ := env.tasks.List(context.Background(), model.Filter{})
	for _, candidate := range all {
		if candidate.ID == task.ID {
			continue
		}
		require.NotNil(t, candidate.Recurrence)
		assert.Equal(t, original.Recurrence.SeriesID, candidate.Recurrence.SeriesID)
	}
}

func TestExistingSeriesIDIsReused(t *testing.T) {
	env := newTestEnv()
	env.withUser(model.Principal{ID: 1, Role: model.RoleStaff})
	task := env.tasks.put(model.Task{
		ProjectID:  1,
		Title:      "Monthly invoice",
		Status:     model.StatusPending,
		AssignedTo: []int64{1},
		Deadline:   datePtr("2024-05-31"),
		Recurrence: &model.Recurrence{Freq: model.FreqMonthly, Interval: 1, SeriesID: "series-abc"},
	})

	completeTask(t, env, task.ID, 1)

	all, _ := env.tasks.List(context.Background(), model.Filter{})
	require.Len(t, all, 2)
	for _, candidate := range all {
		require.NotNil(t, candidate.Recurrence)
		assert.Equal(t, "series-abc", candidate.Recurrence.SeriesID)
	}
}

func TestNoSpawnWithoutRecurrence(t *testing.T) {
	env := newTestEnv()
	env.withUser(model.Principal{ID: 1, Role: model.RoleStaff})
	task := env.tasks.put(model.Task{
		ProjectID:  1,
		Title:      "One-off",
		Status:     model.StatusPending,
		AssignedTo: []int64{1},
	})

	completeTask(t, env, task.ID, 1)

	all, _ := env.tasks.List(context.Background(), model.Filter{})
	assert.Len(t, all, 1)
}

func TestNoRespawnOnRepeatedCompletedUpdate(t *testing.T) {
	env := newTestEnv()
	env.withUser(model.Principal{ID: 1, Role: model.RoleStaff})
	task := env.tasks.put(model.Task{
		ProjectID:  1,
		Title:      "Weekly sync",
		Status:     model.StatusPending,
		AssignedTo: []int64{1},
		Deadline:   datePtr("2024-05-03"),
		Recurrence: &model.Recurrence{Freq: model.FreqWeekly, Interval: 1},
	})

	completeTask(t, env, task.ID, 1)

	// Editing the already-completed task must not spawn again.
	_, err := env.engine.Update(context.Background(), 1, task.ID, TaskInput{Title: strPtr("Weekly sync (done)")})
	require.NoError(t, err)

	all, _ := env.tasks.List(context.Background(), model.Filter{})
	assert.Len(t, all, 2)
}

func TestMissingDeadlineSpawnsWithoutOne(t *testing.T) {
	env := newTestEnv()
	env.withUser(model.Principal{ID: 1, Role: model.RoleStaff})
	task := env.tasks.put(model.Task{
		ProjectID:  1,
		Title:      "Undated chore",
		Status:     model.StatusPending,
		AssignedTo: []int64{1},
		Recurrence: &model.Recurrence{Freq: model.FreqDaily, Interval: 1},
	})

	completeTask(t, env, task.ID, 1)

	all, _ := env.tasks.List(context.Background(), model.Filter{})
	require.Len(t, all, 2)
	for _, candidate := range all {
		if candidate.ID != task.ID {
			assert.Nil(t, candidate.Deadline)
		}
	}
}

func TestCloneInsertFailureDoesNotFailUpdate(t *testing.T) {
	env := newTestEnv()
	env.withUser(model.Principal{ID: 1, Role: model.RoleStaff})
	task := env.tasks.put(model.Task{
		ProjectID:  1,
		Title:      "Fragile",
		Status:     model.StatusPending,
		AssignedTo: []int64{1},
		Recurrence: &model.Recurrence{Freq: model.FreqDaily, Interval: 1},
	})
	env.tasks.insertErr = assert.AnError

	updated := completeTask(t, env, task.ID, 1)
	assert.Equal(t, model.StatusCompleted, updated.Status)
}

func TestDiffAssignees(t *testing.T) {
	added, removed := diffAssignees([]int64{1, 2, 3}, []int64{1, 2})
	assert.Empty(t, added)
	assert.Equal(t, []int64{3}, removed)

	added, removed = diffAssignees([]int64{1, 2}, []int64{2, 1})
	assert.Empty(t, added)
	assert.Empty(t, removed)

	added, removed = diffAssignees(nil, []int64{4})
	assert.Equal(t, []int64{4}, added)
	assert.Empty(t, removed)
}
