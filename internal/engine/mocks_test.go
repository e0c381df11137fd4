package engine

import (
	"context"
	"time"

	apperrors "github.com/hvaldez/taskforge/internal/errors"
	"github.com/hvaldez/taskforge/internal/log"
	"github.com/hvaldez/taskforge/internal/model"
	"github.com/hvaldez/taskforge/internal/store"
)

// fakeTasks is an in-memory task arena keyed by id.
type fakeTasks struct {
	seq     int64
	byID    map[int64]model.Task
	history []model.HistoryEntry

	insertErr error
	updateErr error

	insertCalls int
	updateCalls int
}

func newFakeTasks() *fakeTasks {
	return &fakeTasks{byID: map[int64]model.Task{}}
}

func (f *fakeTasks) put(task model.Task) model.Task {
	if task.ID == 0 {
		f.seq++
		task.ID = f.seq
	} else if task.ID > f.seq {
		f.seq = task.ID
	}
	f.byID[task.ID] = task
	return task
}

func (f *fakeTasks) GetByID(_ context.Context, id int64) (model.Task, error) {
	task, ok := f.byID[id]
	if !ok {
		return model.Task{}, apperrors.NotFound("task %d not found", id)
	}
	return task, nil
}

func (f *fakeTasks) Insert(_ context.Context, task model.Task) (model.Task, error) {
	f.insertCalls++
	if f.insertErr != nil {
		return model.Task{}, f.insertErr
	}
	return f.put(task), nil
}

func (f *fakeTasks) InsertMany(ctx context.Context, tasks []model.Task) ([]model.Task, error) {
	inserted := make([]model.Task, 0, len(tasks))
	for _, task := range tasks {
		created, err := f.Insert(ctx, task)
		if err != nil {
			return inserted, err
		}
		inserted = append(inserted, created)
	}
	return inserted, nil
}

func (f *fakeTasks) UpdateByID(_ context.Context, id int64, patch store.TaskPatch) (model.Task, error) {
	f.updateCalls++
	if f.updateErr != nil {
		return model.Task{}, f.updateErr
	}
	task, ok := f.byID[id]
	if !ok {
		return model.Task{}, apperrors.NotFound("task %d not found", id)
	}

	if patch.Title != nil {
		task.Title = *patch.Title
	}
	if patch.Description != nil {
		task.Description = *patch.Description
	}
	if patch.Status != nil {
		task.Status = *patch.Status
	}
	if patch.Priority != nil {
		task.Priority = *patch.Priority
	}
	if patch.AssignedTo != nil {
		task.AssignedTo = *patch.AssignedTo
	}
	if patch.Tags != nil {
		task.Tags = *patch.Tags
	}
	if patch.DeadlineSet {
		task.Deadline = patch.Deadline
	}
	if patch.RecurrenceSet {
		task.Recurrence = patch.Recurrence
	}
	if patch.Archived != nil {
		task.Archived = *patch.Archived
	}
	task.UpdatedAt = time.Now()
	f.byID[id] = task
	return task, nil
}

func (f *fakeTasks) DeleteByID(_ context.Context, id int64) error {
	delete(f.byID, id)
	return nil
}

func (f *fakeTasks) GetSubtasks(_ context.Context, parentID int64) ([]model.Task, error) {
	var subtasks []model.Task
	for id := int64(1); id <= f.seq; id++ {
		task, ok := f.byID[id]
		if ok && task.ParentID != nil && *task.ParentID == parentID {
			subtasks = append(subtasks, task)
		}
	}
	return subtasks, nil
}

func (f *fakeTasks) List(_ context.Context, _ model.Filter) ([]model.Task, error) {
	var tasks []model.Task
	for id := int64(1); id <= f.seq; id++ {
		if task, ok := f.byID[id]; ok {
			tasks = append(tasks, task)
		}
	}
	return tasks, nil
}

func (f *fakeTasks) Count(ctx context.Context, filter model.Filter) (int64, error) {
	tasks, err := f.List(ctx, filter)
	return int64(len(tasks)), err
}

func (f *fakeTasks) AddHistory(_ context.Context, taskID int64, eventType, details string) error {
	f.history = append(f.history, model.HistoryEntry{TaskID: taskID, EventType: eventType, Details: details})
	return nil
}

func (f *fakeTasks) ListHistory(_ context.Context, taskID int64) ([]model.HistoryEntry, error) {
	var entries []model.HistoryEntry
	for _, entry := range f.history {
		if entry.TaskID == taskID {
			entries = append(entries, entry)
		}
	}
	return entries, nil
}

type fakeProjects struct {
	byID       map[int64]model.Project
	accessible map[int64][]int64
	membership map[int64][]int64
}

func newFakeProjects() *fakeProjects {
	return &fakeProjects{
		byID:       map[int64]model.Project{},
		accessible: map[int64][]int64{},
		membership: map[int64][]int64{},
	}
}

func (f *fakeProjects) GetByID(_ context.Context, id int64) (model.Project, error) {
	project, ok := f.byID[id]
	if !ok {
		return model.Project{}, apperrors.NotFound("project %d not found", id)
	}
	return project, nil
}

func (f *fakeProjects) AccessibleProjectIDs(_ context.Context, userID int64) ([]int64, error) {
	return f.accessible[userID], nil
}

func (f *fakeProjects) MemberProjectIDs(_ context.Context, userID int64) ([]int64, error) {
	return f.membership[userID], nil
}

type fakeUsers struct {
	byID map[int64]model.Principal
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{byID: map[int64]model.Principal{}}
}

func (f *fakeUsers) GetByID(_ context.Context, id int64) (model.Principal, error) {
	principal, ok := f.byID[id]
	if !ok {
		return model.Principal{}, apperrors.NotFound("user %d not found", id)
	}
	return principal, nil
}

func (f *fakeUsers) GetManyByIDs(ctx context.Context, ids []int64) ([]model.Principal, error) {
	principals := make([]model.Principal, 0, len(ids))
	for _, id := range ids {
		if principal, ok := f.byID[id]; ok {
			principals = append(principals, principal)
		}
	}
	return principals, nil
}

func (f *fakeUsers) SubordinateIDs(_ context.Context, division string, belowRank int) ([]int64, error) {
	var ids []int64
	for id, principal := range f.byID {
		if principal.Division == division && principal.Hierarchy < belowRank {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

type fakeHours struct {
	entries   []model.HourEntry
	recordErr error
}

func (f *fakeHours) RecordHours(_ context.Context, entry model.HourEntry) (model.HourEntry, error) {
	if f.recordErr != nil {
		return model.HourEntry{}, f.recordErr
	}
	entry.ID = int64(len(f.entries) + 1)
	f.entries = append(f.entries, entry)
	return entry, nil
}

func (f *fakeHours) SummaryByTask(_ context.Context, taskID int64) (model.TimeTrackingSummary, error) {
	totals := map[int64]float64{}
	var order []int64
	for _, entry := range f.entries {
		if entry.TaskID != taskID {
			continue
		}
		if _, ok := totals[entry.UserID]; !ok {
			order = append(order, entry.UserID)
		}
		totals[entry.UserID] += entry.Hours
	}

	summary := model.TimeTrackingSummary{PerAssignee: []model.AssigneeHours{}}
	for _, userID := range order {
		summary.PerAssignee = append(summary.PerAssignee, model.AssigneeHours{UserID: userID, Hours: totals[userID]})
		summary.TotalHours += totals[userID]
	}
	return summary, nil
}

type notifyCall struct {
	kind    string
	payload store.AssigneeNotification
	update  store.UpdateNotification
}

type fakeNotifier struct {
	calls       []notifyCall
	dispatchErr error
}

func (f *fakeNotifier) CreateAssignmentNotifications(_ context.Context, n store.AssigneeNotification) (int, error) {
	if f.dispatchErr != nil {
		return 0, f.dispatchErr
	}
	f.calls = append(f.calls, notifyCall{kind: "assignment", payload: n})
	return len(n.AssigneeIDs), nil
}

func (f *fakeNotifier) CreateRemovalNotifications(_ context.Context, n store.AssigneeNotification) (int, error) {
	if f.dispatchErr != nil {
		return 0, f.dispatchErr
	}
	f.calls = append(f.calls, notifyCall{kind: "removal", payload: n})
	return len(n.AssigneeIDs), nil
}

func (f *fakeNotifier) CreateUpdateNotifications(_ context.Context, n store.UpdateNotification) (int, error) {
	if f.dispatchErr != nil {
		return 0, f.dispatchErr
	}
	f.calls = append(f.calls, notifyCall{kind: "update", update: n})
	return len(n.Task.AssignedTo), nil
}

func (f *fakeNotifier) byKind(kind string) []notifyCall {
	var calls []notifyCall
	for _, call := range f.calls {
		if call.kind == kind {
			calls = append(calls, call)
		}
	}
	return calls
}

// testEnv wires an Engine over fresh fakes with a fixed clock.
type testEnv struct {
	engine   *Engine
	tasks    *fakeTasks
	projects *fakeProjects
	users    *fakeUsers
	hours    *fakeHours
	notifier *fakeNotifier
	now      time.Time
}

func newTestEnv() *testEnv {
	env := &testEnv{
		tasks:    newFakeTasks(),
		projects: newFakeProjects(),
		users:    newFakeUsers(),
		hours:    &fakeHours{},
		notifier: &fakeNotifier{},
		now:      time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}
	env.engine = New(Deps{
		Tasks:    env.tasks,
		Projects: env.projects,
		Users:    env.users,
		Hours:    env.hours,
		Notifier: env.notifier,
		Logger:   log.Nop(),
		Now:      func() time.Time { return env.now },
	})
	return env
}

// withActiveProject seeds one active project and returns its id.
func (env *testEnv) withActiveProject(creatorID int64) int64 {
	id := int64(len(env.projects.byID) + 1)
	env.projects.byID[id] = model.Project{ID: id, Name: "project", Status: model.ProjectActive, CreatorID: creatorID}
	return id
}

func (env *testEnv) withUser(p model.Principal) {
	env.users.byID[p.ID] = p
}

func strPtr(s string) *string { return &s }

func int64Ptr(v int64) *int64 { return &v }
