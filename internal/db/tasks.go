package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	apperrors "github.com/hvaldez/taskforge/internal/errors"
	"github.com/hvaldez/taskforge/internal/model"
	"github.com/hvaldez/taskforge/internal/store"
)

// Tasks implements store.TaskStore, including the audit history rows.
type Tasks struct {
	db *sql.DB
}

const taskColumns = `id, project_id, parent_id, title, description, status, priority,
	assigned_to, tags, deadline, recur_freq, recur_interval, recur_series_id,
	archived, created_at, updated_at`

func (s *Tasks) GetByID(ctx context.Context, id int64) (model.Task, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id)
	task, err := scanTask(row)
	if err == sql.ErrNoRows {
		return model.Task{}, apperrors.NotFound("task %d not found", id)
	}
	if err != nil {
		return model.Task{}, fmt.Errorf("get task %d: %w", id, err)
	}
	return task, nil
}

func (s *Tasks) Insert(ctx context.Context, task model.Task) (model.Task, error) {
	now := time.Now().UTC()

	assignedJSON, err := encodeIDs(task.AssignedTo)
	if err != nil {
		return model.Task{}, err
	}
	tagsJSON, err := encodeStrings(task.Tags)
	if err != nil {
		return model.Task{}, err
	}

	freq, interval, seriesID := recurrenceColumns(task.Recurrence)

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO tasks (project_id, parent_id, title, description, status, priority,
			assigned_to, tags, deadline, recur_freq, recur_interval, recur_series_id,
			archived, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		task.ProjectID, nullableID(task.ParentID), task.Title, task.Description,
		string(task.Status), task.Priority, assignedJSON, tagsJSON,
		nullableTime(task.Deadline), freq, interval, seriesID,
		task.Archived, now, now)
	if err != nil {
		return model.Task{}, fmt.Errorf("insert task: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return model.Task{}, fmt.Errorf("insert task id: %w", err)
	}
	return s.GetByID(ctx, id)
}

func (s *Tasks) InsertMany(ctx context.Context, tasks []model.Task) ([]model.Task, error) {
	inserted := make([]model.Task, 0, len(tasks))
	for _, task := range tasks {
		created, err := s.Insert(ctx, task)
		if err != nil {
			return inserted, err
		}
		inserted = append(inserted, created)
	}
	return inserted, nil
}

func (s *Tasks) UpdateByID(ctx context.Context, id int64, patch store.TaskPatch) (model.Task, error) {
	sets := []string{"updated_at = ?"}
	args := []any{time.Now().UTC()}

	if patch.Title != nil {
		sets = append(sets, "title = ?")
		args = append(args, *patch.Title)
	}
	if patch.Description != nil {
		sets = append(sets, "description = ?")
		args = append(args, *patch.Description)
	}
	if patch.Status != nil {
		sets = append(sets, "status = ?")
		args = append(args, string(*patch.Status))
	}
	if patch.Priority != nil {
		sets = append(sets, "priority = ?")
		args = append(args, *patch.Priority)
	}
	if patch.AssignedTo != nil {
		assignedJSON, err := encodeIDs(*patch.AssignedTo)
		if err != nil {
			return model.Task{}, err
		}
		sets = append(sets, "assigned_to = ?")
		args = append(args, assignedJSON)
	}
	if patch.Tags != nil {
		tagsJSON, err := encodeStrings(*patch.Tags)
		if err != nil {
			return model.Task{}, err
		}
		sets = append(sets, "tags = ?")
		args = append(args, tagsJSON)
	}
	if patch.DeadlineSet {
		sets = append(sets, "deadline = ?")
		args = append(args, nullableTime(patch.Deadline))
	}
	if patch.RecurrenceSet {
		freq, interval, seriesID := recurrenceColumns(patch.Recurrence)
		sets = append(sets, "recur_freq = ?", "recur_interval = ?", "recur_series_id = ?")
		args = append(args, freq, interval, seriesID)
	}
	if patch.Archived != nil {
		sets = append(sets, "archived = ?")
		args = append(args, *patch.Archived)
	}

	args = append(args, id)
	result, err := s.db.ExecContext(ctx, "UPDATE tasks SET "+strings.Join(sets, ", ")+" WHERE id = ?", args...)
	if err != nil {
		return model.Task{}, fmt.Errorf("update task %d: %w", id, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return model.Task{}, fmt.Errorf("update task %d: %w", id, err)
	}
	if affected == 0 {
		return model.Task{}, apperrors.NotFound("task %d not found", id)
	}
	return s.GetByID(ctx, id)
}

func (s *Tasks) DeleteByID(ctx context.Context, id int64) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete task %d: %w", id, err)
	}
	return nil
}

func (s *Tasks) GetSubtasks(ctx context.Context, parentID int64) ([]model.Task, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE parent_id = ? ORDER BY id`, parentID)
	if err != nil {
		return nil, fmt.Errorf("get subtasks of %d: %w", parentID, err)
	}
	defer rows.Close()
	return scanTasks(rows)
}

func (s *Tasks) List(ctx context.Context, filter model.Filter) ([]model.Task, error) {
	tasks, err := s.queryTasks(ctx, filter)
	if err != nil {
		return nil, err
	}
	return paginate(tasks, filter.Offset, filter.Limit), nil
}

func (s *Tasks) Count(ctx context.Context, filter model.Filter) (int64, error) {
	tasks, err := s.queryTasks(ctx, filter)
	if err != nil {
		return 0, err
	}
	return int64(len(tasks)), nil
}

// queryTasks applies the scalar filters in SQL; tag and assignee filters
// run over the decoded JSON columns afterwards. Pagination is applied by
// the caller so Count sees the full match set.
func (s *Tasks) queryTasks(ctx context.Context, filter model.Filter) ([]model.Task, error) {
	where := []string{"1=1"}
	args := []any{}

	if !filter.IncludeArchived {
		where = append(where, "archived = 0")
	}
	if filter.Status != "" {
		where = append(where, "status = ?")
		args = append(args, strings.ToLower(strings.TrimSpace(filter.Status)))
	}
	if filter.ProjectID != nil {
		where = append(where, "project_id = ?")
		args = append(args, *filter.ProjectID)
	}
	if query := strings.TrimSpace(filter.Query); query != "" {
		where = append(where, "(title LIKE ? OR description LIKE ?)")
		pattern := "%" + query + "%"
		args = append(args, pattern, pattern)
	}
	if filter.DueBefore != nil {
		where = append(where, "deadline IS NOT NULL AND deadline <= ?")
		args = append(args, *filter.DueBefore)
	}
	if filter.DueAfter != nil {
		where = append(where, "deadline IS NOT NULL AND deadline >= ?")
		args = append(args, *filter.DueAfter)
	}

	order := "created_at"
	if filter.SortBy != "" && model.ValidSortField(filter.SortBy) {
		order = filter.SortBy
	}
	direction := "ASC"
	if filter.SortDesc {
		direction = "DESC"
	}

	query := fmt.Sprintf("SELECT %s FROM tasks WHERE %s ORDER BY %s %s, id %s",
		taskColumns, strings.Join(where, " AND "), order, direction, direction)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	tasks, err := scanTasks(rows)
	if err != nil {
		return nil, err
	}

	if len(filter.Tags) > 0 {
		tasks = filterByTags(tasks, filter.Tags)
	}
	if filter.AssigneeID != nil {
		filtered := tasks[:0]
		for _, task := range tasks {
			if task.Assigned(*filter.AssigneeID) {
				filtered = append(filtered, task)
			}
		}
		tasks = filtered
	}
	return tasks, nil
}

func filterByTags(tasks []model.Task, wanted []string) []model.Task {
	wantedSet := make(map[string]struct{}, len(wanted))
	for _, tag := range wanted {
		wantedSet[strings.ToLower(strings.TrimSpace(tag))] = struct{}{}
	}

	filtered := tasks[:0]
	for _, task := range tasks {
		for _, tag := range task.Tags {
			if _, ok := wantedSet[strings.ToLower(tag)]; ok {
				filtered = append(filtered, task)
				break
			}
		}
	}
	return filtered
}

func paginate(tasks []model.Task, offset, limit int) []model.Task {
	if offset > 0 {
		if offset >= len(tasks) {
			return []model.Task{}
		}
		tasks = tasks[offset:]
	}
	if limit > 0 && limit < len(tasks) {
		tasks = tasks[:limit]
	}
	return tasks
}

func (s *Tasks) AddHistory(ctx context.Context, taskID int64, eventType, details string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO task_history (task_id, event_type, details, created_at) VALUES (?, ?, ?, ?)`,
		taskID, eventType, details, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("add history for task %d: %w", taskID, err)
	}
	return nil
}

func (s *Tasks) ListHistory(ctx context.Context, taskID int64) ([]model.HistoryEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, task_id, event_type, details, created_at FROM task_history WHERE task_id = ? ORDER BY id`, taskID)
	if err != nil {
		return nil, fmt.Errorf("list history for task %d: %w", taskID, err)
	}
	defer rows.Close()

	history := make([]model.HistoryEntry, 0)
	for rows.Next() {
		var entry model.HistoryEntry
		if err := rows.Scan(&entry.ID, &entry.TaskID, &entry.EventType, &entry.Details, &entry.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		history = append(history, entry)
	}
	return history, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (model.Task, error) {
	var (
		task     model.Task
		parentID sql.NullInt64
		status   string
		assigned string
		tags     string
		deadline sql.NullTime
		freq     sql.NullString
		interval sql.NullInt64
		seriesID sql.NullString
	)

	err := row.Scan(&task.ID, &task.ProjectID, &parentID, &task.Title, &task.Description,
		&status, &task.Priority, &assigned, &tags, &deadline,
		&freq, &interval, &seriesID, &task.Archived, &task.CreatedAt, &task.UpdatedAt)
	if err != nil {
		return model.Task{}, err
	}

	task.Status = model.Status(status)
	if parentID.Valid {
		id := parentID.Int64
		task.ParentID = &id
	}
	if deadline.Valid {
		t := deadline.Time
		task.Deadline = &t
	}
	if freq.Valid {
		task.Recurrence = &model.Recurrence{
			Freq:     model.Frequency(freq.String),
			Interval: int(interval.Int64),
			SeriesID: seriesID.String,
		}
	}
	if err := json.Unmarshal([]byte(assigned), &task.AssignedTo); err != nil {
		return model.Task{}, fmt.Errorf("decode assignees of task %d: %w", task.ID, err)
	}
	if err := json.Unmarshal([]byte(tags), &task.Tags); err != nil {
		return model.Task{}, fmt.Errorf("decode tags of task %d: %w", task.ID, err)
	}
	return task, nil
}

func scanTasks(rows *sql.Rows) ([]model.Task, error) {
	tasks := make([]model.Task, 0)
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	return tasks, rows.Err()
}

func encodeIDs(ids []int64) (string, error) {
	if ids == nil {
		ids = []int64{}
	}
	data, err := json.Marshal(ids)
	if err != nil {
		return "", fmt.Errorf("encode ids: %w", err)
	}
	return string(data), nil
}

func encodeStrings(values []string) (string, error) {
	if values == nil {
		values = []string{}
	}
	data, err := json.Marshal(values)
	if err != nil {
		return "", fmt.Errorf("encode strings: %w", err)
	}
	return string(data), nil
}

func nullableID(id *int64) sql.NullInt64 {
	if id == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *id, Valid: true}
}

func nullableTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func recurrenceColumns(rec *model.Recurrence) (sql.NullString, sql.NullInt64, sql.NullString) {
	if rec == nil {
		return sql.NullString{}, sql.NullInt64{}, sql.NullString{}
	}
	seriesID := sql.NullString{}
	if rec.SeriesID != "" {
		seriesID = sql.NullString{String: rec.SeriesID, Valid: true}
	}
	return sql.NullString{String: string(rec.Freq), Valid: true},
		sql.NullInt64{Int64: int64(rec.Interval), Valid: true},
		seriesID
}
