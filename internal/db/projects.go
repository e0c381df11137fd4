package db

import (
	"context"
	"database/sql"
	"fmt"

	apperrors "github.com/hvaldez/taskforge/internal/errors"
	"github.com/hvaldez/taskforge/internal/model"
)

// Projects implements store.ProjectStore plus the seed helpers the CLI
// uses to manage project rows and membership.
type Projects struct {
	db *sql.DB
}

func (s *Projects) GetByID(ctx context.Context, id int64) (model.Project, error) {
	var project model.Project
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, status, creator_id FROM projects WHERE id = ?`, id).
		Scan(&project.ID, &project.Name, &project.Status, &project.CreatorID)
	if err == sql.ErrNoRows {
		return model.Project{}, apperrors.NotFound("project %d not found", id)
	}
	if err != nil {
		return model.Project{}, fmt.Errorf("get project %d: %w", id, err)
	}
	return project, nil
}

// AccessibleProjectIDs returns projects the user created or manages.
func (s *Projects) AccessibleProjectIDs(ctx context.Context, userID int64) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id FROM projects WHERE creator_id = ?
		UNION
		SELECT project_id FROM project_managers WHERE user_id = ?
		ORDER BY 1`, userID, userID)
	if err != nil {
		return nil, fmt.Errorf("accessible projects for user %d: %w", userID, err)
	}
	defer rows.Close()
	return scanIDs(rows)
}

func (s *Projects) MemberProjectIDs(ctx context.Context, userID int64) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT project_id FROM project_members WHERE user_id = ? ORDER BY project_id`, userID)
	if err != nil {
		return nil, fmt.Errorf("member projects for user %d: %w", userID, err)
	}
	defer rows.Close()
	return scanIDs(rows)
}

// SaveProject inserts or replaces a project row; used by seeding and tests.
func (s *Projects) SaveProject(ctx context.Context, project model.Project) (model.Project, error) {
	if project.ID == 0 {
		result, err := s.db.ExecContext(ctx,
			`INSERT INTO projects (name, status, creator_id) VALUES (?, ?, ?)`,
			project.Name, project.Status, project.CreatorID)
		if err != nil {
			return model.Project{}, fmt.Errorf("insert project: %w", err)
		}
		id, err := result.LastInsertId()
		if err != nil {
			return model.Project{}, err
		}
		project.ID = id
		return project, nil
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO projects (id, name, status, creator_id) VALUES (?, ?, ?, ?)`,
		project.ID, project.Name, project.Status, project.CreatorID)
	if err != nil {
		return model.Project{}, fmt.Errorf("save project %d: %w", project.ID, err)
	}
	return project, nil
}

func (s *Projects) AddProjectManager(ctx context.Context, projectID, userID int64) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO project_managers (project_id, user_id) VALUES (?, ?)`, projectID, userID)
	if err != nil {
		return fmt.Errorf("add manager %d to project %d: %w", userID, projectID, err)
	}
	return nil
}

func (s *Projects) AddProjectMember(ctx context.Context, projectID, userID int64) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO project_members (project_id, user_id) VALUES (?, ?)`, projectID, userID)
	if err != nil {
		return fmt.Errorf("add member %d to project %d: %w", userID, projectID, err)
	}
	return nil
}

func scanIDs(rows *sql.Rows) ([]int64, error) {
	ids := make([]int64, 0)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
