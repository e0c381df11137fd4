package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	apperrors "github.com/hvaldez/taskforge/internal/errors"
	"github.com/hvaldez/taskforge/internal/model"
)

// Users implements store.UserDirectory over the local users table.
type Users struct {
	db *sql.DB
}

func (s *Users) GetByID(ctx context.Context, id int64) (model.Principal, error) {
	var principal model.Principal
	var role string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, role, hierarchy, division, department FROM users WHERE id = ?`, id).
		Scan(&principal.ID, &role, &principal.Hierarchy, &principal.Division, &principal.Department)
	if err == sql.ErrNoRows {
		return model.Principal{}, apperrors.NotFound("user %d not found", id)
	}
	if err != nil {
		return model.Principal{}, fmt.Errorf("get user %d: %w", id, err)
	}
	principal.Role = model.Role(role)
	return principal, nil
}

func (s *Users) GetManyByIDs(ctx context.Context, ids []int64) ([]model.Principal, error) {
	if len(ids) == 0 {
		return []model.Principal{}, nil
	}

	placeholders := strings.Repeat("?,", len(ids))
	placeholders = placeholders[:len(placeholders)-1]
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, role, hierarchy, division, department FROM users WHERE id IN (`+placeholders+`) ORDER BY id`, args...)
	if err != nil {
		return nil, fmt.Errorf("get users: %w", err)
	}
	defer rows.Close()

	principals := make([]model.Principal, 0, len(ids))
	for rows.Next() {
		var principal model.Principal
		var role string
		if err := rows.Scan(&principal.ID, &role, &principal.Hierarchy, &principal.Division, &principal.Department); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		principal.Role = model.Role(role)
		principals = append(principals, principal)
	}
	return principals, rows.Err()
}

// SubordinateIDs returns users in division with hierarchy strictly below
// the given rank, excluding nobody by role.
func (s *Users) SubordinateIDs(ctx context.Context, division string, belowRank int) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id FROM users WHERE division = ? AND hierarchy < ? ORDER BY id`, division, belowRank)
	if err != nil {
		return nil, fmt.Errorf("subordinates in %q below %d: %w", division, belowRank, err)
	}
	defer rows.Close()
	return scanIDs(rows)
}

// SaveUser inserts or replaces a user row; used by seeding and tests.
func (s *Users) SaveUser(ctx context.Context, principal model.Principal, name string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO users (id, name, role, hierarchy, division, department) VALUES (?, ?, ?, ?, ?, ?)`,
		principal.ID, name, string(principal.Role), principal.Hierarchy, principal.Division, principal.Department)
	if err != nil {
		return fmt.Errorf("save user %d: %w", principal.ID, err)
	}
	return nil
}
