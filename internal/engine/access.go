package engine

import (
	"context"
	"strings"

	"github.com/hvaldez/taskforge/internal/errors"
	"github.com/hvaldez/taskforge/internal/model"
	"github.com/hvaldez/taskforge/internal/store"
)

// AccessFilter computes task visibility and edit permission per principal.
//
// The two manager rules are deliberately asymmetric and must stay so:
// visibility resolves subordinates within the principal's own division,
// while the edit fallback compares assignee hierarchy across divisions.
// Product has been asked whether that is intended; until then the
// observed behavior is preserved.
type AccessFilter struct {
	projects store.ProjectStore
	users    store.UserDirectory
}

func NewAccessFilter(projects store.ProjectStore, users store.UserDirectory) *AccessFilter {
	return &AccessFilter{projects: projects, users: users}
}

// visibilityScope holds the per-request lookups the role rules test against.
type visibilityScope struct {
	principal          model.Principal
	accessibleProjects map[int64]struct{}
	subordinates       map[int64]struct{}
	memberProjects     map[int64]struct{}
}

// visibilityRule is one row of the visibility decision table.
type visibilityRule struct {
	name  string
	match func(scope *visibilityScope, task model.Task) bool
}

var visibilityRules = []visibilityRule{
	{
		name: "assigned to principal",
		match: func(scope *visibilityScope, task model.Task) bool {
			return task.Assigned(scope.principal.ID)
		},
	},
	{
		name: "project created or managed by principal",
		match: func(scope *visibilityScope, task model.Task) bool {
			_, ok := scope.accessibleProjects[task.ProjectID]
			return ok
		},
	},
	{
		name: "manager: assigned to same-division subordinate",
		match: func(scope *visibilityScope, task model.Task) bool {
			if scope.principal.Role != model.RoleManager {
				return false
			}
			for _, id := range task.AssignedTo {
				if _, ok := scope.subordinates[id]; ok {
					return true
				}
			}
			return false
		},
	},
	{
		name: "staff: member of owning project",
		match: func(scope *visibilityScope, task model.Task) bool {
			if scope.principal.Role != model.RoleStaff {
				return false
			}
			_, ok := scope.memberProjects[task.ProjectID]
			return ok
		},
	},
}

// orgWideVisibility reports whether the principal's department grants
// unfiltered visibility over all tasks.
func orgWideVisibility(p model.Principal) bool {
	_, ok := model.OrgWideDepartments[strings.ToLower(strings.TrimSpace(p.Department))]
	return ok
}

// FilterVisible returns the subset of tasks the principal may see.
func (f *AccessFilter) FilterVisible(ctx context.Context, tasks []model.Task, p model.Principal) ([]model.Task, error) {
	if orgWideVisibility(p) || p.Role == model.RoleAdmin {
		return tasks, nil
	}

	scope, err := f.resolveScope(ctx, p)
	if err != nil {
		return nil, err
	}

	visible := make([]model.Task, 0, len(tasks))
	for _, task := range tasks {
		for _, rule := range visibilityRules {
			if rule.match(scope, task) {
				visible = append(visible, task)
				break
			}
		}
	}
	return visible, nil
}

func (f *AccessFilter) resolveScope(ctx context.Context, p model.Principal) (*visibilityScope, error) {
	scope := &visibilityScope{
		principal:          p,
		accessibleProjects: map[int64]struct{}{},
		subordinates:       map[int64]struct{}{},
		memberProjects:     map[int64]struct{}{},
	}

	projectIDs, err := f.projects.AccessibleProjectIDs(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	for _, id := range projectIDs {
		scope.accessibleProjects[id] = struct{}{}
	}

	// Subordinates are resolved only for managers, within their division.
	if p.Role == model.RoleManager {
		subordinateIDs, err := f.users.SubordinateIDs(ctx, p.Division, p.Hierarchy)
		if err != nil {
			return nil, err
		}
		for _, id := range subordinateIDs {
			scope.subordinates[id] = struct{}{}
		}
	}

	// Project membership matters only for the staff rule and is resolved
	// independently of accessibleProjects.
	if p.Role == model.RoleStaff {
		memberIDs, err := f.projects.MemberProjectIDs(ctx, p.ID)
		if err != nil {
			return nil, err
		}
		for _, id := range memberIDs {
			scope.memberProjects[id] = struct{}{}
		}
	}

	return scope, nil
}

// CanEdit decides edit permission for a mutation:
//
//  1. assignees may always edit;
//  2. managers may edit when they outrank the owning project's creator
//     within the same division, or failing that when any current assignee
//     ranks strictly below them (cross-division);
//  3. everyone else is denied.
func (f *AccessFilter) CanEdit(ctx context.Context, task model.Task, p model.Principal) (bool, error) {
	if task.Assigned(p.ID) {
		return true, nil
	}

	if p.Role != model.RoleManager {
		return false, nil
	}

	allowed, err := f.editableViaProjectCreator(ctx, task, p)
	if err != nil {
		return false, err
	}
	if allowed {
		return true, nil
	}
	return f.editableViaJuniorAssignee(ctx, task, p)
}

// editableViaProjectCreator allows a manager who outranks the owning
// project's creator within the same division. Missing project or creator
// records fall through to the assignee branch instead of failing.
func (f *AccessFilter) editableViaProjectCreator(ctx context.Context, task model.Task, p model.Principal) (bool, error) {
	project, err := f.projects.GetByID(ctx, task.ProjectID)
	if err != nil {
		if errors.IsNotFound(err) {
			return false, nil
		}
		return false, err
	}

	creator, err := f.users.GetByID(ctx, project.CreatorID)
	if err != nil {
		if errors.IsNotFound(err) {
			return false, nil
		}
		return false, err
	}

	return p.Hierarchy > creator.Hierarchy && p.Division == creator.Division, nil
}

// editableViaJuniorAssignee allows a manager when any current assignee
// ranks strictly below them. Division is not compared on this branch.
func (f *AccessFilter) editableViaJuniorAssignee(ctx context.Context, task model.Task, p model.Principal) (bool, error) {
	if len(task.AssignedTo) == 0 {
		return false, nil
	}

	assignees, err := f.users.GetManyByIDs(ctx, task.AssignedTo)
	if err != nil {
		return false, err
	}
	for _, assignee := range assignees {
		if assignee.Hierarchy < p.Hierarchy {
			return true, nil
		}
	}
	return false, nil
}
