// Package access decides what a user may do on a project. Every project,
// entry, collaborator and invitation operation asks it first.
package access

import (
	"context"

	"fieldcase/internal/models"
	"fieldcase/internal/observability"
	"fieldcase/internal/repository"
)

// Actions used to label authorization denials.
const (
	ActionRead        = "read"
	ActionManage      = "manage"
	ActionCreateEntry = "create_entry"
	ActionModifyEntry = "modify_entry"
)

// Source is the part of the store the evaluator reads from. Both the
// top-level store and a transaction store satisfy it.
type Source interface {
	Projects() repository.ProjectRepository
	Collaborators() repository.CollaboratorRepository
}

// Evaluator resolves roles and enforces the role matrix.
type Evaluator struct {
	src Source
}

// NewEvaluator returns an Evaluator reading from src.
func NewEvaluator(src Source) *Evaluator {
	return &Evaluator{src: src}
}

// RoleOf returns the user's role on the project, or RoleNone. A missing
// project is NotFound, checked before anything else.
func (e *Evaluator) RoleOf(ctx context.Context, projectID, userID uint) (models.Role, error) {
	_, role, err := e.load(ctx, projectID, userID)
	return role, err
}

func (e *Evaluator) load(ctx context.Context, projectID, userID uint) (*models.Project, models.Role, error) {
	project, err := e.src.Projects().GetByID(ctx, projectID)
	if err != nil {
		return nil, models.RoleNone, err
	}
	if userID != 0 && project.OwnerID == userID {
		return project, models.RoleOwner, nil
	}

	collab, err := e.src.Collaborators().Get(ctx, projectID, userID)
	if err != nil {
		if models.IsCode(err, models.CodeNotFound) {
			return project, models.RoleNone, nil
		}
		return nil, models.RoleNone, err
	}
	// An owner row for someone other than the project owner is never honoured.
	if collab.Role == models.RoleOwner || !collab.Role.IsValid() {
		return project, models.RoleNone, nil
	}
	return project, collab.Role, nil
}

// HasAccess reports whether the user holds any role on the project.
func (e *Evaluator) HasAccess(ctx context.Context, projectID, userID uint) (bool, error) {
	role, err := e.RoleOf(ctx, projectID, userID)
	if err != nil {
		return false, err
	}
	return role != models.RoleNone, nil
}

// RequireAccess returns the project and the caller's role, or Forbidden when
// the caller holds no role.
func (e *Evaluator) RequireAccess(ctx context.Context, projectID, userID uint) (*models.Project, models.Role, error) {
	project, role, err := e.load(ctx, projectID, userID)
	if err != nil {
		return nil, models.RoleNone, err
	}
	if role == models.RoleNone {
		deny(ActionRead)
		return nil, models.RoleNone, models.NewForbiddenError("You do not have access to this project")
	}
	project.CallerRole = role
	return project, role, nil
}

// RequireOwner returns the project when the caller owns it.
func (e *Evaluator) RequireOwner(ctx context.Context, projectID, userID uint) (*models.Project, error) {
	project, role, err := e.load(ctx, projectID, userID)
	if err != nil {
		return nil, err
	}
	if role != models.RoleOwner {
		deny(ActionManage)
		return nil, models.NewForbiddenError("Only the project owner can do this")
	}
	project.CallerRole = role
	return project, nil
}

// CanCreateEntry reports whether role may add entries. Viewers are read-only.
func CanCreateEntry(role models.Role) bool {
	return role == models.RoleOwner || role == models.RoleEditor
}

// CanModifyEntry reports whether the user may edit or delete the entry. The
// owner may modify any entry; an author may modify their own while they still
// hold a role on the project.
func CanModifyEntry(role models.Role, entry *models.Entry, userID uint) bool {
	if role == models.RoleOwner {
		return true
	}
	return role != models.RoleNone && entry != nil && entry.CreatedByID == userID
}

// RequireCreateEntry is CanCreateEntry returning Forbidden.
func RequireCreateEntry(role models.Role) error {
	if !CanCreateEntry(role) {
		deny(ActionCreateEntry)
		return models.NewForbiddenError("Viewers cannot add entries")
	}
	return nil
}

// RequireModifyEntry is CanModifyEntry returning Forbidden.
func RequireModifyEntry(role models.Role, entry *models.Entry, userID uint) error {
	if !CanModifyEntry(role, entry, userID) {
		deny(ActionModifyEntry)
		return models.NewForbiddenError("Only the project owner or the entry author can change this entry")
	}
	return nil
}

func deny(action string) {
	observability.AuthzDenials.WithLabelValues(action).Inc()
}
