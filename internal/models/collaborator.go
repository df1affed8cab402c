package models

import (
	"strings"
	"time"
)

// Role defines a user's permission level on a project.
type Role string

const (
	// RoleNone means the user holds no role on the project.
	RoleNone Role = ""
	// RoleOwner is held by the project creator only.
	RoleOwner Role = "owner"
	// RoleEditor can read the project and create entries.
	RoleEditor Role = "editor"
	// RoleViewer has read-only access.
	RoleViewer Role = "viewer"

	// roleCollaboratorAlias is accepted on input and stored as RoleEditor.
	roleCollaboratorAlias = "collaborator"
)

// ParseRole parses role input. The legacy value "collaborator" maps to editor.
func ParseRole(raw string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case string(RoleOwner):
		return RoleOwner, nil
	case string(RoleEditor), roleCollaboratorAlias:
		return RoleEditor, nil
	case string(RoleViewer):
		return RoleViewer, nil
	default:
		return RoleNone, NewValidationError("role must be one of owner, editor, viewer")
	}
}

// ParseGrantableRole parses a role that may be granted through collaborator
// management, which never includes owner. An empty value defaults to editor.
func ParseGrantableRole(raw string) (Role, error) {
	if strings.TrimSpace(raw) == "" {
		return RoleEditor, nil
	}
	role, err := ParseRole(raw)
	if err != nil {
		return RoleNone, err
	}
	if role == RoleOwner {
		return RoleNone, NewValidationError("the owner role cannot be granted")
	}
	return role, nil
}

// IsValid reports whether r is a stored role value.
func (r Role) IsValid() bool {
	return r == RoleOwner || r == RoleEditor || r == RoleViewer
}

// ProjectCollaborator maps users to projects and tracks role.
// Exactly one row exists per (project, user) pair.
type ProjectCollaborator struct {
	ProjectID uint      `gorm:"primaryKey;autoIncrement:false" json:"project_id"`
	Project   *Project  `gorm:"foreignKey:ProjectID" json:"project,omitempty"`
	UserID    uint      `gorm:"primaryKey;autoIncrement:false;index" json:"user_id"`
	User      *User     `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Role      Role      `gorm:"type:varchar(20);not null;default:'editor'" json:"role"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the table name for GORM.
func (ProjectCollaborator) TableName() string {
	return "project_collaborators"
}
