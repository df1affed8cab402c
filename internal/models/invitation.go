package models

import "time"

// InvitationStatus is the lifecycle state of a project invitation.
type InvitationStatus string

const (
	// InvitationStatusPending is the only live state.
	InvitationStatusPending InvitationStatus = "pending"
	// InvitationStatusAccepted is terminal.
	InvitationStatusAccepted InvitationStatus = "accepted"
	// InvitationStatusExpired is terminal; set when a newer invitation supersedes a stale one.
	InvitationStatusExpired InvitationStatus = "expired"
)

// IsValid reports whether s is a known status.
func (s InvitationStatus) IsValid() bool {
	switch s {
	case InvitationStatusPending, InvitationStatusAccepted, InvitationStatusExpired:
		return true
	}
	return false
}

// ProjectInvitation grants a role on a project to whoever proves ownership of Email.
// At most one pending invitation exists per (project, email).
type ProjectInvitation struct {
	ID           uint             `gorm:"primaryKey" json:"id"`
	ProjectID    uint             `gorm:"not null;uniqueIndex:idx_invitations_pending_email,priority:1,where:status = 'pending'" json:"project_id"`
	Project      *Project         `gorm:"foreignKey:ProjectID" json:"project,omitempty"`
	Email        string           `gorm:"size:254;not null;index;uniqueIndex:idx_invitations_pending_email,priority:2,where:status = 'pending'" json:"email"`
	Role         Role             `gorm:"type:varchar(20);not null" json:"role"`
	Token        string           `gorm:"size:64;not null;uniqueIndex" json:"-"`
	InvitedByID  uint             `gorm:"not null" json:"invited_by_id"`
	InvitedBy    *User            `gorm:"foreignKey:InvitedByID" json:"invited_by,omitempty"`
	Status       InvitationStatus `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	ExpiresAt    time.Time        `gorm:"not null" json:"expires_at"`
	AcceptedAt   *time.Time       `json:"accepted_at,omitempty"`
	AcceptedByID *uint            `json:"accepted_by_id,omitempty"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
}

// TableName specifies the table name for GORM.
func (ProjectInvitation) TableName() string {
	return "project_invitations"
}

// ExpiredAt reports whether a pending invitation is past its expiry at now.
func (i *ProjectInvitation) ExpiredAt(now time.Time) bool {
	return !i.ExpiresAt.After(now)
}

// IsLive reports whether the invitation can still be accepted at now.
func (i *ProjectInvitation) IsLive(now time.Time) bool {
	return i.Status == InvitationStatusPending && !i.ExpiredAt(now)
}
