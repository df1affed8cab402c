package models

import "time"

// Project is an investigation workspace. The owner is fixed at creation.
type Project struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	Title       string     `gorm:"size:200;not null" json:"title"`
	Description string     `gorm:"type:text" json:"description"`
	OwnerID     uint       `gorm:"not null;index" json:"owner_id"`
	Owner       *User      `gorm:"foreignKey:OwnerID" json:"owner,omitempty"`
	Archived    bool       `gorm:"not null;default:false" json:"archived"`
	ArchivedAt  *time.Time `json:"archived_at,omitempty"`
	// CallerRole is the requesting user's role; computed at query time.
	CallerRole Role      `gorm:"->;-:migration" json:"role,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// TableName specifies the table name for GORM.
func (Project) TableName() string {
	return "projects"
}

const (
	MaxProjectTitleLen       = 200
	MaxProjectDescriptionLen = 5000
)
