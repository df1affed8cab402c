package models

import "time"

// EntryType classifies an investigation entry.
type EntryType string

const (
	EntryTypeEvidence  EntryType = "evidence"
	EntryTypeLead      EntryType = "lead"
	EntryTypeInterview EntryType = "interview"
	EntryTypeNote      EntryType = "note"
)

// IsValid reports whether t is a known entry type.
func (t EntryType) IsValid() bool {
	switch t {
	case EntryTypeEvidence, EntryTypeLead, EntryTypeInterview, EntryTypeNote:
		return true
	}
	return false
}

// Entry is a geotagged record attached to a project.
type Entry struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	ProjectID   uint      `gorm:"not null;index" json:"project_id"`
	Project     *Project  `gorm:"foreignKey:ProjectID" json:"-"`
	CreatedByID uint      `gorm:"not null;index" json:"created_by_id"`
	CreatedBy   *User     `gorm:"foreignKey:CreatedByID" json:"created_by,omitempty"`
	Title       string    `gorm:"size:200;not null" json:"title"`
	Description string    `gorm:"type:text" json:"description"`
	EntryType   EntryType `gorm:"type:varchar(20);not null;default:'note'" json:"entry_type"`
	// Latitude and Longitude are decimal strings so stored precision is exactly what was submitted.
	Latitude  *string  `gorm:"size:32" json:"latitude,omitempty"`
	Longitude *string  `gorm:"size:32" json:"longitude,omitempty"`
	ImageRef  string   `gorm:"size:512" json:"image_ref,omitempty"`
	AudioRef  string   `gorm:"size:512" json:"audio_ref,omitempty"`
	Tags      []string `gorm:"serializer:json;type:text" json:"tags"`
	Links     []string `gorm:"serializer:json;type:text" json:"links"`
	// ImageURL and AudioURL are presigned download links; never persisted.
	ImageURL  string    `gorm:"-" json:"image_url,omitempty"`
	AudioURL  string    `gorm:"-" json:"audio_url,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the table name for GORM.
func (Entry) TableName() string {
	return "entries"
}

const (
	MaxEntryTitleLen       = 200
	MaxEntryDescriptionLen = 20000
	MaxEntryTags           = 50
	MaxEntryLinks          = 50
	MaxTagLen              = 64
)
