// Package models contains data structures for the application's domain models.
package models

import (
	"strings"
	"time"
)

// User is an account that can own projects and collaborate on others.
type User struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Username    string    `gorm:"size:30;uniqueIndex;not null" json:"username"`
	Email       string    `gorm:"size:254;uniqueIndex;not null" json:"email"`
	Password    string    `gorm:"not null" json:"-"`
	DisplayName string    `gorm:"size:100" json:"display_name"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// NormalizeEmail returns the canonical stored form of an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// EmailMatches compares two addresses the way invitations are matched to accounts.
func EmailMatches(a, b string) bool {
	return strings.EqualFold(NormalizeEmail(a), NormalizeEmail(b))
}
