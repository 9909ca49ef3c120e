package models

import (
	"time"

	"gorm.io/gorm"
)

// User represents a user account in the system
type User struct {
	gorm.Model

	// Authentication fields
	Email        string `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash string `gorm:"not null" json:"-"`

	// Profile information
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Timezone  string `gorm:"default:'UTC'" json:"timezone"`

	// RBAC: a user carries exactly one role name at a time
	Role string `gorm:"not null;default:'user';index" json:"role"`

	// Account status
	IsActive     bool       `gorm:"default:true" json:"is_active"`
	TokenVersion int        `gorm:"default:0" json:"-"`
	LastLoginAt  *time.Time `json:"last_login_at,omitempty"`
}

// FullName returns the user's display name
func (u *User) FullName() string {
	if u.LastName == "" {
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}
