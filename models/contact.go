package models

import (
	"time"

	"gorm.io/gorm"
)

// Contact is a qualified person in the CRM, usually created directly or by
// converting a prospect.
type Contact struct {
	gorm.Model

	FirstName string  `gorm:"not null" json:"first_name"`
	LastName  string  `json:"last_name"`
	Email     *string `gorm:"uniqueIndex" json:"email,omitempty"`
	Phone     string  `json:"phone"`
	Mobile    string  `json:"mobile"`
	Position  string  `json:"position"`
	Notes     string  `gorm:"type:text" json:"notes"`

	// lead, customer, inactive
	Status string `gorm:"default:'lead'" json:"status"`

	CompanyID *uint `gorm:"index" json:"company_id,omitempty"`
	OwnerID   *uint `gorm:"index" json:"owner_id,omitempty"`

	Company *Company `json:"company,omitempty"`
}

// Company groups contacts under an organization
type Company struct {
	gorm.Model

	Name     string `gorm:"not null;index" json:"name"`
	Website  string `json:"website"`
	Industry string `json:"industry"`

	OwnerID *uint `gorm:"index" json:"owner_id,omitempty"`
}

// Activity is a logged interaction (note, call, meeting) linked to a contact
type Activity struct {
	gorm.Model

	Type        string `gorm:"not null" json:"type"` // note, call, meeting, email
	Subject     string `gorm:"not null" json:"subject"`
	Description string `gorm:"type:text" json:"description"`

	ContactID *uint `gorm:"index" json:"contact_id,omitempty"`
	UserID    *uint `gorm:"index" json:"user_id,omitempty"`
}

// Deal is the business-value record created outside this core; campaign
// conversions link back to it via CampaignContact.DealID.
type Deal struct {
	gorm.Model

	Name   string  `gorm:"not null" json:"name"`
	Amount float64 `gorm:"default:0" json:"amount"`
	Stage  string  `gorm:"default:'new'" json:"stage"`

	ContactID *uint      `gorm:"index" json:"contact_id,omitempty"`
	OwnerID   *uint      `gorm:"index" json:"owner_id,omitempty"`
	ClosedAt  *time.Time `json:"closed_at,omitempty"`
}
