package models

import (
	"time"

	"gorm.io/gorm"
)

// Prospect status workflow
const (
	ProspectStatusNew       = "NEW"       // just captured, not yet reviewed
	ProspectStatusConverted = "CONVERTED" // moved to contacts
	ProspectStatusRejected  = "REJECTED"  // not a good fit
)

// Source channels for prospects
const (
	ProspectSourceEmailCampaign = "EMAIL_CAMPAIGN"
	ProspectSourceWebForm       = "WEB_FORM"
	ProspectSourcePhone         = "PHONE"
	ProspectSourceManualEntry   = "MANUAL_ENTRY"
	ProspectSourceReferral      = "REFERRAL"
	ProspectSourceOther         = "OTHER"
)

// Prospect stores potential leads captured from marketing campaigns.
// Prospects stay separate from contacts until qualified and converted.
type Prospect struct {
	gorm.Model

	FirstName string  `gorm:"not null" json:"first_name"`
	LastName  string  `json:"last_name"`
	Email     *string `gorm:"uniqueIndex" json:"email,omitempty"` // unique when present
	Phone     *string `gorm:"uniqueIndex" json:"phone,omitempty"` // unique when present

	CompanyName string `json:"company_name"`
	JobTitle    string `json:"job_title"`
	Notes       string `gorm:"type:text" json:"notes"`

	Source        string `gorm:"default:'OTHER'" json:"source"`
	SourceDetails string `gorm:"type:text" json:"source_details"`

	Status string `gorm:"not null;default:'NEW';index" json:"status"`

	// 0-100 engagement-driven score
	LeadScore int `gorm:"default:0" json:"lead_score"`

	// Campaign that captured this prospect, if any
	CampaignID *uint `gorm:"index" json:"campaign_id,omitempty"`

	// Conversion tracking
	ConvertedToContactID *uint      `json:"converted_to_contact_id,omitempty"`
	ConvertedAt          *time.Time `json:"converted_at,omitempty"`

	// Ownership
	AssignedTo *uint `json:"assigned_to,omitempty"`
	CreatedBy  *uint `json:"created_by,omitempty"`

	LastContactedAt *time.Time `json:"last_contacted_at,omitempty"`

	ScoreHistory []LeadScoreHistory `gorm:"foreignKey:ProspectID" json:"score_history,omitempty"`
}

// FullName returns the prospect's display name
func (p *Prospect) FullName() string {
	if p.LastName == "" {
		return p.FirstName
	}
	return p.FirstName + " " + p.LastName
}

// IsConverted reports whether the prospect has been turned into a contact
func (p *Prospect) IsConverted() bool {
	return p.Status == ProspectStatusConverted && p.ConvertedToContactID != nil
}

// LeadScoreHistory is the append-only audit trail of lead score changes.
// Exactly one row is written per score-changing event; rows are never
// mutated or deleted. ScoreChange is the post-clamp delta, which can be
// smaller than the requested delta when the score hits 0 or 100.
type LeadScoreHistory struct {
	gorm.Model

	ProspectID uint `gorm:"not null;index" json:"prospect_id"`

	OldScore    int `gorm:"not null" json:"old_score"`
	NewScore    int `gorm:"not null" json:"new_score"`
	ScoreChange int `gorm:"not null" json:"score_change"` // new - old

	Reason       string `gorm:"not null" json:"reason"`           // e.g. "Email opened", "Manual adjustment"
	ActivityType string `json:"activity_type"`                    // e.g. "email_open", "conversion"

	CampaignID        *uint `json:"campaign_id,omitempty"`
	CampaignContactID *uint `json:"campaign_contact_id,omitempty"`
	ChangedBy         *uint `json:"changed_by,omitempty"`
}
