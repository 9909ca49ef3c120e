package models

import (
	"time"

	"gorm.io/gorm"
)

// Campaign types
const (
	CampaignTypeEmail  = "EMAIL"
	CampaignTypePhone  = "PHONE"
	CampaignTypeSocial = "SOCIAL"
	CampaignTypeEvent  = "EVENT"
	CampaignTypeOther  = "OTHER"
)

// Campaign lifecycle statuses
const (
	CampaignStatusDraft     = "DRAFT"
	CampaignStatusScheduled = "SCHEDULED"
	CampaignStatusActive    = "ACTIVE"
	CampaignStatusCompleted = "COMPLETED"
	CampaignStatusPaused    = "PAUSED"
	CampaignStatusCancelled = "CANCELLED"
)

// Engagement statuses for campaign recipients. The milestone order is
// pending -> sent -> delivered -> opened -> clicked -> responded -> converted;
// bounced, unsubscribed and failed are terminal side branches.
const (
	EngagementPending      = "PENDING"
	EngagementSent         = "SENT"
	EngagementDelivered    = "DELIVERED"
	EngagementOpened       = "OPENED"
	EngagementClicked      = "CLICKED"
	EngagementResponded    = "RESPONDED"
	EngagementConverted    = "CONVERTED"
	EngagementBounced      = "BOUNCED"
	EngagementUnsubscribed = "UNSUBSCRIBED"
	EngagementFailed       = "FAILED"
)

// engagementRank orders advancement milestones. Terminal side branches are
// not ranked; they replace the status outright.
var engagementRank = map[string]int{
	EngagementPending:   0,
	EngagementSent:      1,
	EngagementDelivered: 2,
	EngagementOpened:    3,
	EngagementClicked:   4,
	EngagementResponded: 5,
	EngagementConverted: 6,
}

// MilestonesBefore returns every milestone status strictly preceding the
// given one in the advancement order. Used for conditional status-advance
// updates; empty for unranked statuses.
func MilestonesBefore(status string) []string {
	rank, ok := engagementRank[status]
	if !ok {
		return nil
	}
	var before []string
	for name, r := range engagementRank {
		if r < rank {
			before = append(before, name)
		}
	}
	return before
}

// EngagementAdvances reports whether moving from to would advance the
// milestone order. Statuses outside the order (bounced, failed,
// unsubscribed) never advance.
func EngagementAdvances(from, to string) bool {
	fromRank, ok := engagementRank[from]
	if !ok {
		return false
	}
	toRank, ok := engagementRank[to]
	if !ok {
		return false
	}
	return toRank > fromRank
}

// Campaign represents a marketing initiative
type Campaign struct {
	gorm.Model

	Name        string `gorm:"not null;index" json:"name"`
	Description string `gorm:"type:text" json:"description"`

	Type   string `gorm:"not null;index" json:"type"`
	Status string `gorm:"not null;default:'DRAFT';index" json:"status"`

	// Scheduling
	StartDate       *time.Time `json:"start_date,omitempty"`
	EndDate         *time.Time `json:"end_date,omitempty"`
	ActualStartDate *time.Time `json:"actual_start_date,omitempty"`
	ActualEndDate   *time.Time `json:"actual_end_date,omitempty"`
	LastExecutedAt  *time.Time `json:"last_executed_at,omitempty"`

	// Budget & revenue
	Budget        float64 `gorm:"default:0" json:"budget"`
	ActualCost    float64 `gorm:"default:0" json:"actual_cost"`
	ActualRevenue float64 `gorm:"default:0" json:"actual_revenue"`

	// Email content
	EmailSubject   string `json:"email_subject"`
	EmailFromName  string `json:"email_from_name"`
	EmailFromEmail string `json:"email_from_email"`
	EmailBody      string `gorm:"type:text" json:"email_body"`

	// Rollup counters, recomputed from campaign_contacts (never decremented)
	SentCount          int `gorm:"default:0" json:"sent_count"`
	DeliveredCount     int `gorm:"default:0" json:"delivered_count"`
	OpenedCount        int `gorm:"default:0" json:"opened_count"`
	ClickedCount       int `gorm:"default:0" json:"clicked_count"`
	RespondedCount     int `gorm:"default:0" json:"responded_count"`
	BouncedCount       int `gorm:"default:0" json:"bounced_count"`
	UnsubscribedCount  int `gorm:"default:0" json:"unsubscribed_count"`
	ConvertedCount     int `gorm:"default:0" json:"converted_count"`
	ProspectsGenerated int `gorm:"default:0" json:"prospects_generated"`

	OwnerID   uint  `gorm:"not null;index" json:"owner_id"`
	CreatedBy *uint `json:"created_by,omitempty"`

	CampaignContacts []CampaignContact `gorm:"foreignKey:CampaignID" json:"campaign_contacts,omitempty"`
	Metrics          []CampaignMetric  `gorm:"foreignKey:CampaignID" json:"metrics,omitempty"`
}

func (c *Campaign) rate(count int) float64 {
	if c.SentCount == 0 {
		return 0.0
	}
	return float64(count) / float64(c.SentCount) * 100
}

// OpenRate returns opened/sent as a percentage, 0 when nothing was sent
func (c *Campaign) OpenRate() float64 { return c.rate(c.OpenedCount) }

// ClickRate returns clicked/sent as a percentage
func (c *Campaign) ClickRate() float64 { return c.rate(c.ClickedCount) }

// ResponseRate returns responded/sent as a percentage
func (c *Campaign) ResponseRate() float64 { return c.rate(c.RespondedCount) }

// ConversionRate returns converted/sent as a percentage
func (c *Campaign) ConversionRate() float64 { return c.rate(c.ConvertedCount) }

// DeliveryRate returns delivered/sent as a percentage
func (c *Campaign) DeliveryRate() float64 { return c.rate(c.DeliveredCount) }

// BounceRate returns bounced/sent as a percentage
func (c *Campaign) BounceRate() float64 { return c.rate(c.BouncedCount) }

// CampaignContact is the junction record binding one campaign to exactly one
// recipient, either a contact or a prospect. Each row tracks that recipient's
// engagement lifecycle for the campaign.
//
// The database enforces the recipient XOR: exactly one of contact_id and
// prospect_id is non-null.
type CampaignContact struct {
	gorm.Model

	CampaignID uint `gorm:"not null;index" json:"campaign_id"`

	ContactID  *uint `gorm:"index;check:chk_recipient_xor,(contact_id IS NULL) <> (prospect_id IS NULL)" json:"contact_id,omitempty"`
	ProspectID *uint `gorm:"index" json:"prospect_id,omitempty"`

	Status string `gorm:"not null;default:'PENDING';index" json:"status"`

	// First-occurrence timestamps, each set at most once
	SentAt         *time.Time `json:"sent_at,omitempty"`
	DeliveredAt    *time.Time `json:"delivered_at,omitempty"`
	OpenedAt       *time.Time `json:"opened_at,omitempty"`
	ClickedAt      *time.Time `json:"clicked_at,omitempty"`
	RespondedAt    *time.Time `json:"responded_at,omitempty"`
	ConvertedAt    *time.Time `json:"converted_at,omitempty"`
	BouncedAt      *time.Time `json:"bounced_at,omitempty"`
	UnsubscribedAt *time.Time `json:"unsubscribed_at,omitempty"`

	// Counters increment on every occurrence, including the first
	OpenCount  int `gorm:"default:0;not null" json:"open_count"`
	ClickCount int `gorm:"default:0;not null" json:"click_count"`

	// Points this campaign contributed to the prospect's lead score
	LeadScoreChange int `gorm:"default:0;not null" json:"lead_score_change"`

	// Email delivery details
	EmailSentTo    string `json:"email_sent_to"`
	EmailMessageID string `gorm:"index" json:"email_message_id"`
	EmailSubject   string `json:"email_subject"`

	// Conversion linkage; deal_id set implies status CONVERTED
	DealID          *uint    `json:"deal_id,omitempty"`
	ConversionValue *float64 `json:"conversion_value,omitempty"`

	// Failure details
	ErrorMessage string `gorm:"type:text" json:"error_message"`
	BounceType   string `json:"bounce_type"` // "hard" or "soft"
}

// TableName keeps the historical junction table name
func (CampaignContact) TableName() string { return "campaign_contacts" }

// RecipientType reports whether the row targets a contact or a prospect
func (cc *CampaignContact) RecipientType() string {
	if cc.ContactID != nil {
		return "contact"
	}
	return "prospect"
}

// WasDelivered reports whether delivery was confirmed
func (cc *CampaignContact) WasDelivered() bool { return cc.DeliveredAt != nil }

// WasOpened reports whether the recipient ever opened the message
func (cc *CampaignContact) WasOpened() bool { return cc.OpenedAt != nil }

// WasClicked reports whether the recipient ever clicked a link
func (cc *CampaignContact) WasClicked() bool { return cc.ClickedAt != nil }

// WasConverted reports whether the engagement produced a deal
func (cc *CampaignContact) WasConverted() bool {
	return cc.Status == EngagementConverted && cc.DealID != nil
}

// EngagementScore derives a score from the milestones reached: +1 delivered,
// +2 opened, +3 clicked, +5 responded, +10 converted. Pure function of the
// timestamp fields, never stored.
func (cc *CampaignContact) EngagementScore() int {
	score := 0
	if cc.WasDelivered() {
		score += 1
	}
	if cc.WasOpened() {
		score += 2
	}
	if cc.WasClicked() {
		score += 3
	}
	if cc.RespondedAt != nil {
		score += 5
	}
	if cc.WasConverted() {
		score += 10
	}
	return score
}

// CampaignMetric is a point-in-time snapshot of campaign rollups, written
// whenever metrics are recomputed so trends can be charted later.
type CampaignMetric struct {
	gorm.Model

	CampaignID uint      `gorm:"not null;index" json:"campaign_id"`
	RecordedAt time.Time `gorm:"not null;index" json:"recorded_at"`

	SentCount         int `gorm:"default:0" json:"sent_count"`
	DeliveredCount    int `gorm:"default:0" json:"delivered_count"`
	OpenedCount       int `gorm:"default:0" json:"opened_count"`
	ClickedCount      int `gorm:"default:0" json:"clicked_count"`
	RespondedCount    int `gorm:"default:0" json:"responded_count"`
	BouncedCount      int `gorm:"default:0" json:"bounced_count"`
	UnsubscribedCount int `gorm:"default:0" json:"unsubscribed_count"`
	ConvertedCount    int `gorm:"default:0" json:"converted_count"`

	OpenRate       float64 `gorm:"default:0" json:"open_rate"`
	ClickRate      float64 `gorm:"default:0" json:"click_rate"`
	ConversionRate float64 `gorm:"default:0" json:"conversion_rate"`
	BounceRate     float64 `gorm:"default:0" json:"bounce_rate"`

	RevenueToDate float64 `gorm:"default:0" json:"revenue_to_date"`
}
