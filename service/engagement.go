package service

import (
	"fmt"
	"log"
	"time"

	"salescrm/models"

	"gorm.io/gorm"
)

// EngagementService drives the per-recipient engagement state machine on
// campaign_contacts and keeps campaign rollups in sync.
//
// Timestamp fields record first occurrence only; counters increment on every
// occurrence via atomic in-database updates so concurrent webhook deliveries
// serialize at the row. Status only moves forward along the milestone order,
// except for the explicit Resend reset.
type EngagementService struct {
	DB      *gorm.DB
	Logger  *log.Logger
	Scoring *ScoringService
}

func NewEngagementService(db *gorm.DB, logger *log.Logger, scoring *ScoringService) *EngagementService {
	return &EngagementService{DB: db, Logger: logger, Scoring: scoring}
}

// Get returns an engagement record by id
func (es *EngagementService) Get(id uint) (*models.CampaignContact, error) {
	var cc models.CampaignContact
	if err := es.DB.First(&cc, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("campaign contact %d: %w", id, ErrNotFound)
		}
		return nil, err
	}
	return &cc, nil
}

// GetByMessageID returns the engagement record for a provider message id
func (es *EngagementService) GetByMessageID(messageID string) (*models.CampaignContact, error) {
	var cc models.CampaignContact
	err := es.DB.Where("email_message_id = ?", messageID).First(&cc).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("message %q: %w", messageID, ErrNotFound)
		}
		return nil, err
	}
	return &cc, nil
}

// FindByCampaignAndProspect locates the junction row for a prospect's
// participation in a campaign
func (es *EngagementService) FindByCampaignAndProspect(campaignID, prospectID uint) (*models.CampaignContact, error) {
	var cc models.CampaignContact
	err := es.DB.Where("campaign_id = ? AND prospect_id = ?", campaignID, prospectID).First(&cc).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("campaign %d prospect %d: %w", campaignID, prospectID, ErrNotFound)
		}
		return nil, err
	}
	return &cc, nil
}

// AddContactToCampaign adds a contact to a campaign's audience. Adding the
// same contact twice returns the existing record.
func (es *EngagementService) AddContactToCampaign(campaignID, contactID uint, emailSentTo string) (*models.CampaignContact, error) {
	var existing models.CampaignContact
	err := es.DB.Where("campaign_id = ? AND contact_id = ?", campaignID, contactID).First(&existing).Error
	if err == nil {
		return &existing, nil
	}
	if err != gorm.ErrRecordNotFound {
		return nil, err
	}

	cc := models.CampaignContact{
		CampaignID:  campaignID,
		ContactID:   &contactID,
		Status:      models.EngagementPending,
		EmailSentTo: emailSentTo,
	}
	if err := es.createEngagement(&cc); err != nil {
		return nil, err
	}
	return &cc, nil
}

// AddProspectToCampaign adds a prospect to a campaign's audience. Adding the
// same prospect twice returns the existing record.
func (es *EngagementService) AddProspectToCampaign(campaignID, prospectID uint, emailSentTo string) (*models.CampaignContact, error) {
	var existing models.CampaignContact
	err := es.DB.Where("campaign_id = ? AND prospect_id = ?", campaignID, prospectID).First(&existing).Error
	if err == nil {
		return &existing, nil
	}
	if err != gorm.ErrRecordNotFound {
		return nil, err
	}

	cc := models.CampaignContact{
		CampaignID:  campaignID,
		ProspectID:  &prospectID,
		Status:      models.EngagementPending,
		EmailSentTo: emailSentTo,
	}
	if err := es.createEngagement(&cc); err != nil {
		return nil, err
	}
	return &cc, nil
}

// CreateEngagement persists a new engagement record, enforcing the recipient
// XOR invariant: exactly one of ContactID and ProspectID must be set.
func (es *EngagementService) CreateEngagement(cc *models.CampaignContact) error {
	return es.createEngagement(cc)
}

func (es *EngagementService) createEngagement(cc *models.CampaignContact) error {
	if (cc.ContactID == nil) == (cc.ProspectID == nil) {
		return fmt.Errorf("exactly one of contact_id and prospect_id must be set: %w", ErrConstraintViolation)
	}
	if cc.Status == "" {
		cc.Status = models.EngagementPending
	}
	if err := es.DB.Create(cc).Error; err != nil {
		if isDuplicateKey(err) {
			return fmt.Errorf("engagement record already exists: %w", ErrConstraintViolation)
		}
		return err
	}
	return nil
}

// BulkAddResult reports the outcome of a bulk audience add
type BulkAddResult struct {
	AddedCount     int `json:"added_count"`
	SkippedCount   int `json:"skipped_count"`
	TotalRequested int `json:"total_requested"`
}

// BulkAddContacts adds many contacts to a campaign, skipping duplicates
func (es *EngagementService) BulkAddContacts(campaignID uint, contactIDs []uint) (*BulkAddResult, error) {
	result := &BulkAddResult{TotalRequested: len(contactIDs)}
	for _, id := range contactIDs {
		var count int64
		if err := es.DB.Model(&models.CampaignContact{}).
			Where("campaign_id = ? AND contact_id = ?", campaignID, id).
			Count(&count).Error; err != nil {
			return nil, err
		}
		if count > 0 {
			result.SkippedCount++
			continue
		}
		contactID := id
		cc := models.CampaignContact{
			CampaignID: campaignID,
			ContactID:  &contactID,
			Status:     models.EngagementPending,
		}
		if err := es.DB.Create(&cc).Error; err != nil {
			return nil, err
		}
		result.AddedCount++
	}
	return result, nil
}

// BulkAddProspects adds many prospects to a campaign, skipping duplicates
func (es *EngagementService) BulkAddProspects(campaignID uint, prospectIDs []uint) (*BulkAddResult, error) {
	result := &BulkAddResult{TotalRequested: len(prospectIDs)}
	for _, id := range prospectIDs {
		var count int64
		if err := es.DB.Model(&models.CampaignContact{}).
			Where("campaign_id = ? AND prospect_id = ?", campaignID, id).
			Count(&count).Error; err != nil {
			return nil, err
		}
		if count > 0 {
			result.SkippedCount++
			continue
		}
		prospectID := id
		cc := models.CampaignContact{
			CampaignID: campaignID,
			ProspectID: &prospectID,
			Status:     models.EngagementPending,
		}
		if err := es.DB.Create(&cc).Error; err != nil {
			return nil, err
		}
		result.AddedCount++
	}
	return result, nil
}

// GetCampaignAudience lists engagement records for a campaign, optionally
// filtered by status
func (es *EngagementService) GetCampaignAudience(campaignID uint, statuses []string, offset, limit int) ([]models.CampaignContact, error) {
	query := es.DB.Where("campaign_id = ?", campaignID)
	if len(statuses) > 0 {
		query = query.Where("status IN ?", statuses)
	}
	var audience []models.CampaignContact
	err := query.Order("created_at DESC").Offset(offset).Limit(limit).Find(&audience).Error
	return audience, err
}

// RemoveFromCampaign removes a recipient from a campaign's audience
func (es *EngagementService) RemoveFromCampaign(campaignID uint, contactID, prospectID *uint) error {
	query := es.DB.Where("campaign_id = ?", campaignID)
	switch {
	case contactID != nil:
		query = query.Where("contact_id = ?", *contactID)
	case prospectID != nil:
		query = query.Where("prospect_id = ?", *prospectID)
	default:
		return fmt.Errorf("no recipient specified: %w", ErrConstraintViolation)
	}

	res := query.Delete(&models.CampaignContact{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("audience member: %w", ErrNotFound)
	}
	return nil
}

// setTimestampOnce sets the named timestamp column only if it is still null
func (es *EngagementService) setTimestampOnce(tx *gorm.DB, id uint, column string, at time.Time) error {
	return tx.Model(&models.CampaignContact{}).
		Where(fmt.Sprintf("id = ? AND %s IS NULL", column), id).
		Update(column, at).Error
}

// advanceStatus moves the row's status forward to target only if the current
// status precedes it in the milestone order
func (es *EngagementService) advanceStatus(tx *gorm.DB, id uint, target string) error {
	before := models.MilestonesBefore(target)
	if len(before) == 0 {
		return nil
	}
	return tx.Model(&models.CampaignContact{}).
		Where("id = ? AND status IN ?", id, before).
		Update("status", target).Error
}

// RecordSent marks the engagement as sent. The sent timestamp is first
// occurrence only and the status moves off PENDING.
func (es *EngagementService) RecordSent(id uint, messageID, subject string) (*models.CampaignContact, error) {
	cc, err := es.Get(id)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	err = es.DB.Transaction(func(tx *gorm.DB) error {
		if err := es.setTimestampOnce(tx, id, "sent_at", now); err != nil {
			return err
		}
		if err := es.advanceStatus(tx, id, models.EngagementSent); err != nil {
			return err
		}
		updates := map[string]interface{}{}
		if messageID != "" {
			updates["email_message_id"] = messageID
		}
		if subject != "" {
			updates["email_subject"] = subject
		}
		if len(updates) == 0 {
			return nil
		}
		return tx.Model(cc).Updates(updates).Error
	})
	if err != nil {
		return nil, err
	}
	return es.Get(id)
}

// RecordDelivered marks confirmed delivery
func (es *EngagementService) RecordDelivered(id uint) (*models.CampaignContact, error) {
	if _, err := es.Get(id); err != nil {
		return nil, err
	}

	now := time.Now()
	err := es.DB.Transaction(func(tx *gorm.DB) error {
		if err := es.setTimestampOnce(tx, id, "delivered_at", now); err != nil {
			return err
		}
		return es.advanceStatus(tx, id, models.EngagementDelivered)
	})
	if err != nil {
		return nil, err
	}
	return es.Get(id)
}

// RecordOpen registers an open event. The open counter increments on every
// call; opened_at and the status advance happen on the first only.
func (es *EngagementService) RecordOpen(id uint) (*models.CampaignContact, error) {
	cc, err := es.Get(id)
	if err != nil {
		return nil, err
	}

	firstOpen := cc.OpenedAt == nil
	now := time.Now()
	err = es.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.CampaignContact{}).
			Where("id = ?", id).
			Update("open_count", gorm.Expr("open_count + 1")).Error; err != nil {
			return err
		}
		if err := es.setTimestampOnce(tx, id, "opened_at", now); err != nil {
			return err
		}
		return es.advanceStatus(tx, id, models.EngagementOpened)
	})
	if err != nil {
		return nil, err
	}

	if firstOpen {
		es.scoreProspectMilestone(cc, ActivityEmailOpen, "Email opened")
	}
	return es.Get(id)
}

// RecordClick registers a click event, analogous to RecordOpen
func (es *EngagementService) RecordClick(id uint) (*models.CampaignContact, error) {
	cc, err := es.Get(id)
	if err != nil {
		return nil, err
	}

	firstClick := cc.ClickedAt == nil
	now := time.Now()
	err = es.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.CampaignContact{}).
			Where("id = ?", id).
			Update("click_count", gorm.Expr("click_count + 1")).Error; err != nil {
			return err
		}
		if err := es.setTimestampOnce(tx, id, "clicked_at", now); err != nil {
			return err
		}
		return es.advanceStatus(tx, id, models.EngagementClicked)
	})
	if err != nil {
		return nil, err
	}

	if firstClick {
		es.scoreProspectMilestone(cc, ActivityLinkClick, "Link clicked")
	}
	return es.Get(id)
}

// RecordResponse registers a reply or equivalent action
func (es *EngagementService) RecordResponse(id uint) (*models.CampaignContact, error) {
	cc, err := es.Get(id)
	if err != nil {
		return nil, err
	}

	firstResponse := cc.RespondedAt == nil
	now := time.Now()
	err = es.DB.Transaction(func(tx *gorm.DB) error {
		if err := es.setTimestampOnce(tx, id, "responded_at", now); err != nil {
			return err
		}
		return es.advanceStatus(tx, id, models.EngagementResponded)
	})
	if err != nil {
		return nil, err
	}

	if firstResponse {
		es.scoreProspectMilestone(cc, ActivityResponse, "Campaign response")
	}
	return es.Get(id)
}

// RecordBounce moves the engagement to the BOUNCED terminal branch. A
// converted record is left untouched so the deal linkage invariant holds.
func (es *EngagementService) RecordBounce(id uint, bounceType, errorMessage string) (*models.CampaignContact, error) {
	cc, err := es.Get(id)
	if err != nil {
		return nil, err
	}
	if cc.Status == models.EngagementConverted {
		return cc, nil
	}

	now := time.Now()
	err = es.DB.Transaction(func(tx *gorm.DB) error {
		if err := es.setTimestampOnce(tx, id, "bounced_at", now); err != nil {
			return err
		}
		updates := map[string]interface{}{"status": models.EngagementBounced}
		if bounceType != "" {
			updates["bounce_type"] = bounceType
		}
		if errorMessage != "" {
			updates["error_message"] = errorMessage
		}
		return tx.Model(&models.CampaignContact{}).Where("id = ?", id).Updates(updates).Error
	})
	if err != nil {
		return nil, err
	}
	return es.Get(id)
}

// RecordUnsubscribe moves the engagement to the UNSUBSCRIBED terminal branch
// and applies the negative score delta for prospect recipients
func (es *EngagementService) RecordUnsubscribe(id uint) (*models.CampaignContact, error) {
	cc, err := es.Get(id)
	if err != nil {
		return nil, err
	}
	if cc.Status == models.EngagementConverted {
		return cc, nil
	}

	firstUnsubscribe := cc.UnsubscribedAt == nil
	now := time.Now()
	err = es.DB.Transaction(func(tx *gorm.DB) error {
		if err := es.setTimestampOnce(tx, id, "unsubscribed_at", now); err != nil {
			return err
		}
		return tx.Model(&models.CampaignContact{}).
			Where("id = ?", id).
			Update("status", models.EngagementUnsubscribed).Error
	})
	if err != nil {
		return nil, err
	}

	if firstUnsubscribe {
		es.scoreProspectMilestone(cc, ActivityUnsubscribe, "Unsubscribed from campaign")
	}
	return es.Get(id)
}

// RecordFailed moves the engagement to the FAILED terminal branch
func (es *EngagementService) RecordFailed(id uint, errorMessage string) (*models.CampaignContact, error) {
	cc, err := es.Get(id)
	if err != nil {
		return nil, err
	}
	if cc.Status == models.EngagementConverted {
		return cc, nil
	}

	updates := map[string]interface{}{"status": models.EngagementFailed}
	if errorMessage != "" {
		updates["error_message"] = errorMessage
	}
	if err := es.DB.Model(&models.CampaignContact{}).Where("id = ?", id).Updates(updates).Error; err != nil {
		return nil, err
	}
	return es.Get(id)
}

// RecordConversion links a deal to the engagement and advances it to
// CONVERTED. Bounced and failed engagements cannot convert. Campaign rollups
// are recomputed afterwards.
func (es *EngagementService) RecordConversion(id uint, dealID uint, conversionValue float64) (*models.CampaignContact, error) {
	cc, err := es.Get(id)
	if err != nil {
		return nil, err
	}

	if cc.Status == models.EngagementBounced || cc.Status == models.EngagementFailed {
		return nil, fmt.Errorf("engagement %d is %s: %w", id, cc.Status, ErrInvalidState)
	}

	firstConversion := cc.ConvertedAt == nil
	now := time.Now()
	err = es.DB.Transaction(func(tx *gorm.DB) error {
		if err := es.setTimestampOnce(tx, id, "converted_at", now); err != nil {
			return err
		}
		return tx.Model(&models.CampaignContact{}).
			Where("id = ?", id).
			Updates(map[string]interface{}{
				"status":           models.EngagementConverted,
				"deal_id":          dealID,
				"conversion_value": conversionValue,
			}).Error
	})
	if err != nil {
		return nil, err
	}

	if firstConversion {
		es.scoreProspectMilestone(cc, ActivityConversion, "Converted to deal")
	}

	if _, err := es.RecalculateMetrics(cc.CampaignID); err != nil {
		es.Logger.Printf("Failed to recompute metrics for campaign %d: %v", cc.CampaignID, err)
	}
	return es.Get(id)
}

// Resend resets the engagement to PENDING so a bounced or failed send can be
// retried. This is the one sanctioned backward transition; historical
// timestamps from the prior attempt are preserved.
func (es *EngagementService) Resend(id uint) (*models.CampaignContact, error) {
	if _, err := es.Get(id); err != nil {
		return nil, err
	}

	err := es.DB.Model(&models.CampaignContact{}).
		Where("id = ?", id).
		Update("status", models.EngagementPending).Error
	if err != nil {
		return nil, err
	}
	return es.Get(id)
}

// scoreProspectMilestone applies the configured score delta for a milestone
// when the recipient is a prospect, and accumulates the applied change on the
// engagement record. Scoring failures are logged, not propagated; the
// engagement event itself already happened.
func (es *EngagementService) scoreProspectMilestone(cc *models.CampaignContact, activityType, reason string) {
	if cc.ProspectID == nil {
		return
	}

	applied, err := es.Scoring.ApplyEngagementDelta(*cc.ProspectID, activityType, reason, &cc.CampaignID, &cc.ID)
	if err != nil {
		es.Logger.Printf("Lead scoring failed for prospect %d: %v", *cc.ProspectID, err)
		return
	}
	if applied == 0 {
		return
	}

	if err := es.DB.Model(&models.CampaignContact{}).
		Where("id = ?", cc.ID).
		Update("lead_score_change", gorm.Expr("lead_score_change + ?", applied)).Error; err != nil {
		es.Logger.Printf("Failed to accumulate score change on engagement %d: %v", cc.ID, err)
	}
}

// RecalculateMetrics recomputes a campaign's rollup counters from its
// engagement records and writes a CampaignMetric snapshot. Counters are
// derived, never decremented in place, so retroactive corrections to
// individual records cannot cause drift.
func (es *EngagementService) RecalculateMetrics(campaignID uint) (*models.Campaign, error) {
	var campaign models.Campaign
	if err := es.DB.First(&campaign, campaignID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("campaign %d: %w", campaignID, ErrNotFound)
		}
		return nil, err
	}

	count := func(cond string, args ...interface{}) (int64, error) {
		var n int64
		q := es.DB.Model(&models.CampaignContact{}).Where("campaign_id = ?", campaignID)
		err := q.Where(cond, args...).Count(&n).Error
		return n, err
	}

	sent, err := count("sent_at IS NOT NULL")
	if err != nil {
		return nil, err
	}
	delivered, err := count("delivered_at IS NOT NULL")
	if err != nil {
		return nil, err
	}
	opened, err := count("opened_at IS NOT NULL")
	if err != nil {
		return nil, err
	}
	clicked, err := count("clicked_at IS NOT NULL")
	if err != nil {
		return nil, err
	}
	responded, err := count("responded_at IS NOT NULL")
	if err != nil {
		return nil, err
	}
	converted, err := count("converted_at IS NOT NULL")
	if err != nil {
		return nil, err
	}
	bounced, err := count("status = ?", models.EngagementBounced)
	if err != nil {
		return nil, err
	}
	unsubscribed, err := count("status = ?", models.EngagementUnsubscribed)
	if err != nil {
		return nil, err
	}

	var prospectsGenerated int64
	if err := es.DB.Model(&models.Prospect{}).
		Where("campaign_id = ?", campaignID).
		Count(&prospectsGenerated).Error; err != nil {
		return nil, err
	}

	var revenue float64
	if err := es.DB.Model(&models.CampaignContact{}).
		Where("campaign_id = ? AND converted_at IS NOT NULL", campaignID).
		Select("COALESCE(SUM(conversion_value), 0)").
		Scan(&revenue).Error; err != nil {
		return nil, err
	}

	campaign.SentCount = int(sent)
	campaign.DeliveredCount = int(delivered)
	campaign.OpenedCount = int(opened)
	campaign.ClickedCount = int(clicked)
	campaign.RespondedCount = int(responded)
	campaign.BouncedCount = int(bounced)
	campaign.UnsubscribedCount = int(unsubscribed)
	campaign.ConvertedCount = int(converted)
	campaign.ProspectsGenerated = int(prospectsGenerated)
	campaign.ActualRevenue = revenue

	if err := es.DB.Save(&campaign).Error; err != nil {
		return nil, err
	}

	snapshot := models.CampaignMetric{
		CampaignID:        campaignID,
		RecordedAt:        time.Now(),
		SentCount:         campaign.SentCount,
		DeliveredCount:    campaign.DeliveredCount,
		OpenedCount:       campaign.OpenedCount,
		ClickedCount:      campaign.ClickedCount,
		RespondedCount:    campaign.RespondedCount,
		BouncedCount:      campaign.BouncedCount,
		UnsubscribedCount: campaign.UnsubscribedCount,
		ConvertedCount:    campaign.ConvertedCount,
		OpenRate:          campaign.OpenRate(),
		ClickRate:         campaign.ClickRate(),
		ConversionRate:    campaign.ConversionRate(),
		BounceRate:        campaign.BounceRate(),
		RevenueToDate:     revenue,
	}
	if err := es.DB.Create(&snapshot).Error; err != nil {
		es.Logger.Printf("Failed to snapshot metrics for campaign %d: %v", campaignID, err)
	}

	return &campaign, nil
}
