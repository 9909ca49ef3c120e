package service

import (
	"fmt"
	"log"
	"time"

	"salescrm/models"

	"gorm.io/gorm"
)

// campaignTransitions enumerates the legal status moves. Anything not listed
// is rejected with ErrInvalidState.
var campaignTransitions = map[string][]string{
	models.CampaignStatusDraft:     {models.CampaignStatusScheduled, models.CampaignStatusActive, models.CampaignStatusCancelled},
	models.CampaignStatusScheduled: {models.CampaignStatusActive, models.CampaignStatusDraft, models.CampaignStatusCancelled},
	models.CampaignStatusActive:    {models.CampaignStatusPaused, models.CampaignStatusCompleted, models.CampaignStatusCancelled},
	models.CampaignStatusPaused:    {models.CampaignStatusActive, models.CampaignStatusCompleted, models.CampaignStatusCancelled},
}

func campaignCanTransition(from, to string) bool {
	for _, allowed := range campaignTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// CampaignInput carries campaign creation/update fields
type CampaignInput struct {
	Name        string `json:"name" validate:"required,max=255"`
	Description string `json:"description"`
	Type        string `json:"type" validate:"required,oneof=EMAIL PHONE SOCIAL EVENT OTHER"`

	StartDate *time.Time `json:"start_date,omitempty"`
	EndDate   *time.Time `json:"end_date,omitempty"`

	Budget float64 `json:"budget" validate:"gte=0"`

	EmailSubject   string `json:"email_subject"`
	EmailFromName  string `json:"email_from_name"`
	EmailFromEmail string `json:"email_from_email" validate:"omitempty,email"`
	EmailBody      string `json:"email_body"`
}

// CampaignService manages campaign CRUD and the campaign lifecycle state
// machine. Per-recipient engagement lives in EngagementService.
type CampaignService struct {
	DB         *gorm.DB
	Logger     *log.Logger
	Engagement *EngagementService
}

func NewCampaignService(db *gorm.DB, logger *log.Logger, engagement *EngagementService) *CampaignService {
	return &CampaignService{DB: db, Logger: logger, Engagement: engagement}
}

// Get returns a campaign by id
func (cs *CampaignService) Get(id uint) (*models.Campaign, error) {
	var campaign models.Campaign
	if err := cs.DB.First(&campaign, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("campaign %d: %w", id, ErrNotFound)
		}
		return nil, err
	}
	return &campaign, nil
}

// List returns campaigns, restricted to one owner when ownerID is non-nil
func (cs *CampaignService) List(ownerID *uint, statuses []string, offset, limit int) ([]models.Campaign, int64, error) {
	query := cs.DB.Model(&models.Campaign{})
	if ownerID != nil {
		query = query.Where("owner_id = ?", *ownerID)
	}
	if len(statuses) > 0 {
		query = query.Where("status IN ?", statuses)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var campaigns []models.Campaign
	err := query.Order("created_at DESC").Offset(offset).Limit(limit).Find(&campaigns).Error
	return campaigns, total, err
}

// CreateCampaign creates a campaign in DRAFT
func (cs *CampaignService) CreateCampaign(input CampaignInput, ownerID uint) (*models.Campaign, error) {
	if input.StartDate != nil && input.EndDate != nil && input.EndDate.Before(*input.StartDate) {
		return nil, fmt.Errorf("end date precedes start date: %w", ErrConstraintViolation)
	}

	campaign := models.Campaign{
		Name:           input.Name,
		Description:    input.Description,
		Type:           input.Type,
		Status:         models.CampaignStatusDraft,
		StartDate:      input.StartDate,
		EndDate:        input.EndDate,
		Budget:         input.Budget,
		EmailSubject:   input.EmailSubject,
		EmailFromName:  input.EmailFromName,
		EmailFromEmail: input.EmailFromEmail,
		EmailBody:      input.EmailBody,
		OwnerID:        ownerID,
		CreatedBy:      &ownerID,
	}
	if err := cs.DB.Create(&campaign).Error; err != nil {
		return nil, err
	}
	return &campaign, nil
}

// UpdateCampaign edits campaign content. Completed and cancelled campaigns
// are frozen.
func (cs *CampaignService) UpdateCampaign(id uint, input CampaignInput) (*models.Campaign, error) {
	campaign, err := cs.Get(id)
	if err != nil {
		return nil, err
	}

	if campaign.Status == models.CampaignStatusCompleted || campaign.Status == models.CampaignStatusCancelled {
		return nil, fmt.Errorf("campaign %d is %s: %w", id, campaign.Status, ErrInvalidState)
	}
	if input.StartDate != nil && input.EndDate != nil && input.EndDate.Before(*input.StartDate) {
		return nil, fmt.Errorf("end date precedes start date: %w", ErrConstraintViolation)
	}

	if input.Name != "" {
		campaign.Name = input.Name
	}
	if input.Description != "" {
		campaign.Description = input.Description
	}
	if input.Type != "" {
		campaign.Type = input.Type
	}
	if input.StartDate != nil {
		campaign.StartDate = input.StartDate
	}
	if input.EndDate != nil {
		campaign.EndDate = input.EndDate
	}
	if input.Budget > 0 {
		campaign.Budget = input.Budget
	}
	if input.EmailSubject != "" {
		campaign.EmailSubject = input.EmailSubject
	}
	if input.EmailFromName != "" {
		campaign.EmailFromName = input.EmailFromName
	}
	if input.EmailFromEmail != "" {
		campaign.EmailFromEmail = input.EmailFromEmail
	}
	if input.EmailBody != "" {
		campaign.EmailBody = input.EmailBody
	}

	if err := cs.DB.Save(campaign).Error; err != nil {
		return nil, err
	}
	return campaign, nil
}

// transition moves the campaign to a new status after validating the move
func (cs *CampaignService) transition(id uint, target string, extra map[string]interface{}) (*models.Campaign, error) {
	campaign, err := cs.Get(id)
	if err != nil {
		return nil, err
	}
	if !campaignCanTransition(campaign.Status, target) {
		return nil, fmt.Errorf("campaign %d cannot move from %s to %s: %w",
			id, campaign.Status, target, ErrInvalidState)
	}

	updates := map[string]interface{}{"status": target}
	for k, v := range extra {
		updates[k] = v
	}
	if err := cs.DB.Model(campaign).Updates(updates).Error; err != nil {
		return nil, err
	}
	return cs.Get(id)
}

// Schedule moves a draft campaign to SCHEDULED for the given start time
func (cs *CampaignService) Schedule(id uint, startDate time.Time) (*models.Campaign, error) {
	return cs.transition(id, models.CampaignStatusScheduled, map[string]interface{}{
		"start_date": startDate,
	})
}

// Activate starts the campaign. The actual start date is recorded on the
// first activation only.
func (cs *CampaignService) Activate(id uint) (*models.Campaign, error) {
	campaign, err := cs.Get(id)
	if err != nil {
		return nil, err
	}

	extra := map[string]interface{}{}
	if campaign.ActualStartDate == nil {
		extra["actual_start_date"] = time.Now()
	}
	return cs.transition(id, models.CampaignStatusActive, extra)
}

// Pause suspends an active campaign
func (cs *CampaignService) Pause(id uint) (*models.Campaign, error) {
	return cs.transition(id, models.CampaignStatusPaused, nil)
}

// Complete finishes the campaign and records the actual end date
func (cs *CampaignService) Complete(id uint) (*models.Campaign, error) {
	return cs.transition(id, models.CampaignStatusCompleted, map[string]interface{}{
		"actual_end_date": time.Now(),
	})
}

// Cancel aborts the campaign from any non-terminal status
func (cs *CampaignService) Cancel(id uint) (*models.Campaign, error) {
	return cs.transition(id, models.CampaignStatusCancelled, nil)
}

// DeleteCampaign soft-deletes a campaign. Only draft and cancelled campaigns
// can be removed; everything else retains its engagement history.
func (cs *CampaignService) DeleteCampaign(id uint) error {
	campaign, err := cs.Get(id)
	if err != nil {
		return err
	}
	if campaign.Status != models.CampaignStatusDraft && campaign.Status != models.CampaignStatusCancelled {
		return fmt.Errorf("campaign %d is %s: %w", id, campaign.Status, ErrInvalidState)
	}
	return cs.DB.Delete(campaign).Error
}

// DueScheduled returns scheduled campaigns whose start date has passed
func (cs *CampaignService) DueScheduled(now time.Time) ([]models.Campaign, error) {
	var due []models.Campaign
	err := cs.DB.Where("status = ? AND start_date IS NOT NULL AND start_date <= ?",
		models.CampaignStatusScheduled, now).Find(&due).Error
	return due, err
}

// ExpiredActive returns active campaigns whose end date has passed
func (cs *CampaignService) ExpiredActive(now time.Time) ([]models.Campaign, error) {
	var expired []models.Campaign
	err := cs.DB.Where("status = ? AND end_date IS NOT NULL AND end_date <= ?",
		models.CampaignStatusActive, now).Find(&expired).Error
	return expired, err
}

// MarkExecuted stamps the campaign's last execution time
func (cs *CampaignService) MarkExecuted(id uint) error {
	return cs.DB.Model(&models.Campaign{}).
		Where("id = ?", id).
		Update("last_executed_at", time.Now()).Error
}
