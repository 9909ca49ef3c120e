package service

import (
	"errors"
	"fmt"
	"log"

	"salescrm/models"

	"gorm.io/gorm"
)

// ProspectInput carries prospect creation/update fields. Empty email/phone
// strings are normalized to NULL so the partial unique indexes behave.
type ProspectInput struct {
	FirstName     string `json:"first_name" validate:"required,max=100"`
	LastName      string `json:"last_name" validate:"omitempty,max=100"`
	Email         string `json:"email" validate:"omitempty,email"`
	Phone         string `json:"phone" validate:"omitempty,max=50"`
	CompanyName   string `json:"company_name" validate:"omitempty,max=255"`
	JobTitle      string `json:"job_title" validate:"omitempty,max=100"`
	Notes         string `json:"notes"`
	Source        string `json:"source"`
	SourceDetails string `json:"source_details"`
	CampaignID    *uint  `json:"campaign_id,omitempty"`
	AssignedTo    *uint  `json:"assigned_to,omitempty"`
}

// ProspectService handles prospect lifecycle: capture, duplicate detection,
// bulk import and statistics. Conversion lives in ConversionService.
type ProspectService struct {
	DB      *gorm.DB
	Logger  *log.Logger
	Scoring *ScoringService
}

func NewProspectService(db *gorm.DB, logger *log.Logger, scoring *ScoringService) *ProspectService {
	return &ProspectService{DB: db, Logger: logger, Scoring: scoring}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Get returns a prospect by id
func (ps *ProspectService) Get(id uint) (*models.Prospect, error) {
	var prospect models.Prospect
	if err := ps.DB.First(&prospect, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("prospect %d: %w", id, ErrNotFound)
		}
		return nil, err
	}
	return &prospect, nil
}

// CheckDuplicate reports whether another prospect already uses the email or
// phone. excludeID ignores one prospect (for updates).
func (ps *ProspectService) CheckDuplicate(email, phone *string, excludeID uint) (bool, error) {
	if email == nil && phone == nil {
		return false, nil
	}

	query := ps.DB.Model(&models.Prospect{})
	switch {
	case email != nil && phone != nil:
		query = query.Where("email = ? OR phone = ?", *email, *phone)
	case email != nil:
		query = query.Where("email = ?", *email)
	default:
		query = query.Where("phone = ?", *phone)
	}
	if excludeID != 0 {
		query = query.Where("id <> ?", excludeID)
	}

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// CreateProspect captures a new prospect. At least one of email and phone is
// required, and both are globally unique when present.
func (ps *ProspectService) CreateProspect(input ProspectInput, createdBy uint) (*models.Prospect, error) {
	email := optional(input.Email)
	phone := optional(input.Phone)
	if email == nil && phone == nil {
		return nil, fmt.Errorf("prospect needs at least one of email and phone: %w", ErrConstraintViolation)
	}

	dup, err := ps.CheckDuplicate(email, phone, 0)
	if err != nil {
		return nil, err
	}
	if dup {
		return nil, fmt.Errorf("prospect with this email or phone already exists: %w", ErrConstraintViolation)
	}

	source := input.Source
	if source == "" {
		source = models.ProspectSourceOther
	}
	assignedTo := input.AssignedTo
	if assignedTo == nil {
		assignedTo = &createdBy
	}

	prospect := models.Prospect{
		FirstName:     input.FirstName,
		LastName:      input.LastName,
		Email:         email,
		Phone:         phone,
		CompanyName:   input.CompanyName,
		JobTitle:      input.JobTitle,
		Notes:         input.Notes,
		Source:        source,
		SourceDetails: input.SourceDetails,
		Status:        models.ProspectStatusNew,
		CampaignID:    input.CampaignID,
		AssignedTo:    assignedTo,
		CreatedBy:     &createdBy,
	}

	if err := ps.DB.Create(&prospect).Error; err != nil {
		if isDuplicateKey(err) {
			return nil, fmt.Errorf("prospect with this email or phone already exists: %w", ErrConstraintViolation)
		}
		return nil, err
	}

	// Initial history row anchors the audit trail at the starting score
	history := models.LeadScoreHistory{
		ProspectID:   prospect.ID,
		OldScore:     0,
		NewScore:     prospect.LeadScore,
		ScoreChange:  prospect.LeadScore,
		Reason:       "Initial prospect creation",
		ActivityType: ActivityProspectCreated,
		CampaignID:   prospect.CampaignID,
		ChangedBy:    &createdBy,
	}
	if err := ps.DB.Create(&history).Error; err != nil {
		ps.Logger.Printf("Failed to write initial score history for prospect %d: %v", prospect.ID, err)
	}

	return &prospect, nil
}

// UpdateProspect applies field changes with duplicate re-checks. Manual lead
// score changes go through ApplyScoreChange instead so the audit trail stays
// complete.
func (ps *ProspectService) UpdateProspect(id uint, input ProspectInput) (*models.Prospect, error) {
	prospect, err := ps.Get(id)
	if err != nil {
		return nil, err
	}

	email := optional(input.Email)
	phone := optional(input.Phone)
	if email != nil || phone != nil {
		dup, err := ps.CheckDuplicate(email, phone, id)
		if err != nil {
			return nil, err
		}
		if dup {
			return nil, fmt.Errorf("another prospect with this email or phone already exists: %w", ErrConstraintViolation)
		}
	}

	if input.FirstName != "" {
		prospect.FirstName = input.FirstName
	}
	if input.LastName != "" {
		prospect.LastName = input.LastName
	}
	if email != nil {
		prospect.Email = email
	}
	if phone != nil {
		prospect.Phone = phone
	}
	if input.CompanyName != "" {
		prospect.CompanyName = input.CompanyName
	}
	if input.JobTitle != "" {
		prospect.JobTitle = input.JobTitle
	}
	if input.Notes != "" {
		prospect.Notes = input.Notes
	}
	if input.AssignedTo != nil {
		prospect.AssignedTo = input.AssignedTo
	}
	if input.CampaignID != nil {
		prospect.CampaignID = input.CampaignID
	}

	if err := ps.DB.Save(prospect).Error; err != nil {
		if isDuplicateKey(err) {
			return nil, fmt.Errorf("another prospect with this email or phone already exists: %w", ErrConstraintViolation)
		}
		return nil, err
	}
	return prospect, nil
}

// RejectProspect marks a prospect as not a good fit
func (ps *ProspectService) RejectProspect(id uint) (*models.Prospect, error) {
	prospect, err := ps.Get(id)
	if err != nil {
		return nil, err
	}
	if prospect.Status == models.ProspectStatusConverted {
		return nil, fmt.Errorf("prospect %d already converted: %w", id, ErrInvalidState)
	}

	if err := ps.DB.Model(prospect).Update("status", models.ProspectStatusRejected).Error; err != nil {
		return nil, err
	}
	prospect.Status = models.ProspectStatusRejected
	return prospect, nil
}

// GetByCampaign lists prospects captured by a campaign, optionally filtered
// by status
func (ps *ProspectService) GetByCampaign(campaignID uint, statuses []string, offset, limit int) ([]models.Prospect, error) {
	query := ps.DB.Where("campaign_id = ?", campaignID)
	if len(statuses) > 0 {
		query = query.Where("status IN ?", statuses)
	}
	var prospects []models.Prospect
	err := query.Order("created_at DESC").Offset(offset).Limit(limit).Find(&prospects).Error
	return prospects, err
}

// BulkCreateResult reports the outcome of a bulk import
type BulkCreateResult struct {
	CreatedCount   int      `json:"created_count"`
	SkippedCount   int      `json:"skipped_count"`
	FailedCount    int      `json:"failed_count"`
	TotalRequested int      `json:"total_requested"`
	Errors         []string `json:"errors,omitempty"`
}

// BulkCreateProspects imports many prospects. With skipDuplicates set,
// duplicates are counted and skipped instead of failing the batch.
func (ps *ProspectService) BulkCreateProspects(inputs []ProspectInput, campaignID *uint, createdBy uint, skipDuplicates bool) (*BulkCreateResult, error) {
	result := &BulkCreateResult{TotalRequested: len(inputs)}

	for i, input := range inputs {
		if input.CampaignID == nil {
			input.CampaignID = campaignID
		}

		_, err := ps.CreateProspect(input, createdBy)
		if err == nil {
			result.CreatedCount++
			continue
		}
		if skipDuplicates && isConstraintViolation(err) {
			result.SkippedCount++
			continue
		}
		result.FailedCount++
		result.Errors = append(result.Errors, fmt.Sprintf("row %d: %v", i+1, err))
	}

	return result, nil
}

func isConstraintViolation(err error) bool {
	return errors.Is(err, ErrConstraintViolation)
}

// ProspectStatistics summarizes prospects, optionally for one campaign
type ProspectStatistics struct {
	Total            int64   `json:"total"`
	New              int64   `json:"new"`
	Converted        int64   `json:"converted"`
	Rejected         int64   `json:"rejected"`
	AverageLeadScore float64 `json:"average_lead_score"`
}

// GetStatistics returns prospect counts grouped by status plus the average
// lead score
func (ps *ProspectService) GetStatistics(campaignID *uint) (*ProspectStatistics, error) {
	base := func() *gorm.DB {
		q := ps.DB.Model(&models.Prospect{})
		if campaignID != nil {
			q = q.Where("campaign_id = ?", *campaignID)
		}
		return q
	}

	var stats ProspectStatistics
	if err := base().Count(&stats.Total).Error; err != nil {
		return nil, err
	}
	if err := base().Where("status = ?", models.ProspectStatusNew).Count(&stats.New).Error; err != nil {
		return nil, err
	}
	if err := base().Where("status = ?", models.ProspectStatusConverted).Count(&stats.Converted).Error; err != nil {
		return nil, err
	}
	if err := base().Where("status = ?", models.ProspectStatusRejected).Count(&stats.Rejected).Error; err != nil {
		return nil, err
	}
	if stats.Total > 0 {
		if err := base().Select("COALESCE(AVG(lead_score), 0)").Scan(&stats.AverageLeadScore).Error; err != nil {
			return nil, err
		}
	}
	return &stats, nil
}
