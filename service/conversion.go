package service

import (
	"fmt"
	"log"
	"time"

	"salescrm/models"

	"gorm.io/gorm"
)

// ConversionRequest carries the options for converting a prospect
type ConversionRequest struct {
	Notes          string `json:"notes"`
	CreateActivity bool   `json:"create_activity"`
	AssignTo       *uint  `json:"assign_to,omitempty"`
}

// ConversionResult identifies the records produced by a conversion
type ConversionResult struct {
	ProspectID uint  `json:"prospect_id"`
	ContactID  uint  `json:"contact_id"`
	ActivityID *uint `json:"activity_id,omitempty"`
}

// ConversionService turns qualified prospects into contacts and links
// resulting deals back into the originating campaign engagement.
type ConversionService struct {
	DB         *gorm.DB
	Logger     *log.Logger
	Engagement *EngagementService
}

func NewConversionService(db *gorm.DB, logger *log.Logger, engagement *EngagementService) *ConversionService {
	return &ConversionService{DB: db, Logger: logger, Engagement: engagement}
}

// ConvertProspect converts a prospect into a contact. Conversion is
// one-shot: a second call on the same prospect fails with ErrInvalidState.
// The new contact is populated from the prospect's fields; company linkage is
// matched by name when present. Deal creation is a separate, later caller
// action (see LinkDealToCampaign).
func (cs *ConversionService) ConvertProspect(prospectID uint, req ConversionRequest, convertedBy uint) (*ConversionResult, error) {
	var prospect models.Prospect
	if err := cs.DB.First(&prospect, prospectID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("prospect %d: %w", prospectID, ErrNotFound)
		}
		return nil, err
	}

	if prospect.IsConverted() || prospect.Status == models.ProspectStatusConverted {
		return nil, fmt.Errorf("prospect %d already converted: %w", prospectID, ErrInvalidState)
	}

	if prospect.Email != nil {
		var count int64
		if err := cs.DB.Model(&models.Contact{}).Where("email = ?", *prospect.Email).Count(&count).Error; err != nil {
			return nil, err
		}
		if count > 0 {
			return nil, fmt.Errorf("contact with email %q already exists: %w", *prospect.Email, ErrConstraintViolation)
		}
	}

	ownerID := convertedBy
	if req.AssignTo != nil {
		ownerID = *req.AssignTo
	} else if prospect.AssignedTo != nil {
		ownerID = *prospect.AssignedTo
	}

	result := &ConversionResult{ProspectID: prospectID}

	err := cs.DB.Transaction(func(tx *gorm.DB) error {
		contact := models.Contact{
			FirstName: prospect.FirstName,
			LastName:  prospect.LastName,
			Email:     prospect.Email,
			Position:  prospect.JobTitle,
			Status:    "lead",
			OwnerID:   &ownerID,
			Notes:     conversionNotes(&prospect),
		}
		if prospect.Phone != nil {
			contact.Phone = *prospect.Phone
			contact.Mobile = *prospect.Phone
		}

		if prospect.CompanyName != "" {
			var company models.Company
			err := tx.Where("LOWER(name) = LOWER(?)", prospect.CompanyName).First(&company).Error
			if err == nil {
				contact.CompanyID = &company.ID
			} else if err != gorm.ErrRecordNotFound {
				return err
			}
		}

		if err := tx.Create(&contact).Error; err != nil {
			if isDuplicateKey(err) {
				return fmt.Errorf("contact with email already exists: %w", ErrConstraintViolation)
			}
			return err
		}
		result.ContactID = contact.ID

		now := time.Now()
		updates := map[string]interface{}{
			"status":                  models.ProspectStatusConverted,
			"converted_to_contact_id": contact.ID,
			"converted_at":            now,
		}
		if err := tx.Model(&models.Prospect{}).Where("id = ?", prospectID).Updates(updates).Error; err != nil {
			return err
		}

		if req.CreateActivity {
			activity := models.Activity{
				Type:        "note",
				Subject:     "Prospect converted to contact",
				Description: activityDescription(&prospect, req.Notes),
				ContactID:   &contact.ID,
				UserID:      &convertedBy,
			}
			if err := tx.Create(&activity).Error; err != nil {
				return err
			}
			result.ActivityID = &activity.ID
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

// LinkDealToCampaign connects a deal created after conversion back to the
// prospect's engagement record in the originating campaign, which marks the
// engagement converted and refreshes the campaign rollups.
func (cs *ConversionService) LinkDealToCampaign(campaignID, prospectID, dealID uint, conversionValue float64) (*models.CampaignContact, error) {
	cc, err := cs.Engagement.FindByCampaignAndProspect(campaignID, prospectID)
	if err != nil {
		return nil, err
	}
	return cs.Engagement.RecordConversion(cc.ID, dealID, conversionValue)
}

func conversionNotes(p *models.Prospect) string {
	if p.Notes == "" {
		return "Converted from prospect."
	}
	return "Converted from prospect. Original notes: " + p.Notes
}

func activityDescription(p *models.Prospect, extra string) string {
	desc := "Prospect " + p.FullName() + " was converted to a contact."
	if extra != "" {
		desc += " " + extra
	}
	return desc
}
