package controller

import (
	"github.com/gofiber/fiber/v2"

	"salescrm/models"
	"salescrm/utils"
)

// recipientDetails resolves the destination address and merge fields for an
// engagement record
func (cc *CampaignController) recipientDetails(record *models.CampaignContact) (email, firstName, lastName, company string) {
	if record.EmailSentTo != "" {
		email = record.EmailSentTo
	}

	switch {
	case record.ContactID != nil:
		var contact models.Contact
		if err := cc.DB.First(&contact, *record.ContactID).Error; err == nil {
			if email == "" && contact.Email != nil {
				email = *contact.Email
			}
			firstName, lastName = contact.FirstName, contact.LastName
			if contact.CompanyID != nil {
				var comp models.Company
				if err := cc.DB.First(&comp, *contact.CompanyID).Error; err == nil {
					company = comp.Name
				}
			}
		}
	case record.ProspectID != nil:
		var prospect models.Prospect
		if err := cc.DB.First(&prospect, *record.ProspectID).Error; err == nil {
			if email == "" && prospect.Email != nil {
				email = *prospect.Email
			}
			firstName, lastName = prospect.FirstName, prospect.LastName
			company = prospect.CompanyName
		}
	}
	return
}

// ExecuteCampaign sends the campaign email to every pending recipient.
// Each send is recorded on the engagement record individually, so a partial
// failure leaves accurate per-recipient state.
func (cc *CampaignController) ExecuteCampaign(c *fiber.Ctx) error {
	campaign, err := cc.loadAccessible(c, "campaigns.view_all", "campaigns.view_own")
	if err != nil {
		return err
	}

	if campaign.Type != models.CampaignTypeEmail {
		return utils.ErrorResponse(c, fiber.StatusUnprocessableEntity, "Only email campaigns can be executed", nil)
	}
	if campaign.Status != models.CampaignStatusActive {
		return utils.ErrorResponse(c, fiber.StatusConflict, "Campaign must be active to execute", nil)
	}
	if campaign.EmailSubject == "" || campaign.EmailBody == "" {
		return utils.ErrorResponse(c, fiber.StatusUnprocessableEntity, "Campaign email content is incomplete", nil)
	}

	pending, err := cc.Engagement.GetCampaignAudience(campaign.ID,
		[]string{models.EngagementPending}, 0, 10000)
	if err != nil {
		cc.Logger.Printf("Failed to load pending audience for campaign %d: %v", campaign.ID, err)
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to load audience", nil)
	}

	mailer := utils.NewCampaignMailer()
	fromName := campaign.EmailFromName
	fromEmail := campaign.EmailFromEmail

	sent, failed, skipped := 0, 0, 0
	for i := range pending {
		record := &pending[i]

		email, firstName, lastName, company := cc.recipientDetails(record)
		if email == "" {
			skipped++
			continue
		}

		messageID := utils.GenerateMessageID()
		subject := utils.PersonalizeTemplate(campaign.EmailSubject, firstName, lastName, company)
		body := utils.PersonalizeTemplate(campaign.EmailBody, firstName, lastName, company)

		sendErr := mailer.Send(utils.CampaignMessage{
			To:        email,
			FromName:  fromName,
			FromEmail: fromEmail,
			Subject:   subject,
			HTMLBody:  body,
			MessageID: messageID,
		})
		if sendErr != nil {
			cc.Logger.Printf("Send failed for engagement %d: %v", record.ID, sendErr)
			if _, err := cc.Engagement.RecordFailed(record.ID, sendErr.Error()); err != nil {
				cc.Logger.Printf("Failed to record failure for engagement %d: %v", record.ID, err)
			}
			failed++
			continue
		}

		if record.EmailSentTo == "" {
			if err := cc.DB.Model(record).Update("email_sent_to", email).Error; err != nil {
				cc.Logger.Printf("Failed to record recipient address for engagement %d: %v", record.ID, err)
			}
		}
		if _, err := cc.Engagement.RecordSent(record.ID, messageID, subject); err != nil {
			cc.Logger.Printf("Failed to record send for engagement %d: %v", record.ID, err)
		}
		sent++
	}

	if err := cc.Campaigns.MarkExecuted(campaign.ID); err != nil {
		cc.Logger.Printf("Failed to stamp execution time for campaign %d: %v", campaign.ID, err)
	}
	if _, err := cc.Engagement.RecalculateMetrics(campaign.ID); err != nil {
		cc.Logger.Printf("Failed to recompute metrics for campaign %d: %v", campaign.ID, err)
	}

	utils.LogEvent("campaign_executed", map[string]interface{}{
		"campaign_id": campaign.ID,
		"sent":        sent,
		"failed":      failed,
		"skipped":     skipped,
	})
	return c.JSON(utils.SuccessResponse(fiber.Map{
		"sent":    sent,
		"failed":  failed,
		"skipped": skipped,
		"pending": len(pending) - sent - failed - skipped,
	}))
}

// ResendFailed resets bounced and failed engagements to pending so the next
// execution retries them
func (cc *CampaignController) ResendFailed(c *fiber.Ctx) error {
	campaign, err := cc.loadAccessible(c, "campaigns.edit_all", "campaigns.edit_own")
	if err != nil {
		return err
	}

	records, err := cc.Engagement.GetCampaignAudience(campaign.ID,
		[]string{models.EngagementBounced, models.EngagementFailed}, 0, 10000)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to load audience", nil)
	}

	reset := 0
	for i := range records {
		if _, err := cc.Engagement.Resend(records[i].ID); err != nil {
			cc.Logger.Printf("Failed to reset engagement %d: %v", records[i].ID, err)
			continue
		}
		reset++
	}

	return c.JSON(utils.SuccessResponse(fiber.Map{"reset": reset}))
}
