package controller

import (
	"log"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"salescrm/models"
	"salescrm/service"
	"salescrm/utils"
)

type CampaignController struct {
	DB         *gorm.DB
	Logger     *log.Logger
	RBAC       *service.RBACService
	Campaigns  *service.CampaignService
	Engagement *service.EngagementService
	Conversion *service.ConversionService
}

func NewCampaignController(db *gorm.DB, logger *log.Logger) *CampaignController {
	scoring := service.NewScoringService(db, logger)
	engagement := service.NewEngagementService(db, logger, scoring)
	return &CampaignController{
		DB:         db,
		Logger:     logger,
		RBAC:       service.NewRBACService(db, logger),
		Campaigns:  service.NewCampaignService(db, logger, engagement),
		Engagement: engagement,
		Conversion: service.NewConversionService(db, logger, engagement),
	}
}

// loadAccessible fetches the campaign and enforces view access against the
// campaign owner
func (cc *CampaignController) loadAccessible(c *fiber.Ctx, viewAll, viewOwn string) (*models.Campaign, error) {
	user := c.Locals("user").(*models.User)

	campaign, err := cc.Campaigns.Get(utils.ParseUint(c.Params("id")))
	if err != nil {
		return nil, utils.ErrorResponse(c, statusFromError(err), "Campaign not found", nil)
	}

	if !cc.RBAC.CheckResourceAccess(user, viewAll, viewOwn, campaign.OwnerID) {
		return nil, utils.ErrorResponse(c, fiber.StatusForbidden, "Insufficient permissions", nil)
	}
	return campaign, nil
}

// CreateCampaign creates a draft campaign owned by the caller
func (cc *CampaignController) CreateCampaign(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	var input service.CampaignInput
	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", err)
	}

	campaign, err := cc.Campaigns.CreateCampaign(input, user.ID)
	if err != nil {
		return utils.ErrorResponse(c, statusFromError(err), "Failed to create campaign", err)
	}

	utils.LogEvent("campaign_created", map[string]interface{}{
		"campaign_id": campaign.ID,
		"owner_id":    user.ID,
		"type":        campaign.Type,
	})
	return c.Status(fiber.StatusCreated).JSON(utils.SuccessResponse(campaign))
}

// GetCampaign returns one campaign
func (cc *CampaignController) GetCampaign(c *fiber.Ctx) error {
	campaign, err := cc.loadAccessible(c, "campaigns.view_all", "campaigns.view_own")
	if err != nil {
		return err
	}
	return c.JSON(utils.SuccessResponse(campaign))
}

// ListCampaigns returns campaigns visible to the caller
func (cc *CampaignController) ListCampaigns(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	page := c.QueryInt("page", 1)
	limit := c.QueryInt("limit", 25)
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 25
	}

	var ownerID *uint
	switch {
	case cc.RBAC.HasPermission(user, "campaigns.view_all"):
	case cc.RBAC.HasPermission(user, "campaigns.view_own"):
		ownerID = &user.ID
	default:
		return utils.ErrorResponse(c, fiber.StatusForbidden, "Insufficient permissions", nil)
	}

	var statuses []string
	if status := c.Query("status"); status != "" {
		statuses = strings.Split(status, ",")
	}

	campaigns, total, err := cc.Campaigns.List(ownerID, statuses, (page-1)*limit, limit)
	if err != nil {
		cc.Logger.Printf("Failed to list campaigns: %v", err)
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to list campaigns", nil)
	}

	return c.JSON(utils.SuccessResponse(utils.PaginatedResponse{
		Data:  campaigns,
		Total: total,
		Page:  page,
		Limit: limit,
	}))
}

// UpdateCampaign edits campaign content
func (cc *CampaignController) UpdateCampaign(c *fiber.Ctx) error {
	campaign, err := cc.loadAccessible(c, "campaigns.edit_all", "campaigns.edit_own")
	if err != nil {
		return err
	}

	var input service.CampaignInput
	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}

	updated, err := cc.Campaigns.UpdateCampaign(campaign.ID, input)
	if err != nil {
		return utils.ErrorResponse(c, statusFromError(err), "Failed to update campaign", err)
	}
	return c.JSON(utils.SuccessResponse(updated))
}

// DeleteCampaign removes a draft or cancelled campaign
func (cc *CampaignController) DeleteCampaign(c *fiber.Ctx) error {
	campaign, err := cc.loadAccessible(c, "campaigns.delete_all", "campaigns.delete_own")
	if err != nil {
		return err
	}

	if err := cc.Campaigns.DeleteCampaign(campaign.ID); err != nil {
		return utils.ErrorResponse(c, statusFromError(err), "Failed to delete campaign", err)
	}
	return c.JSON(utils.SuccessResponse(fiber.Map{"message": "Campaign deleted"}))
}

// ChangeStatus applies a campaign lifecycle transition
func (cc *CampaignController) ChangeStatus(c *fiber.Ctx) error {
	campaign, err := cc.loadAccessible(c, "campaigns.edit_all", "campaigns.edit_own")
	if err != nil {
		return err
	}

	var input struct {
		Action    string     `json:"action" validate:"required,oneof=schedule activate pause complete cancel"`
		StartDate *time.Time `json:"start_date,omitempty"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", err)
	}

	var updated *models.Campaign
	switch input.Action {
	case "schedule":
		if input.StartDate == nil {
			return utils.ErrorResponse(c, fiber.StatusBadRequest, "start_date is required to schedule", nil)
		}
		updated, err = cc.Campaigns.Schedule(campaign.ID, *input.StartDate)
	case "activate":
		updated, err = cc.Campaigns.Activate(campaign.ID)
	case "pause":
		updated, err = cc.Campaigns.Pause(campaign.ID)
	case "complete":
		updated, err = cc.Campaigns.Complete(campaign.ID)
	case "cancel":
		updated, err = cc.Campaigns.Cancel(campaign.ID)
	}
	if err != nil {
		return utils.ErrorResponse(c, statusFromError(err), "Status change rejected", err)
	}

	utils.LogEvent("campaign_status_changed", map[string]interface{}{
		"campaign_id": campaign.ID,
		"from":        campaign.Status,
		"to":          updated.Status,
	})
	return c.JSON(utils.SuccessResponse(updated))
}

type addAudienceInput struct {
	ContactIDs  []uint `json:"contact_ids"`
	ProspectIDs []uint `json:"prospect_ids"`
}

// AddAudience adds contacts and prospects to the campaign audience,
// skipping recipients already present
func (cc *CampaignController) AddAudience(c *fiber.Ctx) error {
	campaign, err := cc.loadAccessible(c, "campaigns.edit_all", "campaigns.edit_own")
	if err != nil {
		return err
	}

	var input addAudienceInput
	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if len(input.ContactIDs) == 0 && len(input.ProspectIDs) == 0 {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "No recipients specified", nil)
	}

	response := fiber.Map{}
	if len(input.ContactIDs) > 0 {
		result, err := cc.Engagement.BulkAddContacts(campaign.ID, input.ContactIDs)
		if err != nil {
			return utils.ErrorResponse(c, statusFromError(err), "Failed to add contacts", err)
		}
		response["contacts"] = result
	}
	if len(input.ProspectIDs) > 0 {
		result, err := cc.Engagement.BulkAddProspects(campaign.ID, input.ProspectIDs)
		if err != nil {
			return utils.ErrorResponse(c, statusFromError(err), "Failed to add prospects", err)
		}
		response["prospects"] = result
	}

	return c.JSON(utils.SuccessResponse(response))
}

// GetAudience lists the campaign's engagement records
func (cc *CampaignController) GetAudience(c *fiber.Ctx) error {
	campaign, err := cc.loadAccessible(c, "campaigns.view_all", "campaigns.view_own")
	if err != nil {
		return err
	}

	page := c.QueryInt("page", 1)
	limit := c.QueryInt("limit", 50)
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 200 {
		limit = 50
	}

	var statuses []string
	if status := c.Query("status"); status != "" {
		statuses = strings.Split(status, ",")
	}

	audience, err := cc.Engagement.GetCampaignAudience(campaign.ID, statuses, (page-1)*limit, limit)
	if err != nil {
		cc.Logger.Printf("Failed to list audience for campaign %d: %v", campaign.ID, err)
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to list audience", nil)
	}
	return c.JSON(utils.SuccessResponse(audience))
}

// RemoveAudienceMember removes one recipient from the campaign audience
func (cc *CampaignController) RemoveAudienceMember(c *fiber.Ctx) error {
	campaign, err := cc.loadAccessible(c, "campaigns.edit_all", "campaigns.edit_own")
	if err != nil {
		return err
	}

	var contactID, prospectID *uint
	if raw := c.Query("contact_id"); raw != "" {
		contactID = utils.Pointer(utils.ParseUint(raw))
	}
	if raw := c.Query("prospect_id"); raw != "" {
		prospectID = utils.Pointer(utils.ParseUint(raw))
	}

	if err := cc.Engagement.RemoveFromCampaign(campaign.ID, contactID, prospectID); err != nil {
		return utils.ErrorResponse(c, statusFromError(err), "Failed to remove recipient", err)
	}
	return c.JSON(utils.SuccessResponse(fiber.Map{"message": "Recipient removed"}))
}

// LinkDeal ties a post-conversion deal back to the prospect's engagement in
// this campaign, marking the engagement converted
func (cc *CampaignController) LinkDeal(c *fiber.Ctx) error {
	campaign, err := cc.loadAccessible(c, "campaigns.edit_all", "campaigns.edit_own")
	if err != nil {
		return err
	}

	var input struct {
		ProspectID      uint    `json:"prospect_id" validate:"required"`
		DealID          uint    `json:"deal_id" validate:"required"`
		ConversionValue float64 `json:"conversion_value" validate:"gte=0"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", err)
	}

	engagement, err := cc.Conversion.LinkDealToCampaign(campaign.ID, input.ProspectID, input.DealID, input.ConversionValue)
	if err != nil {
		return utils.ErrorResponse(c, statusFromError(err), "Failed to link deal", err)
	}

	utils.LogEvent("deal_linked", map[string]interface{}{
		"campaign_id": campaign.ID,
		"prospect_id": input.ProspectID,
		"deal_id":     input.DealID,
		"value":       input.ConversionValue,
	})
	return c.JSON(utils.SuccessResponse(engagement))
}
