package controller

import (
	"log"
	"strings"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"salescrm/models"
	"salescrm/service"
	"salescrm/utils"
)

type ProspectController struct {
	DB         *gorm.DB
	Logger     *log.Logger
	RBAC       *service.RBACService
	Prospects  *service.ProspectService
	Scoring    *service.ScoringService
	Conversion *service.ConversionService
}

func NewProspectController(db *gorm.DB, logger *log.Logger) *ProspectController {
	scoring := service.NewScoringService(db, logger)
	engagement := service.NewEngagementService(db, logger, scoring)
	return &ProspectController{
		DB:         db,
		Logger:     logger,
		RBAC:       service.NewRBACService(db, logger),
		Prospects:  service.NewProspectService(db, logger, scoring),
		Scoring:    scoring,
		Conversion: service.NewConversionService(db, logger, engagement),
	}
}

func prospectOwner(p *models.Prospect) uint {
	if p.AssignedTo != nil {
		return *p.AssignedTo
	}
	if p.CreatedBy != nil {
		return *p.CreatedBy
	}
	return 0
}

// loadAccessible fetches the prospect and enforces view access. A user with
// prospects.view_all sees everything; prospects.view_own covers only
// prospects assigned to them.
func (pc *ProspectController) loadAccessible(c *fiber.Ctx, viewAll, viewOwn string) (*models.Prospect, error) {
	user := c.Locals("user").(*models.User)

	prospect, err := pc.Prospects.Get(utils.ParseUint(c.Params("id")))
	if err != nil {
		return nil, utils.ErrorResponse(c, statusFromError(err), "Prospect not found", nil)
	}

	if !pc.RBAC.CheckResourceAccess(user, viewAll, viewOwn, prospectOwner(prospect)) {
		return nil, utils.ErrorResponse(c, fiber.StatusForbidden, "Insufficient permissions", nil)
	}
	return prospect, nil
}

// CreateProspect captures a new prospect
func (pc *ProspectController) CreateProspect(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	var input service.ProspectInput
	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", err)
	}

	prospect, err := pc.Prospects.CreateProspect(input, user.ID)
	if err != nil {
		return utils.ErrorResponse(c, statusFromError(err), "Failed to create prospect", err)
	}

	utils.LogEvent("prospect_created", map[string]interface{}{
		"prospect_id": prospect.ID,
		"created_by":  user.ID,
		"source":      prospect.Source,
	})
	return c.Status(fiber.StatusCreated).JSON(utils.SuccessResponse(prospect))
}

// GetProspect returns one prospect, subject to ownership rules
func (pc *ProspectController) GetProspect(c *fiber.Ctx) error {
	prospect, err := pc.loadAccessible(c, "prospects.view_all", "prospects.view_own")
	if err != nil {
		return err
	}
	return c.JSON(utils.SuccessResponse(prospect))
}

// ListProspects returns prospects the user can see, with status/campaign
// filters and pagination
func (pc *ProspectController) ListProspects(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	page := c.QueryInt("page", 1)
	limit := c.QueryInt("limit", 25)
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 25
	}

	query := pc.DB.Model(&models.Prospect{})

	switch {
	case pc.RBAC.HasPermission(user, "prospects.view_all"):
	case pc.RBAC.HasPermission(user, "prospects.view_own"):
		query = query.Where("assigned_to = ?", user.ID)
	default:
		return utils.ErrorResponse(c, fiber.StatusForbidden, "Insufficient permissions", nil)
	}

	if status := c.Query("status"); status != "" {
		query = query.Where("status IN ?", strings.Split(status, ","))
	}
	if campaignID := c.Query("campaign_id"); campaignID != "" {
		query = query.Where("campaign_id = ?", utils.ParseUint(campaignID))
	}
	if search := c.Query("search"); search != "" {
		like := "%" + strings.ToLower(search) + "%"
		query = query.Where(
			"LOWER(first_name) LIKE ? OR LOWER(last_name) LIKE ? OR LOWER(email) LIKE ? OR LOWER(company_name) LIKE ?",
			like, like, like, like)
	}
	if minScore := c.Query("min_score"); minScore != "" {
		query = query.Where("lead_score >= ?", utils.ParseUint(minScore))
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		pc.Logger.Printf("Failed to count prospects: %v", err)
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to list prospects", nil)
	}

	var prospects []models.Prospect
	if err := query.Order("lead_score DESC, created_at DESC").
		Offset((page - 1) * limit).Limit(limit).
		Find(&prospects).Error; err != nil {
		pc.Logger.Printf("Failed to list prospects: %v", err)
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to list prospects", nil)
	}

	return c.JSON(utils.SuccessResponse(utils.PaginatedResponse{
		Data:  prospects,
		Total: total,
		Page:  page,
		Limit: limit,
	}))
}

// UpdateProspect edits prospect fields, subject to ownership rules
func (pc *ProspectController) UpdateProspect(c *fiber.Ctx) error {
	prospect, err := pc.loadAccessible(c, "prospects.edit_all", "prospects.edit_own")
	if err != nil {
		return err
	}

	var input service.ProspectInput
	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}

	updated, err := pc.Prospects.UpdateProspect(prospect.ID, input)
	if err != nil {
		return utils.ErrorResponse(c, statusFromError(err), "Failed to update prospect", err)
	}
	return c.JSON(utils.SuccessResponse(updated))
}

// RejectProspect marks a prospect as rejected
func (pc *ProspectController) RejectProspect(c *fiber.Ctx) error {
	prospect, err := pc.loadAccessible(c, "prospects.edit_all", "prospects.edit_own")
	if err != nil {
		return err
	}

	rejected, err := pc.Prospects.RejectProspect(prospect.ID)
	if err != nil {
		return utils.ErrorResponse(c, statusFromError(err), "Failed to reject prospect", err)
	}
	return c.JSON(utils.SuccessResponse(rejected))
}

// DeleteProspect soft-deletes a prospect
func (pc *ProspectController) DeleteProspect(c *fiber.Ctx) error {
	prospect, err := pc.loadAccessible(c, "prospects.delete_all", "prospects.delete_own")
	if err != nil {
		return err
	}

	if err := pc.DB.Delete(prospect).Error; err != nil {
		pc.Logger.Printf("Failed to delete prospect %d: %v", prospect.ID, err)
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to delete prospect", nil)
	}
	return c.JSON(utils.SuccessResponse(fiber.Map{"message": "Prospect deleted"}))
}

type bulkImportInput struct {
	Prospects      []service.ProspectInput `json:"prospects" validate:"required,min=1,max=1000"`
	CampaignID     *uint                   `json:"campaign_id,omitempty"`
	SkipDuplicates bool                    `json:"skip_duplicates"`
}

// BulkImport creates many prospects in one request
func (pc *ProspectController) BulkImport(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	var input bulkImportInput
	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", err)
	}

	result, err := pc.Prospects.BulkCreateProspects(input.Prospects, input.CampaignID, user.ID, input.SkipDuplicates)
	if err != nil {
		pc.Logger.Printf("Bulk import failed: %v", err)
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Bulk import failed", nil)
	}

	utils.LogEvent("prospects_imported", map[string]interface{}{
		"user_id": user.ID,
		"created": result.CreatedCount,
		"skipped": result.SkippedCount,
		"failed":  result.FailedCount,
	})
	return c.JSON(utils.SuccessResponse(result))
}

// ConvertProspect promotes a prospect into a contact
func (pc *ProspectController) ConvertProspect(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	prospect, err := pc.loadAccessible(c, "prospects.view_all", "prospects.view_own")
	if err != nil {
		return err
	}

	var req service.ConversionRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}

	result, err := pc.Conversion.ConvertProspect(prospect.ID, req, user.ID)
	if err != nil {
		return utils.ErrorResponse(c, statusFromError(err), "Failed to convert prospect", err)
	}

	utils.LogEvent("prospect_converted", map[string]interface{}{
		"prospect_id":  result.ProspectID,
		"contact_id":   result.ContactID,
		"converted_by": user.ID,
	})
	return c.JSON(utils.SuccessResponse(result))
}

type adjustScoreInput struct {
	Delta  int    `json:"delta" validate:"required,gte=-100,lte=100"`
	Reason string `json:"reason" validate:"required,max=255"`
}

// AdjustScore applies a manual lead score change with an audit trail entry
func (pc *ProspectController) AdjustScore(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	prospect, err := pc.loadAccessible(c, "prospects.edit_all", "prospects.edit_own")
	if err != nil {
		return err
	}

	var input adjustScoreInput
	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", err)
	}

	updated, err := pc.Scoring.ApplyScoreChange(prospect.ID, input.Delta, input.Reason, service.ScoreContext{
		ActivityType: service.ActivityManualAdjustment,
		ChangedBy:    &user.ID,
	})
	if err != nil {
		return utils.ErrorResponse(c, statusFromError(err), "Failed to adjust score", err)
	}
	return c.JSON(utils.SuccessResponse(updated))
}

// GetScoreHistory returns the prospect's score audit trail, newest first
func (pc *ProspectController) GetScoreHistory(c *fiber.Ctx) error {
	prospect, err := pc.loadAccessible(c, "prospects.view_all", "prospects.view_own")
	if err != nil {
		return err
	}

	history, err := pc.Scoring.ScoreHistory(prospect.ID)
	if err != nil {
		pc.Logger.Printf("Failed to load score history for prospect %d: %v", prospect.ID, err)
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to load score history", nil)
	}
	return c.JSON(utils.SuccessResponse(history))
}

// GetStatistics summarizes prospects, optionally scoped to one campaign
func (pc *ProspectController) GetStatistics(c *fiber.Ctx) error {
	var campaignID *uint
	if raw := c.Query("campaign_id"); raw != "" {
		campaignID = utils.Pointer(utils.ParseUint(raw))
	}

	stats, err := pc.Prospects.GetStatistics(campaignID)
	if err != nil {
		pc.Logger.Printf("Failed to compute prospect statistics: %v", err)
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to compute statistics", nil)
	}
	return c.JSON(utils.SuccessResponse(stats))
}
