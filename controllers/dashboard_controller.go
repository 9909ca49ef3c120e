package controller

import (
	"log"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"salescrm/models"
	"salescrm/service"
	"salescrm/utils"
)

type DashboardController struct {
	DB     *gorm.DB
	Logger *log.Logger
	RBAC   *service.RBACService
}

func NewDashboardController(db *gorm.DB, logger *log.Logger) *DashboardController {
	return &DashboardController{
		DB:     db,
		Logger: logger,
		RBAC:   service.NewRBACService(db, logger),
	}
}

type statusCount struct {
	Status string `json:"status"`
	Count  int64  `json:"count"`
}

// GetOverview returns the CRM home screen numbers: prospect pipeline,
// campaign states and conversion outcomes. Users without view_all scope see
// only their own slice.
func (dc *DashboardController) GetOverview(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	prospectQuery := dc.DB.Model(&models.Prospect{})
	campaignQuery := dc.DB.Model(&models.Campaign{})
	if !dc.RBAC.HasPermission(user, "prospects.view_all") {
		prospectQuery = prospectQuery.Where("assigned_to = ?", user.ID)
	}
	if !dc.RBAC.HasPermission(user, "campaigns.view_all") {
		campaignQuery = campaignQuery.Where("owner_id = ?", user.ID)
	}

	var prospectsByStatus []statusCount
	if err := prospectQuery.Select("status, COUNT(*) as count").
		Group("status").Scan(&prospectsByStatus).Error; err != nil {
		dc.Logger.Printf("Failed to count prospects: %v", err)
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to load overview", nil)
	}

	var campaignsByStatus []statusCount
	if err := campaignQuery.Select("status, COUNT(*) as count").
		Group("status").Scan(&campaignsByStatus).Error; err != nil {
		dc.Logger.Printf("Failed to count campaigns: %v", err)
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to load overview", nil)
	}

	var totalRevenue float64
	if err := dc.DB.Model(&models.CampaignContact{}).
		Where("converted_at IS NOT NULL").
		Select("COALESCE(SUM(conversion_value), 0)").
		Scan(&totalRevenue).Error; err != nil {
		dc.Logger.Printf("Failed to sum conversion revenue: %v", err)
	}

	return c.JSON(utils.SuccessResponse(fiber.Map{
		"prospects_by_status": prospectsByStatus,
		"campaigns_by_status": campaignsByStatus,
		"conversion_revenue":  totalRevenue,
	}))
}

// GetTopProspects returns the highest-scoring open prospects
func (dc *DashboardController) GetTopProspects(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	limit := c.QueryInt("limit", 10)
	if limit < 1 || limit > 50 {
		limit = 10
	}

	query := dc.DB.Where("status = ?", models.ProspectStatusNew)
	if !dc.RBAC.HasPermission(user, "prospects.view_all") {
		if !dc.RBAC.HasPermission(user, "prospects.view_own") {
			return utils.ErrorResponse(c, fiber.StatusForbidden, "Insufficient permissions", nil)
		}
		query = query.Where("assigned_to = ?", user.ID)
	}

	var prospects []models.Prospect
	if err := query.Order("lead_score DESC, created_at ASC").
		Limit(limit).Find(&prospects).Error; err != nil {
		dc.Logger.Printf("Failed to load top prospects: %v", err)
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to load prospects", nil)
	}

	return c.JSON(utils.SuccessResponse(prospects))
}

// GetRecentConversions lists the latest prospect conversions
func (dc *DashboardController) GetRecentConversions(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	limit := c.QueryInt("limit", 10)
	if limit < 1 || limit > 50 {
		limit = 10
	}

	query := dc.DB.Where("status = ? AND converted_at IS NOT NULL", models.ProspectStatusConverted)
	if !dc.RBAC.HasPermission(user, "prospects.view_all") {
		if !dc.RBAC.HasPermission(user, "prospects.view_own") {
			return utils.ErrorResponse(c, fiber.StatusForbidden, "Insufficient permissions", nil)
		}
		query = query.Where("assigned_to = ?", user.ID)
	}

	var conversions []models.Prospect
	if err := query.Order("converted_at DESC").
		Limit(limit).Find(&conversions).Error; err != nil {
		dc.Logger.Printf("Failed to load recent conversions: %v", err)
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to load conversions", nil)
	}

	return c.JSON(utils.SuccessResponse(conversions))
}
