package controller

import (
	"github.com/gofiber/fiber/v2"

	"salescrm/models"
	"salescrm/utils"
)

// GetCampaignStats returns current rollups and derived rates for a campaign
func (cc *CampaignController) GetCampaignStats(c *fiber.Ctx) error {
	campaign, err := cc.loadAccessible(c, "campaigns.view_all", "campaigns.view_own")
	if err != nil {
		return err
	}

	// Refresh rollups so the response reflects the engagement records
	refreshed, err := cc.Engagement.RecalculateMetrics(campaign.ID)
	if err != nil {
		cc.Logger.Printf("Failed to recompute metrics for campaign %d: %v", campaign.ID, err)
		refreshed = campaign
	}

	return c.JSON(utils.SuccessResponse(fiber.Map{
		"sent_count":          refreshed.SentCount,
		"delivered_count":     refreshed.DeliveredCount,
		"opened_count":        refreshed.OpenedCount,
		"clicked_count":       refreshed.ClickedCount,
		"responded_count":     refreshed.RespondedCount,
		"bounced_count":       refreshed.BouncedCount,
		"unsubscribed_count":  refreshed.UnsubscribedCount,
		"converted_count":     refreshed.ConvertedCount,
		"prospects_generated": refreshed.ProspectsGenerated,
		"actual_revenue":      refreshed.ActualRevenue,
		"delivery_rate":       refreshed.DeliveryRate(),
		"open_rate":           refreshed.OpenRate(),
		"click_rate":          refreshed.ClickRate(),
		"response_rate":       refreshed.ResponseRate(),
		"conversion_rate":     refreshed.ConversionRate(),
		"bounce_rate":         refreshed.BounceRate(),
	}))
}

// GetCampaignMetricHistory returns the recorded metric snapshots for
// trend charts, oldest first
func (cc *CampaignController) GetCampaignMetricHistory(c *fiber.Ctx) error {
	campaign, err := cc.loadAccessible(c, "campaigns.view_all", "campaigns.view_own")
	if err != nil {
		return err
	}

	limit := c.QueryInt("limit", 100)
	if limit < 1 || limit > 500 {
		limit = 100
	}

	var snapshots []models.CampaignMetric
	if err := cc.DB.Where("campaign_id = ?", campaign.ID).
		Order("recorded_at ASC").Limit(limit).
		Find(&snapshots).Error; err != nil {
		cc.Logger.Printf("Failed to load metric history for campaign %d: %v", campaign.ID, err)
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to load metric history", nil)
	}

	return c.JSON(utils.SuccessResponse(snapshots))
}

// GetEngagementBreakdown returns audience counts per engagement status
func (cc *CampaignController) GetEngagementBreakdown(c *fiber.Ctx) error {
	campaign, err := cc.loadAccessible(c, "campaigns.view_all", "campaigns.view_own")
	if err != nil {
		return err
	}

	type row struct {
		Status string `json:"status"`
		Count  int64  `json:"count"`
	}
	var rows []row
	if err := cc.DB.Model(&models.CampaignContact{}).
		Select("status, COUNT(*) as count").
		Where("campaign_id = ?", campaign.ID).
		Group("status").
		Scan(&rows).Error; err != nil {
		cc.Logger.Printf("Failed to compute engagement breakdown for campaign %d: %v", campaign.ID, err)
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to compute breakdown", nil)
	}

	return c.JSON(utils.SuccessResponse(rows))
}
