package controller

import (
	"log"
	"time"

	"github.com/gofiber/websocket/v2"

	"salescrm/config"
	"salescrm/models"
)

// HandleCampaignProgressWS streams live campaign rollups to the client.
// The client sends {"campaign_id": N, "action": "watch"}; the server pushes
// a stats frame every few seconds until the connection closes or the
// campaign leaves the ACTIVE state.
func HandleCampaignProgressWS(c *websocket.Conn) {
	defer c.Close()

	var input struct {
		CampaignID uint   `json:"campaign_id"`
		Action     string `json:"action"`
	}

	if err := c.ReadJSON(&input); err != nil {
		log.Printf("Error reading JSON: %v", err)
		return
	}
	if input.Action != "watch" || input.CampaignID == 0 {
		return
	}

	for {
		var campaign models.Campaign
		if err := config.DB.First(&campaign, input.CampaignID).Error; err != nil {
			log.Printf("Campaign %d not found: %v", input.CampaignID, err)
			return
		}

		frame := struct {
			Status         string  `json:"status"`
			SentCount      int     `json:"sent_count"`
			DeliveredCount int     `json:"delivered_count"`
			OpenedCount    int     `json:"opened_count"`
			ClickedCount   int     `json:"clicked_count"`
			ConvertedCount int     `json:"converted_count"`
			OpenRate       float64 `json:"open_rate"`
			ConversionRate float64 `json:"conversion_rate"`
		}{
			Status:         campaign.Status,
			SentCount:      campaign.SentCount,
			DeliveredCount: campaign.DeliveredCount,
			OpenedCount:    campaign.OpenedCount,
			ClickedCount:   campaign.ClickedCount,
			ConvertedCount: campaign.ConvertedCount,
			OpenRate:       campaign.OpenRate(),
			ConversionRate: campaign.ConversionRate(),
		}

		if err := c.WriteJSON(frame); err != nil {
			log.Printf("Error writing JSON: %v", err)
			return
		}

		if campaign.Status != models.CampaignStatusActive {
			return
		}
		time.Sleep(3 * time.Second)
	}
}
