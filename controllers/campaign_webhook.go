package controller

import (
	"github.com/gofiber/fiber/v2"

	"salescrm/utils"
)

// HandleCampaignWebhook processes provider events (delivery, opens, clicks,
// replies, bounces, unsubscribes) for campaign emails
func (cc *CampaignController) HandleCampaignWebhook(c *fiber.Ctx) error {
	var input struct {
		EventType    string `json:"event_type"` // delivered, open, click, reply, bounce, unsubscribe, failed
		MessageID    string `json:"message_id"`
		BounceType   string `json:"bounce_type,omitempty"`
		ErrorMessage string `json:"error_message,omitempty"`
	}

	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	record, err := cc.Engagement.GetByMessageID(input.MessageID)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Message not found",
		})
	}

	switch input.EventType {
	case "delivered":
		_, err = cc.Engagement.RecordDelivered(record.ID)
	case "open":
		_, err = cc.Engagement.RecordOpen(record.ID)
	case "click":
		_, err = cc.Engagement.RecordClick(record.ID)
	case "reply":
		_, err = cc.Engagement.RecordResponse(record.ID)
	case "bounce":
		_, err = cc.Engagement.RecordBounce(record.ID, input.BounceType, input.ErrorMessage)
	case "unsubscribe":
		_, err = cc.Engagement.RecordUnsubscribe(record.ID)
	case "failed":
		_, err = cc.Engagement.RecordFailed(record.ID, input.ErrorMessage)
	default:
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unknown event type",
		})
	}
	if err != nil {
		cc.Logger.Printf("Webhook %s failed for message %s: %v", input.EventType, input.MessageID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to process event",
		})
	}

	return c.JSON(fiber.Map{
		"message": "Webhook processed successfully",
	})
}

// HandleOpenTracking serves the tracking pixel and records the open
func (cc *CampaignController) HandleOpenTracking(c *fiber.Ctx) error {
	messageID := c.Params("messageID")
	token := c.Params("token")

	if !utils.ValidateTrackingToken(messageID, token) {
		return c.Status(fiber.StatusBadRequest).SendString("Invalid token")
	}

	if record, err := cc.Engagement.GetByMessageID(messageID); err == nil {
		if _, err := cc.Engagement.RecordOpen(record.ID); err != nil {
			cc.Logger.Printf("Failed to record open for message %s: %v", messageID, err)
		}
	}

	// Always return the pixel, even for unknown messages
	return c.Type("gif").Send(transparentPixel())
}

// HandleClickTracking records the click and redirects to the original URL
func (cc *CampaignController) HandleClickTracking(c *fiber.Ctx) error {
	messageID := c.Params("messageID")
	token := c.Params("token")
	originalURL := c.Query("url")

	if !utils.ValidateTrackingToken(messageID, token) {
		return c.Status(fiber.StatusBadRequest).SendString("Invalid token")
	}
	if originalURL == "" {
		return c.Status(fiber.StatusBadRequest).SendString("Missing url")
	}

	if record, err := cc.Engagement.GetByMessageID(messageID); err == nil {
		if _, err := cc.Engagement.RecordClick(record.ID); err != nil {
			cc.Logger.Printf("Failed to record click for message %s: %v", messageID, err)
		}
	}

	return c.Redirect(originalURL, fiber.StatusFound)
}

// HandleUnsubscribe processes a one-click unsubscribe link
func (cc *CampaignController) HandleUnsubscribe(c *fiber.Ctx) error {
	messageID := c.Params("messageID")
	token := c.Params("token")

	if !utils.ValidateTrackingToken(messageID, token) {
		return c.Status(fiber.StatusBadRequest).SendString("Invalid token")
	}

	record, err := cc.Engagement.GetByMessageID(messageID)
	if err != nil {
		return c.Status(fiber.StatusNotFound).SendString("Unknown message")
	}
	if _, err := cc.Engagement.RecordUnsubscribe(record.ID); err != nil {
		cc.Logger.Printf("Failed to record unsubscribe for message %s: %v", messageID, err)
		return c.Status(fiber.StatusInternalServerError).SendString("Failed to unsubscribe")
	}

	if _, err := cc.Engagement.RecalculateMetrics(record.CampaignID); err != nil {
		cc.Logger.Printf("Failed to recompute metrics for campaign %d: %v", record.CampaignID, err)
	}

	return c.SendString("You have been unsubscribed.")
}

func transparentPixel() []byte {
	// 1x1 transparent GIF
	return []byte{
		0x47, 0x49, 0x46, 0x38, 0x39, 0x61, 0x01, 0x00, 0x01, 0x00,
		0x80, 0x00, 0x00, 0xff, 0xff, 0xff, 0x00, 0x00, 0x00, 0x21,
		0xf9, 0x04, 0x01, 0x00, 0x00, 0x00, 0x00, 0x2c, 0x00, 0x00,
		0x00, 0x00, 0x01, 0x00, 0x01, 0x00, 0x00, 0x02, 0x02, 0x44,
		0x01, 0x00, 0x3b,
	}
}
