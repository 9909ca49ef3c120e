package worker

import (
	"context"
	"log"
	"time"

	"gorm.io/gorm"

	"salescrm/models"
	"salescrm/service"
)

// CampaignWorker advances campaign schedules in the background: scheduled
// campaigns whose start date has passed are activated, active campaigns past
// their end date are completed, and rollup metrics for active campaigns are
// refreshed each tick.
type CampaignWorker struct {
	DB        *gorm.DB
	Logger    *log.Logger
	Campaigns *service.CampaignService
	Interval  time.Duration
}

func NewCampaignWorker(db *gorm.DB, logger *log.Logger, interval time.Duration) *CampaignWorker {
	scoring := service.NewScoringService(db, logger)
	engagement := service.NewEngagementService(db, logger, scoring)
	return &CampaignWorker{
		DB:        db,
		Logger:    logger,
		Campaigns: service.NewCampaignService(db, logger, engagement),
		Interval:  interval,
	}
}

func (cw *CampaignWorker) Start(ctx context.Context) {
	// Initial delay to let the server start up
	time.Sleep(10 * time.Second)

	cw.Logger.Println("Campaign scheduler started")

	ticker := time.NewTicker(cw.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			cw.Logger.Println("Campaign scheduler shutting down...")
			return
		case <-ticker.C:
			cw.activateDue()
			cw.completeExpired()
			cw.refreshActiveMetrics()
		}
	}
}

func (cw *CampaignWorker) activateDue() {
	due, err := cw.Campaigns.DueScheduled(time.Now())
	if err != nil {
		cw.Logger.Printf("Error fetching due campaigns: %v", err)
		return
	}

	for _, campaign := range due {
		if _, err := cw.Campaigns.Activate(campaign.ID); err != nil {
			cw.Logger.Printf("Error activating campaign %d: %v", campaign.ID, err)
			continue
		}
		cw.Logger.Printf("Activated scheduled campaign %d (%s)", campaign.ID, campaign.Name)
	}
}

func (cw *CampaignWorker) completeExpired() {
	expired, err := cw.Campaigns.ExpiredActive(time.Now())
	if err != nil {
		cw.Logger.Printf("Error fetching expired campaigns: %v", err)
		return
	}

	for _, campaign := range expired {
		if _, err := cw.Campaigns.Complete(campaign.ID); err != nil {
			cw.Logger.Printf("Error completing campaign %d: %v", campaign.ID, err)
			continue
		}
		cw.Logger.Printf("Completed campaign %d (%s) past its end date", campaign.ID, campaign.Name)
	}
}

func (cw *CampaignWorker) refreshActiveMetrics() {
	var active []models.Campaign
	if err := cw.DB.Where("status = ?", models.CampaignStatusActive).Find(&active).Error; err != nil {
		cw.Logger.Printf("Error fetching active campaigns: %v", err)
		return
	}

	for _, campaign := range active {
		if _, err := cw.Campaigns.Engagement.RecalculateMetrics(campaign.ID); err != nil {
			cw.Logger.Printf("Error refreshing metrics for campaign %d: %v", campaign.ID, err)
		}
	}
}
