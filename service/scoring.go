package service

import (
	"fmt"
	"log"

	"salescrm/models"

	"gorm.io/gorm"
)

// Lead score bounds
const (
	MinLeadScore = 0
	MaxLeadScore = 100
)

// Activity types recorded in score history
const (
	ActivityEmailOpen        = "email_open"
	ActivityLinkClick        = "link_click"
	ActivityResponse         = "response"
	ActivityConversion       = "conversion"
	ActivityUnsubscribe      = "unsubscribe"
	ActivityManualAdjustment = "manual_adjustment"
	ActivityProspectCreated  = "created"
)

// EngagementScoreDeltas maps engagement milestones to the score delta they
// award a prospect. Loaded once; treat as read-only.
var EngagementScoreDeltas = map[string]int{
	ActivityEmailOpen:   5,
	ActivityLinkClick:   10,
	ActivityResponse:    15,
	ActivityConversion:  50,
	ActivityUnsubscribe: -10,
}

// ScoreContext carries optional attribution for a score change
type ScoreContext struct {
	ActivityType      string
	CampaignID        *uint
	CampaignContactID *uint
	ChangedBy         *uint
}

// ScoringService maintains Prospect.LeadScore as a clamped accumulator with a
// full audit trail in lead_score_history.
type ScoringService struct {
	DB     *gorm.DB
	Logger *log.Logger
}

func NewScoringService(db *gorm.DB, logger *log.Logger) *ScoringService {
	return &ScoringService{DB: db, Logger: logger}
}

func clampScore(score int) int {
	if score < MinLeadScore {
		return MinLeadScore
	}
	if score > MaxLeadScore {
		return MaxLeadScore
	}
	return score
}

// ApplyScoreChange adds delta to the prospect's score, clamped to [0,100],
// and appends a history record. The recorded score_change is the post-clamp
// delta, which can differ from the requested delta at the bounds (98 with a
// +10 request records +2).
//
// The score update is a compare-and-set inside a transaction so concurrent
// scoring events cannot lose updates; on contention the read is retried.
func (ss *ScoringService) ApplyScoreChange(prospectID uint, delta int, reason string, sctx ScoreContext) (*models.Prospect, error) {
	const maxRetries = 3

	for attempt := 0; attempt < maxRetries; attempt++ {
		var prospect models.Prospect
		if err := ss.DB.First(&prospect, prospectID).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return nil, fmt.Errorf("prospect %d: %w", prospectID, ErrNotFound)
			}
			return nil, err
		}

		oldScore := prospect.LeadScore
		newScore := clampScore(oldScore + delta)

		var applied bool
		err := ss.DB.Transaction(func(tx *gorm.DB) error {
			res := tx.Model(&models.Prospect{}).
				Where("id = ? AND lead_score = ?", prospectID, oldScore).
				Update("lead_score", newScore)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				// Lost the race against a concurrent score change
				return nil
			}
			applied = true

			history := models.LeadScoreHistory{
				ProspectID:        prospectID,
				OldScore:          oldScore,
				NewScore:          newScore,
				ScoreChange:       newScore - oldScore,
				Reason:            reason,
				ActivityType:      sctx.ActivityType,
				CampaignID:        sctx.CampaignID,
				CampaignContactID: sctx.CampaignContactID,
				ChangedBy:         sctx.ChangedBy,
			}
			return tx.Create(&history).Error
		})
		if err != nil {
			return nil, err
		}
		if !applied {
			continue
		}

		prospect.LeadScore = newScore
		return &prospect, nil
	}

	return nil, fmt.Errorf("prospect %d: score update contention: %w", prospectID, ErrInvalidState)
}

// ApplyEngagementDelta applies the configured delta for an engagement
// milestone. Unknown activity types are a no-op. Returns the post-clamp
// change actually applied.
func (ss *ScoringService) ApplyEngagementDelta(prospectID uint, activityType, reason string, campaignID, campaignContactID *uint) (int, error) {
	delta, ok := EngagementScoreDeltas[activityType]
	if !ok || delta == 0 {
		return 0, nil
	}

	var before models.Prospect
	if err := ss.DB.First(&before, prospectID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return 0, fmt.Errorf("prospect %d: %w", prospectID, ErrNotFound)
		}
		return 0, err
	}

	after, err := ss.ApplyScoreChange(prospectID, delta, reason, ScoreContext{
		ActivityType:      activityType,
		CampaignID:        campaignID,
		CampaignContactID: campaignContactID,
	})
	if err != nil {
		return 0, err
	}
	return after.LeadScore - before.LeadScore, nil
}

// ScoreHistory returns the audit trail for a prospect, newest first
func (ss *ScoringService) ScoreHistory(prospectID uint) ([]models.LeadScoreHistory, error) {
	var history []models.LeadScoreHistory
	err := ss.DB.Where("prospect_id = ?", prospectID).
		Order("created_at DESC, id DESC").Find(&history).Error
	return history, err
}
