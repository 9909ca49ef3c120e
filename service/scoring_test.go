package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"salescrm/models"
)

func TestApplyScoreChangeClampsAtUpperBound(t *testing.T) {
	db := newTestDB(t)
	scoring := NewScoringService(db, newTestLogger())

	prospect := createProspect(t, db, "clamp-high@example.com")
	require.NoError(t, db.Model(prospect).Update("lead_score", 98).Error)

	updated, err := scoring.ApplyScoreChange(prospect.ID, 10, "Link clicked", ScoreContext{
		ActivityType: ActivityLinkClick,
	})
	require.NoError(t, err)
	assert.Equal(t, 100, updated.LeadScore)

	// history records the post-clamp delta, not the requested one
	history, err := scoring.ScoreHistory(prospect.ID)
	require.NoError(t, err)
	require.NotEmpty(t, history)
	assert.Equal(t, 98, history[0].OldScore)
	assert.Equal(t, 100, history[0].NewScore)
	assert.Equal(t, 2, history[0].ScoreChange)
}

func TestApplyScoreChangeClampsAtLowerBound(t *testing.T) {
	db := newTestDB(t)
	scoring := NewScoringService(db, newTestLogger())

	prospect := createProspect(t, db, "clamp-low@example.com")
	require.NoError(t, db.Model(prospect).Update("lead_score", 5).Error)

	updated, err := scoring.ApplyScoreChange(prospect.ID, -10, "Unsubscribed", ScoreContext{
		ActivityType: ActivityUnsubscribe,
	})
	require.NoError(t, err)
	assert.Equal(t, 0, updated.LeadScore)

	history, err := scoring.ScoreHistory(prospect.ID)
	require.NoError(t, err)
	require.NotEmpty(t, history)
	assert.Equal(t, -5, history[0].ScoreChange)
}

func TestApplyScoreChangeUnknownProspect(t *testing.T) {
	db := newTestDB(t)
	scoring := NewScoringService(db, newTestLogger())

	_, err := scoring.ApplyScoreChange(9999, 5, "Email opened", ScoreContext{})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestApplyEngagementDeltaUnknownActivityIsNoop(t *testing.T) {
	db := newTestDB(t)
	scoring := NewScoringService(db, newTestLogger())

	prospect := createProspect(t, db, "noop@example.com")

	applied, err := scoring.ApplyEngagementDelta(prospect.ID, "carrier_pigeon", "n/a", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, applied)

	history, err := scoring.ScoreHistory(prospect.ID)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestApplyEngagementDeltaReturnsAppliedChange(t *testing.T) {
	db := newTestDB(t)
	scoring := NewScoringService(db, newTestLogger())

	prospect := createProspect(t, db, "delta@example.com")
	require.NoError(t, db.Model(prospect).Update("lead_score", 95).Error)

	campaign := createCampaign(t, db, 1, models.CampaignStatusActive)
	applied, err := scoring.ApplyEngagementDelta(prospect.ID, ActivityLinkClick, "Link clicked", &campaign.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, 5, applied)

	history, err := scoring.ScoreHistory(prospect.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	require.NotNil(t, history[0].CampaignID)
	assert.Equal(t, campaign.ID, *history[0].CampaignID)
}

func TestManualAdjustmentThenConversionAccumulate(t *testing.T) {
	db := newTestDB(t)
	scoring := NewScoringService(db, newTestLogger())

	prospect := createProspect(t, db, "accumulate@example.com")
	adjustedBy := uint(7)

	_, err := scoring.ApplyScoreChange(prospect.ID, 20, "Qualified on discovery call", ScoreContext{
		ActivityType: ActivityManualAdjustment,
		ChangedBy:    &adjustedBy,
	})
	require.NoError(t, err)

	applied, err := scoring.ApplyEngagementDelta(prospect.ID, ActivityConversion, "Converted to deal", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 50, applied)

	var reloaded models.Prospect
	require.NoError(t, db.First(&reloaded, prospect.ID).Error)
	assert.Equal(t, 70, reloaded.LeadScore)

	history, err := scoring.ScoreHistory(prospect.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	// newest first
	assert.Equal(t, ActivityConversion, history[0].ActivityType)
	assert.Equal(t, 50, history[0].ScoreChange)
	assert.Equal(t, ActivityManualAdjustment, history[1].ActivityType)
	assert.Equal(t, 20, history[1].ScoreChange)
	require.NotNil(t, history[1].ChangedBy)
	assert.Equal(t, adjustedBy, *history[1].ChangedBy)
}

func TestEngagementScoreDeltas(t *testing.T) {
	assert.Equal(t, 5, EngagementScoreDeltas[ActivityEmailOpen])
	assert.Equal(t, 10, EngagementScoreDeltas[ActivityLinkClick])
	assert.Equal(t, 15, EngagementScoreDeltas[ActivityResponse])
	assert.Equal(t, 50, EngagementScoreDeltas[ActivityConversion])
	assert.Equal(t, -10, EngagementScoreDeltas[ActivityUnsubscribe])
}
