package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"salescrm/models"
)

func newEngagementService(db *gorm.DB) *EngagementService {
	logger := newTestLogger()
	return NewEngagementService(db, logger, NewScoringService(db, logger))
}

func addProspectRecipient(t *testing.T, es *EngagementService, campaignID uint, email string) *models.CampaignContact {
	t.Helper()
	prospect := createProspect(t, es.DB, email)
	cc, err := es.AddProspectToCampaign(campaignID, prospect.ID, email)
	require.NoError(t, err)
	return cc
}

func TestCreateEngagementRecipientExclusivity(t *testing.T) {
	db := newTestDB(t)
	es := newEngagementService(db)
	campaign := createCampaign(t, db, 1, models.CampaignStatusActive)

	contactID := uint(1)
	prospectID := uint(2)

	// both recipients set
	err := es.CreateEngagement(&models.CampaignContact{
		CampaignID: campaign.ID,
		ContactID:  &contactID,
		ProspectID: &prospectID,
	})
	assert.ErrorIs(t, err, ErrConstraintViolation)

	// neither recipient set
	err = es.CreateEngagement(&models.CampaignContact{CampaignID: campaign.ID})
	assert.ErrorIs(t, err, ErrConstraintViolation)

	// exactly one is fine and defaults to PENDING
	cc := &models.CampaignContact{CampaignID: campaign.ID, ContactID: &contactID}
	require.NoError(t, es.CreateEngagement(cc))
	assert.Equal(t, models.EngagementPending, cc.Status)
}

func TestAddProspectToCampaignIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	es := newEngagementService(db)
	campaign := createCampaign(t, db, 1, models.CampaignStatusActive)
	prospect := createProspect(t, db, "idem@example.com")

	first, err := es.AddProspectToCampaign(campaign.ID, prospect.ID, "idem@example.com")
	require.NoError(t, err)
	second, err := es.AddProspectToCampaign(campaign.ID, prospect.ID, "idem@example.com")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	var count int64
	require.NoError(t, db.Model(&models.CampaignContact{}).
		Where("campaign_id = ?", campaign.ID).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestRecordOpenCountsEveryOccurrence(t *testing.T) {
	db := newTestDB(t)
	es := newEngagementService(db)
	campaign := createCampaign(t, db, 1, models.CampaignStatusActive)
	cc := addProspectRecipient(t, es, campaign.ID, "opener@example.com")

	_, err := es.RecordSent(cc.ID, "msg-1", "Hello")
	require.NoError(t, err)

	first, err := es.RecordOpen(cc.ID)
	require.NoError(t, err)
	require.NotNil(t, first.OpenedAt)
	firstOpenedAt := *first.OpenedAt

	_, err = es.RecordOpen(cc.ID)
	require.NoError(t, err)
	third, err := es.RecordOpen(cc.ID)
	require.NoError(t, err)

	// counter moves every time, the timestamp and status only once
	assert.Equal(t, 3, third.OpenCount)
	require.NotNil(t, third.OpenedAt)
	assert.True(t, third.OpenedAt.Equal(firstOpenedAt))
	assert.Equal(t, models.EngagementOpened, third.Status)

	// only the first open scores the prospect
	require.NotNil(t, cc.ProspectID)
	var prospect models.Prospect
	require.NoError(t, db.First(&prospect, *cc.ProspectID).Error)
	assert.Equal(t, 5, prospect.LeadScore)
	assert.Equal(t, 5, third.LeadScoreChange)
}

func TestStatusNeverMovesBackward(t *testing.T) {
	db := newTestDB(t)
	es := newEngagementService(db)
	campaign := createCampaign(t, db, 1, models.CampaignStatusActive)
	cc := addProspectRecipient(t, es, campaign.ID, "backward@example.com")

	_, err := es.RecordSent(cc.ID, "msg-2", "Hello")
	require.NoError(t, err)
	_, err = es.RecordClick(cc.ID)
	require.NoError(t, err)

	// an open arriving after a click keeps the later milestone
	after, err := es.RecordOpen(cc.ID)
	require.NoError(t, err)
	assert.Equal(t, models.EngagementClicked, after.Status)
	assert.Equal(t, 1, after.OpenCount)
	require.NotNil(t, after.OpenedAt)
}

func TestRecordResponseScoresOnce(t *testing.T) {
	db := newTestDB(t)
	es := newEngagementService(db)
	campaign := createCampaign(t, db, 1, models.CampaignStatusActive)
	cc := addProspectRecipient(t, es, campaign.ID, "responder@example.com")

	_, err := es.RecordSent(cc.ID, "msg-3", "Hello")
	require.NoError(t, err)
	_, err = es.RecordResponse(cc.ID)
	require.NoError(t, err)
	after, err := es.RecordResponse(cc.ID)
	require.NoError(t, err)

	assert.Equal(t, models.EngagementResponded, after.Status)

	var prospect models.Prospect
	require.NoError(t, db.First(&prospect, *cc.ProspectID).Error)
	assert.Equal(t, 15, prospect.LeadScore)
}

func TestRecordBouncePreservesConverted(t *testing.T) {
	db := newTestDB(t)
	es := newEngagementService(db)
	campaign := createCampaign(t, db, 1, models.CampaignStatusActive)
	cc := addProspectRecipient(t, es, campaign.ID, "converted@example.com")

	_, err := es.RecordSent(cc.ID, "msg-4", "Hello")
	require.NoError(t, err)
	_, err = es.RecordConversion(cc.ID, 42, 1500)
	require.NoError(t, err)

	// a late bounce notification cannot demote a converted engagement
	after, err := es.RecordBounce(cc.ID, "soft", "mailbox full")
	require.NoError(t, err)
	assert.Equal(t, models.EngagementConverted, after.Status)
	assert.Nil(t, after.BouncedAt)
}

func TestRecordConversionRejectedAfterBounce(t *testing.T) {
	db := newTestDB(t)
	es := newEngagementService(db)
	campaign := createCampaign(t, db, 1, models.CampaignStatusActive)
	cc := addProspectRecipient(t, es, campaign.ID, "bounced@example.com")

	_, err := es.RecordSent(cc.ID, "msg-5", "Hello")
	require.NoError(t, err)
	bounced, err := es.RecordBounce(cc.ID, "hard", "unknown recipient")
	require.NoError(t, err)
	assert.Equal(t, models.EngagementBounced, bounced.Status)
	require.NotNil(t, bounced.BouncedAt)

	_, err = es.RecordConversion(cc.ID, 42, 1500)
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestResendResetsStatusKeepsHistory(t *testing.T) {
	db := newTestDB(t)
	es := newEngagementService(db)
	campaign := createCampaign(t, db, 1, models.CampaignStatusActive)
	cc := addProspectRecipient(t, es, campaign.ID, "retry@example.com")

	_, err := es.RecordSent(cc.ID, "msg-6", "Hello")
	require.NoError(t, err)
	bounced, err := es.RecordBounce(cc.ID, "soft", "greylisted")
	require.NoError(t, err)
	require.NotNil(t, bounced.BouncedAt)
	bouncedAt := *bounced.BouncedAt

	reset, err := es.Resend(cc.ID)
	require.NoError(t, err)
	assert.Equal(t, models.EngagementPending, reset.Status)

	// the prior attempt's timestamps survive the reset
	require.NotNil(t, reset.SentAt)
	require.NotNil(t, reset.BouncedAt)
	assert.True(t, reset.BouncedAt.Equal(bouncedAt))
}

func TestRecordUnsubscribeAppliesNegativeDelta(t *testing.T) {
	db := newTestDB(t)
	es := newEngagementService(db)
	campaign := createCampaign(t, db, 1, models.CampaignStatusActive)
	cc := addProspectRecipient(t, es, campaign.ID, "gone@example.com")

	require.NoError(t, db.Model(&models.Prospect{}).
		Where("id = ?", *cc.ProspectID).Update("lead_score", 30).Error)

	_, err := es.RecordSent(cc.ID, "msg-7", "Hello")
	require.NoError(t, err)
	after, err := es.RecordUnsubscribe(cc.ID)
	require.NoError(t, err)
	assert.Equal(t, models.EngagementUnsubscribed, after.Status)

	var prospect models.Prospect
	require.NoError(t, db.First(&prospect, *cc.ProspectID).Error)
	assert.Equal(t, 20, prospect.LeadScore)

	// repeated unsubscribe does not double the penalty
	_, err = es.RecordUnsubscribe(cc.ID)
	require.NoError(t, err)
	require.NoError(t, db.First(&prospect, *cc.ProspectID).Error)
	assert.Equal(t, 20, prospect.LeadScore)
}

func TestRecalculateMetrics(t *testing.T) {
	db := newTestDB(t)
	es := newEngagementService(db)
	campaign := createCampaign(t, db, 1, models.CampaignStatusActive)

	a := addProspectRecipient(t, es, campaign.ID, "a@example.com")
	b := addProspectRecipient(t, es, campaign.ID, "b@example.com")
	c := addProspectRecipient(t, es, campaign.ID, "c@example.com")
	d := addProspectRecipient(t, es, campaign.ID, "d@example.com")

	for i, cc := range []*models.CampaignContact{a, b, c} {
		_, err := es.RecordSent(cc.ID, "", "")
		require.NoError(t, err, "recipient %d", i)
	}
	_, err := es.RecordOpen(a.ID)
	require.NoError(t, err)
	_, err = es.RecordOpen(b.ID)
	require.NoError(t, err)
	_, err = es.RecordConversion(a.ID, 42, 2500)
	require.NoError(t, err)
	_, err = es.RecordBounce(c.ID, "hard", "")
	require.NoError(t, err)
	_ = d // never sent, must not count

	refreshed, err := es.RecalculateMetrics(campaign.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, refreshed.SentCount)
	assert.Equal(t, 2, refreshed.OpenedCount)
	assert.Equal(t, 1, refreshed.ConvertedCount)
	assert.Equal(t, 1, refreshed.BouncedCount)
	assert.Equal(t, 2500.0, refreshed.ActualRevenue)
	assert.InDelta(t, 66.66, refreshed.OpenRate(), 0.01)

	// recomputation is idempotent: running it again cannot drift
	again, err := es.RecalculateMetrics(campaign.ID)
	require.NoError(t, err)
	assert.Equal(t, refreshed.SentCount, again.SentCount)
	assert.Equal(t, refreshed.ConvertedCount, again.ConvertedCount)

	var snapshots int64
	require.NoError(t, db.Model(&models.CampaignMetric{}).
		Where("campaign_id = ?", campaign.ID).Count(&snapshots).Error)
	assert.GreaterOrEqual(t, snapshots, int64(2))
}

func TestRatesZeroWhenNothingSent(t *testing.T) {
	campaign := models.Campaign{}
	assert.Equal(t, 0.0, campaign.OpenRate())
	assert.Equal(t, 0.0, campaign.ConversionRate())
	assert.Equal(t, 0.0, campaign.BounceRate())
}

func TestRemoveFromCampaign(t *testing.T) {
	db := newTestDB(t)
	es := newEngagementService(db)
	campaign := createCampaign(t, db, 1, models.CampaignStatusActive)
	cc := addProspectRecipient(t, es, campaign.ID, "leaver@example.com")

	require.NoError(t, es.RemoveFromCampaign(campaign.ID, nil, cc.ProspectID))

	err := es.RemoveFromCampaign(campaign.ID, nil, cc.ProspectID)
	assert.ErrorIs(t, err, ErrNotFound)

	err = es.RemoveFromCampaign(campaign.ID, nil, nil)
	assert.ErrorIs(t, err, ErrConstraintViolation)
}
