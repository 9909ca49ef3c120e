package service

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"salescrm/models"
)

func newProspectService(db *gorm.DB) *ProspectService {
	logger := newTestLogger()
	return NewProspectService(db, logger, NewScoringService(db, logger))
}

func TestCreateProspectRequiresEmailOrPhone(t *testing.T) {
	db := newTestDB(t)
	ps := newProspectService(db)

	_, err := ps.CreateProspect(ProspectInput{FirstName: "Nobody"}, 1)
	assert.ErrorIs(t, err, ErrConstraintViolation)

	// phone alone is enough
	prospect, err := ps.CreateProspect(ProspectInput{FirstName: "Caller", Phone: "+1-555-0100"}, 1)
	require.NoError(t, err)
	assert.Nil(t, prospect.Email)
	require.NotNil(t, prospect.Phone)
}

func TestCreateProspectDefaults(t *testing.T) {
	db := newTestDB(t)
	ps := newProspectService(db)

	creator := createUser(t, db, "creator@example.com", models.RoleSalesRep)
	prospect, err := ps.CreateProspect(ProspectInput{
		FirstName: "Dana",
		Email:     "dana@example.com",
	}, creator.ID)
	require.NoError(t, err)

	assert.Equal(t, models.ProspectStatusNew, prospect.Status)
	assert.Equal(t, models.ProspectSourceOther, prospect.Source)
	assert.Equal(t, 0, prospect.LeadScore)
	require.NotNil(t, prospect.AssignedTo)
	assert.Equal(t, creator.ID, *prospect.AssignedTo)
	require.NotNil(t, prospect.CreatedBy)
	assert.Equal(t, creator.ID, *prospect.CreatedBy)

	// creation anchors the score audit trail
	var history []models.LeadScoreHistory
	require.NoError(t, db.Where("prospect_id = ?", prospect.ID).Find(&history).Error)
	require.Len(t, history, 1)
	assert.Equal(t, ActivityProspectCreated, history[0].ActivityType)
	assert.Equal(t, 0, history[0].ScoreChange)
}

func TestCreateProspectDuplicateDetection(t *testing.T) {
	db := newTestDB(t)
	ps := newProspectService(db)

	_, err := ps.CreateProspect(ProspectInput{
		FirstName: "First",
		Email:     "dup@example.com",
		Phone:     "+1-555-0200",
	}, 1)
	require.NoError(t, err)

	// same email
	_, err = ps.CreateProspect(ProspectInput{FirstName: "Second", Email: "dup@example.com"}, 1)
	assert.ErrorIs(t, err, ErrConstraintViolation)

	// same phone, different email
	_, err = ps.CreateProspect(ProspectInput{
		FirstName: "Third",
		Email:     "other@example.com",
		Phone:     "+1-555-0200",
	}, 1)
	assert.ErrorIs(t, err, ErrConstraintViolation)
}

func TestUpdateProspectDuplicateExcludesSelf(t *testing.T) {
	db := newTestDB(t)
	ps := newProspectService(db)

	mine, err := ps.CreateProspect(ProspectInput{FirstName: "Mine", Email: "mine@example.com"}, 1)
	require.NoError(t, err)
	_, err = ps.CreateProspect(ProspectInput{FirstName: "Theirs", Email: "theirs@example.com"}, 1)
	require.NoError(t, err)

	// re-submitting my own email is not a duplicate
	updated, err := ps.UpdateProspect(mine.ID, ProspectInput{Email: "mine@example.com", Notes: "updated"})
	require.NoError(t, err)
	assert.Equal(t, "updated", updated.Notes)

	// taking someone else's email is
	_, err = ps.UpdateProspect(mine.ID, ProspectInput{Email: "theirs@example.com"})
	assert.ErrorIs(t, err, ErrConstraintViolation)
}

func TestRejectProspect(t *testing.T) {
	db := newTestDB(t)
	ps := newProspectService(db)

	prospect := createProspect(t, db, "reject@example.com")
	rejected, err := ps.RejectProspect(prospect.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ProspectStatusRejected, rejected.Status)

	// converted prospects cannot be rejected
	converted := createProspect(t, db, "converted@example.com")
	require.NoError(t, db.Model(converted).Update("status", models.ProspectStatusConverted).Error)
	_, err = ps.RejectProspect(converted.ID)
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestBulkCreateProspectsSkipsDuplicates(t *testing.T) {
	db := newTestDB(t)
	ps := newProspectService(db)

	campaign := createCampaign(t, db, 1, models.CampaignStatusActive)
	_, err := ps.CreateProspect(ProspectInput{FirstName: "Known", Email: "known@example.com"}, 1)
	require.NoError(t, err)

	inputs := []ProspectInput{
		{FirstName: "Fresh", Email: "fresh@example.com"},
		{FirstName: "Known", Email: "known@example.com"}, // duplicate
		{FirstName: "Invalid"},                           // no email or phone
	}
	result, err := ps.BulkCreateProspects(inputs, &campaign.ID, 1, true)
	require.NoError(t, err)

	// the missing-recipient row is also a constraint violation, so with
	// skipDuplicates it is skipped rather than failed
	assert.Equal(t, 3, result.TotalRequested)
	assert.Equal(t, 1, result.CreatedCount)
	assert.Equal(t, 2, result.SkippedCount)
	assert.Equal(t, 0, result.FailedCount)

	// the batch campaign is stamped on created rows
	var fresh models.Prospect
	require.NoError(t, db.Where("email = ?", "fresh@example.com").First(&fresh).Error)
	require.NotNil(t, fresh.CampaignID)
	assert.Equal(t, campaign.ID, *fresh.CampaignID)
}

func TestBulkCreateProspectsStrictMode(t *testing.T) {
	db := newTestDB(t)
	ps := newProspectService(db)

	_, err := ps.CreateProspect(ProspectInput{FirstName: "Known", Email: "known@example.com"}, 1)
	require.NoError(t, err)

	result, err := ps.BulkCreateProspects([]ProspectInput{
		{FirstName: "Known", Email: "known@example.com"},
	}, nil, 1, false)
	require.NoError(t, err)
	assert.Equal(t, 0, result.CreatedCount)
	assert.Equal(t, 1, result.FailedCount)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "row 1")
}

func TestGetStatistics(t *testing.T) {
	db := newTestDB(t)
	ps := newProspectService(db)

	campaign := createCampaign(t, db, 1, models.CampaignStatusActive)
	for i := 0; i < 3; i++ {
		p := createProspect(t, db, fmt.Sprintf("stat%d@example.com", i))
		require.NoError(t, db.Model(p).Updates(map[string]interface{}{
			"campaign_id": campaign.ID,
			"lead_score":  (i + 1) * 10,
		}).Error)
	}
	rejected := createProspect(t, db, "stat-rejected@example.com")
	require.NoError(t, db.Model(rejected).Updates(map[string]interface{}{
		"campaign_id": campaign.ID,
		"status":      models.ProspectStatusRejected,
	}).Error)
	// outside the campaign, must not count in the scoped query
	createProspect(t, db, "elsewhere@example.com")

	stats, err := ps.GetStatistics(&campaign.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 4, stats.Total)
	assert.EqualValues(t, 3, stats.New)
	assert.EqualValues(t, 1, stats.Rejected)
	assert.InDelta(t, 15.0, stats.AverageLeadScore, 0.01)

	global, err := ps.GetStatistics(nil)
	require.NoError(t, err)
	assert.EqualValues(t, 5, global.Total)
}
