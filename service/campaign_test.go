package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"salescrm/models"
)

func newCampaignService(db *gorm.DB) *CampaignService {
	logger := newTestLogger()
	engagement := NewEngagementService(db, logger, NewScoringService(db, logger))
	return NewCampaignService(db, logger, engagement)
}

func TestCreateCampaignStartsAsDraft(t *testing.T) {
	db := newTestDB(t)
	cs := newCampaignService(db)

	campaign, err := cs.CreateCampaign(CampaignInput{
		Name: "Launch",
		Type: models.CampaignTypeEmail,
	}, 1)
	require.NoError(t, err)
	assert.Equal(t, models.CampaignStatusDraft, campaign.Status)
	assert.EqualValues(t, 1, campaign.OwnerID)
}

func TestCreateCampaignRejectsInvertedDates(t *testing.T) {
	db := newTestDB(t)
	cs := newCampaignService(db)

	start := time.Now().Add(48 * time.Hour)
	end := time.Now().Add(24 * time.Hour)
	_, err := cs.CreateCampaign(CampaignInput{
		Name:      "Backwards",
		Type:      models.CampaignTypeEmail,
		StartDate: &start,
		EndDate:   &end,
	}, 1)
	assert.ErrorIs(t, err, ErrConstraintViolation)
}

func TestCampaignLifecycle(t *testing.T) {
	db := newTestDB(t)
	cs := newCampaignService(db)

	campaign, err := cs.CreateCampaign(CampaignInput{Name: "Lifecycle", Type: models.CampaignTypeEmail}, 1)
	require.NoError(t, err)

	scheduled, err := cs.Schedule(campaign.ID, time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, models.CampaignStatusScheduled, scheduled.Status)
	assert.NotNil(t, scheduled.StartDate)

	active, err := cs.Activate(campaign.ID)
	require.NoError(t, err)
	assert.Equal(t, models.CampaignStatusActive, active.Status)
	require.NotNil(t, active.ActualStartDate)
	firstStart := *active.ActualStartDate

	paused, err := cs.Pause(campaign.ID)
	require.NoError(t, err)
	assert.Equal(t, models.CampaignStatusPaused, paused.Status)

	// reactivation keeps the original actual start date
	reactivated, err := cs.Activate(campaign.ID)
	require.NoError(t, err)
	require.NotNil(t, reactivated.ActualStartDate)
	assert.True(t, reactivated.ActualStartDate.Equal(firstStart))

	completed, err := cs.Complete(campaign.ID)
	require.NoError(t, err)
	assert.Equal(t, models.CampaignStatusCompleted, completed.Status)
	assert.NotNil(t, completed.ActualEndDate)
}

func TestCampaignIllegalTransitions(t *testing.T) {
	db := newTestDB(t)
	cs := newCampaignService(db)

	draft, err := cs.CreateCampaign(CampaignInput{Name: "Draft", Type: models.CampaignTypeEmail}, 1)
	require.NoError(t, err)

	// draft cannot complete or pause
	_, err = cs.Complete(draft.ID)
	assert.ErrorIs(t, err, ErrInvalidState)
	_, err = cs.Pause(draft.ID)
	assert.ErrorIs(t, err, ErrInvalidState)

	// terminal statuses are dead ends
	done := createCampaign(t, db, 1, models.CampaignStatusCompleted)
	_, err = cs.Activate(done.ID)
	assert.ErrorIs(t, err, ErrInvalidState)
	_, err = cs.Cancel(done.ID)
	assert.ErrorIs(t, err, ErrInvalidState)

	cancelled := createCampaign(t, db, 1, models.CampaignStatusCancelled)
	_, err = cs.Activate(cancelled.ID)
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestUpdateCampaignFrozenWhenFinished(t *testing.T) {
	db := newTestDB(t)
	cs := newCampaignService(db)

	done := createCampaign(t, db, 1, models.CampaignStatusCompleted)
	_, err := cs.UpdateCampaign(done.ID, CampaignInput{Name: "Renamed"})
	assert.ErrorIs(t, err, ErrInvalidState)

	active := createCampaign(t, db, 1, models.CampaignStatusActive)
	updated, err := cs.UpdateCampaign(active.ID, CampaignInput{EmailSubject: "New subject"})
	require.NoError(t, err)
	assert.Equal(t, "New subject", updated.EmailSubject)
	// untouched fields survive the patch
	assert.Equal(t, active.Name, updated.Name)
}

func TestDeleteCampaignOnlyDraftOrCancelled(t *testing.T) {
	db := newTestDB(t)
	cs := newCampaignService(db)

	active := createCampaign(t, db, 1, models.CampaignStatusActive)
	err := cs.DeleteCampaign(active.ID)
	assert.ErrorIs(t, err, ErrInvalidState)

	draft := createCampaign(t, db, 1, models.CampaignStatusDraft)
	require.NoError(t, cs.DeleteCampaign(draft.ID))
	_, err = cs.Get(draft.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDueScheduledAndExpiredActive(t *testing.T) {
	db := newTestDB(t)
	cs := newCampaignService(db)
	now := time.Now()

	due := createCampaign(t, db, 1, models.CampaignStatusScheduled)
	require.NoError(t, db.Model(due).Update("start_date", now.Add(-time.Hour)).Error)
	notYet := createCampaign(t, db, 1, models.CampaignStatusScheduled)
	require.NoError(t, db.Model(notYet).Update("start_date", now.Add(time.Hour)).Error)

	found, err := cs.DueScheduled(now)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, due.ID, found[0].ID)

	expired := createCampaign(t, db, 1, models.CampaignStatusActive)
	require.NoError(t, db.Model(expired).Update("end_date", now.Add(-time.Minute)).Error)
	running := createCampaign(t, db, 1, models.CampaignStatusActive)
	require.NoError(t, db.Model(running).Update("end_date", now.Add(time.Hour)).Error)

	ended, err := cs.ExpiredActive(now)
	require.NoError(t, err)
	require.Len(t, ended, 1)
	assert.Equal(t, expired.ID, ended[0].ID)
}

func TestCampaignListScoping(t *testing.T) {
	db := newTestDB(t)
	cs := newCampaignService(db)

	owner := uint(1)
	other := uint(2)
	createCampaign(t, db, owner, models.CampaignStatusDraft)
	createCampaign(t, db, owner, models.CampaignStatusActive)
	createCampaign(t, db, other, models.CampaignStatusActive)

	mine, total, err := cs.List(&owner, nil, 0, 50)
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Len(t, mine, 2)

	activeOnly, total, err := cs.List(nil, []string{models.CampaignStatusActive}, 0, 50)
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Len(t, activeOnly, 2)
}
