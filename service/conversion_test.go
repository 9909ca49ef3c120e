package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"salescrm/models"
)

func newConversionService(db *gorm.DB) *ConversionService {
	logger := newTestLogger()
	engagement := NewEngagementService(db, logger, NewScoringService(db, logger))
	return NewConversionService(db, logger, engagement)
}

func TestConvertProspectCreatesContact(t *testing.T) {
	db := newTestDB(t)
	cs := newConversionService(db)

	rep := createUser(t, db, "rep@example.com", models.RoleSalesRep)
	prospect := createProspect(t, db, "lead@example.com")
	phone := "+1-555-0101"
	require.NoError(t, db.Model(prospect).Updates(map[string]interface{}{
		"phone":     phone,
		"job_title": "CTO",
		"notes":     "Met at trade show",
	}).Error)

	result, err := cs.ConvertProspect(prospect.ID, ConversionRequest{CreateActivity: true}, rep.ID)
	require.NoError(t, err)
	require.NotZero(t, result.ContactID)
	require.NotNil(t, result.ActivityID)

	var contact models.Contact
	require.NoError(t, db.First(&contact, result.ContactID).Error)
	assert.Equal(t, prospect.FirstName, contact.FirstName)
	require.NotNil(t, contact.Email)
	assert.Equal(t, "lead@example.com", *contact.Email)
	assert.Equal(t, phone, contact.Phone)
	assert.Equal(t, "CTO", contact.Position)
	assert.Contains(t, contact.Notes, "Met at trade show")

	var reloaded models.Prospect
	require.NoError(t, db.First(&reloaded, prospect.ID).Error)
	assert.Equal(t, models.ProspectStatusConverted, reloaded.Status)
	require.NotNil(t, reloaded.ConvertedToContactID)
	assert.Equal(t, result.ContactID, *reloaded.ConvertedToContactID)
	assert.NotNil(t, reloaded.ConvertedAt)
}

func TestConvertProspectIsOneShot(t *testing.T) {
	db := newTestDB(t)
	cs := newConversionService(db)

	rep := createUser(t, db, "rep@example.com", models.RoleSalesRep)
	prospect := createProspect(t, db, "once@example.com")

	_, err := cs.ConvertProspect(prospect.ID, ConversionRequest{}, rep.ID)
	require.NoError(t, err)

	_, err = cs.ConvertProspect(prospect.ID, ConversionRequest{}, rep.ID)
	assert.ErrorIs(t, err, ErrInvalidState)

	// exactly one contact came out of it
	var count int64
	require.NoError(t, db.Model(&models.Contact{}).Where("email = ?", "once@example.com").Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestConvertProspectDuplicateContactEmail(t *testing.T) {
	db := newTestDB(t)
	cs := newConversionService(db)

	rep := createUser(t, db, "rep@example.com", models.RoleSalesRep)
	email := "taken@example.com"
	require.NoError(t, db.Create(&models.Contact{
		FirstName: "Existing",
		Email:     &email,
		Status:    "lead",
	}).Error)

	prospect := createProspect(t, db, email)
	_, err := cs.ConvertProspect(prospect.ID, ConversionRequest{}, rep.ID)
	assert.ErrorIs(t, err, ErrConstraintViolation)

	// failed conversion leaves the prospect untouched
	var reloaded models.Prospect
	require.NoError(t, db.First(&reloaded, prospect.ID).Error)
	assert.Equal(t, models.ProspectStatusNew, reloaded.Status)
	assert.Nil(t, reloaded.ConvertedToContactID)
}

func TestConvertProspectLinksCompanyByName(t *testing.T) {
	db := newTestDB(t)
	cs := newConversionService(db)

	rep := createUser(t, db, "rep@example.com", models.RoleSalesRep)
	company := models.Company{Name: "Acme Corp"}
	require.NoError(t, db.Create(&company).Error)

	prospect := createProspect(t, db, "acme-lead@example.com")
	require.NoError(t, db.Model(prospect).Update("company_name", "ACME CORP").Error)

	result, err := cs.ConvertProspect(prospect.ID, ConversionRequest{}, rep.ID)
	require.NoError(t, err)

	var contact models.Contact
	require.NoError(t, db.First(&contact, result.ContactID).Error)
	require.NotNil(t, contact.CompanyID)
	assert.Equal(t, company.ID, *contact.CompanyID)
}

func TestConvertProspectOwnership(t *testing.T) {
	db := newTestDB(t)
	cs := newConversionService(db)

	rep := createUser(t, db, "rep@example.com", models.RoleSalesRep)
	manager := createUser(t, db, "manager@example.com", models.RoleSalesManager)

	// assigned prospect keeps its assignee as contact owner
	assigned := createProspect(t, db, "assigned@example.com")
	require.NoError(t, db.Model(assigned).Update("assigned_to", rep.ID).Error)
	result, err := cs.ConvertProspect(assigned.ID, ConversionRequest{}, manager.ID)
	require.NoError(t, err)
	var contact models.Contact
	require.NoError(t, db.First(&contact, result.ContactID).Error)
	require.NotNil(t, contact.OwnerID)
	assert.Equal(t, rep.ID, *contact.OwnerID)

	// explicit assignment wins over everything
	explicit := createProspect(t, db, "explicit@example.com")
	require.NoError(t, db.Model(explicit).Update("assigned_to", rep.ID).Error)
	result, err = cs.ConvertProspect(explicit.ID, ConversionRequest{AssignTo: &manager.ID}, rep.ID)
	require.NoError(t, err)
	contact = models.Contact{} // fresh destination so the prior lookup's key cannot leak into the query
	require.NoError(t, db.First(&contact, result.ContactID).Error)
	require.NotNil(t, contact.OwnerID)
	assert.Equal(t, manager.ID, *contact.OwnerID)
}

func TestLinkDealToCampaign(t *testing.T) {
	db := newTestDB(t)
	cs := newConversionService(db)

	campaign := createCampaign(t, db, 1, models.CampaignStatusActive)
	prospect := createProspect(t, db, "dealmaker@example.com")
	cc, err := cs.Engagement.AddProspectToCampaign(campaign.ID, prospect.ID, "dealmaker@example.com")
	require.NoError(t, err)
	_, err = cs.Engagement.RecordSent(cc.ID, "msg-deal", "Offer inside")
	require.NoError(t, err)

	linked, err := cs.LinkDealToCampaign(campaign.ID, prospect.ID, 77, 9800)
	require.NoError(t, err)
	assert.Equal(t, models.EngagementConverted, linked.Status)
	require.NotNil(t, linked.DealID)
	assert.EqualValues(t, 77, *linked.DealID)
	require.NotNil(t, linked.ConversionValue)
	assert.Equal(t, 9800.0, *linked.ConversionValue)
	assert.NotNil(t, linked.ConvertedAt)

	// campaign rollups picked up the conversion
	var reloaded models.Campaign
	require.NoError(t, db.First(&reloaded, campaign.ID).Error)
	assert.Equal(t, 1, reloaded.ConvertedCount)
	assert.Equal(t, 9800.0, reloaded.ActualRevenue)

	// unknown participation fails cleanly
	stranger := createProspect(t, db, "stranger@example.com")
	_, err = cs.LinkDealToCampaign(campaign.ID, stranger.ID, 78, 100)
	assert.ErrorIs(t, err, ErrNotFound)
}
