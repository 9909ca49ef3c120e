package service

import (
	"io"
	"log"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"salescrm/config"
	"salescrm/models"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// In-memory sqlite lives and dies with a single connection
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, config.MigrateDB(db))
	return db
}

func newTestLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func seedRBAC(t *testing.T, db *gorm.DB) {
	t.Helper()
	require.NoError(t, models.SeedRBAC(db))
}

func createUser(t *testing.T, db *gorm.DB, email, role string) *models.User {
	t.Helper()
	user := &models.User{
		Email:        email,
		PasswordHash: "x",
		FirstName:    "Test",
		Role:         role,
		IsActive:     true,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func createProspect(t *testing.T, db *gorm.DB, email string) *models.Prospect {
	t.Helper()
	prospect := &models.Prospect{
		FirstName: "Pat",
		LastName:  "Prospect",
		Email:     &email,
		Source:    models.ProspectSourceWebForm,
		Status:    models.ProspectStatusNew,
	}
	require.NoError(t, db.Create(prospect).Error)
	return prospect
}

func createCampaign(t *testing.T, db *gorm.DB, ownerID uint, status string) *models.Campaign {
	t.Helper()
	campaign := &models.Campaign{
		Name:    "Q3 Outreach",
		Type:    models.CampaignTypeEmail,
		Status:  status,
		OwnerID: ownerID,
	}
	require.NoError(t, db.Create(campaign).Error)
	return campaign
}
