package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMilestonesBefore(t *testing.T) {
	assert.ElementsMatch(t,
		[]string{EngagementPending, EngagementSent, EngagementDelivered},
		MilestonesBefore(EngagementOpened))

	assert.Empty(t, MilestonesBefore(EngagementPending))

	// side branches are not part of the advancement order
	assert.Empty(t, MilestonesBefore(EngagementBounced))
	assert.Empty(t, MilestonesBefore(EngagementFailed))
	assert.Empty(t, MilestonesBefore(EngagementUnsubscribed))
}

func TestEngagementAdvances(t *testing.T) {
	assert.True(t, EngagementAdvances(EngagementPending, EngagementSent))
	assert.True(t, EngagementAdvances(EngagementSent, EngagementConverted))
	assert.False(t, EngagementAdvances(EngagementClicked, EngagementOpened))
	assert.False(t, EngagementAdvances(EngagementClicked, EngagementClicked))
	assert.False(t, EngagementAdvances(EngagementBounced, EngagementSent))
	assert.False(t, EngagementAdvances(EngagementSent, EngagementBounced))
}

func TestEngagementScore(t *testing.T) {
	now := time.Now()
	dealID := uint(1)

	cc := CampaignContact{}
	assert.Equal(t, 0, cc.EngagementScore())

	cc.DeliveredAt = &now
	cc.OpenedAt = &now
	assert.Equal(t, 3, cc.EngagementScore())

	cc.ClickedAt = &now
	cc.RespondedAt = &now
	cc.ConvertedAt = &now
	cc.Status = EngagementConverted
	cc.DealID = &dealID
	assert.Equal(t, 21, cc.EngagementScore())
}

func TestCampaignRates(t *testing.T) {
	c := Campaign{SentCount: 200, OpenedCount: 50, ClickedCount: 20, ConvertedCount: 4, BouncedCount: 10}
	assert.Equal(t, 25.0, c.OpenRate())
	assert.Equal(t, 10.0, c.ClickRate())
	assert.Equal(t, 2.0, c.ConversionRate())
	assert.Equal(t, 5.0, c.BounceRate())

	empty := Campaign{}
	assert.Equal(t, 0.0, empty.OpenRate())
}

func TestProspectHelpers(t *testing.T) {
	p := Prospect{FirstName: "Dana"}
	assert.Equal(t, "Dana", p.FullName())
	p.LastName = "Reyes"
	assert.Equal(t, "Dana Reyes", p.FullName())

	assert.False(t, p.IsConverted())
	contactID := uint(9)
	p.Status = ProspectStatusConverted
	p.ConvertedToContactID = &contactID
	assert.True(t, p.IsConverted())
}

func TestIsSystemRole(t *testing.T) {
	assert.True(t, IsSystemRole(RoleAdmin))
	assert.True(t, IsSystemRole(RoleSalesManager))
	assert.True(t, IsSystemRole(RoleSalesRep))
	assert.False(t, IsSystemRole(RoleUser))
	assert.False(t, IsSystemRole("support"))
}
