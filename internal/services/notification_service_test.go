package services

import (
	"context"
	"testing"

	"lifeline/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFanoutChannelRules(t *testing.T) {
	env := newTestEnv()
	userID := env.seedUser("4321")

	primary := env.seedContact(userID, true, true) // sms + whatsapp + call
	env.seedContact(userID, false, false)          // sms only

	incident, _, err := env.svc.TriggerSOS(context.Background(), lagosTrigger(userID))
	require.NoError(t, err)

	// Primary: SMS, WhatsApp, call. Secondary: SMS.
	assert.Len(t, env.provider.sms, 2)
	assert.Len(t, env.provider.whatsapp, 1)
	assert.Len(t, env.provider.calls, 1)
	assert.Equal(t, primary.PhoneNumber, env.provider.whatsapp[0].To)
	assert.Equal(t, primary.PhoneNumber, env.provider.calls[0].To)

	entries, err := env.svc.GetIncidentTimeline(incident.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, countEvents(entries, models.EventContactNotified))
}

func TestFanoutRecordsTransportFailures(t *testing.T) {
	env := newTestEnv()
	userID := env.seedUser("4321")
	env.seedContact(userID, true, true)
	env.provider.failWA = true

	incident, _, err := env.svc.TriggerSOS(context.Background(), lagosTrigger(userID))
	require.NoError(t, err)

	entries, err := env.svc.GetIncidentTimeline(incident.ID)
	require.NoError(t, err)

	failed := 0
	for _, entry := range entries {
		if data, ok := entry.Data.(models.ContactNotifiedData); ok && data.Status == "failed" {
			failed++
			assert.Equal(t, models.ChannelWhatsApp, data.Channel)
		}
	}
	assert.Equal(t, 1, failed)

	// SMS and the voice call still went out.
	assert.Len(t, env.provider.sms, 1)
	assert.Len(t, env.provider.calls, 1)
}

func TestAlertMessageCarriesTrackingLink(t *testing.T) {
	env := newTestEnv()
	userID := env.seedUser("4321")
	env.seedContact(userID, false, false)

	incident, _, err := env.svc.TriggerSOS(context.Background(), lagosTrigger(userID))
	require.NoError(t, err)

	require.Len(t, env.provider.sms, 1)
	assert.Contains(t, env.provider.sms[0].Message, "https://track.test/track/"+incident.ID.Hex())
	assert.Contains(t, env.provider.sms[0].Message, "6.5244, 3.3792")
}

func TestTriggerWithoutContactsStillOpensIncident(t *testing.T) {
	env := newTestEnv()
	userID := env.seedUser("4321")

	incident, created, err := env.svc.TriggerSOS(context.Background(), lagosTrigger(userID))
	require.NoError(t, err)
	assert.True(t, created)
	assert.Empty(t, env.provider.sms)
	assert.Len(t, env.svc.GetActiveIncidents(), 1)
	assert.Equal(t, models.IncidentStatusActive, incident.Status)
}
