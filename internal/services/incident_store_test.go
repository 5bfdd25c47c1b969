package services

import (
	"testing"
	"time"

	"lifeline/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestTriggerCreatesLevelOneIncident(t *testing.T) {
	clock := NewFakeClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	store := NewIncidentStore(clock)
	userID := primitive.NewObjectID()

	incident, created := store.Trigger(lagosTrigger(userID))

	require.True(t, created)
	assert.Equal(t, models.IncidentStatusActive, incident.Status)
	assert.Equal(t, models.EscalationLevel1, incident.EscalationLevel)
	assert.Equal(t, userID, incident.UserID)
	assert.Equal(t, 6.5244, incident.TriggerLocation.Latitude)
	assert.Equal(t, clock.Now(), incident.TriggeredAt)
	assert.Len(t, store.Active(), 1)
}

func TestDuplicateTriggerRefreshesLocationOnly(t *testing.T) {
	clock := NewFakeClock(time.Now())
	store := NewIncidentStore(clock)
	userID := primitive.NewObjectID()

	first, created := store.Trigger(lagosTrigger(userID))
	require.True(t, created)

	params := lagosTrigger(userID)
	params.Location = models.GeoPoint{Latitude: 6.6000, Longitude: 3.4000, Timestamp: clock.Now()}
	second, created := store.Trigger(params)

	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 6.6000, second.CurrentLocation.Latitude)
	assert.Equal(t, 6.5244, second.TriggerLocation.Latitude)
	assert.Len(t, store.Active(), 1)
}

func TestEscalateAdvancesExactlyOneLevel(t *testing.T) {
	store := NewIncidentStore(NewFakeClock(time.Now()))
	incident, _ := store.Trigger(lagosTrigger(primitive.NewObjectID()))

	outcome, err := store.Escalate(incident.ID, models.EscalationLevel4)
	require.NoError(t, err)
	assert.True(t, outcome.Applied)
	assert.Equal(t, models.EscalationLevel1, outcome.FromLevel)
	assert.Equal(t, models.EscalationLevel2, outcome.ToLevel)
	assert.Equal(t, models.IncidentStatusEscalated, outcome.Incident.Status)
}

func TestStaleCheckpointDoesNotRegressLevel(t *testing.T) {
	store := NewIncidentStore(NewFakeClock(time.Now()))
	incident, _ := store.Trigger(lagosTrigger(primitive.NewObjectID()))

	// Manual escalation already carried the incident to LEVEL_3.
	_, err := store.Escalate(incident.ID, models.EscalationLevel4)
	require.NoError(t, err)
	_, err = store.Escalate(incident.ID, models.EscalationLevel4)
	require.NoError(t, err)

	outcome, err := store.Escalate(incident.ID, models.EscalationLevel2)
	require.NoError(t, err)
	assert.False(t, outcome.Applied)
	assert.Equal(t, models.EscalationLevel3, outcome.ToLevel)
}

func TestEscalateClosedIncidentFails(t *testing.T) {
	store := NewIncidentStore(NewFakeClock(time.Now()))
	incident, _ := store.Trigger(lagosTrigger(primitive.NewObjectID()))

	_, err := store.Close(incident.ID, models.IncidentStatusResolved, models.ResolutionAgentResolved, "")
	require.NoError(t, err)

	_, err = store.Escalate(incident.ID, models.EscalationLevel2)
	assert.ErrorIs(t, err, ErrIncidentNotLive)
}

func TestCloseIsTerminalOnce(t *testing.T) {
	store := NewIncidentStore(NewFakeClock(time.Now()))
	userID := primitive.NewObjectID()
	incident, _ := store.Trigger(lagosTrigger(userID))

	closed, err := store.Close(incident.ID, models.IncidentStatusCancelled, models.ResolutionUserCancelled, "all good")
	require.NoError(t, err)
	assert.Equal(t, models.IncidentStatusCancelled, closed.Status)
	assert.NotNil(t, closed.ResolvedAt)
	assert.Empty(t, store.Active())

	_, err = store.Close(incident.ID, models.IncidentStatusResolved, models.ResolutionAgentResolved, "")
	assert.ErrorIs(t, err, ErrIncidentNotLive)

	// A fresh trigger after closure opens a new incident.
	next, created := store.Trigger(lagosTrigger(userID))
	assert.True(t, created)
	assert.NotEqual(t, incident.ID, next.ID)
}

func TestCloseRejectsNonTerminalStatus(t *testing.T) {
	store := NewIncidentStore(NewFakeClock(time.Now()))
	incident, _ := store.Trigger(lagosTrigger(primitive.NewObjectID()))

	_, err := store.Close(incident.ID, models.IncidentStatusResponded, "", "")
	assert.ErrorIs(t, err, ErrIncidentNotLive)
}

func TestMarkFirstResponseRecordsOnce(t *testing.T) {
	clock := NewFakeClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	store := NewIncidentStore(clock)
	incident, _ := store.Trigger(lagosTrigger(primitive.NewObjectID()))

	clock.Advance(30 * time.Second)
	updated, recorded, err := store.MarkFirstResponse(incident.ID)
	require.NoError(t, err)
	assert.True(t, recorded)
	assert.Equal(t, 30.0, updated.ResponseTimeSeconds())

	clock.Advance(time.Minute)
	updated, recorded, err = store.MarkFirstResponse(incident.ID)
	require.NoError(t, err)
	assert.False(t, recorded)
	assert.Equal(t, 30.0, updated.ResponseTimeSeconds())
}
