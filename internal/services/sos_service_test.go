package services

import (
	"context"
	"testing"
	"time"

	"lifeline/internal/events"
	"lifeline/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestTriggerOpensIncidentWithAudioAndAssignment(t *testing.T) {
	env := newTestEnv()
	userID := env.seedUser("4321")
	env.seedContact(userID, true, false)
	agent := env.seedAgent(models.AgentRoleAgent, 3)

	var published []events.IncidentTriggered
	env.bus.OnIncidentTriggered(func(e events.IncidentTriggered) {
		published = append(published, e)
	})

	incident, created, err := env.svc.TriggerSOS(context.Background(), lagosTrigger(userID))
	require.NoError(t, err)
	require.True(t, created)

	require.NotNil(t, incident.AssignedAgentID)
	assert.Equal(t, agent.ID, *incident.AssignedAgentID)

	session, ok := env.audio.Get(incident.ID)
	require.True(t, ok)
	assert.True(t, session.IsActive)

	entries, err := env.svc.GetIncidentTimeline(incident.ID)
	require.NoError(t, err)
	types := eventTypes(entries)
	assert.Contains(t, types, models.EventSOSTriggered)
	assert.Contains(t, types, models.EventAudioSessionStarted)
	assert.Contains(t, types, models.EventAgentAssigned)
	assert.Contains(t, types, models.EventContactNotified)

	require.Len(t, published, 1)
	assert.Equal(t, incident.ID, published[0].Incident.ID)
}

func TestDuplicateTriggerAppendsLocationUpdate(t *testing.T) {
	env := newTestEnv()
	userID := env.seedUser("4321")

	first, _, err := env.svc.TriggerSOS(context.Background(), lagosTrigger(userID))
	require.NoError(t, err)

	params := lagosTrigger(userID)
	params.Location.Latitude = 6.6
	second, created, err := env.svc.TriggerSOS(context.Background(), params)
	require.NoError(t, err)

	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)

	entries, err := env.svc.GetIncidentTimeline(first.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, countEvents(entries, models.EventSOSTriggered))
	assert.Equal(t, 1, countEvents(entries, models.EventLocationUpdated))
}

func TestCheckpointEscalationTimetable(t *testing.T) {
	env := newTestEnv()
	userID := env.seedUser("4321")
	env.seedAgent(models.AgentRoleSenior, 3)

	incident, _, err := env.svc.TriggerSOS(context.Background(), lagosTrigger(userID))
	require.NoError(t, err)

	// Just before the first checkpoint nothing has moved.
	env.clock.Advance(59 * time.Second)
	got, err := env.svc.GetIncident(incident.ID)
	require.NoError(t, err)
	assert.Equal(t, models.EscalationLevel1, got.EscalationLevel)

	env.clock.Advance(1 * time.Second) // T+60
	got, err = env.svc.GetIncident(incident.ID)
	require.NoError(t, err)
	assert.Equal(t, models.EscalationLevel2, got.EscalationLevel)
	assert.Equal(t, models.IncidentStatusEscalated, got.Status)

	env.clock.Advance(60 * time.Second) // T+120
	got, err = env.svc.GetIncident(incident.ID)
	require.NoError(t, err)
	assert.Equal(t, models.EscalationLevel3, got.EscalationLevel)

	env.clock.Advance(60 * time.Second) // T+180
	got, err = env.svc.GetIncident(incident.ID)
	require.NoError(t, err)
	assert.Equal(t, models.EscalationLevel4, got.EscalationLevel)

	entries, err := env.svc.GetIncidentTimeline(incident.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, countEvents(entries, models.EventEscalated))
	assert.Equal(t, 1, countEvents(entries, models.EventSeniorAgentsAlerted))
	assert.Equal(t, 1, countEvents(entries, models.EventLawEnforcementContacted))
	assert.Equal(t, 1, countEvents(entries, models.EventManagersAlerted))
	assert.Equal(t, 1, countEvents(entries, models.EventAllHandsAlerted))
	assert.Equal(t, 1, countEvents(entries, models.EventEmergencyServicesDispatched))

	// Nigerian profile: law-enforcement call went to 112.
	assert.GreaterOrEqual(t, env.provider.callsTo("112"), 1)
}

func TestManualEscalationKeepsCheckpointsMonotonic(t *testing.T) {
	env := newTestEnv()
	userID := env.seedUser("4321")
	agent := env.seedAgent(models.AgentRoleAgent, 3)

	incident, _, err := env.svc.TriggerSOS(context.Background(), lagosTrigger(userID))
	require.NoError(t, err)

	// Agent escalates at T+30, ahead of the first checkpoint.
	env.clock.Advance(30 * time.Second)
	updated, err := env.svc.RespondToSOS(context.Background(), &models.SOSResponse{
		IncidentID:       incident.ID,
		AgentID:          agent.ID,
		Action:           models.AgentActionEscalate,
		EscalationReason: "screaming on audio",
	})
	require.NoError(t, err)
	assert.Equal(t, models.EscalationLevel2, updated.EscalationLevel)

	// The T+60 checkpoint targets LEVEL_2 and finds it already reached.
	env.clock.Advance(30 * time.Second)
	got, err := env.svc.GetIncident(incident.ID)
	require.NoError(t, err)
	assert.Equal(t, models.EscalationLevel2, got.EscalationLevel)

	// The T+120 checkpoint still advances to LEVEL_3.
	env.clock.Advance(60 * time.Second)
	got, err = env.svc.GetIncident(incident.ID)
	require.NoError(t, err)
	assert.Equal(t, models.EscalationLevel3, got.EscalationLevel)

	entries, err := env.svc.GetIncidentTimeline(incident.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, countEvents(entries, models.EventEscalated))
}

func TestCancelAtLevelOneClosesImmediately(t *testing.T) {
	env := newTestEnv()
	userID := env.seedUser("4321")
	env.seedAgent(models.AgentRoleAgent, 3)

	incident, _, err := env.svc.TriggerSOS(context.Background(), lagosTrigger(userID))
	require.NoError(t, err)
	env.svc.StreamAudioChunk(incident.ID, []byte("ambient"))

	result, err := env.svc.CancelSOS(context.Background(), incident.ID, userID, "pressed by accident")
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.False(t, result.VerificationRequired)
	assert.Equal(t, models.IncidentStatusCancelled, result.Incident.Status)
	assert.Equal(t, models.ResolutionUserCancelled, result.Incident.ResolutionType)

	// Audio stopped and uploaded, agent released, incident gone from live set.
	session, ok := env.audio.Get(incident.ID)
	require.True(t, ok)
	assert.False(t, session.IsActive)
	assert.Empty(t, env.svc.GetActiveIncidents())

	agentIncidents := env.svc.GetAgentIncidents(*incident.AssignedAgentID)
	assert.Empty(t, agentIncidents)

	// Escalation timers were never cancelled; they fire and do nothing.
	env.clock.Advance(4 * time.Minute)
	got, err := env.svc.GetIncident(incident.ID)
	require.NoError(t, err)
	assert.Equal(t, models.EscalationLevel1, got.EscalationLevel)
	assert.Equal(t, models.IncidentStatusCancelled, got.Status)
}

func TestCancelAfterEscalationRequiresPin(t *testing.T) {
	env := newTestEnv()
	userID := env.seedUser("4321")

	incident, _, err := env.svc.TriggerSOS(context.Background(), lagosTrigger(userID))
	require.NoError(t, err)
	env.clock.Advance(60 * time.Second)

	result, err := env.svc.CancelSOS(context.Background(), incident.ID, userID, "false alarm")
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.True(t, result.VerificationRequired)

	got, err := env.svc.GetIncident(incident.ID)
	require.NoError(t, err)
	assert.True(t, got.IsLive())

	// Wrong PIN leaves the incident open and is audited.
	verify, err := env.svc.VerifyCancellation(context.Background(), incident.ID, userID, "0000")
	require.NoError(t, err)
	assert.False(t, verify.Success)

	entries, err := env.svc.GetIncidentTimeline(incident.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, countEvents(entries, models.EventCancellationRequested))
	assert.Equal(t, 1, countEvents(entries, models.EventPinVerificationFailed))

	// Correct PIN closes it as a verified cancel.
	verify, err = env.svc.VerifyCancellation(context.Background(), incident.ID, userID, "4321")
	require.NoError(t, err)
	assert.True(t, verify.Success)
	assert.Equal(t, models.ResolutionUserVerifiedCancel, verify.Incident.ResolutionType)
	assert.Empty(t, env.svc.GetActiveIncidents())
}

func TestPinAttemptsAreCapped(t *testing.T) {
	env := newTestEnv()
	userID := env.seedUser("4321")

	incident, _, err := env.svc.TriggerSOS(context.Background(), lagosTrigger(userID))
	require.NoError(t, err)
	env.clock.Advance(60 * time.Second)

	for i := 0; i < maxPinAttempts; i++ {
		result, err := env.svc.VerifyCancellation(context.Background(), incident.ID, userID, "9999")
		require.NoError(t, err)
		assert.False(t, result.Success)
	}

	// Even the right PIN is refused once the cap is hit.
	result, err := env.svc.VerifyCancellation(context.Background(), incident.ID, userID, "4321")
	require.NoError(t, err)
	assert.False(t, result.Success)

	got, err := env.svc.GetIncident(incident.ID)
	require.NoError(t, err)
	assert.True(t, got.IsLive())
}

func TestCancelByAnotherUserIsRejected(t *testing.T) {
	env := newTestEnv()
	userID := env.seedUser("4321")
	intruder := env.seedUser("1111")

	incident, _, err := env.svc.TriggerSOS(context.Background(), lagosTrigger(userID))
	require.NoError(t, err)

	_, err = env.svc.CancelSOS(context.Background(), incident.ID, intruder, "")
	assert.ErrorIs(t, err, ErrNotAuthorized)
}

func TestEmergencyDispatchIsIdempotent(t *testing.T) {
	env := newTestEnv()
	userID := env.seedUser("4321")
	agent := env.seedAgent(models.AgentRoleAgent, 3)

	incident, _, err := env.svc.TriggerSOS(context.Background(), lagosTrigger(userID))
	require.NoError(t, err)

	// Agent dispatches manually before any checkpoint.
	_, err = env.svc.RespondToSOS(context.Background(), &models.SOSResponse{
		IncidentID: incident.ID,
		AgentID:    agent.ID,
		Action:     models.AgentActionDispatch,
	})
	require.NoError(t, err)

	// The LEVEL_4 checkpoint asks again; the dispatch must not repeat.
	env.clock.Advance(3 * time.Minute)

	entries, err := env.svc.GetIncidentTimeline(incident.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, countEvents(entries, models.EventEmergencyServicesDispatched))

	data, ok := findEvent(entries, models.EventEmergencyServicesDispatched).(models.EmergencyServicesDispatchedData)
	require.True(t, ok)
	assert.Equal(t, "manual", data.Source)
	assert.Equal(t, "112", data.EmergencyNumber)
}

func TestResolveReleasesAgentAndRecordsStats(t *testing.T) {
	env := newTestEnv()
	userID := env.seedUser("4321")
	agent := env.seedAgent(models.AgentRoleAgent, 3)

	incident, _, err := env.svc.TriggerSOS(context.Background(), lagosTrigger(userID))
	require.NoError(t, err)
	env.svc.StreamAudioChunk(incident.ID, []byte("evidence"))

	env.clock.Advance(45 * time.Second)
	resolved, err := env.svc.RespondToSOS(context.Background(), &models.SOSResponse{
		IncidentID: incident.ID,
		AgentID:    agent.ID,
		Action:     models.AgentActionResolve,
		Notes:      "spoke to rider, all clear",
	})
	require.NoError(t, err)

	assert.Equal(t, models.IncidentStatusResolved, resolved.Status)
	assert.Equal(t, models.ResolutionAgentResolved, resolved.ResolutionType)
	assert.Equal(t, 45.0, resolved.ResponseTimeSeconds())
	assert.NotEmpty(t, resolved.AudioRecordingURL)

	got, ok := env.pool.Get(agent.ID)
	require.True(t, ok)
	assert.Equal(t, 0, got.ActiveIncidents)
	assert.Equal(t, 1, got.TotalResolved)

	assert.Empty(t, env.svc.GetActiveIncidents())
}

func TestAcknowledgeMovesToResponded(t *testing.T) {
	env := newTestEnv()
	userID := env.seedUser("4321")
	agent := env.seedAgent(models.AgentRoleAgent, 3)

	incident, _, err := env.svc.TriggerSOS(context.Background(), lagosTrigger(userID))
	require.NoError(t, err)

	updated, err := env.svc.RespondToSOS(context.Background(), &models.SOSResponse{
		IncidentID: incident.ID,
		AgentID:    agent.ID,
		Action:     models.AgentActionAcknowledge,
	})
	require.NoError(t, err)
	assert.Equal(t, models.IncidentStatusResponded, updated.Status)
	assert.Equal(t, models.EscalationLevel1, updated.EscalationLevel)
}

func TestContactUserPlacesCallback(t *testing.T) {
	env := newTestEnv()
	userID := env.seedUser("4321")
	agent := env.seedAgent(models.AgentRoleAgent, 3)

	incident, _, err := env.svc.TriggerSOS(context.Background(), lagosTrigger(userID))
	require.NoError(t, err)

	_, err = env.svc.RespondToSOS(context.Background(), &models.SOSResponse{
		IncidentID: incident.ID,
		AgentID:    agent.ID,
		Action:     models.AgentActionContactUser,
	})
	require.NoError(t, err)

	assert.Equal(t, 1, env.provider.callsTo("+2348031112222"))

	entries, err := env.svc.GetIncidentTimeline(incident.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, countEvents(entries, models.EventCallbackInitiated))
}

func TestRespondOnClosedIncidentFails(t *testing.T) {
	env := newTestEnv()
	userID := env.seedUser("4321")
	agent := env.seedAgent(models.AgentRoleAgent, 3)

	incident, _, err := env.svc.TriggerSOS(context.Background(), lagosTrigger(userID))
	require.NoError(t, err)

	_, err = env.svc.CancelSOS(context.Background(), incident.ID, userID, "")
	require.NoError(t, err)

	_, err = env.svc.RespondToSOS(context.Background(), &models.SOSResponse{
		IncidentID: incident.ID,
		AgentID:    agent.ID,
		Action:     models.AgentActionAcknowledge,
	})
	assert.ErrorIs(t, err, ErrIncidentNotLive)
}

func TestUnknownActionIsRejected(t *testing.T) {
	env := newTestEnv()
	userID := env.seedUser("4321")
	agent := env.seedAgent(models.AgentRoleAgent, 3)

	incident, _, err := env.svc.TriggerSOS(context.Background(), lagosTrigger(userID))
	require.NoError(t, err)

	_, err = env.svc.RespondToSOS(context.Background(), &models.SOSResponse{
		IncidentID: incident.ID,
		AgentID:    agent.ID,
		Action:     models.AgentAction("wave"),
	})
	assert.ErrorIs(t, err, ErrUnknownAction)
}

func TestMarkAsFalseAlarm(t *testing.T) {
	env := newTestEnv()
	userID := env.seedUser("4321")
	agent := env.seedAgent(models.AgentRoleAgent, 3)

	incident, _, err := env.svc.TriggerSOS(context.Background(), lagosTrigger(userID))
	require.NoError(t, err)

	closed, err := env.svc.MarkAsFalseAlarm(context.Background(), incident.ID, agent.ID, "child playing with phone")
	require.NoError(t, err)
	assert.Equal(t, models.IncidentStatusFalseAlarm, closed.Status)
	assert.Equal(t, models.ResolutionFalseAlarm, closed.ResolutionType)

	entries, err := env.svc.GetIncidentTimeline(incident.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, countEvents(entries, models.EventFalseAlarm))
}

func TestFullIncidentLifecycle(t *testing.T) {
	env := newTestEnv()
	userID := env.seedUser("4321")
	env.seedContact(userID, true, true)
	agent := env.seedAgent(models.AgentRoleAgent, 3)

	var closures []events.IncidentClosed
	env.bus.OnIncidentClosed(func(e events.IncidentClosed) {
		closures = append(closures, e)
	})

	// Rider hits the button in Lagos.
	incident, created, err := env.svc.TriggerSOS(context.Background(), lagosTrigger(userID))
	require.NoError(t, err)
	require.True(t, created)
	assert.Equal(t, models.IncidentStatusActive, incident.Status)
	assert.Equal(t, models.EscalationLevel1, incident.EscalationLevel)

	env.svc.StreamAudioChunk(incident.ID, []byte("cabin audio"))

	// Nobody responds for a minute; the engine escalates on its own.
	env.clock.Advance(60 * time.Second)
	got, err := env.svc.GetIncident(incident.ID)
	require.NoError(t, err)
	assert.Equal(t, models.EscalationLevel2, got.EscalationLevel)
	assert.Equal(t, models.IncidentStatusEscalated, got.Status)

	// An agent picks it up and resolves it.
	resolved, err := env.svc.RespondToSOS(context.Background(), &models.SOSResponse{
		IncidentID: incident.ID,
		AgentID:    agent.ID,
		Action:     models.AgentActionResolve,
		Notes:      "rider confirmed safe",
	})
	require.NoError(t, err)
	assert.Equal(t, models.IncidentStatusResolved, resolved.Status)

	// Later checkpoints fire and change nothing.
	env.clock.Advance(3 * time.Minute)
	final, err := env.svc.GetIncident(incident.ID)
	require.NoError(t, err)
	assert.Equal(t, models.IncidentStatusResolved, final.Status)
	assert.Equal(t, models.EscalationLevel2, final.EscalationLevel)

	session, ok := env.audio.Get(incident.ID)
	require.True(t, ok)
	assert.False(t, session.IsActive)
	assert.Empty(t, env.svc.GetActiveIncidents())

	require.Len(t, closures, 1)
	assert.Equal(t, models.ResolutionAgentResolved, closures[0].Resolution)
}

func findEvent(entries []*models.TimelineEntry, eventType models.TimelineEventType) models.TimelineEventData {
	for _, entry := range entries {
		if entry.Type == eventType {
			return entry.Data
		}
	}
	return nil
}

func TestGetTimelineForUnknownIncident(t *testing.T) {
	env := newTestEnv()
	_, err := env.svc.GetIncidentTimeline(primitive.NewObjectID())
	assert.ErrorIs(t, err, ErrIncidentNotFound)
}
