package services

import (
	"context"
	"fmt"
	"time"

	"lifeline/internal/events"
	"lifeline/internal/models"
	"lifeline/pkg/logger"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// maxPinAttempts caps verified-cancellation tries per incident.
const maxPinAttempts = 5

// SOSService is the incident coordinator: the only entry point for triggers,
// cancellations, agent responses and escalation checkpoints. It owns the
// ordering of state changes and side effects; the stores underneath stay
// dumb.
type SOSService interface {
	TriggerSOS(ctx context.Context, params *models.TriggerSOSParams) (*models.Incident, bool, error)
	CancelSOS(ctx context.Context, incidentID, userID primitive.ObjectID, reason string) (*models.CancelResult, error)
	VerifyCancellation(ctx context.Context, incidentID, userID primitive.ObjectID, pin string) (*models.CancelResult, error)
	RespondToSOS(ctx context.Context, response *models.SOSResponse) (*models.Incident, error)
	MarkAsFalseAlarm(ctx context.Context, incidentID, agentID primitive.ObjectID, reason string) (*models.Incident, error)
	StreamAudioChunk(incidentID primitive.ObjectID, chunk []byte)
	GetIncident(incidentID primitive.ObjectID) (*models.Incident, error)
	GetIncidentTimeline(incidentID primitive.ObjectID) ([]*models.TimelineEntry, error)
	GetActiveIncidents() []models.Incident
	GetActiveSOSForUser(userID primitive.ObjectID) (*models.Incident, bool)
	GetAgentIncidents(agentID primitive.ObjectID) []models.Incident
	HandleCheckpoint(incidentID primitive.ObjectID, target models.EscalationLevel)
}

type sosService struct {
	store     IncidentStore
	timeline  TimelineRecorder
	pool      ResponderPool
	audio     AudioSessionManager
	notifier  NotificationService
	scheduler EscalationScheduler
	directory DirectoryService
	bus       *events.Bus
	logger    *logger.Logger
}

// SOSServiceDeps bundles the coordinator's collaborators. CheckpointOffsets
// may be nil to use the 60/120/180s defaults.
type SOSServiceDeps struct {
	Clock             Clock
	CheckpointOffsets []time.Duration
	Store             IncidentStore
	Timeline          TimelineRecorder
	Pool              ResponderPool
	Audio             AudioSessionManager
	Notifier          NotificationService
	Directory         DirectoryService
	Bus               *events.Bus
	Logger            *logger.Logger
}

func NewSOSService(deps SOSServiceDeps) SOSService {
	svc := &sosService{
		store:     deps.Store,
		timeline:  deps.Timeline,
		pool:      deps.Pool,
		audio:     deps.Audio,
		notifier:  deps.Notifier,
		directory: deps.Directory,
		bus:       deps.Bus,
		logger:    deps.Logger,
	}
	svc.scheduler = NewEscalationScheduler(deps.Clock, deps.CheckpointOffsets, svc.HandleCheckpoint, deps.Logger)
	return svc
}

// TriggerSOS opens an incident for the user, or refreshes the live one. The
// returned bool reports whether a new incident was created; a duplicate
// trigger only updates the location and appends a timeline entry.
func (s *sosService) TriggerSOS(ctx context.Context, params *models.TriggerSOSParams) (*models.Incident, bool, error) {
	incident, created := s.store.Trigger(params)
	if !created {
		s.timeline.Record(incident.ID, models.LocationUpdatedData{Location: params.Location})
		s.logger.WithIncidentID(incident.ID).WithUserID(params.UserID).Info("Duplicate SOS trigger, location refreshed")
		return &incident, false, nil
	}

	log := s.logger.WithIncidentID(incident.ID).WithUserID(params.UserID)
	log.WithField("method", string(params.TriggerMethod)).Warn("SOS triggered")

	s.timeline.Record(incident.ID, models.SOSTriggeredData{
		Method:       params.TriggerMethod,
		Location:     params.Location,
		BatteryLevel: params.BatteryLevel,
		NetworkType:  params.NetworkType,
	})

	session := s.audio.Start(incident.ID, params.UserID)
	s.timeline.Record(incident.ID, models.AudioSessionStartedData{SessionID: session.ID})

	if agent, ok := s.pool.Assign(incident.ID); ok {
		if err := s.store.SetAssignedAgent(incident.ID, agent.ID); err == nil {
			incident.AssignedAgentID = &agent.ID
		}
		s.timeline.Record(incident.ID, models.AgentAssignedData{
			AgentID:   agent.ID,
			AgentName: agent.Name,
			AgentLoad: agent.ActiveIncidents,
		})
		s.notifier.AlertAssignedAgent(ctx, &incident, &agent)
		log.WithAgentID(agent.ID).Info("Safety agent assigned")
	} else {
		log.Warn("No safety agent available, incident proceeds unassigned")
	}

	s.notifier.NotifyContacts(ctx, &incident)
	s.scheduler.Arm(incident.ID)

	s.bus.PublishIncidentTriggered(events.IncidentTriggered{Incident: incident})

	return &incident, true, nil
}

// CancelSOS is the user's own cancel. At LEVEL_1 with no escalation it
// closes the incident outright; past that the user must verify the safety
// PIN first, because a coerced or compromised phone can press cancel too.
func (s *sosService) CancelSOS(ctx context.Context, incidentID, userID primitive.ObjectID, reason string) (*models.CancelResult, error) {
	incident, err := s.store.Get(incidentID)
	if err != nil {
		return nil, err
	}
	if incident.UserID != userID {
		return nil, ErrNotAuthorized
	}
	if !incident.IsLive() {
		return nil, ErrIncidentNotLive
	}

	if incident.Status == models.IncidentStatusActive && incident.EscalationLevel == models.EscalationLevel1 {
		closed, err := s.closeIncident(ctx, incidentID, models.IncidentStatusCancelled, models.ResolutionUserCancelled, reason,
			models.CancelledData{UserID: userID, Reason: reason, Verified: false})
		if err != nil {
			return nil, err
		}
		return &models.CancelResult{Success: true, Message: "SOS cancelled", Incident: closed}, nil
	}

	s.timeline.Record(incidentID, models.CancellationRequestedData{
		UserID:               userID,
		Reason:               reason,
		VerificationRequired: true,
	})
	s.logger.WithIncidentID(incidentID).WithUserID(userID).
		WithField("level", incident.EscalationLevel.String()).
		Info("Cancellation requires PIN verification")

	return &models.CancelResult{
		VerificationRequired: true,
		Message:              "Incident has escalated; enter your safety PIN to cancel",
	}, nil
}

// VerifyCancellation completes a PIN-gated cancel. Failures are counted per
// incident and capped; a correct PIN closes the incident as verified.
func (s *sosService) VerifyCancellation(ctx context.Context, incidentID, userID primitive.ObjectID, pin string) (*models.CancelResult, error) {
	incident, err := s.store.Get(incidentID)
	if err != nil {
		return nil, err
	}
	if incident.UserID != userID {
		return nil, ErrNotAuthorized
	}
	if !incident.IsLive() {
		return nil, ErrIncidentNotLive
	}

	if s.directory.PinAttempts(ctx, incidentID) >= maxPinAttempts {
		return &models.CancelResult{Message: "Too many failed attempts; a safety agent will contact you"}, nil
	}

	ok, err := s.directory.VerifyPin(ctx, userID, pin)
	if err != nil {
		return nil, fmt.Errorf("pin verification failed: %w", err)
	}
	if !ok {
		attempt := s.directory.RecordPinFailure(ctx, incidentID)
		s.timeline.Record(incidentID, models.PinVerificationFailedData{Attempt: attempt})
		s.logger.WithIncidentID(incidentID).WithUserID(userID).
			WithField("attempt", attempt).Warn("PIN verification failed")
		return &models.CancelResult{Message: "Incorrect PIN"}, nil
	}

	closed, err := s.closeIncident(ctx, incidentID, models.IncidentStatusCancelled, models.ResolutionUserVerifiedCancel, "",
		models.CancelledData{UserID: userID, Verified: true})
	if err != nil {
		return nil, err
	}

	return &models.CancelResult{Success: true, Message: "SOS cancelled", Incident: closed}, nil
}

// RespondToSOS applies one agent action. The first response of any kind
// stamps the response time; actions on a closed incident fail with
// ErrIncidentNotLive.
func (s *sosService) RespondToSOS(ctx context.Context, response *models.SOSResponse) (*models.Incident, error) {
	agent, ok := s.pool.Get(response.AgentID)
	if !ok {
		return nil, ErrAgentNotFound
	}

	incident, err := s.store.Get(response.IncidentID)
	if err != nil {
		return nil, err
	}
	if !incident.IsLive() {
		return nil, ErrIncidentNotLive
	}

	incident, recorded, err := s.store.MarkFirstResponse(response.IncidentID)
	if err != nil {
		return nil, err
	}
	if recorded {
		s.logger.WithIncidentID(incident.ID).WithAgentID(agent.ID).
			WithField("response_time_seconds", incident.ResponseTimeSeconds()).
			Info("First agent response")
	}

	s.timeline.Record(incident.ID, models.AgentRespondedData{
		AgentID:             agent.ID,
		Action:              response.Action,
		Notes:               response.Notes,
		ResponseTimeSeconds: incident.ResponseTimeSeconds(),
	})

	switch response.Action {
	case models.AgentActionAcknowledge:
		incident, err = s.store.Acknowledge(response.IncidentID)
		if err != nil {
			return nil, err
		}

	case models.AgentActionContactUser:
		phone, callErr := s.notifier.PlaceUserCallback(ctx, &incident)
		if callErr != nil {
			s.logger.WithIncidentID(incident.ID).WithError(callErr).Warn("User callback failed")
		}
		s.timeline.Record(incident.ID, models.CallbackInitiatedData{AgentID: agent.ID, Phone: phone})
		if incident, err = s.store.Acknowledge(response.IncidentID); err != nil {
			return nil, err
		}

	case models.AgentActionEscalate:
		outcome, escErr := s.store.Escalate(response.IncidentID, models.EscalationLevel4)
		if escErr != nil {
			return nil, escErr
		}
		if outcome.Applied {
			incident = outcome.Incident
			s.recordEscalation(ctx, outcome, "manual", response.EscalationReason, &agent.ID)
		}

	case models.AgentActionDispatch:
		s.ensureEmergencyServicesDispatch(ctx, &incident, "manual")

	case models.AgentActionResolve:
		closed, closeErr := s.closeIncident(ctx, response.IncidentID, models.IncidentStatusResolved, models.ResolutionAgentResolved, response.Notes,
			models.ResolvedData{AgentID: agent.ID, Notes: response.Notes})
		if closeErr != nil {
			return nil, closeErr
		}
		s.pool.RecordResolution(agent.ID, closed.ResponseTimeSeconds())
		incident = *closed

	default:
		return nil, ErrUnknownAction
	}

	s.bus.PublishAgentResponded(events.AgentResponded{Incident: incident, Action: response.Action})

	return &incident, nil
}

// MarkAsFalseAlarm closes the incident as a false alarm on an agent's
// judgement.
func (s *sosService) MarkAsFalseAlarm(ctx context.Context, incidentID, agentID primitive.ObjectID, reason string) (*models.Incident, error) {
	if _, ok := s.pool.Get(agentID); !ok {
		return nil, ErrAgentNotFound
	}

	closed, err := s.closeIncident(ctx, incidentID, models.IncidentStatusFalseAlarm, models.ResolutionFalseAlarm, reason,
		models.FalseAlarmData{AgentID: agentID, Reason: reason})
	if err != nil {
		return nil, err
	}

	return closed, nil
}

// StreamAudioChunk feeds captured audio into the incident's session. Chunks
// for closed incidents are dropped by the session manager.
func (s *sosService) StreamAudioChunk(incidentID primitive.ObjectID, chunk []byte) {
	s.audio.AppendChunk(incidentID, chunk)
}

func (s *sosService) GetIncident(incidentID primitive.ObjectID) (*models.Incident, error) {
	incident, err := s.store.Get(incidentID)
	if err != nil {
		return nil, err
	}
	return &incident, nil
}

func (s *sosService) GetIncidentTimeline(incidentID primitive.ObjectID) ([]*models.TimelineEntry, error) {
	if _, err := s.store.Get(incidentID); err != nil {
		return nil, err
	}
	return s.timeline.Entries(incidentID), nil
}

func (s *sosService) GetActiveIncidents() []models.Incident {
	return s.store.Active()
}

func (s *sosService) GetActiveSOSForUser(userID primitive.ObjectID) (*models.Incident, bool) {
	incident, ok := s.store.GetActiveForUser(userID)
	if !ok {
		return nil, false
	}
	return &incident, true
}

func (s *sosService) GetAgentIncidents(agentID primitive.ObjectID) []models.Incident {
	var out []models.Incident
	for _, incidentID := range s.pool.IncidentsForAgent(agentID) {
		if incident, err := s.store.Get(incidentID); err == nil {
			out = append(out, incident)
		}
	}
	return out
}

// HandleCheckpoint is the deadline callback. It re-reads incident state and
// no-ops for closed incidents and for incidents a manual escalation already
// carried past the target; otherwise it advances exactly one level.
func (s *sosService) HandleCheckpoint(incidentID primitive.ObjectID, target models.EscalationLevel) {
	ctx := context.Background()

	incident, err := s.store.Get(incidentID)
	if err != nil {
		return
	}
	if !incident.IsLive() {
		s.logger.WithIncidentID(incidentID).
			WithField("target", target.String()).
			Debug("Checkpoint fired for closed incident, ignoring")
		return
	}

	outcome, err := s.store.Escalate(incidentID, target)
	if err != nil || !outcome.Applied {
		return
	}

	s.recordEscalation(ctx, outcome, "checkpoint", "", nil)
}

// recordEscalation appends the timeline entry, runs the side effects of the
// newly reached level and publishes the event. Shared by checkpoints and
// manual agent escalation.
func (s *sosService) recordEscalation(ctx context.Context, outcome EscalationOutcome, source, reason string, agentID *primitive.ObjectID) {
	incident := outcome.Incident

	s.timeline.Record(incident.ID, models.EscalatedData{
		FromLevel: outcome.FromLevel,
		ToLevel:   outcome.ToLevel,
		Source:    source,
		Reason:    reason,
		AgentID:   agentID,
	})

	s.logger.WithIncidentID(incident.ID).
		WithField("from", outcome.FromLevel.String()).
		WithField("to", outcome.ToLevel.String()).
		WithField("source", source).
		Warn("Incident escalated")

	switch outcome.ToLevel {
	case models.EscalationLevel2:
		notified := s.notifier.AlertSeniorAgents(ctx, &incident)
		s.timeline.Record(incident.ID, models.SeniorAgentsAlertedData{AgentsNotified: notified})

	case models.EscalationLevel3:
		country, number, err := s.notifier.ContactLawEnforcement(ctx, &incident)
		if err != nil {
			s.logger.WithIncidentID(incident.ID).WithError(err).Error("Law enforcement contact failed")
		}
		s.timeline.Record(incident.ID, models.LawEnforcementContactedData{
			CountryCode:     country,
			EmergencyNumber: number,
		})

		notified := s.notifier.AlertManagers(ctx, &incident)
		s.timeline.Record(incident.ID, models.ManagersAlertedData{ManagersNotified: notified})

	case models.EscalationLevel4:
		notified := s.notifier.AllHandsAlert(ctx, &incident)
		s.timeline.Record(incident.ID, models.AllHandsAlertedData{RespondersNotified: notified})
		s.ensureEmergencyServicesDispatch(ctx, &incident, source)
	}

	s.bus.PublishIncidentEscalated(events.IncidentEscalated{
		Incident:  incident,
		FromLevel: outcome.FromLevel,
		ToLevel:   outcome.ToLevel,
		Source:    source,
	})
}

// ensureEmergencyServicesDispatch places the emergency-services call at most
// once per incident, however many paths ask for it. The timeline entry is
// the idempotency record.
func (s *sosService) ensureEmergencyServicesDispatch(ctx context.Context, incident *models.Incident, source string) {
	if s.timeline.HasEvent(incident.ID, models.EventEmergencyServicesDispatched) {
		s.logger.WithIncidentID(incident.ID).Debug("Emergency services already dispatched, skipping")
		return
	}

	_, number, err := s.notifier.ContactLawEnforcement(ctx, incident)
	if err != nil {
		s.logger.WithIncidentID(incident.ID).WithError(err).Error("Emergency services dispatch call failed")
	}

	s.timeline.Record(incident.ID, models.EmergencyServicesDispatchedData{
		Source:          source,
		EmergencyNumber: number,
	})
}

// closeIncident is the single terminal path: it moves the incident to a
// terminal status, stops and persists audio, releases the assigned agent's
// load and publishes the closure. The store guarantees it runs its effects
// for a given incident at most once.
func (s *sosService) closeIncident(ctx context.Context, incidentID primitive.ObjectID, status models.IncidentStatus, resolution models.ResolutionType, notes string, data models.TimelineEventData) (*models.Incident, error) {
	incident, err := s.store.Close(incidentID, status, resolution, notes)
	if err != nil {
		return nil, err
	}

	s.timeline.Record(incidentID, data)

	if session, ok := s.audio.Stop(ctx, incidentID); ok {
		s.timeline.Record(incidentID, models.AudioSessionEndedData{
			SessionID:     session.ID,
			RecordingURL:  session.URL,
			BytesCaptured: session.BytesCaptured,
		})
		if session.URL != "" {
			if err := s.store.SetAudioRecordingURL(incidentID, session.URL); err == nil {
				incident.AudioRecordingURL = session.URL
			}
		}
	}

	if agent, ok := s.pool.Release(incidentID); ok {
		s.timeline.Record(incidentID, models.AgentReleasedData{AgentID: agent.ID})
	}

	s.logger.WithIncidentID(incidentID).
		WithField("status", string(status)).
		WithField("resolution", string(resolution)).
		Info("Incident closed")

	s.bus.PublishIncidentClosed(events.IncidentClosed{Incident: incident, Resolution: resolution})

	return &incident, nil
}
