package services

import (
	"sync"

	"lifeline/internal/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// IncidentStore is the authoritative in-memory registry of incidents. It
// owns the status state machine and the single-active-incident-per-user
// index; all orchestration and side effects live in the coordinator.
type IncidentStore interface {
	Trigger(params *models.TriggerSOSParams) (models.Incident, bool)
	Get(id primitive.ObjectID) (models.Incident, error)
	GetActiveForUser(userID primitive.ObjectID) (models.Incident, bool)
	Active() []models.Incident
	SetAssignedAgent(id, agentID primitive.ObjectID) error
	SetAudioRecordingURL(id primitive.ObjectID, url string) error
	MarkFirstResponse(id primitive.ObjectID) (models.Incident, bool, error)
	Acknowledge(id primitive.ObjectID) (models.Incident, error)
	Escalate(id primitive.ObjectID, target models.EscalationLevel) (EscalationOutcome, error)
	Close(id primitive.ObjectID, status models.IncidentStatus, resolution models.ResolutionType, notes string) (models.Incident, error)
}

// EscalationOutcome reports whether a checkpoint or manual escalate actually
// advanced the level. A stale checkpoint observes Applied == false.
type EscalationOutcome struct {
	Applied   bool
	FromLevel models.EscalationLevel
	ToLevel   models.EscalationLevel
	Incident  models.Incident
}

type incidentStore struct {
	clock Clock

	mu           sync.RWMutex
	byID         map[primitive.ObjectID]*models.Incident
	activeByUser map[primitive.ObjectID]primitive.ObjectID
}

func NewIncidentStore(clock Clock) IncidentStore {
	return &incidentStore{
		clock:        clock,
		byID:         make(map[primitive.ObjectID]*models.Incident),
		activeByUser: make(map[primitive.ObjectID]primitive.ObjectID),
	}
}

// Trigger returns the user's live incident if one exists, refreshing only
// its current location (duplicate triggers are idempotent). Otherwise it
// creates a new ACTIVE LEVEL_1 incident and returns created == true.
func (s *incidentStore) Trigger(params *models.TriggerSOSParams) (models.Incident, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existingID, ok := s.activeByUser[params.UserID]; ok {
		existing := s.byID[existingID]
		existing.CurrentLocation = params.Location
		return *existing, false
	}

	now := s.clock.Now()
	incident := &models.Incident{
		ID:              primitive.NewObjectID(),
		UserID:          params.UserID,
		TripID:          params.TripID,
		DriverID:        params.DriverID,
		TriggerMethod:   params.TriggerMethod,
		Status:          models.IncidentStatusActive,
		EscalationLevel: models.EscalationLevel1,
		TriggerLocation: params.Location,
		CurrentLocation: params.Location,
		BatteryLevel:    params.BatteryLevel,
		NetworkType:     params.NetworkType,
		TriggeredAt:     now,
	}

	s.byID[incident.ID] = incident
	s.activeByUser[params.UserID] = incident.ID

	return *incident, true
}

func (s *incidentStore) Get(id primitive.ObjectID) (models.Incident, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	incident, ok := s.byID[id]
	if !ok {
		return models.Incident{}, ErrIncidentNotFound
	}
	return *incident, nil
}

func (s *incidentStore) GetActiveForUser(userID primitive.ObjectID) (models.Incident, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.activeByUser[userID]
	if !ok {
		return models.Incident{}, false
	}
	return *s.byID[id], true
}

func (s *incidentStore) Active() []models.Incident {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Incident, 0, len(s.activeByUser))
	for _, id := range s.activeByUser {
		out = append(out, *s.byID[id])
	}
	return out
}

func (s *incidentStore) SetAssignedAgent(id, agentID primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	incident, ok := s.byID[id]
	if !ok {
		return ErrIncidentNotFound
	}
	incident.AssignedAgentID = &agentID
	return nil
}

func (s *incidentStore) SetAudioRecordingURL(id primitive.ObjectID, url string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	incident, ok := s.byID[id]
	if !ok {
		return ErrIncidentNotFound
	}
	incident.AudioRecordingURL = url
	return nil
}

// MarkFirstResponse stamps the first-response time exactly once. The second
// return value reports whether this call recorded it.
func (s *incidentStore) MarkFirstResponse(id primitive.ObjectID) (models.Incident, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	incident, ok := s.byID[id]
	if !ok {
		return models.Incident{}, false, ErrIncidentNotFound
	}
	if incident.FirstResponseAt != nil {
		return *incident, false, nil
	}

	now := s.clock.Now()
	incident.FirstResponseAt = &now
	return *incident, true, nil
}

func (s *incidentStore) Acknowledge(id primitive.ObjectID) (models.Incident, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	incident, ok := s.byID[id]
	if !ok {
		return models.Incident{}, ErrIncidentNotFound
	}
	if incident.Status.IsTerminal() {
		return *incident, ErrIncidentNotLive
	}
	if incident.Status == models.IncidentStatusActive {
		incident.Status = models.IncidentStatusResponded
	}
	return *incident, nil
}

// Escalate advances exactly one level when the current level is below the
// target, leaving an already-further-escalated incident untouched. Levels
// are monotonically non-decreasing for the life of an unresolved incident.
func (s *incidentStore) Escalate(id primitive.ObjectID, target models.EscalationLevel) (EscalationOutcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	incident, ok := s.byID[id]
	if !ok {
		return EscalationOutcome{}, ErrIncidentNotFound
	}
	if incident.Status.IsTerminal() {
		return EscalationOutcome{Incident: *incident}, ErrIncidentNotLive
	}
	if incident.EscalationLevel >= target {
		return EscalationOutcome{Applied: false, FromLevel: incident.EscalationLevel, ToLevel: incident.EscalationLevel, Incident: *incident}, nil
	}

	from := incident.EscalationLevel
	incident.EscalationLevel = from.Next()
	incident.Status = models.IncidentStatusEscalated

	return EscalationOutcome{
		Applied:   true,
		FromLevel: from,
		ToLevel:   incident.EscalationLevel,
		Incident:  *incident,
	}, nil
}

// Close moves the incident to a terminal status and drops it from the live
// index. An incident leaves the live registry exactly once; a second Close
// returns ErrIncidentNotLive.
func (s *incidentStore) Close(id primitive.ObjectID, status models.IncidentStatus, resolution models.ResolutionType, notes string) (models.Incident, error) {
	if !status.IsTerminal() {
		return models.Incident{}, ErrIncidentNotLive
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	incident, ok := s.byID[id]
	if !ok {
		return models.Incident{}, ErrIncidentNotFound
	}
	if incident.Status.IsTerminal() {
		return *incident, ErrIncidentNotLive
	}

	now := s.clock.Now()
	incident.Status = status
	incident.ResolutionType = resolution
	incident.ResolutionNotes = notes
	incident.ResolvedAt = &now

	delete(s.activeByUser, incident.UserID)

	return *incident, nil
}
