package services

import (
	"sync"

	"lifeline/internal/models"
	"lifeline/pkg/logger"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// TimelineRecorder is the append-only audit log. Every state change and side
// effect is recorded here before it is otherwise observable; entries are
// never mutated or removed.
type TimelineRecorder interface {
	Record(incidentID primitive.ObjectID, data models.TimelineEventData) *models.TimelineEntry
	Entries(incidentID primitive.ObjectID) []*models.TimelineEntry
	HasEvent(incidentID primitive.ObjectID, eventType models.TimelineEventType) bool
}

type timelineRecorder struct {
	clock   Clock
	logger  *logger.Logger
	mu      sync.RWMutex
	entries map[primitive.ObjectID][]*models.TimelineEntry
}

func NewTimelineRecorder(clock Clock, log *logger.Logger) TimelineRecorder {
	return &timelineRecorder{
		clock:   clock,
		logger:  log,
		entries: make(map[primitive.ObjectID][]*models.TimelineEntry),
	}
}

func (r *timelineRecorder) Record(incidentID primitive.ObjectID, data models.TimelineEventData) *models.TimelineEntry {
	entry := &models.TimelineEntry{
		ID:         primitive.NewObjectID(),
		IncidentID: incidentID,
		Type:       data.EventType(),
		Data:       data,
		Timestamp:  r.clock.Now(),
	}

	r.mu.Lock()
	r.entries[incidentID] = append(r.entries[incidentID], entry)
	r.mu.Unlock()

	r.logger.LogIncidentEvent(incidentID, string(entry.Type), nil)

	return entry
}

// Entries returns the incident's log in creation order.
func (r *timelineRecorder) Entries(incidentID primitive.ObjectID) []*models.TimelineEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entries := r.entries[incidentID]
	out := make([]*models.TimelineEntry, len(entries))
	copy(out, entries)
	return out
}

// HasEvent backs the idempotency checks, e.g. the LEVEL_4 dispatch guard.
func (r *timelineRecorder) HasEvent(incidentID primitive.ObjectID, eventType models.TimelineEventType) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, entry := range r.entries[incidentID] {
		if entry.Type == eventType {
			return true
		}
	}
	return false
}
