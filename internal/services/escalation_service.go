package services

import (
	"time"

	"lifeline/pkg/logger"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"lifeline/internal/models"
)

// DefaultCheckpointOffsets are the escalation deadlines measured from the
// trigger: LEVEL_2 at T+60s, LEVEL_3 at T+120s, LEVEL_4 at T+180s.
var DefaultCheckpointOffsets = []time.Duration{
	60 * time.Second,
	120 * time.Second,
	180 * time.Second,
}

// CheckpointFunc is invoked when a checkpoint deadline fires. The target is
// the level the checkpoint argues for; the callee decides whether the
// incident still qualifies.
type CheckpointFunc func(incidentID primitive.ObjectID, target models.EscalationLevel)

// EscalationScheduler arms the deadline checkpoints for an incident. Timers
// are never cancelled on resolution; every checkpoint re-reads incident
// state when it fires and no-ops if the incident is no longer live.
type EscalationScheduler interface {
	Arm(incidentID primitive.ObjectID)
}

type escalationScheduler struct {
	clock      Clock
	offsets    []time.Duration
	checkpoint CheckpointFunc
	logger     *logger.Logger
}

// NewEscalationScheduler builds the scheduler. Offsets must be strictly
// increasing; offset i argues for level i+2 (the first checkpoint targets
// LEVEL_2). Nil offsets fall back to the 60/120/180s defaults.
func NewEscalationScheduler(clock Clock, offsets []time.Duration, checkpoint CheckpointFunc, log *logger.Logger) EscalationScheduler {
	if len(offsets) == 0 {
		offsets = DefaultCheckpointOffsets
	}
	return &escalationScheduler{
		clock:      clock,
		offsets:    offsets,
		checkpoint: checkpoint,
		logger:     log,
	}
}

func (s *escalationScheduler) Arm(incidentID primitive.ObjectID) {
	for i, offset := range s.offsets {
		target := models.EscalationLevel(i + 2)
		s.clock.Schedule(offset, func() {
			s.checkpoint(incidentID, target)
		})
	}

	s.logger.WithIncidentID(incidentID).
		WithField("checkpoints", len(s.offsets)).
		Debug("Escalation checkpoints armed")
}
