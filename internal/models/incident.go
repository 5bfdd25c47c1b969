package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type IncidentStatus string
type EscalationLevel int
type TriggerMethod string
type ResolutionType string

const (
	IncidentStatusActive     IncidentStatus = "active"
	IncidentStatusResponded  IncidentStatus = "responded"
	IncidentStatusEscalated  IncidentStatus = "escalated"
	IncidentStatusResolved   IncidentStatus = "resolved"
	IncidentStatusCancelled  IncidentStatus = "cancelled"
	IncidentStatusFalseAlarm IncidentStatus = "false_alarm"
)

const (
	EscalationLevel1 EscalationLevel = 1
	EscalationLevel2 EscalationLevel = 2
	EscalationLevel3 EscalationLevel = 3
	EscalationLevel4 EscalationLevel = 4
)

const (
	TriggerMethodButton        TriggerMethod = "button"
	TriggerMethodVoice         TriggerMethod = "voice"
	TriggerMethodShake         TriggerMethod = "shake"
	TriggerMethodAuto          TriggerMethod = "auto"
	TriggerMethodCrashDetected TriggerMethod = "crash_detected"
)

const (
	ResolutionUserCancelled      ResolutionType = "user_cancelled"
	ResolutionUserVerifiedCancel ResolutionType = "user_verified_cancel"
	ResolutionAgentResolved      ResolutionType = "agent_resolved"
	ResolutionFalseAlarm         ResolutionType = "false_alarm"
)

// Incident is one SOS episode from trigger to terminal resolution.
type Incident struct {
	ID              primitive.ObjectID  `json:"id" bson:"_id,omitempty"`
	UserID          primitive.ObjectID  `json:"user_id" bson:"user_id" validate:"required"`
	TripID          *primitive.ObjectID `json:"trip_id,omitempty" bson:"trip_id,omitempty"`
	DriverID        *primitive.ObjectID `json:"driver_id,omitempty" bson:"driver_id,omitempty"`
	TriggerMethod   TriggerMethod       `json:"trigger_method" bson:"trigger_method" validate:"required"`
	Status          IncidentStatus      `json:"status" bson:"status"`
	EscalationLevel EscalationLevel     `json:"escalation_level" bson:"escalation_level"`
	TriggerLocation GeoPoint            `json:"trigger_location" bson:"trigger_location" validate:"required"`
	CurrentLocation GeoPoint            `json:"current_location" bson:"current_location"`
	BatteryLevel    *int                `json:"battery_level,omitempty" bson:"battery_level,omitempty"`
	NetworkType     string              `json:"network_type,omitempty" bson:"network_type,omitempty"`
	AssignedAgentID *primitive.ObjectID `json:"assigned_agent_id,omitempty" bson:"assigned_agent_id,omitempty"`
	AudioRecordingURL string            `json:"audio_recording_url,omitempty" bson:"audio_recording_url,omitempty"`
	ResolutionType  ResolutionType      `json:"resolution_type,omitempty" bson:"resolution_type,omitempty"`
	ResolutionNotes string              `json:"resolution_notes,omitempty" bson:"resolution_notes,omitempty"`
	TriggeredAt     time.Time           `json:"triggered_at" bson:"triggered_at"`
	FirstResponseAt *time.Time          `json:"first_response_at,omitempty" bson:"first_response_at,omitempty"`
	ResolvedAt      *time.Time          `json:"resolved_at,omitempty" bson:"resolved_at,omitempty"`
}

// IsTerminal reports whether the incident has left the live registry.
func (s IncidentStatus) IsTerminal() bool {
	return s == IncidentStatusResolved || s == IncidentStatusCancelled || s == IncidentStatusFalseAlarm
}

// IsLive is the liveness guard used by escalation checkpoints.
func (i *Incident) IsLive() bool {
	return !i.Status.IsTerminal()
}

// ResponseTimeSeconds is derived from the trigger and first-response timestamps.
func (i *Incident) ResponseTimeSeconds() float64 {
	if i.FirstResponseAt == nil {
		return 0
	}
	return i.FirstResponseAt.Sub(i.TriggeredAt).Seconds()
}

func (l EscalationLevel) String() string {
	switch l {
	case EscalationLevel1:
		return "level_1"
	case EscalationLevel2:
		return "level_2"
	case EscalationLevel3:
		return "level_3"
	case EscalationLevel4:
		return "level_4"
	default:
		return "unknown"
	}
}

// Next returns the level one step up, capped at LEVEL_4.
func (l EscalationLevel) Next() EscalationLevel {
	if l >= EscalationLevel4 {
		return EscalationLevel4
	}
	return l + 1
}
