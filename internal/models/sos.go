package models

import (
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type AgentAction string

const (
	AgentActionAcknowledge AgentAction = "acknowledge"
	AgentActionContactUser AgentAction = "contact_user"
	AgentActionEscalate    AgentAction = "escalate"
	AgentActionDispatch    AgentAction = "dispatch"
	AgentActionResolve     AgentAction = "resolve"
)

// TriggerSOSParams is the payload of a trigger call. A duplicate trigger for
// a user with a live incident only refreshes the current location.
type TriggerSOSParams struct {
	UserID        primitive.ObjectID  `json:"user_id" validate:"required"`
	TripID        *primitive.ObjectID `json:"trip_id,omitempty"`
	DriverID      *primitive.ObjectID `json:"driver_id,omitempty"`
	TriggerMethod TriggerMethod       `json:"trigger_method" validate:"required"`
	Location      GeoPoint            `json:"location" validate:"required"`
	BatteryLevel  *int                `json:"battery_level,omitempty"`
	NetworkType   string              `json:"network_type,omitempty"`
}

// SOSResponse is one agent action against an incident.
type SOSResponse struct {
	IncidentID       primitive.ObjectID `json:"incident_id" validate:"required"`
	AgentID          primitive.ObjectID `json:"agent_id" validate:"required"`
	Action           AgentAction        `json:"action" validate:"required"`
	Notes            string             `json:"notes,omitempty"`
	EscalationReason string             `json:"escalation_reason,omitempty"`
}

// CancelResult distinguishes a plain failure from the verification gate:
// above LEVEL_1 a cancel is refused until the user proves the PIN.
type CancelResult struct {
	Success              bool      `json:"success"`
	VerificationRequired bool      `json:"verification_required,omitempty"`
	Message              string    `json:"message,omitempty"`
	Incident             *Incident `json:"incident,omitempty"`
}
