package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type AgentRole string

const (
	AgentRoleAgent   AgentRole = "agent"
	AgentRoleSenior  AgentRole = "senior_agent"
	AgentRoleManager AgentRole = "manager"
)

// TeamSOSResponse is the team eligible for automatic incident assignment.
const TeamSOSResponse = "sos_response"

// SafetyAgent is a human responder with bounded concurrent-incident capacity.
type SafetyAgent struct {
	ID              primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Name            string             `json:"name" bson:"name"`
	Phone           string             `json:"phone" bson:"phone"`
	DeviceToken     string             `json:"device_token,omitempty" bson:"device_token,omitempty"`
	DevicePlatform  string             `json:"device_platform,omitempty" bson:"device_platform,omitempty"`
	Role            AgentRole          `json:"role" bson:"role"`
	Team            string             `json:"team" bson:"team"`
	IsOnDuty        bool               `json:"is_on_duty" bson:"is_on_duty"`
	MaxIncidents    int                `json:"max_incidents" bson:"max_incidents"`
	ActiveIncidents int                `json:"active_incidents" bson:"active_incidents"`
	TotalResolved   int                `json:"total_resolved" bson:"total_resolved"`
	AvgResponseTime *float64           `json:"avg_response_time,omitempty" bson:"avg_response_time,omitempty"`
	CreatedAt       time.Time          `json:"created_at" bson:"created_at"`
	UpdatedAt       time.Time          `json:"updated_at" bson:"updated_at"`
}

// HasCapacity reports whether the agent can take another incident.
func (a *SafetyAgent) HasCapacity() bool {
	return a.IsOnDuty && a.ActiveIncidents < a.MaxIncidents
}
