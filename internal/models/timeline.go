package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type TimelineEventType string

const (
	EventSOSTriggered                TimelineEventType = "sos_triggered"
	EventLocationUpdated             TimelineEventType = "location_updated"
	EventAudioSessionStarted         TimelineEventType = "audio_session_started"
	EventAudioSessionEnded           TimelineEventType = "audio_session_ended"
	EventAgentAssigned               TimelineEventType = "agent_assigned"
	EventAgentReleased               TimelineEventType = "agent_released"
	EventContactNotified             TimelineEventType = "contact_notified"
	EventEscalated                   TimelineEventType = "escalated"
	EventSeniorAgentsAlerted         TimelineEventType = "senior_agents_alerted"
	EventManagersAlerted             TimelineEventType = "managers_alerted"
	EventLawEnforcementContacted     TimelineEventType = "law_enforcement_contacted"
	EventAllHandsAlerted             TimelineEventType = "all_hands_alerted"
	EventEmergencyServicesDispatched TimelineEventType = "emergency_services_dispatched"
	EventAgentResponded              TimelineEventType = "agent_responded"
	EventCallbackInitiated           TimelineEventType = "callback_initiated"
	EventCancellationRequested       TimelineEventType = "cancellation_requested"
	EventPinVerificationFailed       TimelineEventType = "pin_verification_failed"
	EventCancelled                   TimelineEventType = "cancelled"
	EventResolved                    TimelineEventType = "resolved"
	EventFalseAlarm                  TimelineEventType = "false_alarm"
)

// TimelineEventData is the closed set of structured payloads a timeline
// entry can carry. Every event type has exactly one payload variant.
type TimelineEventData interface {
	EventType() TimelineEventType
}

// TimelineEntry is immutable once appended. Ordering within an incident is
// creation order.
type TimelineEntry struct {
	ID         primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	IncidentID primitive.ObjectID `json:"incident_id" bson:"incident_id"`
	Type       TimelineEventType  `json:"type" bson:"type"`
	Data       TimelineEventData  `json:"data" bson:"data"`
	Timestamp  time.Time          `json:"timestamp" bson:"timestamp"`
}

type SOSTriggeredData struct {
	Method       TriggerMethod `json:"method"`
	Location     GeoPoint      `json:"location"`
	BatteryLevel *int          `json:"battery_level,omitempty"`
	NetworkType  string        `json:"network_type,omitempty"`
}

func (SOSTriggeredData) EventType() TimelineEventType { return EventSOSTriggered }

type LocationUpdatedData struct {
	Location GeoPoint `json:"location"`
}

func (LocationUpdatedData) EventType() TimelineEventType { return EventLocationUpdated }

type AudioSessionStartedData struct {
	SessionID primitive.ObjectID `json:"session_id"`
}

func (AudioSessionStartedData) EventType() TimelineEventType { return EventAudioSessionStarted }

type AudioSessionEndedData struct {
	SessionID    primitive.ObjectID `json:"session_id"`
	RecordingURL string             `json:"recording_url,omitempty"`
	BytesCaptured int64             `json:"bytes_captured"`
}

func (AudioSessionEndedData) EventType() TimelineEventType { return EventAudioSessionEnded }

type AgentAssignedData struct {
	AgentID   primitive.ObjectID `json:"agent_id"`
	AgentName string             `json:"agent_name,omitempty"`
	AgentLoad int                `json:"agent_load"`
}

func (AgentAssignedData) EventType() TimelineEventType { return EventAgentAssigned }

type AgentReleasedData struct {
	AgentID primitive.ObjectID `json:"agent_id"`
}

func (AgentReleasedData) EventType() TimelineEventType { return EventAgentReleased }

type ContactNotifiedData struct {
	ContactID primitive.ObjectID  `json:"contact_id"`
	Channel   NotificationChannel `json:"channel"`
	Status    string              `json:"status"`
}

func (ContactNotifiedData) EventType() TimelineEventType { return EventContactNotified }

type EscalatedData struct {
	FromLevel EscalationLevel     `json:"from_level"`
	ToLevel   EscalationLevel     `json:"to_level"`
	Source    string              `json:"source"` // checkpoint, manual
	Reason    string              `json:"reason,omitempty"`
	AgentID   *primitive.ObjectID `json:"agent_id,omitempty"`
}

func (EscalatedData) EventType() TimelineEventType { return EventEscalated }

type SeniorAgentsAlertedData struct {
	AgentsNotified int `json:"agents_notified"`
}

func (SeniorAgentsAlertedData) EventType() TimelineEventType { return EventSeniorAgentsAlerted }

type ManagersAlertedData struct {
	ManagersNotified int `json:"managers_notified"`
}

func (ManagersAlertedData) EventType() TimelineEventType { return EventManagersAlerted }

type LawEnforcementContactedData struct {
	CountryCode     string `json:"country_code"`
	EmergencyNumber string `json:"emergency_number"`
}

func (LawEnforcementContactedData) EventType() TimelineEventType {
	return EventLawEnforcementContacted
}

type AllHandsAlertedData struct {
	RespondersNotified int `json:"responders_notified"`
}

func (AllHandsAlertedData) EventType() TimelineEventType { return EventAllHandsAlerted }

type EmergencyServicesDispatchedData struct {
	Source          string `json:"source"` // checkpoint, manual
	EmergencyNumber string `json:"emergency_number"`
}

func (EmergencyServicesDispatchedData) EventType() TimelineEventType {
	return EventEmergencyServicesDispatched
}

type AgentRespondedData struct {
	AgentID             primitive.ObjectID `json:"agent_id"`
	Action              AgentAction        `json:"action"`
	Notes               string             `json:"notes,omitempty"`
	ResponseTimeSeconds float64            `json:"response_time_seconds,omitempty"`
}

func (AgentRespondedData) EventType() TimelineEventType { return EventAgentResponded }

type CallbackInitiatedData struct {
	AgentID primitive.ObjectID `json:"agent_id"`
	Phone   string             `json:"phone"`
}

func (CallbackInitiatedData) EventType() TimelineEventType { return EventCallbackInitiated }

type CancellationRequestedData struct {
	UserID               primitive.ObjectID `json:"user_id"`
	Reason               string             `json:"reason,omitempty"`
	VerificationRequired bool               `json:"verification_required"`
}

func (CancellationRequestedData) EventType() TimelineEventType { return EventCancellationRequested }

type PinVerificationFailedData struct {
	Attempt int `json:"attempt"`
}

func (PinVerificationFailedData) EventType() TimelineEventType { return EventPinVerificationFailed }

type CancelledData struct {
	UserID   primitive.ObjectID `json:"user_id"`
	Reason   string             `json:"reason,omitempty"`
	Verified bool               `json:"verified"`
}

func (CancelledData) EventType() TimelineEventType { return EventCancelled }

type ResolvedData struct {
	AgentID primitive.ObjectID `json:"agent_id"`
	Notes   string             `json:"notes,omitempty"`
}

func (ResolvedData) EventType() TimelineEventType { return EventResolved }

type FalseAlarmData struct {
	AgentID primitive.ObjectID `json:"agent_id"`
	Reason  string             `json:"reason,omitempty"`
}

func (FalseAlarmData) EventType() TimelineEventType { return EventFalseAlarm }
