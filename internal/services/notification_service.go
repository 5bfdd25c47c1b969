package services

import (
	"context"
	"fmt"
	"sync"

	"lifeline/internal/models"
	"lifeline/internal/utils"
	"lifeline/pkg/geocode"
	"lifeline/pkg/logger"
	"lifeline/pkg/notify"
	"lifeline/pkg/push"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// NotificationService is the outbound side of an incident: contact fanout,
// responder alerts, law-enforcement calls and user callbacks. Every send is
// best-effort; a transport failure is recorded and logged but never stops
// the escalation path.
type NotificationService interface {
	NotifyContacts(ctx context.Context, incident *models.Incident) []models.NotificationRecord
	AlertSeniorAgents(ctx context.Context, incident *models.Incident) int
	AlertManagers(ctx context.Context, incident *models.Incident) int
	AllHandsAlert(ctx context.Context, incident *models.Incident) int
	AlertAssignedAgent(ctx context.Context, incident *models.Incident, agent *models.SafetyAgent)
	ContactLawEnforcement(ctx context.Context, incident *models.Incident) (countryCode, emergencyNumber string, err error)
	PlaceUserCallback(ctx context.Context, incident *models.Incident) (string, error)
	TrackingLink(incidentID primitive.ObjectID) string
}

type notificationService struct {
	clock     Clock
	provider  notify.Provider
	pusher    push.Provider
	geocoder  geocode.Geocoder
	directory DirectoryService
	pool      ResponderPool
	timeline  TimelineRecorder
	logger    *logger.Logger

	trackingBaseURL string

	mu            sync.Mutex
	trackingLinks map[primitive.ObjectID]string
}

// NewNotificationService builds the fanout. pusher and geocoder may be nil;
// push alerts and address lines are skipped when they are.
func NewNotificationService(
	clock Clock,
	provider notify.Provider,
	pusher push.Provider,
	geocoder geocode.Geocoder,
	directory DirectoryService,
	pool ResponderPool,
	timeline TimelineRecorder,
	trackingBaseURL string,
	log *logger.Logger,
) NotificationService {
	return &notificationService{
		clock:           clock,
		provider:        provider,
		pusher:          pusher,
		geocoder:        geocoder,
		directory:       directory,
		pool:            pool,
		timeline:        timeline,
		logger:          log,
		trackingBaseURL: trackingBaseURL,
		trackingLinks:   make(map[primitive.ObjectID]string),
	}
}

// TrackingLink returns the stable live-tracking URL for an incident. The
// same link is reused across every message about the incident.
func (s *notificationService) TrackingLink(incidentID primitive.ObjectID) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if link, ok := s.trackingLinks[incidentID]; ok {
		return link
	}
	link := s.trackingBaseURL + "/track/" + incidentID.Hex()
	s.trackingLinks[incidentID] = link
	return link
}

// NotifyContacts fans the alert out to the user's emergency contacts.
// Channel rules: SMS to everyone, WhatsApp where the contact enabled it, a
// voice call to primary contacts only.
func (s *notificationService) NotifyContacts(ctx context.Context, incident *models.Incident) []models.NotificationRecord {
	contacts, err := s.directory.GetEmergencyContacts(ctx, incident.UserID)
	if err != nil {
		s.logger.WithIncidentID(incident.ID).WithError(err).Error("Failed to load emergency contacts for fanout")
		return nil
	}
	if len(contacts) == 0 {
		s.logger.WithIncidentID(incident.ID).Warn("User has no emergency contacts configured")
		return nil
	}

	message := s.alertMessage(ctx, incident)
	callScript := s.callScript(incident)

	var records []models.NotificationRecord
	for _, contact := range contacts {
		records = append(records, s.sendToContact(ctx, incident, contact, models.ChannelSMS, message))

		if contact.WhatsAppEnabled {
			records = append(records, s.sendToContact(ctx, incident, contact, models.ChannelWhatsApp, message))
		}

		if contact.IsPrimary {
			records = append(records, s.sendToContact(ctx, incident, contact, models.ChannelCall, callScript))
		}
	}

	return records
}

func (s *notificationService) sendToContact(ctx context.Context, incident *models.Incident, contact *models.EmergencyContact, channel models.NotificationChannel, message string) models.NotificationRecord {
	var err error
	switch channel {
	case models.ChannelSMS:
		_, err = s.provider.SendSMS(ctx, &notify.MessageRequest{To: contact.PhoneNumber, Message: message})
	case models.ChannelWhatsApp:
		_, err = s.provider.SendWhatsApp(ctx, &notify.MessageRequest{To: contact.PhoneNumber, Message: message})
	case models.ChannelCall:
		_, err = s.provider.PlaceCall(ctx, &notify.CallRequest{To: contact.PhoneNumber, Message: message})
	}

	record := models.NotificationRecord{
		ContactID: contact.ID,
		Channel:   channel,
		Status:    "sent",
		SentAt:    s.clock.Now(),
	}
	if err != nil {
		record.Status = "failed"
		record.Error = err.Error()
	}

	s.logger.LogNotificationAttempt(incident.ID, string(channel), contact.PhoneNumber, record.Status, err)
	s.timeline.Record(incident.ID, models.ContactNotifiedData{
		ContactID: contact.ID,
		Channel:   channel,
		Status:    record.Status,
	})

	return record
}

// AlertSeniorAgents pages every on-duty senior agent and returns how many
// were reached for the timeline entry.
func (s *notificationService) AlertSeniorAgents(ctx context.Context, incident *models.Incident) int {
	return s.alertResponders(ctx, incident, s.pool.AgentsByRole(models.AgentRoleSenior),
		"SOS escalated to LEVEL_2")
}

func (s *notificationService) AlertManagers(ctx context.Context, incident *models.Incident) int {
	return s.alertResponders(ctx, incident, s.pool.AgentsByRole(models.AgentRoleManager),
		"SOS escalated to LEVEL_3")
}

// AllHandsAlert pages every on-duty responder regardless of role.
func (s *notificationService) AllHandsAlert(ctx context.Context, incident *models.Incident) int {
	return s.alertResponders(ctx, incident, s.pool.OnDutyAgents(),
		"SOS escalated to LEVEL_4 - all hands")
}

func (s *notificationService) alertResponders(ctx context.Context, incident *models.Incident, agents []models.SafetyAgent, title string) int {
	body := fmt.Sprintf("Incident %s at %s. %s", incident.ID.Hex(), s.locationLine(ctx, incident), s.TrackingLink(incident.ID))

	notified := 0
	for i := range agents {
		agent := &agents[i]

		_, smsErr := s.provider.SendSMS(ctx, &notify.MessageRequest{
			To:      agent.Phone,
			Message: title + ". " + body,
		})
		s.logger.LogNotificationAttempt(incident.ID, "sms", agent.Phone, sendStatus(smsErr), smsErr)

		s.pushToAgent(ctx, incident, agent, title, body)

		if smsErr == nil {
			notified++
		}
	}
	return notified
}

// AlertAssignedAgent pages the one agent who just got the incident.
func (s *notificationService) AlertAssignedAgent(ctx context.Context, incident *models.Incident, agent *models.SafetyAgent) {
	body := fmt.Sprintf("You are assigned to incident %s at %s", incident.ID.Hex(), s.locationLine(ctx, incident))
	s.pushToAgent(ctx, incident, agent, "SOS incident assigned", body)
}

func (s *notificationService) pushToAgent(ctx context.Context, incident *models.Incident, agent *models.SafetyAgent, title, body string) {
	if s.pusher == nil || agent.DeviceToken == "" {
		return
	}

	_, err := s.pusher.SendAlert(ctx, &push.AlertRequest{
		Token:      agent.DeviceToken,
		Title:      title,
		Body:       body,
		IncidentID: incident.ID.Hex(),
		Priority:   "high",
		Data: map[string]string{
			"incident_id": incident.ID.Hex(),
			"level":       incident.EscalationLevel.String(),
		},
	})
	s.logger.LogNotificationAttempt(incident.ID, "push", agent.DeviceToken, sendStatus(err), err)
}

// ContactLawEnforcement places an automated call to the emergency number for
// the user's country, falling back to 911 when the country is unknown.
func (s *notificationService) ContactLawEnforcement(ctx context.Context, incident *models.Incident) (string, string, error) {
	country, err := s.directory.GetUserCountry(ctx, incident.UserID)
	if err != nil {
		s.logger.WithIncidentID(incident.ID).WithError(err).Warn("Country lookup failed, using default emergency number")
		country = ""
	}

	number := utils.EmergencyNumberForCountry(country)
	script := fmt.Sprintf(
		"This is an automated emergency alert. A rider has an active SOS incident at %s. Incident reference %s.",
		s.locationLine(ctx, incident), incident.ID.Hex(),
	)

	_, err = s.provider.PlaceCall(ctx, &notify.CallRequest{To: number, Message: script})
	s.logger.LogNotificationAttempt(incident.ID, "call", number, sendStatus(err), err)
	if err != nil {
		return country, number, fmt.Errorf("law enforcement call failed: %w", err)
	}

	return country, number, nil
}

// PlaceUserCallback calls the user's phone so the agent can check on them.
func (s *notificationService) PlaceUserCallback(ctx context.Context, incident *models.Incident) (string, error) {
	phone, err := s.directory.GetUserPhone(ctx, incident.UserID)
	if err != nil {
		return "", fmt.Errorf("failed to load user phone: %w", err)
	}

	_, err = s.provider.PlaceCall(ctx, &notify.CallRequest{
		To:      phone,
		Message: "This is the safety team. We received your SOS and an agent is checking on you now.",
	})
	s.logger.LogNotificationAttempt(incident.ID, "call", phone, sendStatus(err), err)
	if err != nil {
		return phone, fmt.Errorf("callback failed: %w", err)
	}

	return phone, nil
}

func (s *notificationService) alertMessage(ctx context.Context, incident *models.Incident) string {
	return fmt.Sprintf(
		"EMERGENCY: your contact triggered an SOS alert. Last known location: %s. Follow live: %s",
		s.locationLine(ctx, incident), s.TrackingLink(incident.ID),
	)
}

func (s *notificationService) callScript(incident *models.Incident) string {
	return fmt.Sprintf(
		"This is an automated emergency alert. Your contact has triggered an S O S. A text message with a tracking link was sent to this number. Incident reference %s.",
		incident.ID.Hex(),
	)
}

// locationLine prefers a reverse-geocoded address and falls back to raw
// coordinates when the geocoder is missing or fails.
func (s *notificationService) locationLine(ctx context.Context, incident *models.Incident) string {
	loc := incident.CurrentLocation
	if loc.IsZero() {
		loc = incident.TriggerLocation
	}

	if s.geocoder != nil {
		if address, err := s.geocoder.ReverseGeocode(ctx, loc.Latitude, loc.Longitude); err == nil && address != "" {
			return address
		}
	}
	return fmt.Sprintf("%.4f, %.4f", loc.Latitude, loc.Longitude)
}

func sendStatus(err error) string {
	if err != nil {
		return "failed"
	}
	return "sent"
}
