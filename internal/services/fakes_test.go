package services

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"lifeline/internal/events"
	"lifeline/internal/models"
	"lifeline/internal/repositories/memory"
	"lifeline/internal/utils"
	"lifeline/pkg/logger"
	"lifeline/pkg/notify"
	"lifeline/pkg/storage"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// fakeNotifyProvider records every outbound send for assertions.
type fakeNotifyProvider struct {
	mu        sync.Mutex
	sms       []notify.MessageRequest
	whatsapp  []notify.MessageRequest
	calls     []notify.CallRequest
	failSMS   bool
	failWA    bool
	failCalls bool
}

func (p *fakeNotifyProvider) SendSMS(ctx context.Context, request *notify.MessageRequest) (*notify.SendResponse, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failSMS {
		return nil, errors.New("sms transport down")
	}
	p.sms = append(p.sms, *request)
	return &notify.SendResponse{Status: "sent"}, nil
}

func (p *fakeNotifyProvider) SendWhatsApp(ctx context.Context, request *notify.MessageRequest) (*notify.SendResponse, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failWA {
		return nil, errors.New("whatsapp transport down")
	}
	p.whatsapp = append(p.whatsapp, *request)
	return &notify.SendResponse{Status: "sent"}, nil
}

func (p *fakeNotifyProvider) PlaceCall(ctx context.Context, request *notify.CallRequest) (*notify.SendResponse, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failCalls {
		return nil, errors.New("voice transport down")
	}
	p.calls = append(p.calls, *request)
	return &notify.SendResponse{Status: "sent"}, nil
}

func (p *fakeNotifyProvider) callsTo(number string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, call := range p.calls {
		if call.To == number {
			n++
		}
	}
	return n
}

// fakeRecordingStore captures uploads in memory.
type fakeRecordingStore struct {
	mu      sync.Mutex
	uploads []storage.UploadRequest
	bodies  [][]byte
}

func (s *fakeRecordingStore) Upload(ctx context.Context, request *storage.UploadRequest) (*storage.UploadResponse, error) {
	body, err := io.ReadAll(request.Reader)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.uploads = append(s.uploads, *request)
	s.bodies = append(s.bodies, body)

	return &storage.UploadResponse{
		Key:  request.Key,
		URL:  "https://recordings.test/" + request.Key,
		Size: int64(len(body)),
	}, nil
}

func (s *fakeRecordingStore) Delete(ctx context.Context, key string) error { return nil }

func (s *fakeRecordingStore) GetURL(ctx context.Context, key string, expiration time.Duration) (string, error) {
	return "https://recordings.test/" + key, nil
}

// testEnv wires a full coordinator on fakes and virtual time.
type testEnv struct {
	clock     *FakeClock
	provider  *fakeNotifyProvider
	store     IncidentStore
	timeline  TimelineRecorder
	pool      ResponderPool
	audio     AudioSessionManager
	recorder  *fakeRecordingStore
	directory DirectoryService
	bus       *events.Bus
	svc       SOSService

	contactRepo contactCreator
	profileRepo *memory.UserProfileStore
}

type contactCreator interface {
	Create(ctx context.Context, contact *models.EmergencyContact) error
}

func newTestEnv() *testEnv {
	log := logger.NewNop()
	clock := NewFakeClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))

	contactRepo := memory.NewEmergencyContactRepository()
	profileRepo := memory.NewUserProfileRepository()

	store := NewIncidentStore(clock)
	timeline := NewTimelineRecorder(clock, log)
	pool := NewResponderPool(log)
	recorder := &fakeRecordingStore{}
	audio := NewAudioSessionManager(clock, recorder, log)
	directory := NewDirectoryService(contactRepo, profileRepo, nil, log)
	provider := &fakeNotifyProvider{}

	notifier := NewNotificationService(clock, provider, nil, nil, directory, pool, timeline, "https://track.test", log)

	bus := events.NewBus()
	svc := NewSOSService(SOSServiceDeps{
		Clock:     clock,
		Store:     store,
		Timeline:  timeline,
		Pool:      pool,
		Audio:     audio,
		Notifier:  notifier,
		Directory: directory,
		Bus:       bus,
		Logger:    log,
	})

	return &testEnv{
		clock:       clock,
		provider:    provider,
		store:       store,
		timeline:    timeline,
		pool:        pool,
		audio:       audio,
		recorder:    recorder,
		directory:   directory,
		bus:         bus,
		svc:         svc,
		contactRepo: contactRepo,
		profileRepo: profileRepo,
	}
}

func (e *testEnv) seedUser(pin string) primitive.ObjectID {
	userID := primitive.NewObjectID()
	e.profileRepo.Seed(userID, memory.UserProfile{
		Phone:      "+2348031112222",
		Country:    "NG",
		SOSPinHash: utils.HashPin(pin),
	})
	return userID
}

func (e *testEnv) seedContact(userID primitive.ObjectID, primary, whatsApp bool) *models.EmergencyContact {
	contact := &models.EmergencyContact{
		UserID:          userID,
		Name:            "Contact",
		PhoneNumber:     "+2348030000001",
		IsPrimary:       primary,
		WhatsAppEnabled: whatsApp,
	}
	if err := e.contactRepo.Create(context.Background(), contact); err != nil {
		panic(err)
	}
	return contact
}

func (e *testEnv) seedAgent(role models.AgentRole, maxIncidents int) models.SafetyAgent {
	agent := models.SafetyAgent{
		ID:           primitive.NewObjectID(),
		Name:         "Agent",
		Phone:        "+2348039990000",
		Role:         role,
		Team:         models.TeamSOSResponse,
		IsOnDuty:     true,
		MaxIncidents: maxIncidents,
	}
	e.pool.Upsert(&agent)
	return agent
}

func lagosTrigger(userID primitive.ObjectID) *models.TriggerSOSParams {
	return &models.TriggerSOSParams{
		UserID:        userID,
		TriggerMethod: models.TriggerMethodButton,
		Location: models.GeoPoint{
			Latitude:  6.5244,
			Longitude: 3.3792,
			Timestamp: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		},
	}
}

func eventTypes(entries []*models.TimelineEntry) []models.TimelineEventType {
	out := make([]models.TimelineEventType, 0, len(entries))
	for _, entry := range entries {
		out = append(out, entry.Type)
	}
	return out
}

func countEvents(entries []*models.TimelineEntry, eventType models.TimelineEventType) int {
	n := 0
	for _, entry := range entries {
		if entry.Type == eventType {
			n++
		}
	}
	return n
}
