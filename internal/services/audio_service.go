package services

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"time"

	"lifeline/internal/models"
	"lifeline/pkg/logger"
	"lifeline/pkg/storage"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// AudioSessionManager tracks the audio-capture session bound 1:1 to an
// incident. Chunks arriving for a missing or ended session are dropped
// silently; mobile clients keep streaming over bad networks long after the
// incident has closed.
type AudioSessionManager interface {
	Start(incidentID, userID primitive.ObjectID) models.AudioRecordingSession
	AppendChunk(incidentID primitive.ObjectID, chunk []byte)
	Stop(ctx context.Context, incidentID primitive.ObjectID) (models.AudioRecordingSession, bool)
	Get(incidentID primitive.ObjectID) (models.AudioRecordingSession, bool)
}

type audioSession struct {
	session models.AudioRecordingSession
	buffer  bytes.Buffer
}

type audioSessionManager struct {
	clock  Clock
	store  storage.RecordingStore
	logger *logger.Logger

	mu       sync.Mutex
	sessions map[primitive.ObjectID]*audioSession
}

// NewAudioSessionManager builds the manager; store may be nil, in which case
// recordings are captured but not persisted (no URL is produced).
func NewAudioSessionManager(clock Clock, store storage.RecordingStore, log *logger.Logger) AudioSessionManager {
	return &audioSessionManager{
		clock:    clock,
		store:    store,
		logger:   log,
		sessions: make(map[primitive.ObjectID]*audioSession),
	}
}

func (m *audioSessionManager) Start(incidentID, userID primitive.ObjectID) models.AudioRecordingSession {
	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.sessions[incidentID]; ok && existing.session.IsActive {
		return existing.session
	}

	session := models.AudioRecordingSession{
		ID:         primitive.NewObjectID(),
		IncidentID: incidentID,
		UserID:     userID,
		IsActive:   true,
		StartedAt:  m.clock.Now(),
	}

	m.sessions[incidentID] = &audioSession{session: session}

	return session
}

func (m *audioSessionManager) AppendChunk(incidentID primitive.ObjectID, chunk []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.sessions[incidentID]
	if !ok || !entry.session.IsActive {
		// Chunk dropped: late audio after the session ended is expected.
		return
	}

	entry.buffer.Write(chunk)
	entry.session.BytesCaptured = int64(entry.buffer.Len())
}

// Stop ends the session and uploads whatever was captured. Upload failures
// are logged; the session still ends and the incident path is not blocked.
func (m *audioSessionManager) Stop(ctx context.Context, incidentID primitive.ObjectID) (models.AudioRecordingSession, bool) {
	m.mu.Lock()
	entry, ok := m.sessions[incidentID]
	if !ok || !entry.session.IsActive {
		m.mu.Unlock()
		return models.AudioRecordingSession{}, false
	}

	now := m.clock.Now()
	entry.session.IsActive = false
	entry.session.EndedAt = &now

	data := make([]byte, entry.buffer.Len())
	copy(data, entry.buffer.Bytes())
	session := entry.session
	m.mu.Unlock()

	if m.store != nil && len(data) > 0 {
		key := fmt.Sprintf("sos-audio/%s/%s.webm", incidentID.Hex(), session.ID.Hex())
		uploadCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
		resp, err := m.store.Upload(uploadCtx, &storage.UploadRequest{
			Key:         key,
			Reader:      bytes.NewReader(data),
			ContentType: "audio/webm",
			Size:        int64(len(data)),
			Metadata: map[string]string{
				"incident_id": incidentID.Hex(),
			},
		})
		if err != nil {
			m.logger.WithIncidentID(incidentID).WithError(err).Error("Failed to upload audio recording")
		} else {
			session.URL = resp.URL
		}
	}

	m.mu.Lock()
	entry.session = session
	m.mu.Unlock()

	return session, true
}

func (m *audioSessionManager) Get(incidentID primitive.ObjectID) (models.AudioRecordingSession, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.sessions[incidentID]
	if !ok {
		return models.AudioRecordingSession{}, false
	}
	return entry.session, true
}
