package services

import (
	"context"
	"testing"
	"time"

	"lifeline/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestAudioSessionCapturesChunks(t *testing.T) {
	clock := NewFakeClock(time.Now())
	recorder := &fakeRecordingStore{}
	manager := NewAudioSessionManager(clock, recorder, logger.NewNop())
	incidentID := primitive.NewObjectID()

	session := manager.Start(incidentID, primitive.NewObjectID())
	assert.True(t, session.IsActive)

	manager.AppendChunk(incidentID, []byte("chunk-one"))
	manager.AppendChunk(incidentID, []byte("chunk-two"))

	got, ok := manager.Get(incidentID)
	require.True(t, ok)
	assert.Equal(t, int64(len("chunk-one")+len("chunk-two")), got.BytesCaptured)
}

func TestStopUploadsRecording(t *testing.T) {
	clock := NewFakeClock(time.Now())
	recorder := &fakeRecordingStore{}
	manager := NewAudioSessionManager(clock, recorder, logger.NewNop())
	incidentID := primitive.NewObjectID()

	manager.Start(incidentID, primitive.NewObjectID())
	manager.AppendChunk(incidentID, []byte("audio-bytes"))

	session, ok := manager.Stop(context.Background(), incidentID)
	require.True(t, ok)
	assert.False(t, session.IsActive)
	require.NotNil(t, session.EndedAt)
	require.Len(t, recorder.uploads, 1)
	assert.Equal(t, "audio/webm", recorder.uploads[0].ContentType)
	assert.Contains(t, recorder.uploads[0].Key, incidentID.Hex())
	assert.Equal(t, []byte("audio-bytes"), recorder.bodies[0])
	assert.NotEmpty(t, session.URL)
}

func TestLateChunksAreDropped(t *testing.T) {
	clock := NewFakeClock(time.Now())
	manager := NewAudioSessionManager(clock, &fakeRecordingStore{}, logger.NewNop())
	incidentID := primitive.NewObjectID()

	manager.Start(incidentID, primitive.NewObjectID())
	manager.AppendChunk(incidentID, []byte("before"))
	_, ok := manager.Stop(context.Background(), incidentID)
	require.True(t, ok)

	manager.AppendChunk(incidentID, []byte("after"))

	session, ok := manager.Get(incidentID)
	require.True(t, ok)
	assert.Equal(t, int64(len("before")), session.BytesCaptured)

	// A chunk for an unknown incident is also ignored.
	manager.AppendChunk(primitive.NewObjectID(), []byte("nobody home"))
}

func TestSecondStopReturnsFalse(t *testing.T) {
	manager := NewAudioSessionManager(NewFakeClock(time.Now()), nil, logger.NewNop())
	incidentID := primitive.NewObjectID()

	manager.Start(incidentID, primitive.NewObjectID())
	_, ok := manager.Stop(context.Background(), incidentID)
	require.True(t, ok)

	_, ok = manager.Stop(context.Background(), incidentID)
	assert.False(t, ok)
}

func TestNilStoreSkipsPersistence(t *testing.T) {
	manager := NewAudioSessionManager(NewFakeClock(time.Now()), nil, logger.NewNop())
	incidentID := primitive.NewObjectID()

	manager.Start(incidentID, primitive.NewObjectID())
	manager.AppendChunk(incidentID, []byte("data"))

	session, ok := manager.Stop(context.Background(), incidentID)
	require.True(t, ok)
	assert.Empty(t, session.URL)
	assert.Equal(t, int64(4), session.BytesCaptured)
}
