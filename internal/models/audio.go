package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// AudioRecordingSession tracks the live audio capture bound 1:1 to an
// incident. Created at trigger time, ended at any terminal transition.
type AudioRecordingSession struct {
	ID            primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	IncidentID    primitive.ObjectID `json:"incident_id" bson:"incident_id"`
	UserID        primitive.ObjectID `json:"user_id" bson:"user_id"`
	IsActive      bool               `json:"is_active" bson:"is_active"`
	BytesCaptured int64              `json:"bytes_captured" bson:"bytes_captured"`
	URL           string             `json:"url,omitempty" bson:"url,omitempty"`
	StartedAt     time.Time          `json:"started_at" bson:"started_at"`
	EndedAt       *time.Time         `json:"ended_at,omitempty" bson:"ended_at,omitempty"`
}
