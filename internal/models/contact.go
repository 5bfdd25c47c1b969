package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type NotificationChannel string

const (
	ChannelSMS      NotificationChannel = "sms"
	ChannelWhatsApp NotificationChannel = "whatsapp"
	ChannelCall     NotificationChannel = "call"
)

// EmergencyContact belongs to the external directory; the engine only
// reads it to decide which (contact, channel) pairs to alert.
type EmergencyContact struct {
	ID              primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	UserID          primitive.ObjectID `json:"user_id" bson:"user_id" validate:"required"`
	Name            string             `json:"name" bson:"name"`
	PhoneNumber     string             `json:"phone_number" bson:"phone_number" validate:"required"`
	Relationship    string             `json:"relationship,omitempty" bson:"relationship,omitempty"`
	IsPrimary       bool               `json:"is_primary" bson:"is_primary"`
	WhatsAppEnabled bool               `json:"whatsapp_enabled" bson:"whatsapp_enabled"`
	CreatedAt       time.Time          `json:"created_at" bson:"created_at"`
	UpdatedAt       time.Time          `json:"updated_at" bson:"updated_at"`
}

// NotificationRecord is the audit of one fanout attempt. It is recorded
// whether or not the transport accepted the send.
type NotificationRecord struct {
	ContactID primitive.ObjectID  `json:"contact_id"`
	Channel   NotificationChannel `json:"channel"`
	Status    string              `json:"status"` // sent, failed
	Error     string              `json:"error,omitempty"`
	SentAt    time.Time           `json:"sent_at"`
}
