package models

import (
	"time"
)

// GeoPoint is a last-known device position. The trigger location of an
// incident is immutable; the current location is updated as fixes arrive.
type GeoPoint struct {
	Latitude  float64   `json:"latitude" bson:"latitude" validate:"required"`
	Longitude float64   `json:"longitude" bson:"longitude" validate:"required"`
	Accuracy  float64   `json:"accuracy,omitempty" bson:"accuracy,omitempty"`
	Address   string    `json:"address,omitempty" bson:"address,omitempty"`
	Timestamp time.Time `json:"timestamp" bson:"timestamp"`
}

// IsZero reports whether no fix has been recorded.
func (p GeoPoint) IsZero() bool {
	return p.Latitude == 0 && p.Longitude == 0 && p.Timestamp.IsZero()
}
