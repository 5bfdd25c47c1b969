package interfaces

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// UserProfileRepository exposes the slice of the user record the engine
// needs: phone for callbacks, country for the emergency-number lookup, and
// the safety-PIN hash for cancellation verification.
type UserProfileRepository interface {
	GetPhone(ctx context.Context, userID primitive.ObjectID) (string, error)
	GetCountry(ctx context.Context, userID primitive.ObjectID) (string, error)
	GetPinHash(ctx context.Context, userID primitive.ObjectID) (string, error)
}
