package interfaces

import (
	"context"

	"lifeline/internal/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// EmergencyContactRepository is the read-mostly directory of a user's
// emergency contacts. Contact CRUD itself lives outside the engine; the
// write operations exist for roster tooling and tests.
type EmergencyContactRepository interface {
	Create(ctx context.Context, contact *models.EmergencyContact) error
	GetByUserID(ctx context.Context, userID primitive.ObjectID) ([]*models.EmergencyContact, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
}
