package interfaces

import (
	"context"

	"lifeline/internal/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// SafetyAgentRepository backs the responder roster. Agents are provisioned
// out-of-band; the engine loads them into the pool at startup.
type SafetyAgentRepository interface {
	Create(ctx context.Context, agent *models.SafetyAgent) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.SafetyAgent, error)
	List(ctx context.Context) ([]*models.SafetyAgent, error)
	UpdateDutyStatus(ctx context.Context, id primitive.ObjectID, onDuty bool) error
}
