package mongodb

import (
	"context"
	"fmt"
	"time"

	"lifeline/internal/models"
	"lifeline/internal/repositories/interfaces"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type agentRepository struct {
	collection *mongo.Collection
}

func NewSafetyAgentRepository(db *mongo.Database) interfaces.SafetyAgentRepository {
	return &agentRepository{
		collection: db.Collection("safety_agents"),
	}
}

func (r *agentRepository) Create(ctx context.Context, agent *models.SafetyAgent) error {
	if agent.ID.IsZero() {
		agent.ID = primitive.NewObjectID()
	}
	agent.CreatedAt = time.Now()
	agent.UpdatedAt = time.Now()

	_, err := r.collection.InsertOne(ctx, agent)
	if err != nil {
		return fmt.Errorf("failed to create safety agent: %w", err)
	}

	return nil
}

func (r *agentRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.SafetyAgent, error) {
	var agent models.SafetyAgent
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&agent)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, fmt.Errorf("safety agent not found")
		}
		return nil, fmt.Errorf("failed to get safety agent: %w", err)
	}

	return &agent, nil
}

func (r *agentRepository) List(ctx context.Context) ([]*models.SafetyAgent, error) {
	cursor, err := r.collection.Find(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("failed to list safety agents: %w", err)
	}
	defer cursor.Close(ctx)

	var agents []*models.SafetyAgent
	if err := cursor.All(ctx, &agents); err != nil {
		return nil, fmt.Errorf("failed to decode safety agents: %w", err)
	}

	return agents, nil
}

func (r *agentRepository) UpdateDutyStatus(ctx context.Context, id primitive.ObjectID, onDuty bool) error {
	_, err := r.collection.UpdateOne(
		ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"is_on_duty": onDuty, "updated_at": time.Now()}},
	)
	if err != nil {
		return fmt.Errorf("failed to update duty status: %w", err)
	}
	return nil
}
