package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"lifeline/internal/models"
	"lifeline/internal/repositories/interfaces"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type agentRepository struct {
	mu     sync.RWMutex
	agents map[primitive.ObjectID]*models.SafetyAgent
	order  []primitive.ObjectID
}

// NewSafetyAgentRepository returns an in-memory agent roster.
func NewSafetyAgentRepository() interfaces.SafetyAgentRepository {
	return &agentRepository{
		agents: make(map[primitive.ObjectID]*models.SafetyAgent),
	}
}

func (r *agentRepository) Create(ctx context.Context, agent *models.SafetyAgent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if agent.ID.IsZero() {
		agent.ID = primitive.NewObjectID()
	}
	agent.CreatedAt = time.Now()
	agent.UpdatedAt = time.Now()

	stored := *agent
	r.agents[agent.ID] = &stored
	r.order = append(r.order, agent.ID)
	return nil
}

func (r *agentRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.SafetyAgent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	agent, ok := r.agents[id]
	if !ok {
		return nil, fmt.Errorf("safety agent not found")
	}
	copied := *agent
	return &copied, nil
}

func (r *agentRepository) List(ctx context.Context) ([]*models.SafetyAgent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	agents := make([]*models.SafetyAgent, 0, len(r.order))
	for _, id := range r.order {
		copied := *r.agents[id]
		agents = append(agents, &copied)
	}
	return agents, nil
}

func (r *agentRepository) UpdateDutyStatus(ctx context.Context, id primitive.ObjectID, onDuty bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	agent, ok := r.agents[id]
	if !ok {
		return fmt.Errorf("safety agent not found")
	}
	agent.IsOnDuty = onDuty
	agent.UpdatedAt = time.Now()
	return nil
}
