package services

import (
	"testing"

	"lifeline/internal/models"
	"lifeline/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func poolAgent(name string, load, max int) *models.SafetyAgent {
	return &models.SafetyAgent{
		ID:              primitive.NewObjectID(),
		Name:            name,
		Role:            models.AgentRoleAgent,
		Team:            models.TeamSOSResponse,
		IsOnDuty:        true,
		MaxIncidents:    max,
		ActiveIncidents: load,
	}
}

func TestAssignPicksLowestLoad(t *testing.T) {
	pool := NewResponderPool(logger.NewNop())
	idle := poolAgent("idle", 0, 3)
	busy := poolAgent("busy", 2, 3)
	pool.LoadRoster([]*models.SafetyAgent{busy, idle})

	assigned, ok := pool.Assign(primitive.NewObjectID())
	require.True(t, ok)
	assert.Equal(t, idle.ID, assigned.ID)
	assert.Equal(t, 1, assigned.ActiveIncidents)

	// Still the lighter agent.
	assigned, ok = pool.Assign(primitive.NewObjectID())
	require.True(t, ok)
	assert.Equal(t, idle.ID, assigned.ID)
	assert.Equal(t, 2, assigned.ActiveIncidents)
}

func TestReleaseReturnsCapacity(t *testing.T) {
	pool := NewResponderPool(logger.NewNop())
	agent := poolAgent("solo", 0, 1)
	pool.LoadRoster([]*models.SafetyAgent{agent})

	incidentID := primitive.NewObjectID()
	_, ok := pool.Assign(incidentID)
	require.True(t, ok)

	// At capacity: nothing available.
	_, ok = pool.Assign(primitive.NewObjectID())
	assert.False(t, ok)

	released, ok := pool.Release(incidentID)
	require.True(t, ok)
	assert.Equal(t, 0, released.ActiveIncidents)

	_, ok = pool.Assign(primitive.NewObjectID())
	assert.True(t, ok)
}

func TestReleaseUnknownIncidentIsNoop(t *testing.T) {
	pool := NewResponderPool(logger.NewNop())
	pool.LoadRoster([]*models.SafetyAgent{poolAgent("a", 0, 2)})

	_, ok := pool.Release(primitive.NewObjectID())
	assert.False(t, ok)
}

func TestAssignSkipsOffDutyAndOtherTeams(t *testing.T) {
	pool := NewResponderPool(logger.NewNop())
	offDuty := poolAgent("off", 0, 3)
	offDuty.IsOnDuty = false
	support := poolAgent("support", 0, 3)
	support.Team = "customer_support"
	pool.LoadRoster([]*models.SafetyAgent{offDuty, support})

	_, ok := pool.Assign(primitive.NewObjectID())
	assert.False(t, ok)
}

func TestRecordResolutionTracksRunningAverage(t *testing.T) {
	pool := NewResponderPool(logger.NewNop())
	agent := poolAgent("a", 0, 3)
	pool.LoadRoster([]*models.SafetyAgent{agent})

	pool.RecordResolution(agent.ID, 30)
	pool.RecordResolution(agent.ID, 90)

	got, ok := pool.Get(agent.ID)
	require.True(t, ok)
	assert.Equal(t, 2, got.TotalResolved)
	require.NotNil(t, got.AvgResponseTime)
	assert.Equal(t, 60.0, *got.AvgResponseTime)
}

func TestAgentsByRoleFiltersOnDuty(t *testing.T) {
	pool := NewResponderPool(logger.NewNop())
	senior := poolAgent("senior", 0, 3)
	senior.Role = models.AgentRoleSenior
	offSenior := poolAgent("off-senior", 0, 3)
	offSenior.Role = models.AgentRoleSenior
	offSenior.IsOnDuty = false
	pool.LoadRoster([]*models.SafetyAgent{senior, offSenior, poolAgent("line", 0, 3)})

	seniors := pool.AgentsByRole(models.AgentRoleSenior)
	require.Len(t, seniors, 1)
	assert.Equal(t, senior.ID, seniors[0].ID)

	assert.Len(t, pool.OnDutyAgents(), 2)
}
