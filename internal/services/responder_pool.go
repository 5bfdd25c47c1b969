package services

import (
	"sync"

	"lifeline/internal/models"
	"lifeline/pkg/logger"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ResponderPool holds the safety-agent roster and the current mapping of
// incidents to agents. The per-agent load counter is incremented at
// assignment and must be decremented on every terminal transition.
type ResponderPool interface {
	LoadRoster(agents []*models.SafetyAgent)
	Upsert(agent *models.SafetyAgent)
	Get(agentID primitive.ObjectID) (models.SafetyAgent, bool)
	Assign(incidentID primitive.ObjectID) (models.SafetyAgent, bool)
	Release(incidentID primitive.ObjectID) (models.SafetyAgent, bool)
	RecordResolution(agentID primitive.ObjectID, responseTimeSeconds float64)
	IncidentsForAgent(agentID primitive.ObjectID) []primitive.ObjectID
	AgentsByRole(role models.AgentRole) []models.SafetyAgent
	OnDutyAgents() []models.SafetyAgent
}

type responderPool struct {
	logger *logger.Logger

	mu          sync.Mutex
	agents      map[primitive.ObjectID]*models.SafetyAgent
	order       []primitive.ObjectID
	assignments map[primitive.ObjectID]primitive.ObjectID // incident -> agent
}

func NewResponderPool(log *logger.Logger) ResponderPool {
	return &responderPool{
		logger:      log,
		agents:      make(map[primitive.ObjectID]*models.SafetyAgent),
		assignments: make(map[primitive.ObjectID]primitive.ObjectID),
	}
}

func (p *responderPool) LoadRoster(agents []*models.SafetyAgent) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, agent := range agents {
		if _, ok := p.agents[agent.ID]; !ok {
			p.order = append(p.order, agent.ID)
		}
		copied := *agent
		p.agents[agent.ID] = &copied
	}

	p.logger.WithField("agents", len(agents)).Info("Responder roster loaded")
}

func (p *responderPool) Upsert(agent *models.SafetyAgent) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.agents[agent.ID]; !ok {
		p.order = append(p.order, agent.ID)
	}
	copied := *agent
	p.agents[agent.ID] = &copied
}

func (p *responderPool) Get(agentID primitive.ObjectID) (models.SafetyAgent, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	agent, ok := p.agents[agentID]
	if !ok {
		return models.SafetyAgent{}, false
	}
	return *agent, true
}

// Assign picks the on-duty sos_response agent with the strictly lowest load;
// the first qualifying agent wins ties. A pool with no capacity returns
// false and the incident proceeds unassigned.
func (p *responderPool) Assign(incidentID primitive.ObjectID) (models.SafetyAgent, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	var best *models.SafetyAgent
	for _, id := range p.order {
		agent := p.agents[id]
		if agent.Team != models.TeamSOSResponse || !agent.HasCapacity() {
			continue
		}
		if best == nil || agent.ActiveIncidents < best.ActiveIncidents {
			best = agent
		}
	}

	if best == nil {
		return models.SafetyAgent{}, false
	}

	best.ActiveIncidents++
	p.assignments[incidentID] = best.ID

	return *best, true
}

// Release decrements the assigned agent's load. Called on every terminal
// transition so the pool never starves.
func (p *responderPool) Release(incidentID primitive.ObjectID) (models.SafetyAgent, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	agentID, ok := p.assignments[incidentID]
	if !ok {
		return models.SafetyAgent{}, false
	}
	delete(p.assignments, incidentID)

	agent := p.agents[agentID]
	if agent.ActiveIncidents > 0 {
		agent.ActiveIncidents--
	}

	return *agent, true
}

func (p *responderPool) RecordResolution(agentID primitive.ObjectID, responseTimeSeconds float64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	agent, ok := p.agents[agentID]
	if !ok {
		return
	}

	agent.TotalResolved++
	if responseTimeSeconds > 0 {
		if agent.AvgResponseTime == nil {
			agent.AvgResponseTime = &responseTimeSeconds
		} else {
			avg := (*agent.AvgResponseTime*float64(agent.TotalResolved-1) + responseTimeSeconds) / float64(agent.TotalResolved)
			agent.AvgResponseTime = &avg
		}
	}
}

func (p *responderPool) IncidentsForAgent(agentID primitive.ObjectID) []primitive.ObjectID {
	p.mu.Lock()
	defer p.mu.Unlock()

	var out []primitive.ObjectID
	for incidentID, assigned := range p.assignments {
		if assigned == agentID {
			out = append(out, incidentID)
		}
	}
	return out
}

func (p *responderPool) AgentsByRole(role models.AgentRole) []models.SafetyAgent {
	p.mu.Lock()
	defer p.mu.Unlock()

	var out []models.SafetyAgent
	for _, id := range p.order {
		agent := p.agents[id]
		if agent.Role == role && agent.IsOnDuty {
			out = append(out, *agent)
		}
	}
	return out
}

func (p *responderPool) OnDutyAgents() []models.SafetyAgent {
	p.mu.Lock()
	defer p.mu.Unlock()

	var out []models.SafetyAgent
	for _, id := range p.order {
		agent := p.agents[id]
		if agent.IsOnDuty {
			out = append(out, *agent)
		}
	}
	return out
}
