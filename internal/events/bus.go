// Package events carries engine events to in-process consumers (ops
// websocket feed, metrics) through per-kind callback registries, so every
// subscriber gets a compile-time-checked payload.
package events

import (
	"sync"

	"lifeline/internal/models"
)

type IncidentTriggered struct {
	Incident models.Incident `json:"incident"`
}

type IncidentEscalated struct {
	Incident  models.Incident        `json:"incident"`
	FromLevel models.EscalationLevel `json:"from_level"`
	ToLevel   models.EscalationLevel `json:"to_level"`
	Source    string                 `json:"source"` // checkpoint, manual
}

type AgentResponded struct {
	Incident models.Incident    `json:"incident"`
	Action   models.AgentAction `json:"action"`
}

type IncidentClosed struct {
	Incident   models.Incident       `json:"incident"`
	Resolution models.ResolutionType `json:"resolution"`
}

// Bus is a synchronous fanout; handlers must not block. Subscription is
// expected at wiring time, publishing for the life of the process.
type Bus struct {
	mu          sync.RWMutex
	onTriggered []func(IncidentTriggered)
	onEscalated []func(IncidentEscalated)
	onResponded []func(AgentResponded)
	onClosed    []func(IncidentClosed)
}

func NewBus() *Bus {
	return &Bus{}
}

func (b *Bus) OnIncidentTriggered(fn func(IncidentTriggered)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onTriggered = append(b.onTriggered, fn)
}

func (b *Bus) OnIncidentEscalated(fn func(IncidentEscalated)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onEscalated = append(b.onEscalated, fn)
}

func (b *Bus) OnAgentResponded(fn func(AgentResponded)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onResponded = append(b.onResponded, fn)
}

func (b *Bus) OnIncidentClosed(fn func(IncidentClosed)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onClosed = append(b.onClosed, fn)
}

func (b *Bus) PublishIncidentTriggered(e IncidentTriggered) {
	b.mu.RLock()
	handlers := b.onTriggered
	b.mu.RUnlock()
	for _, fn := range handlers {
		fn(e)
	}
}

func (b *Bus) PublishIncidentEscalated(e IncidentEscalated) {
	b.mu.RLock()
	handlers := b.onEscalated
	b.mu.RUnlock()
	for _, fn := range handlers {
		fn(e)
	}
}

func (b *Bus) PublishAgentResponded(e AgentResponded) {
	b.mu.RLock()
	handlers := b.onResponded
	b.mu.RUnlock()
	for _, fn := range handlers {
		fn(e)
	}
}

func (b *Bus) PublishIncidentClosed(e IncidentClosed) {
	b.mu.RLock()
	handlers := b.onClosed
	b.mu.RUnlock()
	for _, fn := range handlers {
		fn(e)
	}
}
