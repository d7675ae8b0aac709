package testutil

import (
	"context"
	"sync"

	"github.com/karkhana-erp/backend/internal/domain/shared"
)

// CapturingEventPublisher records every published event for assertions.
type CapturingEventPublisher struct {
	mu     sync.Mutex
	events []shared.DomainEvent
}

// NewCapturingEventPublisher creates an empty capturing publisher.
func NewCapturingEventPublisher() *CapturingEventPublisher {
	return &CapturingEventPublisher{events: make([]shared.DomainEvent, 0)}
}

// Publish records the events.
func (p *CapturingEventPublisher) Publish(_ context.Context, events ...shared.DomainEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, events...)
	return nil
}

// Events returns a copy of everything published so far.
func (p *CapturingEventPublisher) Events() []shared.DomainEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	result := make([]shared.DomainEvent, len(p.events))
	copy(result, p.events)
	return result
}

// EventTypes returns the types of all published events, in order.
func (p *CapturingEventPublisher) EventTypes() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	types := make([]string, 0, len(p.events))
	for _, e := range p.events {
		types = append(types, e.EventType())
	}
	return types
}

var _ shared.EventPublisher = (*CapturingEventPublisher)(nil)
