package testutil

import (
	"context"
	"sync"

	"github.com/coridor/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// EventRecorder is an event handler that keeps what it receives. An empty
// type list subscribes it to every event on a bus.
type EventRecorder struct {
	types []string

	mu     sync.Mutex
	events []shared.DomainEvent
	failer func(shared.DomainEvent) error
}

// NewEventRecorder subscribes to the given types.
func NewEventRecorder(types ...string) *EventRecorder {
	return &EventRecorder{types: types}
}

func (r *EventRecorder) EventTypes() []string { return r.types }

// Handle records ev. The event is kept even when FailWith makes it fail.
func (r *EventRecorder) Handle(_ context.Context, ev shared.DomainEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	if r.failer != nil {
		return r.failer(ev)
	}
	return nil
}

// FailWith makes subsequent deliveries return fn's result.
func (r *EventRecorder) FailWith(fn func(shared.DomainEvent) error) {
	r.mu.Lock()
	r.failer = fn
	r.mu.Unlock()
}

// Events returns a snapshot of the recorded events.
func (r *EventRecorder) Events() []shared.DomainEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]shared.DomainEvent, len(r.events))
	copy(out, r.events)
	return out
}

// Types lists the recorded event types in arrival order.
func (r *EventRecorder) Types() []string {
	events := r.Events()
	out := make([]string, len(events))
	for i, ev := range events {
		out[i] = ev.EventType()
	}
	return out
}

// TestEvent is a minimal domain event.
type TestEvent struct {
	shared.BaseDomainEvent
	Data string `json:"data"`
}

// NewTestEvent creates a TestEvent of eventType on a random aggregate.
func NewTestEvent(eventType string) *TestEvent {
	return &TestEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(eventType, "TestAggregate", uuid.New()),
		Data:            "test-data",
	}
}
