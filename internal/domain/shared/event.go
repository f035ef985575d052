package shared

import (
	"time"

	"github.com/google/uuid"
)

// DomainEvent is a fact raised by an aggregate. Events travel through the
// outbox, so every implementation must round-trip through JSON.
type DomainEvent interface {
	EventID() uuid.UUID
	EventType() string
	OccurredAt() time.Time
	AggregateID() uuid.UUID
	AggregateType() string
}

// BaseDomainEvent carries the envelope fields. Concrete events embed it.
type BaseDomainEvent struct {
	ID       uuid.UUID `json:"id"`
	Name     string    `json:"type"`
	RaisedAt time.Time `json:"timestamp"`
	SourceID uuid.UUID `json:"aggregate_id"`
	Source   string    `json:"aggregate_type"`
	Schema   int       `json:"schema_version,omitempty"`
}

// NewBaseDomainEvent stamps a new envelope at schema version 1
func NewBaseDomainEvent(eventType, aggregateType string, aggregateID uuid.UUID) BaseDomainEvent {
	return BaseDomainEvent{
		ID:       uuid.New(),
		Name:     eventType,
		RaisedAt: time.Now(),
		SourceID: aggregateID,
		Source:   aggregateType,
		Schema:   1,
	}
}

func (e *BaseDomainEvent) EventID() uuid.UUID     { return e.ID }
func (e *BaseDomainEvent) EventType() string      { return e.Name }
func (e *BaseDomainEvent) OccurredAt() time.Time  { return e.RaisedAt }
func (e *BaseDomainEvent) AggregateID() uuid.UUID { return e.SourceID }
func (e *BaseDomainEvent) AggregateType() string  { return e.Source }

// SchemaVersion is the payload layout version. Payloads written before
// versioning report 1.
func (e *BaseDomainEvent) SchemaVersion() int {
	return max(e.Schema, 1)
}
