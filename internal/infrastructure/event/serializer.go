package event

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"sync"

	"github.com/coridor/backend/internal/domain/regularization"
	"github.com/coridor/backend/internal/domain/shared"
)

// Upgrader rewrites a decoded payload from one schema version to the next
type Upgrader func(data map[string]any) (map[string]any, error)

type registration struct {
	typ       reflect.Type
	version   int
	upgraders map[int]Upgrader // keyed by source version
}

// EventSerializer turns domain events into outbox payloads and back. Payloads
// written by an older schema version are upgraded step by step before they
// are decoded into the current struct.
type EventSerializer struct {
	mu       sync.RWMutex
	registry map[string]*registration
}

// NewEventSerializer creates a serializer with no registered events
func NewEventSerializer() *EventSerializer {
	return &EventSerializer{registry: make(map[string]*registration)}
}

// NewRegularizationSerializer creates a serializer that knows every event
// raised by the regularization workflow
func NewRegularizationSerializer() *EventSerializer {
	s := NewEventSerializer()
	s.Register(regularization.EventTypeRegularizationCommitted, &regularization.RegularizationCommittedEvent{})
	s.Register(regularization.EventTypeRegularizationDocumentSent, &regularization.RegularizationDocumentSentEvent{})
	return s
}

// Register makes eventType decodable into the concrete type of instance at
// schema version 1
func (s *EventSerializer) Register(eventType string, instance shared.DomainEvent) {
	s.RegisterVersioned(eventType, instance, 1, nil)
}

// RegisterVersioned registers eventType at currentVersion. upgraders must
// cover every step from 1 up to currentVersion-1.
func (s *EventSerializer) RegisterVersioned(eventType string, instance shared.DomainEvent, currentVersion int, upgraders map[int]Upgrader) {
	t := reflect.TypeOf(instance)
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	for v := 1; v < currentVersion; v++ {
		if upgraders[v] == nil {
			panic(fmt.Sprintf("event %s: missing upgrader from v%d", eventType, v))
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.registry[eventType] = &registration{typ: t, version: currentVersion, upgraders: upgraders}
}

// Serialize encodes an event as JSON
func (s *EventSerializer) Serialize(ev shared.DomainEvent) ([]byte, error) {
	data, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("serialize %s: %w", ev.EventType(), err)
	}
	return data, nil
}

// Deserialize decodes a payload into the registered event type
func (s *EventSerializer) Deserialize(eventType string, data []byte) (shared.DomainEvent, error) {
	s.mu.RLock()
	reg, ok := s.registry[eventType]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown event type: %s", eventType)
	}

	data, err := reg.upgrade(data)
	if err != nil {
		return nil, fmt.Errorf("upgrade %s: %w", eventType, err)
	}

	ptr := reflect.New(reg.typ).Interface()
	if err := json.Unmarshal(data, ptr); err != nil {
		return nil, fmt.Errorf("failed to unmarshal event: %w", err)
	}
	ev, ok := ptr.(shared.DomainEvent)
	if !ok {
		return nil, fmt.Errorf("%s does not implement DomainEvent", reg.typ)
	}
	return ev, nil
}

// IsRegistered reports whether eventType can be decoded
func (s *EventSerializer) IsRegistered(eventType string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.registry[eventType]
	return ok
}

// RegisteredTypes returns the registered event types in sorted order
func (s *EventSerializer) RegisteredTypes() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	types := make([]string, 0, len(s.registry))
	for t := range s.registry {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// payloadVersion reads schema_version from a payload, defaulting to 1
func payloadVersion(data []byte) int {
	var probe struct {
		Version int `json:"schema_version"`
	}
	if err := json.Unmarshal(data, &probe); err != nil || probe.Version < 1 {
		return 1
	}
	return probe.Version
}

func (r *registration) upgrade(data []byte) ([]byte, error) {
	from := payloadVersion(data)
	if from > r.version {
		return nil, fmt.Errorf("payload version %d is newer than supported version %d", from, r.version)
	}
	if from == r.version {
		return data, nil
	}

	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	for v := from; v < r.version; v++ {
		next, err := r.upgraders[v](doc)
		if err != nil {
			return nil, fmt.Errorf("v%d to v%d: %w", v, v+1, err)
		}
		doc = next
	}
	doc["schema_version"] = r.version
	return json.Marshal(doc)
}
