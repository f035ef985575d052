// Package messaging models the landlord-tenant conversation of a lease.
package messaging

import (
	"context"
	"strings"
	"time"

	"github.com/coridor/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// MessageKind distinguishes plain messages from document deliveries
type MessageKind string

const (
	MessageKindText     MessageKind = "TEXT"
	MessageKindDocument MessageKind = "DOCUMENT"
)

// Conversation is the message thread between a landlord and a tenant about a lease
type Conversation struct {
	shared.BaseEntity
	LeaseID    uuid.UUID
	LandlordID uuid.UUID
	TenantID   uuid.UUID
}

// NewConversation opens a conversation for a lease
func NewConversation(leaseID, landlordID, tenantID uuid.UUID) (*Conversation, error) {
	if leaseID == uuid.Nil || landlordID == uuid.Nil || tenantID == uuid.Nil {
		return nil, shared.NewDomainError("VALIDATION_ERROR", "Conversation requires a lease, a landlord and a tenant")
	}
	return &Conversation{
		BaseEntity: shared.NewBaseEntity(),
		LeaseID:    leaseID,
		LandlordID: landlordID,
		TenantID:   tenantID,
	}, nil
}

// Message is one post in a conversation
type Message struct {
	ID             uuid.UUID
	ConversationID uuid.UUID
	SenderID       uuid.UUID
	Kind           MessageKind
	Body           string
	AttachmentURL  string
	CreatedAt      time.Time
}

// NewDocumentMessage creates a message referencing a document
func (c *Conversation) NewDocumentMessage(senderID uuid.UUID, body, documentURL string) (*Message, error) {
	documentURL = strings.TrimSpace(documentURL)
	if documentURL == "" {
		return nil, shared.NewDomainError("VALIDATION_ERROR", "document_url is required")
	}
	if senderID != c.LandlordID && senderID != c.TenantID {
		return nil, shared.NewDomainError("VALIDATION_ERROR", "Sender is not a participant of the conversation")
	}
	return &Message{
		ID:             uuid.New(),
		ConversationID: c.ID,
		SenderID:       senderID,
		Kind:           MessageKindDocument,
		Body:           body,
		AttachmentURL:  documentURL,
		CreatedAt:      time.Now(),
	}, nil
}

// ConversationRepository defines the interface for conversation persistence
type ConversationRepository interface {
	// FindByLease finds the conversation of a lease; shared.ErrNotFound when none exists
	FindByLease(ctx context.Context, leaseID uuid.UUID) (*Conversation, error)

	// FindOrCreate returns the lease's conversation, creating it when missing
	FindOrCreate(ctx context.Context, conversation *Conversation) (*Conversation, error)

	// PostMessage appends a message to a conversation
	PostMessage(ctx context.Context, message *Message) error

	// ListMessages returns the messages of a conversation, oldest first
	ListMessages(ctx context.Context, conversationID uuid.UUID) ([]*Message, error)
}
