package models

import (
	"time"

	"github.com/coridor/backend/internal/domain/messaging"
	"github.com/google/uuid"
)

// ConversationModel is the landlord-tenant thread of a lease
type ConversationModel struct {
	BaseModel
	LeaseID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex"`
	LandlordID uuid.UUID `gorm:"type:uuid;not null"`
	TenantID   uuid.UUID `gorm:"type:uuid;not null"`
}

// TableName returns the table name for GORM
func (ConversationModel) TableName() string {
	return "conversations"
}

// ToDomain converts the model to a domain Conversation
func (m *ConversationModel) ToDomain() *messaging.Conversation {
	return &messaging.Conversation{
		BaseEntity: m.BaseModel.ToDomain(),
		LeaseID:    m.LeaseID,
		LandlordID: m.LandlordID,
		TenantID:   m.TenantID,
	}
}

// ConversationModelFromDomain creates a model from a domain Conversation
func ConversationModelFromDomain(c *messaging.Conversation) *ConversationModel {
	m := &ConversationModel{LeaseID: c.LeaseID, LandlordID: c.LandlordID, TenantID: c.TenantID}
	m.FromDomainBaseEntity(c.BaseEntity)
	return m
}

// MessageModel is one post of a conversation
type MessageModel struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey"`
	ConversationID uuid.UUID `gorm:"type:uuid;not null;index:idx_messages_conversation_created,priority:1"`
	SenderID       uuid.UUID `gorm:"type:uuid;not null"`
	Kind           string    `gorm:"type:varchar(20);not null"`
	Body           string    `gorm:"type:text"`
	AttachmentURL  string    `gorm:"type:text"`
	CreatedAt      time.Time `gorm:"not null;index:idx_messages_conversation_created,priority:2"`
}

// TableName returns the table name for GORM
func (MessageModel) TableName() string {
	return "messages"
}

// ToDomain converts the model to a domain Message
func (m *MessageModel) ToDomain() *messaging.Message {
	return &messaging.Message{
		ID:             m.ID,
		ConversationID: m.ConversationID,
		SenderID:       m.SenderID,
		Kind:           messaging.MessageKind(m.Kind),
		Body:           m.Body,
		AttachmentURL:  m.AttachmentURL,
		CreatedAt:      m.CreatedAt,
	}
}

// MessageModelFromDomain creates a model from a domain Message
func MessageModelFromDomain(msg *messaging.Message) *MessageModel {
	return &MessageModel{
		ID:             msg.ID,
		ConversationID: msg.ConversationID,
		SenderID:       msg.SenderID,
		Kind:           string(msg.Kind),
		Body:           msg.Body,
		AttachmentURL:  msg.AttachmentURL,
		CreatedAt:      msg.CreatedAt,
	}
}
