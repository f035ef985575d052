package persistence

import (
	"context"
	"errors"

	"github.com/coridor/backend/internal/domain/messaging"
	"github.com/coridor/backend/internal/domain/regularization"
	"github.com/coridor/backend/internal/domain/shared"
	"github.com/coridor/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormConversationRepository implements messaging.ConversationRepository
type GormConversationRepository struct {
	db *gorm.DB
}

// NewGormConversationRepository creates a new GormConversationRepository
func NewGormConversationRepository(db *gorm.DB) *GormConversationRepository {
	return &GormConversationRepository{db: db}
}

// FindByLease finds the conversation of a lease
func (r *GormConversationRepository) FindByLease(ctx context.Context, leaseID uuid.UUID) (*messaging.Conversation, error) {
	var row models.ConversationModel
	if err := r.db.WithContext(ctx).First(&row, "lease_id = ?", leaseID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, regularization.NewPersistenceError("load conversation", err)
	}
	return row.ToDomain(), nil
}

// FindOrCreate returns the lease's conversation, inserting conversation when
// none exists. A concurrent insert for the same lease is resolved by reading
// the winner back.
func (r *GormConversationRepository) FindOrCreate(ctx context.Context, conversation *messaging.Conversation) (*messaging.Conversation, error) {
	existing, err := r.FindByLease(ctx, conversation.LeaseID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, shared.ErrNotFound) {
		return nil, err
	}

	if err := r.db.WithContext(ctx).Create(models.ConversationModelFromDomain(conversation)).Error; err != nil {
		if isUniqueViolation(err) {
			return r.FindByLease(ctx, conversation.LeaseID)
		}
		return nil, regularization.NewPersistenceError("create conversation", err)
	}
	return conversation, nil
}

// PostMessage appends a message to a conversation
func (r *GormConversationRepository) PostMessage(ctx context.Context, message *messaging.Message) error {
	if err := r.db.WithContext(ctx).Create(models.MessageModelFromDomain(message)).Error; err != nil {
		return regularization.NewPersistenceError("post message", err)
	}
	return nil
}

// ListMessages returns a conversation's messages, oldest first
func (r *GormConversationRepository) ListMessages(ctx context.Context, conversationID uuid.UUID) ([]*messaging.Message, error) {
	var rows []models.MessageModel
	err := r.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("created_at ASC, id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, regularization.NewPersistenceError("list messages", err)
	}
	out := make([]*messaging.Message, len(rows))
	for i := range rows {
		out[i] = rows[i].ToDomain()
	}
	return out, nil
}

var _ messaging.ConversationRepository = (*GormConversationRepository)(nil)
