package regularization

import (
	"time"

	"github.com/coridor/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Event type names
const (
	EventTypeRegularizationCommitted    = "RegularizationCommitted"
	EventTypeRegularizationDocumentSent = "RegularizationDocumentSent"
)

// RegularizationCommittedEvent is raised when a settlement record is committed.
// Document delivery consumes it after the transaction has committed.
type RegularizationCommittedEvent struct {
	shared.BaseDomainEvent
	ReconciliationID uuid.UUID       `json:"reconciliation_id"`
	LeaseID          uuid.UUID       `json:"lease_id"`
	PropertyID       uuid.UUID       `json:"property_id"`
	Year             int             `json:"year"`
	PeriodStart      time.Time       `json:"period_start"`
	PeriodEnd        time.Time       `json:"period_end"`
	FinalBalance     decimal.Decimal `json:"final_balance"`
	TotalRealCharges decimal.Decimal `json:"total_real_charges"`
	TotalProvisions  decimal.Decimal `json:"total_provisions"`
	ExpenseCount     int             `json:"expense_count"`
}

// EventType returns the event type name
func (e *RegularizationCommittedEvent) EventType() string {
	return EventTypeRegularizationCommitted
}

// NewRegularizationCommittedEvent creates a new RegularizationCommittedEvent
func NewRegularizationCommittedEvent(h *ReconciliationHistory) *RegularizationCommittedEvent {
	return &RegularizationCommittedEvent{
		BaseDomainEvent:  shared.NewBaseDomainEvent(EventTypeRegularizationCommitted, AggregateTypeReconciliation, h.ID),
		ReconciliationID: h.ID,
		LeaseID:          h.LeaseID,
		PropertyID:       h.PropertyID,
		Year:             h.Year,
		PeriodStart:      h.PeriodStart,
		PeriodEnd:        h.PeriodEnd,
		FinalBalance:     h.FinalBalance,
		TotalRealCharges: h.TotalRealCharges,
		TotalProvisions:  h.TotalProvisions,
		ExpenseCount:     len(h.Items),
	}
}

// RegularizationDocumentSentEvent is raised when a document was posted to the
// landlord-tenant conversation
type RegularizationDocumentSentEvent struct {
	shared.BaseDomainEvent
	LeaseID        uuid.UUID `json:"lease_id"`
	ConversationID uuid.UUID `json:"conversation_id"`
	MessageID      uuid.UUID `json:"message_id"`
	DocumentURL    string    `json:"document_url"`
	Year           int       `json:"year"`
}

// EventType returns the event type name
func (e *RegularizationDocumentSentEvent) EventType() string {
	return EventTypeRegularizationDocumentSent
}

// NewRegularizationDocumentSentEvent creates a new RegularizationDocumentSentEvent
func NewRegularizationDocumentSentEvent(leaseID, conversationID, messageID uuid.UUID, documentURL string, year int) *RegularizationDocumentSentEvent {
	return &RegularizationDocumentSentEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeRegularizationDocumentSent, "Conversation", conversationID),
		LeaseID:         leaseID,
		ConversationID:  conversationID,
		MessageID:       messageID,
		DocumentURL:     documentURL,
		Year:            year,
	}
}
