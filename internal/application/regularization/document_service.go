package regularization

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/coridor/backend/internal/domain/leasing"
	"github.com/coridor/backend/internal/domain/messaging"
	"github.com/coridor/backend/internal/domain/regularization"
	"github.com/coridor/backend/internal/domain/shared"
	"github.com/coridor/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// DocumentService posts regularization documents to the landlord-tenant
// conversation of a lease. It runs after a commit and never inside one.
type DocumentService struct {
	leases         leasing.LeaseDirectory
	conversations  messaging.ConversationRepository
	eventPublisher shared.EventPublisher
	metrics        *telemetry.RegularizationMetrics
	logger         *zap.Logger
}

// NewDocumentService creates a new DocumentService
func NewDocumentService(
	leases leasing.LeaseDirectory,
	conversations messaging.ConversationRepository,
	logger *zap.Logger,
) *DocumentService {
	return &DocumentService{
		leases:        leases,
		conversations: conversations,
		logger:        logger,
	}
}

// SetEventPublisher sets the publisher of RegularizationDocumentSent events
func (s *DocumentService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// SetMetrics sets the regularization metrics recorder
func (s *DocumentService) SetMetrics(m *telemetry.RegularizationMetrics) {
	s.metrics = m
}

// Send locates or opens the lease's conversation and posts a message from the
// landlord referencing the document. Failures past validation are
// NotificationErrors.
func (s *DocumentService) Send(ctx context.Context, req SendDocumentRequest) (*SendDocumentResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "regularization", "send_document",
		telemetry.WithAttribute(telemetry.SpanAttrLeaseID, req.LeaseID.String()),
		telemetry.WithAttribute(telemetry.SpanAttrYear, req.Year),
	)
	defer span.End()

	resp, err := s.send(ctx, req)
	if err != nil {
		telemetry.RecordError(span, err)
		if errors.As(err, new(*regularization.NotificationError)) {
			s.metrics.RecordDocument(ctx, telemetry.DocumentOutcomeFailed)
		}
		return nil, err
	}
	s.metrics.RecordDocument(ctx, telemetry.DocumentOutcomeSent)
	telemetry.SetAttribute(span, telemetry.SpanAttrConversationID, resp.ConversationID.String())
	telemetry.SetOK(span)
	return resp, nil
}

func (s *DocumentService) send(ctx context.Context, req SendDocumentRequest) (*SendDocumentResponse, error) {
	url := strings.TrimSpace(req.DocumentURL)
	if url == "" {
		return nil, regularization.NewValidationError("document_url is required")
	}
	if _, err := regularization.YearWindow(req.Year); err != nil {
		return nil, err
	}
	lease, err := findLease(ctx, s.leases, req.LeaseID)
	if err != nil {
		return nil, err
	}

	candidate, err := messaging.NewConversation(lease.ID, lease.LandlordID, lease.TenantID)
	if err != nil {
		return nil, err
	}
	conversation, err := s.conversations.FindOrCreate(ctx, candidate)
	if err != nil {
		return nil, s.notificationFailure("conversation", req, err)
	}

	msg, err := conversation.NewDocumentMessage(conversation.LandlordID, documentMessageBody(req.Year), url)
	if err != nil {
		return nil, s.notificationFailure("message", req, err)
	}
	if err := s.conversations.PostMessage(ctx, msg); err != nil {
		return nil, s.notificationFailure("message", req, err)
	}

	s.logger.Info("regularization document sent",
		zap.String("lease_id", lease.ID.String()),
		zap.String("conversation_id", conversation.ID.String()),
		zap.String("message_id", msg.ID.String()),
		zap.Int("year", req.Year),
	)
	s.publishSent(ctx, regularization.NewRegularizationDocumentSentEvent(lease.ID, conversation.ID, msg.ID, url, req.Year))

	return &SendDocumentResponse{
		Success:        true,
		ConversationID: conversation.ID,
		MessageID:      msg.ID,
	}, nil
}

func (s *DocumentService) notificationFailure(step string, req SendDocumentRequest, err error) error {
	s.logger.Error("regularization document delivery failed",
		zap.String("step", step),
		zap.String("lease_id", req.LeaseID.String()),
		zap.Int("year", req.Year),
		zap.Error(err),
	)
	return regularization.NewNotificationError(step, err)
}

// publishSent announces a delivery. The message is already posted, so a
// publish failure is only logged.
func (s *DocumentService) publishSent(ctx context.Context, event *regularization.RegularizationDocumentSentEvent) {
	if s.eventPublisher == nil {
		return
	}
	if err := s.eventPublisher.Publish(ctx, event); err != nil {
		s.logger.Warn("failed to publish document sent event",
			zap.String("lease_id", event.LeaseID.String()),
			zap.Error(err),
		)
	}
}

func documentMessageBody(year int) string {
	return fmt.Sprintf("Your %d service charge regularization statement is available.", year)
}
