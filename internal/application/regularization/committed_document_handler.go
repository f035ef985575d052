package regularization

import (
	"context"
	"fmt"
	"time"

	"github.com/coridor/backend/internal/domain/leasing"
	"github.com/coridor/backend/internal/domain/regularization"
	"github.com/coridor/backend/internal/domain/shared"
	"github.com/coridor/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// PDFContentType is the media type of rendered statements
const PDFContentType = "application/pdf"

// CommittedDocumentHandler handles RegularizationCommittedEvent by rendering
// the settlement statement, storing it and posting it to the tenant.
// Any failure is returned so the outbox retries the delivery.
type CommittedDocumentHandler struct {
	reconciliations regularization.ReconciliationRepository
	expenses        regularization.ExpenseRepository
	allocator       *regularization.ProvisionAllocator
	leases          leasing.LeaseDirectory
	renderer        DocumentRenderer
	store           DocumentStore
	documents       *DocumentService
	logger          *zap.Logger
}

// CommittedDocumentDeps groups the collaborators of CommittedDocumentHandler
type CommittedDocumentDeps struct {
	Reconciliations regularization.ReconciliationRepository
	Expenses        regularization.ExpenseRepository
	Periods         regularization.FinancialPeriodReader
	Leases          leasing.LeaseDirectory
	Renderer        DocumentRenderer
	Store           DocumentStore
	Documents       *DocumentService
}

// NewCommittedDocumentHandler creates a new handler for committed regularizations
func NewCommittedDocumentHandler(deps CommittedDocumentDeps, logger *zap.Logger) *CommittedDocumentHandler {
	return &CommittedDocumentHandler{
		reconciliations: deps.Reconciliations,
		expenses:        deps.Expenses,
		allocator:       regularization.NewProvisionAllocator(deps.Periods),
		leases:          deps.Leases,
		renderer:        deps.Renderer,
		store:           deps.Store,
		documents:       deps.Documents,
		logger:          logger,
	}
}

// EventTypes returns the event types this handler is interested in
func (h *CommittedDocumentHandler) EventTypes() []string {
	return []string{regularization.EventTypeRegularizationCommitted}
}

// Handle delivers the statement of a committed regularization
func (h *CommittedDocumentHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	committed, ok := event.(*regularization.RegularizationCommittedEvent)
	if !ok {
		h.logger.Error("unexpected event type",
			zap.String("expected", regularization.EventTypeRegularizationCommitted),
			zap.String("actual", event.EventType()),
		)
		return fmt.Errorf("unexpected event type: expected %s, got %s",
			regularization.EventTypeRegularizationCommitted, event.EventType())
	}

	h.logger.Info("processing regularization committed event",
		zap.String("reconciliation_id", committed.ReconciliationID.String()),
		zap.String("lease_id", committed.LeaseID.String()),
		zap.Int("year", committed.Year),
	)

	doc, err := h.buildDocument(ctx, committed)
	if err != nil {
		return h.fail("load", committed, err)
	}

	var pdf []byte
	telemetry.WithProfilingLabels(ctx, telemetry.OperationLabels(telemetry.OperationDocumentRender, nil), func(context.Context) {
		pdf, err = h.renderer.RenderPDF(doc)
	})
	if err != nil {
		return h.fail("render", committed, err)
	}

	url, err := h.store.Store(ctx, DocumentKey(committed), PDFContentType, pdf)
	if err != nil {
		return h.fail("store", committed, err)
	}

	resp, err := h.documents.Send(ctx, SendDocumentRequest{
		LeaseID:     committed.LeaseID,
		DocumentURL: url,
		Year:        committed.Year,
	})
	if err != nil {
		// Send already wrapped and logged the failure
		return err
	}

	h.logger.Info("regularization statement delivered",
		zap.String("reconciliation_id", committed.ReconciliationID.String()),
		zap.String("conversation_id", resp.ConversationID.String()),
		zap.Int("bytes", len(pdf)),
	)
	return nil
}

// buildDocument assembles the statement from the immutable settlement record.
// Totals come from the record; the expense lines are the consumed expenses.
// The provision breakdown is recomputed from the lease's periods and is left
// out when it no longer adds up to the committed provisions.
func (h *CommittedDocumentHandler) buildDocument(ctx context.Context, event *regularization.RegularizationCommittedEvent) (*StatementDocument, error) {
	history, err := h.reconciliations.FindByID(ctx, event.ReconciliationID)
	if err != nil {
		return nil, err
	}
	expenses, err := h.expenses.FindByIDs(ctx, history.ExpenseIDs())
	if err != nil {
		return nil, err
	}
	provisions, err := h.allocator.ComputeProvisions(ctx, history.LeaseID, history.Window())
	if err != nil {
		return nil, err
	}

	id := history.ID
	doc := &StatementDocument{
		ReconciliationID:         &id,
		Year:                     history.Year,
		PeriodStart:              history.PeriodStart,
		PeriodEnd:                history.PeriodEnd,
		TotalProvisions:          history.TotalProvisions,
		TotalRecoverableExpenses: history.TotalRealCharges,
		Balance:                  history.FinalBalance,
		Lines:                    make([]DocumentLine, len(expenses)),
		IssuedAt:                 time.Now(),
	}
	if provisions.Total.Round(2).Equal(history.TotalProvisions.Round(2)) {
		doc.Provisions = toDocumentProvisions(provisions.Breakdown)
	} else {
		h.logger.Warn("provision breakdown differs from committed total, omitting it",
			zap.String("reconciliation_id", history.ID.String()),
			zap.String("committed_provisions", history.TotalProvisions.StringFixed(2)),
			zap.String("recomputed_provisions", provisions.Total.StringFixed(2)),
		)
	}

	lease, err := h.leases.FindLease(ctx, history.LeaseID)
	if err != nil {
		return nil, err
	}
	applyLease(doc, lease)

	classifier := regularization.NewExpenseClassifier()
	for i, e := range expenses {
		doc.Lines[i] = DocumentLine{
			Date:        e.DateOccurred,
			Category:    e.Category.String(),
			Label:       e.Label,
			Amount:      e.AmountTotal,
			Recoverable: classifier.RecoverableAmount(e),
		}
	}
	return doc, nil
}

func (h *CommittedDocumentHandler) fail(step string, event *regularization.RegularizationCommittedEvent, err error) error {
	h.logger.Error("regularization document delivery failed",
		zap.String("step", step),
		zap.String("reconciliation_id", event.ReconciliationID.String()),
		zap.String("lease_id", event.LeaseID.String()),
		zap.Error(err),
	)
	return regularization.NewNotificationError(step, err)
}

// DocumentKey is the storage key of a committed regularization's statement
func DocumentKey(event *regularization.RegularizationCommittedEvent) string {
	return fmt.Sprintf("regularizations/%s/%d/%s.pdf", event.LeaseID, event.Year, event.ReconciliationID)
}
