package regularization

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/coridor/backend/internal/domain/leasing"
	"github.com/coridor/backend/internal/domain/regularization"
	"github.com/coridor/backend/internal/domain/shared"
	"github.com/coridor/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// StatementService serves regularization previews
type StatementService struct {
	builder  *regularization.StatementBuilder
	leases   leasing.LeaseDirectory
	exporter SpreadsheetExporter
	metrics  *telemetry.RegularizationMetrics
	timeout  time.Duration
	logger   *zap.Logger
}

// NewStatementService creates a new StatementService
func NewStatementService(
	builder *regularization.StatementBuilder,
	leases leasing.LeaseDirectory,
	timeout time.Duration,
	logger *zap.Logger,
) *StatementService {
	return &StatementService{
		builder: builder,
		leases:  leases,
		timeout: timeout,
		logger:  logger,
	}
}

// SetExporter enables spreadsheet export
func (s *StatementService) SetExporter(exporter SpreadsheetExporter) {
	s.exporter = exporter
}

// SetMetrics sets the regularization metrics recorder
func (s *StatementService) SetMetrics(m *telemetry.RegularizationMetrics) {
	s.metrics = m
}

// Preview computes the regularization statement of a lease for a year.
// It never writes.
func (s *StatementService) Preview(ctx context.Context, leaseID, propertyID uuid.UUID, year int) (*StatementResponse, error) {
	stmt, _, err := s.generate(ctx, leaseID, propertyID, year)
	if err != nil {
		return nil, err
	}
	resp := ToStatementResponse(stmt)
	return &resp, nil
}

// ExportXLSX renders the preview of a lease and year as a workbook. It
// returns the workbook bytes and a suggested file name.
func (s *StatementService) ExportXLSX(ctx context.Context, leaseID, propertyID uuid.UUID, year int) ([]byte, string, error) {
	if s.exporter == nil {
		return nil, "", errors.New("spreadsheet export is not configured")
	}
	stmt, lease, err := s.generate(ctx, leaseID, propertyID, year)
	if err != nil {
		return nil, "", err
	}

	doc := NewPreviewDocument(stmt, lease, time.Now())
	var data []byte
	telemetry.WithProfilingLabels(ctx, telemetry.OperationLabels(telemetry.OperationStatementExport, nil), func(context.Context) {
		data, err = s.exporter.ExportXLSX(doc)
	})
	if err != nil {
		return nil, "", fmt.Errorf("failed to export statement: %w", err)
	}
	return data, fmt.Sprintf("regularization-%s-%d.xlsx", leaseID, year), nil
}

func (s *StatementService) generate(ctx context.Context, leaseID, propertyID uuid.UUID, year int) (*regularization.Statement, *leasing.Lease, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "regularization", "preview",
		telemetry.WithAttribute(telemetry.SpanAttrLeaseID, leaseID.String()),
		telemetry.WithAttribute(telemetry.SpanAttrYear, year),
		telemetry.WithAttribute(telemetry.SpanAttrPropertyID, propertyID.String()),
	)
	defer span.End()

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	start := time.Now()
	if _, err := regularization.YearWindow(year); err != nil {
		return nil, nil, err
	}
	lease, err := resolveLease(ctx, s.leases, leaseID, propertyID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, nil, err
	}

	var stmt *regularization.Statement
	telemetry.WithProfilingLabels(ctx, telemetry.OperationLabels(telemetry.OperationStatementPreview, nil), func(ctx context.Context) {
		stmt, err = s.builder.GenerateStatement(ctx, leaseID, propertyID, year)
	})
	s.metrics.RecordPreview(ctx, time.Since(start), err)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, nil, err
	}

	s.logger.Debug("statement generated",
		zap.String("lease_id", leaseID.String()),
		zap.Int("year", year),
		zap.String("total_provisions", stmt.TotalProvisions.String()),
		zap.String("total_recoverable", stmt.TotalRecoverableExpenses.String()),
		zap.Int("expense_count", len(stmt.Expenses)),
		zap.Bool("already_committed", stmt.AlreadyCommitted),
	)
	telemetry.SetOK(span)
	return stmt, lease, nil
}

// resolveLease loads a lease and checks it belongs to propertyID
func resolveLease(ctx context.Context, leases leasing.LeaseDirectory, leaseID, propertyID uuid.UUID) (*leasing.Lease, error) {
	if leaseID == uuid.Nil {
		return nil, regularization.NewValidationError("lease_id is required")
	}
	if propertyID == uuid.Nil {
		return nil, regularization.NewValidationError("propertyId is required")
	}

	exists, err := leases.PropertyExists(ctx, propertyID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, regularization.NewNotFoundError(regularization.CodePropertyNotFound, "Property %s not found", propertyID)
	}

	lease, err := findLease(ctx, leases, leaseID)
	if err != nil {
		return nil, err
	}
	if lease.PropertyID != propertyID {
		return nil, regularization.NewNotFoundError(regularization.CodeLeaseNotFound,
			"Lease %s does not belong to property %s", leaseID, propertyID)
	}
	return lease, nil
}

func findLease(ctx context.Context, leases leasing.LeaseDirectory, leaseID uuid.UUID) (*leasing.Lease, error) {
	lease, err := leases.FindLease(ctx, leaseID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, regularization.NewNotFoundError(regularization.CodeLeaseNotFound, "Lease %s not found", leaseID)
		}
		return nil, err
	}
	return lease, nil
}

// NewPreviewDocument builds the printable view of a previewed statement
func NewPreviewDocument(stmt *regularization.Statement, lease *leasing.Lease, issuedAt time.Time) *StatementDocument {
	doc := &StatementDocument{
		ReconciliationID:         stmt.ReconciliationID,
		Year:                     stmt.Year,
		PeriodStart:              stmt.PeriodStart,
		PeriodEnd:                stmt.PeriodEnd,
		TotalProvisions:          stmt.TotalProvisions,
		TotalRecoverableExpenses: stmt.TotalRecoverableExpenses,
		Balance:                  stmt.Balance,
		Lines:                    make([]DocumentLine, len(stmt.Expenses)),
		Provisions:               toDocumentProvisions(stmt.ProvisionsBreakdown),
		IssuedAt:                 issuedAt,
	}
	applyLease(doc, lease)
	for i, line := range stmt.Expenses {
		doc.Lines[i] = DocumentLine{
			Date:        line.Expense.DateOccurred,
			Category:    line.Expense.Category.String(),
			Label:       line.Expense.Label,
			Amount:      line.Expense.AmountTotal,
			Recoverable: line.Recoverable,
		}
	}
	return doc
}

func applyLease(doc *StatementDocument, lease *leasing.Lease) {
	if lease == nil {
		return
	}
	doc.TenantName = lease.TenantName
	doc.UnitName = lease.UnitName
	doc.PropertyAddress = lease.PropertyAddress
}

func toDocumentProvisions(entries []regularization.AllocationEntry) []DocumentProvision {
	out := make([]DocumentProvision, len(entries))
	for i, e := range entries {
		out[i] = DocumentProvision{
			From:          e.OverlapStart,
			To:            e.OverlapEnd,
			Days:          e.Days,
			MonthlyCharge: e.MonthlyCharge,
			Amount:        e.Amount,
		}
	}
	return out
}
