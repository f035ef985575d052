package regularization

import (
	"context"
	"errors"
	"time"

	"github.com/coridor/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Statement is the transient regularization preview. It is never persisted.
type Statement struct {
	LeaseID                  uuid.UUID
	PropertyID               uuid.UUID
	Year                     int
	PeriodStart              time.Time
	PeriodEnd                time.Time
	TotalProvisions          decimal.Decimal
	TotalRecoverableExpenses decimal.Decimal
	// Balance is positive when the tenant owes, negative when the landlord owes
	Balance             decimal.Decimal
	Expenses            []RecoverableLine
	ProvisionsBreakdown []AllocationEntry
	// AlreadyCommitted flags a re-audit of a window that has a settlement record
	AlreadyCommitted bool
	ReconciliationID *uuid.UUID
}

// Window returns the statement's period bounds
func (s *Statement) Window() DateWindow {
	return DateWindow{Start: s.PeriodStart, End: s.PeriodEnd}
}

// ExpenseIDs returns the IDs of the expenses considered
func (s *Statement) ExpenseIDs() []uuid.UUID {
	ids := make([]uuid.UUID, len(s.Expenses))
	for i, l := range s.Expenses {
		ids[i] = l.Expense.ID
	}
	return ids
}

// StatementBuilder composes the allocator and aggregator into a preview.
// It only reads, and may be called concurrently.
type StatementBuilder struct {
	allocator  *ProvisionAllocator
	aggregator *RecoverableExpenseAggregator
	history    CommittedWindowFinder
}

// StatementBuilderOption configures a StatementBuilder
type StatementBuilderOption func(*StatementBuilder)

// WithCommittedWindowFinder enables re-audit flagging of committed windows
func WithCommittedWindowFinder(f CommittedWindowFinder) StatementBuilderOption {
	return func(b *StatementBuilder) {
		b.history = f
	}
}

// NewStatementBuilder creates a new statement builder
func NewStatementBuilder(allocator *ProvisionAllocator, aggregator *RecoverableExpenseAggregator, opts ...StatementBuilderOption) *StatementBuilder {
	b := &StatementBuilder{allocator: allocator, aggregator: aggregator}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// GenerateStatement builds the regularization preview of a lease for a calendar year.
// A lease without any financial period overlapping the year is a NotFoundError,
// distinct from a valid statement whose provisions total zero.
func (b *StatementBuilder) GenerateStatement(ctx context.Context, leaseID, propertyID uuid.UUID, year int) (*Statement, error) {
	if leaseID == uuid.Nil {
		return nil, NewValidationError("lease_id is required")
	}
	if propertyID == uuid.Nil {
		return nil, NewValidationError("property_id is required")
	}
	window, err := YearWindow(year)
	if err != nil {
		return nil, err
	}

	provisions, err := b.allocator.ComputeProvisions(ctx, leaseID, window)
	if err != nil {
		return nil, err
	}
	if !provisions.HasFinancialData() {
		return nil, NewNotFoundError(CodeNoFinancialData,
			"Lease %s has no financial period overlapping %d", leaseID, year)
	}

	recoverable, err := b.aggregator.ComputeRecoverable(ctx, propertyID, window)
	if err != nil {
		return nil, err
	}

	stmt := &Statement{
		LeaseID:                  leaseID,
		PropertyID:               propertyID,
		Year:                     year,
		PeriodStart:              window.Start,
		PeriodEnd:                window.End,
		TotalProvisions:          provisions.Total,
		TotalRecoverableExpenses: recoverable.Total,
		Balance:                  ComputeBalance(recoverable.Total, provisions.Total),
		Expenses:                 recoverable.Lines,
		ProvisionsBreakdown:      provisions.Breakdown,
	}

	if b.history != nil {
		existing, err := b.history.FindByWindow(ctx, leaseID, window)
		switch {
		case err == nil && existing != nil:
			stmt.AlreadyCommitted = true
			id := existing.ID
			stmt.ReconciliationID = &id
		case err != nil && !errors.Is(err, shared.ErrNotFound):
			return nil, err
		}
	}
	return stmt, nil
}

// ComputeBalance returns recoverable minus provisions
func ComputeBalance(totalRecoverable, totalProvisions decimal.Decimal) decimal.Decimal {
	return totalRecoverable.Sub(totalProvisions)
}
