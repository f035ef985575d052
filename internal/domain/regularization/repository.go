package regularization

import (
	"context"

	"github.com/coridor/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// FinancialPeriodReader loads the charge regimes needed by the allocator
type FinancialPeriodReader interface {
	// FindOverlapping returns the lease's periods with start <= window end and
	// (end is null or end >= window start)
	FindOverlapping(ctx context.Context, leaseID uuid.UUID, window DateWindow) ([]*FinancialPeriod, error)
}

// FinancialPeriodRepository defines the interface for financial period persistence
type FinancialPeriodRepository interface {
	FinancialPeriodReader

	// FindByLease returns every period of a lease ordered by start date
	FindByLease(ctx context.Context, leaseID uuid.UUID) ([]*FinancialPeriod, error)

	// Create persists the first period of a lease
	Create(ctx context.Context, period *FinancialPeriod) error

	// SaveAmendment closes the previous period (when not nil) and creates the
	// new one in a single transaction
	SaveAmendment(ctx context.Context, closed, opened *FinancialPeriod) error
}

// RecoverableExpenseReader loads the candidates of an aggregation
type RecoverableExpenseReader interface {
	// FindRecoverable returns recoverable, unfinalized expenses of a property
	// that occurred within the window
	FindRecoverable(ctx context.Context, propertyID uuid.UUID, window DateWindow) ([]*Expense, error)
}

// ExpenseFilter defines filtering options for expense queries
type ExpenseFilter struct {
	shared.Filter
	PropertyID       uuid.UUID
	Year             *int
	Category         *ExpenseCategory
	IncludeFinalized bool
}

// ExpenseRepository defines the interface for expense persistence
type ExpenseRepository interface {
	RecoverableExpenseReader

	// FindByID finds an expense by ID
	FindByID(ctx context.Context, id uuid.UUID) (*Expense, error)
	// FindByIDs loads the listed expenses by date then ID; unknown IDs are skipped
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]*Expense, error)

	// FindByProperty lists a property's expenses with filtering
	FindByProperty(ctx context.Context, filter ExpenseFilter) ([]*Expense, int64, error)

	// Create persists a new expense
	Create(ctx context.Context, expense *Expense) error

	// Delete removes an unfinalized expense
	Delete(ctx context.Context, id uuid.UUID) error
}

// CommittedWindowFinder looks up the settlement record of a window
type CommittedWindowFinder interface {
	// FindByWindow returns shared.ErrNotFound when the window was never committed
	FindByWindow(ctx context.Context, leaseID uuid.UUID, window DateWindow) (*ReconciliationHistory, error)
}

// ReconciliationRepository persists settlement records and locks their expenses
type ReconciliationRepository interface {
	CommittedWindowFinder

	// FindByID loads a settlement record with its items
	FindByID(ctx context.Context, id uuid.UUID) (*ReconciliationHistory, error)

	// FindByLease lists a lease's settlement records, newest first
	FindByLease(ctx context.Context, leaseID uuid.UUID) ([]*ReconciliationHistory, error)

	// Commit atomically inserts the history and its items, marks every listed
	// expense finalized only if none was finalized before, and saves the
	// history's domain events to the outbox. It returns a ConflictError when
	// an expense was already consumed or the window was already committed.
	Commit(ctx context.Context, history *ReconciliationHistory) error
}
