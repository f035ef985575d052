package regularization

import (
	"time"

	"github.com/coridor/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AggregateTypeReconciliation is the aggregate type of ReconciliationHistory events
const AggregateTypeReconciliation = "ReconciliationHistory"

// RegularizationStatus is the lifecycle state of a regularization
type RegularizationStatus string

const (
	StatusPreviewed RegularizationStatus = "PREVIEWED"
	StatusCommitted RegularizationStatus = "COMMITTED"
)

// IsTerminal reports whether no further transition is allowed
func (s RegularizationStatus) IsTerminal() bool {
	return s == StatusCommitted
}

// ReconciliationHistory is the immutable settlement record of a committed
// regularization. It is created once and never updated or deleted.
type ReconciliationHistory struct {
	shared.BaseAggregateRoot
	PropertyID       uuid.UUID
	LeaseID          uuid.UUID
	Year             int
	PeriodStart      time.Time
	PeriodEnd        time.Time
	TotalRealCharges decimal.Decimal
	TotalProvisions  decimal.Decimal
	FinalBalance     decimal.Decimal
	Status           RegularizationStatus
	Items            []ReconciliationItem
}

// ReconciliationItem links a settlement record to an expense it consumed
type ReconciliationItem struct {
	ID               uuid.UUID
	ReconciliationID uuid.UUID
	ExpenseID        uuid.UUID
	CreatedAt        time.Time
}

// CommitInput carries the approved figures of a previewed statement
type CommitInput struct {
	LeaseID          uuid.UUID
	PropertyID       uuid.UUID
	Year             int
	FinalBalance     decimal.Decimal
	TotalRealCharges decimal.Decimal
	TotalProvisions  decimal.Decimal
	ExpenseIDs       []uuid.UUID
}

// NewReconciliationHistory turns approved totals into a committed record with
// one item per expense. The totals are taken as supplied since they may
// reflect a human review after the preview.
func NewReconciliationHistory(in CommitInput) (*ReconciliationHistory, error) {
	if in.LeaseID == uuid.Nil {
		return nil, NewValidationError("lease_id is required")
	}
	if in.PropertyID == uuid.Nil {
		return nil, NewValidationError("property_id is required")
	}
	window, err := YearWindow(in.Year)
	if err != nil {
		return nil, err
	}
	if in.TotalRealCharges.IsNegative() {
		return nil, shared.NewDomainError(CodeInvalidAmount, "Total real charges cannot be negative")
	}
	if in.TotalProvisions.IsNegative() {
		return nil, shared.NewDomainError(CodeInvalidAmount, "Total provisions cannot be negative")
	}

	seen := make(map[uuid.UUID]struct{}, len(in.ExpenseIDs))
	for _, id := range in.ExpenseIDs {
		if id == uuid.Nil {
			return nil, NewValidationError("expense_ids must not contain empty IDs")
		}
		if _, dup := seen[id]; dup {
			return nil, shared.NewDomainError(CodeDuplicateExpense, "Expense "+id.String()+" is listed more than once")
		}
		seen[id] = struct{}{}
	}

	h := &ReconciliationHistory{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		PropertyID:        in.PropertyID,
		LeaseID:           in.LeaseID,
		Year:              in.Year,
		PeriodStart:       window.Start,
		PeriodEnd:         window.End,
		TotalRealCharges:  RoundCents(in.TotalRealCharges),
		TotalProvisions:   RoundCents(in.TotalProvisions),
		FinalBalance:      RoundCents(in.FinalBalance),
		Status:            StatusCommitted,
		Items:             make([]ReconciliationItem, 0, len(in.ExpenseIDs)),
	}
	for _, id := range in.ExpenseIDs {
		h.Items = append(h.Items, ReconciliationItem{
			ID:               uuid.New(),
			ReconciliationID: h.ID,
			ExpenseID:        id,
			CreatedAt:        h.CreatedAt,
		})
	}

	h.AddDomainEvent(NewRegularizationCommittedEvent(h))
	return h, nil
}

// Window returns the settled period
func (h *ReconciliationHistory) Window() DateWindow {
	return DateWindow{Start: h.PeriodStart, End: h.PeriodEnd}
}

// ExpenseIDs returns the IDs of the consumed expenses
func (h *ReconciliationHistory) ExpenseIDs() []uuid.UUID {
	ids := make([]uuid.UUID, len(h.Items))
	for i, item := range h.Items {
		ids[i] = item.ExpenseID
	}
	return ids
}

// TenantOwes reports whether the final balance is due by the tenant
func (h *ReconciliationHistory) TenantOwes() bool {
	return h.FinalBalance.IsPositive()
}
