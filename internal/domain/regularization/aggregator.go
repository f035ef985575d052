package regularization

import (
	"context"
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RecoverableLine is one expense with the amount charged back to the tenant
type RecoverableLine struct {
	Expense          *Expense
	Recoverable      decimal.Decimal
	Deductible       decimal.Decimal
	DeductibleManual bool
}

// RecoverableResult is the outcome of a recoverable-expense aggregation
type RecoverableResult struct {
	Total decimal.Decimal
	Lines []RecoverableLine
}

// Expenses returns the aggregated expenses in line order
func (r *RecoverableResult) Expenses() []*Expense {
	out := make([]*Expense, len(r.Lines))
	for i, l := range r.Lines {
		out[i] = l.Expense
	}
	return out
}

// ExpenseIDs returns the IDs of the aggregated expenses in line order
func (r *RecoverableResult) ExpenseIDs() []uuid.UUID {
	out := make([]uuid.UUID, len(r.Lines))
	for i, l := range r.Lines {
		out[i] = l.Expense.ID
	}
	return out
}

// RecoverableExpenseAggregator sums the recoverable share of a property's
// eligible expenses over a window
type RecoverableExpenseAggregator struct {
	expenses   RecoverableExpenseReader
	classifier ExpenseClassifier
}

// NewRecoverableExpenseAggregator creates a new aggregator
func NewRecoverableExpenseAggregator(expenses RecoverableExpenseReader, classifier ExpenseClassifier) *RecoverableExpenseAggregator {
	return &RecoverableExpenseAggregator{expenses: expenses, classifier: classifier}
}

// ComputeRecoverable selects recoverable, unfinalized expenses that occurred in
// the window and sums their recoverable amounts. Lines are ordered by date
// then ID so repeated calls return identical output.
func (a *RecoverableExpenseAggregator) ComputeRecoverable(ctx context.Context, propertyID uuid.UUID, window DateWindow) (*RecoverableResult, error) {
	candidates, err := a.expenses.FindRecoverable(ctx, propertyID, window)
	if err != nil {
		return nil, err
	}

	eligible := make([]*Expense, 0, len(candidates))
	for _, e := range candidates {
		if !e.IsRecoverable || e.IsFinalized || e.PropertyID != propertyID || !window.Contains(e.DateOccurred) {
			continue
		}
		eligible = append(eligible, e)
	}
	sort.SliceStable(eligible, func(i, j int) bool {
		di, dj := eligible[i].DateOccurred, eligible[j].DateOccurred
		if !di.Equal(dj) {
			return di.Before(dj)
		}
		return eligible[i].ID.String() < eligible[j].ID.String()
	})

	result := &RecoverableResult{Total: decimal.Zero, Lines: make([]RecoverableLine, 0, len(eligible))}
	for _, e := range eligible {
		recoverable := a.classifier.RecoverableAmount(e)
		deductible, ok := a.classifier.DeductibleAmount(e)
		result.Total = result.Total.Add(recoverable)
		result.Lines = append(result.Lines, RecoverableLine{
			Expense:          e,
			Recoverable:      recoverable,
			Deductible:       deductible,
			DeductibleManual: !ok,
		})
	}
	return result, nil
}
