package regularization

import (
	"time"

	"github.com/coridor/backend/internal/domain/leasing"
	"github.com/coridor/backend/internal/domain/regularization"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DateLayout is the calendar date format used on the wire
const DateLayout = "2006-01-02"

func formatDate(t time.Time) string {
	return t.UTC().Format(DateLayout)
}

func formatOptionalDate(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := formatDate(*t)
	return &s
}

// parseDate parses a wire date, reporting field in the validation error
func parseDate(field, value string) (time.Time, error) {
	t, err := time.Parse(DateLayout, value)
	if err != nil {
		return time.Time{}, regularization.NewValidationError("%s must be a date formatted as YYYY-MM-DD", field)
	}
	return t, nil
}

// ==================== Statement DTOs ====================

// StatementResponse is the regularization preview of a lease and year
type StatementResponse struct {
	LeaseID                  uuid.UUID                    `json:"leaseId"`
	PropertyID               uuid.UUID                    `json:"propertyId"`
	Year                     int                          `json:"year"`
	PeriodStart              string                       `json:"periodStart"`
	PeriodEnd                string                       `json:"periodEnd"`
	TotalProvisions          decimal.Decimal              `json:"totalProvisions"`
	TotalRecoverableExpenses decimal.Decimal              `json:"totalRecoverableExpenses"`
	Balance                  decimal.Decimal              `json:"balance"`
	Expenses                 []StatementExpenseResponse   `json:"expenses"`
	ProvisionsBreakdown      []ProvisionBreakdownResponse `json:"provisionsBreakdown"`
	AlreadyCommitted         bool                         `json:"alreadyCommitted"`
	ReconciliationID         *uuid.UUID                   `json:"reconciliationId,omitempty"`
}

// StatementExpenseResponse is one expense considered by a statement
type StatementExpenseResponse struct {
	ID                uuid.UUID        `json:"id"`
	Category          string           `json:"category"`
	Label             string           `json:"label"`
	AmountTotal       decimal.Decimal  `json:"amountTotal"`
	DateOccurred      string           `json:"dateOccurred"`
	RecoverableAmount decimal.Decimal  `json:"recoverableAmount"`
	DeductibleAmount  *decimal.Decimal `json:"deductibleAmount"`
	DeductibilityRule string           `json:"deductibilityRule"`
}

// ProvisionBreakdownResponse is the contribution of one financial period
type ProvisionBreakdownResponse struct {
	PeriodID      uuid.UUID       `json:"periodId"`
	From          string          `json:"from"`
	To            string          `json:"to"`
	Days          int             `json:"days"`
	MonthlyCharge decimal.Decimal `json:"monthlyCharge"`
	Amount        decimal.Decimal `json:"amount"`
}

// ToStatementResponse converts a domain statement to its response
func ToStatementResponse(stmt *regularization.Statement) StatementResponse {
	classifier := regularization.NewExpenseClassifier()
	resp := StatementResponse{
		LeaseID:                  stmt.LeaseID,
		PropertyID:               stmt.PropertyID,
		Year:                     stmt.Year,
		PeriodStart:              formatDate(stmt.PeriodStart),
		PeriodEnd:                formatDate(stmt.PeriodEnd),
		TotalProvisions:          stmt.TotalProvisions,
		TotalRecoverableExpenses: stmt.TotalRecoverableExpenses,
		Balance:                  stmt.Balance,
		Expenses:                 make([]StatementExpenseResponse, len(stmt.Expenses)),
		ProvisionsBreakdown:      ToProvisionBreakdownResponses(stmt.ProvisionsBreakdown),
		AlreadyCommitted:         stmt.AlreadyCommitted,
		ReconciliationID:         stmt.ReconciliationID,
	}
	for i, line := range stmt.Expenses {
		e := line.Expense
		item := StatementExpenseResponse{
			ID:                e.ID,
			Category:          e.Category.String(),
			Label:             e.Label,
			AmountTotal:       e.AmountTotal,
			DateOccurred:      formatDate(e.DateOccurred),
			RecoverableAmount: line.Recoverable,
			DeductibilityRule: string(classifier.RuleFor(e.Category)),
		}
		if !line.DeductibleManual {
			d := line.Deductible
			item.DeductibleAmount = &d
		}
		resp.Expenses[i] = item
	}
	return resp
}

// ToProvisionBreakdownResponses converts allocation entries to responses
func ToProvisionBreakdownResponses(entries []regularization.AllocationEntry) []ProvisionBreakdownResponse {
	out := make([]ProvisionBreakdownResponse, len(entries))
	for i, e := range entries {
		out[i] = ProvisionBreakdownResponse{
			PeriodID:      e.PeriodID,
			From:          formatDate(e.OverlapStart),
			To:            formatDate(e.OverlapEnd),
			Days:          e.Days,
			MonthlyCharge: e.MonthlyCharge,
			Amount:        e.Amount,
		}
	}
	return out
}

// ==================== Commit DTOs ====================

// CommitRequest carries the approved figures of a previewed statement. The
// totals are pointers so that a missing or null figure is rejected instead
// of committing zero.
type CommitRequest struct {
	LeaseID          uuid.UUID        `json:"-"`
	PropertyID       uuid.UUID        `json:"propertyId" binding:"required"`
	Year             int              `json:"year" binding:"required,year"`
	FinalBalance     *decimal.Decimal `json:"finalBalance" binding:"required"`
	TotalRealCharges *decimal.Decimal `json:"totalRealCharges" binding:"required"`
	TotalProvisions  *decimal.Decimal `json:"totalProvisions" binding:"required"`
	ExpenseIDs       []uuid.UUID      `json:"expenseIds"`
}

// commitInput checks that every total is present and builds the domain input
func (r CommitRequest) commitInput() (regularization.CommitInput, error) {
	totals := []struct {
		name  string
		value *decimal.Decimal
	}{
		{"finalBalance", r.FinalBalance},
		{"totalRealCharges", r.TotalRealCharges},
		{"totalProvisions", r.TotalProvisions},
	}
	for _, t := range totals {
		if t.value == nil {
			return regularization.CommitInput{}, regularization.NewValidationError("%s is required", t.name)
		}
	}
	return regularization.CommitInput{
		LeaseID:          r.LeaseID,
		PropertyID:       r.PropertyID,
		Year:             r.Year,
		FinalBalance:     *r.FinalBalance,
		TotalRealCharges: *r.TotalRealCharges,
		TotalProvisions:  *r.TotalProvisions,
		ExpenseIDs:       r.ExpenseIDs,
	}, nil
}

// CommitResponse identifies the committed regularization
type CommitResponse struct {
	ReconciliationID uuid.UUID `json:"reconciliationId"`
	// Replayed is set when an Idempotency-Key matched an earlier commit
	Replayed bool `json:"replayed,omitempty"`
}

// ==================== Reconciliation DTOs ====================

// ReconciliationResponse is a committed settlement record
type ReconciliationResponse struct {
	ID               uuid.UUID       `json:"id"`
	LeaseID          uuid.UUID       `json:"leaseId"`
	PropertyID       uuid.UUID       `json:"propertyId"`
	Year             int             `json:"year"`
	PeriodStart      string          `json:"periodStart"`
	PeriodEnd        string          `json:"periodEnd"`
	TotalRealCharges decimal.Decimal `json:"totalRealCharges"`
	TotalProvisions  decimal.Decimal `json:"totalProvisions"`
	FinalBalance     decimal.Decimal `json:"finalBalance"`
	Status           string          `json:"status"`
	ExpenseIDs       []uuid.UUID     `json:"expenseIds"`
	CreatedAt        time.Time       `json:"createdAt"`
}

// ToReconciliationResponse converts a settlement record to its response
func ToReconciliationResponse(h *regularization.ReconciliationHistory) ReconciliationResponse {
	return ReconciliationResponse{
		ID:               h.ID,
		LeaseID:          h.LeaseID,
		PropertyID:       h.PropertyID,
		Year:             h.Year,
		PeriodStart:      formatDate(h.PeriodStart),
		PeriodEnd:        formatDate(h.PeriodEnd),
		TotalRealCharges: h.TotalRealCharges,
		TotalProvisions:  h.TotalProvisions,
		FinalBalance:     h.FinalBalance,
		Status:           string(h.Status),
		ExpenseIDs:       h.ExpenseIDs(),
		CreatedAt:        h.CreatedAt,
	}
}

// ==================== Lease DTOs ====================

// EligibleLeaseResponse is one lease that can be regularized
type EligibleLeaseResponse struct {
	LeaseID         uuid.UUID `json:"leaseId"`
	TenantName      string    `json:"tenantName"`
	UnitName        string    `json:"unitName"`
	PropertyAddress string    `json:"propertyAddress"`
	StartDate       string    `json:"startDate"`
}

// ToEligibleLeaseResponse converts a lease to its selection row
func ToEligibleLeaseResponse(l *leasing.Lease) EligibleLeaseResponse {
	e := l.ToEligible()
	return EligibleLeaseResponse{
		LeaseID:         e.LeaseID,
		TenantName:      e.TenantName,
		UnitName:        e.UnitName,
		PropertyAddress: e.PropertyAddress,
		StartDate:       formatDate(e.StartDate),
	}
}

// ==================== Document DTOs ====================

// SendDocumentRequest posts a document link to the lease's conversation
type SendDocumentRequest struct {
	LeaseID     uuid.UUID `json:"-"`
	DocumentURL string    `json:"documentUrl" binding:"required,url"`
	Year        int       `json:"year" binding:"required,year"`
}

// SendDocumentResponse reports the delivery of a document
type SendDocumentResponse struct {
	Success        bool      `json:"success"`
	ConversationID uuid.UUID `json:"conversationId"`
	MessageID      uuid.UUID `json:"messageId"`
}

// ==================== Expense DTOs ====================

// CreateExpenseRequest records a landlord expense
type CreateExpenseRequest struct {
	PropertyID        uuid.UUID        `json:"propertyId" binding:"required"`
	Category          string           `json:"category" binding:"required"`
	Label             string           `json:"label" binding:"max=200"`
	AmountTotal       decimal.Decimal  `json:"amountTotal" binding:"required"`
	DateOccurred      string           `json:"dateOccurred" binding:"required"`
	IsRecoverable     bool             `json:"isRecoverable"`
	RecoverableAmount *decimal.Decimal `json:"recoverableAmount"`
	RecoverableRatio  *decimal.Decimal `json:"recoverableRatio"`
}

// ExpenseListFilter selects a property's expenses
type ExpenseListFilter struct {
	PropertyID       uuid.UUID `form:"-"`
	Year             *int      `form:"year"`
	Category         string    `form:"category"`
	IncludeFinalized bool      `form:"include_finalized"`
	Page             int       `form:"page"`
	PageSize         int       `form:"page_size"`
}

// ExpenseResponse is an expense with its classification
type ExpenseResponse struct {
	ID                        uuid.UUID        `json:"id"`
	PropertyID                uuid.UUID        `json:"propertyId"`
	Category                  string           `json:"category"`
	Label                     string           `json:"label"`
	AmountTotal               decimal.Decimal  `json:"amountTotal"`
	DateOccurred              string           `json:"dateOccurred"`
	IsRecoverable             bool             `json:"isRecoverable"`
	RecoverableAmountOverride *decimal.Decimal `json:"recoverableAmountOverride,omitempty"`
	RecoverableRatio          *decimal.Decimal `json:"recoverableRatio,omitempty"`
	IsFinalized               bool             `json:"isFinalized"`
	DeductibilityRule         string           `json:"deductibilityRule"`
	DeductibleAmount          *decimal.Decimal `json:"deductibleAmount"`
	RecoverableAmount         decimal.Decimal  `json:"recoverableAmount"`
	CreatedAt                 time.Time        `json:"createdAt"`
}

// ToExpenseResponse converts an expense and classifies it
func ToExpenseResponse(e *regularization.Expense) ExpenseResponse {
	classifier := regularization.NewExpenseClassifier()
	resp := ExpenseResponse{
		ID:                        e.ID,
		PropertyID:                e.PropertyID,
		Category:                  e.Category.String(),
		Label:                     e.Label,
		AmountTotal:               e.AmountTotal,
		DateOccurred:              formatDate(e.DateOccurred),
		IsRecoverable:             e.IsRecoverable,
		RecoverableAmountOverride: e.RecoverableAmount,
		RecoverableRatio:          e.RecoverableRatio,
		IsFinalized:               e.IsFinalized,
		DeductibilityRule:         string(classifier.RuleFor(e.Category)),
		RecoverableAmount:         classifier.RecoverableAmount(e),
		CreatedAt:                 e.CreatedAt,
	}
	if d, ok := classifier.DeductibleAmount(e); ok {
		resp.DeductibleAmount = &d
	}
	return resp
}

// ==================== Financial Period DTOs ====================

// SetChargesRequest opens the first charge regime of a lease
type SetChargesRequest struct {
	StartDate            string          `json:"startDate" binding:"required"`
	MonthlyServiceCharge decimal.Decimal `json:"monthlyServiceCharge"`
}

// AmendChargesRequest changes the monthly charge from a given day
type AmendChargesRequest struct {
	EffectiveDate        string          `json:"effectiveDate" binding:"required"`
	MonthlyServiceCharge decimal.Decimal `json:"monthlyServiceCharge"`
}

// FinancialPeriodResponse is one charge regime of a lease
type FinancialPeriodResponse struct {
	ID                   uuid.UUID       `json:"id"`
	LeaseID              uuid.UUID       `json:"leaseId"`
	StartDate            string          `json:"startDate"`
	EndDate              *string         `json:"endDate"`
	MonthlyServiceCharge decimal.Decimal `json:"monthlyServiceCharge"`
}

// ToFinancialPeriodResponse converts a financial period to its response
func ToFinancialPeriodResponse(p *regularization.FinancialPeriod) FinancialPeriodResponse {
	return FinancialPeriodResponse{
		ID:                   p.ID,
		LeaseID:              p.LeaseID,
		StartDate:            formatDate(p.StartDate),
		EndDate:              formatOptionalDate(p.EndDate),
		MonthlyServiceCharge: p.MonthlyServiceCharge,
	}
}

// ToFinancialPeriodResponses converts financial periods to responses
func ToFinancialPeriodResponses(periods []*regularization.FinancialPeriod) []FinancialPeriodResponse {
	out := make([]FinancialPeriodResponse, len(periods))
	for i, p := range periods {
		out[i] = ToFinancialPeriodResponse(p)
	}
	return out
}
