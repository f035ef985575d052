package regularization

import (
	"strings"
	"time"

	"github.com/coridor/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ExpenseCategory is the closed set of landlord expense categories
type ExpenseCategory string

const (
	CategoryWater             ExpenseCategory = "WATER"
	CategoryElectricityCommon ExpenseCategory = "ELECTRICITY_COMMON"
	CategoryElevator          ExpenseCategory = "ELEVATOR"
	CategoryHeatingCommon     ExpenseCategory = "HEATING_COMMON"
	CategoryCleaning          ExpenseCategory = "CLEANING"
	CategoryGarbageTax        ExpenseCategory = "GARBAGE_TAX"
	CategoryInsurance         ExpenseCategory = "INSURANCE"
	CategoryPropertyTax       ExpenseCategory = "PROPERTY_TAX"
	CategoryManagementFees    ExpenseCategory = "MANAGEMENT_FEES"
	CategoryLoanInterest      ExpenseCategory = "LOAN_INTEREST"
	CategoryCaretaker         ExpenseCategory = "CARETAKER"
	CategoryCoproCharges      ExpenseCategory = "COPRO_CHARGES"
	CategoryWorks             ExpenseCategory = "WORKS"
	CategoryOther             ExpenseCategory = "OTHER"
)

// AllExpenseCategories lists every category in display order
var AllExpenseCategories = []ExpenseCategory{
	CategoryWater,
	CategoryElectricityCommon,
	CategoryElevator,
	CategoryHeatingCommon,
	CategoryCleaning,
	CategoryGarbageTax,
	CategoryInsurance,
	CategoryPropertyTax,
	CategoryManagementFees,
	CategoryLoanInterest,
	CategoryCaretaker,
	CategoryCoproCharges,
	CategoryWorks,
	CategoryOther,
}

// IsValid checks if the category is one of the known categories
func (c ExpenseCategory) IsValid() bool {
	_, ok := ruleFor(c)
	return ok
}

// String returns the string representation of ExpenseCategory
func (c ExpenseCategory) String() string {
	return string(c)
}

// ParseExpenseCategory converts user input into a category
func ParseExpenseCategory(s string) (ExpenseCategory, error) {
	c := ExpenseCategory(strings.ToUpper(strings.TrimSpace(s)))
	if !c.IsValid() {
		return "", shared.NewDomainError(CodeInvalidCategory, "Expense category is not valid: "+s)
	}
	return c, nil
}

// Expense is a cost incurred by a landlord for a property.
// Only the commit workflow mutates it, by setting IsFinalized.
type Expense struct {
	shared.BaseAggregateRoot
	PropertyID        uuid.UUID
	Category          ExpenseCategory
	Label             string
	AmountTotal       decimal.Decimal
	IsRecoverable     bool
	RecoverableAmount *decimal.Decimal
	RecoverableRatio  *decimal.Decimal
	IsFinalized       bool
	DateOccurred      time.Time
}

// ExpenseInput carries the fields of a landlord expense entry
type ExpenseInput struct {
	PropertyID        uuid.UUID
	Category          ExpenseCategory
	Label             string
	AmountTotal       decimal.Decimal
	IsRecoverable     bool
	RecoverableAmount *decimal.Decimal
	RecoverableRatio  *decimal.Decimal
	DateOccurred      time.Time
}

// NewExpense validates and creates a new expense
func NewExpense(in ExpenseInput) (*Expense, error) {
	if in.PropertyID == uuid.Nil {
		return nil, NewValidationError("property_id is required")
	}
	if !in.Category.IsValid() {
		return nil, shared.NewDomainError(CodeInvalidCategory, "Expense category is not valid")
	}
	if !in.AmountTotal.IsPositive() {
		return nil, shared.NewDomainError(CodeInvalidAmount, "Expense amount must be positive")
	}
	if in.DateOccurred.IsZero() {
		return nil, NewValidationError("date_occurred is required")
	}
	if len(in.Label) > 200 {
		return nil, NewValidationError("label cannot exceed 200 characters")
	}
	amount := in.AmountTotal.Round(2)

	var recoverable *decimal.Decimal
	if in.RecoverableAmount != nil {
		v := in.RecoverableAmount.Round(2)
		if v.IsNegative() || v.GreaterThan(amount) {
			return nil, shared.NewDomainError(CodeInvalidAmount, "Recoverable amount must be between 0 and the expense total")
		}
		recoverable = &v
	}
	if in.RecoverableRatio != nil {
		r := *in.RecoverableRatio
		if r.IsNegative() || r.GreaterThan(decimal.NewFromInt(1)) {
			return nil, shared.NewDomainError(CodeInvalidRatio, "Recoverable ratio must be between 0 and 1")
		}
	}

	e := &Expense{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		PropertyID:        in.PropertyID,
		Category:          in.Category,
		Label:             strings.TrimSpace(in.Label),
		AmountTotal:       amount,
		IsRecoverable:     in.IsRecoverable,
		RecoverableAmount: recoverable,
		RecoverableRatio:  in.RecoverableRatio,
		DateOccurred:      Day(in.DateOccurred),
	}
	return e, nil
}

// Year returns the calendar year the expense occurred in
func (e *Expense) Year() int {
	return e.DateOccurred.Year()
}

// EnsureDeletable rejects removal of an expense consumed by a regularization
func (e *Expense) EnsureDeletable() error {
	if e.IsFinalized {
		return NewConflictError(CodeExpenseFinalized, "Expense %s is part of a committed regularization", e.ID)
	}
	return nil
}
