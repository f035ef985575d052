package regularization

import "github.com/shopspring/decimal"

// DeductibilityRule decides which share of an expense is deductible
type DeductibilityRule string

const (
	// RuleFull makes the entire amount deductible
	RuleFull DeductibilityRule = "FULL"
	// RuleNone makes nothing deductible
	RuleNone DeductibilityRule = "NONE"
	// RulePartial deducts the amount left after the recoverable share
	RulePartial DeductibilityRule = "PARTIAL"
	// RuleManual requires a human to supply the amount
	RuleManual DeductibilityRule = "MANUAL"
)

var one = decimal.NewFromInt(1)

// ruleFor maps every category to its rule. The second result is false only
// for values outside the enum.
func ruleFor(c ExpenseCategory) (DeductibilityRule, bool) {
	switch c {
	case CategoryWater, CategoryElectricityCommon, CategoryElevator,
		CategoryHeatingCommon, CategoryCleaning, CategoryGarbageTax:
		return RuleFull, true
	case CategoryInsurance, CategoryPropertyTax, CategoryManagementFees, CategoryLoanInterest:
		return RuleNone, true
	case CategoryCaretaker, CategoryCoproCharges:
		return RulePartial, true
	case CategoryWorks, CategoryOther:
		return RuleManual, true
	}
	return RuleManual, false
}

// ExpenseClassifier computes deductible and recoverable amounts from an
// expense's own fields. It holds no state and is safe for concurrent use.
type ExpenseClassifier struct{}

// NewExpenseClassifier creates a classifier
func NewExpenseClassifier() ExpenseClassifier {
	return ExpenseClassifier{}
}

// RuleFor returns the deductibility rule of a category. Unknown categories
// fall back to RuleManual.
func (ExpenseClassifier) RuleFor(c ExpenseCategory) DeductibilityRule {
	rule, _ := ruleFor(c)
	return rule
}

// DeductibleAmount returns the deductible share of an expense. The boolean is
// false for MANUAL categories, whose amount must be entered by hand.
func (cl ExpenseClassifier) DeductibleAmount(e *Expense) (decimal.Decimal, bool) {
	switch cl.RuleFor(e.Category) {
	case RuleFull:
		return e.AmountTotal, true
	case RuleNone:
		return decimal.Zero, true
	case RulePartial:
		return e.AmountTotal.Sub(partialRecoverable(e)), true
	default:
		return decimal.Decimal{}, false
	}
}

// RecoverableAmount returns the share of an expense chargeable to the tenant:
// the explicit override when present, else amount × ratio with a ratio of 1
// when none is set.
func (ExpenseClassifier) RecoverableAmount(e *Expense) decimal.Decimal {
	if e.RecoverableAmount != nil {
		return *e.RecoverableAmount
	}
	ratio := one
	if e.RecoverableRatio != nil {
		ratio = *e.RecoverableRatio
	}
	return RoundCents(e.AmountTotal.Mul(ratio))
}

// partialRecoverable is the recoverable share used by the PARTIAL rule, where
// a missing ratio counts as 0.
func partialRecoverable(e *Expense) decimal.Decimal {
	if e.RecoverableAmount != nil {
		return *e.RecoverableAmount
	}
	if e.RecoverableRatio == nil {
		return decimal.Zero
	}
	return RoundCents(e.AmountTotal.Mul(*e.RecoverableRatio))
}

// RoundCents rounds to the nearest cent, halves away from zero
func RoundCents(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}
