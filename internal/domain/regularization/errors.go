package regularization

import (
	"errors"
	"fmt"

	"github.com/coridor/backend/internal/domain/shared"
)

// Error codes raised by the regularization engine
const (
	CodeValidation            = "VALIDATION_ERROR"
	CodeInvalidYear           = "INVALID_YEAR"
	CodeInvalidAmount         = "INVALID_AMOUNT"
	CodeInvalidRatio          = "INVALID_RATIO"
	CodeInvalidCategory       = "INVALID_CATEGORY"
	CodeInvalidPeriod         = "INVALID_PERIOD"
	CodeDuplicateExpense      = "DUPLICATE_EXPENSE"
	CodeNotFound              = "NOT_FOUND"
	CodeLeaseNotFound         = "LEASE_NOT_FOUND"
	CodePropertyNotFound      = "PROPERTY_NOT_FOUND"
	CodeNoFinancialData       = "NO_FINANCIAL_DATA"
	CodeExpenseLocked         = "EXPENSE_ALREADY_FINALIZED"
	CodeAlreadyCommitted      = "REGULARIZATION_ALREADY_COMMITTED"
	CodeExpenseFinalized      = "EXPENSE_FINALIZED"
	CodePeriodOverlap         = "FINANCIAL_PERIOD_OVERLAP"
	CodePersistence           = "PERSISTENCE_ERROR"
	CodeNotification          = "NOTIFICATION_ERROR"
	CodeConversationNotFound  = "CONVERSATION_NOT_FOUND"
	CodeReconciliationMissing = "RECONCILIATION_NOT_FOUND"
	CodeOutboxEntryNotFound   = "OUTBOX_ENTRY_NOT_FOUND"
	CodeOutboxEntryNotDead    = "OUTBOX_ENTRY_NOT_DEAD"
	CodeIdempotencyKeyReused  = "IDEMPOTENCY_KEY_REUSED"
)

// ErrorKind groups error codes into the engine's taxonomy
type ErrorKind string

const (
	KindValidation   ErrorKind = "VALIDATION"
	KindNotFound     ErrorKind = "NOT_FOUND"
	KindConflict     ErrorKind = "CONFLICT"
	KindPersistence  ErrorKind = "PERSISTENCE"
	KindNotification ErrorKind = "NOTIFICATION"
	KindUnknown      ErrorKind = "UNKNOWN"
)

var codeKinds = map[string]ErrorKind{
	CodeValidation:            KindValidation,
	CodeInvalidYear:           KindValidation,
	CodeInvalidAmount:         KindValidation,
	CodeInvalidRatio:          KindValidation,
	CodeInvalidCategory:       KindValidation,
	CodeInvalidPeriod:         KindValidation,
	CodeDuplicateExpense:      KindValidation,
	CodeNotFound:              KindNotFound,
	CodeLeaseNotFound:         KindNotFound,
	CodePropertyNotFound:      KindNotFound,
	CodeNoFinancialData:       KindNotFound,
	CodeConversationNotFound:  KindNotFound,
	CodeReconciliationMissing: KindNotFound,
	CodeOutboxEntryNotFound:   KindNotFound,
	CodeExpenseLocked:         KindConflict,
	CodeAlreadyCommitted:      KindConflict,
	CodeExpenseFinalized:      KindConflict,
	CodePeriodOverlap:         KindConflict,
	CodeOutboxEntryNotDead:    KindConflict,
	CodeIdempotencyKeyReused:  KindConflict,
	CodePersistence:           KindPersistence,
	CodeNotification:          KindNotification,
}

// KindOf classifies an error. Errors outside the domain report KindUnknown.
func KindOf(err error) ErrorKind {
	de, ok := shared.AsDomainError(err)
	if !ok {
		return KindUnknown
	}
	return KindOfCode(de.Code)
}

// KindOfCode classifies an error code.
func KindOfCode(code string) ErrorKind {
	if kind, ok := codeKinds[code]; ok {
		return kind
	}
	return KindUnknown
}

// IsValidation reports whether err is a ValidationError
func IsValidation(err error) bool { return KindOf(err) == KindValidation }

// IsNotFound reports whether err is a NotFoundError
func IsNotFound(err error) bool { return KindOf(err) == KindNotFound }

// IsConflict reports whether err is a ConflictError
func IsConflict(err error) bool { return KindOf(err) == KindConflict }

// NewValidationError creates a ValidationError with the generic code
func NewValidationError(format string, args ...any) *shared.DomainError {
	return shared.NewDomainError(CodeValidation, fmt.Sprintf(format, args...))
}

// NewNotFoundError creates a NotFoundError
func NewNotFoundError(code, format string, args ...any) *shared.DomainError {
	return shared.NewDomainError(code, fmt.Sprintf(format, args...))
}

// NewConflictError creates a ConflictError
func NewConflictError(code, format string, args ...any) *shared.DomainError {
	return shared.NewDomainError(code, fmt.Sprintf(format, args...))
}

// PersistenceError wraps a storage failure. The cause is kept for logging and
// is never shown to API callers.
type PersistenceError struct {
	*shared.DomainError
	Cause error
}

// NewPersistenceError wraps cause as a PersistenceError
func NewPersistenceError(op string, cause error) *PersistenceError {
	return &PersistenceError{
		DomainError: shared.NewDomainError(CodePersistence, fmt.Sprintf("failed to %s", op)),
		Cause:       cause,
	}
}

// Unwrap exposes both the domain error and the storage cause
func (e *PersistenceError) Unwrap() []error {
	return []error{e.DomainError, e.Cause}
}

// Error includes the cause for operator-facing logs
func (e *PersistenceError) Error() string {
	if e.Cause == nil {
		return e.DomainError.Error()
	}
	return e.DomainError.Error() + ": " + e.Cause.Error()
}

// NotificationError wraps a failure in post-commit document delivery
type NotificationError struct {
	*shared.DomainError
	Cause error
}

// NewNotificationError wraps cause as a NotificationError
func NewNotificationError(step string, cause error) *NotificationError {
	return &NotificationError{
		DomainError: shared.NewDomainError(CodeNotification, fmt.Sprintf("document delivery failed at %s", step)),
		Cause:       cause,
	}
}

// Unwrap exposes both the domain error and the delivery cause
func (e *NotificationError) Unwrap() []error {
	return []error{e.DomainError, e.Cause}
}

func (e *NotificationError) Error() string {
	if e.Cause == nil {
		return e.DomainError.Error()
	}
	return e.DomainError.Error() + ": " + e.Cause.Error()
}

// IsPersistence reports whether err is a PersistenceError
func IsPersistence(err error) bool {
	var pe *PersistenceError
	return errors.As(err, &pe)
}
