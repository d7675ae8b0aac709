package shared

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Error codes for the domain error taxonomy. The route layer maps these to
// transport status codes; the core never deals in HTTP semantics.
const (
	CodeValidation        = "VALIDATION_ERROR"
	CodeNotFound          = "NOT_FOUND"
	CodeInsufficientFunds = "INSUFFICIENT_FUNDS"
	CodeInsufficientStock = "INSUFFICIENT_STOCK"
	CodeInvalidState      = "INVALID_STATE"
	CodeConsistency       = "CONSISTENCY_ERROR"
	CodeDuplicateRequest  = "DUPLICATE_REQUEST"
	CodeConcurrency       = "CONCURRENCY_CONFLICT"
)

// DomainError represents a domain-level error
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// NewValidationError reports malformed or out-of-range input.
func NewValidationError(format string, args ...any) *DomainError {
	return NewDomainError(CodeValidation, fmt.Sprintf(format, args...))
}

// NewNotFoundError reports a missing party, document, payment, or account.
func NewNotFoundError(entity string, id any) *DomainError {
	return NewDomainError(CodeNotFound, fmt.Sprintf("%s not found: %v", entity, id))
}

// NewInsufficientFundsError reports a business-rule funds shortfall.
// The message always carries available vs requested figures so the caller can act.
func NewInsufficientFundsError(available, requested decimal.Decimal) *DomainError {
	return NewDomainError(CodeInsufficientFunds,
		fmt.Sprintf("insufficient funds: available %s, requested %s",
			available.StringFixed(2), requested.StringFixed(2)))
}

// NewInsufficientStockError reports a stock shortfall with figures.
func NewInsufficientStockError(available, requested decimal.Decimal) *DomainError {
	return NewDomainError(CodeInsufficientStock,
		fmt.Sprintf("insufficient stock: available %s, requested %s",
			available.StringFixed(2), requested.StringFixed(2)))
}

// NewInvalidStateError reports an operation that is not valid in the current state.
func NewInvalidStateError(format string, args ...any) *DomainError {
	return NewDomainError(CodeInvalidState, fmt.Sprintf(format, args...))
}

// NewConsistencyError reports recomputed totals diverging from stored balances.
// Raised defensively, never swallowed.
func NewConsistencyError(format string, args ...any) *DomainError {
	return NewDomainError(CodeConsistency, fmt.Sprintf(format, args...))
}

// NewDuplicateRequestError reports a replayed idempotency key.
func NewDuplicateRequestError(key string) *DomainError {
	return NewDomainError(CodeDuplicateRequest, fmt.Sprintf("request already processed: %s", key))
}

// Common domain errors
var (
	ErrNotFound            = NewDomainError(CodeNotFound, "Resource not found")
	ErrConcurrencyConflict = NewDomainError(CodeConcurrency, "Resource was modified by another process")
	ErrInvalidState        = NewDomainError(CodeInvalidState, "Operation not allowed in current state")
)

// errorHasCode reports whether err is a *DomainError carrying the given code.
func errorHasCode(err error, code string) bool {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// IsValidationError reports whether err is a validation failure.
func IsValidationError(err error) bool { return errorHasCode(err, CodeValidation) }

// IsNotFoundError reports whether err is a missing-entity failure.
func IsNotFoundError(err error) bool {
	return errorHasCode(err, CodeNotFound) || errors.Is(err, ErrNotFound)
}

// IsInsufficientFundsError reports whether err is a funds shortfall.
func IsInsufficientFundsError(err error) bool { return errorHasCode(err, CodeInsufficientFunds) }

// IsInsufficientStockError reports whether err is a stock shortfall.
func IsInsufficientStockError(err error) bool { return errorHasCode(err, CodeInsufficientStock) }

// IsInvalidStateError reports whether err is a state-machine violation.
func IsInvalidStateError(err error) bool { return errorHasCode(err, CodeInvalidState) }

// IsConsistencyError reports whether err is a ledger-divergence failure.
func IsConsistencyError(err error) bool { return errorHasCode(err, CodeConsistency) }

// IsDuplicateRequestError reports whether err is an idempotency-key replay.
func IsDuplicateRequestError(err error) bool { return errorHasCode(err, CodeDuplicateRequest) }
