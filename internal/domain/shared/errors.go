package shared

import "errors"

// DomainError is a business-rule failure with a stable machine-readable code.
// The HTTP layer maps Code to a status; Message is safe to show customers.
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	cause   error
}

func (e *DomainError) Error() string { return e.Message }

func (e *DomainError) Unwrap() error { return e.cause }

// Is compares codes, so errors.Is(err, ErrNotFound) holds for any NOT_FOUND.
func (e *DomainError) Is(target error) bool {
	var t *DomainError
	return errors.As(target, &t) && t.Code == e.Code
}

func NewDomainError(code, message string) *DomainError {
	return &DomainError{Code: code, Message: message}
}

// WrapDomainError keeps cause for logs while customers only see message.
func WrapDomainError(code, message string, cause error) *DomainError {
	return &DomainError{Code: code, Message: message, cause: cause}
}

var (
	ErrNotFound            = NewDomainError("NOT_FOUND", "Resource not found")
	ErrAlreadyExists       = NewDomainError("ALREADY_EXISTS", "Resource already exists")
	ErrInvalidInput        = NewDomainError("INVALID_INPUT", "Invalid input provided")
	ErrConcurrencyConflict = NewDomainError("CONCURRENCY_CONFLICT", "Resource was modified by another process")
	ErrInvalidState        = NewDomainError("INVALID_STATE", "Operation not allowed in current state")
	ErrInsufficientStock   = NewDomainError("INSUFFICIENT_STOCK", "Insufficient stock available")
	ErrExternalUnavailable = NewDomainError("EXTERNAL_SERVICE_UNAVAILABLE", "External service is temporarily unavailable, please try again")
)
