package common

import (
	"errors"
	"fmt"
	"strconv"
)

// Error categories surfaced to callers. Use errors.Is against these.
var (
	ErrValidation      = errors.New("validation failed")
	ErrUnauthenticated = errors.New("authentication required")
	ErrForbidden       = errors.New("access denied")
	ErrNotFound        = errors.New("not found")
	ErrQuotaExceeded   = errors.New("notes limit reached for current subscription plan")
	ErrAlreadyPro      = errors.New("tenant is already on pro plan")
	ErrTenantMissing   = errors.New("tenant reference does not resolve")
	ErrRateLimited     = errors.New("too many attempts")
)

// ValidationError reports a single invalid input field
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

func NewValidationError(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// QuotaError carries the numbers behind a rejected creation
type QuotaError struct {
	Current      int
	Limit        int
	Subscription string
}

func (e *QuotaError) Error() string {
	return fmt.Sprintf("%s (%d/%d on %s plan)", ErrQuotaExceeded.Error(), e.Current, e.Limit, e.Subscription)
}

func (e *QuotaError) Unwrap() error {
	return ErrQuotaExceeded
}

// Details renders the machine-readable fields for the error payload
func (e *QuotaError) Details() map[string]string {
	return map[string]string{
		"current":      strconv.Itoa(e.Current),
		"limit":        strconv.Itoa(e.Limit),
		"subscription": e.Subscription,
	}
}

// reasonError attaches a caller-facing message to an error category. The
// reason survives any further wrapping with internal context.
type reasonError struct {
	category error
	reason   string
}

func (e *reasonError) Error() string {
	return e.reason
}

func (e *reasonError) Unwrap() error {
	return e.category
}

// Forbidden returns an ErrForbidden with a caller-facing reason
func Forbidden(reason string) error {
	return &reasonError{category: ErrForbidden, reason: reason}
}

// NotFound returns an ErrNotFound naming the resource
func NotFound(resource string) error {
	return &reasonError{category: ErrNotFound, reason: resource + " not found"}
}

// Unauthenticated returns an ErrUnauthenticated with a caller-facing reason
func Unauthenticated(reason string) error {
	return &reasonError{category: ErrUnauthenticated, reason: reason}
}
