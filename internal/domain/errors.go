package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrForbidden is returned when the caller is not the transaction payer.
	ErrForbidden = errors.New("not allowed to access this transaction")

	// ErrGatewayNotConfigured is returned by initiation flows when the
	// gateway secret key is absent from the environment.
	ErrGatewayNotConfigured = errors.New("payment service not configured")
)

// ValidationError reports rejected client input. Surfaced as 4xx with the
// message verbatim; never retried.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func Validationf(format string, args ...any) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// GatewayError reports a failed or unreachable payment gateway call.
type GatewayError struct {
	Op  string
	Err error
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("gateway %s failed: %v", e.Op, e.Err)
}

func (e *GatewayError) Unwrap() error { return e.Err }

// ReconciliationError reports a side-effect step that failed while applying
// a gateway event. The transaction is forced to failed with this captured
// as its failure reason; the webhook is still acknowledged.
type ReconciliationError struct {
	Step string
	Err  error
}

func (e *ReconciliationError) Error() string {
	return fmt.Sprintf("reconciliation step %s: %v", e.Step, e.Err)
}

func (e *ReconciliationError) Unwrap() error { return e.Err }
