package types

import (
	"fmt"
	"strings"
)

// ErrorCode categorizes provider errors
type ErrorCode string

const (
	ErrCodeUnknown        ErrorCode = "unknown"
	ErrCodeInvalidInput   ErrorCode = "invalid_input"
	ErrCodeRateLimit      ErrorCode = "rate_limit"
	ErrCodeTimeout        ErrorCode = "timeout"
	ErrCodeNetwork        ErrorCode = "network"
	ErrCodeServerError    ErrorCode = "server_error"
	ErrCodeAuthentication ErrorCode = "authentication"
	ErrCodeConfiguration  ErrorCode = "configuration"
	ErrCodeCircuitOpen    ErrorCode = "circuit_open"
	ErrCodeUnavailable    ErrorCode = "unavailable"
)

// ProviderError represents a standardized error from a provider
type ProviderError struct {
	Code        ErrorCode // Categorized error code
	Message     string    // Human-readable message
	Provider    string    // Which provider generated this error
	Operation   string    // What logical operation failed (e.g. "ocr")
	OriginalErr error     // Wrapped original error
}

// Error implements the error interface
func (e *ProviderError) Error() string {
	if e.Operation != "" {
		return fmt.Sprintf("[%s] %s: %s (code=%s)", e.Provider, e.Operation, e.Message, e.Code)
	}
	return fmt.Sprintf("[%s] %s (code=%s)", e.Provider, e.Message, e.Code)
}

// Unwrap returns the original error for errors.Is/As
func (e *ProviderError) Unwrap() error {
	return e.OriginalErr
}

// IsTransient returns true if the error counts against the circuit breaker
// and should trigger fallback to the next candidate.
func (e *ProviderError) IsTransient() bool {
	switch e.Code {
	case ErrCodeRateLimit, ErrCodeTimeout, ErrCodeNetwork, ErrCodeServerError:
		return true
	}
	return false
}

// WithOperation sets the operation field and returns the error for chaining
func (e *ProviderError) WithOperation(operation string) *ProviderError {
	e.Operation = operation
	return e
}

// WithOriginalErr sets the original error field and returns the error for chaining
func (e *ProviderError) WithOriginalErr(err error) *ProviderError {
	e.OriginalErr = err
	return e
}

// NewProviderError creates a new ProviderError
func NewProviderError(provider string, code ErrorCode, message string) *ProviderError {
	return &ProviderError{
		Code:     code,
		Message:  message,
		Provider: provider,
	}
}

// SkipReason explains why a candidate was skipped without being invoked.
type SkipReason string

const (
	SkipCircuitOpen      SkipReason = "circuit_open"
	SkipTrialInFlight    SkipReason = "trial_in_flight"
	SkipValidationFailed SkipReason = "validation_failed"
	SkipUnavailable      SkipReason = "unavailable"
)

// Attempt records the outcome of one candidate in the fallback chain:
// either an actual invocation that failed, or a skip with its reason.
type Attempt struct {
	Provider string
	Err      error
	Skipped  bool
	Reason   SkipReason
}

func (a Attempt) String() string {
	if a.Skipped {
		return fmt.Sprintf("%s: skipped (%s)", a.Provider, a.Reason)
	}
	return fmt.Sprintf("%s: %v", a.Provider, a.Err)
}

// AggregateError is returned when every candidate provider was skipped or
// failed. It is the only error type a manager surfaces to callers.
type AggregateError struct {
	Operation string
	Attempts  []Attempt
}

// Error implements the error interface
func (e *AggregateError) Error() string {
	parts := make([]string, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		parts = append(parts, a.String())
	}
	return fmt.Sprintf("all providers failed for %q: %s", e.Operation, strings.Join(parts, "; "))
}

// Unwrap exposes the underlying attempt errors to errors.Is/As.
func (e *AggregateError) Unwrap() []error {
	errs := make([]error, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		if a.Err != nil {
			errs = append(errs, a.Err)
		}
	}
	return errs
}

// Attempted returns the number of candidates that were actually invoked.
func (e *AggregateError) Attempted() int {
	n := 0
	for _, a := range e.Attempts {
		if !a.Skipped {
			n++
		}
	}
	return n
}
