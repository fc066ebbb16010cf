package errors

import (
	stderrors "errors"
	"fmt"
)

// AppError is the unified flowkit error type.
type AppError struct {
	// Code is a machine-readable error code.
	Code ErrorCode `json:"code"`
	// Message is a human-readable error message.
	Message string `json:"message"`
	// Op names the operator or component that raised the error.
	Op string `json:"op,omitempty"`
	// Retryable indicates if resubscribing may succeed.
	Retryable bool `json:"retryable"`
	// Details contains additional context for the error.
	Details map[string]any `json:"details,omitempty"`
	// Cause is the underlying error that caused this error.
	Cause error `json:"-"`
}

// Error returns the string representation of the error.
func (e *AppError) Error() string {
	prefix := string(e.Code)
	if e.Op != "" {
		prefix = e.Op + ": " + prefix
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (cause: %v)", prefix, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.Message)
}

// Unwrap returns the underlying cause of the error.
func (e *AppError) Unwrap() error { return e.Cause }

// Is reports whether target is an *AppError with the same code.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return t.Code == e.Code && (t.Op == "" || t.Op == e.Op)
}

// WithCause sets the underlying cause of the error and returns the receiver.
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// WithOp sets the operation name and returns the receiver.
func (e *AppError) WithOp(op string) *AppError {
	e.Op = op
	return e
}

// WithDetail sets a single detail key-value pair and returns the receiver.
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// New creates a new AppError with automatic retryable detection.
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:      code,
		Message:   message,
		Retryable: IsRetryableCode(code),
	}
}

// --- Common Error Constructors ---

// InvalidArgument reports a rejected construction argument.
func InvalidArgument(op, field, reason string) *AppError {
	return &AppError{
		Code: ErrCodeInvalidArgument, Op: op,
		Message: fmt.Sprintf("invalid %s: %s", field, reason),
		Details: map[string]any{"field": field},
	}
}

// ConfigInvalid reports a configuration that failed validation.
func ConfigInvalid(message string) *AppError {
	return &AppError{Code: ErrCodeConfigInvalid, Message: message}
}

// Cancelled reports that a subscription was cancelled.
func Cancelled(op string, cause error) *AppError {
	return &AppError{
		Code: ErrCodeCancelled, Op: op,
		Message: "subscription cancelled", Cause: cause,
	}
}

// IteratorFailed wraps an error returned by an external iterator.
func IteratorFailed(op string, cause error) *AppError {
	return &AppError{
		Code: ErrCodeIteratorFailed, Op: op,
		Message: "iterator failed", Retryable: true, Cause: cause,
	}
}

// SchedulerStopped reports a task submitted after a scheduler was stopped.
func SchedulerStopped(name string) *AppError {
	return &AppError{
		Code: ErrCodeSchedulerStopped, Op: name,
		Message: "scheduler is stopped",
		Details: map[string]any{"scheduler": name},
	}
}

// Timeout reports a blocking wait that gave up.
func Timeout(op string) *AppError {
	return &AppError{
		Code: ErrCodeTimeout, Op: op,
		Message: "timed out waiting for terminal event", Retryable: true,
	}
}

// --- Inspection helpers ---

// AsAppError converts an error to an AppError if possible.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// HasCode reports whether err is an AppError carrying code.
func HasCode(err error, code ErrorCode) bool {
	appErr, ok := AsAppError(err)
	return ok && appErr.Code == code
}

// IsRetryable reports whether err is marked retryable. Errors that are not
// AppErrors are treated as retryable.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if appErr, ok := AsAppError(err); ok {
		return appErr.Retryable
	}
	return true
}
