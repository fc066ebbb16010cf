package errors

// ErrorCode represents a machine-readable error code.
type ErrorCode string

// Construction and usage errors
const (
	// ErrCodeInvalidArgument indicates an operator or scheduler was built with an invalid argument.
	ErrCodeInvalidArgument ErrorCode = "INVALID_ARGUMENT"
	// ErrCodeConfigInvalid indicates a configuration struct failed validation.
	ErrCodeConfigInvalid ErrorCode = "CONFIG_INVALID"
)

// Runtime errors
const (
	// ErrCodeCancelled indicates the subscription was cancelled before a result was produced.
	ErrCodeCancelled ErrorCode = "CANCELLED"
	// ErrCodePanic indicates a user callback panicked and the panic was recovered.
	ErrCodePanic ErrorCode = "PANIC"
	// ErrCodeIteratorFailed indicates an external iterator source failed.
	ErrCodeIteratorFailed ErrorCode = "ITERATOR_FAILED"
	// ErrCodeSchedulerStopped indicates a task was submitted to a stopped scheduler.
	ErrCodeSchedulerStopped ErrorCode = "SCHEDULER_STOPPED"
	// ErrCodeTimeout indicates a blocking terminal gave up waiting.
	ErrCodeTimeout ErrorCode = "TIMEOUT"
)

var retryableCodes = map[ErrorCode]bool{
	ErrCodeIteratorFailed:   true,
	ErrCodeTimeout:          true,
	ErrCodePanic:            true,
	ErrCodeInvalidArgument:  false,
	ErrCodeConfigInvalid:    false,
	ErrCodeCancelled:        false,
	ErrCodeSchedulerStopped: false,
}

// IsRetryableCode returns true if the error code indicates a retryable error.
func IsRetryableCode(code ErrorCode) bool {
	return retryableCodes[code]
}
