package logger

import (
	"time"
)

// Standard field key constants for structured logging.
const (
	FieldService        = "service"
	FieldComponent      = "component"
	FieldOperator       = "operator"
	FieldScheduler      = "scheduler"
	FieldSubscriptionID = "subscription_id"
	FieldAttempt        = "attempt"
	FieldStatus         = "status"
	FieldError          = "error"
	FieldDuration       = "duration_ms"
	FieldStack          = "stack"
)

// Fields builds a map[string]interface{} from alternating key-value pairs.
//
//	log.Debug("retrying", logger.Fields("attempt", 2, "remaining", 1))
func Fields(kvs ...interface{}) map[string]interface{} {
	m := make(map[string]interface{}, len(kvs)/2)
	for i := 0; i < len(kvs)-1; i += 2 {
		if key, ok := kvs[i].(string); ok {
			m[key] = kvs[i+1]
		}
	}
	return m
}

// ErrorFields creates fields for an operator that failed.
func ErrorFields(op string, err error) map[string]interface{} {
	return map[string]interface{}{
		FieldOperator: op,
		FieldError:    err.Error(),
	}
}

// DurationFields creates fields for a timed task.
func DurationFields(op string, d time.Duration) map[string]interface{} {
	return map[string]interface{}{
		FieldOperator: op,
		FieldDuration: d.Milliseconds(),
	}
}
