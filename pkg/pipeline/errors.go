package pipeline

import "fmt"

// Validation error codes returned to the intake caller.
const (
	CodeMissingField       = "missing_field"
	CodeMalformedTimestamp = "malformed_timestamp"
	CodeUnknownEventType   = "unknown_event_type"
)

// ValidationError rejects an inbound event with a structured code. The
// intake handler maps it to a 400 response.
type ValidationError struct {
	Code  string
	Field string
}

// Error returns the formatted error message.
func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Field)
	}
	return e.Code
}

// ErrSaturated is returned by Submit when the intake queue is past its
// high-water mark. The intake handler maps it to a 503 response.
var ErrSaturated = fmt.Errorf("intake queue saturated")
