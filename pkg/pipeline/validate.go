package pipeline

import (
	"github.com/homepulse/homepulse/pkg/models"
)

// eventTypeStateChanged is the only event type the pipeline processes.
const eventTypeStateChanged = "state_changed"

// Validate checks an inbound event before it is enqueued. Violations
// carry a structured code so the caller can report them precisely.
func Validate(raw *models.RawEvent) error {
	if raw.EventType == "" {
		return &ValidationError{Code: CodeMissingField, Field: "event_type"}
	}
	if raw.EventType != eventTypeStateChanged {
		return &ValidationError{Code: CodeUnknownEventType, Field: "event_type"}
	}
	if raw.TimeFired == "" {
		return &ValidationError{Code: CodeMissingField, Field: "time_fired"}
	}
	if _, err := parseTimestamp(raw.TimeFired); err != nil {
		return &ValidationError{Code: CodeMalformedTimestamp, Field: "time_fired"}
	}
	if raw.Data.EntityID == "" {
		return &ValidationError{Code: CodeMissingField, Field: "entity_id"}
	}
	if raw.Data.NewState == nil || raw.Data.NewState.State == "" {
		return &ValidationError{Code: CodeMissingField, Field: "new_state.state"}
	}
	return nil
}
