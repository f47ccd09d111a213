package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/homepulse/homepulse/pkg/models"
)

func validEvent() models.RawEvent {
	return models.RawEvent{
		EventType: "state_changed",
		TimeFired: "2025-01-02T03:04:05.000Z",
		Context:   &models.EventContext{ID: "ctx-1"},
		Data: models.EventData{
			EntityID: "light.kitchen",
			OldState: &models.StateEnvelope{
				State:       "off",
				LastChanged: "2025-01-02T03:00:00Z",
			},
			NewState: &models.StateEnvelope{
				State:       "on",
				LastChanged: "2025-01-02T03:04:05Z",
				Attributes: map[string]any{
					"device_class":  "light",
					"friendly_name": "Kitchen",
				},
			},
		},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(*models.RawEvent)
		wantCode string
	}{
		{
			name:   "valid event passes",
			mutate: func(*models.RawEvent) {},
		},
		{
			name:     "missing event_type",
			mutate:   func(e *models.RawEvent) { e.EventType = "" },
			wantCode: CodeMissingField,
		},
		{
			name:     "unknown event_type",
			mutate:   func(e *models.RawEvent) { e.EventType = "call_service" },
			wantCode: CodeUnknownEventType,
		},
		{
			name:     "missing time_fired",
			mutate:   func(e *models.RawEvent) { e.TimeFired = "" },
			wantCode: CodeMissingField,
		},
		{
			name:     "malformed time_fired",
			mutate:   func(e *models.RawEvent) { e.TimeFired = "not-a-date" },
			wantCode: CodeMalformedTimestamp,
		},
		{
			name:     "missing entity_id",
			mutate:   func(e *models.RawEvent) { e.Data.EntityID = "" },
			wantCode: CodeMissingField,
		},
		{
			name:     "missing new_state",
			mutate:   func(e *models.RawEvent) { e.Data.NewState = nil },
			wantCode: CodeMissingField,
		},
		{
			name:     "empty new_state.state",
			mutate:   func(e *models.RawEvent) { e.Data.NewState.State = "" },
			wantCode: CodeMissingField,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev := validEvent()
			tt.mutate(&ev)
			err := Validate(&ev)

			if tt.wantCode == "" {
				assert.NoError(t, err)
				return
			}
			var ve *ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.wantCode, ve.Code)
		})
	}
}
