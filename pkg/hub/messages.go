package hub

import (
	"encoding/json"

	"github.com/homepulse/homepulse/pkg/models"
)

// Hub frame types.
const (
	frameAuthRequired = "auth_required"
	frameAuthOK       = "auth_ok"
	frameAuthInvalid  = "auth_invalid"
	frameResult       = "result"
	frameEvent        = "event"
	framePong         = "pong"
)

// serverFrame is any message the hub sends. Only the fields relevant to
// the frame type are populated.
type serverFrame struct {
	Type    string          `json:"type"`
	ID      int64           `json:"id,omitempty"`
	Success bool            `json:"success,omitempty"`
	Message string          `json:"message,omitempty"`
	Event   json.RawMessage `json:"event,omitempty"`
}

// authMessage is the client's response to auth_required.
type authMessage struct {
	Type        string `json:"type"`
	AccessToken string `json:"access_token"`
}

// subscribeMessage subscribes to state_changed events. IDs are
// session-local and monotonically increasing.
type subscribeMessage struct {
	Type      string `json:"type"`
	ID        int64  `json:"id"`
	EventType string `json:"event_type"`
}

// decodeEvent parses an event frame's payload.
func decodeEvent(raw json.RawMessage) (models.RawEvent, error) {
	var ev models.RawEvent
	err := json.Unmarshal(raw, &ev)
	return ev, err
}
