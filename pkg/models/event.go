// Package models defines the event and point types shared across the
// ingestion, enrichment, and retention components.
package models

import "time"

// EventContext is the hub's tracing block attached to events and states.
type EventContext struct {
	ID       string `json:"id"`
	ParentID string `json:"parent_id,omitempty"`
	UserID   string `json:"user_id,omitempty"`
}

// StateEnvelope is one side (old or new) of a state_changed event as it
// arrives from the hub. Timestamps stay raw strings until the normalizer
// parses them; attribute values keep their JSON types.
type StateEnvelope struct {
	State       string         `json:"state"`
	Attributes  map[string]any `json:"attributes,omitempty"`
	LastChanged string         `json:"last_changed,omitempty"`
	LastUpdated string         `json:"last_updated,omitempty"`
	Context     *EventContext  `json:"context,omitempty"`
}

// EventData is the data block of a state_changed event.
type EventData struct {
	EntityID string         `json:"entity_id"`
	OldState *StateEnvelope `json:"old_state,omitempty"`
	NewState *StateEnvelope `json:"new_state,omitempty"`
}

// RawEvent mirrors the hub's event envelope exactly as received over the
// WebSocket and re-posted to the enrichment intake. It is discarded after
// successful normalization.
type RawEvent struct {
	EventType string        `json:"event_type"`
	Data      EventData     `json:"data"`
	TimeFired string        `json:"time_fired"`
	Origin    string        `json:"origin,omitempty"`
	Context   *EventContext `json:"context,omitempty"`
}

// EntityCategory classifies an entity by its role in the hub.
type EntityCategory string

// Entity categories.
const (
	CategoryRegular    EntityCategory = "regular"
	CategoryDiagnostic EntityCategory = "diagnostic"
	CategoryConfig     EntityCategory = "config"
)

// NormalizedEvent is the canonical, timezone-normalized form of a hub
// event. All timestamps are UTC. Nil pointer fields mean "not present"
// (e.g. DurationInState on a first-seen entity).
type NormalizedEvent struct {
	EventType string
	EntityID  string
	Domain    string

	State        string
	StateNumeric *float64
	OldState     string

	TimeFired      time.Time
	OldLastChanged *time.Time
	NewLastChanged *time.Time

	// DurationInState is new.last_changed - old.last_changed in seconds.
	DurationInState *float64

	DeviceClass       string
	AreaID            string
	DeviceID          string
	FriendlyName      string
	Icon              string
	UnitOfMeasurement string
	Manufacturer      string
	Model             string
	SWVersion         string
	Integration       string
	EntityCategory    EntityCategory

	// Attributes holds the new state's full attribute map; flattened into
	// attr_* fields at shaping time.
	Attributes map[string]any

	ContextID       string
	ContextParentID string
	ContextUserID   string

	CorrelationID string
}

// EnrichedEvent is a NormalizedEvent plus provider snapshots. Snapshot
// readings are copies taken at enrichment time, keyed by provider name.
type EnrichedEvent struct {
	NormalizedEvent
	Readings map[string]ProviderReading
}
