package pipeline

import (
	"fmt"
	"log/slog"
	"maps"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/homepulse/homepulse/pkg/models"
)

// durationWarnThreshold flags implausibly long state durations. They
// are logged, not rejected.
const durationWarnThreshold = 7 * 24 * time.Hour

// timestampLayouts are the hub's observed timestamp forms. RFC3339Nano
// covers both the fractional and whole-second variants; the space form
// shows up in some recorder exports.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999Z07:00",
}

func parseTimestamp(s string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

// Normalize converts a validated raw event into its canonical UTC form.
// The result is fully determined by the input, so re-running it over
// the same event always yields the same normalized event.
func Normalize(raw *models.RawEvent, correlationID string, logger *slog.Logger) (models.NormalizedEvent, error) {
	timeFired, err := parseTimestamp(raw.TimeFired)
	if err != nil {
		return models.NormalizedEvent{}, &ValidationError{Code: CodeMalformedTimestamp, Field: "time_fired"}
	}

	ev := models.NormalizedEvent{
		EventType:     raw.EventType,
		EntityID:      raw.Data.EntityID,
		Domain:        entityDomain(raw.Data.EntityID),
		TimeFired:     timeFired,
		CorrelationID: correlationID,
	}

	if raw.Context != nil {
		ev.ContextID = raw.Context.ID
		ev.ContextParentID = raw.Context.ParentID
		ev.ContextUserID = raw.Context.UserID
	}

	newState := raw.Data.NewState
	ev.State = newState.State
	if n, err := strconv.ParseFloat(newState.State, 64); err == nil && !math.IsNaN(n) && !math.IsInf(n, 0) {
		ev.StateNumeric = &n
	}
	if t, err := parseTimestamp(newState.LastChanged); err == nil {
		ev.NewLastChanged = &t
	}

	if old := raw.Data.OldState; old != nil {
		ev.OldState = old.State
		if t, err := parseTimestamp(old.LastChanged); err == nil {
			ev.OldLastChanged = &t
		}
	}

	// Duration in the previous state, when both sides carry a
	// last_changed. A negative difference means the hub re-sent states
	// out of order; treat it as first-seen rather than poisoning the
	// series.
	if ev.NewLastChanged != nil && ev.OldLastChanged != nil {
		d := ev.NewLastChanged.Sub(*ev.OldLastChanged)
		switch {
		case d < 0:
			logger.Warn("Negative state duration, dropping",
				"entity_id", ev.EntityID,
				"duration", d,
				"correlation_id", correlationID)
		case d > durationWarnThreshold:
			secs := d.Seconds()
			ev.DurationInState = &secs
			logger.Warn("Implausibly long state duration",
				"entity_id", ev.EntityID,
				"duration", d,
				"correlation_id", correlationID)
		default:
			secs := d.Seconds()
			ev.DurationInState = &secs
		}
	}

	extractAttributes(&ev, newState.Attributes)
	return ev, nil
}

// entityDomain is the entity_id prefix before the first dot.
func entityDomain(entityID string) string {
	domain, _, _ := strings.Cut(entityID, ".")
	return domain
}

// extractAttributes promotes well-known attributes into typed fields
// and keeps the full map for attr_* flattening at shaping time.
func extractAttributes(ev *models.NormalizedEvent, attrs map[string]any) {
	ev.EntityCategory = models.CategoryRegular
	if len(attrs) == 0 {
		return
	}

	str := func(key string) string {
		if v, ok := attrs[key].(string); ok {
			return v
		}
		return ""
	}

	ev.DeviceClass = str("device_class")
	ev.AreaID = str("area_id")
	ev.DeviceID = str("device_id")
	ev.FriendlyName = str("friendly_name")
	ev.Icon = str("icon")
	ev.UnitOfMeasurement = str("unit_of_measurement")
	ev.Manufacturer = str("manufacturer")
	ev.Model = str("model")
	ev.SWVersion = str("sw_version")
	ev.Integration = str("integration")

	switch str("entity_category") {
	case "diagnostic":
		ev.EntityCategory = models.CategoryDiagnostic
	case "config":
		ev.EntityCategory = models.CategoryConfig
	}

	ev.Attributes = maps.Clone(attrs)
}
