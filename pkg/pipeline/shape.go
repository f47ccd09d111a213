package pipeline

import (
	"github.com/homepulse/homepulse/pkg/config"
	"github.com/homepulse/homepulse/pkg/models"
)

// promotedAttrs are attribute keys already extracted into their own
// tags or fields; they are not flattened again as attr_* fields.
var promotedAttrs = map[string]bool{
	"device_class":        true,
	"area_id":             true,
	"device_id":           true,
	"friendly_name":       true,
	"icon":                true,
	"unit_of_measurement": true,
	"manufacturer":        true,
	"model":               true,
	"sw_version":          true,
	"integration":         true,
	"entity_category":     true,
}

// weatherFieldNames maps weather reading fields to their point field
// names. The condition becomes a tag, not a field.
var weatherFieldNames = map[string]string{
	"temperature_c": "weather_temp",
	"humidity_pct":  "weather_humidity",
	"pressure_hpa":  "weather_pressure",
	"wind_speed_ms": "wind_speed",
	"description":   "weather_description",
}

// Shape turns an enriched event into a store point. The tag set is
// closed: only the low-cardinality identifiers below become tags,
// everything else is a field. Unbounded strings (friendly names,
// context ids) never become tags.
func Shape(ev models.EnrichedEvent) models.Point {
	p := models.Point{
		Measurement: models.Measurement,
		Tags: map[string]string{
			"entity_id":       ev.EntityID,
			"domain":          ev.Domain,
			"device_class":    ev.DeviceClass,
			"event_type":      ev.EventType,
			"device_id":       ev.DeviceID,
			"area_id":         ev.AreaID,
			"entity_category": string(ev.EntityCategory),
			"integration":     ev.Integration,
			"time_of_day":     timeOfDay(ev.TimeFired.Hour()),
		},
		Fields: map[string]any{
			"state": ev.State,
		},
		Time: ev.TimeFired,
	}

	setIf := func(key, val string) {
		if val != "" {
			p.Fields[key] = val
		}
	}
	setIf("old_state", ev.OldState)
	setIf("context_id", ev.ContextID)
	setIf("context_parent_id", ev.ContextParentID)
	setIf("context_user_id", ev.ContextUserID)
	setIf("friendly_name", ev.FriendlyName)
	setIf("icon", ev.Icon)
	setIf("unit_of_measurement", ev.UnitOfMeasurement)
	setIf("manufacturer", ev.Manufacturer)
	setIf("model", ev.Model)
	setIf("sw_version", ev.SWVersion)

	if ev.StateNumeric != nil {
		p.Fields["state_numeric"] = *ev.StateNumeric
	}
	if ev.DurationInState != nil {
		p.Fields["duration_in_state_seconds"] = *ev.DurationInState
	}

	for key, val := range ev.Attributes {
		if promotedAttrs[key] {
			continue
		}
		if v, ok := fieldable(val); ok {
			p.Fields["attr_"+key] = v
		}
	}

	for name, reading := range ev.Readings {
		addReadingFields(&p, name, reading)
	}

	return p
}

// addReadingFields copies a provider reading into the point. Weather
// gets its canonical field names and contributes the weather_condition
// tag; other providers are flattened under their name.
func addReadingFields(p *models.Point, provider string, reading models.ProviderReading) {
	if provider == config.ProviderWeather {
		for key, val := range reading.Fields {
			if key == "condition" {
				if s, ok := val.(string); ok {
					p.Tags["weather_condition"] = s
				}
				continue
			}
			name, ok := weatherFieldNames[key]
			if !ok {
				name = "weather_" + key
			}
			if v, ok := fieldable(val); ok {
				p.Fields[name] = v
			}
		}
		return
	}

	for key, val := range reading.Fields {
		if v, ok := fieldable(val); ok {
			p.Fields[provider+"_"+key] = v
		}
	}
}

// fieldable keeps primitive values (number/bool/string) and rejects
// nested structures, which have no line-protocol representation.
func fieldable(v any) (any, bool) {
	switch t := v.(type) {
	case float64, float32, int, int32, int64, uint, uint64, bool, string:
		return t, true
	default:
		return nil, false
	}
}

// timeOfDay buckets an event hour: morning 05-11, afternoon 12-16,
// evening 17-20, night 21-04.
func timeOfDay(hour int) string {
	switch {
	case hour >= 5 && hour <= 11:
		return "morning"
	case hour >= 12 && hour <= 16:
		return "afternoon"
	case hour >= 17 && hour <= 20:
		return "evening"
	default:
		return "night"
	}
}
