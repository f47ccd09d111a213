package store

import (
	"fmt"
	"maps"
	"slices"

	"github.com/influxdata/line-protocol/v2/lineprotocol"

	"github.com/homepulse/homepulse/pkg/models"
)

// EncodePoints renders points as line protocol with nanosecond
// timestamps. Tags and fields are emitted in sorted key order so the
// same logical point always encodes to the same bytes (retention jobs
// rely on byte-stable re-runs). Empty tag values are skipped.
func EncodePoints(points []models.Point) ([]byte, error) {
	var enc lineprotocol.Encoder
	enc.SetPrecision(lineprotocol.Nanosecond)

	for _, p := range points {
		enc.StartLine(p.Measurement)

		for _, k := range slices.Sorted(maps.Keys(p.Tags)) {
			if v := p.Tags[k]; v != "" {
				enc.AddTag(k, v)
			}
		}

		for _, k := range slices.Sorted(maps.Keys(p.Fields)) {
			v, err := fieldValue(p.Fields[k])
			if err != nil {
				return nil, fmt.Errorf("field %q: %w", k, err)
			}
			enc.AddField(k, v)
		}

		enc.EndLine(p.Time.UTC())
	}

	if err := enc.Err(); err != nil {
		return nil, fmt.Errorf("encoding line protocol: %w", err)
	}
	return enc.Bytes(), nil
}

// fieldValue coerces a point field into a line-protocol value,
// preserving type (number/bool/string).
func fieldValue(v any) (lineprotocol.Value, error) {
	var x any
	switch t := v.(type) {
	case int:
		x = int64(t)
	case int32:
		x = int64(t)
	case uint:
		x = uint64(t)
	case float32:
		x = float64(t)
	case int64, uint64, float64, bool, string:
		x = t
	default:
		return lineprotocol.Value{}, fmt.Errorf("unsupported field type %T", v)
	}

	// NaN/Inf floats and invalid strings are rejected here.
	val, ok := lineprotocol.NewValue(x)
	if !ok {
		return lineprotocol.Value{}, fmt.Errorf("invalid field value %v", v)
	}
	return val, nil
}
