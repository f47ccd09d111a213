package models

import (
	"maps"
	"time"
)

// ProviderReading is one cached observation from an enrichment provider.
// Fields is a small flat record whose keys become point field names (the
// weather provider's reading is mapped to the canonical weather_* names
// at shaping time).
type ProviderReading struct {
	Provider string         `json:"provider"`
	At       time.Time      `json:"at"`
	Stale    bool           `json:"stale"`
	Fields   map[string]any `json:"fields"`
}

// Clone returns a deep copy of the reading. Enrichment snapshots must be
// copies, never references into the provider cache.
func (r ProviderReading) Clone() ProviderReading {
	out := r
	out.Fields = maps.Clone(r.Fields)
	return out
}
