package models

import "time"

// Measurement is the canonical measurement name for live hub events.
const Measurement = "home_assistant_events"

// Point is a single time-series measurement row. Tags are the closed,
// low-cardinality indexed set; everything else goes into Fields. Field
// values are string, bool, int64, or float64. Time is UTC with
// nanosecond precision, sourced from the event's time_fired.
type Point struct {
	Measurement string
	Tags        map[string]string
	Fields      map[string]any
	Time        time.Time
}

// WriteBatch is an ordered sequence of points flushed as a unit. A batch
// is immutable once handed to the flusher; retries replay the whole
// batch, which is idempotent because point timestamps are deterministic.
type WriteBatch struct {
	ID            string
	FirstEnqueued time.Time
	Points        []Point
}
