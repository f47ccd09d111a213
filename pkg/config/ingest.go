package config

import "time"

// IngestConfig controls the ingestion client's dispatch path: the
// bounded channel between the WebSocket read loop and the workers that
// POST events to the enrichment service.
type IngestConfig struct {
	// EnrichURL is the enrichment service events endpoint.
	EnrichURL string `yaml:"enrich_url"`

	// QueueCapacity bounds the in-process event channel. When full, the
	// oldest unsent event is dropped (dropped_events counter).
	QueueCapacity int `yaml:"queue_capacity"`

	// DispatchWorkers is the number of goroutines draining the channel.
	DispatchWorkers int `yaml:"dispatch_workers"`

	// DispatchRetries is the retry count per POST (exponential backoff).
	DispatchRetries int `yaml:"dispatch_retries"`

	// DispatchTimeout bounds a single POST to the enrichment service.
	DispatchTimeout Duration `yaml:"dispatch_timeout"`

	// EventSilenceThreshold is how long the session may go without any
	// inbound frame before the liveness watchdog forces a reconnect.
	EventSilenceThreshold Duration `yaml:"event_silence_threshold"`
}

// DefaultIngestConfig returns the built-in ingestion defaults.
func DefaultIngestConfig() *IngestConfig {
	return &IngestConfig{
		EnrichURL:             "http://localhost:8080/events",
		QueueCapacity:         10000,
		DispatchWorkers:       4,
		DispatchRetries:       3,
		DispatchTimeout:       Duration(5 * time.Second),
		EventSilenceThreshold: Duration(120 * time.Second),
	}
}
