package config

import (
	"fmt"
	"strings"
)

// validate performs comprehensive validation (fail-fast, stops at the
// first error). A process must not start partially configured.
func validate(cfg *Config) error {
	if err := validateHub(cfg.Hub); err != nil {
		return fmt.Errorf("hub validation failed: %w", err)
	}
	if err := validateIngest(cfg.Ingest); err != nil {
		return fmt.Errorf("ingest validation failed: %w", err)
	}
	if err := validateEnrich(cfg.Enrich); err != nil {
		return fmt.Errorf("enrich validation failed: %w", err)
	}
	if err := validateProviders(cfg.Providers); err != nil {
		return fmt.Errorf("provider validation failed: %w", err)
	}
	if err := validateStore(cfg.Store); err != nil {
		return fmt.Errorf("store validation failed: %w", err)
	}
	if err := validateRetention(cfg.Retention); err != nil {
		return fmt.Errorf("retention validation failed: %w", err)
	}
	if err := validateLogging(cfg.Logging); err != nil {
		return fmt.Errorf("logging validation failed: %w", err)
	}
	return nil
}

func validateHub(hub *HubConfig) error {
	if hub == nil {
		return fmt.Errorf("hub configuration is nil")
	}
	if hub.URL == "" {
		return NewValidationError("hub", "primary", "url", ErrMissingRequiredField)
	}
	if !isWebSocketURL(hub.URL) {
		return NewValidationError("hub", "primary", "url", fmt.Errorf("%w: must be ws:// or wss://", ErrInvalidValue))
	}
	if hub.Token == "" {
		return NewValidationError("hub", "primary", "token", ErrMissingRequiredField)
	}
	if hub.FallbackURL != "" {
		if !isWebSocketURL(hub.FallbackURL) {
			return NewValidationError("hub", "fallback", "fallback_url", fmt.Errorf("%w: must be ws:// or wss://", ErrInvalidValue))
		}
		if hub.FallbackToken == "" {
			return NewValidationError("hub", "fallback", "fallback_token", ErrMissingRequiredField)
		}
	}
	if hub.ReconnectToPrimaryInterval <= 0 {
		return NewValidationError("hub", "primary", "reconnect_to_primary_interval", fmt.Errorf("%w: must be positive", ErrInvalidValue))
	}
	return nil
}

func validateIngest(ing *IngestConfig) error {
	if ing == nil {
		return fmt.Errorf("ingest configuration is nil")
	}
	if ing.QueueCapacity < 1 {
		return NewValidationError("ingest", "dispatch", "queue_capacity", fmt.Errorf("%w: must be at least 1", ErrInvalidValue))
	}
	if ing.DispatchWorkers < 1 || ing.DispatchWorkers > 64 {
		return NewValidationError("ingest", "dispatch", "dispatch_workers", fmt.Errorf("%w: must be between 1 and 64", ErrInvalidValue))
	}
	if ing.DispatchRetries < 0 || ing.DispatchRetries > 10 {
		return NewValidationError("ingest", "dispatch", "dispatch_retries", fmt.Errorf("%w: must be between 0 and 10", ErrInvalidValue))
	}
	if ing.EventSilenceThreshold <= 0 {
		return NewValidationError("ingest", "watchdog", "event_silence_threshold", fmt.Errorf("%w: must be positive", ErrInvalidValue))
	}
	if !strings.HasPrefix(ing.EnrichURL, "http://") && !strings.HasPrefix(ing.EnrichURL, "https://") {
		return NewValidationError("ingest", "dispatch", "enrich_url", fmt.Errorf("%w: must be http:// or https://", ErrInvalidValue))
	}
	return nil
}

func validateEnrich(en *EnrichConfig) error {
	if en == nil {
		return fmt.Errorf("enrich configuration is nil")
	}
	if en.IntakeQueue < 1 {
		return NewValidationError("enrich", "intake", "intake_queue", fmt.Errorf("%w: must be at least 1", ErrInvalidValue))
	}
	if en.Workers < 1 || en.Workers > 64 {
		return NewValidationError("enrich", "pipeline", "workers", fmt.Errorf("%w: must be between 1 and 64", ErrInvalidValue))
	}
	if en.BatchSize < 1 || en.BatchSize > 10000 {
		return NewValidationError("enrich", "batch", "batch_size", fmt.Errorf("%w: must be between 1 and 10000", ErrInvalidValue))
	}
	if en.BatchTimeout <= 0 {
		return NewValidationError("enrich", "batch", "batch_timeout", fmt.Errorf("%w: must be positive", ErrInvalidValue))
	}
	if en.FlushTimeout <= 0 {
		return NewValidationError("enrich", "batch", "flush_timeout", fmt.Errorf("%w: must be positive", ErrInvalidValue))
	}
	if en.GracefulDrainTimeout <= 0 {
		return NewValidationError("enrich", "pipeline", "graceful_drain_timeout", fmt.Errorf("%w: must be positive", ErrInvalidValue))
	}
	if en.DeadLetterPath == "" {
		return NewValidationError("enrich", "batch", "dead_letter_path", ErrMissingRequiredField)
	}
	return nil
}

func validateProviders(pv *ProvidersConfig) error {
	if pv == nil {
		return fmt.Errorf("providers configuration is nil")
	}
	for name, pc := range pv.ByName() {
		if !pc.Enabled {
			continue
		}
		if pc.URL == "" {
			return NewValidationError("provider", name, "url", ErrMissingRequiredField)
		}
		if pc.RefreshEvery <= 0 {
			return NewValidationError("provider", name, "refresh_every", fmt.Errorf("%w: must be positive", ErrInvalidValue))
		}
		if pc.TTL <= 0 {
			return NewValidationError("provider", name, "ttl", fmt.Errorf("%w: must be positive", ErrInvalidValue))
		}
		if pc.RateLimitPerMinute < 1 {
			return NewValidationError("provider", name, "rate_limit_per_minute", fmt.Errorf("%w: must be at least 1", ErrInvalidValue))
		}
	}
	return nil
}

func validateStore(st *StoreConfig) error {
	if st == nil {
		return fmt.Errorf("store configuration is nil")
	}
	for field, value := range map[string]string{
		"url": st.URL, "token": st.Token, "org": st.Org, "bucket": st.Bucket,
	} {
		if value == "" {
			return NewValidationError("store", "timeseries", field, ErrMissingRequiredField)
		}
	}
	if st.WriteTimeout <= 0 {
		return NewValidationError("store", "timeseries", "write_timeout", fmt.Errorf("%w: must be positive", ErrInvalidValue))
	}
	return nil
}

func validateRetention(rt *RetentionConfig) error {
	if rt == nil {
		return fmt.Errorf("retention configuration is nil")
	}
	for tierName, tier := range map[string]*TierConfig{"hot": rt.Hot, "warm": rt.Warm, "cold": rt.Cold} {
		if tier == nil {
			return NewValidationError("retention", tierName, "", fmt.Errorf("tier configuration is nil"))
		}
		if tier.MeasurementName == "" {
			return NewValidationError("retention", tierName, "measurement_name", ErrMissingRequiredField)
		}
		if tier.RetentionHorizon <= 0 {
			return NewValidationError("retention", tierName, "retention_horizon", fmt.Errorf("%w: must be positive", ErrInvalidValue))
		}
	}
	for tierName, tier := range map[string]*TierConfig{"warm": rt.Warm, "cold": rt.Cold} {
		if tier.DownsampleWindow <= 0 {
			return NewValidationError("retention", tierName, "downsample_window", fmt.Errorf("%w: must be positive", ErrInvalidValue))
		}
	}
	if rt.JobRetries < 1 || rt.JobRetries > 10 {
		return NewValidationError("retention", "jobs", "job_retries", fmt.Errorf("%w: must be between 1 and 10", ErrInvalidValue))
	}
	for _, view := range rt.Views {
		if view.Name == "" {
			return NewValidationError("retention", "views", "name", ErrMissingRequiredField)
		}
		switch view.Aggregate {
		case "count", "mean", "min", "max", "last", "sum":
		default:
			return NewValidationError("retention", view.Name, "aggregate", fmt.Errorf("%w: %q", ErrInvalidValue, view.Aggregate))
		}
		if view.Window <= 0 {
			return NewValidationError("retention", view.Name, "window", fmt.Errorf("%w: must be positive", ErrInvalidValue))
		}
	}
	return nil
}

func validateLogging(lg *LoggingConfig) error {
	if lg == nil {
		return fmt.Errorf("logging configuration is nil")
	}
	if _, err := lg.SlogLevel(); err != nil {
		return NewValidationError("logging", "slog", "log_level", err)
	}
	if lg.CorrelationHeader == "" {
		return NewValidationError("logging", "correlation", "correlation_header_name", ErrMissingRequiredField)
	}
	return nil
}

func isWebSocketURL(u string) bool {
	return strings.HasPrefix(u, "ws://") || strings.HasPrefix(u, "wss://")
}
