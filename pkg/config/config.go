// Package config loads, validates, and exposes the process-wide
// configuration. Configuration is read once at start; changes require a
// restart.
package config

// Config is the umbrella configuration object returned by Initialize()
// and passed by value-semantics (never mutated after load) throughout
// the application.
type Config struct {
	Hub       *HubConfig       `yaml:"hub"`
	Ingest    *IngestConfig    `yaml:"ingest"`
	Enrich    *EnrichConfig    `yaml:"enrich"`
	Providers *ProvidersConfig `yaml:"providers"`
	Store     *StoreConfig     `yaml:"store"`
	Retention *RetentionConfig `yaml:"retention"`
	Logging   *LoggingConfig   `yaml:"logging"`
}

// DefaultConfig returns the built-in defaults for every section.
func DefaultConfig() *Config {
	return &Config{
		Hub:       DefaultHubConfig(),
		Ingest:    DefaultIngestConfig(),
		Enrich:    DefaultEnrichConfig(),
		Providers: DefaultProvidersConfig(),
		Store:     DefaultStoreConfig(),
		Retention: DefaultRetentionConfig(),
		Logging:   DefaultLoggingConfig(),
	}
}

// Stats contains configuration statistics for startup logging.
type Stats struct {
	EnabledProviders int
	Views            int
}

// Stats returns configuration statistics for logging/monitoring.
func (c *Config) Stats() Stats {
	s := Stats{}
	if c.Providers != nil {
		for _, pc := range c.Providers.ByName() {
			if pc.Enabled {
				s.EnabledProviders++
			}
		}
	}
	if c.Retention != nil {
		s.Views = len(c.Retention.Views)
	}
	return s
}
