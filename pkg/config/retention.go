package config

import "time"

// TierConfig describes one retention tier's destination measurement,
// horizon, and downsample window.
type TierConfig struct {
	MeasurementName  string   `yaml:"measurement_name"`
	RetentionHorizon Duration `yaml:"retention_horizon"`
	DownsampleWindow Duration `yaml:"downsample_window"`
}

// ArchiveConfig describes the object store that receives expired cold
// rows.
type ArchiveConfig struct {
	// ObjectStoreURL is the S3-compatible endpoint. Empty means the AWS
	// default endpoint resolution.
	ObjectStoreURL string `yaml:"object_store_url"`
	Region         string `yaml:"region"`
	Bucket         string `yaml:"bucket"`
	Prefix         string `yaml:"prefix"`
	AccessKey      string `yaml:"access_key"`
	SecretKey      string `yaml:"secret_key"`

	// RetentionHorizon is how long archive objects are kept. Enforced by
	// bucket lifecycle rules, recorded here for reference.
	RetentionHorizon Duration `yaml:"retention_horizon"`

	// UploadTimeout bounds one object upload.
	UploadTimeout Duration `yaml:"upload_timeout"`
}

// ViewConfig names one materialized pre-aggregate refreshed on a
// schedule. Failure of one view must not block others.
type ViewConfig struct {
	Name        string   `yaml:"name"`
	Source      string   `yaml:"source"`
	Destination string   `yaml:"destination"`
	Window      Duration `yaml:"window"`
	Aggregate   string   `yaml:"aggregate"` // count|mean|min|max|last|sum
}

// RetentionConfig controls tier movement, pre-aggregation, and archival.
type RetentionConfig struct {
	Hot     *TierConfig    `yaml:"hot"`
	Warm    *TierConfig    `yaml:"warm"`
	Cold    *TierConfig    `yaml:"cold"`
	Archive *ArchiveConfig `yaml:"archive"`

	// Job cadences.
	DownsampleInterval  Duration `yaml:"downsample_interval"`
	TierMoveInterval    Duration `yaml:"tier_move_interval"`
	ArchiveInterval     Duration `yaml:"archive_interval"`
	ViewRefreshInterval Duration `yaml:"view_refresh_interval"`
	AnalyticsInterval   Duration `yaml:"analytics_interval"`

	// JobRetries is the per-run retry budget for each job.
	JobRetries int `yaml:"job_retries"`

	Views []ViewConfig `yaml:"views"`
}

// DefaultRetentionConfig returns the built-in retention defaults:
// hot 7 days raw, warm 90 days of 1-hour aggregates, cold 365 days of
// 1-day aggregates, archive 5 years in object storage.
func DefaultRetentionConfig() *RetentionConfig {
	return &RetentionConfig{
		Hot: &TierConfig{
			MeasurementName:  "home_assistant_events",
			RetentionHorizon: Duration(7 * 24 * time.Hour),
		},
		Warm: &TierConfig{
			MeasurementName:  "home_assistant_events_hourly",
			RetentionHorizon: Duration(90 * 24 * time.Hour),
			DownsampleWindow: Duration(time.Hour),
		},
		Cold: &TierConfig{
			MeasurementName:  "home_assistant_events_daily",
			RetentionHorizon: Duration(365 * 24 * time.Hour),
			DownsampleWindow: Duration(24 * time.Hour),
		},
		Archive: &ArchiveConfig{
			Prefix:           "homepulse",
			RetentionHorizon: Duration(5 * 365 * 24 * time.Hour),
			UploadTimeout:    Duration(60 * time.Second),
		},
		DownsampleInterval:  Duration(time.Hour),
		TierMoveInterval:    Duration(24 * time.Hour),
		ArchiveInterval:     Duration(24 * time.Hour),
		ViewRefreshInterval: Duration(time.Hour),
		AnalyticsInterval:   Duration(15 * time.Minute),
		JobRetries:          5,
	}
}
