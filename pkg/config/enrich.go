package config

import "time"

// EnrichConfig controls the enrichment service pipeline: intake queue,
// worker pool, and batch writer.
type EnrichConfig struct {
	// ListenAddr is the HTTP listen address for the intake and health
	// surface.
	ListenAddr string `yaml:"listen_addr"`

	// IntakeQueue bounds the in-process queue between the HTTP intake and
	// the pipeline workers. Above IntakeHighWater the intake returns 503.
	IntakeQueue int `yaml:"intake_queue"`

	// Workers is the number of pipeline worker goroutines.
	Workers int `yaml:"workers"`

	// BatchSize is the point count that triggers a flush.
	BatchSize int `yaml:"batch_size"`

	// BatchTimeout flushes a partial batch after this long.
	BatchTimeout Duration `yaml:"batch_timeout"`

	// FlushTimeout bounds one store write attempt.
	FlushTimeout Duration `yaml:"flush_timeout"`

	// GracefulDrainTimeout bounds queue drain + final flush on shutdown.
	GracefulDrainTimeout Duration `yaml:"graceful_drain_timeout"`

	// DeadLetterPath is the file that receives batches the store refused
	// after all retries, in line protocol.
	DeadLetterPath string `yaml:"dead_letter_path"`
}

// DefaultEnrichConfig returns the built-in enrichment defaults.
func DefaultEnrichConfig() *EnrichConfig {
	return &EnrichConfig{
		ListenAddr:           ":8080",
		IntakeQueue:          10000,
		Workers:              4,
		BatchSize:            100,
		BatchTimeout:         Duration(5 * time.Second),
		FlushTimeout:         Duration(10 * time.Second),
		GracefulDrainTimeout: Duration(10 * time.Second),
		DeadLetterPath:       "./homepulse-dead-letter.lp",
	}
}

// IntakeHighWater is the queue depth above which the intake returns 503,
// as a fraction of IntakeQueue.
const IntakeHighWater = 0.9

// HighWaterMark returns the absolute queue depth that triggers 503.
func (c *EnrichConfig) HighWaterMark() int {
	return int(float64(c.IntakeQueue) * IntakeHighWater)
}
