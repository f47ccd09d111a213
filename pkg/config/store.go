package config

import "time"

// StoreConfig describes the time-series store the pipeline writes to.
type StoreConfig struct {
	URL    string `yaml:"url"`
	Token  string `yaml:"token"`
	Org    string `yaml:"org"`
	Bucket string `yaml:"bucket"`

	// WriteTimeout bounds a single write request.
	WriteTimeout Duration `yaml:"write_timeout"`

	// QueryTimeout bounds a single range query (retention reads).
	QueryTimeout Duration `yaml:"query_timeout"`
}

// DefaultStoreConfig returns the built-in store defaults. URL, Token,
// Org, and Bucket have no defaults; startup fails without them.
func DefaultStoreConfig() *StoreConfig {
	return &StoreConfig{
		WriteTimeout: Duration(10 * time.Second),
		QueryTimeout: Duration(30 * time.Second),
	}
}
