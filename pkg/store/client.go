// Package store is the time-series store client: line-protocol writes,
// Flux range queries, deletes, and health pings over the store's v2 HTTP
// API.
package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/homepulse/homepulse/pkg/config"
	"github.com/homepulse/homepulse/pkg/models"
)

// Client is a shared, concurrency-safe store client. The underlying
// http.Client connection pool handles concurrent writers.
type Client struct {
	baseURL      string
	token        string
	org          string
	bucket       string
	writeTimeout time.Duration
	queryTimeout time.Duration
	httpClient   *http.Client
}

// NewClient creates a store client from configuration.
func NewClient(cfg *config.StoreConfig) *Client {
	return &Client{
		baseURL:      cfg.URL,
		token:        cfg.Token,
		org:          cfg.Org,
		bucket:       cfg.Bucket,
		writeTimeout: cfg.WriteTimeout.Std(),
		queryTimeout: cfg.QueryTimeout.Std(),
		httpClient:   &http.Client{},
	}
}

// Bucket returns the configured bucket name.
func (c *Client) Bucket() string { return c.bucket }

// WriteError is a store write rejection. Status codes below 500 are
// terminal (the payload will never be accepted); 5xx are retryable.
type WriteError struct {
	StatusCode int
	Message    string
}

// Error returns the formatted error message.
func (e *WriteError) Error() string {
	return fmt.Sprintf("store write failed: status %d: %s", e.StatusCode, e.Message)
}

// Retryable reports whether retrying the same payload can succeed.
func (e *WriteError) Retryable() bool {
	return e.StatusCode >= 500
}

// IsRetryable classifies an error from this client. Network errors and
// 5xx responses are retryable; 4xx rejections are not.
func IsRetryable(err error) bool {
	var we *WriteError
	if errors.As(err, &we) {
		return we.Retryable()
	}
	// Anything that never reached the store (dial, TLS, timeout).
	return err != nil
}

// WritePoints encodes the points as line protocol and writes them in a
// single request with nanosecond precision.
func (c *Client) WritePoints(ctx context.Context, points []models.Point) error {
	body, err := EncodePoints(points)
	if err != nil {
		return fmt.Errorf("encoding points: %w", err)
	}
	return c.WriteLineProtocol(ctx, body)
}

// WriteLineProtocol writes pre-encoded line protocol to the configured
// bucket.
func (c *Client) WriteLineProtocol(ctx context.Context, body []byte) error {
	ctx, cancel := context.WithTimeout(ctx, c.writeTimeout)
	defer cancel()

	q := url.Values{}
	q.Set("org", c.org)
	q.Set("bucket", c.bucket)
	q.Set("precision", "ns")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/api/v2/write?"+q.Encode(), bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Token "+c.token)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("store write request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNoContent {
		return nil
	}
	msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	return &WriteError{StatusCode: resp.StatusCode, Message: string(msg)}
}

// Query runs a Flux query and returns the parsed annotated-CSV records.
func (c *Client) Query(ctx context.Context, flux string) ([]Record, error) {
	ctx, cancel := context.WithTimeout(ctx, c.queryTimeout)
	defer cancel()

	payload, err := json.Marshal(map[string]any{
		"query": flux,
		"type":  "flux",
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/api/v2/query?org="+url.QueryEscape(c.org), bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Token "+c.token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/csv")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("store query request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("store query failed: status %d: %s", resp.StatusCode, string(msg))
	}

	return parseAnnotatedCSV(resp.Body)
}

// Delete removes rows in [start, stop) matching the delete predicate,
// e.g. `_measurement="home_assistant_events_daily"`.
func (c *Client) Delete(ctx context.Context, start, stop time.Time, predicate string) error {
	ctx, cancel := context.WithTimeout(ctx, c.writeTimeout)
	defer cancel()

	payload, err := json.Marshal(map[string]string{
		"start":     start.UTC().Format(time.RFC3339Nano),
		"stop":      stop.UTC().Format(time.RFC3339Nano),
		"predicate": predicate,
	})
	if err != nil {
		return err
	}

	q := url.Values{}
	q.Set("org", c.org)
	q.Set("bucket", c.bucket)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/api/v2/delete?"+q.Encode(), bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Token "+c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("store delete request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("store delete failed: status %d: %s", resp.StatusCode, string(msg))
	}
	return nil
}

// Ping checks store reachability.
func (c *Client) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/ping", nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("store ping: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusOK {
		return fmt.Errorf("store ping: status %d", resp.StatusCode)
	}
	return nil
}
