package hub

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// dispatchWorker drains the event channel and POSTs each event to the
// enrichment service. After Stop it drains what remains, bounded by
// the drain timeout.
func (c *Client) dispatchWorker(ctx context.Context, id int) {
	defer c.wg.Done()
	logger := c.logger.With("dispatcher", id)

	for {
		select {
		case item := <-c.dispatchCh:
			c.dispatch(ctx, item, logger)
		case <-c.stopCh:
			drainCtx, cancel := context.WithTimeout(context.Background(), drainTimeout)
			for {
				select {
				case item := <-c.dispatchCh:
					c.dispatch(drainCtx, item, logger)
				default:
					cancel()
					return
				}
			}
		case <-ctx.Done():
			return
		}
	}
}

// dispatch POSTs one event, retrying transient failures with 1/2/4 s
// waits. A 4xx is poison: logged once and not retried.
func (c *Client) dispatch(ctx context.Context, item dispatchItem, logger *slog.Logger) {
	body, err := json.Marshal(item.event)
	if err != nil {
		logger.Error("Unencodable event, dropping",
			"entity_id", item.event.Data.EntityID,
			"correlation_id", item.correlationID,
			"error", err)
		return
	}

	var lastErr error
	for attempt := 0; attempt <= c.retries; attempt++ {
		if attempt > 0 {
			wait := time.Duration(1<<(attempt-1)) * time.Second
			select {
			case <-time.After(wait):
			case <-ctx.Done():
				lastErr = ctx.Err()
				attempt = c.retries
				continue
			}
		}

		status, err := c.post(ctx, body, item.correlationID)
		switch {
		case err != nil:
			lastErr = err
		case status >= 200 && status < 300:
			c.forwarded.Add(1)
			metricForwardedEvents.Inc()
			return
		case status >= 400 && status < 500:
			logger.Warn("Enrichment rejected event, not retrying",
				"status", status,
				"entity_id", item.event.Data.EntityID,
				"correlation_id", item.correlationID)
			return
		default:
			lastErr = fmt.Errorf("enrichment returned status %d", status)
		}
	}

	c.dispatchFailed.Add(1)
	metricDispatchFailed.Inc()
	logger.Error("Event dispatch exhausted",
		"entity_id", item.event.Data.EntityID,
		"correlation_id", item.correlationID,
		"error", lastErr)
}

func (c *Client) post(ctx context.Context, body []byte, correlationID string) (int, error) {
	postCtx, cancel := context.WithTimeout(ctx, c.dispatchWait)
	defer cancel()

	req, err := http.NewRequestWithContext(postCtx, http.MethodPost, c.enrichURL, bytes.NewReader(body))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(c.corrHeader, correlationID)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.StatusCode, nil
}
