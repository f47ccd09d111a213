// Package correlation mints and propagates the per-event correlation id
// used to tie together every log record an event produces.
package correlation

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

// DefaultHeader is the HTTP header carrying the correlation id between
// the ingestion client and the enrichment intake. Overridable via the
// logging.correlation_header_name config key.
const DefaultHeader = "X-Correlation-ID"

type ctxKey struct{}

// New mints a fresh correlation id.
func New() string {
	return uuid.NewString()
}

// WithID returns a context carrying the given correlation id.
func WithID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// FromContext returns the correlation id carried by ctx, or "".
func FromContext(ctx context.Context) string {
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}

// Attr returns the slog attribute for a correlation id. All log records
// on an event's path carry exactly this attribute.
func Attr(id string) slog.Attr {
	return slog.String("correlation_id", id)
}

// Logger returns a logger scoped to the correlation id carried by ctx.
func Logger(ctx context.Context) *slog.Logger {
	if id := FromContext(ctx); id != "" {
		return slog.With("correlation_id", id)
	}
	return slog.Default()
}
