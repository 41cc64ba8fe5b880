package observability

import (
	"context"
	"log/slog"
	"os"
)

type ctxKey int

const requestIDKey ctxKey = iota

// Process-wide structured logger, JSON on stdout. Handlers pull a
// request-scoped variant through LoggerFromContext.
var root = slog.New(slog.NewJSONHandler(os.Stdout, nil))

func Logger() *slog.Logger {
	return root
}

// WithRequestID stamps the context so every log line of the request
// carries the same request_id.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// LoggerFromContext returns the root logger, annotated with the
// request_id when the context carries one.
func LoggerFromContext(ctx context.Context) *slog.Logger {
	if id, _ := ctx.Value(requestIDKey).(string); id != "" {
		return root.With("request_id", id)
	}
	return root
}
