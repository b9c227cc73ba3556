package common

import (
	"context"
	"time"
)

type ctxKey int

const (
	requestIDKey ctxKey = iota
	documentKey
)

// WithRequestID tags ctx with the id of the request or queued job it serves.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// WithDocument tags ctx with the path of the invoice document being processed.
func WithDocument(ctx context.Context, path string) context.Context {
	return context.WithValue(ctx, documentKey, path)
}

func DocumentFromContext(ctx context.Context) string {
	p, _ := ctx.Value(documentKey).(string)
	return p
}

// LogAttrs returns the slog key/value pairs carried by ctx.
func LogAttrs(ctx context.Context) []any {
	var attrs []any
	if id := RequestIDFromContext(ctx); id != "" {
		attrs = append(attrs, "request_id", id)
	}
	if p := DocumentFromContext(ctx); p != "" {
		attrs = append(attrs, "document", p)
	}
	return attrs
}

// WithTimeout bounds ctx by timeout. Non-positive timeouts only add cancellation.
func WithTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout > 0 {
		return context.WithTimeout(ctx, timeout)
	}
	return context.WithCancel(ctx)
}
