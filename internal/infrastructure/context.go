package infrastructure

import "context"

type contextKey string

const (
	// TraceIDContextKey carries the request ID used as trace_id in logs
	TraceIDContextKey contextKey = "trace_id"
	// SessionIDContextKey carries the WebSocket session a query came from
	SessionIDContextKey contextKey = "session_id"
)

// WithTraceID adds a trace ID to the context
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, TraceIDContextKey, traceID)
}

// GetTraceID retrieves the trace ID from context
func GetTraceID(ctx context.Context) string {
	return stringValue(ctx, TraceIDContextKey)
}

// WithSessionID tags ctx with a WebSocket session ID
func WithSessionID(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, SessionIDContextKey, sessionID)
}

// GetSessionID returns the session ID, or "" outside a session
func GetSessionID(ctx context.Context) string {
	return stringValue(ctx, SessionIDContextKey)
}

func stringValue(ctx context.Context, key contextKey) string {
	if ctx == nil {
		return ""
	}
	v, _ := ctx.Value(key).(string)
	return v
}
