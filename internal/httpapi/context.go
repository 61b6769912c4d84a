package httpapi

import "context"

type requestIDContextKey struct{}

func withRequestID(ctx context.Context, rid string) context.Context {
	return context.WithValue(ctx, requestIDContextKey{}, rid)
}

// RequestIDFromContext returns the request identifier assigned by the
// RequestID middleware, or "" when absent.
func RequestIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(requestIDContextKey{}).(string); ok {
		return v
	}
	return ""
}
