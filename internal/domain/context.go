package domain

import (
	"context"
)

type correlationKey struct{}

// WithCorrelationID attaches a correlation id that transports forward to the
// services they call.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationKey{}, id)
}

// CorrelationIDFrom returns the correlation id stored in ctx, if any.
func CorrelationIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(correlationKey{}).(string)
	return id
}
