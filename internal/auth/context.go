package auth

import (
	"context"

	"google.golang.org/grpc/metadata"
)

const (
	OperatorIDHeader = "x-operator-id"
	APIVersionHeader = "x-api-version"
	APIVersion       = "1.0"
)

type operatorKey struct{}

func WithOperatorID(ctx context.Context, operatorID string) context.Context {
	return context.WithValue(ctx, operatorKey{}, operatorID)
}

// GetOperatorID returns the operator set by the interceptor, falling back to
// the incoming metadata. It is empty for anonymous callers.
func GetOperatorID(ctx context.Context) string {
	if val, ok := ctx.Value(operatorKey{}).(string); ok {
		return val
	}

	md, ok := metadata.FromIncomingContext(ctx)
	if ok {
		if val := md.Get(OperatorIDHeader); len(val) > 0 {
			return val[0]
		}
	}
	return ""
}
