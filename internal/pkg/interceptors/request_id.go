package interceptors

import (
	"context"

	"google.golang.org/grpc/metadata"

	"github.com/jcmexdev/storefront-cart/internal/pkg/interceptors/constants"
)

// RequestIDFromContext returns the request id stored by the HTTP middleware or
// the gRPC interceptor, falling back to incoming gRPC metadata.
func RequestIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(constants.ContextKeyRequestID).(string); ok && id != "" {
		return id
	}
	return GetMetadataValue(ctx, constants.HeaderXRequestId)
}

// GetMetadataValue reads the first value for key from incoming, then
// outgoing, gRPC metadata.
func GetMetadataValue(ctx context.Context, key string) string {
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if ids := md.Get(key); len(ids) > 0 {
			return ids[0]
		}
	}

	if md, ok := metadata.FromOutgoingContext(ctx); ok {
		if ids := md.Get(key); len(ids) > 0 {
			return ids[0]
		}
	}
	return ""
}
