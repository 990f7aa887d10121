package interceptors

import (
	"context"
	"log/slog"

	"google.golang.org/grpc"

	"github.com/jcmexdev/storefront-cart/internal/pkg/interceptors/constants"
)

// TraceServerInterceptor copies the x-request-id metadata into the context
// and logs every call.
func TraceServerInterceptor() grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req interface{},
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (interface{}, error) {
		requestID := GetMetadataValue(ctx, constants.HeaderXRequestId)
		newCtx := context.WithValue(ctx, constants.ContextKeyRequestID, requestID)

		slog.DebugContext(newCtx, "grpc call", "method", info.FullMethod, "request_id", requestID)

		return handler(newCtx, req)
	}
}
