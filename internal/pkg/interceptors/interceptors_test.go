package interceptors

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"

	"github.com/jcmexdev/storefront-cart/internal/pkg/interceptors/constants"
)

func TestTraceServerInterceptor_PropagatesRequestID(t *testing.T) {
	ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs(constants.HeaderXRequestId, "req-42"))

	var seen string
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		seen = RequestIDFromContext(ctx)
		return "ok", nil
	}

	out, err := TraceServerInterceptor()(ctx, nil, &grpc.UnaryServerInfo{FullMethod: "/grpc.health.v1.Health/Check"}, handler)
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
	assert.Equal(t, "req-42", seen)
}

func TestGetMetadataValue(t *testing.T) {
	assert.Empty(t, GetMetadataValue(context.Background(), "k"))

	out := metadata.AppendToOutgoingContext(context.Background(), "k", "v")
	assert.Equal(t, "v", GetMetadataValue(out, "k"))

	ctx := context.WithValue(context.Background(), constants.ContextKeyRequestID, "from-http")
	assert.Equal(t, "from-http", RequestIDFromContext(ctx))
}
