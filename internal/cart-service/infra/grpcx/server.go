// Package grpcx serves the standard gRPC health protocol for the cart service.
package grpcx

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/jcmexdev/storefront-cart/internal/pkg/interceptors"
)

// ServiceName is the name reported to health checks for the cart service.
const ServiceName = "storefront.cart.v1.CartService"

// Pinger reports whether the service's dependencies are reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// NewServer returns a gRPC server with tracing and the health service
// registered, plus the health server so callers can drive its status.
func NewServer() (*grpc.Server, *health.Server) {
	srv := grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.UnaryInterceptor(interceptors.TraceServerInterceptor()),
	)
	hs := health.NewServer()
	healthpb.RegisterHealthServer(srv, hs)
	return srv, hs
}

// WatchHealth pings p every interval and publishes the result for both the
// overall server ("") and ServiceName. It returns when ctx is done, after
// marking everything NOT_SERVING.
func WatchHealth(ctx context.Context, hs *health.Server, p Pinger, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	last := healthpb.HealthCheckResponse_UNKNOWN
	for {
		status := check(ctx, p, interval)
		if status != last {
			slog.InfoContext(ctx, "health status changed", "status", status.String())
			last = status
		}
		hs.SetServingStatus("", status)
		hs.SetServingStatus(ServiceName, status)

		select {
		case <-ctx.Done():
			hs.Shutdown()
			return
		case <-ticker.C:
		}
	}
}

func check(ctx context.Context, p Pinger, timeout time.Duration) healthpb.HealthCheckResponse_ServingStatus {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := p.Ping(ctx); err != nil {
		slog.WarnContext(ctx, "health check failed", "error", err)
		return healthpb.HealthCheckResponse_NOT_SERVING
	}
	return healthpb.HealthCheckResponse_SERVING
}
