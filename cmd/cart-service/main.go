package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jcmexdev/storefront-cart/internal/cart-service/adapters/fixture"
	"github.com/jcmexdev/storefront-cart/internal/cart-service/adapters/graphql"
	"github.com/jcmexdev/storefront-cart/internal/cart-service/app"
	"github.com/jcmexdev/storefront-cart/internal/cart-service/cartlog"
	"github.com/jcmexdev/storefront-cart/internal/cart-service/cartlog/sqlite"
	"github.com/jcmexdev/storefront-cart/internal/cart-service/domain"
	"github.com/jcmexdev/storefront-cart/internal/cart-service/infra/grpcx"
	"github.com/jcmexdev/storefront-cart/internal/cart-service/infra/httpx"
	"github.com/jcmexdev/storefront-cart/internal/cart-service/ports"
	"github.com/jcmexdev/storefront-cart/internal/config"
	"github.com/jcmexdev/storefront-cart/internal/pkg/cache"
	"github.com/jcmexdev/storefront-cart/internal/pkg/telemetry"
)

func main() {
	if err := run(); err != nil {
		slog.Error("cart service stopped", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	telemetry.InitLogger(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.SetupTracer(ctx, telemetry.TracerConfig{
			ServiceName: cfg.Telemetry.ServiceName,
			Environment: cfg.Telemetry.Environment,
			Endpoint:    cfg.Telemetry.OTLPEndpoint,
			SampleRatio: cfg.Telemetry.SampleRatio,
		})
		if err != nil {
			return err
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdown(shutdownCtx); err != nil {
				slog.Error("tracer shutdown error", "error", err)
			}
		}()
	}

	source, err := newDataSource(cfg.DataSource)
	if err != nil {
		return err
	}

	var snapshots cache.Cache
	if cfg.Storage.RedisAddr != "" {
		snapshots = cache.NewRedisCache(cfg.Storage.RedisAddr, "cart")
		slog.Info("snapshot cache: redis", "addr", cfg.Storage.RedisAddr)
	} else {
		snapshots = cache.NewMemoryCache("cart")
		slog.Info("snapshot cache: in-memory")
	}

	var auditLog cartlog.Repository
	if cfg.Storage.CartLogPath != "" {
		repo, err := sqlite.Open(cfg.Storage.CartLogPath)
		if err != nil {
			return err
		}
		defer repo.Close()
		auditLog = repo
		slog.Info("cart log: sqlite", "path", cfg.Storage.CartLogPath)
	}

	policy, err := domain.ParsePolicy(cfg.Cart.UnknownItemPolicy)
	if err != nil {
		return err
	}

	carts := app.NewCartService(app.Options{
		Source: source,
		Cache:  snapshots,
		Log:    auditLog,
		Policy: policy,
		Retry: app.RetryPolicy{
			InitialInterval: cfg.DataSource.RetryInitialInterval,
			MaxInterval:     cfg.DataSource.RetryMaxInterval,
			MaxElapsedTime:  cfg.DataSource.RetryMaxElapsed,
			AttemptTimeout:  cfg.DataSource.RequestTimeout,
		},
		SessionTTL: cfg.Cart.SessionTTL,
	})
	go carts.Run(ctx)

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           httpx.NewRouter(httpx.NewHandler(carts)),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		return err
	}
	grpcServer, healthServer := grpcx.NewServer()
	go grpcx.WatchHealth(ctx, healthServer, carts, 10*time.Second)

	errCh := make(chan error, 2)
	go func() {
		slog.Info("cart service HTTP running", "addr", cfg.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	go func() {
		slog.Info("cart service gRPC health running", "addr", cfg.GRPCAddr)
		if err := grpcServer.Serve(lis); err != nil {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		slog.Info("shutting down")
	case err := <-errCh:
		slog.Error("server failed", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("http shutdown error", "error", err)
	}
	grpcServer.GracefulStop()
	return carts.Shutdown(shutdownCtx)
}

func newDataSource(cfg config.DataSourceConfig) (ports.DataSource, error) {
	switch cfg.Kind {
	case config.SourceGraphQL:
		slog.Info("data source: graphql", "endpoint", cfg.GraphQLEndpoint, "store", cfg.StoreCode)
		return graphql.NewSource(graphql.Options{
			Endpoint:  cfg.GraphQLEndpoint,
			StoreCode: cfg.StoreCode,
			Currency:  cfg.Currency,
			Timeout:   cfg.RequestTimeout,
		})
	default:
		slog.Info("data source: fixture", "delay", cfg.FixtureDelay)
		return fixture.NewSource(cfg.FixtureDelay), nil
	}
}
