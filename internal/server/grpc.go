package server

import (
	"context"
	"log/slog"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// HealthService is the service name reported by the gRPC health server.
const HealthService = "linkgraph"

// NewGRPCServer creates a gRPC server with standard interceptors, registers
// the health service and reflection, and returns both the server and the
// health server whose status the caller updates.
func NewGRPCServer(authToken string, logger *slog.Logger) (*grpc.Server, *health.Server) {
	srv := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			RecoveryInterceptor(logger),
			LoggingInterceptor(logger),
			AuthInterceptor(authToken),
		),
	)

	hs := health.NewServer()
	hs.SetServingStatus(HealthService, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(srv, hs)
	reflection.Register(srv)

	return srv, hs
}

// WatchTracker probes the tracker every interval and reports the result as
// the serving status of HealthService until ctx is done.
func WatchTracker(ctx context.Context, hs *health.Server, probe func(context.Context) error, interval time.Duration, logger *slog.Logger) {
	check := func() {
		pctx, cancel := context.WithTimeout(ctx, interval)
		defer cancel()
		if err := probe(pctx); err != nil {
			logger.Warn("tracker probe failed", "err", err)
			hs.SetServingStatus(HealthService, healthpb.HealthCheckResponse_NOT_SERVING)
			return
		}
		hs.SetServingStatus(HealthService, healthpb.HealthCheckResponse_SERVING)
	}

	check()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			check()
		}
	}
}
