package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/alfredjeanlab/linkgraph/internal/export"
	"github.com/alfredjeanlab/linkgraph/internal/server"
	"github.com/spf13/cobra"
)

// trackerProbeInterval is how often serve checks that the tracker answers.
const trackerProbeInterval = 30 * time.Second

var serveCmd = &cobra.Command{
	Use:     "serve",
	Short:   "Serve graphs over HTTP with a gRPC health endpoint",
	GroupID: "system",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		s, err := newStack(cfg)
		if err != nil {
			return err
		}
		defer s.Close()

		// Create event publisher.
		publisher, err := newPublisher(cfg)
		if err != nil {
			return err
		}
		if cfg.NATSURL != "" {
			logger.Info("events enabled", "nats_url", cfg.NATSURL)
		} else {
			logger.Info("events disabled (LG_NATS_URL not set)")
		}

		graphServer := server.NewGraphServer(s.engine, publisher,
			server.WithLogger(logger),
			server.WithDefaultDepth(cfg.Depth),
		)
		grpcServer, healthServer := server.NewGRPCServer(cfg.AuthToken, logger)

		// Start gRPC listener.
		lis, err := net.Listen("tcp", cfg.GRPCAddr)
		if err != nil {
			publisher.Close()
			return err
		}
		go func() {
			logger.Info("gRPC server listening", "addr", cfg.GRPCAddr)
			if err := grpcServer.Serve(lis); err != nil {
				logger.Error("gRPC server error", "err", err)
			}
		}()

		// Start HTTP server.
		httpServer := &http.Server{
			Addr:              cfg.HTTPAddr,
			Handler:           graphServer.NewHTTPHandler(cfg.AuthToken),
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			logger.Info("HTTP server listening", "addr", cfg.HTTPAddr)
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("HTTP server error", "err", err)
			}
		}()

		// Report tracker reachability through the gRPC health service.
		probeCtx, probeCancel := context.WithCancel(context.Background())
		go server.WatchTracker(probeCtx, healthServer, func(ctx context.Context) error {
			_, err := s.tracker.ServerInfo(ctx)
			return err
		}, trackerProbeInterval, logger)

		// Start export scheduler if seeds and destinations are configured.
		var scheduler *export.Scheduler
		if cfg.ExportInterval > 0 && len(cfg.ExportSeeds) > 0 {
			format, _ := export.ParseFormat("")
			dests, err := exportDestinations(ctx, cfg, format, "")
			if err != nil {
				logger.Error("failed to configure export destinations", "err", err)
			} else if len(dests) > 0 {
				build := buildFunc(s, cfg.ExportSeeds, cfg.Depth, graphOptions())
				scheduler = export.NewScheduler(build, format, dests, time.Duration(cfg.ExportInterval), logger).
					WithPublisher(publisher)
				scheduler.Start()
				logger.Info("export scheduler started", "interval", time.Duration(cfg.ExportInterval), "destinations", len(dests))
			}
		}

		logger.Info("linkgraph server started",
			"grpc_addr", cfg.GRPCAddr,
			"http_addr", cfg.HTTPAddr,
			"tracker", cfg.TrackerURL,
		)

		// Wait for SIGINT or SIGTERM.
		<-ctx.Done()
		logger.Info("received signal, shutting down")

		// Graceful shutdown.
		probeCancel()
		if scheduler != nil {
			scheduler.Stop()
			logger.Info("export scheduler stopped")
		}

		grpcServer.GracefulStop()
		logger.Info("gRPC server stopped")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", "err", err)
		}
		logger.Info("HTTP server stopped")

		if err := publisher.Close(); err != nil {
			logger.Error("error closing publisher", "err", err)
		}

		logger.Info("shutdown complete")
		return nil
	},
}
