package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/stacklok/catalog-ingester/internal/api"
	"github.com/stacklok/catalog-ingester/internal/refresh"
	"github.com/stacklok/catalog-ingester/internal/telemetry"
	"github.com/stacklok/catalog-ingester/internal/watcher"
)

const (
	defaultGracefulTimeout = 30 * time.Second
	serverRequestTimeout   = 10 * time.Second
	serverReadTimeout      = 10 * time.Second
	serverWriteTimeout     = 15 * time.Second // Must be > serverRequestTimeout to let middleware handle timeout
	serverIdleTimeout      = 60 * time.Second
)

func newServeCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the refresh loop",
		Long: `Run the refresh loop until interrupted.

The configuration file (--config) lists the catalog locations and the refresh,
HTTP, storage, server and telemetry settings. A refresh cycle runs immediately
and then once per refresh interval. On SIGINT or SIGTERM the cycle in progress
completes before the process exits.

When an address is configured (server.address or --address) an operations
server exposes /health, /readiness, /version and, with Prometheus metrics
enabled, /metrics.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), v)
		},
	}

	cmd.Flags().String("address", "", "Address of the operations server (overrides server.address)")
	if err := v.BindPFlag("address", cmd.Flags().Lookup("address")); err != nil {
		slog.Error("Error binding address flag", "error", err)
	}
	return cmd
}

func runServe(ctx context.Context, v *viper.Viper) error {
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := loadConfig(v)
	if err != nil {
		return err
	}

	logger := slog.Default()
	ing, err := newIngester(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), defaultGracefulTimeout)
		defer cancel()
		ing.shutdown(shutdownCtx)
	}()

	signalCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	address := v.GetString("address")
	if address == "" {
		address = cfg.Server.GetAddress()
	}

	var server *http.Server
	if address != "" {
		server, err = newOperationsServer(ing)
		if err != nil {
			return err
		}
		listener, err := net.Listen("tcp", address)
		if err != nil {
			return err
		}
		go func() {
			logger.Info("Operations server listening", "address", listener.Addr().String())
			if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("Operations server failed", "error", err)
			}
		}()
	}

	loop := ing.engine.StartRefreshLoop(signalCtx)

	if paths := cfg.FilePaths(); cfg.Refresh.GetWatchFiles() && len(paths) > 0 {
		stopWatching, err := watchFiles(signalCtx, paths, loop)
		if err != nil {
			logger.Warn("File watching disabled", "error", err)
		} else {
			defer stopWatching()
		}
	}

	<-signalCtx.Done()
	logger.Info("Shutting down, waiting for the current refresh cycle")

	loop.Stop()

	if server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), defaultGracefulTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("Operations server forced to shutdown", "error", err)
			return err
		}
	}

	logger.Info("Shutdown complete")
	return nil
}

// watchFiles triggers a refresh cycle whenever one of the files changes
func watchFiles(ctx context.Context, paths []string, loop *refresh.Loop) (func(), error) {
	w, err := watcher.New(paths, watcher.DefaultDebounce)
	if err != nil {
		return nil, err
	}
	onChange, err := w.Start()
	if err != nil {
		_ = w.Stop()
		return nil, err
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			select {
			case <-ctx.Done():
				return
			case <-onChange:
				slog.Info("File location changed, triggering refresh")
				loop.Trigger()
			}
		}
	}()

	slog.Info("Watching file locations for changes", "files", len(paths))
	return func() {
		if err := w.Stop(); err != nil {
			slog.Warn("Failed to stop file watcher", "error", err)
		}
		<-done
	}, nil
}

func newOperationsServer(ing *ingester) (*http.Server, error) {
	httpMetrics, err := telemetry.NewHTTPMetrics(ing.telemetry.MeterProvider())
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP metrics: %w", err)
	}

	opts := []api.ServerOption{
		api.WithMiddlewares(
			middleware.RequestID,
			middleware.RealIP,
			middleware.Recoverer,
			telemetry.TracingMiddleware(ing.telemetry.TracerProvider()),
			httpMetrics.Middleware,
			middleware.Timeout(serverRequestTimeout),
			api.LoggingMiddleware,
		),
	}
	if handler := ing.telemetry.MetricsHandler(); handler != nil {
		opts = append(opts, api.WithMetricsHandler(handler))
	}

	return &http.Server{
		Handler:      api.NewServer(ing.engine, opts...),
		ReadTimeout:  serverReadTimeout,
		WriteTimeout: serverWriteTimeout,
		IdleTimeout:  serverIdleTimeout,
	}, nil
}
