package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	"github.com/stacklok/catalog-ingester/internal/catalog"
	"github.com/stacklok/catalog-ingester/internal/config"
	"github.com/stacklok/catalog-ingester/internal/descriptors"
	"github.com/stacklok/catalog-ingester/internal/httpclient"
	"github.com/stacklok/catalog-ingester/internal/ingestion"
	"github.com/stacklok/catalog-ingester/internal/refresh"
	"github.com/stacklok/catalog-ingester/internal/status"
	"github.com/stacklok/catalog-ingester/internal/telemetry"
	"github.com/stacklok/catalog-ingester/internal/versions"
)

const (
	catalogDirName = "catalog"
	statusDirName  = "status"
	lockFileName   = ".lock"
)

var errDataDirLocked = errors.New("data directory is in use by another catalog-ingester process")

// ingester holds the components shared by the serve and refresh commands
type ingester struct {
	store     *catalog.Store
	engine    *refresh.Engine
	telemetry *telemetry.Telemetry
	lock      *flock.Flock
}

// newIngester wires the catalog, readers and refresh engine described by cfg.
// The catalog is restored from the last snapshot in the data directory.
func newIngester(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*ingester, error) {
	dataDir := cfg.Storage.GetDataDir()
	if err := os.MkdirAll(dataDir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	lock := flock.New(filepath.Join(dataDir, lockFileName))
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("failed to lock data directory: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("%w: %s", errDataDirLocked, dataDir)
	}
	release := func() {
		if err := lock.Unlock(); err != nil {
			logger.Warn("Failed to unlock data directory", "error", err)
		}
	}

	parser := descriptors.NewParser(nil)

	store := catalog.NewStore(
		catalog.WithLocations(cfg.CatalogLocations()...),
		catalog.WithStorage(catalog.NewFileStorage(filepath.Join(dataDir, catalogDirName), parser)),
	)
	if err := store.Restore(ctx); err != nil {
		// A broken snapshot must not prevent a fresh refresh
		logger.Warn("Starting with an empty catalog", "error", err)
	}

	readers := ingestion.NewDefaultRegistry(parser,
		ingestion.WithHTTPClient(httpclient.NewDefaultClient(cfg.HTTP.GetTimeout())),
		ingestion.WithRetry(cfg.HTTP.GetMaxRetries(), cfg.HTTP.GetInitialInterval()),
	)

	telemetryCfg := cfg.Telemetry
	if telemetryCfg != nil && telemetryCfg.ServiceVersion == "" {
		withVersion := *telemetryCfg
		withVersion.ServiceVersion = versions.GetVersionInfo().Version
		telemetryCfg = &withVersion
	}
	tel, err := telemetry.New(ctx, telemetryCfg)
	if err != nil {
		release()
		return nil, fmt.Errorf("failed to initialize telemetry: %w", err)
	}

	metrics, err := telemetry.NewRefreshMetrics(tel.MeterProvider())
	if err != nil {
		release()
		return nil, errors.Join(fmt.Errorf("failed to create refresh metrics: %w", err), tel.Shutdown(ctx))
	}

	engine := refresh.New(store, readers,
		refresh.WithLogger(logger),
		refresh.WithInterval(cfg.Refresh.GetInterval()),
		refresh.WithConcurrency(cfg.Refresh.GetConcurrency()),
		refresh.WithContinueOnUpsertFailure(cfg.Refresh.GetContinueOnUpsertFailure()),
		refresh.WithStatusPersistence(status.NewFilePersistence(filepath.Join(dataDir, statusDirName))),
		refresh.WithMetrics(metrics),
		refresh.WithTracer(tel.Tracer()),
	)

	logger.Info("Catalog ingester initialized",
		"locations", len(cfg.Locations),
		"readers", readers.Types(),
		"data_dir", dataDir)

	return &ingester{store: store, engine: engine, telemetry: tel, lock: lock}, nil
}

func (i *ingester) shutdown(ctx context.Context) {
	if err := i.telemetry.Shutdown(ctx); err != nil {
		slog.Warn("Failed to shut down telemetry", "error", err)
	}
	if err := i.lock.Unlock(); err != nil {
		slog.Warn("Failed to unlock data directory", "error", err)
	}
}
