// Package refresh keeps the catalog in sync with its locations. One refresh
// cycle reads every location and stores the components found there; the
// refresh loop repeats cycles on a fixed interval until cancelled.
package refresh

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/stacklok/catalog-ingester/internal/catalog"
	"github.com/stacklok/catalog-ingester/internal/descriptors"
	"github.com/stacklok/catalog-ingester/internal/otel"
	"github.com/stacklok/catalog-ingester/internal/status"
	"github.com/stacklok/catalog-ingester/internal/telemetry"
)

// DefaultRefreshInterval is the wait between the end of one cycle and the start of the next
const DefaultRefreshInterval = 10 * time.Second

//go:generate mockgen -destination=mocks/mock_reader.go -package=mocks -source=engine.go LocationReader

// LocationReader reads and parses the descriptors of a location
type LocationReader interface {
	Read(ctx context.Context, location catalog.Location) (*descriptors.ParserOutput, error)
}

// LocationReaderFunc adapts a function to the LocationReader interface
type LocationReaderFunc func(ctx context.Context, location catalog.Location) (*descriptors.ParserOutput, error)

// Read calls f(ctx, location)
func (f LocationReaderFunc) Read(ctx context.Context, location catalog.Location) (*descriptors.ParserOutput, error) {
	return f(ctx, location)
}

// LocationResult is the outcome of refreshing one location
type LocationResult struct {
	LocationID     string
	LocationType   string
	Components     int
	DocumentErrors int
	Err            error
}

// Summary describes one refresh cycle
type Summary struct {
	CycleID   string
	StartedAt time.Time
	Duration  time.Duration

	// Err is set when the location list could not be fetched
	Err error

	Results []LocationResult
}

// Succeeded returns the number of locations refreshed without error
func (s Summary) Succeeded() int {
	n := 0
	for _, r := range s.Results {
		if r.Err == nil {
			n++
		}
	}
	return n
}

// Failed returns the number of locations that failed
func (s Summary) Failed() int {
	return len(s.Results) - s.Succeeded()
}

// Components returns the number of components stored during the cycle
func (s Summary) Components() int {
	n := 0
	for _, r := range s.Results {
		n += r.Components
	}
	return n
}

// Engine runs refresh cycles against a catalog
type Engine struct {
	catalog catalog.Catalog
	reader  LocationReader
	logger  *slog.Logger

	interval                time.Duration
	concurrency             int
	continueOnUpsertFailure bool

	statusPersistence status.Persistence
	metrics           *telemetry.RefreshMetrics
	tracer            trace.Tracer

	now func() time.Time

	lastSummary atomic.Pointer[Summary]
}

// Option configures an Engine
type Option func(*Engine)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithInterval sets the wait between cycles of the refresh loop
func WithInterval(interval time.Duration) Option {
	return func(e *Engine) {
		if interval > 0 {
			e.interval = interval
		}
	}
}

// WithConcurrency sets how many locations are refreshed at once. Values
// below two refresh locations one after another.
func WithConcurrency(concurrency int) Option {
	return func(e *Engine) {
		e.concurrency = concurrency
	}
}

// WithContinueOnUpsertFailure keeps storing the remaining components of a
// location after the catalog rejected one of them. By default the first
// rejection fails the location and its remaining components are skipped.
func WithContinueOnUpsertFailure(enabled bool) Option {
	return func(e *Engine) {
		e.continueOnUpsertFailure = enabled
	}
}

// WithStatusPersistence records the refresh status of every location
func WithStatusPersistence(persistence status.Persistence) Option {
	return func(e *Engine) {
		e.statusPersistence = persistence
	}
}

// WithMetrics records refresh metrics
func WithMetrics(metrics *telemetry.RefreshMetrics) Option {
	return func(e *Engine) {
		e.metrics = metrics
	}
}

// WithTracer records a span per cycle and per location
func WithTracer(tracer trace.Tracer) Option {
	return func(e *Engine) {
		e.tracer = tracer
	}
}

// New creates an Engine reading locations of cat through reader
func New(cat catalog.Catalog, reader LocationReader, opts ...Option) *Engine {
	e := &Engine{
		catalog:     cat,
		reader:      reader,
		logger:      slog.Default(),
		interval:    DefaultRefreshInterval,
		concurrency: 1,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Interval returns the wait between cycles
func (e *Engine) Interval() time.Duration {
	return e.interval
}

// RefreshOnce runs one refresh cycle. The location list is fetched once and
// every location is refreshed in isolation: a failing location is logged and
// never stops the others. RefreshOnce does not return an error.
func (e *Engine) RefreshOnce(ctx context.Context) Summary {
	summary := Summary{
		CycleID:   uuid.NewString(),
		StartedAt: e.now(),
	}
	logger := e.logger.With("cycle", summary.CycleID)

	ctx, span := otel.StartSpan(ctx, e.tracer, "refresh.cycle",
		trace.WithAttributes(otel.AttrCycleID.String(summary.CycleID)))
	defer span.End()

	locations, err := e.listLocations(ctx)
	if err != nil {
		summary.Err = err
		summary.Duration = time.Since(summary.StartedAt)
		otel.RecordError(span, err)
		logger.Warn("Failed to list catalog locations", "error", err)
		e.lastSummary.Store(&summary)
		return summary
	}
	span.SetAttributes(otel.AttrLocationCount.Int(len(locations)))

	summary.Results = make([]LocationResult, len(locations))
	if e.concurrency > 1 && len(locations) > 1 {
		var g errgroup.Group
		g.SetLimit(e.concurrency)
		for i, location := range locations {
			g.Go(func() error {
				summary.Results[i] = e.refreshLocation(ctx, logger, location)
				return nil
			})
		}
		_ = g.Wait()
	} else {
		for i, location := range locations {
			summary.Results[i] = e.refreshLocation(ctx, logger, location)
		}
	}

	summary.Duration = time.Since(summary.StartedAt)
	e.metrics.RecordCycleDuration(ctx, summary.Duration, len(locations))

	logger.Info("Refresh cycle completed",
		"locations", len(locations),
		"succeeded", summary.Succeeded(),
		"failed", summary.Failed(),
		"components", summary.Components(),
		"duration", summary.Duration.String())

	e.lastSummary.Store(&summary)
	return summary
}

// LastSummary returns the summary of the most recent completed cycle
func (e *Engine) LastSummary() (Summary, bool) {
	summary := e.lastSummary.Load()
	if summary == nil {
		return Summary{}, false
	}
	return *summary, true
}

// CheckReadiness reports whether a cycle has completed and the last one
// could list the catalog locations
func (e *Engine) CheckReadiness(_ context.Context) error {
	summary, ok := e.LastSummary()
	if !ok {
		return ErrNotReady
	}
	if summary.Err != nil {
		return fmt.Errorf("last refresh cycle failed: %w", summary.Err)
	}
	return nil
}

func (e *Engine) listLocations(ctx context.Context) (locations []catalog.Location, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic while listing locations: %v", r)
		}
	}()

	locations, err = e.catalog.Locations(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list locations: %w", err)
	}
	return locations, nil
}

// refreshLocation reads one location and stores its components. Any failure,
// a panic included, ends up in the returned result.
func (e *Engine) refreshLocation(ctx context.Context, logger *slog.Logger, location catalog.Location) (result LocationResult) {
	result = LocationResult{LocationID: location.ID, LocationType: location.Type}
	logger = logger.With("location", location.ID)

	ctx, span := otel.StartSpan(ctx, e.tracer, "refresh.location",
		trace.WithAttributes(
			otel.AttrLocationID.String(location.ID),
			otel.AttrLocationType.String(location.Type),
		))
	defer span.End()

	locationStatus := e.loadStatus(ctx, logger, location.ID)
	locationStatus.MarkRefreshing(e.now())
	e.saveStatus(ctx, logger, location.ID, locationStatus)

	defer func() {
		if r := recover(); r != nil {
			result.Err = fmt.Errorf("panic while refreshing location: %v", r)
		}

		span.SetAttributes(
			otel.AttrComponentCount.Int(result.Components),
			otel.AttrErrorCount.Int(result.DocumentErrors),
		)
		e.metrics.RecordDocumentErrors(ctx, location.Type, result.DocumentErrors)
		e.metrics.RecordComponentsUpserted(ctx, location.Type, result.Components)

		if result.Err != nil {
			logger.Debug("Failed to update location", "error", result.Err)
			otel.RecordError(span, result.Err)
			e.metrics.RecordLocationRefresh(ctx, location.Type, telemetry.OutcomeFailure)
			locationStatus.MarkFailed(result.Err.Error(), result.DocumentErrors)
		} else {
			e.metrics.RecordLocationRefresh(ctx, location.Type, telemetry.OutcomeSuccess)
			locationStatus.MarkComplete(e.now(), result.Components, result.DocumentErrors)
		}
		e.saveStatus(ctx, logger, location.ID, locationStatus)
	}()

	logger.Debug("Attempting refresh of location", "type", location.Type)

	output, err := e.reader.Read(ctx, location)
	if err != nil {
		result.Err = err
		return result
	}
	if output == nil {
		output = &descriptors.ParserOutput{}
	}

	result.DocumentErrors = len(output.Errors)
	for _, docErr := range output.Errors {
		logger.Debug("Descriptor error", "error", docErr)
	}

	if output.OnlyContainsErrors() {
		result.Err = ErrNoValidData
		return result
	}

	var upsertErrs []error
	for _, component := range output.Components {
		if err := e.catalog.AddOrUpdateComponent(ctx, location.ID, component); err != nil {
			upsertErr := &UpsertError{LocationID: location.ID, Err: err}
			if component != nil {
				upsertErr.Component = component.GetName()
			}
			if !e.continueOnUpsertFailure {
				result.Err = upsertErr
				return result
			}
			upsertErrs = append(upsertErrs, upsertErr)
			continue
		}
		result.Components++
	}
	result.Err = errors.Join(upsertErrs...)

	return result
}

func (e *Engine) loadStatus(ctx context.Context, logger *slog.Logger, locationID string) *status.LocationStatus {
	if e.statusPersistence == nil {
		return &status.LocationStatus{}
	}
	locationStatus, err := e.statusPersistence.LoadStatus(ctx, locationID)
	if err != nil || locationStatus == nil {
		logger.Warn("Failed to load location status", "error", err)
		return &status.LocationStatus{}
	}
	return locationStatus
}

func (e *Engine) saveStatus(ctx context.Context, logger *slog.Logger, locationID string, locationStatus *status.LocationStatus) {
	if e.statusPersistence == nil {
		return
	}
	if err := e.statusPersistence.SaveStatus(ctx, locationID, locationStatus); err != nil {
		logger.Warn("Failed to save location status", "error", err)
	}
}
