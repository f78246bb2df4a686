package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// RefreshMetricsMeterName is the instrumentation scope of the refresh metrics
const RefreshMetricsMeterName = "github.com/stacklok/catalog-ingester/refresh"

// Location refresh outcomes
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// RefreshMetrics holds the instruments recorded by the refresh engine.
// A nil *RefreshMetrics records nothing.
type RefreshMetrics struct {
	cycleDuration      metric.Float64Histogram
	locationRefreshes  metric.Int64Counter
	componentsUpserted metric.Int64Counter
	documentErrors     metric.Int64Counter
}

// NewRefreshMetrics creates the refresh instruments. A nil provider returns nil metrics.
func NewRefreshMetrics(provider metric.MeterProvider) (*RefreshMetrics, error) {
	if provider == nil {
		return nil, nil
	}

	meter := provider.Meter(RefreshMetricsMeterName)

	cycleDuration, err := meter.Float64Histogram(
		"catalog_refresh_cycle_duration_seconds",
		metric.WithDescription("Duration of refresh cycles in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60),
	)
	if err != nil {
		return nil, err
	}

	locationRefreshes, err := meter.Int64Counter(
		"catalog_location_refreshes_total",
		metric.WithDescription("Number of location refreshes by outcome"),
		metric.WithUnit("{refresh}"),
	)
	if err != nil {
		return nil, err
	}

	componentsUpserted, err := meter.Int64Counter(
		"catalog_components_upserted_total",
		metric.WithDescription("Number of components written to the catalog"),
		metric.WithUnit("{component}"),
	)
	if err != nil {
		return nil, err
	}

	documentErrors, err := meter.Int64Counter(
		"catalog_document_errors_total",
		metric.WithDescription("Number of descriptor documents that failed to parse"),
		metric.WithUnit("{document}"),
	)
	if err != nil {
		return nil, err
	}

	return &RefreshMetrics{
		cycleDuration:      cycleDuration,
		locationRefreshes:  locationRefreshes,
		componentsUpserted: componentsUpserted,
		documentErrors:     documentErrors,
	}, nil
}

// RecordCycleDuration records how long a refresh cycle took
func (m *RefreshMetrics) RecordCycleDuration(ctx context.Context, duration time.Duration, locations int) {
	if m == nil || m.cycleDuration == nil {
		return
	}
	m.cycleDuration.Record(ctx, duration.Seconds(),
		metric.WithAttributes(attribute.Int("locations", locations)))
}

// RecordLocationRefresh counts the refresh of one location
func (m *RefreshMetrics) RecordLocationRefresh(ctx context.Context, locationType, outcome string) {
	if m == nil || m.locationRefreshes == nil {
		return
	}
	m.locationRefreshes.Add(ctx, 1, metric.WithAttributes(
		attribute.String("location_type", locationType),
		attribute.String("outcome", outcome),
	))
}

// RecordComponentsUpserted counts components stored for a location
func (m *RefreshMetrics) RecordComponentsUpserted(ctx context.Context, locationType string, count int) {
	if m == nil || m.componentsUpserted == nil || count == 0 {
		return
	}
	m.componentsUpserted.Add(ctx, int64(count),
		metric.WithAttributes(attribute.String("location_type", locationType)))
}

// RecordDocumentErrors counts documents of a location that failed to parse
func (m *RefreshMetrics) RecordDocumentErrors(ctx context.Context, locationType string, count int) {
	if m == nil || m.documentErrors == nil || count == 0 {
		return
	}
	m.documentErrors.Add(ctx, int64(count),
		metric.WithAttributes(attribute.String("location_type", locationType)))
}
