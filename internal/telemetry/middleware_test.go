package telemetry

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func newInstrumentedRouter(mw ...func(http.Handler) http.Handler) *chi.Mux {
	r := chi.NewRouter()
	r.Use(mw...)
	r.Get("/locations/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return r
}

func TestHTTPMetrics_Middleware(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer func() { _ = mp.Shutdown(ctx) }()

	metrics, err := NewHTTPMetrics(mp)
	require.NoError(t, err)

	router := newInstrumentedRouter(metrics.Middleware)
	for _, path := range []string{"/locations/a", "/locations/b", "/missing"} {
		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))

	routes := make(map[string]int64)
	for _, scope := range rm.ScopeMetrics {
		for _, m := range scope.Metrics {
			if m.Name != "catalog_http_requests_total" {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok)
			for _, dp := range sum.DataPoints {
				route, _ := dp.Attributes.Value(attribute.Key("route"))
				routes[route.AsString()] += dp.Value
			}
		}
	}

	assert.Equal(t, map[string]int64{"/locations/{id}": 2, unknownRoute: 1}, routes)
}

func TestHTTPMetrics_NilPassesThrough(t *testing.T) {
	t.Parallel()

	metrics, err := NewHTTPMetrics(nil)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	newInstrumentedRouter(metrics.Middleware).
		ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/locations/a", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestTracingMiddleware(t *testing.T) {
	t.Parallel()

	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	defer func() { _ = tp.Shutdown(context.Background()) }()

	router := newInstrumentedRouter(TracingMiddleware(tp))
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/locations/a", nil))
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/missing", nil))

	spans := exporter.GetSpans()
	require.Len(t, spans, 2)
	assert.Equal(t, "GET /locations/{id}", spans[0].Name)
	assert.Equal(t, codes.Unset, spans[0].Status.Code)
	assert.Equal(t, "GET "+unknownRoute, spans[1].Name)
	assert.Equal(t, codes.Error, spans[1].Status.Code)
}

func TestTracingMiddleware_NilProvider(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	newInstrumentedRouter(TracingMiddleware(nil)).
		ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/locations/a", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
