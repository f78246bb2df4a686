package refresh_test

import (
	"bytes"
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stacklok/catalog-ingester/internal/catalog"
	"github.com/stacklok/catalog-ingester/internal/descriptors"
	"github.com/stacklok/catalog-ingester/internal/refresh"
)

func component(name string) *descriptors.ComponentDescriptorV1 {
	return &descriptors.ComponentDescriptorV1{
		APIVersion: descriptors.ComponentV1APIVersion,
		Kind:       descriptors.ComponentKind,
		Metadata:   descriptors.ComponentMetadataV1{Name: name},
		Spec:       descriptors.ComponentSpecV1{Type: "service"},
	}
}

func output(errs []error, names ...string) *descriptors.ParserOutput {
	out := &descriptors.ParserOutput{Errors: errs}
	for _, name := range names {
		out.Components = append(out.Components, component(name))
	}
	return out
}

// newTestLogger returns a debug level JSON logger writing into the returned buffer
func newTestLogger() (*slog.Logger, *syncBuffer) {
	buf := &syncBuffer{}
	return slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug})), buf
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// countingCatalog counts how often the location list is fetched
type countingCatalog struct {
	*catalog.Store
	lists atomic.Int32
}

func newCountingCatalog(locations ...catalog.Location) *countingCatalog {
	return &countingCatalog{Store: catalog.NewStore(catalog.WithLocations(locations...))}
}

func (c *countingCatalog) Locations(ctx context.Context) ([]catalog.Location, error) {
	c.lists.Add(1)
	return c.Store.Locations(ctx)
}

// staticReader returns a fresh output with the given component names for every location
func staticReader(names ...string) refresh.LocationReader {
	return refresh.LocationReaderFunc(func(context.Context, catalog.Location) (*descriptors.ParserOutput, error) {
		return output(nil, names...), nil
	})
}

func waitDone(t *testing.T, loop *refresh.Loop) {
	t.Helper()

	select {
	case <-loop.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("refresh loop did not stop")
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
