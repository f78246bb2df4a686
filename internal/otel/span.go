// Package otel holds the tracing helpers shared by the refresh engine and the CLI.
package otel

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Attribute keys used on refresh spans
const (
	AttrCycleID        = attribute.Key("refresh.cycle_id")
	AttrLocationID     = attribute.Key("location.id")
	AttrLocationType   = attribute.Key("location.type")
	AttrLocationCount  = attribute.Key("location.count")
	AttrComponentCount = attribute.Key("component.count")
	AttrErrorCount     = attribute.Key("document.error_count")
)

// StartSpan starts a span on tracer, or returns the span already in ctx when tracer is nil
func StartSpan(
	ctx context.Context,
	tracer trace.Tracer,
	name string,
	opts ...trace.SpanStartOption,
) (context.Context, trace.Span) {
	if tracer == nil {
		return ctx, trace.SpanFromContext(ctx)
	}
	return tracer.Start(ctx, name, opts...)
}

// RecordError records err on span and marks the span as failed. The status
// description stays generic; the error itself is kept as a span event.
func RecordError(span trace.Span, err error) {
	if err != nil && span != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "operation failed")
	}
}
