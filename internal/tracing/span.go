package tracing

import (
	"context"
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// StartRunSpan starts a span covering one full benchmark run.
func StartRunSpan(ctx context.Context, tracer trace.Tracer, label, strategy string, concurrency, totalItems int) (context.Context, trace.Span) {
	return tracer.Start(ctx, "benchmark.run",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("bench.label", label),
			attribute.String("bench.strategy", strategy),
			attribute.Int("bench.concurrency", concurrency),
			attribute.Int("bench.total_items", totalItems),
		),
	)
}

// StartItemSpan starts a span for a single work item fetch.
func StartItemSpan(ctx context.Context, tracer trace.Tracer, item string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "benchmark.item",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("bench.item", item)),
	)
}

// EndSpan records the outcome on a span and ends it.
func EndSpan(span trace.Span, err error) {
	if span == nil {
		return
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// InjectHTTPHeaders injects the active trace context into outgoing HTTP
// request headers so downstream services can join the trace.
func InjectHTTPHeaders(ctx context.Context, header http.Header) {
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(header))
}
