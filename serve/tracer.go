package serve

import (
	"context"
	"encoding/hex"
	"log/slog"

	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
)

// NewTracerProvider creates a TracerProvider configured with a
// LogSpanExporter so completed spans surface as structured log records.
//
// The provider uses a SimpleSpanProcessor for immediate export without
// batching, ensuring a job's span is logged as soon as it completes.
//
// Parameters:
//   - service: The service name recorded on the provider's resource
//   - logger: Structured logger receiving exported spans and setup warnings
//
// Returns a configured TracerProvider ready for creating tracers.
func NewTracerProvider(service string, logger *slog.Logger) *sdktrace.TracerProvider {
	if logger == nil {
		logger = slog.Default()
	}

	exporter := NewLogSpanExporter(logger)

	// SimpleSpanProcessor exports each span on completion (no batching)
	processor := sdktrace.NewSimpleSpanProcessor(exporter)

	// Create resource with service information
	res, err := resource.New(
		context.Background(),
		resource.WithAttributes(
			semconv.ServiceNameKey.String(service),
		),
	)
	if err != nil {
		logger.Warn("failed to create resource, using default", "error", err)
		res = resource.Default()
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSpanProcessor(processor),
		sdktrace.WithResource(res),
	)

	return tp
}

// ContextWithRemoteParent creates a context with a parent SpanContext from
// hex-encoded traceID and spanID strings.
//
// This links worker spans to submitter spans in distributed traces: a job
// carries the trace and span IDs of the submitting operation, and the
// worker injects them as the remote parent before starting its own span.
//
// Parameters:
//   - ctx: The base context to extend
//   - traceID: The hex-encoded 16-byte trace ID from the submitter
//   - spanID: The hex-encoded 8-byte span ID from the submitter
//
// Returns a context with the parent span context injected, or the original
// context if the IDs cannot be decoded.
func ContextWithRemoteParent(ctx context.Context, traceID, spanID string) context.Context {
	if traceID == "" || spanID == "" {
		return ctx
	}

	// Decode trace ID from hex string
	traceIDBytes, err := hex.DecodeString(traceID)
	if err != nil || len(traceIDBytes) != 16 {
		return ctx
	}

	// Decode span ID from hex string
	spanIDBytes, err := hex.DecodeString(spanID)
	if err != nil || len(spanIDBytes) != 8 {
		return ctx
	}

	var tid trace.TraceID
	copy(tid[:], traceIDBytes)

	var sid trace.SpanID
	copy(sid[:], spanIDBytes)

	// Create parent span context
	parentSpanContext := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    tid,
		SpanID:     sid,
		TraceFlags: trace.FlagsSampled, // Mark as sampled
		Remote:     true,               // This is a remote parent
	})

	// Inject parent context
	return trace.ContextWithSpanContext(ctx, parentSpanContext)
}
