package serve

import (
	"context"
	"encoding/hex"
	"log/slog"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// LogSpanExporter implements the OpenTelemetry SpanExporter interface and
// writes completed spans to a structured logger. Validation workers use it
// to surface per-job trace data without requiring a collector deployment.
//
// Export failures cannot occur, but the exporter still follows the
// fire-and-forget contract: ExportSpans always returns nil so the trace
// pipeline never propagates errors back into the application.
type LogSpanExporter struct {
	logger *slog.Logger
}

// compile-time interface check
var _ sdktrace.SpanExporter = (*LogSpanExporter)(nil)

// NewLogSpanExporter creates a LogSpanExporter writing to the given logger.
// If logger is nil, slog.Default() is used.
//
// The returned exporter should be registered with the OpenTelemetry SDK's
// TracerProvider, typically via NewTracerProvider.
func NewLogSpanExporter(logger *slog.Logger) *LogSpanExporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSpanExporter{
		logger: logger,
	}
}

// ExportSpans logs a batch of completed spans.
//
// Each span is emitted as one log record carrying the span name, its hex
// trace and span IDs, the parent span ID when present, the duration, the
// status code, and any attributes. The method is called automatically by
// the OpenTelemetry SDK when spans complete.
func (e *LogSpanExporter) ExportSpans(ctx context.Context, spans []sdktrace.ReadOnlySpan) error {
	for _, span := range spans {
		sc := span.SpanContext()
		traceID := sc.TraceID()
		spanID := sc.SpanID()

		args := []any{
			"name", span.Name(),
			"trace_id", hex.EncodeToString(traceID[:]),
			"span_id", hex.EncodeToString(spanID[:]),
			"kind", span.SpanKind().String(),
			"duration_ms", span.EndTime().Sub(span.StartTime()).Milliseconds(),
			"status", span.Status().Code.String(),
		}

		if span.Parent().IsValid() {
			parentID := span.Parent().SpanID()
			args = append(args, "parent_span_id", hex.EncodeToString(parentID[:]))
		}

		if desc := span.Status().Description; desc != "" {
			args = append(args, "status_description", desc)
		}

		if attrs := span.Attributes(); len(attrs) > 0 {
			m := make(map[string]any, len(attrs))
			for _, attr := range attrs {
				m[string(attr.Key)] = attr.Value.AsInterface()
			}
			args = append(args, "attributes", m)
		}

		e.logger.Info("span completed", args...)
	}

	return nil
}

// Shutdown performs cleanup when the exporter is being shut down.
// This implementation is a no-op as the logger's lifecycle is owned
// by the caller.
func (e *LogSpanExporter) Shutdown(ctx context.Context) error {
	return nil
}
