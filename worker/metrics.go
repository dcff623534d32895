package worker

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// scopeName is the instrumentation scope for worker telemetry.
const scopeName = "github.com/zero-day-ai/warden/worker"

// metrics holds the OpenTelemetry metric instruments for the worker daemon.
// These are created once at startup and reused for every job.
type metrics struct {
	// jobs counts processed jobs by schema and outcome
	jobs metric.Int64Counter

	// violations counts recorded violations by schema
	violations metric.Int64Counter

	// duration records per-job validation duration in milliseconds
	duration metric.Float64Histogram
}

// newMetrics creates and initializes the worker metric instruments.
func newMetrics(meter metric.Meter) (*metrics, error) {
	m := &metrics{}
	var err error

	m.jobs, err = meter.Int64Counter(
		"warden.jobs",
		metric.WithDescription("Number of validation jobs processed"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, fmt.Errorf("create jobs counter: %w", err)
	}

	m.violations, err = meter.Int64Counter(
		"warden.violations",
		metric.WithDescription("Number of violations recorded across processed jobs"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, fmt.Errorf("create violations counter: %w", err)
	}

	m.duration, err = meter.Float64Histogram(
		"warden.job.duration",
		metric.WithDescription("Validation job duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, fmt.Errorf("create duration histogram: %w", err)
	}

	return m, nil
}

// record captures the telemetry of one processed job. The outcome is one of
// "valid", "invalid", or "error". A nil receiver is a no-op, so a worker
// whose instruments failed to initialize keeps processing jobs.
func (m *metrics) record(ctx context.Context, schemaName, outcome string, violations int, d time.Duration) {
	if m == nil {
		return
	}

	opts := metric.WithAttributes(
		attribute.String("schema", schemaName),
		attribute.String("outcome", outcome),
	)

	if m.jobs != nil {
		m.jobs.Add(ctx, 1, opts)
	}

	if violations > 0 && m.violations != nil {
		m.violations.Add(ctx, int64(violations), metric.WithAttributes(
			attribute.String("schema", schemaName),
		))
	}

	if m.duration != nil {
		m.duration.Record(ctx, float64(d.Milliseconds()), opts)
	}
}
