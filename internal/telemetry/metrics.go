package telemetry

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	meterName = "github.com/wolfeidau/taskbook"
)

// Metrics holds all the OpenTelemetry metric instruments
type Metrics struct {
	// Authentication metrics
	LoginAttemptsTotal      metric.Int64Counter
	TokenVerifyFailureTotal metric.Int64Counter

	// Task metrics
	TasksCreatedTotal metric.Int64Counter
	TasksUpdatedTotal metric.Int64Counter

	// Admin report metrics
	ReportQueriesTotal metric.Int64Counter
	ReportRowsReturned metric.Int64Histogram
}

var (
	once    sync.Once
	metrics *Metrics
)

// GetMetrics returns the singleton Metrics instance, initializing it if necessary
func GetMetrics() *Metrics {
	once.Do(func() {
		metrics = initMetrics()
	})
	return metrics
}

// initMetrics creates and registers all metric instruments.
// Instruments are created from the global meter provider, which is a no-op until
// InitTelemetry installs the OTLP provider.
func initMetrics() *Metrics {
	meter := otel.GetMeterProvider().Meter(meterName)

	m := &Metrics{}

	m.LoginAttemptsTotal, _ = meter.Int64Counter(
		"taskbook.auth.login.attempts.total",
		metric.WithDescription("Total number of login attempts by outcome"),
		metric.WithUnit("{attempt}"),
	)

	m.TokenVerifyFailureTotal, _ = meter.Int64Counter(
		"taskbook.auth.token.failures.total",
		metric.WithDescription("Total number of rejected session tokens by kind"),
		metric.WithUnit("{token}"),
	)

	m.TasksCreatedTotal, _ = meter.Int64Counter(
		"taskbook.tasks.created.total",
		metric.WithDescription("Total number of tasks created"),
		metric.WithUnit("{task}"),
	)

	m.TasksUpdatedTotal, _ = meter.Int64Counter(
		"taskbook.tasks.updated.total",
		metric.WithDescription("Total number of tasks updated by their owner"),
		metric.WithUnit("{task}"),
	)

	m.ReportQueriesTotal, _ = meter.Int64Counter(
		"taskbook.report.queries.total",
		metric.WithDescription("Total number of admin report queries"),
		metric.WithUnit("{query}"),
	)

	m.ReportRowsReturned, _ = meter.Int64Histogram(
		"taskbook.report.rows",
		metric.WithDescription("Number of rows returned by admin report queries"),
		metric.WithUnit("{row}"),
	)

	return m
}

// RecordLoginAttempt counts a login attempt, outcome is "success", "invalid" or "error".
func (m *Metrics) RecordLoginAttempt(ctx context.Context, outcome string) {
	m.LoginAttemptsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

// RecordTokenFailure counts a rejected token by the kind of failure.
func (m *Metrics) RecordTokenFailure(ctx context.Context, kind string) {
	m.TokenVerifyFailureTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", kind)))
}

// RecordReport counts a report query and the size of its result.
func (m *Metrics) RecordReport(ctx context.Context, filtered bool, rows int) {
	attrs := metric.WithAttributes(attribute.Bool("filtered", filtered))
	m.ReportQueriesTotal.Add(ctx, 1, attrs)
	m.ReportRowsReturned.Record(ctx, int64(rows), attrs)
}
