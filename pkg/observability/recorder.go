package observability

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	globalMetrics Metrics = NoOpMetrics{}
	metricsMu     sync.RWMutex
)

// Metrics records live protocol measurements alongside the per-request
// records the client keeps for export.
type Metrics interface {
	RecordProtocolRequest(ctx context.Context, endpoint string, statusCode int, duration time.Duration, inputTokens, outputTokens int, err error)
	RecordDiscovery(ctx context.Context, endpoint string, duration time.Duration, err error)
}

// PrometheusMetrics implements Metrics on OpenTelemetry instruments backed
// by the prometheus exporter.
type PrometheusMetrics struct {
	requestDuration metric.Float64Histogram
	requestsTotal   metric.Int64Counter
	errorsTotal     metric.Int64Counter
	inputTokens     metric.Int64Counter
	outputTokens    metric.Int64Counter

	discoveryDuration metric.Float64Histogram
	discoveryErrors   metric.Int64Counter
}

func (m *PrometheusMetrics) RecordProtocolRequest(ctx context.Context, endpoint string, statusCode int, duration time.Duration, inputTokens, outputTokens int, err error) {
	if m.requestsTotal == nil {
		return
	}

	attrs := metric.WithAttributes(
		attribute.String("endpoint", endpoint),
		attribute.Int("status_code", statusCode),
	)

	m.requestsTotal.Add(ctx, 1, attrs)
	m.requestDuration.Record(ctx, duration.Seconds(), attrs)
	m.inputTokens.Add(ctx, int64(inputTokens), attrs)
	m.outputTokens.Add(ctx, int64(outputTokens), attrs)

	if err != nil {
		m.errorsTotal.Add(ctx, 1, attrs)
	}
}

func (m *PrometheusMetrics) RecordDiscovery(ctx context.Context, endpoint string, duration time.Duration, err error) {
	if m.discoveryDuration == nil {
		return
	}

	attrs := metric.WithAttributes(attribute.String("endpoint", endpoint))

	m.discoveryDuration.Record(ctx, duration.Seconds(), attrs)
	if err != nil {
		m.discoveryErrors.Add(ctx, 1, attrs)
	}
}

// NoOpMetrics discards all measurements.
type NoOpMetrics struct{}

func (NoOpMetrics) RecordProtocolRequest(context.Context, string, int, time.Duration, int, int, error) {
}

func (NoOpMetrics) RecordDiscovery(context.Context, string, time.Duration, error) {}

// SetGlobalMetrics installs the process-wide metrics recorder.
func SetGlobalMetrics(m Metrics) {
	metricsMu.Lock()
	defer metricsMu.Unlock()
	if m == nil {
		m = NoOpMetrics{}
	}
	globalMetrics = m
}

// GetGlobalMetrics returns the installed recorder (no-op by default).
func GetGlobalMetrics() Metrics {
	metricsMu.RLock()
	defer metricsMu.RUnlock()
	return globalMetrics
}
