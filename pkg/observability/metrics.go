package observability

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// InitMetrics creates the prometheus-backed meter provider and instruments
// and installs the resulting recorder globally. When disabled it returns an
// empty recorder that drops everything.
func InitMetrics(ctx context.Context, cfg MetricsConfig) (*PrometheusMetrics, error) {
	if !cfg.Enabled {
		return &PrometheusMetrics{}, nil
	}

	promExporter, err := otelprom.New()
	if err != nil {
		return nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
	}

	meterProvider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(promExporter),
	)

	meter := meterProvider.Meter("a2abridge")

	requestDuration, err := meter.Float64Histogram(
		"a2abridge_protocol_request_duration_seconds",
		metric.WithDescription("Protocol exchange duration in seconds"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create request duration histogram: %w", err)
	}

	requestsTotal, err := meter.Int64Counter(
		"a2abridge_protocol_requests_total",
		metric.WithDescription("Total protocol exchanges"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create requests counter: %w", err)
	}

	errorsTotal, err := meter.Int64Counter(
		"a2abridge_protocol_errors_total",
		metric.WithDescription("Total failed protocol exchanges"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create errors counter: %w", err)
	}

	inputTokens, err := meter.Int64Counter(
		"a2abridge_protocol_tokens_input_total",
		metric.WithDescription("Estimated input tokens sent to the agent"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create input tokens counter: %w", err)
	}

	outputTokens, err := meter.Int64Counter(
		"a2abridge_protocol_tokens_output_total",
		metric.WithDescription("Estimated output tokens received from the agent"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create output tokens counter: %w", err)
	}

	discoveryDuration, err := meter.Float64Histogram(
		"a2abridge_discovery_duration_seconds",
		metric.WithDescription("Agent card discovery duration in seconds"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create discovery duration histogram: %w", err)
	}

	discoveryErrors, err := meter.Int64Counter(
		"a2abridge_discovery_errors_total",
		metric.WithDescription("Total failed discovery attempts"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create discovery errors counter: %w", err)
	}

	m := &PrometheusMetrics{
		requestDuration:   requestDuration,
		requestsTotal:     requestsTotal,
		errorsTotal:       errorsTotal,
		inputTokens:       inputTokens,
		outputTokens:      outputTokens,
		discoveryDuration: discoveryDuration,
		discoveryErrors:   discoveryErrors,
	}

	SetGlobalMetrics(m)
	return m, nil
}

// MetricsHandler exposes the prometheus scrape endpoint.
func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
