package infrastructure

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"eventdash/internal/config"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func TestNewOTelConfig(t *testing.T) {
	cfg := NewOTelConfig(config.TelemetryConfig{
		Environment:    "test",
		EnableMetrics:  true,
		MetricExporter: "prometheus",
		SampleRatio:    0.5,
	})

	assert.Equal(t, config.AppName, cfg.ServiceName)
	assert.Equal(t, config.AppVersion, cfg.ServiceVersion)
	assert.Equal(t, "test", cfg.Environment)
	assert.True(t, cfg.EnableMetrics)
	assert.False(t, cfg.EnableTracing)
	assert.Equal(t, 0.5, cfg.SampleRatio)
}

func TestInitializeOTel(t *testing.T) {
	tests := []struct {
		name        string
		cfg         *OTelConfig
		wantErr     bool
		wantMetrics bool
		wantTracing bool
	}{
		{
			name:        "metrics only",
			cfg:         &OTelConfig{ServiceName: "t", EnableMetrics: true, MetricExporter: "prometheus"},
			wantMetrics: true,
		},
		{
			name:        "tracing to stdout",
			cfg:         &OTelConfig{ServiceName: "t", EnableTracing: true, TraceExporter: "stdout", SampleRatio: 1},
			wantTracing: true,
		},
		{
			name: "everything disabled",
			cfg:  &OTelConfig{ServiceName: "t"},
		},
		{
			name:    "unknown metric exporter",
			cfg:     &OTelConfig{ServiceName: "t", EnableMetrics: true, MetricExporter: "statsd"},
			wantErr: true,
		},
		{
			name:    "unknown trace exporter",
			cfg:     &OTelConfig{ServiceName: "t", EnableTracing: true, TraceExporter: "jaeger"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			providers, err := InitializeOTel(tt.cfg, discardLogger())
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			defer providers.Shutdown(context.Background())

			assert.NotNil(t, providers.Tracer)
			assert.NotNil(t, providers.Meter)
			assert.Equal(t, tt.wantMetrics, providers.PrometheusHTTP != nil)
			assert.Equal(t, tt.wantMetrics, providers.MeterProvider != nil)
			assert.Equal(t, tt.wantTracing, providers.TracerProvider != nil)
		})
	}
}

func TestBusinessMetrics_Exposed(t *testing.T) {
	providers, err := InitializeOTel(&OTelConfig{
		ServiceName:    "t",
		EnableMetrics:  true,
		MetricExporter: "prometheus",
	}, discardLogger())
	require.NoError(t, err)
	defer providers.Shutdown(context.Background())

	m, err := CreateBusinessMetrics(providers.Meter)
	require.NoError(t, err)

	ctx := context.Background()
	RecordQueryMetrics(ctx, m, "http", 15*time.Millisecond, 0)
	RecordDatasetMetrics(ctx, m, 42, 3)
	RecordSystemError(ctx, m, "charts")

	rec := httptest.NewRecorder()
	providers.PrometheusHTTP.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	for _, name := range []string{
		"dashboard_queries_total",
		"dashboard_query_duration_seconds",
		"dashboard_empty_results_total",
		"dataset_records",
		"system_errors_total",
	} {
		assert.True(t, strings.Contains(body, name), "missing %s", name)
	}
}

func TestRecordHelpers_NilMetrics(t *testing.T) {
	ctx := context.Background()
	assert.NotPanics(t, func() {
		RecordQueryMetrics(ctx, nil, "http", time.Second, 1)
		RecordDatasetMetrics(ctx, nil, 1, 0)
		RecordSystemError(ctx, nil, "x")
	})
}

func TestSpanHelpers(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	defer tp.Shutdown(context.Background())

	ctx, span := tp.Tracer("test").Start(context.Background(), "op")
	AddSpanEvent(ctx, "checkpoint")
	RecordError(ctx, errors.New("boom"))
	RecordError(ctx, nil)
	span.End()

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "Error", spans[0].Status().Code.String())
	names := make([]string, 0)
	for _, ev := range spans[0].Events() {
		names = append(names, ev.Name)
	}
	assert.Contains(t, names, "checkpoint")
	assert.Contains(t, names, "exception")

	// non-recording contexts are ignored
	assert.NotPanics(t, func() {
		AddSpanEvent(context.Background(), "ignored")
		RecordError(context.Background(), errors.New("ignored"))
	})
}

func TestSystemMetricsCollector(t *testing.T) {
	providers, err := InitializeOTel(&OTelConfig{
		ServiceName:    "t",
		EnableMetrics:  true,
		MetricExporter: "prometheus",
	}, discardLogger())
	require.NoError(t, err)
	defer providers.Shutdown(context.Background())

	collector, err := NewSystemMetricsCollector(providers.Meter, time.Now().Add(-time.Minute), 10*time.Millisecond)
	require.NoError(t, err)

	stats := collector.Collect(context.Background())
	assert.Positive(t, stats.Goroutines)
	assert.GreaterOrEqual(t, stats.UptimeSeconds, 60.0)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	assert.NoError(t, collector.Run(ctx))

	rec := httptest.NewRecorder()
	providers.PrometheusHTTP.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, rec.Body.String(), "system_goroutines")
}
