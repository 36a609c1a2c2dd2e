package infrastructure

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"banvicdash/internal/config"
)

func testOTel(t *testing.T) *OTelProviders {
	t.Helper()
	cfg := OTelConfigFrom(config.Default().Telemetry)
	cfg.Registry = promclient.NewRegistry()

	providers, err := InitializeOTel(cfg, slog.New(slog.NewJSONHandler(io.Discard, nil)))
	require.NoError(t, err)
	t.Cleanup(func() { _ = providers.Shutdown(context.Background()) })
	return providers
}

func TestOTelInitialization(t *testing.T) {
	providers := testOTel(t)

	assert.NotNil(t, providers.Meter)
	assert.NotNil(t, providers.MeterProvider)
	assert.NotNil(t, providers.Tracer)
	assert.NotNil(t, providers.PrometheusHTTP)
	assert.Nil(t, providers.TracerProvider, "no trace exporter configured")
}

func TestOTelUnsupportedExporter(t *testing.T) {
	cfg := OTelConfigFrom(config.Default().Telemetry)
	cfg.TraceExporter = "zipkin"
	cfg.Registry = promclient.NewRegistry()

	_, err := InitializeOTel(cfg, slog.New(slog.NewJSONHandler(io.Discard, nil)))
	assert.Error(t, err)
}

func TestBusinessMetricsOnPrometheusEndpoint(t *testing.T) {
	providers := testOTel(t)

	metrics, err := CreateBusinessMetrics(providers.Meter)
	require.NoError(t, err)

	ctx := context.Background()
	metrics.RecordDatasetLoad(ctx, 120*time.Millisecond, map[string]int{"transactions": 42}, nil)
	metrics.RecordUnmatched(ctx, "account", 2)
	metrics.RecordPipelineRun(ctx, 5*time.Millisecond, 10)
	metrics.RecordExport(ctx, "by_branch", "csv")

	rec := httptest.NewRecorder()
	providers.PrometheusHTTP.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "dataset_loads_total")
	assert.Contains(t, body, `table="transactions"`)
	assert.Contains(t, body, "pipeline_runs_total")
	assert.Contains(t, body, `format="csv"`)
}

func TestNilBusinessMetricsAreNoops(t *testing.T) {
	var metrics *BusinessMetrics
	ctx := context.Background()

	assert.NotPanics(t, func() {
		metrics.RecordDatasetLoad(ctx, time.Second, nil, nil)
		metrics.RecordUnmatched(ctx, "branch", 1)
		metrics.RecordPipelineRun(ctx, time.Second, 0)
		metrics.RecordExport(ctx, "by_date", "xlsx")
		metrics.RecordSystemError(ctx, "loader")
	})
}
