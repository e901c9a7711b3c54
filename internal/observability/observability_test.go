package observability

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/wind-turbine-etl/internal/config"
)

func TestNewLogger(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	logger := NewLogger(&config.Config{LogLevel: "warn", LogFormat: "text"})
	require.NotNil(t, logger)

	ctx := context.Background()
	assert.False(t, logger.Enabled(ctx, slog.LevelInfo))
	assert.True(t, logger.Enabled(ctx, slog.LevelWarn))
	assert.Same(t, logger, slog.Default())
}

func TestNewLogger_DefaultLevel(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	logger := NewLogger(&config.Config{LogLevel: "nonsense", LogFormat: "json"})
	assert.True(t, logger.Enabled(context.Background(), slog.LevelInfo))
	assert.False(t, logger.Enabled(context.Background(), slog.LevelDebug))
}

func TestMetrics_Corrections(t *testing.T) {
	m := NewMetricsForTesting()
	m.Corrections.WithLabelValues("barra-xi-uf").Add(3)

	assert.InDelta(t, 3, testutil.ToFloat64(m.Corrections.WithLabelValues("barra-xi-uf")), 1e-9)
}

func TestWriteTextfile(t *testing.T) {
	c := prometheus.NewCounter(prometheus.CounterOpts{Namespace: "wind_etl_test", Name: "textfile_total"})
	prometheus.MustRegister(c)
	t.Cleanup(func() { prometheus.Unregister(c) })
	c.Inc()

	path := filepath.Join(t.TempDir(), "wind_etl.prom")
	require.NoError(t, WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "wind_etl_test_textfile_total 1")
}
