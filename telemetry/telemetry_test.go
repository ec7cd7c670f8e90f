package telemetry

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestSlogLogger(t *testing.T) {
	var buf bytes.Buffer
	l := NewSlogLogger(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))

	l.Info("built index", "features", 3)
	l.Debug("diff", "added", 1)
	l.Error("load failed", errors.New("boom"), "key", "a.geojson")

	out := buf.String()
	require.Contains(t, out, "built index")
	require.Contains(t, out, "features=3")
	require.Contains(t, out, "added=1")
	require.Contains(t, out, "error=boom")
	require.Contains(t, out, "key=a.geojson")
}

func TestPrometheusMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewPrometheusMetrics(reg, "test")

	m.SetCount("timeline.layers.added", 2)
	m.SetCount("timeline.layers.added", 3)
	m.SetGuage("timeline.layers.displayed", 4)
	m.SetGuage("timeline.layers.displayed", 1)

	require.Equal(t, 5.0, testutil.ToFloat64(m.counters["timeline.layers.added"]))
	require.Equal(t, 1.0, testutil.ToFloat64(m.gauges["timeline.layers.displayed"]))

	// a second instance on the same registry reuses the collectors
	m2 := NewPrometheusMetrics(reg, "test")
	m2.SetCount("timeline.layers.added", 1)
	require.Equal(t, 6.0, testutil.ToFloat64(m.counters["timeline.layers.added"]))
}
