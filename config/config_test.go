package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/hoyle1974/timeslider/storage"
	"github.com/hoyle1974/timeslider/timeline"
	"github.com/stretchr/testify/require"
)

const full = `
log_level: debug
storage:
  source: s3
  bucket: maps
  uri: layers/
  region: us-east-1
  endpoint: http://localhost:4566
  access_key: test
  secret_key: test
  key: quakes.geojson
index:
  start: "2020-01-01"
  end: "1700000000000"
  start_property: from
  end_property: to
  draw_on_set_time: false
controller:
  show_ticks: false
  wait_to_update_map: true
  position: topright
  steps: 20
  duration: 2s
  keyboard_controls: true
  playback: false
  time_format: "2006-01-02"
record:
  enabled: true
  max_file_size: 4096
metrics:
  addr: "localhost:9090"
`

func TestDefault(t *testing.T) {
	cfg, err := Load(nil)
	require.NoError(t, err)
	require.Equal(t, Default(), cfg)
	require.Equal(t, slog.LevelInfo, cfg.SlogLevel())
	require.Equal(t, storage.Options{Source: "disk", URI: "."}, cfg.StorageOptions())

	opts, err := cfg.IndexOptions()
	require.NoError(t, err)
	require.Empty(t, opts)
	copts, err := cfg.ControllerOptions()
	require.NoError(t, err)
	require.Empty(t, copts)
}

func TestLoadFull(t *testing.T) {
	cfg, err := Load([]byte(full))
	require.NoError(t, err)

	require.Equal(t, slog.LevelDebug, cfg.SlogLevel())
	require.Equal(t, "quakes.geojson", cfg.Storage.Key)
	require.Equal(t, storage.Options{
		Source:    "s3",
		URI:       "layers/",
		Bucket:    "maps",
		Region:    "us-east-1",
		Endpoint:  "http://localhost:4566",
		AccessKey: "test",
		SecretKey: "test",
	}, cfg.StorageOptions())
	require.Equal(t, 2*time.Second, cfg.Controller.Duration)
	require.True(t, cfg.Record.Enabled)
	require.Equal(t, int64(4096), cfg.Record.MaxFileSize)
	require.Equal(t, "localhost:9090", cfg.Metrics.Addr)
	require.Equal(t, "timeslider", cfg.Metrics.Namespace)

	opts, err := cfg.IndexOptions()
	require.NoError(t, err)
	require.Len(t, opts, 4)
	copts, err := cfg.ControllerOptions()
	require.NoError(t, err)
	require.Len(t, copts, 8)
}

func TestOptionsApply(t *testing.T) {
	cfg, err := Load([]byte(full))
	require.NoError(t, err)
	opts, err := cfg.IndexOptions()
	require.NoError(t, err)

	idx := timeline.NewIndex(nil, nil, opts...)
	start, end := idx.Bounds()
	require.Equal(t, int64(1577836800000), start)
	require.Equal(t, int64(1700000000000), end)

	copts, err := cfg.ControllerOptions()
	require.NoError(t, err)
	c := timeline.NewController(copts...)
	c.AddTimelines(idx)
	require.Equal(t, "topright", c.Position())
	require.Empty(t, c.Ticks())
	require.Equal(t, "2020-01-01 - 2023-11-14", c.Output())
	require.Equal(t, 100*time.Millisecond, c.StepDuration())
}

func TestInvalid(t *testing.T) {
	cases := map[string]string{
		"Syntax":        "storage: [",
		"LogLevel":      "log_level: loud",
		"Source":        "storage: {source: tape}",
		"BucketMissing": "storage: {source: s3}",
		"Endpoint":      "storage: {source: s3, bucket: b, endpoint: not a url}",
		"HalfKeys":      "storage: {access_key: only}",
		"Position":      "controller: {position: middle}",
		"Steps":         "controller: {steps: -1}",
		"Duration":      "controller: {duration: -1s}",
		"Property":      "index: {start_property: from}",
		"Date":          "index: {start: someday}",
		"ControlDate":   "controller: {end: later}",
		"MetricsAddr":   "metrics: {addr: nowhere}",
		"MaxFileSize":   "record: {max_file_size: -5}",
	}
	for name, data := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load([]byte(data))
			require.Error(t, err)
			require.True(t, errors.Is(err, ErrInvalidConfig), "%v", err)
		})
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "timeslider.yaml")
	require.NoError(t, os.WriteFile(path, []byte(full), 0644))

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	require.Equal(t, "maps", cfg.Storage.Bucket)

	_, err = LoadFile(filepath.Join(dir, "missing.yaml"))
	require.Error(t, err)
	require.False(t, errors.Is(err, ErrInvalidConfig))

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("log_level: loud"), 0644))
	_, err = LoadFile(bad)
	require.True(t, errors.Is(err, ErrInvalidConfig))
}

func TestLayoutFormatter(t *testing.T) {
	require.Equal(t, "2020-01-01", LayoutFormatter("2006-01-02")(1577836800000))
}
