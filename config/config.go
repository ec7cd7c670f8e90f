// Package config reads the YAML file that sets up a timeslider run.
package config

import (
	"log/slog"
	"os"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/hoyle1974/timeslider/storage"
	"github.com/hoyle1974/timeslider/timeline"
)

// ErrInvalidConfig marks every error caused by the content of a config
// file rather than by reading it.
var ErrInvalidConfig = errors.New("invalid config")

// MaxFileSize caps the size of a config file.
const MaxFileSize = 1024 * 1024

var validate = validator.New()

type Config struct {
	LogLevel   string           `yaml:"log_level" validate:"omitempty,oneof=debug info warn error"`
	Storage    StorageConfig    `yaml:"storage"`
	Index      IndexConfig      `yaml:"index"`
	Controller ControllerConfig `yaml:"controller"`
	Record     RecordConfig     `yaml:"record"`
	Metrics    MetricsConfig    `yaml:"metrics"`
}

type StorageConfig struct {
	Source    string `yaml:"source" validate:"oneof=memory disk s3"`
	URI       string `yaml:"uri"`
	Bucket    string `yaml:"bucket" validate:"required_if=Source s3"`
	Region    string `yaml:"region"`
	Endpoint  string `yaml:"endpoint" validate:"omitempty,url"`
	AccessKey string `yaml:"access_key" validate:"required_with=SecretKey"`
	SecretKey string `yaml:"secret_key" validate:"required_with=AccessKey"`
	// Key names the feature collection to load
	Key string `yaml:"key"`
}

type IndexConfig struct {
	// Start and End pin the bounds. Both accept a date or integer
	// milliseconds.
	Start         string `yaml:"start"`
	End           string `yaml:"end"`
	StartProperty string `yaml:"start_property" validate:"required_with=EndProperty"`
	EndProperty   string `yaml:"end_property" validate:"required_with=StartProperty"`
	DrawOnSetTime *bool  `yaml:"draw_on_set_time"`
}

type ControllerConfig struct {
	Start            string        `yaml:"start"`
	End              string        `yaml:"end"`
	ShowTicks        *bool         `yaml:"show_ticks"`
	WaitToUpdateMap  bool          `yaml:"wait_to_update_map"`
	Position         string        `yaml:"position" validate:"omitempty,oneof=topleft topright bottomleft bottomright"`
	Steps            int           `yaml:"steps" validate:"omitempty,min=1"`
	Duration         time.Duration `yaml:"duration" validate:"min=0"`
	KeyboardControls bool          `yaml:"keyboard_controls"`
	Playback         *bool         `yaml:"playback"`
	// TimeFormat is a Go time layout for the output text. Empty prints
	// the raw milliseconds.
	TimeFormat string `yaml:"time_format"`
}

type RecordConfig struct {
	Enabled     bool  `yaml:"enabled"`
	MaxFileSize int64 `yaml:"max_file_size" validate:"omitempty,min=1"`
}

type MetricsConfig struct {
	Addr      string `yaml:"addr" validate:"omitempty,hostname_port"`
	Namespace string `yaml:"namespace"`
}

// Default is the configuration used when no file is given.
func Default() *Config {
	return &Config{
		LogLevel: "info",
		Storage: StorageConfig{
			Source: "disk",
			URI:    ".",
		},
		Metrics: MetricsConfig{Namespace: "timeslider"},
	}
}

// Load parses data on top of Default and validates the result.
func Load(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Mark(errors.Wrap(err, "can not parse config"), ErrInvalidConfig)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func LoadFile(path string) (*Config, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, errors.Wrap(err, "can not stat config")
	}
	if info.Size() > MaxFileSize {
		return nil, errors.Mark(errors.Newf("config %s is %d bytes, limit is %d", path, info.Size(), MaxFileSize), ErrInvalidConfig)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "can not read config")
	}
	cfg, err := Load(data)
	if err != nil {
		return nil, errors.Wrapf(err, "config %s", path)
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return errors.Mark(errors.Wrap(err, "config failed validation"), ErrInvalidConfig)
	}
	// times are checked here so a bad date is reported before anything
	// is built
	for _, s := range []string{c.Index.Start, c.Index.End, c.Controller.Start, c.Controller.End} {
		if s == "" {
			continue
		}
		if _, err := timeline.ParseTime(s); err != nil {
			return errors.Mark(err, ErrInvalidConfig)
		}
	}
	return nil
}

// SlogLevel maps LogLevel onto slog. Unknown values give Info.
func (c *Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

func (c *Config) StorageOptions() storage.Options {
	return storage.Options{
		Source:    c.Storage.Source,
		URI:       c.Storage.URI,
		Bucket:    c.Storage.Bucket,
		Region:    c.Storage.Region,
		Endpoint:  c.Storage.Endpoint,
		AccessKey: c.Storage.AccessKey,
		SecretKey: c.Storage.SecretKey,
	}
}

func (c *Config) IndexOptions() ([]timeline.IndexOption, error) {
	var opts []timeline.IndexOption
	if c.Index.Start != "" {
		t, err := timeline.ParseTime(c.Index.Start)
		if err != nil {
			return nil, errors.Wrap(err, "index start")
		}
		opts = append(opts, timeline.WithStart(t))
	}
	if c.Index.End != "" {
		t, err := timeline.ParseTime(c.Index.End)
		if err != nil {
			return nil, errors.Wrap(err, "index end")
		}
		opts = append(opts, timeline.WithEnd(t))
	}
	if c.Index.StartProperty != "" {
		opts = append(opts, timeline.WithIntervalFunc(timeline.PropertiesInterval(c.Index.StartProperty, c.Index.EndProperty)))
	}
	if c.Index.DrawOnSetTime != nil {
		opts = append(opts, timeline.WithDrawOnSetTime(*c.Index.DrawOnSetTime))
	}
	return opts, nil
}

func (c *Config) ControllerOptions() ([]timeline.ControllerOption, error) {
	cc := c.Controller
	var opts []timeline.ControllerOption
	if cc.Start != "" {
		t, err := timeline.ParseTime(cc.Start)
		if err != nil {
			return nil, errors.Wrap(err, "controller start")
		}
		opts = append(opts, timeline.WithControllerStart(t))
	}
	if cc.End != "" {
		t, err := timeline.ParseTime(cc.End)
		if err != nil {
			return nil, errors.Wrap(err, "controller end")
		}
		opts = append(opts, timeline.WithControllerEnd(t))
	}
	if cc.ShowTicks != nil {
		opts = append(opts, timeline.WithShowTicks(*cc.ShowTicks))
	}
	if cc.WaitToUpdateMap {
		opts = append(opts, timeline.WithWaitToUpdateMap(true))
	}
	if cc.Position != "" {
		opts = append(opts, timeline.WithPosition(cc.Position))
	}
	if cc.Steps > 0 {
		opts = append(opts, timeline.WithSteps(cc.Steps))
	}
	if cc.Duration > 0 {
		opts = append(opts, timeline.WithDuration(cc.Duration))
	}
	if cc.KeyboardControls {
		opts = append(opts, timeline.WithKeyboardControls(true))
	}
	if cc.Playback != nil {
		opts = append(opts, timeline.WithPlayback(*cc.Playback))
	}
	if cc.TimeFormat != "" {
		opts = append(opts, timeline.WithFormatOutput(LayoutFormatter(cc.TimeFormat)))
	}
	return opts, nil
}

// LayoutFormatter prints millisecond times in UTC using a Go time layout.
func LayoutFormatter(layout string) func(int64) string {
	return func(ms int64) string {
		return time.UnixMilli(ms).UTC().Format(layout)
	}
}
