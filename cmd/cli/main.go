package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	flag "github.com/spf13/pflag"

	"github.com/hoyle1974/timeslider/collection"
	"github.com/hoyle1974/timeslider/config"
	"github.com/hoyle1974/timeslider/events"
	"github.com/hoyle1974/timeslider/storage"
	"github.com/hoyle1974/timeslider/telemetry"
	"github.com/hoyle1974/timeslider/timeline"
)

func main() {
	configPath := flag.StringP("config", "c", "", "YAML config file")
	source := flag.StringP("source", "s", "disk", "The source to work against (memory, disk, s3)")
	uri := flag.StringP("uri", "u", ".", "The uri to the source")
	bucket := flag.String("bucket", "", "S3 bucket")
	key := flag.StringP("key", "k", "", "Key of the GeoJSON feature collection to load")
	record := flag.Bool("record", false, "Record every draw command under events/")
	replay := flag.Bool("replay", false, "Print the layers left displayed by the recorded events and exit")
	play := flag.Bool("play", false, "Play the timeline instead of stepping through event times")
	metricsAddr := flag.String("metrics-addr", "", "Serve prometheus metrics on this address")
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		var err error
		if cfg, err = config.LoadFile(*configPath); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	}
	if flag.CommandLine.Changed("source") || *configPath == "" {
		cfg.Storage.Source = *source
	}
	if flag.CommandLine.Changed("uri") || *configPath == "" {
		cfg.Storage.URI = *uri
	}
	if *bucket != "" {
		cfg.Storage.Bucket = *bucket
	}
	if *key != "" {
		cfg.Storage.Key = *key
	}
	if *record {
		cfg.Record.Enabled = true
	}
	if *metricsAddr != "" {
		cfg.Metrics.Addr = *metricsAddr
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()})
	logger := telemetry.NewSlogLogger(slog.New(handler))

	var err error
	if *replay {
		err = runReplay(ctx, cfg)
	} else {
		err = run(ctx, cfg, logger, *play)
	}
	if err != nil {
		logger.Error("run failed", err)
		os.Exit(1)
	}
}

func runReplay(ctx context.Context, cfg *config.Config) error {
	store, err := storage.Open(ctx, cfg.StorageOptions())
	if err != nil {
		return err
	}
	recorded, err := events.ReadAll(ctx, store)
	if err != nil {
		return err
	}
	displayed := events.Replay(recorded)
	fmt.Printf("%d events, %d layers displayed\n", len(recorded), len(displayed))
	for id, feature := range displayed {
		fmt.Printf("  %s %s\n", id, feature)
	}
	return nil
}

func run(ctx context.Context, cfg *config.Config, logger telemetry.Logger, play bool) error {
	if cfg.Storage.Key == "" {
		return errors.New("no feature collection key given")
	}

	var metrics telemetry.Metrics = telemetry.NOPMetrics{}
	if cfg.Metrics.Addr != "" {
		reg := prometheus.NewRegistry()
		metrics = telemetry.NewPrometheusMetrics(reg, cfg.Metrics.Namespace)
		server := &http.Server{
			Addr:              cfg.Metrics.Addr,
			Handler:           promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server stopped", err)
			}
		}()
		defer server.Close()
		logger.Info("serving metrics", "addr", cfg.Metrics.Addr)
	}

	store, err := storage.Open(ctx, cfg.StorageOptions())
	if err != nil {
		return err
	}

	fc, err := collection.NewLoader(store, 0).Load(ctx, cfg.Storage.Key)
	if err != nil {
		return err
	}

	var view timeline.View = consoleView{out: os.Stdout}
	var recorder *events.Recorder
	if cfg.Record.Enabled {
		sink, err := events.NewSink(ctx, store, cfg.Record.MaxFileSize)
		if err != nil {
			return err
		}
		recorder = events.NewRecorder(sink, view, logger)
		view = recorder
		defer func() {
			if err := recorder.Close(); err != nil {
				logger.Error("can not close recording", err)
			}
		}()
	}

	indexOpts, err := cfg.IndexOptions()
	if err != nil {
		return err
	}
	indexOpts = append(indexOpts, timeline.WithLogger(logger), timeline.WithMetrics(metrics))
	idx := timeline.NewIndex(fc, view, indexOpts...)
	if recorder != nil {
		recorder.Observe(idx)
	}

	controllerOpts, err := cfg.ControllerOptions()
	if err != nil {
		return err
	}
	controllerOpts = append(controllerOpts, timeline.WithControllerLogger(logger))
	ctrl := timeline.NewController(controllerOpts...)
	ctrl.AddTimelines(idx)
	if err := ctrl.Attach(consoleHost{out: os.Stdout}); err != nil {
		return err
	}
	defer ctrl.Detach()

	if play {
		err = playback(ctx, ctrl)
	} else {
		err = stepThrough(ctx, ctrl)
	}
	if err != nil {
		return err
	}
	if recorder != nil {
		if err := recorder.Err(); err != nil {
			return err
		}
		logger.Info("recorded events", "count", recorder.Count())
	}
	return nil
}

// stepThrough shows each event time in turn.
func stepThrough(ctx context.Context, ctrl *timeline.Controller) error {
	times := ctrl.GetAllTimes()
	if len(times) == 0 {
		return nil
	}
	ctrl.SetTime(times[0], times[0])
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		before, _ := ctrl.Selection()
		ctrl.Next()
		after, _ := ctrl.Selection()
		if after == before {
			return nil
		}
	}
}

func playback(ctx context.Context, ctrl *timeline.Controller) error {
	ctrl.Play()
	if !ctrl.Playing() {
		return errors.New("playback is disabled")
	}
	ticker := time.NewTicker(ctrl.StepDuration())
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			ctrl.Pause()
			return ctx.Err()
		case <-ticker.C:
			if !ctrl.Advance() {
				return nil
			}
		}
	}
}
