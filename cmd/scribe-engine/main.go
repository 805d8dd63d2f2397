package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/snarg/scribe-engine/internal/api"
	"github.com/snarg/scribe-engine/internal/artifact"
	"github.com/snarg/scribe-engine/internal/config"
	"github.com/snarg/scribe-engine/internal/database"
	"github.com/snarg/scribe-engine/internal/ingest"
	"github.com/snarg/scribe-engine/internal/notify"
	"github.com/snarg/scribe-engine/internal/pipeline"
	"github.com/snarg/scribe-engine/internal/storage"
	"github.com/snarg/scribe-engine/internal/transcribe"
)

var version = "dev"

func main() {
	startTime := time.Now()

	var overrides config.Overrides
	flag.StringVar(&overrides.EnvFile, "env-file", "", "path to .env file")
	flag.StringVar(&overrides.HTTPAddr, "addr", "", "http listen address")
	flag.StringVar(&overrides.LogLevel, "log-level", "", "log level (trace, debug, info, warn, error)")
	flag.StringVar(&overrides.Backend, "backend", "", "transcription backend (cli, fast, mlx)")
	flag.StringVar(&overrides.UploadDir, "upload-dir", "", "directory for uploaded media")
	flag.StringVar(&overrides.OutputDir, "output-dir", "", "directory for transcript artifacts")
	flag.Parse()

	cfg, err := config.Load(overrides)
	if err != nil {
		early := zerolog.New(os.Stderr).With().Timestamp().Logger()
		early.Fatal().Err(err).Msg("failed to load config")
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	log := zerolog.New(os.Stdout).With().Timestamp().Logger().Level(level)
	log.Info().Str("version", version).Str("backend", cfg.Backend).Msg("scribe-engine starting")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Backend
	var backend transcribe.Backend
	switch cfg.Backend {
	case "cli":
		backend = transcribe.NewCLIBackend(cfg.WhisperBin, cfg.WhisperPathPrefix)
	case "fast":
		backend = transcribe.NewFastBackend(cfg.PythonBin, cfg.ModelDownloadRoot)
	case "mlx":
		backend = transcribe.NewMLXBackend(cfg.PythonBin, cfg.MLXBatchSize)
	}

	cache := transcribe.NewModelCache(backend, cfg.ModelCacheMax, log)

	writer, err := artifact.NewWriter(cfg.OutputDir)
	if err != nil {
		log.Fatal().Err(err).Str("dir", cfg.OutputDir).Msg("failed to prepare output directory")
	}

	// Optional record store
	var db *database.DB
	if cfg.DatabaseURL != "" {
		dbLog := log.With().Str("component", "database").Logger()
		db, err = database.Connect(ctx, cfg.DatabaseURL, dbLog)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to database")
		}
		defer db.Close()
	} else {
		log.Info().Msg("DATABASE_URL not set, record API disabled")
	}

	// Optional artifact mirror
	var mirror *storage.S3Mirror
	if cfg.S3.Enabled() {
		s3Log := log.With().Str("component", "s3").Logger()
		mirror, err = storage.NewS3Mirror(cfg.S3, s3Log)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to set up s3 mirror")
		}
	}

	// Optional completion notifier
	var notifier *notify.Notifier
	if cfg.MQTTBrokerURL != "" {
		notifier, err = notify.Connect(notify.Options{
			BrokerURL: cfg.MQTTBrokerURL,
			ClientID:  cfg.MQTTClientID,
			Topic:     cfg.MQTTTopic,
			Username:  cfg.MQTTUsername,
			Password:  cfg.MQTTPassword,
			Log:       log.With().Str("component", "mqtt").Logger(),
		})
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to mqtt broker")
		}
		defer notifier.Close()
	}

	opts := pipeline.Options{
		Backend:       backend,
		Cache:         cache,
		Writer:        writer,
		Log:           log,
		EverySegments: cfg.ProgressEverySegments,
		StepPercent:   cfg.ProgressStepPercent,
	}
	if db != nil {
		opts.SaveRecord = func(ctx context.Context, rec pipeline.Record) error {
			_, err := db.InsertTranscription(ctx, &database.TranscriptionRecord{
				Token:         rec.Token,
				Title:         rec.Title,
				Model:         rec.Model,
				Backend:       rec.Backend,
				Language:      rec.Language,
				Text:          rec.Text,
				AudioDuration: rec.AudioDuration,
				ProcessingSec: rec.ProcessingSec,
				SegmentCount:  rec.SegmentCount,
				TxtFile:       rec.TxtFile,
				SrtFile:       rec.SrtFile,
			})
			return err
		}
	}
	if mirror != nil {
		opts.MirrorArtifacts = mirror.UploadArtifacts
	}
	if notifier != nil {
		opts.PublishComplete = func(event pipeline.ProgressEvent) {
			notifier.Publish(event)
		}
	}
	orch := pipeline.NewOrchestrator(opts)

	// Optional hot folder
	if cfg.WatchDir != "" {
		watcher := ingest.NewWatcher(orch, cfg.WatchDir, cfg.DefaultModel, cfg.DefaultLanguage, log.With().Str("component", "watcher").Logger())
		if err := watcher.Start(); err != nil {
			log.Fatal().Err(err).Str("dir", cfg.WatchDir).Msg("failed to start watcher")
		}
		defer watcher.Stop()
	}

	deps := api.Deps{
		Orchestrator: orch,
		Backend:      backend,
		Cache:        cache,
		DB:           db,
		Notifier:     notifier,
		Version:      version,
		StartTime:    startTime,
	}
	if mirror != nil {
		deps.Mirror = mirror
	}
	srv := api.NewServer(cfg, deps, log.With().Str("component", "http").Logger())

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			log.Error().Err(err).Msg("http server error")
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http server shutdown error")
	}

	log.Info().Msg("scribe-engine stopped")
}
