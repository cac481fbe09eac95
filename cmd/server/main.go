package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"patwa/internal/blob"
	"patwa/internal/config"
	"patwa/internal/handlers"
	"patwa/internal/ingestion"
	"patwa/internal/logging"
	"patwa/internal/models"
	"patwa/internal/pipeline"
	"patwa/internal/speech"
	"patwa/internal/storage"
	"patwa/internal/transcribe"
	"patwa/internal/translate"
	"patwa/internal/version"
	"patwa/internal/worker"
	"patwa/internal/youtube"
)

func main() {
	// .env is optional
	_ = godotenv.Load()

	configPath := flag.String("config", "", "YAML config file (default: patwa.yaml when present)")
	flag.Parse()

	cfg, err := config.LoadOrDefault(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: invalid config: %v\n", err)
		os.Exit(1)
	}

	log := logging.New(cfg.LogLevel, nil)
	if err := run(cfg, log); err != nil {
		log.Fatal().Err(err).Msg("server failed")
	}
}

func run(cfg *config.Config, log zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := storage.Open(cfg.Storage.DatabasePath)
	if err != nil {
		return err
	}
	defer db.Close()

	store, err := blob.New(ctx, cfg.Storage, logging.Component(log, "blob"))
	if err != nil {
		return err
	}
	var mediaDir string
	if local, ok := store.(*blob.LocalStore); ok {
		mediaDir = local.Root()
	}

	translator, closer, err := translate.New(ctx, cfg.Translation, logging.Component(log, "translate"))
	if err != nil {
		return err
	}
	defer closer.Close()

	synth, err := speech.New(cfg.Speech, cfg.Translation.OpenAIAPIKey)
	if err != nil {
		return err
	}

	transcriber, err := transcribe.New(cfg.Transcription, cfg.Translation.OpenAIAPIKey, cfg.Translation.OpenAIBaseURL,
		logging.Component(log, "transcribe"))
	if err != nil {
		return err
	}
	yt := youtube.NewClient()
	captions := transcribe.NewCaptions(yt, cfg.YouTube.CaptionLang)

	sources := storage.NewSourceRepository(db)
	artifacts := storage.NewArtifactRepository(db)
	jobs := storage.NewJobRepository(db)
	translations := storage.NewTranslationRepository(db)

	svc := pipeline.New(translator, synth, store, translations, logging.Component(log, "pipeline"))
	ingester := ingestion.NewMediaIngester(ingestion.Deps{
		Sources:     sources,
		Artifacts:   artifacts,
		Jobs:        jobs,
		Transcriber: transcriber,
		Captions:    captions,
		Translator:  svc,
		Store:       store,
		YouTube:     yt,
		DataDir:     cfg.Storage.DataDir,
		Log:         logging.Component(log, "ingestion"),
	})

	w := worker.New(jobs, worker.Options{
		Interval:      cfg.Worker.Interval,
		MaxRetries:    cfg.Worker.MaxRetries,
		RetentionDays: cfg.Worker.RetentionDays,
	}, logging.Component(log, "worker"))
	w.RegisterHandler(models.JobTypeTranslateMedia, func(ctx context.Context, job *models.ProcessingJob, progress worker.ProgressFunc) error {
		return ingester.Process(ctx, job, ingestion.ProgressCallback(progress))
	})
	w.RegisterFailureHandler(models.JobTypeTranslateMedia, ingester.MarkFailed)
	w.Start(ctx)

	httpLog := logging.Component(log, "http")
	e := handlers.NewServer(handlers.Server{
		Home:      handlers.NewHomeHandler(translations, svc.SpeechEnabled(), httpLog),
		Translate: handlers.NewTranslateHandler(svc, translations, httpLog),
		Ingest:    handlers.NewIngestHandler(ingester, sources, artifacts, translations, svc, httpLog),
		Jobs:      handlers.NewJobHandler(jobs, httpLog),
		MediaDir:  mediaDir,
		Log:       httpLog,
	})

	errCh := make(chan error, 1)
	go func() {
		log.Info().
			Str("version", version.Version).
			Str("port", cfg.Server.Port).
			Str("translator", translator.Name()).
			Str("transcriber", transcriber.Name()).
			Bool("speech", svc.SpeechEnabled()).
			Msg("starting patwa")
		if err := e.Start(":" + cfg.Server.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		w.Stop()
		return err
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown failed")
	}
	w.Stop()
	return nil
}
