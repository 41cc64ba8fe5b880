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

	httpadapter "github.com/compass-journal/compass-api/internal/adapters/http"
	"github.com/compass-journal/compass-api/internal/adapters/llm"
	"github.com/compass-journal/compass-api/internal/adapters/speech"
	firestorestore "github.com/compass-journal/compass-api/internal/adapters/storage/firestore"
	memstore "github.com/compass-journal/compass-api/internal/adapters/storage/memory"
	"github.com/compass-journal/compass-api/internal/adapters/telemetry"
	"github.com/compass-journal/compass-api/internal/app/laddering"
	"github.com/compass-journal/compass-api/internal/app/reflection"
	"github.com/compass-journal/compass-api/internal/app/sessions"
	"github.com/compass-journal/compass-api/internal/app/synthesis"
	"github.com/compass-journal/compass-api/internal/app/wizard"
	"github.com/compass-journal/compass-api/internal/config"
	"github.com/compass-journal/compass-api/internal/domain"
	"github.com/compass-journal/compass-api/internal/observability"
)

func main() {
	configPath := flag.String("config", "compass.yml", "path to the configuration file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		observability.Logger().Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	log := observability.Logger()

	// LLM: mock for dev, Vertex Gemini otherwise.
	var llmClient domain.DialogueClient
	if cfg.UseMockLLM {
		log.Info("using mock LLM client")
		llmClient = llm.NewMockLLM()
	} else {
		log.Info("using Vertex LLM client", "project", cfg.GCPProject, "model", cfg.ModelName)
		llmClient, err = llm.NewVertexClient(ctx, cfg.GCPProject, cfg.GCPLocation, cfg.ModelName)
		if err != nil {
			return fmt.Errorf("initializing Vertex LLM client: %w", err)
		}
	}

	// Storage: Firestore or memory. One store implements both the session
	// store and the telemetry writer.
	var (
		sessionStore    domain.SessionStore
		telemetryWriter telemetry.Writer
	)
	switch cfg.StorageBackend {
	case "firestore":
		log.Info("using Firestore storage", "project", cfg.GCPProject)
		fsStore, err := firestorestore.NewStore(ctx, cfg.GCPProject)
		if err != nil {
			return fmt.Errorf("initializing Firestore store: %w", err)
		}
		defer fsStore.Close()
		sessionStore = fsStore
		telemetryWriter = fsStore
	default:
		log.Info("using in-memory storage")
		sessionStore = memstore.NewSessionStore()
		telemetryWriter = memstore.NewTelemetryStore()
	}

	sink, err := telemetry.NewSink(telemetryWriter, cfg.TelemetryIDFile)
	if err != nil {
		return fmt.Errorf("initializing telemetry sink: %w", err)
	}
	log.Info("telemetry client id ready", "client_id", sink.ClientID())

	sessionSvc := sessions.NewService(sessionStore, sink)
	go func() {
		for err := range sessionSvc.Notices() {
			log.Warn("background save notice", "error", err)
		}
	}()

	wizards := wizard.NewRunner(sessionSvc, wizard.NewSampler(cfg.Insight.DisplayProbability))
	ladderingSvc := laddering.NewService(llmClient, sessionSvc, laddering.Prompts{
		Probing: cfg.Laddering.ProbingPrompt,
		Closing: cfg.Laddering.ClosingPrompt,
	}, cfg.Laddering.MaxTurns)
	reflectionSvc := reflection.NewService(sessionSvc)
	synthesisSvc := synthesis.NewService(llmClient, sessionSvc)

	// Speech: the Google engine degrades to the silent local clip when the
	// API is unreachable, so the capture/playback interlock keeps working.
	var speechEngine speech.Engine = speech.NewLocalEngine()
	if cfg.SpeechEngine == "google" {
		google, err := speech.NewGoogleEngine(ctx)
		if err != nil {
			return fmt.Errorf("initializing text-to-speech: %w", err)
		}
		defer google.Close()
		speechEngine = speech.NewFallbackEngine(google, speech.NewLocalEngine())
	}

	handler := httpadapter.NewServer(sessionSvc, wizards, ladderingSvc, reflectionSvc, synthesisSvc, speechEngine)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      90 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("compass API listening", "addr", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-ctx.Done():
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
	}
	return nil
}
