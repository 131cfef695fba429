package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lexiqai/readaloud/internal/audio"
	"github.com/lexiqai/readaloud/internal/capture"
	"github.com/lexiqai/readaloud/internal/config"
	"github.com/lexiqai/readaloud/internal/dictation"
	"github.com/lexiqai/readaloud/internal/observability"
	"github.com/lexiqai/readaloud/internal/relay"
	"github.com/lexiqai/readaloud/internal/storage"
	"github.com/lexiqai/readaloud/internal/stt"
	"github.com/lexiqai/readaloud/internal/tts"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		// Use fmt for fatal errors before logger is initialized
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	observability.InitLogger(cfg.LogLevel, cfg.LogPretty)
	logger := observability.GetLogger()

	logger.Info().
		Str("port", cfg.Port).
		Str("relay_mode", cfg.RelayMode).
		Str("audio_store", cfg.AudioStore).
		Str("tts_host", cfg.TTSHost).
		Bool("dictation_enabled", cfg.DictationEnabled()).
		Bool("metrics_enabled", cfg.MetricsEnabled).
		Msg("readaloud relay starting")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	provider := tts.NewGoogleClient(cfg)

	store, err := newStore(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize audio store")
	}

	ttsRelay, err := relay.New(provider, store, cfg.RelayMode)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize relay")
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.RequestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
		MaxAge:         300,
	}))

	r.Get("/health", observability.HealthCheckHandler())

	checks := []observability.DependencyCheck{
		{Name: "tts_provider", Check: provider.Ping, Breaker: provider.BreakerStats},
	}
	if store != nil {
		checks = append(checks, observability.DependencyCheck{Name: "audio_store", Check: store.Ping})
	}

	var recognizer capture.Recognizer
	if cfg.DictationEnabled() {
		deepgram := stt.NewDeepgramRecognizer(cfg)
		recognizer = deepgram
		checks = append(checks, observability.DependencyCheck{Name: "deepgram", Breaker: deepgram.BreakerStats})
	}
	r.Get("/ready", observability.ReadinessHandler(checks...))

	if cfg.MetricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
		logger.Info().Msg("Prometheus metrics enabled at /metrics")
	}

	vadConfig := &audio.VADConfig{
		EnergyThreshold: cfg.VADEnergyThreshold,
		SilenceFrames:   cfg.VADSilenceFrames,
		FrameSize:       audio.FrameSamples(cfg.DictationSampleRate),
	}
	r.Handle("/ws/dictate", dictation.NewHandler(recognizer, vadConfig))

	routeOpts := relay.RouteOptions{
		AudioURLPrefix: cfg.AudioURLPrefix,
		ClientBuildDir: cfg.ClientBuildDir,
	}
	if fs, ok := store.(*storage.FileStore); ok {
		routeOpts.AudioDir = fs.Dir()
	}
	relay.RegisterRoutes(r, ttsRelay, routeOpts)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: time.Duration(cfg.TTSTimeout)*time.Second + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info().
			Str("port", cfg.Port).
			Str("endpoint", fmt.Sprintf("http://localhost:%s/api/tts", cfg.Port)).
			Msg("Server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	logger.Info().Msg("Server exited gracefully")
}

// newStore returns the configured audio store, or nil in direct mode
func newStore(ctx context.Context, cfg *config.Config) (storage.Store, error) {
	if cfg.RelayMode == config.RelayModeDirect {
		return nil, nil
	}

	switch cfg.AudioStore {
	case config.StoreS3:
		return storage.NewS3Store(ctx, cfg)
	default:
		return storage.NewFileStore(cfg.AudioDir, cfg.AudioURLPrefix)
	}
}
