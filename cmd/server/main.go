// Command server runs the Hear-U conversation backend.
//
// Startup order:
//  1. Load .env (best effort) and typed configuration
//  2. Configure zerolog (level, optional pretty console output)
//  3. Open SQLite, migrate the schema, enable GORM tracing
//  4. Build the model clients (Groq replies, Gemini criticality screen)
//  5. Configure OpenTelemetry (optional)
//  6. Mount routes and serve with graceful shutdown
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/hearu/hearu-backend/internal/chat"
	"github.com/hearu/hearu-backend/internal/config"
	httpapi "github.com/hearu/hearu-backend/internal/http"
	"github.com/hearu/hearu-backend/internal/llm"
	"github.com/hearu/hearu-backend/internal/observability"
	"github.com/hearu/hearu-backend/internal/repo"
	"github.com/hearu/hearu-backend/internal/safety"
	"github.com/hearu/hearu-backend/internal/sysutil"
)

// version is stamped at build time via -ldflags "-X main.version=...".
var version = "dev"

func main() {
	// .env is optional; real deployments use the environment directly.
	_ = godotenv.Load()

	cfg := config.MustLoad()

	sysutil.SetLogLevel(cfg.LogLevel)
	if cfg.LogPretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
	gin.SetMode(cfg.GinMode)

	log.Info().
		Str("version", version).
		Str("port", cfg.Port).
		Str("db_path", cfg.DBPath).
		Msg("starting hearu-backend")

	// Storage
	db, err := repo.OpenSQLite(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Msg("open database")
	}
	if err := repo.AutoMigrate(db); err != nil {
		log.Fatal().Err(err).Msg("migrate database")
	}
	if err := repo.EnableTracing(db); err != nil {
		log.Warn().Err(err).Msg("gorm tracing not enabled")
	}

	// Upstream models
	generator := llm.NewGroqClient(cfg.LLM.GroqAPIKey, cfg.LLM.GroqBaseURL, cfg.LLM.GroqModel)
	assessor, err := llm.NewGeminiAssessor(context.Background(), cfg.LLM.GeminiAPIKey, cfg.LLM.GeminiModel)
	if err != nil {
		log.Fatal().Err(err).Msg("configure criticality assessor")
	}

	engine := &chat.Engine{
		Store:   &repo.TranscriptStore{DB: db},
		Gen:     generator,
		Timeout: cfg.LLM.Timeout,
	}
	gate := &safety.Gate{
		Assessor:  assessor,
		Flags:     &repo.FlagStore{DB: db},
		Threshold: cfg.FlagThreshold,
		Timeout:   cfg.LLM.Timeout,
	}

	// Observability
	shutdownOTel, err := observability.SetupOTel(context.Background(), cfg.OTEL, version)
	if err != nil {
		log.Fatal().Err(err).Msg("configure opentelemetry")
	}

	// HTTP
	r := gin.New()
	httpapi.RegisterRoutes(r, db, engine, gate, cfg)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Msg("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server")
		}
	}()

	// Graceful shutdown on SIGINT/SIGTERM.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("http shutdown")
	}
	if err := shutdownOTel(ctx); err != nil {
		log.Error().Err(err).Msg("otel shutdown")
	}
	log.Info().Msg("stopped")
}
