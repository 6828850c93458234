// Command fieldlogd runs the field-log job engine: the HTTP control
// surface and the background scheduler that executes queued jobs.
package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/apresai/fieldlog/internal/api"
	"github.com/apresai/fieldlog/internal/catalog"
	"github.com/apresai/fieldlog/internal/config"
	"github.com/apresai/fieldlog/internal/engine"
	"github.com/apresai/fieldlog/internal/observability"
	"github.com/apresai/fieldlog/internal/providers"
	"github.com/apresai/fieldlog/internal/store"
	"github.com/gin-gonic/gin"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger := observability.InitLogger()
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if cfg.OTLPEndpoint != "" {
		tp, err := observability.InitTracer(ctx, cfg.ServiceName, "dev")
		if err != nil {
			logger.Warn("tracer init failed, continuing without tracing", "error", err)
		} else {
			defer func() {
				shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer shutdownCancel()
				tp.Shutdown(shutdownCtx)
			}()
		}
	}

	s, err := store.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("open store: %v", err)
	}
	defer s.Close()

	if err := s.Migrate(cfg.MigrationsPath); err != nil {
		log.Fatalf("migrate store: %v", err)
	}

	gin.SetMode(cfg.GinMode)

	control := api.NewControl(s)
	handler := api.NewHandler(control, s)
	router := api.NewRouter(handler)

	if cfg.ProvidersConfigured() {
		cat := catalog.NewHTTPClient(cfg.CatalogBaseURL)
		text := providers.NewAnthropicTextGenerator(cfg.AnthropicAPIKey)
		tts := providers.NewHTTPTTSGenerator(cfg.TTSBaseURL, cfg.TTSAPIKey)

		runner := engine.NewRunner(ctx, s, cat, text, tts, cfg, logger)
		runner.Start()
		defer runner.Stop()
	} else {
		logger.Warn("upstream providers not configured; job execution disabled, HTTP control surface still serving")
	}

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Port),
		Handler: router,
	}

	go func() {
		<-ctx.Done()
		logger.Info("shutdown signal received")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("http server shutdown error", "error", err)
		}
	}()

	logger.Info("fieldlogd starting", "port", cfg.Port)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("server error: %v", err)
	}
}
