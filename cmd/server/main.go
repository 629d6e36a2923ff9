package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"kyogisho/internal/extract"
	httpapi "kyogisho/internal/http"
	"kyogisho/internal/platform/config"
	"kyogisho/internal/platform/httpserver"
	"kyogisho/internal/platform/logger"
	"kyogisho/internal/platform/metrics"
	"kyogisho/internal/session"
	"kyogisho/internal/session/handler"
)

// main wires dependencies and owns the server lifecycle. Business logic lives
// in the internal packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New(cfg.LogLevel)

	gateway, err := extract.NewOpenAIGateway(extract.Config{
		APIKey:  cfg.OpenAIAPIKey,
		BaseURL: cfg.OpenAIBaseURL,
		Model:   cfg.Model,
		Timeout: cfg.ExtractTimeout,
	})
	if err != nil {
		log.Error("extraction gateway init failed", "error", err)
		os.Exit(1)
	}

	m := metrics.New()
	store := session.NewStore(cfg.SessionTTL, cfg.SessionTTL/2)
	svc := session.NewService(store, gateway, log, m)
	h := handler.New(svc, log, cfg.MaxUploadBytes)

	srv := httpserver.New(cfg.Addr, httpapi.NewRouter(h, log, m))

	go func() {
		log.Info("server listening", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	log.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}
}
