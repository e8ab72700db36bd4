package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/crteal/shh/internal/chat"
	"github.com/crteal/shh/internal/config"
	"github.com/crteal/shh/internal/httpserver"
	"github.com/crteal/shh/internal/transcribe"

	llmclient "github.com/crteal/shh/internal/llm"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("config", zap.Error(err))
	}

	ollama, err := llmclient.NewOllamaClient(cfg.OllamaHost)
	if err != nil {
		logger.Fatal("ollama client", zap.Error(err))
	}
	engine := transcribe.NewEngine(cfg.TranscribeURL, cfg.TranscribeAPIKey, cfg.TranscriptionModel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	history := chat.NewHistory()
	queue := chat.NewQueue()
	orch := chat.NewOrchestrator(ctx, logger, history, queue, ollama, engine, cfg.LLMModel)

	srv := httpserver.New(cfg, logger, orch, queue)

	server := &http.Server{
		Addr:              cfg.HTTPAddress,
		Handler:           srv.Echo,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	// Start server in background
	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("server listening", zap.String("address", cfg.HTTPAddress))
		serverErrors <- server.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if err != nil && err != http.ErrServerClosed {
			logger.Fatal("server error", zap.Error(err))
		}
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("graceful shutdown failed", zap.Error(err))
		_ = server.Close()
	}
	// in-flight turns are detached from requests; give them the same grace
	done := make(chan struct{})
	go func() { orch.Wait(); close(done) }()
	select {
	case <-done:
	case <-shutdownCtx.Done():
		logger.Warn("abandoning in-flight turns")
	}
}
