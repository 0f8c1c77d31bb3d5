// Command blueprint-web runs the blueprint analysis HTTP server.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/blueprintmaster/blueprint/internal/analysis"
	"github.com/blueprintmaster/blueprint/internal/config"
	"github.com/blueprintmaster/blueprint/internal/llm"
	"github.com/blueprintmaster/blueprint/internal/logger"
	"github.com/blueprintmaster/blueprint/internal/ocr"
	"github.com/blueprintmaster/blueprint/internal/server"
	"github.com/blueprintmaster/blueprint/internal/stats"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("no .env file loaded: %v", err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	if err := logger.Setup(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: "stderr",
	}); err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	mainLog := logger.WithComponent("main")

	store, err := openRecordStore(cfg)
	if err != nil {
		mainLog.Fatal().Err(err).Msg("failed to open record store")
	}
	defer func() { _ = store.Close() }()

	pipeline := analysis.NewService(analysis.Config{
		OCR: ocr.NewTextInClient(ocr.TextInConfig{
			AppID:      cfg.OCR.AppID,
			SecretCode: cfg.OCR.SecretCode,
			BaseURL:    cfg.OCR.BaseURL,
			Timeout:    cfg.OCR.Timeout,
		}),
		LLM: llm.NewOpenAIClient(llm.OpenAIConfig{
			APIKey:  cfg.LLM.APIKey,
			Model:   cfg.LLM.Model,
			BaseURL: cfg.LLM.BaseURL,
			Timeout: cfg.LLM.Timeout,
		}),
		Logger:      logger.WithComponent("analysis"),
		Temperature: cfg.LLM.Temperature,
	})

	srv := server.New(cfg, pipeline, store, logger.WithComponent("server"))

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			mainLog.Fatal().Err(err).Msg("server failed")
		}
	case sig := <-stop:
		mainLog.Info().Str("signal", sig.String()).Msg("shutting down")
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			mainLog.Error().Err(err).Msg("shutdown failed")
		}
	}
}

func openRecordStore(cfg *config.Config) (stats.RecordStore, error) {
	if cfg.Storage.Engine == "postgres" {
		return stats.NewPostgresStore(cfg.Storage.PostgresDSN)
	}
	if err := os.MkdirAll(cfg.Storage.DataPath, 0o755); err != nil {
		return nil, err
	}
	return stats.NewSQLiteStore(filepath.Join(cfg.Storage.DataPath, "blueprint.db"))
}
