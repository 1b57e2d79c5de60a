package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/rafaelguerrae/TeamSync/internal/app"
	"github.com/rafaelguerrae/TeamSync/internal/config"
	"github.com/rafaelguerrae/TeamSync/internal/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	log := logger.New(cfg.LogFormat, logger.ParseLevel(cfg.LogLevel), os.Stdout)
	slog.SetDefault(log)

	ctx := context.Background()
	application, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Error("failed to initialize application", "error", err)
		os.Exit(1)
	}

	if err := application.Run(ctx); err != nil {
		log.Error("application run failed", "error", err)
		os.Exit(1)
	}
}
