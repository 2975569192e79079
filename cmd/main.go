package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/genie/internal/shared"
	"github.com/urfave/cli/v3"
)

const defaultConfigPath = "config.toml"

func main() {
	logger := shared.NewLogger(nil)

	configPath := defaultConfigPath
	if p := os.Getenv("GENIE_CONFIG"); p != "" {
		configPath = p
	}

	config := shared.DefaultConfig()
	if _, err := os.Stat(configPath); err == nil {
		if loadedConfig, err := shared.LoadConfig(configPath); err == nil {
			config = loadedConfig
		} else {
			logger.Warn("failed to load config, using defaults", "path", configPath, "error", err)
		}
	}
	if err := config.ApplyEnv(); err != nil {
		logger.Fatalf("invalid environment: %v", err)
	}
	if err := shared.ApplyLogLevel(logger, config.Log.Level); err != nil {
		logger.Warn("ignoring log level", "error", err)
	}
	if err := config.Validate(); err != nil {
		logger.Fatalf("%v", err)
	}

	var db *sql.DB
	if opened, err := shared.OpenMigrated(config.Database); err == nil {
		db = opened
		defer db.Close()
	} else {
		logger.Debug("local database unavailable", "path", config.Database.Path, "error", err)
	}

	runner := NewRunner(RunnerOpts{
		Config:     config,
		ConfigPath: configPath,
		Logger:     logger,
		HTTPClient: &http.Client{Timeout: config.Backend.Timeout()},
		DB:         db,
	})

	app := &cli.Command{
		Name:     "genie",
		Usage:    "Generate meal plans and ask Genie from the terminal",
		Version:  "0.3.0",
		Commands: runner.register(),
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.Run(ctx, os.Args); err != nil {
		exit(logger, err)
	}
}

func exit(logger *log.Logger, err error) {
	switch {
	case errors.Is(err, shared.ErrNotImplemented):
		logger.Warn("not implemented")
		os.Exit(0)
	case errors.Is(err, context.Canceled):
		os.Exit(130)
	case errors.Is(err, shared.ErrGenerationFailed):
		logger.Error(err.Error())
		os.Exit(2)
	default:
		logger.Fatalf("application error: %v", err)
	}
}
