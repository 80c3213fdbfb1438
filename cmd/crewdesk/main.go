package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"crewdesk/cli/internal/application"
	"crewdesk/cli/internal/command"
	"crewdesk/cli/internal/config"
	"crewdesk/cli/internal/db"
	"crewdesk/cli/internal/global"
	"crewdesk/cli/internal/logging"
)

var version = "dev"

var startApplication = application.StartApplication

func main() {
	app := command.BuildApp(command.Deps{
		RunServe:     runServe,
		RunMigrateUp: runMigrateUp,
	})
	if err := app.Run(os.Args); err != nil {
		logging.NewLogger(logging.Options{Component: "main"}).Error("exited with error", "error", err)
		os.Exit(1)
	}
}

func runServe(ctx context.Context, cfg config.Config) error {
	logger := logging.NewLogger(logging.Options{Level: cfg.LogLevel, Component: "crewdesk"})

	configDir, err := global.DefaultConfigDir()
	if err != nil {
		return fmt.Errorf("resolve config dir: %w", err)
	}
	stored, err := global.NewConfigStore(configDir).LoadOrInit()
	if err != nil {
		return fmt.Errorf("load config store: %w", err)
	}
	port := cfg.LocalPort
	if os.Getenv("CREWDESK_LOCAL_PORT") == "" && stored.LocalPort > 0 {
		port = stored.LocalPort
	}
	level := cfg.LogLevel
	if stored.LogLevel != "" {
		level = stored.LogLevel
		logger = logging.NewLogger(logging.Options{Level: level, Component: "crewdesk"})
	}

	runCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := startApplication(runCtx, application.StartOptions{
		ConfigDir:    configDir,
		DBPath:       cfg.DBPath,
		LocalHost:    cfg.LocalHost,
		LocalPort:    port,
		LogLevel:     level,
		HistoryLimit: cfg.HistoryLimit,
		AutoSave:     cfg.AutoSave && stored.History.AutoSave,
		Logger:       logger,
	})
	if err != nil {
		return err
	}
	logger.Info("runtime started",
		"version", version,
		"addr", app.LocalAPIBaseURL(),
		"db", app.DBPath())
	return app.Run(runCtx)
}

func runMigrateUp(_ context.Context, cfg config.Config) error {
	logger := logging.NewLogger(logging.Options{Level: cfg.LogLevel, Component: "migrate"})
	gdb, err := db.Open(cfg.DBPath)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close(gdb) }()
	logger.Info("schema synced", "db", cfg.DBPath)
	return nil
}
