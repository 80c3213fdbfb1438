package main

import (
	"context"
	"errors"
	"testing"

	"crewdesk/cli/internal/application"
	"crewdesk/cli/internal/config"
)

func TestRunServe_PassesConfigThrough(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("CREWDESK_CONFIG_DIR", dir)
	t.Setenv("CREWDESK_LOCAL_PORT", "4999")

	var got application.StartOptions
	sentinel := errors.New("stop here")
	orig := startApplication
	startApplication = func(_ context.Context, opts application.StartOptions) (*application.Application, error) {
		got = opts
		return nil, sentinel
	}
	t.Cleanup(func() { startApplication = orig })

	err := runServe(context.Background(), config.Config{
		LocalHost:    "127.0.0.1",
		LocalPort:    4999,
		LogLevel:     "debug",
		DBPath:       dir + "/history.db",
		HistoryLimit: 25,
		AutoSave:     true,
	})
	if !errors.Is(err, sentinel) {
		t.Fatalf("expected sentinel error, got %v", err)
	}
	if got.ConfigDir != dir {
		t.Fatalf("config dir not threaded: %s", got.ConfigDir)
	}
	if got.LocalPort != 4999 {
		t.Fatalf("env port should win over stored config: %d", got.LocalPort)
	}
	if !got.AutoSave {
		t.Fatal("autosave should stay enabled by default stored config")
	}
}

func TestRunMigrateUp_CreatesSchema(t *testing.T) {
	dir := t.TempDir()
	if err := runMigrateUp(context.Background(), config.Config{DBPath: dir + "/history.db"}); err != nil {
		t.Fatalf("migrate up failed: %v", err)
	}
}
