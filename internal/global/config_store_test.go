package global

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestConfigStore_InitWritesDefaults(t *testing.T) {
	dir := t.TempDir()
	store := NewConfigStore(dir)

	cfg, err := store.LoadOrInit()
	if err != nil {
		t.Fatalf("LoadOrInit failed: %v", err)
	}
	if cfg.LocalPort != 4710 {
		t.Fatalf("unexpected default port: %d", cfg.LocalPort)
	}
	if !cfg.History.AutoSave || cfg.History.Limit != 50 {
		t.Fatalf("unexpected history defaults: %+v", cfg.History)
	}

	b, err := os.ReadFile(filepath.Join(dir, configTOMLFileName))
	if err != nil {
		t.Fatalf("config file not written: %v", err)
	}
	if !strings.Contains(string(b), "local_port") {
		t.Fatalf("config file missing local_port: %s", b)
	}
}

func TestConfigStore_RoundTripAndNormalize(t *testing.T) {
	dir := t.TempDir()
	store := NewConfigStore(dir)

	in := GlobalConfig{
		LocalPort: 9999,
		LogLevel:  "DEBUG",
		Defaults:  TaskDefaults{DelaySeconds: -5, TakeControl: true},
		History:   HistoryConfig{AutoSave: false, Limit: 10},
	}
	if err := store.Save(in); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	out, err := store.LoadOrInit()
	if err != nil {
		t.Fatalf("LoadOrInit failed: %v", err)
	}
	if out.LocalPort != 9999 {
		t.Fatalf("port not persisted: %d", out.LocalPort)
	}
	if out.LogLevel != "debug" {
		t.Fatalf("log level not normalized: %q", out.LogLevel)
	}
	if out.Defaults.DelaySeconds != 0 {
		t.Fatalf("negative delay should normalize to 0: %d", out.Defaults.DelaySeconds)
	}
	if !out.Defaults.TakeControl {
		t.Fatal("take_control lost in round trip")
	}
	if out.History.AutoSave || out.History.Limit != 10 {
		t.Fatalf("history settings lost: %+v", out.History)
	}
}

func TestConfigStore_RejectsMalformedTOML(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, configTOMLFileName), []byte("local_port = ["), 0o644); err != nil {
		t.Fatalf("write malformed config failed: %v", err)
	}
	if _, err := NewConfigStore(dir).LoadOrInit(); err == nil {
		t.Fatal("expected error for malformed TOML")
	}
}
