package global

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
)

const configTOMLFileName = "config.toml"

// TaskDefaults seeds per-task knobs the UI can still change later.
type TaskDefaults struct {
	DelaySeconds int  `json:"delay_seconds" toml:"delay_seconds"`
	TakeControl  bool `json:"take_control" toml:"take_control"`
}

type HistoryConfig struct {
	AutoSave bool `json:"auto_save" toml:"auto_save"`
	Limit    int  `json:"limit" toml:"limit"`
}

type GlobalConfig struct {
	LocalPort int           `json:"local_port" toml:"local_port"`
	LogLevel  string        `json:"log_level,omitempty" toml:"log_level,omitempty"`
	Defaults  TaskDefaults  `json:"defaults" toml:"defaults"`
	History   HistoryConfig `json:"history" toml:"history"`
}

type ConfigStore struct {
	dir string
}

func NewConfigStore(dir string) *ConfigStore {
	return &ConfigStore{dir: dir}
}

func (s *ConfigStore) LoadOrInit() (GlobalConfig, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return GlobalConfig{}, err
	}

	path := filepath.Join(s.dir, configTOMLFileName)
	if b, err := os.ReadFile(path); err == nil {
		var cfg GlobalConfig
		if err := toml.Unmarshal(b, &cfg); err != nil {
			return GlobalConfig{}, err
		}
		return normalizeConfig(cfg), nil
	} else if !os.IsNotExist(err) {
		return GlobalConfig{}, err
	}

	cfg := normalizeConfig(GlobalConfig{})
	if err := writeTOMLAtomically(path, cfg); err != nil {
		return GlobalConfig{}, err
	}
	return cfg, nil
}

func (s *ConfigStore) Save(cfg GlobalConfig) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return err
	}
	return writeTOMLAtomically(filepath.Join(s.dir, configTOMLFileName), normalizeConfig(cfg))
}

func normalizeConfig(cfg GlobalConfig) GlobalConfig {
	if cfg.LocalPort <= 0 {
		cfg.LocalPort = 4710
	}
	switch strings.ToLower(strings.TrimSpace(cfg.LogLevel)) {
	case "debug", "info", "warn", "error":
		cfg.LogLevel = strings.ToLower(strings.TrimSpace(cfg.LogLevel))
	default:
		cfg.LogLevel = ""
	}
	if cfg.Defaults.DelaySeconds < 0 {
		cfg.Defaults.DelaySeconds = 0
	}
	if cfg.History.Limit <= 0 {
		cfg.History.Limit = 50
		cfg.History.AutoSave = true
	}
	return cfg
}

func writeTOMLAtomically(path string, v any) error {
	b, err := toml.Marshal(v)
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func writeJSONAtomically(path string, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
