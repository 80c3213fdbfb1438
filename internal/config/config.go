package config

import (
	"os"
	"path/filepath"
	"sync"
	"time"
)

type Config struct {
	BackendBaseURL string
	LogLevel       string
	LocalHost      string
	LocalPort      int
	DBPath         string
	HistoryLimit   int
	AutoSave       bool
	TraceEvents    bool
}

var (
	cacheTTL   = 10 * time.Second
	nowFunc    = time.Now
	cacheMu    sync.RWMutex
	cachedCfg  Config
	cachedAt   time.Time
	cacheValid bool
)

func LoadConfig() Config {
	cfg := loadFromEnv()
	cacheMu.Lock()
	cachedCfg = cfg
	cachedAt = nowFunc()
	cacheValid = true
	cacheMu.Unlock()
	return cfg
}

func GetConfig() *Config {
	now := nowFunc()
	cacheMu.RLock()
	valid := cacheValid && now.Sub(cachedAt) < cacheTTL
	if valid {
		out := cachedCfg
		cacheMu.RUnlock()
		return &out
	}
	cacheMu.RUnlock()

	cfg := loadFromEnv()
	cacheMu.Lock()
	cachedCfg = cfg
	cachedAt = now
	cacheValid = true
	cacheMu.Unlock()

	out := cfg
	return &out
}

func loadFromEnv() Config {
	base := os.Getenv("CREWDESK_BACKEND_BASE_URL")
	if base == "" {
		base = "http://127.0.0.1:8787"
	}

	level := os.Getenv("CREWDESK_LOG_LEVEL")
	if level == "" {
		level = "info"
	}

	localHost := os.Getenv("CREWDESK_LOCAL_HOST")
	if localHost == "" {
		localHost = "127.0.0.1"
	}
	localPort := 4710
	if p := os.Getenv("CREWDESK_LOCAL_PORT"); p != "" {
		if n := atoiOrDefault(p, 4710); n > 0 {
			localPort = n
		}
	}

	dbPath := os.Getenv("CREWDESK_DB_PATH")
	if dbPath == "" {
		dbPath = defaultDBPath()
	}

	historyLimit := atoiOrDefault(os.Getenv("CREWDESK_HISTORY_LIMIT"), 50)
	if historyLimit < 1 {
		historyLimit = 50
	}

	autoSave := os.Getenv("CREWDESK_AUTOSAVE") != "0"
	traceEvents := os.Getenv("CREWDESK_TRACE_EVENTS") == "1"

	return Config{
		BackendBaseURL: base,
		LogLevel:       level,
		LocalHost:      localHost,
		LocalPort:      localPort,
		DBPath:         dbPath,
		HistoryLimit:   historyLimit,
		AutoSave:       autoSave,
		TraceEvents:    traceEvents,
	}
}

func defaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return filepath.Clean("crewdesk-history.db")
	}
	return filepath.Join(home, ".config", "crewdesk", "history.db")
}

func atoiOrDefault(v string, fallback int) int {
	n := 0
	for i := 0; i < len(v); i++ {
		if v[i] < '0' || v[i] > '9' {
			return fallback
		}
		n = n*10 + int(v[i]-'0')
	}
	if n == 0 {
		return fallback
	}
	return n
}
