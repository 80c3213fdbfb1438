package application

import (
	"context"
	"log/slog"
	"time"
)

// StartOptions defines unified startup options for the local runtime.
type StartOptions struct {
	ConfigDir    string
	DBPath       string
	LocalHost    string
	LocalPort    int
	LogLevel     string
	HistoryLimit int
	AutoSave     bool
	AutoSaveTick time.Duration
	Logger       *slog.Logger
	Hooks        Hooks
}

// Hooks let tests or embedders replace the runtime without binding a
// socket or opening the database.
type Hooks struct {
	Run          func(context.Context) error
	Shutdown     func(context.Context) error
	LocalAPIURL  string
	BootstrapTag string
}
