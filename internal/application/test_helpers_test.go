package application

import "log/slog"

func registryTestLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
