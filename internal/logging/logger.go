package logging

import (
	"log/slog"
	"os"

	"github.com/roe7878/studybot-roe/internal/config"
)

// Init builds the process logger from config and installs it as the
// slog default: text for local runs, JSON everywhere else.
func Init(conf config.LogConfig) *slog.Logger {
	opts := &slog.HandlerOptions{Level: conf.Level}

	var handler slog.Handler
	if conf.AppEnv == "local" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}
