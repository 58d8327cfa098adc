package observability

import (
	"log/slog"
	"os"
)

// NewLogger returns a JSON logger in production and a text logger at debug
// level everywhere else. Every record carries the service name.
func NewLogger(env string) *slog.Logger {
	var h slog.Handler
	if env == "prod" || env == "production" {
		h = slog.NewJSONHandler(os.Stdout, nil)
	} else {
		h = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug})
	}
	return slog.New(h).With("service", "circdesk-backend", "env", env)
}
