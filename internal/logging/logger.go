package logging

import (
	"io"
	"log/slog"
	"time"

	"github.com/lmittmann/tint"

	"thermolog-server/internal/config"
)

// New returns the process logger. Development builds get tint's colored
// handler; release builds log JSON with version and environment attached.
func New(w io.Writer, cfg config.Config, version string, appName string) *slog.Logger {
	if version == "dev" {
		h := tint.NewHandler(w, &tint.Options{
			Level:      cfg.LogLevel,
			AddSource:  true,
			TimeFormat: time.Kitchen,
			NoColor:    cfg.AppEnv == "prod",
		})
		return slog.New(h).With("app", appName)
	}

	h := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	})
	return slog.New(h).With(
		"app", appName,
		"version", version,
		"env", cfg.AppEnv,
		"store", cfg.StoreBackend,
	)
}
