package sl

import (
	"io"
	"log/slog"
)

const (
	envLocal = "local"
	envProd  = "prod"
)

// SetupLogger возвращает текстовый логгер уровня Debug для local
// и JSON-логгер уровня Info для остальных окружений.
func SetupLogger(env string, w io.Writer) *slog.Logger {
	switch env {
	case envLocal:
		return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug}))
	case envProd:
		return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slog.LevelInfo}))
	default:
		return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
}
