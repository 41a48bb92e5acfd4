package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"spotbook/internal/config"

	"github.com/rs/zerolog"
)

// New builds the process-wide zerolog logger. An unknown level, output or
// format falls back to its default instead of failing startup; only an
// unusable file sink is an error.
func New(cfg config.LoggingConfig, app config.AppConfig) (*zerolog.Logger, io.Closer, error) {
	sink, closer, err := openSink(cfg)
	if err != nil {
		return nil, nil, err
	}

	if useConsole(cfg, app) {
		sink = zerolog.ConsoleWriter{Out: sink, TimeFormat: time.RFC3339}
	}

	zerolog.TimeFieldFormat = time.RFC3339Nano

	ctx := zerolog.New(sink).
		Level(parseLevel(cfg.Level)).
		With().
		Timestamp().
		Str("service", app.Name)
	if app.Environment != "" {
		ctx = ctx.Str("env", app.Environment)
	}
	if app.Version != "" {
		ctx = ctx.Str("version", app.Version)
	}

	logger := ctx.Logger()
	return &logger, closer, nil
}

// WithComponent tags a child logger for one part of the process, so the
// booking service, the export worker and the HTTP server are separable in
// shared output.
func WithComponent(logger *zerolog.Logger, component string) zerolog.Logger {
	return logger.With().Str("component", component).Logger()
}

func parseLevel(s string) zerolog.Level {
	parsed, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(s)))
	if err != nil || parsed == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return parsed
}

func openSink(cfg config.LoggingConfig) (io.Writer, io.Closer, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Output)) {
	case "stderr":
		return os.Stderr, nil, nil
	case "file":
		if cfg.FilePath == "" {
			return nil, nil, fmt.Errorf("logging.output=file requires logging.file_path")
		}
		file, err := os.OpenFile(cfg.FilePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		return file, file, nil
	default:
		return os.Stdout, nil, nil
	}
}

// useConsole renders human-readable output when asked for explicitly or when
// a development build leaves the format unset.
func useConsole(cfg config.LoggingConfig, app config.AppConfig) bool {
	switch strings.ToLower(strings.TrimSpace(cfg.Format)) {
	case "console":
		return true
	case "":
		return strings.EqualFold(app.Environment, "development")
	default:
		return false
	}
}
