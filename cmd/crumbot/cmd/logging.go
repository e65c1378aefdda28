package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/GriffinCanCode/crumbot/internal/config"
)

// DefaultLogDir holds per-run log files when no explicit file is configured.
const DefaultLogDir = "logs"

// setupLogging installs the default slog logger. Output goes to stdout and,
// unless file is "off", to a log file as well.
func setupLogging(cfg config.LoggingConfig) (func(), error) {
	var out io.Writer = os.Stdout
	closeFn := func() {}

	path := logPath(cfg.File, time.Now())
	if path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return closeFn, fmt.Errorf("create log dir: %w", err)
		}
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return closeFn, fmt.Errorf("open log file: %w", err)
		}
		out = io.MultiWriter(os.Stdout, f)
		closeFn = func() { _ = f.Close() }
	}

	logger := slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{Level: parseLevel(cfg.Level)}))
	slog.SetDefault(logger)
	if path != "" {
		slog.Info("logging to file", "path", path)
	}
	return closeFn, nil
}

func logPath(file string, now time.Time) string {
	switch strings.ToLower(file) {
	case "off", "none", "-":
		return ""
	case "":
		return filepath.Join(DefaultLogDir, "crumbot-"+now.Format("20060102-150405")+".log")
	default:
		return file
	}
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
