package telemetry

import (
	"fmt"
	"log/slog"
	"os"

	slogmulti "github.com/samber/slog-multi"
)

// InitSlog installs the default logger. Text goes to stderr, and if
// logFile is set the same records are appended to it as JSON.
// The returned function closes the log file.
func InitSlog(debug bool, logFile string) (func() error, error) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}
	stderrHandler := slog.NewTextHandler(os.Stderr, opts)

	if logFile == "" {
		slog.SetDefault(slog.New(stderrHandler))
		return func() error { return nil }, nil
	}

	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		slog.SetDefault(slog.New(stderrHandler))
		return func() error { return nil }, fmt.Errorf("open log file %s: %w", logFile, err)
	}

	slog.SetDefault(slog.New(slogmulti.Fanout(
		stderrHandler,
		slog.NewJSONHandler(file, opts),
	)))
	return file.Close, nil
}
