// Package lastrun records when a bot last finished a run, so that whoever
// hosts it can tell from outside whether it is still working.
package lastrun

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	devenv "tfaprotbot/dev/env"
	"time"
)

const DefaultPath = "~/public_html/lastrun.txt"

var ErrNoDirectory = errors.New("status file directory does not exist")

// Format renders t the way the status file stores it: Unix seconds with a
// fractional part.
func Format(t time.Time) string {
	seconds := float64(t.UnixNano()) / float64(time.Second)
	return strconv.FormatFloat(seconds, 'f', -1, 64)
}

// Write replaces the contents of the status file at path with the timestamp
// at. The directory is never created, a missing directory means the host is
// not set up to publish the file.
func Write(path string, at time.Time) error {
	resolved, err := devenv.ResolvePath(path)
	if err != nil {
		return err
	}

	info, err := os.Stat(filepath.Dir(resolved))
	if err != nil || !info.IsDir() {
		return fmt.Errorf("%w: %s", ErrNoDirectory, filepath.Dir(resolved))
	}

	err = os.WriteFile(resolved, []byte(Format(at)), 0644)
	if err != nil {
		return fmt.Errorf("failed to write status file: %w", err)
	}
	return nil
}

// Record is Write for callers that should keep going when the status file
// cannot be written. Failures are logged.
func Record(path string, at time.Time) {
	if path == "" {
		return
	}
	err := Write(path, at)
	if err != nil {
		slog.Error("failed to record last run", "path", path, "err", err)
		return
	}
	slog.Debug("recorded last run", "path", path, "at", at)
}
