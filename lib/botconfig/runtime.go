package botconfig

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	devenv "tfaprotbot/dev/env"
	"tfaprotbot/lib/restyutil"
	"tfaprotbot/lib/telemetry"
	"time"

	"github.com/google/uuid"
)

// Runtime is everything a bot process sets up before it starts talking to
// the wiki.
type Runtime struct {
	Config Config
	// attached to every log record of this process
	RunId string
	// nil unless debug logging is on and a dump directory is configured
	Dump restyutil.InstrumentOutput

	telemetry telemetry.Telemetry
	closeLog  func() error
	closeOnce sync.Once
	closeErr  error
}

// Start loads the config, installs logging and telemetry and prepares the
// http dump directory.
func Start(ctx context.Context, serviceName, configPath string, debug bool) (*Runtime, error) {
	config, err := Load(configPath)
	if err != nil {
		return nil, err
	}

	logFile := ""
	if config.LogFile != "" {
		logFile, err = devenv.ResolvePath(config.LogFile)
		if err != nil {
			return nil, err
		}
	}
	closeLog, err := telemetry.InitSlog(debug, logFile)
	if err != nil {
		return nil, err
	}

	runId := uuid.New().String()[:8]
	slog.SetDefault(slog.Default().With("run_id", runId))

	tel, err := telemetry.SetupFromEnv(ctx, serviceName)
	if err != nil {
		closeLog()
		return nil, err
	}
	telemetry.InstrumentPerfStats(ctx, 15*time.Second)

	r := &Runtime{
		Config:    config,
		RunId:     runId,
		telemetry: tel,
		closeLog:  closeLog,
	}
	if debug && config.HttpDump != "" {
		dump, err := restyutil.NewFilesystemOutput(config.HttpDump)
		if err != nil {
			slog.Warn("http dumps disabled", "dir", config.HttpDump, "err", err)
		} else {
			r.Dump = dump
		}
	}
	return r, nil
}

// Close flushes telemetry and closes the log file. Calls after the first
// return the first result.
func (r *Runtime) Close() error {
	r.closeOnce.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		r.closeErr = errors.Join(
			r.telemetry.Shutdown(ctx),
			r.closeLog(),
		)
	})
	return r.closeErr
}
