package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	devenv "tfaprotbot/dev/env"
	"tfaprotbot/lib/botconfig"
	"tfaprotbot/lib/telemetry"
)

// writes contents to path unless something is already there
func writeTemplate(path string, contents any) error {
	_, err := os.Stat(path)
	if err == nil {
		fmt.Println("already exists, leaving it alone:", path)
		return nil
	}
	serialized, err := json.MarshalIndent(contents, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println("writing", path)
	return os.WriteFile(path, serialized, 0600)
}

func create(root string, recreate bool) error {
	state := filepath.Join(root, "dev", ".state")
	if recreate {
		err := os.RemoveAll(state)
		if err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	err := os.MkdirAll(state, 0777)
	if err != nil {
		return err
	}

	// runs against the test wiki, statuses are written into the state dir
	local := botconfig.Default()
	local.Wiki.ApiUrl = "https://test.wikipedia.org/w/api.php"
	local.Wiki.Username = "<bot username>"
	local.Wiki.Password = "<bot password>"
	local.LogFile = "<dev_state>/bot.log"
	local.Tfa.StatusFile = "<dev_state>/lastrun.txt"
	local.Potd.StatusFile = "<dev_state>/potd_lastrun.txt"
	local.Potd.TempDir = state
	err = writeTemplate(filepath.Join(root, "config.local.json5"), local)
	if err != nil {
		return err
	}

	return writeTemplate(filepath.Join(root, "telemetry.json5"), telemetry.Config{
		Otlp: telemetry.OtlpConfig{
			Traces:  telemetry.OtlpConnConfig{GrpcEndpoint: "localhost:4317"},
			Metrics: telemetry.OtlpConnConfig{GrpcEndpoint: "localhost:4317"},
		},
	})
}

func main() {
	recreate := flag.Bool("recreate", false, "recreate the dev environment from scratch")
	flag.Parse()

	root, err := devenv.GetWorkspaceRoot()
	if err != nil {
		slog.Error("the dev environment must be created inside the repository", "err", err.Error())
		os.Exit(1)
	}

	err = create(root, *recreate)
	if err != nil {
		slog.Error("failed to create dev environment", "err", err.Error())
		os.Exit(1)
	}

	slog.Info("dev environment created sucessfully!")
}
