package configutil

import (
	"errors"
	"io/fs"
	"log/slog"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// ReadEnv fills T from environment variables named <prefix>_<FIELD>.
// A .env file in the working directory is loaded first if one exists,
// variables that are already set take precedence over it.
func ReadEnv[T any](prefix string) (T, error) {
	var out T

	err := godotenv.Load()
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return out, err
	}
	if err == nil {
		slog.Debug("loaded environment from .env")
	}

	err = envconfig.Process(prefix, &out)
	if err != nil {
		return out, err
	}
	return out, nil
}
