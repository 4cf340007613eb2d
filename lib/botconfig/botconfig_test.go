package botconfig

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json5")
	err := os.WriteFile(path, []byte(`{
		wiki: {username: "Example Bot@tfa"},
		tfa: {lookahead: 10},
	}`), 0600)
	require.NoError(t, err)

	t.Setenv("TFAPROT_USERNAME", "")
	t.Setenv("TFAPROT_PASSWORD", "hunter2")

	config, err := Load(path)
	require.NoError(t, err)

	require.Equal(t, "Example Bot@tfa", config.Wiki.Username)
	require.Equal(t, "hunter2", config.Wiki.Password)
	require.Equal(t, "https://en.wikipedia.org/w/api.php", config.Wiki.ApiUrl)
	require.Equal(t, "https://commons.wikimedia.org/w/api.php", config.Commons.ApiUrl)
	require.Equal(t, 10, config.Tfa.Lookahead)
	require.Equal(t, 60, config.Tfa.MaxLookahead)
	require.Equal(t, DefaultTfaReason, config.Tfa.Reason)
	require.Equal(t, "User:TFA Protector Bot/watch.js", config.Potd.WatchPage)
}

func TestLoadWithoutCredentials(t *testing.T) {
	t.Setenv("TFAPROT_USERNAME", "")
	t.Setenv("TFAPROT_PASSWORD", "")

	config, err := Load(filepath.Join(t.TempDir(), "config.json5"))
	require.NoError(t, err)
	require.Equal(t, Default(), config)

	_, err = config.NewWikiClient(context.Background(), nil)
	require.ErrorIs(t, err, ErrNoCredentials)
}

func TestValidate(t *testing.T) {
	config := Default()
	require.NoError(t, config.Validate())

	config.Tfa.MaxLookahead = 20
	require.Error(t, config.Validate())

	config = Default()
	config.Tfa.Lookahead = 0
	require.Error(t, config.Validate())
}

func TestRuntimeClose(t *testing.T) {
	closed := 0
	rt := &Runtime{
		closeLog: func() error {
			closed++
			return os.ErrClosed
		},
	}

	require.ErrorIs(t, rt.Close(), os.ErrClosed)
	require.ErrorIs(t, rt.Close(), os.ErrClosed)
	require.Equal(t, 1, closed)
}
