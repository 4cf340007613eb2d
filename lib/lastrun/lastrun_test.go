package lastrun

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestFormat(t *testing.T) {
	require.Equal(t, "1700000000", Format(time.Unix(1700000000, 0)))
	require.Equal(t, "1700000000.5", Format(time.Unix(1700000000, 500_000_000)))
}

func TestWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "lastrun.txt")

	require.NoError(t, os.WriteFile(path, []byte("old contents that are longer"), 0644))

	at := time.Unix(1700000123, 250_000_000)
	require.NoError(t, Write(path, at))

	contents, err := os.ReadFile(path)
	require.NoError(t, err)
	seconds, err := strconv.ParseFloat(string(contents), 64)
	require.NoError(t, err)
	require.InDelta(t, 1700000123.25, seconds, 0.001)
}

func TestWriteMissingDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "public_html", "lastrun.txt")
	err := Write(path, time.Now())
	require.ErrorIs(t, err, ErrNoDirectory)

	_, statErr := os.Stat(path)
	require.True(t, os.IsNotExist(statErr))

	// must not panic or create anything
	Record(path, time.Now())
	_, statErr = os.Stat(filepath.Dir(path))
	require.True(t, os.IsNotExist(statErr))
}
