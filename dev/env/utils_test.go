package devenv

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResolvePath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Fatal(err)
	}

	path, err := ResolvePath("~/public_html/lastrun.txt")
	if err != nil {
		t.Fatal(err)
	}
	require.Equal(t, filepath.Join(home, "public_html", "lastrun.txt"), path)

	path, err = ResolvePath("/var/tmp/lastrun.txt")
	if err != nil {
		t.Fatal(err)
	}
	require.Equal(t, "/var/tmp/lastrun.txt", path)
}

func TestGetWorkspaceRoot(t *testing.T) {
	root, err := GetWorkspaceRoot()
	if err != nil {
		t.Fatal(err)
	}
	_, err = os.Stat(filepath.Join(root, "go.mod"))
	require.NoError(t, err)
}
