// Package testutil provides shared test helpers used across integration,
// e2e, and unit test packages.
package testutil

import (
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// RepoRoot returns the absolute path to the repository root by walking
// up from the current working directory. It fails the test if the
// working directory cannot be determined.
func RepoRoot(t *testing.T) string {
	t.Helper()
	dir, err := os.Getwd()
	require.NoError(t, err)
	return filepath.Clean(filepath.Join(dir, "..", ".."))
}

// FakePacman writes a pacman stand-in that knows no installed packages
// and no sync repositories, and returns its path.
func FakePacman(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pacman")
	script := `#!/bin/sh
case "$1" in
  -T) echo "$3"; exit 127 ;;
  *) exit 1 ;;
esac
`
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
	return path
}

// RunRaur runs the raur command from the repository root with extra
// environment variables and returns its combined output and exit code.
func RunRaur(t *testing.T, env []string, args ...string) (string, int) {
	t.Helper()
	// Build first and run the binary directly: `go run` reports every
	// non-zero exit of the program as exit status 1.
	bin := filepath.Join(t.TempDir(), "raur")
	build := exec.Command("go", "build", "-o", bin, "./cmd/raur")
	build.Dir = RepoRoot(t)
	build.Env = append(os.Environ(), "GO111MODULE=on")
	buildOut, buildErr := build.CombinedOutput()
	require.NoError(t, buildErr, "building raur: %s", buildOut)

	cmd := exec.Command(bin, args...)
	cmd.Dir = RepoRoot(t)
	cmd.Env = append(append(os.Environ(), "GO111MODULE=on", "HOME="+t.TempDir()), env...)
	out, err := cmd.CombinedOutput()
	if err == nil {
		return string(out), 0
	}
	exitErr, ok := err.(*exec.ExitError)
	require.True(t, ok, "unexpected error running raur: %v\n%s", err, out)
	return string(out), exitErr.ExitCode()
}
