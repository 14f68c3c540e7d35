package e2e

import (
	"bytes"
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSmokeFlow(t *testing.T) {
	home := t.TempDir()
	binaryPath := buildBinary(t)

	for _, args := range [][]string{
		{"session", "start", "--name", "Running", "--activity-id", "sess-1"},
		{"session", "start", "--name", "Reading", "--activity-id", "sess-2"},
	} {
		_, stderr, err := runActl(t, binaryPath, home, args...)
		require.NoError(t, err, "stderr: %s", stderr)
	}

	// The stop button and the extension end the same session at once.
	stopButton := startActl(t, binaryPath, home, "terminate", "sess-1", "--context", "stop-button")
	extension := startActl(t, binaryPath, home, "terminate", "sess-1", "--context", "extension")
	require.NoError(t, stopButton.Wait(), "stderr: %s", stopButton.Stderr)
	require.NoError(t, extension.Wait(), "stderr: %s", extension.Stderr)

	stdout, stderr, err := runActl(t, binaryPath, home, "ended", "sess-1")
	require.NoError(t, err, "stderr: %s", stderr)
	assert.Equal(t, "true\n", stdout)

	stdout, stderr, err = runActl(t, binaryPath, home, "ended", "sess-2")
	require.NoError(t, err, "stderr: %s", stderr)
	assert.Equal(t, "false\n", stdout)

	stdout, stderr, err = runActl(t, binaryPath, home, "session", "list", "--json")
	require.NoError(t, err, "stderr: %s", stderr)
	var live []struct {
		ActivityID string `json:"activity_id"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &live))
	require.Len(t, live, 1)
	assert.Equal(t, "sess-2", live[0].ActivityID)

	stdout, stderr, err = runActl(t, binaryPath, home, "reconcile")
	require.NoError(t, err, "stderr: %s", stderr)
	assert.Contains(t, stdout, "ended: sess-1")
	assert.NotContains(t, stdout, "ended: sess-2")
}

func buildBinary(t *testing.T) string {
	t.Helper()

	binaryPath := filepath.Join(t.TempDir(), "actl-e2e")
	cmd := exec.Command("go", "build", "-o", binaryPath, "./cmd/actl")
	cmd.Dir = repoRoot(t)

	output, err := cmd.CombinedOutput()
	require.NoError(t, err, "build actl binary: %s", string(output))
	return binaryPath
}

func actlCommand(binaryPath, home string, args ...string) (*exec.Cmd, *bytes.Buffer, *bytes.Buffer) {
	cmd := exec.Command(binaryPath, args...)
	cmd.Env = append(os.Environ(), "HOME="+home)

	var stdout bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	return cmd, &stdout, &stderr
}

func runActl(t *testing.T, binaryPath, home string, args ...string) (string, string, error) {
	t.Helper()

	cmd, stdout, stderr := actlCommand(binaryPath, home, args...)
	err := cmd.Run()
	return stdout.String(), stderr.String(), err
}

type runningActl struct {
	cmd    *exec.Cmd
	Stderr *bytes.Buffer
}

func (r runningActl) Wait() error {
	return r.cmd.Wait()
}

func startActl(t *testing.T, binaryPath, home string, args ...string) runningActl {
	t.Helper()

	cmd, _, stderr := actlCommand(binaryPath, home, args...)
	require.NoError(t, cmd.Start())
	return runningActl{cmd: cmd, Stderr: stderr}
}

func repoRoot(t *testing.T) string {
	t.Helper()

	wd, err := os.Getwd()
	require.NoError(t, err)
	return filepath.Clean(filepath.Join(wd, "..", ".."))
}
