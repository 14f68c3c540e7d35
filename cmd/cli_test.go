package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVersionDoesNotOpenStore(t *testing.T) {
	home := t.TempDir()

	stdout, _, err := executeCLI(t, home, "version")
	require.NoError(t, err)
	assert.Equal(t, "dev\n", stdout)
	assert.NoDirExists(t, filepath.Join(home, ".activitylog"))
}

func TestSessionStartThenList(t *testing.T) {
	home := t.TempDir()

	stdout, _, err := executeCLI(t, home, "session", "start", "--name", "Running", "--activity-id", "sess-1")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Started session sess-1 (presentation ")

	stdout, _, err = executeCLI(t, home, "session", "list")
	require.NoError(t, err)
	assert.Contains(t, stdout, "presentations: 1")
	assert.Contains(t, stdout, "Running")
	assert.Contains(t, stdout, "activity sess-1")
}

func TestSessionStartRequiresName(t *testing.T) {
	_, _, err := executeCLI(t, t.TempDir(), "session", "start")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "required flag(s) \"name\" not set")
}

func TestTerminateTwiceThenEnded(t *testing.T) {
	home := t.TempDir()
	_, _, err := executeCLI(t, home, "session", "start", "--name", "Running", "--activity-id", "sess-1")
	require.NoError(t, err)

	stdout, _, err := executeCLI(t, home, "terminate", "sess-1", "--context", "stop-button")
	require.NoError(t, err)
	assert.Contains(t, stdout, "activity sess-1: ended")
	assert.NotContains(t, stdout, "dismissed: none")

	stdout, _, err = executeCLI(t, home, "terminate", "sess-1", "--context", "extension")
	require.NoError(t, err)
	assert.Contains(t, stdout, "activity sess-1: already ended")

	stdout, _, err = executeCLI(t, home, "ended", "sess-1")
	require.NoError(t, err)
	assert.Equal(t, "true\n", stdout)

	stdout, _, err = executeCLI(t, home, "ended", "sess-2")
	require.NoError(t, err)
	assert.Equal(t, "false\n", stdout)

	stdout, _, err = executeCLI(t, home, "ledger", "list", "--json")
	require.NoError(t, err)
	var entries []ledgerEntryOutput
	require.NoError(t, json.Unmarshal([]byte(stdout), &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, "sess-1", entries[0].ActivityID)
}

func TestTerminateLeavesOtherSessionsLive(t *testing.T) {
	home := t.TempDir()
	_, _, err := executeCLI(t, home, "session", "start", "--name", "Running", "--activity-id", "sess-1")
	require.NoError(t, err)
	_, _, err = executeCLI(t, home, "session", "start", "--name", "Reading", "--activity-id", "sess-2")
	require.NoError(t, err)

	stdout, _, err := executeCLI(t, home, "terminate", "sess-1", "--json")
	require.NoError(t, err)
	var report terminateOutput
	require.NoError(t, json.Unmarshal([]byte(stdout), &report))
	assert.Equal(t, "recorded", report.Outcome)
	assert.Equal(t, "app", report.EntryPoint)
	assert.Len(t, report.Dismissed, 1)

	stdout, _, err = executeCLI(t, home, "session", "list", "--json")
	require.NoError(t, err)
	var live []liveSessionOutput
	require.NoError(t, json.Unmarshal([]byte(stdout), &live))
	require.Len(t, live, 1)
	assert.Equal(t, "sess-2", live[0].ActivityID)
	assert.Equal(t, "Reading", live[0].Name)
}

func TestTerminateRejectsUnknownContext(t *testing.T) {
	_, _, err := executeCLI(t, t.TempDir(), "terminate", "sess-1", "--context", "widget")
	require.ErrorIs(t, err, errInvalidContext)
}

func TestTerminateRejectsInvalidActivityID(t *testing.T) {
	home := t.TempDir()

	_, _, err := executeCLI(t, home, "terminate", "bad:id")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid activity id")

	stdout, _, err := executeCLI(t, home, "ledger", "list")
	require.NoError(t, err)
	assert.Contains(t, stdout, "ledger: empty")
}

func TestLedgerListFlagsMalformedEntries(t *testing.T) {
	home := t.TempDir()
	require.NoError(t, writeSharedFixture(home, `version = 1

[lists]
ended_activity_ids = ["sess-1:1792401300000", "garbage", "sess-2:soon"]
`))

	stdout, _, err := executeCLI(t, home, "ledger", "list")
	require.NoError(t, err)
	assert.Contains(t, stdout, "sess-1")
	assert.Contains(t, stdout, "2026-10-19T09:15:00.000Z")
	assert.Contains(t, stdout, "garbage")
	assert.Contains(t, stdout, "[malformed]")
	assert.Contains(t, stdout, "missing separator")
	assert.Contains(t, stdout, "non-integer timestamp")

	stdout, _, err = executeCLI(t, home, "ended", "sess-2")
	require.NoError(t, err)
	assert.Equal(t, "false\n", stdout)
}

func TestReconcileAppliesStopButtonTermination(t *testing.T) {
	home := t.TempDir()
	_, _, err := executeCLI(t, home, "session", "start", "--name", "Running", "--activity-id", "sess-1")
	require.NoError(t, err)
	_, _, err = executeCLI(t, home, "session", "start", "--name", "Reading", "--activity-id", "sess-2")
	require.NoError(t, err)
	_, _, err = executeCLI(t, home, "terminate", "sess-1", "--context", "stop-button")
	require.NoError(t, err)

	stdout, _, err := executeCLI(t, home, "reconcile", "--json")
	require.NoError(t, err)
	var out reconcileOutput
	require.NoError(t, json.Unmarshal([]byte(stdout), &out))
	assert.ElementsMatch(t, []string{"sess-1", "sess-2"}, out.Checked)
	assert.Equal(t, []string{"sess-1"}, out.Ended)
	assert.Nil(t, out.Pruned)

	stdout, _, err = executeCLI(t, home, "reconcile", "--prune")
	require.NoError(t, err)
	assert.Contains(t, stdout, "checked: 1")
	assert.Contains(t, stdout, "ended: none")
	assert.Contains(t, stdout, "pruned: 1 entries removed, 0 kept")

	stdout, _, err = executeCLI(t, home, "ledger", "list")
	require.NoError(t, err)
	assert.Contains(t, stdout, "ledger: empty")
}

func TestLogsRecordDuplicateTermination(t *testing.T) {
	home := t.TempDir()
	_, _, err := executeCLI(t, home, "terminate", "sess-1")
	require.NoError(t, err)
	_, _, err = executeCLI(t, home, "terminate", "sess-1", "--context", "stop-button")
	require.NoError(t, err)

	stdout, _, err := executeCLI(t, home, "logs")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Ended activity (sess-1) already exists in shared data")

	stdout, _, err = executeCLI(t, home, "logs", "--tail", "1")
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(stdout, "\n"))
}

func TestConfigFileOverridesStorePath(t *testing.T) {
	home := t.TempDir()
	storePath := filepath.Join(home, "group", "shared.toml")
	configPath := filepath.Join(home, "actl.toml")
	require.NoError(t, os.WriteFile(configPath, []byte("[store]\npath = \""+filepath.ToSlash(storePath)+"\"\n"), 0o600))

	_, _, err := executeCLI(t, home, "--config", configPath, "terminate", "sess-1")
	require.NoError(t, err)
	assert.FileExists(t, storePath)
}

func TestUnknownBackendFailsCommand(t *testing.T) {
	home := t.TempDir()
	t.Setenv("ACTL_STORE_BACKEND", "sqlite")

	_, _, err := executeCLI(t, home, "ended", "sess-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown store backend")
}

func TestRedisBackendSharesLedgerAcrossInvocations(t *testing.T) {
	server := miniredis.RunT(t)
	home := t.TempDir()
	t.Setenv("ACTL_STORE_BACKEND", "redis")
	t.Setenv("ACTL_REDIS_ADDR", server.Addr())

	_, _, err := executeCLI(t, home, "terminate", "sess-1", "--context", "extension")
	require.NoError(t, err)

	stdout, _, err := executeCLI(t, home, "ended", "sess-1")
	require.NoError(t, err)
	assert.Equal(t, "true\n", stdout)
	assert.True(t, server.Exists("activitylog:list:ended_activity_ids"))

	_, _, err = executeCLI(t, home, "watch")
	require.ErrorIs(t, err, errWatchNeedsFile)
}

func TestRedisPasswordResolvedFromSecretStore(t *testing.T) {
	server := miniredis.RunT(t)
	server.RequireAuth("hunter2")
	home := t.TempDir()

	stdout, _, err := executeCLIWithInput(t, home, "hunter2\n", "secret", "set", "activitylog/redis")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Stored secret activitylog/redis")

	t.Setenv("ACTL_STORE_BACKEND", "redis")
	t.Setenv("ACTL_REDIS_ADDR", server.Addr())

	_, _, err = executeCLI(t, home, "ended", "sess-1")
	require.Error(t, err, "no password configured yet")

	t.Setenv("ACTL_REDIS_PASSWORD_REF", "activitylog/redis")
	_, _, err = executeCLI(t, home, "terminate", "sess-1")
	require.NoError(t, err)

	_, _, err = executeCLI(t, home, "secret", "delete", "activitylog/redis")
	require.NoError(t, err)

	_, _, err = executeCLI(t, home, "ended", "sess-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "resolve redis password")
}

func TestSecretSetRejectsEmptyValue(t *testing.T) {
	_, _, err := executeCLIWithInput(t, t.TempDir(), "\n", "secret", "set", "activitylog/redis")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "secret value is empty")
}

func TestRedisBackendUnavailable(t *testing.T) {
	home := t.TempDir()
	t.Setenv("ACTL_STORE_BACKEND", "redis")
	t.Setenv("ACTL_REDIS_ADDR", "127.0.0.1:1")

	_, _, err := executeCLI(t, home, "ended", "sess-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "shared store unavailable")
}

func TestMetricsTextfileWrittenOnExit(t *testing.T) {
	home := t.TempDir()
	path := filepath.Join(home, "actl.prom")

	_, _, err := executeCLI(t, home, "--metrics-textfile", path, "terminate", "sess-1", "--context", "stop-button")
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `actl_terminations_total{entry_point="stop-button"}`)
}

func TestWatchLoopReconcilesOnStoreWrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shared.toml")
	events := make(chan fsnotify.Event, 4)
	errs := make(chan error, 1)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	calls := 0
	onChange := func(context.Context) {
		calls++
		if calls == 2 {
			cancel()
		}
	}

	events <- fsnotify.Event{Name: filepath.Join(filepath.Dir(path), "sessions.toml"), Op: fsnotify.Write}
	events <- fsnotify.Event{Name: path, Op: fsnotify.Chmod}
	events <- fsnotify.Event{Name: path, Op: fsnotify.Create}
	events <- fsnotify.Event{Name: path, Op: fsnotify.Write}
	errs <- assert.AnError

	done := make(chan error, 1)
	go func() {
		done <- watchLoop(ctx, events, errs, path, onChange, func(any, ...any) {})
	}()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watch loop did not stop")
	}
	assert.Equal(t, 2, calls)
}

func TestWatchLoopStopsWhenWatcherCloses(t *testing.T) {
	events := make(chan fsnotify.Event)
	close(events)

	err := watchLoop(context.Background(), events, make(chan error), "/tmp/shared.toml", func(context.Context) {}, func(any, ...any) {})
	assert.NoError(t, err)
}

func executeCLI(t *testing.T, home string, args ...string) (string, string, error) {
	t.Helper()
	t.Setenv("HOME", home)

	root := newRootCmd()
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.SetArgs(args)

	err := root.Execute()
	return stdout.String(), stderr.String(), err
}

func executeCLIWithInput(t *testing.T, home, input string, args ...string) (string, string, error) {
	t.Helper()
	t.Setenv("HOME", home)

	root := newRootCmd()
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	root.SetIn(strings.NewReader(input))
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.SetArgs(args)

	err := root.Execute()
	return stdout.String(), stderr.String(), err
}

func writeSharedFixture(home, content string) error {
	dir := filepath.Join(home, ".activitylog")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	return os.WriteFile(filepath.Join(dir, "shared.toml"), []byte(content), 0o600)
}
