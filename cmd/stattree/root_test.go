package main

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/udisondev/statustree/internal/testutil"
)

const characterDefinition = "../../definitions/character.yaml"

// execute runs the root command with args and a config file that does not exist.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	var stdout, stderr bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append([]string{"--config", filepath.Join(t.TempDir(), "none.yaml")}, args...))
	err := cmd.ExecuteContext(t.Context())
	return stdout.String(), err
}

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLogLevel("debug"))
	assert.Equal(t, slog.LevelWarn, parseLogLevel("warn"))
	assert.Equal(t, slog.LevelError, parseLogLevel("error"))
	assert.Equal(t, slog.LevelInfo, parseLogLevel(""))
	assert.Equal(t, slog.LevelInfo, parseLogLevel("verbose"))
}

func TestParseAssignment(t *testing.T) {
	key, v, err := parseAssignment("Buff=0.5")
	require.NoError(t, err)
	assert.Equal(t, "Buff", key)
	assert.Equal(t, 0.5, v)

	key, v, err = parseAssignment(" Level = -2 ")
	require.NoError(t, err)
	assert.Equal(t, "Level", key)
	assert.Equal(t, -2.0, v)

	for _, bad := range []string{"Buff", "=1", "Buff=abc", ""} {
		_, _, err := parseAssignment(bad)
		assert.Error(t, err, bad)
	}
}

func TestConfigFromEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stattree.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log_level: warn\ndefinitions_dir: trees\n"), 0o644))
	t.Setenv(ConfigPathEnv, path)

	a := &app{}
	cmd := newRootCmd()
	cmd.SetErr(&bytes.Buffer{})
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	require.NoError(t, a.setup(cmd))
	assert.Equal(t, "warn", a.cfg.LogLevel)
	assert.Equal(t, "trees", a.cfg.DefinitionsDir)

	a.logLevel = "debug"
	require.NoError(t, a.setup(cmd))
	assert.Equal(t, "debug", a.cfg.LogLevel)
}

func TestInvalidConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stattree.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log_level: loud\n"), 0o644))

	cmd := newRootCmd()
	cmd.SetArgs([]string{"--config", path, "validate", characterDefinition})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	assert.Error(t, cmd.ExecuteContext(t.Context()))
}

func TestValidateCommand(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, testutil.ScenarioDefinition("scenario").Save(filepath.Join(dir, "scenario.yaml")))

	out, err := execute(t, "validate", dir, characterDefinition)
	require.NoError(t, err)
	assert.Contains(t, out, "ok   "+filepath.Join(dir, "scenario.yaml")+" (scenario, 7 nodes, value 100)")
	assert.Contains(t, out, "(character, 10 nodes, value 100)")
}

func TestValidateCommand_ReportsEveryFailure(t *testing.T) {
	dir := t.TempDir()
	good := testutil.ScenarioDefinition("good")
	require.NoError(t, good.Save(filepath.Join(dir, "good.yaml")))

	bad := testutil.ScenarioDefinition("bad")
	bad.Nodes[2].ChildIndices = append(bad.Nodes[2].ChildIndices, 0)
	require.NoError(t, bad.Save(filepath.Join(dir, "bad.yaml")))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "garbage.yaml"), []byte("nodes: [unclosed"), 0o644))

	out, err := execute(t, "validate", dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "2 of 3 definitions invalid")
	assert.Contains(t, out, "FAIL "+filepath.Join(dir, "bad.yaml"))
	assert.Contains(t, out, "FAIL "+filepath.Join(dir, "garbage.yaml"))
	assert.Contains(t, out, "ok   "+filepath.Join(dir, "good.yaml"))
}

func TestValidateCommand_MissingPath(t *testing.T) {
	_, err := execute(t, "validate", filepath.Join(t.TempDir(), "absent"))
	assert.Error(t, err)
}

func TestEvalCommand(t *testing.T) {
	out, err := execute(t, "eval", characterDefinition, "--add", "Buff=0.5")
	require.NoError(t, err)
	assert.Contains(t, out, "Total (multiply) = 150\n")
	assert.Contains(t, out, "    BuffAll (subtract) = 1.5\n")
	assert.Contains(t, out, "character = 150\n")
}

func TestEvalCommand_SetThenAdd(t *testing.T) {
	out, err := execute(t, "eval", characterDefinition, "--set", "Level=2", "--add", "Equipment=50")
	require.NoError(t, err)
	assert.Contains(t, out, "character = 300\n")
}

func TestEvalCommand_Random(t *testing.T) {
	first, err := execute(t, "eval", characterDefinition, "--random", "3", "--seed", "7")
	require.NoError(t, err)
	second, err := execute(t, "eval", characterDefinition, "--random", "3", "--seed", "7")
	require.NoError(t, err)
	assert.Equal(t, first, second, "same seed, same adjustments")
	assert.Equal(t, 3, bytes.Count([]byte(first), []byte("adjust ")))
}

func TestEvalCommand_Errors(t *testing.T) {
	_, err := execute(t, "eval", characterDefinition, "--add", "Total=1")
	assert.ErrorContains(t, err, `no value node "Total"`)

	_, err = execute(t, "eval", characterDefinition, "--set", "Missing=1")
	assert.Error(t, err)

	_, err = execute(t, "eval", characterDefinition, "--entity", "not-a-uuid")
	assert.ErrorContains(t, err, "parsing entity id")

	_, err = execute(t, "eval")
	assert.Error(t, err)
}
