package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gzhole/hookwarden/internal/logger"
)

func execute(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := NewRootCmd(strings.NewReader(stdin), &stdout, &stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func seedLog(t *testing.T, dir string) {
	t.Helper()
	lg, err := logger.New(dir, 0, nil)
	require.NoError(t, err)
	for _, r := range []logger.Record{
		{ID: "1", Timestamp: "2026-02-02T08:00:00.000Z", EventType: "PreToolUse", ToolName: "Bash", SessionID: "s1", Verdict: "ALLOW"},
		{ID: "2", Timestamp: "2026-02-02T09:00:00.000Z", EventType: "PreToolUse", ToolName: "Edit", SessionID: "s1", Verdict: "WARN"},
		{ID: "3", Timestamp: "2026-02-02T10:00:00.000Z", EventType: "UserPromptSubmit", SessionID: "s2", Verdict: "BLOCK"},
		{ID: "4", Timestamp: "2026-02-02T11:00:00.000Z", EventType: "PreToolUse", ToolName: "Bash", SessionID: "unknown", Verdict: "BLOCK"},
	} {
		require.NoError(t, lg.Log(r))
	}
	f, err := os.OpenFile(filepath.Join(dir, logger.AllEventsFile), os.O_APPEND|os.O_WRONLY, 0600)
	require.NoError(t, err)
	_, err = f.WriteString("{\"id\": \"trunc\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())
}

func logsArgs(t *testing.T, dir string, extra ...string) []string {
	cfg := filepath.Join(t.TempDir(), "config.yaml")
	return append([]string{"logs", "--config", cfg, "--dir", dir}, extra...)
}

func TestLogs_JSONWithToolFilter(t *testing.T) {
	dir := t.TempDir()
	seedLog(t, dir)

	out, _, err := execute(t, "", logsArgs(t, dir, "--format", "json", "--tool", "Bash")...)
	require.NoError(t, err)

	var records []logger.Record
	require.NoError(t, json.Unmarshal([]byte(out), &records))
	require.Len(t, records, 2)
	assert.Equal(t, "1", records[0].ID)
	assert.Equal(t, "4", records[1].ID)
}

func TestLogs_Last(t *testing.T) {
	dir := t.TempDir()
	seedLog(t, dir)

	out, _, err := execute(t, "", logsArgs(t, dir, "--format", "raw", "--last", "1")...)
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(out, "\n"))
	assert.Contains(t, out, `"id":"4"`)
}

func TestLogs_Reports(t *testing.T) {
	dir := t.TempDir()
	seedLog(t, dir)

	out, _, err := execute(t, "", logsArgs(t, dir, "--list-types")...)
	require.NoError(t, err)
	assert.Equal(t, "PreToolUse\nUserPromptSubmit\n", out)

	out, _, err = execute(t, "", logsArgs(t, dir, "--list-sessions")...)
	require.NoError(t, err)
	assert.Equal(t, "s1\ns2\n", out)

	out, _, err = execute(t, "", logsArgs(t, dir, "--top", "1", "--by", "tool", "--format", "csv")...)
	require.NoError(t, err)
	assert.Equal(t, "rank,tool,count\n1,Bash,2\n", out)

	out, _, err = execute(t, "", logsArgs(t, dir, "--stats", "--format", "json")...)
	require.NoError(t, err)
	var summary map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &summary))
	assert.EqualValues(t, 4, summary["total"])
	assert.EqualValues(t, 2, summary["sessions"])
}

func TestLogs_RecentView(t *testing.T) {
	dir := t.TempDir()
	lg, err := logger.New(dir, 2, nil)
	require.NoError(t, err)
	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, lg.Log(logger.Record{ID: id, Timestamp: "2026-02-02T08:00:00.000Z", EventType: "Stop", SessionID: "s1", Verdict: "ALLOW"}))
	}

	out, _, err := execute(t, "", logsArgs(t, dir, "--recent", "--format", "json")...)
	require.NoError(t, err)

	var records []logger.Record
	require.NoError(t, json.Unmarshal([]byte(out), &records))
	require.Len(t, records, 2)
	assert.Equal(t, "b", records[0].ID)
	assert.Equal(t, "c", records[1].ID)
}

func TestLogs_BadFlags(t *testing.T) {
	dir := t.TempDir()
	_, _, err := execute(t, "", logsArgs(t, dir, "--format", "xml")...)
	assert.Error(t, err)

	_, _, err = execute(t, "", logsArgs(t, dir, "--by", "session")...)
	assert.Error(t, err)
}

func TestCheck(t *testing.T) {
	cfg := filepath.Join(t.TempDir(), "config.yaml")

	out, _, err := execute(t, "", "check", "--config", cfg, "rm", "-rf", "/")
	var exitErr *ExitError
	require.True(t, errors.As(err, &exitErr))
	assert.Equal(t, ExitBlock, exitErr.Code)
	assert.Contains(t, out, "DangerousDelete")

	out, _, err = execute(t, "", "check", "--config", cfg, "rm", "-rf", "node_modules")
	require.NoError(t, err)
	assert.Contains(t, out, "ALLOW")

	out, _, err = execute(t, "", "check", "--config", cfg, "--file", ".env.local", "--json")
	require.NoError(t, err)
	var decision checkOutput
	require.NoError(t, json.Unmarshal([]byte(out), &decision))
	assert.Equal(t, "WARN", string(decision.Verdict))

	out, _, err = execute(t, "my password=abc123\n", "check", "--config", cfg, "--prompt")
	require.Error(t, err)
	assert.Contains(t, out, "password=***MASKED***")

	_, _, err = execute(t, "", "check", "--config", cfg)
	assert.Error(t, err)
}

func TestRules(t *testing.T) {
	dir := t.TempDir()
	cfg := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte(`
category_actions:
  EnvFileAccess: block
rules:
  - id: broken
    group: malicious
    pattern: "(unclosed"
`), 0600))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "packs"), 0700))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "packs", "extra.yaml"), []byte(`
name: extra
version: "1.0"
rules:
  - id: extra-deploy
    group: scope
    pattern: '\bdeploy\b'
`), 0600))

	out, _, err := execute(t, "", "rules", "--config", cfg, "--json")
	require.NoError(t, err)

	var listing struct {
		Rules   []ruleView `json:"rules"`
		Skipped []string   `json:"skipped"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &listing))

	byID := map[string]ruleView{}
	for _, r := range listing.Rules {
		byID[r.ID] = r
	}
	assert.Equal(t, "BLOCK", string(byID["env-file"].Verdict))
	assert.Equal(t, "extra", byID["extra-deploy"].Source)
	assert.NotContains(t, byID, "broken")
	require.Len(t, listing.Skipped, 1)
	assert.Contains(t, listing.Skipped[0], "broken")

	out, _, err = execute(t, "", "rules", "--config", cfg, "--packs")
	require.NoError(t, err)
	assert.Contains(t, out, "extra")

	_, _, err = execute(t, "", "rules", "--config", cfg, "--group", "nope")
	assert.Error(t, err)
}

func TestVersion(t *testing.T) {
	out, _, err := execute(t, "", "version")
	require.NoError(t, err)
	assert.Contains(t, out, "hookwarden "+Version)
}
