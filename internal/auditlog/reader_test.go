package auditlog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gzhole/hookwarden/internal/logger"
)

func recordLine(t *testing.T, rec logger.Record) string {
	t.Helper()
	data, err := json.Marshal(rec)
	require.NoError(t, err)
	return string(data)
}

func rec(id, eventType, tool string) logger.Record {
	return logger.Record{
		ID:        id,
		Timestamp: "2026-02-02T12:00:00.000Z",
		EventType: eventType,
		ToolName:  tool,
		SessionID: "session-" + id,
		Verdict:   "ALLOW",
	}
}

func TestRead_SkipsMalformedLines(t *testing.T) {
	var lines []string
	for i := 0; i < 5; i++ {
		lines = append(lines, recordLine(t, rec(fmt.Sprint(i), "PreToolUse", "Bash")))
		lines = append(lines, "not json at all")
		lines = append(lines, `{"id": "broken", "timestamp": ]`)
		lines = append(lines, "")
	}
	lines = append(lines, `}`, `[1,2,3]`)

	records, stats, err := Read(strings.NewReader(strings.Join(lines, "\n")))
	require.NoError(t, err)

	assert.Len(t, records, 5)
	assert.Equal(t, 5, stats.Records)
	assert.Equal(t, 12, stats.Discarded)
	for i, r := range records {
		assert.Equal(t, fmt.Sprint(i), r.ID)
	}
}

func TestRead_ReassemblesSplitRecord(t *testing.T) {
	pretty, err := json.MarshalIndent(rec("split", "Stop", ""), "", "  ")
	require.NoError(t, err)

	input := recordLine(t, rec("a", "PreToolUse", "Bash")) + "\n" +
		string(pretty) + "\n" +
		recordLine(t, rec("b", "PreToolUse", "Read")) + "\n"

	records, stats, err := Read(strings.NewReader(input))
	require.NoError(t, err)

	require.Len(t, records, 3)
	assert.Equal(t, []string{"a", "split", "b"}, []string{records[0].ID, records[1].ID, records[2].ID})
	assert.Zero(t, stats.Discarded)
}

func TestRead_RecordCutAfterKeyDoesNotSwallowNext(t *testing.T) {
	cut := `{"id":"cut","timestamp":"2026-02-02T12:00:00.000Z","event_type":"PreToolUse","tool_input":`
	input := strings.Join([]string{
		recordLine(t, rec("a", "PreToolUse", "Bash")),
		cut,
		recordLine(t, rec("b", "PreToolUse", "Read")),
		recordLine(t, rec("c", "Stop", "")),
	}, "\n")

	records, stats, err := Read(strings.NewReader(input))
	require.NoError(t, err)

	ids := make([]string, 0, len(records))
	for _, r := range records {
		ids = append(ids, r.ID)
	}
	assert.Equal(t, []string{"a", "b", "c"}, ids)
	assert.Equal(t, Stats{Lines: 4, Records: 3, Discarded: 1}, stats)
}

func TestRead_PrettyRecordWithCompactNestedObject(t *testing.T) {
	input := strings.Join([]string{
		`{`,
		`  "id": "nested",`,
		`  "event_type": "PreToolUse",`,
		`  "reasons": [`,
		`    {"category": "EnvFileAccess", "verdict": "WARN"}`,
		`  ]`,
		`}`,
	}, "\n")

	records, stats, err := Read(strings.NewReader(input))
	require.NoError(t, err)

	require.Len(t, records, 1)
	assert.Equal(t, "nested", records[0].ID)
	assert.Zero(t, stats.Discarded)
}

func TestRead_TruncatedRecordFollowedByNext(t *testing.T) {
	full := recordLine(t, rec("whole", "PreToolUse", "Bash"))
	input := full[:20] + "\n" + full + "\n" + full[:30]

	records, stats, err := Read(strings.NewReader(input))
	require.NoError(t, err)

	require.Len(t, records, 1)
	assert.Equal(t, "whole", records[0].ID)
	assert.Equal(t, 2, stats.Discarded)
}

func TestRead_UnterminatedFragmentIsBounded(t *testing.T) {
	lines := []string{`{"id": "never-closed",`}
	for i := 0; i < maxBufferedLines+10; i++ {
		lines = append(lines, fmt.Sprintf(`"k%d": %d,`, i, i))
	}
	lines = append(lines, recordLine(t, rec("after", "Stop", "")))

	records, _, err := Read(strings.NewReader(strings.Join(lines, "\n")))
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "after", records[0].ID)
}

func TestReadDir(t *testing.T) {
	dir := t.TempDir()

	records, _, err := ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, records, "missing log reads as empty")

	lg, err := logger.New(dir, 0, nil)
	require.NoError(t, err)
	require.NoError(t, lg.Log(rec("x", "PreToolUse", "Bash")))
	require.NoError(t, lg.Log(rec("y", "UserPromptSubmit", "")))

	records, stats, err := ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, records, 2)
	assert.Equal(t, 2, stats.Lines)

	_, err = os.Stat(filepath.Join(dir, logger.AllEventsFile))
	assert.NoError(t, err)
}
