package logger

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofrs/flock"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/gzhole/hookwarden/internal/event"
	"github.com/gzhole/hookwarden/internal/policy"
)

func testRecord(eventType, verdict string) Record {
	return Record{
		ID:         "id-" + eventType,
		Timestamp:  "2026-02-02T12:00:00.000Z",
		EventType:  eventType,
		ToolName:   "Bash",
		SessionID:  "s1",
		Verdict:    verdict,
		MatchCount: 0,
	}
}

func readLines(t *testing.T, path string) []string {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("failed to open %s: %v", path, err)
	}
	defer f.Close()

	var lines []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	return lines
}

func TestAuditLogger_Log(t *testing.T) {
	tmpDir := t.TempDir()

	lg, err := New(tmpDir, 10, nil)
	if err != nil {
		t.Fatalf("failed to create logger: %v", err)
	}
	defer func() {
		_ = lg.Close()
	}()

	if err := lg.Log(testRecord("PreToolUse", "ALLOW")); err != nil {
		t.Fatalf("failed to log record: %v", err)
	}
	if err := lg.Log(testRecord("UserPromptSubmit", "BLOCK")); err != nil {
		t.Fatalf("failed to log record: %v", err)
	}

	all := readLines(t, filepath.Join(tmpDir, AllEventsFile))
	if len(all) != 2 {
		t.Fatalf("expected 2 lines in combined log, got %d", len(all))
	}
	var parsed Record
	if err := json.Unmarshal([]byte(all[1]), &parsed); err != nil {
		t.Fatalf("failed to parse log line as JSON: %v", err)
	}
	if parsed.Verdict != "BLOCK" || parsed.EventType != "UserPromptSubmit" {
		t.Errorf("unexpected record: %+v", parsed)
	}

	if daily := readLines(t, filepath.Join(tmpDir, DailyDir, "2026-02-02.jsonl")); len(daily) != 2 {
		t.Errorf("expected 2 lines in daily log, got %d", len(daily))
	}
	if perType := readLines(t, filepath.Join(tmpDir, EventsDir, "PreToolUse.jsonl")); len(perType) != 1 {
		t.Errorf("expected 1 line in PreToolUse log, got %d", len(perType))
	}

	info, err := os.Stat(filepath.Join(tmpDir, AllEventsFile))
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("expected log file mode 0600, got %v", info.Mode().Perm())
	}
}

func TestAuditLogger_RecentIsBounded(t *testing.T) {
	tmpDir := t.TempDir()
	lg, err := New(tmpDir, 3, nil)
	if err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 5; i++ {
		rec := testRecord("PreToolUse", "ALLOW")
		rec.ID = string(rune('a' + i))
		if err := lg.Log(rec); err != nil {
			t.Fatalf("log %d: %v", i, err)
		}
	}

	recent, err := ReadRecent(tmpDir)
	if err != nil {
		t.Fatal(err)
	}
	if len(recent) != 3 {
		t.Fatalf("expected 3 recent records, got %d", len(recent))
	}
	if recent[0].ID != "c" || recent[2].ID != "e" {
		t.Errorf("expected newest records c..e, got %s..%s", recent[0].ID, recent[2].ID)
	}
}

func TestAuditLogger_RecentDisabled(t *testing.T) {
	tmpDir := t.TempDir()
	lg, _ := New(tmpDir, 0, nil)
	if err := lg.Log(testRecord("Stop", "ALLOW")); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Join(tmpDir, RecentFile)); !os.IsNotExist(err) {
		t.Errorf("recent.json should not exist when the view is disabled, got %v", err)
	}
}

func TestAuditLogger_RecentSkippedWhileLocked(t *testing.T) {
	tmpDir := t.TempDir()
	core, logs := observer.New(zapcore.WarnLevel)
	lg, _ := New(tmpDir, 10, zap.New(core))

	held := flock.New(filepath.Join(tmpDir, RecentFile+".lock"))
	if ok, err := held.TryLock(); err != nil || !ok {
		t.Skipf("cannot take test lock: %v", err)
	}
	defer held.Unlock()

	start := time.Now()
	if err := lg.Log(testRecord("PreToolUse", "ALLOW")); err != nil {
		t.Fatalf("a busy recent view must not fail the write: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("lock wait should be bounded, took %v", elapsed)
	}
	if logs.FilterMessageSnippet("update skipped").Len() != 1 {
		t.Errorf("expected a skipped-update warning, got %v", logs.All())
	}
	if lines := readLines(t, filepath.Join(tmpDir, AllEventsFile)); len(lines) != 1 {
		t.Errorf("append-only log must still be written, got %d lines", len(lines))
	}
}

func TestAuditLogger_ConcurrentAppendsStayWhole(t *testing.T) {
	tmpDir := t.TempDir()
	const writers, perWriter = 4, 25

	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			lg, err := New(tmpDir, 50, nil)
			if err != nil {
				t.Error(err)
				return
			}
			for i := 0; i < perWriter; i++ {
				rec := testRecord("PreToolUse", "ALLOW")
				rec.Cwd = strings.Repeat("x", 512)
				_ = lg.Log(rec)
			}
		}()
	}
	wg.Wait()

	lines := readLines(t, filepath.Join(tmpDir, AllEventsFile))
	if len(lines) != writers*perWriter {
		t.Fatalf("expected %d lines, got %d", writers*perWriter, len(lines))
	}
	for i, line := range lines {
		if !json.Valid([]byte(line)) {
			t.Fatalf("line %d is not a whole record", i)
		}
	}
}

func TestAuditLogger_StorageError(t *testing.T) {
	tmpDir := t.TempDir()
	lg, err := New(tmpDir, 0, nil)
	if err != nil {
		t.Fatal(err)
	}

	// A directory where the combined log should be makes that append fail.
	if err := os.Mkdir(filepath.Join(tmpDir, AllEventsFile), 0700); err != nil {
		t.Fatal(err)
	}

	err = lg.Log(testRecord("PreToolUse", "ALLOW"))
	if !errors.Is(err, ErrStorage) {
		t.Fatalf("expected ErrStorage, got %v", err)
	}
	if lines := readLines(t, filepath.Join(tmpDir, EventsDir, "PreToolUse.jsonl")); len(lines) != 1 {
		t.Errorf("other destinations should still be written, got %d lines", len(lines))
	}
}

func TestEventFileName(t *testing.T) {
	tests := map[string]string{
		"PreToolUse": "PreToolUse.jsonl",
		"../../etc":  ".._.._etc.jsonl",
		"":           "unknown.jsonl",
		"a b/c":      "a_b_c.jsonl",
		"..":         "unknown.jsonl",
	}
	for in, want := range tests {
		if got := EventFileName(in); got != want {
			t.Errorf("EventFileName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestNewRecord(t *testing.T) {
	now := time.Date(2026, 2, 2, 12, 0, 0, 123_000_000, time.FixedZone("X", 3600))
	ev, err := event.Parse([]byte(`{"hook_event_name":"PreToolUse","session_id":"abc","tool_name":"Bash","tool_input":{"command":"export API_KEY=hunter2 && rm -rf /"}}`), now)
	if err != nil {
		t.Fatal(err)
	}
	d := policy.Decision{
		Verdict: policy.VerdictBlock,
		Reasons: []policy.Reason{{Category: policy.CategoryDangerousDelete, RuleID: "dangerous-root", Match: "/", Message: "root", Verdict: policy.VerdictBlock}},
	}

	rec := NewRecord(ev, d, true)

	if rec.Timestamp != "2026-02-02T11:00:00.123Z" {
		t.Errorf("unexpected timestamp %q", rec.Timestamp)
	}
	if rec.ID == "" || rec.SessionID != "abc" || rec.EventType != "PreToolUse" {
		t.Errorf("unexpected metadata: %+v", rec)
	}
	if rec.Verdict != "BLOCK" || rec.MatchCount != 1 || len(rec.Categories) != 1 {
		t.Errorf("unexpected decision fields: %+v", rec)
	}
	if rec.PayloadLen != len("export API_KEY=hunter2 && rm -rf /") || len(rec.PayloadSHA256) != 64 {
		t.Errorf("unexpected payload fields: %d %q", rec.PayloadLen, rec.PayloadSHA256)
	}

	data, _ := json.Marshal(rec)
	if bytes.Contains(data, []byte("hunter2")) {
		t.Errorf("secret leaked into record: %s", data)
	}
	if rec.Input == nil {
		t.Error("expected input when includeInput is set")
	}
	if NewRecord(ev, d, false).Input != nil {
		t.Error("expected no input when includeInput is off")
	}
	if !rec.Time().Equal(now.Truncate(time.Millisecond)) {
		t.Errorf("Time() round trip: %v vs %v", rec.Time(), now)
	}
}

func TestNewDiagnostics_LevelGate(t *testing.T) {
	var buf bytes.Buffer
	diag := NewDiagnostics(&buf, "warn")
	diag.Info("hidden")
	diag.Warn("shown", zap.String("k", "v"))
	_ = diag.Sync()

	out := buf.String()
	if strings.Contains(out, "hidden") || !strings.Contains(out, "shown") {
		t.Errorf("unexpected diagnostics output: %q", out)
	}
}
