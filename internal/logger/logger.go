// Package logger writes the append-only audit trail: every record goes to
// the combined log, the day's log and its event type's log, plus a bounded
// recent-records view.
package logger

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	AllEventsFile = "all_events.jsonl"
	DailyDir      = "daily"
	EventsDir     = "events"
)

// ErrStorage wraps every failure to persist a record. The decision that
// produced the record stands regardless.
var ErrStorage = errors.New("audit storage error")

type AuditLogger struct {
	dir         string
	recentLimit int
	diag        *zap.Logger
	mu          sync.Mutex
}

// New prepares the log directory tree under dir. recentLimit bounds
// recent.json; 0 disables it. diag may be nil.
func New(dir string, recentLimit int, diag *zap.Logger) (*AuditLogger, error) {
	if diag == nil {
		diag = zap.NewNop()
	}
	for _, d := range []string{dir, filepath.Join(dir, DailyDir), filepath.Join(dir, EventsDir)} {
		if err := os.MkdirAll(d, 0700); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrStorage, err)
		}
	}
	return &AuditLogger{dir: dir, recentLimit: recentLimit, diag: diag}, nil
}

// Dir returns the log directory.
func (l *AuditLogger) Dir() string { return l.dir }

// Log appends rec to every destination. A failing destination does not stop
// the others; all failures come back joined under ErrStorage.
func (l *AuditLogger) Log(rec Record) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("%w: encode record: %w", ErrStorage, err)
	}
	data = append(data, '\n')

	var errs []error
	for _, path := range l.paths(rec) {
		if err := appendLine(path, data); err != nil {
			errs = append(errs, err)
		}
	}

	if l.recentLimit > 0 {
		if err := l.updateRecent(data[:len(data)-1]); err != nil {
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrStorage, errors.Join(errs...))
	}
	return nil
}

// Close is a no-op; files are opened per write.
func (l *AuditLogger) Close() error {
	return nil
}

func (l *AuditLogger) paths(rec Record) []string {
	day := rec.Time()
	if day.IsZero() {
		day = time.Now()
	}
	return []string{
		filepath.Join(l.dir, AllEventsFile),
		filepath.Join(l.dir, DailyDir, day.UTC().Format("2006-01-02")+".jsonl"),
		filepath.Join(l.dir, EventsDir, EventFileName(rec.EventType)),
	}
}

var unsafeNameChars = regexp.MustCompile(`[^A-Za-z0-9_.-]`)

// EventFileName maps an event type onto its per-type log file name.
func EventFileName(eventType string) string {
	name := unsafeNameChars.ReplaceAllString(eventType, "_")
	if name == "" || name == "." || name == ".." {
		name = "unknown"
	}
	return name + ".jsonl"
}

// appendLine writes one complete line with a single write call, so
// concurrent writers on O_APPEND files never interleave within a line.
func appendLine(path string, line []byte) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return err
	}
	if _, err := f.Write(line); err != nil {
		_ = f.Close()
		return fmt.Errorf("append %s: %w", path, err)
	}
	return f.Close()
}
