package logger

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/renameio/v2"
	"go.uber.org/zap"
)

const (
	RecentFile = "recent.json"

	maxLockRetries = 50
	lockRetryDelay = 10 * time.Millisecond
)

// updateRecent adds one encoded record to recent.json and trims it to the
// newest recentLimit entries. The read-modify-write runs under an exclusive
// lock on recent.json.lock and the file is replaced atomically. When the
// lock stays busy the update is skipped.
func (l *AuditLogger) updateRecent(line []byte) error {
	path := filepath.Join(l.dir, RecentFile)
	lock := flock.New(path + ".lock")

	var locked bool
	var err error
	for i := 0; i < maxLockRetries; i++ {
		locked, err = lock.TryLock()
		if err != nil {
			return fmt.Errorf("lock %s: %w", path, err)
		}
		if locked {
			break
		}
		time.Sleep(lockRetryDelay)
	}
	if !locked {
		l.diag.Warn("recent view is locked by another process, update skipped", zap.String("path", path))
		return nil
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			l.diag.Debug("failed to unlock recent view", zap.Error(err), zap.String("path", path))
		}
	}()

	records, err := readRecent(path)
	if err != nil {
		l.diag.Warn("recent view unreadable, starting over", zap.Error(err), zap.String("path", path))
		records = nil
	}

	records = append(records, json.RawMessage(line))
	if len(records) > l.recentLimit {
		records = records[len(records)-l.recentLimit:]
	}

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	if err := renameio.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// ReadRecent returns the records of the bounded view, oldest first.
func ReadRecent(dir string) ([]Record, error) {
	raw, err := readRecent(filepath.Join(dir, RecentFile))
	if err != nil {
		return nil, err
	}
	out := make([]Record, 0, len(raw))
	for _, r := range raw {
		var rec Record
		if err := json.Unmarshal(r, &rec); err != nil {
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

func readRecent(path string) ([]json.RawMessage, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var records []json.RawMessage
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return records, nil
}
