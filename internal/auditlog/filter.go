package auditlog

import (
	"time"

	"github.com/samber/lo"

	"github.com/gzhole/hookwarden/internal/logger"
)

// Filter selects records. Zero-valued fields do not constrain; set fields
// combine conjunctively.
type Filter struct {
	// Since drops records older than this instant and records without a
	// readable timestamp.
	Since     time.Time
	EventType string
	Tool      string
}

// WithinHours returns a Filter window covering the last hours before now.
// hours <= 0 means no window.
func WithinHours(hours int, now time.Time) time.Time {
	if hours <= 0 {
		return time.Time{}
	}
	return now.Add(-time.Duration(hours) * time.Hour)
}

func (f Filter) Match(rec logger.Record) bool {
	if !f.Since.IsZero() {
		ts := rec.Time()
		if ts.IsZero() || ts.Before(f.Since) {
			return false
		}
	}
	if f.EventType != "" && rec.EventType != f.EventType {
		return false
	}
	if f.Tool != "" && rec.ToolName != f.Tool {
		return false
	}
	return true
}

// Apply returns the matching records in their original order.
func (f Filter) Apply(records []logger.Record) []logger.Record {
	return lo.Filter(records, func(rec logger.Record, _ int) bool {
		return f.Match(rec)
	})
}

// Last keeps the final n records; n <= 0 keeps all.
func Last(records []logger.Record, n int) []logger.Record {
	if n <= 0 || n >= len(records) {
		return records
	}
	return records[len(records)-n:]
}
