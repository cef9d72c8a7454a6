package auditlog

import (
	"fmt"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/samber/lo"

	"github.com/gzhole/hookwarden/internal/event"
	"github.com/gzhole/hookwarden/internal/logger"
)

// Dimension is what a top-N report groups by.
type Dimension string

const (
	ByEventType Dimension = "type"
	ByTool      Dimension = "tool"
)

// ParseDimension accepts "type", "event", "event_type" and "tool".
func ParseDimension(s string) (Dimension, error) {
	switch strings.ToLower(s) {
	case "type", "event", "event_type", "":
		return ByEventType, nil
	case "tool", "tool_name":
		return ByTool, nil
	}
	return "", fmt.Errorf("unknown grouping %q (want type or tool)", s)
}

func (d Dimension) key(rec logger.Record) string {
	if d == ByTool {
		return rec.ToolName
	}
	return rec.EventType
}

// Count is one row of a grouped report.
type Count struct {
	Key   string `json:"key"`
	Count int    `json:"count"`
}

// Top returns the n most frequent values of d, most frequent first with
// ties broken by name. Records without a value are not counted. n <= 0
// returns every group.
func Top(records []logger.Record, d Dimension, n int) []Count {
	withKey := lo.Filter(records, func(rec logger.Record, _ int) bool { return d.key(rec) != "" })
	counts := lo.CountValuesBy(withKey, d.key)

	out := lo.Map(lo.Entries(counts), func(e lo.Entry[string, int], _ int) Count {
		return Count{Key: e.Key, Count: e.Value}
	})
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Key < out[j].Key
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// EventTypes lists the distinct event types, sorted.
func EventTypes(records []logger.Record) []string {
	return distinct(records, func(rec logger.Record) string { return rec.EventType })
}

// Sessions lists the distinct session ids, sorted, leaving out records whose
// session was not known.
func Sessions(records []logger.Record) []string {
	return lo.Without(distinct(records, func(rec logger.Record) string { return rec.SessionID }), event.Unknown)
}

func distinct(records []logger.Record, key func(logger.Record) string) []string {
	keys := lo.Compact(lo.Uniq(lo.Map(records, func(rec logger.Record, _ int) string { return key(rec) })))
	slices.Sort(keys)
	return keys
}

// Summary is the --stats report.
type Summary struct {
	Total    int            `json:"total"`
	Verdicts map[string]int `json:"verdicts"`
	Types    []Count        `json:"event_types"`
	Tools    []Count        `json:"tools"`
	Sessions int            `json:"sessions"`
	First    time.Time      `json:"first,omitzero"`
	Last     time.Time      `json:"last,omitzero"`
}

// Summarize builds the statistics report; top bounds the type and tool
// lists.
func Summarize(records []logger.Record, top int) Summary {
	s := Summary{
		Total:    len(records),
		Verdicts: lo.CountValuesBy(records, func(rec logger.Record) string { return rec.Verdict }),
		Types:    Top(records, ByEventType, top),
		Tools:    Top(records, ByTool, top),
		Sessions: len(Sessions(records)),
	}

	times := lo.Filter(lo.Map(records, func(rec logger.Record, _ int) time.Time { return rec.Time() }),
		func(t time.Time, _ int) bool { return !t.IsZero() })
	if len(times) > 0 {
		s.First = lo.MinBy(times, func(a, b time.Time) bool { return a.Before(b) })
		s.Last = lo.MaxBy(times, func(a, b time.Time) bool { return a.After(b) })
	}
	return s
}
