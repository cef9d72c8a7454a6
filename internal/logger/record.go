package logger

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/google/uuid"

	"github.com/gzhole/hookwarden/internal/event"
	"github.com/gzhole/hookwarden/internal/policy"
	"github.com/gzhole/hookwarden/internal/redact"
)

// TimestampLayout is UTC with millisecond precision and a literal Z.
const TimestampLayout = "2006-01-02T15:04:05.000Z"

// Record is one audit log line. The payload itself is only kept redacted;
// its length and hash identify it.
type Record struct {
	ID            string          `json:"id"`
	Timestamp     string          `json:"timestamp"`
	EventType     string          `json:"event_type"`
	ToolName      string          `json:"tool_name,omitempty"`
	SessionID     string          `json:"session_id"`
	Cwd           string          `json:"cwd,omitempty"`
	ToolInput     map[string]any  `json:"tool_input,omitempty"`
	Input         map[string]any  `json:"input,omitempty"`
	Verdict       string          `json:"verdict"`
	Categories    []string        `json:"categories,omitempty"`
	Reasons       []policy.Reason `json:"reasons,omitempty"`
	MatchCount    int             `json:"match_count"`
	PayloadLen    int             `json:"payload_len"`
	PayloadSHA256 string          `json:"payload_sha256,omitempty"`
}

// Time parses the record timestamp. The zero time is returned for records
// whose timestamp is missing or malformed.
func (r Record) Time() time.Time {
	for _, layout := range []string{TimestampLayout, time.RFC3339Nano} {
		if t, err := time.Parse(layout, r.Timestamp); err == nil {
			return t
		}
	}
	return time.Time{}
}

// NewRecord builds the audit record for an evaluated event. includeInput
// stores the whole (redacted) input object as well.
func NewRecord(ev event.Event, d policy.Decision, includeInput bool) Record {
	ts := ev.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}

	rec := Record{
		ID:         uuid.NewString(),
		Timestamp:  ts.UTC().Format(TimestampLayout),
		EventType:  ev.HookEventName,
		ToolName:   ev.ToolName,
		SessionID:  ev.SessionID,
		Cwd:        ev.Cwd,
		ToolInput:  redact.RedactMap(ev.ToolInput),
		Verdict:    string(d.Verdict),
		Categories: d.Categories(),
		Reasons:    redactReasons(d.Reasons),
		MatchCount: d.MatchCount(),
	}
	if rec.EventType == "" {
		rec.EventType = event.Unknown
	}
	if rec.SessionID == "" {
		rec.SessionID = event.Unknown
	}
	if includeInput {
		rec.Input = redact.RedactMap(ev.Raw)
	}

	if payload := ev.Payload(); payload != "" {
		sum := sha256.Sum256([]byte(payload))
		rec.PayloadLen = len(payload)
		rec.PayloadSHA256 = hex.EncodeToString(sum[:])
	}
	return rec
}

// Matched text can be the very secret a rule caught.
func redactReasons(reasons []policy.Reason) []policy.Reason {
	if len(reasons) == 0 {
		return nil
	}
	out := make([]policy.Reason, len(reasons))
	for i, r := range reasons {
		r.Match = redact.Redact(r.Match)
		r.Message = redact.Redact(r.Message)
		out[i] = r
	}
	return out
}
