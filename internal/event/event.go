// Package event adapts the host's hook payload into an immutable Event.
//
// Hosts send differently shaped JSON depending on the hook and the tool.
// Parse absorbs that variability so the policy engine only ever sees one of
// the ToolCall variants below.
package event

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

const Unknown = "unknown"

// Hook names the host sends in hook_event_name.
const (
	HookPreToolUse       = "PreToolUse"
	HookPostToolUse      = "PostToolUse"
	HookUserPromptSubmit = "UserPromptSubmit"
)

var (
	ErrEmptyInput     = errors.New("empty hook input")
	ErrMalformedInput = errors.New("malformed hook input")
)

type Kind int

const (
	KindOther Kind = iota
	KindToolInvocation
	KindPromptSubmission
)

func (k Kind) String() string {
	switch k {
	case KindToolInvocation:
		return "ToolInvocation"
	case KindPromptSubmission:
		return "PromptSubmission"
	default:
		return "Other"
	}
}

// ToolCall is the tagged union of tool arguments. The unexported method seals
// it to the variants declared here.
type ToolCall interface {
	toolCall()
}

// FileOp is a Read/Edit/MultiEdit/Write style call against a single path.
type FileOp struct {
	Tool string
	Path string
}

// ShellOp is a shell execution request.
type ShellOp struct {
	Tool    string
	Command string
}

// OtherOp is any tool the engine has no specific checks for.
type OtherOp struct {
	Tool string
}

func (FileOp) toolCall()  {}
func (ShellOp) toolCall() {}
func (OtherOp) toolCall() {}

// Event is one proposed host action.
type Event struct {
	Kind          Kind
	HookEventName string
	ToolName      string
	Tool          ToolCall
	Prompt        string
	SessionID     string
	Cwd           string
	Timestamp     time.Time

	// ToolInput is the structured tool argument object as received.
	ToolInput map[string]any
	// Raw is the whole decoded input object.
	Raw map[string]any
}

// AfterAction reports whether the host sent the event once the action had
// already run, when blocking it can no longer prevent anything.
func (e Event) AfterAction() bool {
	return e.HookEventName == HookPostToolUse
}

// Payload returns the text the engine evaluates: the prompt for prompt
// submissions, the command or path for tool calls.
func (e Event) Payload() string {
	switch t := e.Tool.(type) {
	case ShellOp:
		return t.Command
	case FileOp:
		return t.Path
	}
	return e.Prompt
}

var fileTools = map[string]bool{
	"read": true, "edit": true, "multiedit": true, "write": true,
}

var shellTools = map[string]bool{
	"bash": true, "shell": true, "sh": true, "run_shell_command": true,
	"execute_command": true, "terminal": true, "run_terminal_cmd": true,
}

// IsFileTool reports whether name is one of the file-access tools.
func IsFileTool(name string) bool { return fileTools[strings.ToLower(name)] }

// IsShellTool reports whether name is a shell-execution tool.
func IsShellTool(name string) bool { return shellTools[strings.ToLower(name)] }

// Parse decodes one hook payload. Missing fields default to "unknown" or the
// empty string; only empty or non-object input is an error.
func Parse(data []byte, now time.Time) (Event, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return Event{}, ErrEmptyInput
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return Event{}, fmt.Errorf("%w: %v", ErrMalformedInput, err)
	}
	if raw == nil {
		return Event{}, fmt.Errorf("%w: not a JSON object", ErrMalformedInput)
	}

	ev := Event{
		HookEventName: firstString(raw, "hook_event_name", "event"),
		ToolName:      firstString(raw, "tool_name"),
		SessionID:     firstString(raw, "session_id"),
		Cwd:           firstString(raw, "cwd"),
		Prompt:        firstString(raw, "prompt"),
		Timestamp:     now.UTC(),
		Raw:           raw,
	}

	ev.ToolInput = objectField(raw, "tool_input")
	if tool := objectField(raw, "tool"); tool != nil {
		if ev.ToolName == "" {
			ev.ToolName = firstString(tool, "name")
		}
		if ev.ToolInput == nil {
			ev.ToolInput = objectField(tool, "arguments")
		}
	}
	if ev.ToolName == "" {
		if name, ok := raw["tool"].(string); ok {
			ev.ToolName = name
		}
	}

	ev.Kind = classify(ev)
	ev.Tool = adaptTool(ev.ToolName, ev.ToolInput)

	if ev.HookEventName == "" {
		ev.HookEventName = Unknown
	}
	if ev.ToolName == "" && ev.Kind == KindToolInvocation {
		ev.ToolName = Unknown
	}
	if ev.SessionID == "" {
		ev.SessionID = Unknown
	}
	return ev, nil
}

func classify(ev Event) Kind {
	switch ev.HookEventName {
	case HookPreToolUse, HookPostToolUse:
		return KindToolInvocation
	case HookUserPromptSubmit:
		return KindPromptSubmission
	}
	switch {
	case ev.ToolName != "":
		return KindToolInvocation
	case ev.Prompt != "":
		return KindPromptSubmission
	}
	return KindOther
}

func adaptTool(name string, input map[string]any) ToolCall {
	switch {
	case IsFileTool(name):
		return FileOp{Tool: name, Path: firstString(input, "file_path", "path", "notebook_path")}
	case IsShellTool(name):
		return ShellOp{Tool: name, Command: firstString(input, "command", "cmd", "command_line")}
	}
	return OtherOp{Tool: name}
}

func firstString(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if s, ok := m[k].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

func objectField(m map[string]any, key string) map[string]any {
	if obj, ok := m[key].(map[string]any); ok {
		return obj
	}
	return nil
}
