// Package analyzer holds the syntactic layers the policy engine builds on:
// a regex matcher that reports every match with its position, and a shell
// parser that recovers command structure (executables, flags, arguments).
//
// Neither layer interprets its input. Text is only ever a match subject.
package analyzer

import "fmt"

// CaseMode selects how a rule treats letter case.
type CaseMode string

const (
	// CaseInsensitive compiles the pattern with (?i). Natural-language rules.
	CaseInsensitive CaseMode = "insensitive"
	// CaseLower lower-cases the subject before matching. Command rules, so
	// "RM -RF" cannot slip past a pattern written as "rm -rf".
	CaseLower CaseMode = "lower"
	// CaseSensitive matches as written. Path rules on case-sensitive filesystems.
	CaseSensitive CaseMode = "sensitive"
)

// RegexRule is the matcher's view of a policy rule. It mirrors the fields of
// policy.Rule it needs, avoiding an import cycle with the policy package.
type RegexRule struct {
	ID       string
	Group    string
	Category string
	Pattern  string
	Case     CaseMode
}

// Match is one occurrence of a rule's pattern in the subject text.
type Match struct {
	RuleID   string
	Group    string
	Category string
	Text     string // matched substring of the original text
	Start    int    // byte offset, inclusive
	End      int    // byte offset, exclusive
}

func (m Match) String() string {
	return fmt.Sprintf("%s[%d:%d] %q", m.Category, m.Start, m.End, m.Text)
}

// MatchError reports a rule whose pattern could not be compiled. The rule is
// skipped; the remaining rules keep working.
type MatchError struct {
	RuleID  string
	Pattern string
	Err     error
}

func (e *MatchError) Error() string {
	return fmt.Sprintf("rule %q: invalid pattern %q: %v", e.RuleID, e.Pattern, e.Err)
}

func (e *MatchError) Unwrap() error { return e.Err }

// ---------------------------------------------------------------------------
// ParsedCommand — produced by the structural analyzer
// ---------------------------------------------------------------------------

// ParsedCommand is the structural representation of a shell command.
type ParsedCommand struct {
	// Segments are the simple commands in source order.
	// "make && rm -rf dist | tee log" → 3 segments.
	Segments []CommandSegment

	// Subcommands found via indirect execution parsing (depth > 0).
	// For "bash -c 'rm -rf /'", the inner "rm -rf /" is a subcommand.
	Subcommands []*ParsedCommand
}

// CommandSegment is a single simple command.
type CommandSegment struct {
	Raw        string          // words joined by a single space
	Executable string          // lower-cased base name, wrappers such as sudo removed
	Args       []string        // positional arguments, quotes removed, case kept
	Flags      map[string]bool // lower-cased flag names: "r", "f", "recursive"
	Redirects  []string        // redirection targets: "> .env" → ".env"
	IsShell    bool            // executable is a known shell interpreter
}

// FilePaths returns the words that name files: the arguments of commands
// that read or write their operands, followed by the redirection targets.
// Arguments of anything else (a commit message, an echo) are left out.
func (s CommandSegment) FilePaths() []string {
	var out []string
	if fileCommands[s.Executable] {
		out = append(out, s.Args...)
	}
	return append(out, s.Redirects...)
}

// HasFlag reports whether any of the given flag names is set.
func (s CommandSegment) HasFlag(names ...string) bool {
	for _, n := range names {
		if s.Flags[n] {
			return true
		}
	}
	return false
}

// Deletion is an rm invocation together with the intent the policy engine
// cares about.
type Deletion struct {
	Raw       string
	Targets   []string
	Recursive bool
	Force     bool
}
