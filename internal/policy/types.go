package policy

import (
	"github.com/samber/lo"

	"github.com/gzhole/hookwarden/internal/analyzer"
)

type Verdict string

const (
	VerdictAllow Verdict = "ALLOW"
	VerdictWarn  Verdict = "WARN"
	VerdictBlock Verdict = "BLOCK"
)

// severity returns a numeric rank for priority comparison.
// Higher number = more restrictive verdict.
func (v Verdict) severity() int {
	switch v {
	case VerdictBlock:
		return 3
	case VerdictWarn:
		return 2
	case VerdictAllow:
		return 1
	default:
		return 0
	}
}

// Stricter returns the more restrictive of v and o.
func (v Verdict) Stricter(o Verdict) Verdict {
	if o.severity() > v.severity() {
		return o
	}
	return v
}

type Action string

const (
	ActionBlock Action = "block"
	ActionWarn  Action = "warn"
	ActionAllow Action = "allow"
)

func (a Action) Verdict() Verdict {
	switch a {
	case ActionBlock:
		return VerdictBlock
	case ActionWarn:
		return VerdictWarn
	default:
		return VerdictAllow
	}
}

func (a Action) valid() bool {
	return a == ActionBlock || a == ActionWarn || a == ActionAllow
}

// Rule groups. The tool path consults the first three, the prompt path the
// last four.
const (
	GroupDangerousPath = "dangerous_path"
	GroupSafeCleanup   = "safe_cleanup"
	GroupEnvFile       = "env_file"
	GroupMalicious     = "malicious"
	GroupFileSafety    = "file_safety"
	GroupQuality       = "quality"
	GroupScope         = "scope"
)

const (
	CategoryDangerousDelete  = "DangerousDelete"
	CategoryRecursiveDelete  = "RecursiveDelete"
	CategorySafeCleanup      = "SafeCleanup"
	CategoryEnvFileAccess    = "EnvFileAccess"
	CategoryCommandInjection = "CommandInjection"
	CategoryPathTraversal    = "PathTraversal"
	CategorySensitivePath    = "SensitivePath"
	CategoryCodeInjection    = "CodeInjection"
	CategoryCredentialLeak   = "CredentialLeak"
	CategorySensitiveFileOp  = "SensitiveFileOp"
	CategoryContentLength    = "ContentLength"
	CategoryRepetition       = "Repetition"
	CategorySpamIndicator    = "SpamIndicator"
	CategoryOutOfScope       = "OutOfScope"
)

// groupDefaults holds the category a rule gets when it names none, the
// action it gets when nothing overrides it, and the strictest action the
// group may produce.
var groupDefaults = map[string]struct {
	category string
	action   Action
	ceiling  Action
}{
	GroupDangerousPath: {CategoryDangerousDelete, ActionBlock, ActionBlock},
	GroupSafeCleanup:   {CategorySafeCleanup, ActionAllow, ActionBlock},
	GroupEnvFile:       {CategoryEnvFileAccess, ActionWarn, ActionBlock},
	GroupMalicious:     {CategoryCommandInjection, ActionBlock, ActionBlock},
	GroupFileSafety:    {CategorySensitiveFileOp, ActionWarn, ActionWarn},
	GroupQuality:       {CategorySpamIndicator, ActionWarn, ActionWarn},
	GroupScope:         {CategoryOutOfScope, ActionWarn, ActionWarn},
}

// KnownGroup reports whether g is one of the rule groups above.
func KnownGroup(g string) bool {
	_, ok := groupDefaults[g]
	return ok
}

// Rule is a single pattern rule as declared in defaults, config or packs.
type Rule struct {
	ID       string `yaml:"id"`
	Group    string `yaml:"group"`
	Category string `yaml:"category"`
	Pattern  string `yaml:"pattern"`
	Case     string `yaml:"case,omitempty"`
	Action   Action `yaml:"action,omitempty"`
	Reason   string `yaml:"reason,omitempty"`

	// Source is where the rule came from: "builtin", "config" or a pack name.
	Source string `yaml:"-"`
}

func (r Rule) regexRule() analyzer.RegexRule {
	return analyzer.RegexRule{
		ID:       r.ID,
		Group:    r.Group,
		Category: r.Category,
		Pattern:  r.Pattern,
		Case:     analyzer.CaseMode(r.Case),
	}
}

// Reason is one fired rule, with the verdict it alone implies.
type Reason struct {
	Category string  `json:"category"`
	RuleID   string  `json:"rule_id,omitempty"`
	Match    string  `json:"match,omitempty"`
	Message  string  `json:"message"`
	Verdict  Verdict `json:"verdict"`
}

// Decision is the engine's answer for one event.
type Decision struct {
	Verdict Verdict
	Reasons []Reason
	// Violations are the matches that produced a Block, in text order.
	Violations []analyzer.Match
	// Sanitized is set for prompt submissions only.
	Sanitized   string
	Explanation string
}

// Categories returns the distinct categories of the fired reasons, in first
// seen order.
func (d Decision) Categories() []string {
	return lo.Uniq(lo.Map(d.Reasons, func(r Reason, _ int) string { return r.Category }))
}

// MatchCount is the number of fired reasons.
func (d Decision) MatchCount() int { return len(d.Reasons) }
