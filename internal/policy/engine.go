package policy

import (
	"fmt"
	"strings"

	"github.com/samber/lo"

	"github.com/gzhole/hookwarden/internal/analyzer"
	"github.com/gzhole/hookwarden/internal/config"
	"github.com/gzhole/hookwarden/internal/event"
	"github.com/gzhole/hookwarden/internal/normalize"
)

// Engine turns events into decisions. It holds no mutable state, so one
// engine may evaluate any number of events.
type Engine struct {
	cfg     config.Config
	rules   *RuleSet
	byID    map[string]Rule
	matcher *analyzer.RegexAnalyzer
	shell   *analyzer.StructuralAnalyzer
	homeDir string
}

// NewEngine compiles the rule set. Rules whose pattern does not compile are
// dropped and returned as *analyzer.MatchError values; the engine works with
// the rest.
func NewEngine(cfg config.Config, rules *RuleSet) (*Engine, []error) {
	matcher, errs := analyzer.NewRegexAnalyzer(lo.Map(rules.Rules, func(r Rule, _ int) analyzer.RegexRule {
		return r.regexRule()
	}))

	return &Engine{
		cfg:     cfg,
		rules:   rules,
		byID:    lo.KeyBy(rules.Rules, func(r Rule) string { return r.ID }),
		matcher: matcher,
		shell:   analyzer.NewStructuralAnalyzer(2),
		homeDir: normalize.HomeDir(),
	}, errs
}

// RuleSet returns the engine's rule set (for inspection/testing).
func (e *Engine) RuleSet() *RuleSet {
	return e.rules
}

// Active reports whether the rule survived compilation.
func (e *Engine) Active(id string) bool {
	return lo.ContainsBy(e.matcher.Rules(), func(r analyzer.RegexRule) bool { return r.ID == id })
}

// Evaluate decides one event. Proposed tool invocations and prompt
// submissions are checked; every other event, including a tool invocation
// reported after it ran, is allowed.
func (e *Engine) Evaluate(ev event.Event) Decision {
	switch {
	case ev.AfterAction():
	case ev.Kind == event.KindToolInvocation:
		return e.EvaluateTool(ev.Tool)
	case ev.Kind == event.KindPromptSubmission:
		return e.EvaluatePrompt(ev.Prompt)
	}
	return newDecisionBuilder().decision()
}

// decisionBuilder collects reasons in the order they fire.
type decisionBuilder struct {
	reasons    []Reason
	violations []analyzer.Match
}

func newDecisionBuilder() *decisionBuilder {
	return &decisionBuilder{}
}

func (b *decisionBuilder) add(r Reason, m *analyzer.Match) {
	b.reasons = append(b.reasons, r)
	if m != nil && r.Verdict == VerdictBlock {
		b.violations = append(b.violations, *m)
	}
}

// decision applies the tie-break: Block over Warn over Allow. Every fired
// reason is kept.
func (b *decisionBuilder) decision() Decision {
	d := Decision{
		Verdict:    VerdictAllow,
		Reasons:    b.reasons,
		Violations: b.violations,
	}
	for _, r := range b.reasons {
		d.Verdict = d.Verdict.Stricter(r.Verdict)
	}
	d.Explanation = buildExplanation(d)
	return d
}

func (e *Engine) rule(id string) Rule {
	return e.byID[id]
}

func (e *Engine) reasonFor(m analyzer.Match, message string) Reason {
	r := e.rule(m.RuleID)
	if message == "" {
		message = r.Reason
	}
	return Reason{
		Category: r.Category,
		RuleID:   r.ID,
		Match:    m.Text,
		Message:  message,
		Verdict:  e.rules.Verdict(r),
	}
}

func buildExplanation(d Decision) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "Decision: %s\n", d.Verdict)

	if len(d.Reasons) > 0 {
		ids := lo.Uniq(lo.FilterMap(d.Reasons, func(r Reason, _ int) (string, bool) {
			return r.RuleID, r.RuleID != ""
		}))
		if len(ids) > 0 {
			fmt.Fprintf(&sb, "Triggered rules: %s\n", strings.Join(ids, ", "))
		}
		sb.WriteString("Reasons:\n")
		for _, r := range d.Reasons {
			fmt.Fprintf(&sb, "  - [%s] %s: %s", r.Verdict, r.Category, r.Message)
			if r.Match != "" {
				fmt.Fprintf(&sb, " (%q)", r.Match)
			}
			sb.WriteString("\n")
		}
	}

	return sb.String()
}
