package policy

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/samber/lo"

	"github.com/gzhole/hookwarden/internal/analyzer"
	"github.com/gzhole/hookwarden/internal/redact"
)

// promptGroups run independently, in this order, over the original prompt.
var promptGroups = []string{GroupMalicious, GroupFileSafety, GroupQuality, GroupScope}

// EvaluatePrompt decides a prompt submission. Classification sees the
// original text; the sanitized prompt is computed afterwards and attached.
func (e *Engine) EvaluatePrompt(prompt string) Decision {
	b := newDecisionBuilder()

	for _, group := range promptGroups {
		for _, m := range e.matcher.MatchGroup(prompt, group) {
			b.add(e.reasonFor(m, ""), &m)
		}
		if group == GroupQuality {
			e.checkQuality(b, prompt)
		}
	}

	d := b.decision()
	d.Sanitized = redact.Sanitize(prompt)
	return d
}

// checkQuality runs the content checks that are not patterns: length and
// word repetition.
func (e *Engine) checkQuality(b *decisionBuilder, prompt string) {
	limits := e.cfg.Prompt

	if n := utf8.RuneCountInString(prompt); n > limits.MaxLength && !e.rules.Disabled(CategoryContentLength) {
		b.add(Reason{
			Category: CategoryContentLength,
			RuleID:   "quality-length",
			Message:  fmt.Sprintf("Extremely long prompt detected (%d > %d chars)", n, limits.MaxLength),
			Verdict:  e.rules.CategoryVerdict(GroupQuality, CategoryContentLength, ActionWarn),
		}, nil)
	}

	if e.rules.Disabled(CategoryRepetition) {
		return
	}
	if word, count, total, ok := repetition(prompt, limits.RepetitionMinWords, limits.RepetitionRatio); ok {
		b.add(Reason{
			Category: CategoryRepetition,
			RuleID:   "quality-repetition",
			Match:    word,
			Message:  fmt.Sprintf("High repetition detected (%d of %d words)", count, total),
			Verdict:  e.rules.CategoryVerdict(GroupQuality, CategoryRepetition, ActionWarn),
		}, nil)
	}
}

// repetition reports the most frequent lower-cased word when the prompt has
// more than minWords words and that word makes up more than ratio of them.
func repetition(prompt string, minWords int, ratio float64) (word string, count, total int, ok bool) {
	words := strings.Fields(strings.ToLower(prompt))
	total = len(words)
	if total <= minWords {
		return "", 0, total, false
	}

	freq := make(map[string]int, total)
	for _, w := range words {
		freq[w]++
		if freq[w] > count {
			word, count = w, freq[w]
		}
	}
	return word, count, total, float64(count) > float64(total)*ratio
}

// Violation is one blocking match as reported back to the host.
type Violation struct {
	RuleID   string `json:"rule_id"`
	Category string `json:"category"`
	Match    string `json:"match"`
	Position [2]int `json:"position"`
}

// ViolationList lists the blocking matches of a decision in text order.
func (d Decision) ViolationList() []Violation {
	return lo.Map(d.Violations, func(m analyzer.Match, _ int) Violation {
		return Violation{RuleID: m.RuleID, Category: m.Category, Match: m.Text, Position: [2]int{m.Start, m.End}}
	})
}
