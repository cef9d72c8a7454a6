package analyzer

import (
	"errors"
	"regexp"
	"slices"
)

type compiledRule struct {
	rule RegexRule
	re   *regexp.Regexp
}

// RegexAnalyzer applies a fixed list of precompiled rules to untrusted text.
// It is safe for concurrent use once built.
type RegexAnalyzer struct {
	rules []compiledRule
}

// NewRegexAnalyzer compiles rules in order. Rules that fail to compile are
// left out and reported as *MatchError values; the analyzer built from the
// rest is always usable.
func NewRegexAnalyzer(rules []RegexRule) (*RegexAnalyzer, []error) {
	a := &RegexAnalyzer{rules: make([]compiledRule, 0, len(rules))}
	var errs []error

	for _, r := range rules {
		if r.Pattern == "" {
			errs = append(errs, &MatchError{RuleID: r.ID, Err: errors.New("empty pattern")})
			continue
		}
		expr := r.Pattern
		if r.Case == CaseInsensitive {
			expr = "(?i)" + expr
		}
		re, err := regexp.Compile(expr)
		if err != nil {
			errs = append(errs, &MatchError{RuleID: r.ID, Pattern: r.Pattern, Err: err})
			continue
		}
		a.rules = append(a.rules, compiledRule{rule: r, re: re})
	}
	return a, errs
}

// Rules returns the rules that compiled, in evaluation order.
func (a *RegexAnalyzer) Rules() []RegexRule {
	out := make([]RegexRule, len(a.rules))
	for i, cr := range a.rules {
		out[i] = cr.rule
	}
	return out
}

// Match runs every rule against text and returns all matches ordered by
// start offset. Matches sharing an offset keep rule order. Nothing is
// deduplicated.
func (a *RegexAnalyzer) Match(text string) []Match {
	return a.match(text, func(RegexRule) bool { return true })
}

// MatchGroup is Match restricted to the rules of one group.
func (a *RegexAnalyzer) MatchGroup(text, group string) []Match {
	return a.match(text, func(r RegexRule) bool { return r.Group == group })
}

func (a *RegexAnalyzer) match(text string, keep func(RegexRule) bool) []Match {
	var matches []Match
	var lowered string
	loweredDone := false

	for _, cr := range a.rules {
		if !keep(cr.rule) {
			continue
		}
		subject := text
		if cr.rule.Case == CaseLower {
			if !loweredDone {
				lowered = asciiLower(text)
				loweredDone = true
			}
			subject = lowered
		}
		for _, loc := range cr.re.FindAllStringIndex(subject, -1) {
			matches = append(matches, Match{
				RuleID:   cr.rule.ID,
				Group:    cr.rule.Group,
				Category: cr.rule.Category,
				Text:     text[loc[0]:loc[1]],
				Start:    loc[0],
				End:      loc[1],
			})
		}
	}

	slices.SortStableFunc(matches, func(x, y Match) int { return x.Start - y.Start })
	return matches
}

// asciiLower folds A-Z only, so byte offsets in the result line up with the
// input.
func asciiLower(s string) string {
	b := []byte(s)
	changed := false
	for i, c := range b {
		if 'A' <= c && c <= 'Z' {
			b[i] = c + ('a' - 'A')
			changed = true
		}
	}
	if !changed {
		return s
	}
	return string(b)
}
