package policy

import (
	"errors"
	"fmt"
	"strings"

	"github.com/samber/lo"

	"github.com/gzhole/hookwarden/internal/analyzer"
	"github.com/gzhole/hookwarden/internal/config"
)

const (
	SourceBuiltin = "builtin"
	SourceConfig  = "config"
)

// RuleSet is the effective rule list for one invocation together with the
// action every category resolves to.
type RuleSet struct {
	Rules []Rule
	Packs []PackInfo

	actions          map[string]Action
	disabled         map[string]bool
	protectDangerous bool
}

// BuildRuleSet merges the built-in rules, the pattern lists and custom rules
// from cfg, and the enabled rule packs. Problems with individual rules or
// overrides are returned; the rule set is usable regardless.
func BuildRuleSet(cfg config.Config) (*RuleSet, []error) {
	var errs []error

	rules := DefaultRules()
	for i, p := range cfg.DangerousPathPatterns {
		rules = append(rules, fillDefaults(Rule{
			ID:      fmt.Sprintf("config-dangerous-path-%d", i+1),
			Group:   GroupDangerousPath,
			Pattern: p,
			Reason:  "configured dangerous path",
			Source:  SourceConfig,
		}))
	}
	for i, p := range cfg.SafeCleanupPatterns {
		rules = append(rules, fillDefaults(Rule{
			ID:      fmt.Sprintf("config-safe-cleanup-%d", i+1),
			Group:   GroupSafeCleanup,
			Pattern: p,
			Source:  SourceConfig,
		}))
	}
	for i, spec := range cfg.Rules {
		r := Rule{
			ID:       spec.ID,
			Group:    spec.Group,
			Category: spec.Category,
			Pattern:  spec.Pattern,
			Case:     spec.Case,
			Action:   Action(strings.ToLower(spec.Action)),
			Reason:   spec.Reason,
			Source:   SourceConfig,
		}
		if r.ID == "" {
			r.ID = fmt.Sprintf("config-rule-%d", i+1)
		}
		rules = append(rules, r)
	}

	packRules, infos, err := LoadPacks(cfg.PacksDir)
	if err != nil {
		errs = append(errs, fmt.Errorf("rule packs: %w", err))
	}
	for _, info := range infos {
		if info.Err != nil {
			errs = append(errs, info.Err)
		}
	}
	rules = append(rules, packRules...)

	rs := &RuleSet{
		Packs:            infos,
		disabled:         make(map[string]bool),
		protectDangerous: cfg.BlockDangerousDelete,
	}

	for _, name := range cfg.DisabledCategories {
		c := canonicalCategory(name)
		if c == CategoryDangerousDelete && rs.protectDangerous {
			errs = append(errs, fmt.Errorf("%s cannot be disabled while block_dangerous_delete is true", CategoryDangerousDelete))
			continue
		}
		rs.disabled[c] = true
	}

	seen := make(map[string]bool)
	for _, r := range rules {
		r, err := validateRule(r)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if seen[r.ID] {
			errs = append(errs, fmt.Errorf("rule %q (%s): duplicate id, skipped", r.ID, r.Source))
			continue
		}
		seen[r.ID] = true
		if rs.Disabled(r.Category) {
			continue
		}
		rs.Rules = append(rs.Rules, r)
	}

	rs.actions, err = categoryActions(cfg)
	if err != nil {
		errs = append(errs, err)
	}
	return rs, errs
}

// Disabled reports whether findings of the category are switched off.
func (rs *RuleSet) Disabled(category string) bool {
	return rs.disabled[canonicalCategory(category)]
}

// Group returns the rules of one group, in evaluation order.
func (rs *RuleSet) Group(group string) []Rule {
	return lo.Filter(rs.Rules, func(r Rule, _ int) bool { return r.Group == group })
}

// Verdict resolves what a fired rule implies: a category override wins over
// the rule's own action, which wins over the group default. The result never
// exceeds the group's ceiling, and DangerousDelete stays Block while it is
// protected.
func (rs *RuleSet) Verdict(r Rule) Verdict {
	action, ok := rs.actions[r.Category]
	if !ok {
		action = r.Action
	}
	if action == "" {
		action = groupDefaults[r.Group].action
	}
	return rs.clamp(r.Group, r.Category, action).Verdict()
}

// CategoryVerdict is Verdict for findings that come from code rather than a
// pattern rule (RecursiveDelete, ContentLength, Repetition).
func (rs *RuleSet) CategoryVerdict(group, category string, fallback Action) Verdict {
	action, ok := rs.actions[category]
	if !ok {
		action = fallback
	}
	return rs.clamp(group, category, action).Verdict()
}

func (rs *RuleSet) clamp(group, category string, action Action) Action {
	if category == CategoryDangerousDelete && rs.protectDangerous {
		return ActionBlock
	}
	if d, ok := groupDefaults[group]; ok && d.ceiling == ActionWarn && action == ActionBlock {
		return ActionWarn
	}
	return action
}

func categoryActions(cfg config.Config) (map[string]Action, error) {
	actions := map[string]Action{
		CategoryEnvFileAccess:   boolAction(cfg.BlockEnvAccess, ActionBlock, ActionWarn),
		CategoryDangerousDelete: boolAction(cfg.BlockDangerousDelete, ActionBlock, ActionWarn),
		CategoryRecursiveDelete: boolAction(cfg.BlockUnknownDelete, ActionBlock, ActionWarn),
		CategorySafeCleanup:     ActionAllow,
	}

	var errs []error
	for name, raw := range cfg.CategoryActions {
		category := canonicalCategory(name)
		action := Action(strings.ToLower(raw))
		switch {
		case !action.valid():
			errs = append(errs, fmt.Errorf("category_actions: %s: invalid action %q", name, raw))
		case category == CategoryDangerousDelete && cfg.BlockDangerousDelete && action != ActionBlock:
			errs = append(errs, fmt.Errorf("category_actions: %s stays block while block_dangerous_delete is true", category))
		default:
			actions[category] = action
		}
	}
	return actions, errors.Join(errs...)
}

var knownCategories = []string{
	CategoryDangerousDelete, CategoryRecursiveDelete, CategorySafeCleanup,
	CategoryEnvFileAccess, CategoryCommandInjection, CategoryPathTraversal,
	CategorySensitivePath, CategoryCodeInjection, CategoryCredentialLeak,
	CategorySensitiveFileOp, CategoryContentLength, CategoryRepetition,
	CategorySpamIndicator, CategoryOutOfScope,
}

// canonicalCategory maps a user-written category name onto the built-in
// spelling. Unknown names pass through for custom categories.
func canonicalCategory(name string) string {
	if c, ok := lo.Find(knownCategories, func(c string) bool { return strings.EqualFold(c, name) }); ok {
		return c
	}
	return name
}

func boolAction(cond bool, yes, no Action) Action {
	if cond {
		return yes
	}
	return no
}

// validateRule checks a rule from config or a pack and fills in what it
// left out. Pattern compilation is left to the matcher.
func validateRule(r Rule) (Rule, error) {
	r.Action = Action(strings.ToLower(string(r.Action)))
	if !KnownGroup(r.Group) {
		return r, fmt.Errorf("rule %q (%s): unknown group %q, skipped", r.ID, r.Source, r.Group)
	}
	if r.Action != "" && !r.Action.valid() {
		return r, fmt.Errorf("rule %q (%s): unknown action %q, skipped", r.ID, r.Source, r.Action)
	}
	switch analyzer.CaseMode(r.Case) {
	case "", analyzer.CaseInsensitive, analyzer.CaseLower, analyzer.CaseSensitive:
	default:
		return r, fmt.Errorf("rule %q (%s): unknown case mode %q, skipped", r.ID, r.Source, r.Case)
	}
	return fillDefaults(r), nil
}

// fillDefaults gives a rule its group's category and case mode when it names
// none, and normalizes the category's spelling.
func fillDefaults(r Rule) Rule {
	if r.Category == "" {
		r.Category = groupDefaults[r.Group].category
	}
	r.Category = canonicalCategory(r.Category)
	if r.Case == "" {
		switch r.Group {
		case GroupDangerousPath, GroupSafeCleanup, GroupEnvFile:
			r.Case = string(analyzer.CaseSensitive)
		default:
			r.Case = string(analyzer.CaseInsensitive)
		}
	}
	return r
}
