package policy

import (
	"fmt"
	"strings"

	"github.com/samber/lo"

	"github.com/gzhole/hookwarden/internal/analyzer"
	"github.com/gzhole/hookwarden/internal/event"
	"github.com/gzhole/hookwarden/internal/normalize"
)

// EvaluateTool decides a tool invocation.
func (e *Engine) EvaluateTool(call event.ToolCall) Decision {
	b := newDecisionBuilder()

	switch t := call.(type) {
	case event.FileOp:
		e.checkEnvFile(b, t.Path)
	case event.ShellOp:
		e.checkShell(b, t.Command)
	}

	return b.decision()
}

// EvaluateCommand decides a shell command as if the Bash tool ran it.
func (e *Engine) EvaluateCommand(command string) Decision {
	return e.EvaluateTool(event.ShellOp{Tool: "Bash", Command: command})
}

// EvaluatePath decides a file access as if the Read tool touched path.
func (e *Engine) EvaluatePath(path string) Decision {
	return e.EvaluateTool(event.FileOp{Tool: "Read", Path: path})
}

func (e *Engine) checkShell(b *decisionBuilder, command string) {
	segs := analyzer.AllSegments(e.shell.Parse(command))

	seen := make(map[string]bool)
	for _, seg := range segs {
		for _, w := range seg.FilePaths() {
			if seen[w] {
				continue
			}
			seen[w] = true
			e.checkEnvFile(b, w)
		}
	}

	for _, d := range analyzer.DeletionsIn(segs) {
		e.checkDeletion(b, d)
	}
}

// checkEnvFile raises EnvFileAccess for a path that looks like a dotenv file
// and does not carry a whitelisted suffix such as .example.
func (e *Engine) checkEnvFile(b *decisionBuilder, path string) {
	if path == "" {
		return
	}
	if lo.SomeBy(e.cfg.EnvWhitelistSuffixes, func(s string) bool { return s != "" && strings.HasSuffix(path, s) }) {
		return
	}

	matches := e.matcher.MatchGroup(path, GroupEnvFile)
	if len(matches) == 0 {
		return
	}
	m := matches[0]
	r := e.reasonFor(m, "")
	r.Match = path
	r.Message = fmt.Sprintf("Access to %s (%s). Consider a .env.example for sharing configuration.", path, r.Message)
	b.add(r, &m)
}

// checkDeletion applies the recursive-delete policy to one rm invocation.
// Without recursive intent the targets are never looked at.
func (e *Engine) checkDeletion(b *decisionBuilder, d analyzer.Deletion) {
	if !d.Recursive || (e.cfg.RequireForceFlag && !d.Force) || len(d.Targets) == 0 {
		return
	}

	for _, target := range d.Targets {
		if m, ok := e.firstMatch(target, GroupDangerousPath); ok {
			r := e.reasonFor(m, "")
			r.Match = target
			r.Message = fmt.Sprintf("Recursive delete of %s: %s", target, r.Message)
			b.add(r, &m)
			return
		}
	}

	targets := strings.Join(d.Targets, " ")

	if e.cfg.AllowProjectCleanup && !e.rules.Disabled(CategorySafeCleanup) {
		var first analyzer.Match
		safe := lo.EveryBy(d.Targets, func(t string) bool {
			m, ok := e.firstMatch(t, GroupSafeCleanup)
			if ok && first.RuleID == "" {
				first = m
			}
			return ok
		})
		if safe {
			r := e.reasonFor(first, "")
			r.Match = targets
			r.Message = fmt.Sprintf("Removing %s; this appears to be project cleanup", targets)
			b.add(r, nil)
			return
		}
	}

	if e.rules.Disabled(CategoryRecursiveDelete) {
		return
	}
	b.add(Reason{
		Category: CategoryRecursiveDelete,
		RuleID:   "recursive-delete",
		Match:    targets,
		Message:  fmt.Sprintf("Recursive delete of %s; please confirm this is intentional", targets),
		Verdict:  e.rules.CategoryVerdict("", CategoryRecursiveDelete, ActionWarn),
	}, nil)
}

// firstMatch tries every spelling of a path target against a group.
func (e *Engine) firstMatch(target, group string) (analyzer.Match, bool) {
	for _, form := range normalize.Forms(target, e.homeDir) {
		if matches := e.matcher.MatchGroup(form, group); len(matches) > 0 {
			return matches[0], true
		}
	}
	return analyzer.Match{}, false
}
