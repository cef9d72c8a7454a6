package analyzer

import (
	"path/filepath"
	"strings"

	"mvdan.cc/sh/v3/syntax"
)

// StructuralAnalyzer parses shell commands into an AST using mvdan.cc/sh/v3
// and recovers what regex cannot see reliably: flag normalization across
// orderings and long forms, sudo wrapping, quoted arguments, and commands
// nested in `bash -c '...'`.
type StructuralAnalyzer struct {
	maxParseDepth int
}

// NewStructuralAnalyzer creates a structural analyzer. maxParseDepth bounds
// indirect execution parsing; values <= 0 mean 2.
func NewStructuralAnalyzer(maxParseDepth int) *StructuralAnalyzer {
	if maxParseDepth <= 0 {
		maxParseDepth = 2
	}
	return &StructuralAnalyzer{maxParseDepth: maxParseDepth}
}

// Parse converts a raw command string into a ParsedCommand. It never fails:
// input the shell parser rejects is split on operators and whitespace instead.
func (a *StructuralAnalyzer) Parse(command string) *ParsedCommand {
	pc := a.parseWithDepth(command, 0)
	if pc == nil {
		return &ParsedCommand{}
	}
	return pc
}

// DeletionsIn picks the rm invocations out of parsed segments, including
// those behind sudo and inside inline shell code once AllSegments has
// flattened them.
func DeletionsIn(segs []CommandSegment) []Deletion {
	var out []Deletion
	for _, seg := range segs {
		if seg.Executable != "rm" {
			continue
		}
		out = append(out, Deletion{
			Raw:       seg.Raw,
			Targets:   seg.Args,
			Recursive: seg.HasFlag("r", "recursive"),
			Force:     seg.HasFlag("f", "force"),
		})
	}
	return out
}

func (a *StructuralAnalyzer) parseWithDepth(command string, depth int) *ParsedCommand {
	if depth >= a.maxParseDepth {
		return nil
	}

	parser := syntax.NewParser(syntax.KeepComments(false), syntax.Variant(syntax.LangBash))
	file, err := parser.Parse(strings.NewReader(command), "")
	if err != nil {
		return a.fallbackParse(command)
	}

	pc := &ParsedCommand{}
	for _, stmt := range file.Stmts {
		a.walkStmt(pc, stmt, depth)
	}
	return pc
}

func (a *StructuralAnalyzer) walkStmt(pc *ParsedCommand, stmt *syntax.Stmt, depth int) {
	if stmt == nil || stmt.Cmd == nil {
		return
	}

	switch cmd := stmt.Cmd.(type) {
	case *syntax.CallExpr:
		words := make([]string, 0, len(cmd.Args))
		for _, w := range cmd.Args {
			words = append(words, wordValue(w))
		}
		if len(words) == 0 {
			return
		}
		seg := newSegment(words)
		for _, r := range stmt.Redirs {
			if r.Word != nil {
				seg.Redirects = append(seg.Redirects, wordValue(r.Word))
			}
		}
		if inner := extractInlineCode(seg); inner != "" {
			if sub := a.parseWithDepth(inner, depth+1); sub != nil {
				pc.Subcommands = append(pc.Subcommands, sub)
			}
		}
		pc.Segments = append(pc.Segments, seg)

	case *syntax.BinaryCmd:
		a.walkStmt(pc, cmd.X, depth)
		a.walkStmt(pc, cmd.Y, depth)

	case *syntax.Subshell:
		for _, s := range cmd.Stmts {
			a.walkStmt(pc, s, depth)
		}

	case *syntax.Block:
		for _, s := range cmd.Stmts {
			a.walkStmt(pc, s, depth)
		}

	case *syntax.TimeClause:
		a.walkStmt(pc, cmd.Stmt, depth)
	}
}

// fallbackParse handles commands that mvdan.cc/sh can't parse, such as
// unbalanced quotes.
func (a *StructuralAnalyzer) fallbackParse(command string) *ParsedCommand {
	pc := &ParsedCommand{}
	replacer := strings.NewReplacer("&&", "\x00&&\x00", "||", "\x00||\x00", ";", "\x00;\x00", "|", "\x00|\x00")
	parts := strings.Split(replacer.Replace(command), "\x00")

	for _, part := range parts {
		switch part {
		case "&&", "||", ";", "|":
			continue
		}
		words := strings.Fields(part)
		for i, w := range words {
			words[i] = strings.Trim(w, `'"`)
		}
		if len(words) == 0 {
			continue
		}
		pc.Segments = append(pc.Segments, newSegment(words))
	}
	return pc
}

// newSegment builds a segment from unquoted words, stripping command
// wrappers and normalizing flags.
func newSegment(words []string) CommandSegment {
	seg := CommandSegment{
		Raw:   strings.Join(words, " "),
		Flags: make(map[string]bool),
	}

	rest := stripWrappers(words)
	if len(rest) == 0 {
		return seg
	}

	seg.Executable = asciiLower(filepath.Base(rest[0]))
	seg.IsShell = shellInterpreters[seg.Executable]

	endOfFlags := false
	for _, w := range rest[1:] {
		switch {
		case endOfFlags:
			seg.Args = append(seg.Args, w)
		case w == "--":
			endOfFlags = true
		case strings.HasPrefix(w, "--") && len(w) > 2:
			flag := asciiLower(w[2:])
			if eq := strings.Index(flag, "="); eq >= 0 {
				flag = flag[:eq]
			}
			seg.Flags[flag] = true
		case strings.HasPrefix(w, "-") && len(w) > 1:
			for _, ch := range asciiLower(w[1:]) {
				seg.Flags[string(ch)] = true
			}
		default:
			seg.Args = append(seg.Args, w)
		}
	}
	return seg
}

// stripWrappers removes leading commands that only run another command:
// sudo, doas, env, command, nohup, nice, time, xargs, and VAR=value prefixes.
func stripWrappers(words []string) []string {
	for len(words) > 0 {
		head := asciiLower(filepath.Base(words[0]))
		if isAssignment(words[0]) {
			words = words[1:]
			continue
		}
		if !commandWrappers[head] {
			return words
		}
		words = words[1:]
		for len(words) > 0 && (strings.HasPrefix(words[0], "-") || isAssignment(words[0])) {
			words = words[1:]
		}
	}
	return words
}

func isAssignment(w string) bool {
	eq := strings.Index(w, "=")
	if eq <= 0 {
		return false
	}
	for _, ch := range w[:eq] {
		if !(ch == '_' || ch >= 'A' && ch <= 'Z' || ch >= 'a' && ch <= 'z' || ch >= '0' && ch <= '9') {
			return false
		}
	}
	return true
}

// wordValue returns the shell value of a word with quoting removed.
// Expansions it cannot resolve ($HOME, $(...)) are kept in source form.
func wordValue(word *syntax.Word) string {
	var sb strings.Builder
	for _, part := range word.Parts {
		writeWordPart(&sb, part)
	}
	return sb.String()
}

func writeWordPart(sb *strings.Builder, part syntax.WordPart) {
	switch p := part.(type) {
	case *syntax.Lit:
		sb.WriteString(p.Value)
	case *syntax.SglQuoted:
		sb.WriteString(p.Value)
	case *syntax.DblQuoted:
		for _, inner := range p.Parts {
			writeWordPart(sb, inner)
		}
	default:
		printer := syntax.NewPrinter()
		_ = printer.Print(sb, part)
	}
}

// AllSegments returns all segments including those in subcommands.
func AllSegments(parsed *ParsedCommand) []CommandSegment {
	if parsed == nil {
		return nil
	}
	segs := make([]CommandSegment, len(parsed.Segments))
	copy(segs, parsed.Segments)
	for _, sub := range parsed.Subcommands {
		segs = append(segs, AllSegments(sub)...)
	}
	return segs
}

var shellInterpreters = map[string]bool{
	"sh": true, "bash": true, "zsh": true, "dash": true,
	"ksh": true, "fish": true, "csh": true, "tcsh": true,
}

// fileCommands take file operands as their positional arguments.
var fileCommands = map[string]bool{
	"cat": true, "tac": true, "less": true, "more": true, "head": true, "tail": true,
	"bat": true, "nl": true, "strings": true, "xxd": true, "base64": true,
	"cp": true, "mv": true, "ln": true, "touch": true, "rm": true, "tee": true,
	"source": true, ".": true, "vi": true, "vim": true, "nano": true, "emacs": true,
	"chmod": true, "chown": true, "scp": true, "rsync": true,
}

var commandWrappers = map[string]bool{
	"sudo": true, "doas": true, "env": true, "command": true,
	"nohup": true, "nice": true, "time": true, "xargs": true, "exec": true,
}

// extractInlineCode returns the script passed to a shell with -c.
func extractInlineCode(seg CommandSegment) string {
	if !seg.IsShell || !seg.Flags["c"] || len(seg.Args) == 0 {
		return ""
	}
	return seg.Args[0]
}
