package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gzhole/hookwarden/internal/config"
	"github.com/gzhole/hookwarden/internal/event"
	"github.com/gzhole/hookwarden/internal/logger"
	"github.com/gzhole/hookwarden/internal/policy"
	"github.com/gzhole/hookwarden/internal/redact"
)

// promptBlockOutput is written to stdout when a prompt submission is
// blocked.
type promptBlockOutput struct {
	Block      bool               `json:"block"`
	Reason     string             `json:"reason"`
	Violations []policy.Violation `json:"violations"`
}

func newHookCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "hook",
		Short: "Evaluate one hook event read from stdin",
		Long: `Reads one hook event JSON object from stdin, evaluates it against the
effective rule set, answers the host and appends the decision to the audit log.

Exit status:
  0  allow or warn (notes on stderr)
  2  block (reason on stderr; prompt events also get a JSON answer on stdout)

Internal failures never block: they are reported on stderr and exit 0.
Set HOOKWARDEN_BYPASS=1 to let everything through.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			runner := &HookRunner{
				Stdin:      cmd.InOrStdin(),
				Stdout:     cmd.OutOrStdout(),
				Stderr:     cmd.ErrOrStderr(),
				ConfigPath: flags.configPath,
				LogDir:     flags.logDir,
			}
			return exitCode(runner.Run())
		},
	}
}

// HookRunner handles one hook invocation. Zero-valued Getenv and Now fall
// back to the process environment and the wall clock.
type HookRunner struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	ConfigPath string
	LogDir     string

	Getenv func(string) string
	Now    func() time.Time
}

// Run evaluates the event on Stdin and returns the exit code for the host.
// The verdict is written before the audit record; a failing audit write is
// reported and never changes the verdict, and neither does a panic once the
// verdict is out.
func (h *HookRunner) Run() (code int) {
	responded := false
	defer func() {
		if r := recover(); r != nil {
			if responded {
				fmt.Fprintf(h.Stderr, "[hookwarden] internal error after decision: %v\n", r)
				return
			}
			fmt.Fprintf(h.Stderr, "[hookwarden] internal error, allowing: %v\n", r)
			code = ExitAllow
		}
	}()

	data, err := io.ReadAll(h.Stdin)
	if h.getenv(config.EnvBypass) == "1" {
		return ExitAllow
	}
	if err != nil {
		fmt.Fprintf(h.Stderr, "[hookwarden] warning: failed to read hook input: %v\n", err)
		return ExitAllow
	}

	cfg, diag := loadConfig(h.ConfigPath, h.LogDir, h.Stderr)
	defer func() {
		_ = diag.Sync()
	}()

	ev, err := event.Parse(data, h.now())
	if err != nil {
		diag.Warn("ignoring unusable hook input", zap.Error(err))
		return ExitAllow
	}

	engine, _ := buildEngine(cfg, diag)
	d := engine.Evaluate(ev)

	code = h.respond(cfg, ev, d)
	responded = true

	if ev.Kind == event.KindPromptSubmission && redact.Changed(ev.Prompt) {
		diag.Info("prompt was sanitized", zap.String("session", ev.SessionID))
	}
	h.audit(cfg, diag, ev, d)
	return code
}

func (h *HookRunner) respond(cfg config.Config, ev event.Event, d policy.Decision) int {
	switch d.Verdict {
	case policy.VerdictBlock:
		fmt.Fprintf(h.Stderr, "🛑 BLOCKED by hookwarden\n%s", d.Explanation)
		if ev.Kind == event.KindPromptSubmission {
			out := promptBlockOutput{
				Block:      true,
				Reason:     blockSummary(d),
				Violations: d.ViolationList(),
			}
			if out.Violations == nil {
				out.Violations = []policy.Violation{}
			}
			data, err := json.Marshal(out)
			if err == nil {
				fmt.Fprintln(h.Stdout, string(data))
			}
		}
		return ExitBlock
	case policy.VerdictWarn:
		if cfg.WarningMode {
			fmt.Fprintf(h.Stderr, "⚠️  hookwarden warning\n%s", d.Explanation)
		}
	default:
		if cfg.WarningMode && len(d.Reasons) > 0 {
			fmt.Fprintf(h.Stderr, "✅ hookwarden note\n%s", d.Explanation)
		}
	}
	return ExitAllow
}

// blockSummary names every blocking category with its first match.
func blockSummary(d policy.Decision) string {
	var parts []string
	seen := make(map[string]bool)
	for _, r := range d.Reasons {
		if r.Verdict != policy.VerdictBlock || seen[r.Category] {
			continue
		}
		seen[r.Category] = true
		part := r.Category + ": " + r.Message
		if r.Match != "" {
			part += fmt.Sprintf(" (%q)", r.Match)
		}
		parts = append(parts, part)
	}
	return strings.Join(parts, "; ")
}

func (h *HookRunner) audit(cfg config.Config, diag *zap.Logger, ev event.Event, d policy.Decision) {
	lg, err := logger.New(cfg.Audit.Dir, cfg.Audit.RecentLimit, diag)
	if err != nil {
		diag.Error("audit log unavailable, decision not recorded", zap.String("dir", cfg.Audit.Dir), zap.Error(err))
		return
	}
	defer func() {
		_ = lg.Close()
	}()

	if err := lg.Log(logger.NewRecord(ev, d, cfg.Audit.IncludeInput)); err != nil {
		diag.Error("audit log write failed", zap.String("dir", cfg.Audit.Dir), zap.Error(err))
	}
}

func (h *HookRunner) getenv(key string) string {
	if h.Getenv != nil {
		return h.Getenv(key)
	}
	return os.Getenv(key)
}

func (h *HookRunner) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}
