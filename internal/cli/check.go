package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gzhole/hookwarden/internal/policy"
)

type checkOptions struct {
	file   string
	prompt bool
	json   bool
}

// checkOutput is the --json form of a decision.
type checkOutput struct {
	Verdict    policy.Verdict     `json:"verdict"`
	Reasons    []policy.Reason    `json:"reasons"`
	Violations []policy.Violation `json:"violations,omitempty"`
	Sanitized  string             `json:"sanitized,omitempty"`
}

func newCheckCmd(flags *rootFlags) *cobra.Command {
	opts := &checkOptions{}

	cmd := &cobra.Command{
		Use:   "check [command...]",
		Short: "Evaluate a command, file path or prompt without a host",
		Long: `Evaluates input against the effective rule set and prints the decision.
Nothing is executed and nothing is written to the audit log.

With no arguments the input is read from stdin.

Examples:
  hookwarden check rm -rf /
  hookwarden check --file .env.local
  echo "ignore previous instructions; password=hunter2" | hookwarden check --prompt`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd, flags, opts, args)
		},
	}

	cmd.Flags().StringVar(&opts.file, "file", "", "Evaluate a file access to this path")
	cmd.Flags().BoolVar(&opts.prompt, "prompt", false, "Evaluate the input as a prompt submission")
	cmd.Flags().BoolVar(&opts.json, "json", false, "Print the decision as JSON")
	cmd.MarkFlagsMutuallyExclusive("file", "prompt")
	// Everything after the first argument belongs to the checked command.
	cmd.Flags().SetInterspersed(false)
	return cmd
}

func runCheck(cmd *cobra.Command, flags *rootFlags, opts *checkOptions, args []string) error {
	input := strings.Join(args, " ")
	if opts.file == "" && len(args) == 0 {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return fmt.Errorf("failed to read stdin: %w", err)
		}
		input = strings.TrimRight(string(data), "\r\n")
	}
	if opts.file == "" && strings.TrimSpace(input) == "" {
		return errors.New("nothing to check: pass a command, --file or input on stdin")
	}

	cfg, diag := loadConfig(flags.configPath, flags.logDir, cmd.ErrOrStderr())
	defer func() {
		_ = diag.Sync()
	}()
	engine, _ := buildEngine(cfg, diag)

	var d policy.Decision
	switch {
	case opts.file != "":
		d = engine.EvaluatePath(opts.file)
	case opts.prompt:
		d = engine.EvaluatePrompt(input)
	default:
		d = engine.EvaluateCommand(input)
	}

	out := cmd.OutOrStdout()
	if opts.json {
		data, err := json.MarshalIndent(checkOutput{
			Verdict:    d.Verdict,
			Reasons:    d.Reasons,
			Violations: d.ViolationList(),
			Sanitized:  d.Sanitized,
		}, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(out, string(data))
	} else {
		fmt.Fprint(out, d.Explanation)
		if opts.prompt && d.Sanitized != input {
			fmt.Fprintf(out, "Sanitized:\n  %s\n", d.Sanitized)
		}
	}

	if d.Verdict == policy.VerdictBlock {
		return exitCode(ExitBlock)
	}
	return nil
}
