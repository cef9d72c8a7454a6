package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

// rootFlags are the persistent flags shared by every subcommand.
type rootFlags struct {
	configPath string
	logDir     string
}

// NewRootCmd builds the command tree reading from in and writing to out and
// errOut.
func NewRootCmd(in io.Reader, out, errOut io.Writer) *cobra.Command {
	flags := &rootFlags{}

	rootCmd := &cobra.Command{
		Use:   "hookwarden",
		Short: "hookwarden - policy gate for agent hook events",
		Long: `hookwarden sits between an interactive agent and the actions it is about
to take. Each hook event (shell command, file access, prompt submission) is
checked against pattern rules and answered with ALLOW, WARN or BLOCK, and
every decision is appended to a local audit log.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.SetIn(in)
	rootCmd.SetOut(out)
	rootCmd.SetErr(errOut)

	rootCmd.PersistentFlags().StringVar(&flags.configPath, "config", "", "Path to config file (default: $HOOKWARDEN_CONFIG or ~/.hookwarden/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&flags.logDir, "log-dir", "", "Audit log directory (default: audit.dir from config, ~/.hookwarden/logs)")

	rootCmd.AddCommand(
		newHookCmd(flags),
		newLogsCmd(flags),
		newCheckCmd(flags),
		newRulesCmd(flags),
		newVersionCmd(),
	)
	return rootCmd
}

// Execute runs the CLI against the process streams. Errors other than
// *ExitError are printed here.
func Execute() error {
	err := NewRootCmd(os.Stdin, os.Stdout, os.Stderr).Execute()
	var exitErr *ExitError
	if err != nil && !errors.As(err, &exitErr) {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	return err
}
