package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gzhole/hookwarden/internal/auditlog"
	"github.com/gzhole/hookwarden/internal/logger"
)

type logsOptions struct {
	dir          string
	format       string
	hours        int
	eventType    string
	tool         string
	stats        bool
	top          int
	by           string
	listTypes    bool
	listSessions bool
	last         int
	recent       bool
}

const defaultTop = 10

func newLogsCmd(flags *rootFlags) *cobra.Command {
	opts := &logsOptions{}

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "View, filter and summarize the audit log",
		Long: `Reads the combined audit log and prints records or reports.

Filters (--hours, --type, --tool) apply to every view.

Examples:
  hookwarden logs                              # All records as a table
  hookwarden logs --last 20                    # Last 20 records
  hookwarden logs --recent                     # The bounded recent view
  hookwarden logs --type PreToolUse --hours 24 # PreToolUse events of the last day
  hookwarden logs --tool Edit --format json    # Edit tool events as a JSON array
  hookwarden logs --stats                      # Summary statistics
  hookwarden logs --top 5 --by tool            # Five most used tools
  hookwarden logs --list-types                 # Distinct event types
  hookwarden logs --list-sessions              # Distinct sessions`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLogs(cmd, flags, opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.dir, "dir", "", "Log directory (default: --log-dir or audit.dir)")
	f.StringVar(&opts.format, "format", string(auditlog.FormatTable), "Output format: table, json, csv or raw")
	f.IntVar(&opts.hours, "hours", 0, "Only records from the last N hours")
	f.StringVar(&opts.eventType, "type", "", "Only records of this event type")
	f.StringVar(&opts.tool, "tool", "", "Only records of this tool")
	f.BoolVar(&opts.stats, "stats", false, "Show summary statistics")
	f.IntVar(&opts.top, "top", defaultTop, "Show the N most frequent event types or tools")
	f.StringVar(&opts.by, "by", string(auditlog.ByEventType), "Grouping for --top: type or tool")
	f.BoolVar(&opts.listTypes, "list-types", false, "List distinct event types")
	f.BoolVar(&opts.listSessions, "list-sessions", false, "List distinct session ids")
	f.IntVar(&opts.last, "last", 0, "Show only the last N records")
	f.BoolVar(&opts.recent, "recent", false, "Read the bounded recent view instead of the combined log")
	cmd.MarkFlagsMutuallyExclusive("stats", "list-types", "list-sessions")
	return cmd
}

func runLogs(cmd *cobra.Command, flags *rootFlags, opts *logsOptions) error {
	format, err := auditlog.ParseFormat(opts.format)
	if err != nil {
		return err
	}
	dim, err := auditlog.ParseDimension(opts.by)
	if err != nil {
		return err
	}

	cfg, diag := loadConfig(flags.configPath, flags.logDir, cmd.ErrOrStderr())
	dir := opts.dir
	if dir == "" {
		dir = cfg.Audit.Dir
	}

	records, err := readLogs(dir, opts.recent, diag)
	if err != nil {
		return err
	}

	filter := auditlog.Filter{
		Since:     auditlog.WithinHours(opts.hours, time.Now()),
		EventType: opts.eventType,
		Tool:      opts.tool,
	}
	records = filter.Apply(records)

	styled, width := terminalOf(cmd.OutOrStdout())
	r := auditlog.Renderer{
		Out:    cmd.OutOrStdout(),
		Format: format,
		Styled: styled && format == auditlog.FormatTable,
		Width:  width,
	}

	switch {
	case opts.listTypes:
		return r.List(auditlog.EventTypes(records))
	case opts.listSessions:
		return r.List(auditlog.Sessions(records))
	case opts.stats:
		return r.Summary(auditlog.Summarize(records, opts.top))
	case cmd.Flags().Changed("top") || cmd.Flags().Changed("by"):
		title := "Event type"
		if dim == auditlog.ByTool {
			title = "Tool"
		}
		return r.Counts(title, auditlog.Top(records, dim, opts.top))
	}
	return r.Records(auditlog.Last(records, opts.last))
}

func readLogs(dir string, recent bool, diag *zap.Logger) ([]logger.Record, error) {
	if recent {
		records, err := logger.ReadRecent(dir)
		if err != nil {
			return nil, fmt.Errorf("failed to read recent view in %s: %w", dir, err)
		}
		return records, nil
	}

	records, stats, err := auditlog.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read audit log in %s: %w", dir, err)
	}
	if stats.Discarded > 0 {
		diag.Info("skipped unreadable log fragments", zap.Int("discarded", stats.Discarded), zap.Int("records", stats.Records))
	}
	return records, nil
}
