package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gzhole/hookwarden/internal/policy"
)

type rulesOptions struct {
	group string
	packs bool
	json  bool
}

// ruleView is one row of the rules listing.
type ruleView struct {
	ID       string         `json:"id"`
	Group    string         `json:"group"`
	Category string         `json:"category"`
	Verdict  policy.Verdict `json:"verdict"`
	Source   string         `json:"source"`
	Pattern  string         `json:"pattern"`
}

func newRulesCmd(flags *rootFlags) *cobra.Command {
	opts := &rulesOptions{}

	cmd := &cobra.Command{
		Use:   "rules",
		Short: "List the effective rule set",
		Long: `Lists every active rule with the verdict it resolves to after config
overrides, followed by the rules that were skipped and why.

Rule packs are read from the packs/ directory next to the config file; a pack
whose file name starts with an underscore is disabled.

Examples:
  hookwarden rules
  hookwarden rules --group malicious
  hookwarden rules --packs`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRules(cmd, flags, opts)
		},
	}

	cmd.Flags().StringVar(&opts.group, "group", "", "Only rules of this group")
	cmd.Flags().BoolVar(&opts.packs, "packs", false, "List rule packs instead of rules")
	cmd.Flags().BoolVar(&opts.json, "json", false, "Print as JSON")
	return cmd
}

func runRules(cmd *cobra.Command, flags *rootFlags, opts *rulesOptions) error {
	if opts.group != "" && !policy.KnownGroup(opts.group) {
		return fmt.Errorf("unknown group %q", opts.group)
	}

	cfg, diag := loadConfig(flags.configPath, flags.logDir, cmd.ErrOrStderr())
	defer func() {
		_ = diag.Sync()
	}()
	// Problems are listed below rather than logged.
	engine, problems := buildEngine(cfg, zap.NewNop())
	rs := engine.RuleSet()

	out := cmd.OutOrStdout()
	styled, _ := terminalOf(out)

	if opts.packs {
		return printPacks(out, rs.Packs, opts.json, styled)
	}

	var views []ruleView
	for _, r := range rs.Rules {
		if opts.group != "" && r.Group != opts.group {
			continue
		}
		if !engine.Active(r.ID) {
			continue
		}
		views = append(views, ruleView{
			ID:       r.ID,
			Group:    r.Group,
			Category: r.Category,
			Verdict:  rs.Verdict(r),
			Source:   r.Source,
			Pattern:  r.Pattern,
		})
	}

	if opts.json {
		skipped := make([]string, 0, len(problems))
		for _, p := range problems {
			skipped = append(skipped, p.Error())
		}
		data, err := json.MarshalIndent(map[string]any{"rules": views, "skipped": skipped}, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(out, string(data))
		return nil
	}

	rows := make([][]string, 0, len(views))
	for _, v := range views {
		rows = append(rows, []string{v.ID, v.Group, v.Category, string(v.Verdict), v.Source})
	}
	fmt.Fprintln(out, renderTable([]string{"ID", "GROUP", "CATEGORY", "VERDICT", "SOURCE"}, rows, styled))
	fmt.Fprintf(out, "\n%d active rules\n", len(views))

	if len(problems) > 0 {
		fmt.Fprintf(out, "\nSkipped (%d):\n", len(problems))
		for _, p := range problems {
			fmt.Fprintf(out, "  - %v\n", p)
		}
	}
	return nil
}

func printPacks(out io.Writer, packs []policy.PackInfo, asJSON, styled bool) error {
	if asJSON {
		type packView struct {
			Name        string `json:"name"`
			Description string `json:"description,omitempty"`
			Version     string `json:"version,omitempty"`
			Enabled     bool   `json:"enabled"`
			Rules       int    `json:"rules"`
			Path        string `json:"path"`
			Error       string `json:"error,omitempty"`
		}
		views := make([]packView, 0, len(packs))
		for _, p := range packs {
			v := packView{Name: p.Name, Description: p.Description, Version: p.Version, Enabled: p.Enabled, Rules: p.RuleCount, Path: p.Path}
			if p.Err != nil {
				v.Error = p.Err.Error()
			}
			views = append(views, v)
		}
		data, err := json.MarshalIndent(views, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(out, string(data))
		return nil
	}

	if len(packs) == 0 {
		fmt.Fprintln(out, "No rule packs installed.")
		return nil
	}
	rows := make([][]string, 0, len(packs))
	for _, p := range packs {
		status := "enabled"
		switch {
		case p.Err != nil:
			status = "error: " + p.Err.Error()
		case !p.Enabled:
			status = "disabled"
		}
		rows = append(rows, []string{p.Name, p.Version, fmt.Sprint(p.RuleCount), status, p.Description})
	}
	fmt.Fprintln(out, renderTable([]string{"PACK", "VERSION", "RULES", "STATUS", "DESCRIPTION"}, rows, styled))
	return nil
}

func renderTable(headers []string, rows [][]string, styled bool) string {
	cell := lipgloss.NewStyle().Padding(0, 1)
	header := cell
	if styled {
		header = cell.Bold(true)
	}
	return table.New().
		Headers(headers...).
		Rows(rows...).
		BorderHeader(true).
		BorderTop(false).
		BorderBottom(false).
		BorderLeft(false).
		BorderRight(false).
		BorderRow(false).
		BorderColumn(false).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return header
			}
			return cell
		}).
		String()
}
