package auditlog

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/gzhole/hookwarden/internal/logger"
)

// Format is an output format of the logs command.
type Format string

const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
	FormatCSV   Format = "csv"
	FormatRaw   Format = "raw"
)

func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case FormatTable, FormatJSON, FormatCSV, FormatRaw:
		return f, nil
	case "":
		return FormatTable, nil
	}
	return "", fmt.Errorf("unknown format %q (want table, json, csv or raw)", s)
}

// Renderer writes reports in one format. Styled enables bold headers and
// verdict colours for table output; Width, when positive, caps the table
// width.
type Renderer struct {
	Out    io.Writer
	Format Format
	Styled bool
	Width  int
}

const sessionPrefixLen = 8

var recordHeaders = []string{"TIMESTAMP", "EVENT", "TOOL", "VERDICT", "SESSION", "CATEGORIES"}

// Records writes the records themselves.
func (r Renderer) Records(records []logger.Record) error {
	switch r.Format {
	case FormatJSON:
		return r.json(nonNil(records))
	case FormatRaw:
		enc := json.NewEncoder(r.Out)
		for _, rec := range records {
			if err := enc.Encode(rec); err != nil {
				return err
			}
		}
		return nil
	case FormatCSV:
		rows := make([][]string, 0, len(records))
		for _, rec := range records {
			rows = append(rows, []string{rec.Timestamp, rec.EventType, rec.ToolName, rec.SessionID, rec.Verdict, strings.Join(rec.Categories, ";")})
		}
		return r.csv([]string{"timestamp", "event_type", "tool_name", "session_id", "verdict", "categories"}, rows)
	}

	if len(records) == 0 {
		_, err := fmt.Fprintln(r.Out, "No audit log entries found.")
		return err
	}
	rows := make([][]string, 0, len(records))
	for _, rec := range records {
		session := rec.SessionID
		if len(session) > sessionPrefixLen {
			session = session[:sessionPrefixLen]
		}
		rows = append(rows, []string{rec.Timestamp, rec.EventType, rec.ToolName, rec.Verdict, session, strings.Join(rec.Categories, ", ")})
	}
	return r.table(recordHeaders, rows, 3)
}

// Counts writes a grouped report such as the top tools.
func (r Renderer) Counts(title string, counts []Count) error {
	switch r.Format {
	case FormatJSON:
		return r.json(nonNil(counts))
	case FormatRaw:
		enc := json.NewEncoder(r.Out)
		for _, c := range counts {
			if err := enc.Encode(c); err != nil {
				return err
			}
		}
		return nil
	}

	rows := make([][]string, 0, len(counts))
	for i, c := range counts {
		rows = append(rows, []string{strconv.Itoa(i + 1), c.Key, strconv.Itoa(c.Count)})
	}
	if r.Format == FormatCSV {
		return r.csv([]string{"rank", strings.ToLower(title), "count"}, rows)
	}
	return r.table([]string{"#", strings.ToUpper(title), "COUNT"}, rows, -1)
}

// List writes one value per line, or a JSON array.
func (r Renderer) List(values []string) error {
	if r.Format == FormatJSON {
		return r.json(nonNil(values))
	}
	for _, v := range values {
		if _, err := fmt.Fprintln(r.Out, v); err != nil {
			return err
		}
	}
	return nil
}

// Summary writes the statistics report.
func (r Renderer) Summary(s Summary) error {
	if r.Format == FormatJSON || r.Format == FormatRaw {
		return r.json(s)
	}

	rows := [][]string{
		{"Total events", strconv.Itoa(s.Total)},
		{"ALLOW", strconv.Itoa(s.Verdicts["ALLOW"])},
		{"WARN", strconv.Itoa(s.Verdicts["WARN"])},
		{"BLOCK", strconv.Itoa(s.Verdicts["BLOCK"])},
		{"Unique sessions", strconv.Itoa(s.Sessions)},
	}
	if !s.First.IsZero() {
		rows = append(rows,
			[]string{"First event", s.First.UTC().Format(logger.TimestampLayout)},
			[]string{"Last event", s.Last.UTC().Format(logger.TimestampLayout)})
	}
	if r.Format == FormatCSV {
		return r.csv([]string{"metric", "value"}, rows)
	}

	if err := r.table([]string{"METRIC", "VALUE"}, rows, -1); err != nil {
		return err
	}
	if len(s.Types) > 0 {
		fmt.Fprintln(r.Out)
		if err := r.Counts("Event type", s.Types); err != nil {
			return err
		}
	}
	if len(s.Tools) > 0 {
		fmt.Fprintln(r.Out)
		if err := r.Counts("Tool", s.Tools); err != nil {
			return err
		}
	}
	return nil
}

func (r Renderer) json(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(r.Out, string(data))
	return err
}

func (r Renderer) csv(header []string, rows [][]string) error {
	w := csv.NewWriter(r.Out)
	if err := w.Write(header); err != nil {
		return err
	}
	if err := w.WriteAll(rows); err != nil {
		return err
	}
	return w.Error()
}

var (
	headerStyle   = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle     = lipgloss.NewStyle().Padding(0, 1)
	verdictColors = map[string]lipgloss.Color{
		"BLOCK": lipgloss.Color("1"),
		"WARN":  lipgloss.Color("3"),
		"ALLOW": lipgloss.Color("2"),
	}
)

// table renders a borderless table with a rule under the header. verdictCol
// names the column coloured by verdict, or -1.
func (r Renderer) table(headers []string, rows [][]string, verdictCol int) error {
	t := table.New().
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
			if !r.Styled {
				return cellStyle
			}
			if row == table.HeaderRow {
				return headerStyle
			}
			if col == verdictCol && row >= 0 && row < len(rows) {
				if c, ok := verdictColors[rows[row][col]]; ok {
					return cellStyle.Foreground(c)
				}
			}
			return cellStyle
		})
	if r.Styled {
		t = t.BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("8")))
	}
	if r.Width > 0 {
		t = t.Width(r.Width)
	}
	_, err := fmt.Fprintln(r.Out, t.String())
	return err
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
