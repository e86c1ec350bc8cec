package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/nao1215/markdown"
	"github.com/spf13/cobra"

	"github.com/nao1215/zapreport/internal/database"
	"github.com/nao1215/zapreport/internal/report"
)

// defaultHistoryLimit is the number of runs listed by default.
const defaultHistoryLimit = 20

// NewHistoryCmd creates the history command.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show previous runs",
		Long: `History lists the runs recorded by 'zapreport run', newest first.
With --id, the complete summary of one run is printed.

Examples:
  # List the last 20 runs
  zapreport history

  # List every run as a Markdown table
  zapreport history --limit 0 --markdown

  # Show run 12 as JSON
  zapreport history --id 12 --json`,
		Args: cobra.NoArgs,
		RunE: runHistoryCmd,
	}

	cmd.Flags().IntP("limit", "n", defaultHistoryLimit,
		"Maximum number of runs to list (0 = all)")
	cmd.Flags().Int64P("id", "i", 0,
		"Show the run with this history ID")
	cmd.Flags().BoolP("json", "j", false,
		"Output in JSON format")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output in Markdown format")
	cmd.MarkFlagsMutuallyExclusive("json", "markdown")

	return cmd
}

// historyOptions holds the parsed history flags.
type historyOptions struct {
	limit    int
	id       int64
	json     bool
	markdown bool
}

// runHistoryCmd executes the history command.
func runHistoryCmd(cmd *cobra.Command, _ []string) error {
	opts, err := parseHistoryFlags(cmd)
	if err != nil {
		return err
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	setupLogger(cmd)

	ctx, stop := signalContext(cmd)
	defer stop()

	db, err := openHistory(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	out := cmd.OutOrStdout()

	if opts.id > 0 {
		run, err := db.GetRun(ctx, opts.id)
		if err != nil {
			return err
		}
		var w report.Writer
		switch {
		case opts.json:
			w = report.NewJSONWriter(out, report.WithPrettyPrint())
		case opts.markdown:
			w = report.NewMarkdownWriter(out)
		default:
			w = report.NewSimpleWriter(out, report.WithVerbose(true))
		}
		_, err = w.Write(report.NewSummary(run, cfg.SubjectPrefix, cfg.Signature))
		return err
	}

	records, err := db.ListRuns(ctx, opts.limit)
	if err != nil {
		return err
	}

	switch {
	case opts.json:
		return writeHistoryJSON(out, records)
	case opts.markdown:
		return writeHistoryMarkdown(out, records)
	default:
		writeHistoryText(out, records)
		return nil
	}
}

func parseHistoryFlags(cmd *cobra.Command) (historyOptions, error) {
	var opts historyOptions
	var err error

	if opts.limit, err = cmd.Flags().GetInt("limit"); err != nil {
		return opts, err
	}
	if opts.id, err = cmd.Flags().GetInt64("id"); err != nil {
		return opts, err
	}
	if opts.json, err = cmd.Flags().GetBool("json"); err != nil {
		return opts, err
	}
	if opts.markdown, err = cmd.Flags().GetBool("markdown"); err != nil {
		return opts, err
	}
	if opts.limit < 0 {
		return opts, fmt.Errorf("invalid limit %d: must be 0 or greater", opts.limit)
	}
	return opts, nil
}

func writeHistoryJSON(w io.Writer, records []database.RunRecord) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(records)
}

func writeHistoryMarkdown(w io.Writer, records []database.RunRecord) error {
	md := markdown.NewMarkdown(w).H2("Scan History")
	if len(records) == 0 {
		return md.PlainText("No runs recorded yet.").Build()
	}

	rows := make([][]string, 0, len(records))
	for _, r := range records {
		rows = append(rows, []string{
			strconv.FormatInt(r.ID, 10),
			r.StartedAt.Local().Format(time.DateTime),
			r.Duration().Round(time.Second).String(),
			fmt.Sprintf("%d/%d", r.Scanned, len(r.Targets)),
			strconv.Itoa(r.FailedPasses),
			yesNo(r.Notified),
			r.Error,
		})
	}

	return md.Table(markdown.TableSet{
		Header: []string{"ID", "Started", "Duration", "Scanned", "Failed Passes", "Mailed", "Error"},
		Rows:   rows,
	}).Build()
}

func writeHistoryText(w io.Writer, records []database.RunRecord) {
	if len(records) == 0 {
		fmt.Fprintln(w, "No runs recorded yet.")
		return
	}

	fmt.Fprintf(w, "%-6s %-19s %-10s %-8s %-7s %-6s %s\n", "ID", "STARTED", "DURATION", "SCANNED", "FAILED", "MAILED", "ERROR")
	for _, r := range records {
		fmt.Fprintf(w, "%-6d %-19s %-10s %-8s %-7d %-6s %s\n",
			r.ID,
			r.StartedAt.Local().Format(time.DateTime),
			r.Duration().Round(time.Second),
			fmt.Sprintf("%d/%d", r.Scanned, len(r.Targets)),
			r.FailedPasses,
			yesNo(r.Notified),
			r.Error,
		)
	}
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
