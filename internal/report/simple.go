package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/nao1215/zapreport/internal/model"
)

// ruleWidth is the width of the section rules.
const ruleWidth = 70

// SimpleWriter outputs human-readable text summaries for terminal display.
// Plain ASCII formatting keeps the output safe to pipe into files.
type SimpleWriter struct {
	baseWriter

	// verbose adds per-pass exit codes, durations and errors.
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithVerbose enables verbose output with additional details.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write outputs the summary in human-readable format.
func (w *SimpleWriter) Write(summary *Summary) (int, error) {
	var sb strings.Builder

	w.writeHeader(&sb, summary)
	w.writeTargets(&sb, summary)
	w.writeArchive(&sb, summary)
	w.writeFooter(&sb, summary)

	return w.output.Write([]byte(sb.String()))
}

func (w *SimpleWriter) writeHeader(sb *strings.Builder, s *Summary) {
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", ruleWidth))
	sb.WriteString("\n")
	sb.WriteString(centered(strings.ToUpper(s.Title)))
	sb.WriteString(strings.Repeat("=", ruleWidth))
	sb.WriteString("\n\n")

	fmt.Fprintf(sb, "Run:        %s\n", s.Run.ID)
	fmt.Fprintf(sb, "Date:       %s\n", s.Date().Format(DateLayout))
	fmt.Fprintf(sb, "Work Dir:   %s\n", s.Run.WorkDir)
	fmt.Fprintf(sb, "Policy:     %s\n", s.Run.Policy)
	fmt.Fprintf(sb, "Targets:    %d scanned of %d\n", len(s.Scanned()), len(s.Run.Targets))
	fmt.Fprintf(sb, "Status:     %s\n", s.StatusLine())
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeTargets(sb *strings.Builder, s *Summary) {
	section(sb, "SCAN RESULTS")

	if len(s.Run.Results) == 0 {
		sb.WriteString("  No target was scanned\n\n")
		return
	}

	for _, res := range s.Run.Results {
		if res == nil {
			continue
		}
		marker := "+"
		if res.Failures() > 0 || !res.Completed {
			marker = "!"
		}
		fmt.Fprintf(sb, "[%s] %s\n", marker, res.URL)

		for _, p := range res.Passes {
			fmt.Fprintf(sb, "    %-14s %s", p.Kind.Title(), statusText(p.Status))
			if w.verbose && p.Status != model.PassSkipped {
				fmt.Fprintf(sb, " (exit %d, %s)", p.ExitCode, p.Duration().Round(time.Second))
			}
			if w.verbose && p.Error != "" {
				fmt.Fprintf(sb, " - %s", p.Error)
			}
			sb.WriteString("\n")
		}
		sb.WriteString("\n")
	}
}

func (w *SimpleWriter) writeArchive(sb *strings.Builder, s *Summary) {
	a := s.Run.Archive
	if a == nil {
		return
	}

	section(sb, "ARCHIVE")
	fmt.Fprintf(sb, "  File:     %s\n", a.Path)
	fmt.Fprintf(sb, "  Reports:  %d\n", len(a.Entries))
	fmt.Fprintf(sb, "  Size:     %s\n", humanSize(a.Size))
	fmt.Fprintf(sb, "  SHA3-256: %s\n", a.SHA3)
	if w.verbose {
		for _, e := range a.Entries {
			fmt.Fprintf(sb, "    - %s\n", e)
		}
	}
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeFooter(sb *strings.Builder, s *Summary) {
	if n := s.Run.Notification; n != nil {
		section(sb, "NOTIFICATION")
		fmt.Fprintf(sb, "  Subject:  %s\n", n.Subject)
		fmt.Fprintf(sb, "  To:       %s\n", strings.Join(n.Recipients, ", "))
		switch {
		case n.DryRunFile != "":
			fmt.Fprintf(sb, "  Written:  %s (dry run)\n", n.DryRunFile)
		case n.Sent:
			sb.WriteString("  Sent:     yes\n")
		default:
			sb.WriteString("  Sent:     no\n")
		}
		sb.WriteString("\n")
	}

	sb.WriteString(strings.Repeat("=", ruleWidth))
	sb.WriteString("\n")
}

func section(sb *strings.Builder, title string) {
	sb.WriteString(strings.Repeat("-", ruleWidth))
	sb.WriteString("\n")
	sb.WriteString(title)
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("-", ruleWidth))
	sb.WriteString("\n\n")
}

func centered(text string) string {
	pad := (ruleWidth - len(text)) / 2
	if pad < 0 {
		pad = 0
	}
	return strings.Repeat(" ", pad) + text + "\n"
}
