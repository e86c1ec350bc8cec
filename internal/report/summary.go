package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/nao1215/zapreport/internal/model"
)

// Presentation defaults.
const (
	DefaultTitle     = "ZAP Security Scan Report"
	DefaultGreeting  = "Hi Team,"
	DefaultSignature = "Warm Regards,"

	// DateLayout is the human-readable run date, e.g. 01-May-2024.
	DateLayout = "02-Jan-2006"
)

// Summary is the presentation view of a run.
type Summary struct {
	// Run is the run being summarized.
	Run *model.Run

	// Title heads the summary and prefixes the mail subject.
	Title string

	// Greeting opens the summary.
	Greeting string

	// Signature closes the summary, one line per line.
	Signature string
}

// NewSummary creates a Summary of run. Empty title or signature use the defaults.
func NewSummary(run *model.Run, title, signature string) *Summary {
	if strings.TrimSpace(title) == "" {
		title = DefaultTitle
	}
	if strings.TrimSpace(signature) == "" {
		signature = DefaultSignature
	}
	return &Summary{
		Run:       run,
		Title:     title,
		Greeting:  DefaultGreeting,
		Signature: signature,
	}
}

// Date returns the run start date.
func (s *Summary) Date() time.Time {
	return s.Run.StartedAt
}

// Heading returns the title followed by the run date.
func (s *Summary) Heading() string {
	return fmt.Sprintf("%s - %s", s.Title, s.Date().Format(DateLayout))
}

// Scanned returns the URLs whose pass sequence completed.
func (s *Summary) Scanned() []string {
	return s.Run.ScannedURLs()
}

// PerformedPasses returns, in execution order, the pass kinds that ran on
// at least one target.
func (s *Summary) PerformedPasses() []model.PassKind {
	ran := make(map[model.PassKind]bool)
	for _, res := range s.Run.Results {
		if res == nil {
			continue
		}
		for _, p := range res.Passes {
			if p.Status != model.PassSkipped {
				ran[p.Kind] = true
			}
		}
	}

	kinds := make([]model.PassKind, 0, len(ran))
	for _, kind := range model.AllPassKinds() {
		if ran[kind] {
			kinds = append(kinds, kind)
		}
	}
	return kinds
}

// Healthy reports whether the run finished without errors or failed passes.
func (s *Summary) Healthy() bool {
	return s.Run.Error == "" && s.Run.FailedPasses() == 0
}

// StatusLine describes the overall outcome in one sentence.
func (s *Summary) StatusLine() string {
	switch failed := s.Run.FailedPasses(); {
	case s.Run.Error != "":
		return "The run stopped early: " + s.Run.Error
	case failed == 1:
		return "1 scan pass failed. Its report may be missing from the archive."
	case failed > 1:
		return fmt.Sprintf("%d scan passes failed. Their reports may be missing from the archive.", failed)
	default:
		return "All scan passes completed."
	}
}

// SignatureLines returns the signature split into trimmed non-empty lines.
func (s *Summary) SignatureLines() []string {
	lines := make([]string, 0)
	for _, line := range strings.Split(s.Signature, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			lines = append(lines, trimmed)
		}
	}
	return lines
}

// statusText returns the display text of a pass status, e.g. "Succeeded".
func statusText(status model.PassStatus) string {
	if status == "" {
		return "-"
	}
	return cases.Title(language.English).String(string(status))
}

// passStatus returns the display status of kind for res.
func passStatus(res *model.TargetResult, kind model.PassKind) string {
	p, ok := res.Pass(kind)
	if !ok {
		return "-"
	}
	return statusText(p.Status)
}

// humanSize formats a byte count, e.g. "4.2 KiB".
func humanSize(n int64) string {
	if n < 0 {
		n = 0
	}
	return humanize.IBytes(uint64(n))
}
