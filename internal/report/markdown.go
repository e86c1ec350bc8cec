package report

import (
	"io"
	"strconv"

	"github.com/nao1215/markdown"

	"github.com/nao1215/zapreport/internal/model"
)

// MarkdownWriter outputs run summaries in Markdown format.
// The same text is the plain-text alternative of the mail and the source
// of the HTML body.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs the summary in Markdown format.
func (w *MarkdownWriter) Write(summary *Summary) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, summary)
	w.writeTargets(md, summary)
	w.writePasses(md, summary)
	w.writeResults(md, summary)
	w.writeArchive(md, summary)
	w.writeFooter(md, summary)

	return len(md.String()), md.Build()
}

func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, s *Summary) {
	md.H1(s.Heading())
	md.PlainText("")
	md.PlainText(s.Greeting)
	md.PlainText("")
}

func (w *MarkdownWriter) writeTargets(md *markdown.Markdown, s *Summary) {
	scanned := s.Scanned()
	if len(scanned) == 0 {
		md.PlainText("No target completed its scan passes in this run.")
		md.PlainText("")
		return
	}

	md.PlainTextf("Please find attached %s for the following target URLs:", markdown.Bold("ZAP security scan reports"))
	md.PlainText("")
	md.BulletList(scanned...)
	md.PlainText("")
}

func (w *MarkdownWriter) writePasses(md *markdown.Markdown, s *Summary) {
	kinds := s.PerformedPasses()
	if len(kinds) == 0 {
		return
	}

	titles := make([]string, len(kinds))
	for i, kind := range kinds {
		titles[i] = markdown.Bold(kind.Title())
	}

	md.PlainText("The following scans were performed on each of the above URLs:")
	md.PlainText("")
	md.OrderedList(titles...)
	md.PlainText("")
}

func (w *MarkdownWriter) writeResults(md *markdown.Markdown, s *Summary) {
	md.H2("Scan Results")
	md.PlainText("")

	kinds := model.AllPassKinds()
	header := make([]string, 0, len(kinds)+1)
	header = append(header, "Target")
	for _, kind := range kinds {
		header = append(header, kind.Title())
	}

	rows := make([][]string, 0, len(s.Run.Results))
	for _, res := range s.Run.Results {
		if res == nil {
			continue
		}
		row := make([]string, 0, len(header))
		row = append(row, res.URL)
		for _, kind := range kinds {
			row = append(row, passStatus(res, kind))
		}
		rows = append(rows, row)
	}

	if len(rows) == 0 {
		md.PlainText("No target was scanned.")
		md.PlainText("")
	} else {
		md.Table(markdown.TableSet{Header: header, Rows: rows})
		md.PlainText("")
	}

	if s.Healthy() {
		md.Tip(s.StatusLine())
	} else {
		md.Warning(s.StatusLine())
	}
	md.PlainText("")
}

func (w *MarkdownWriter) writeArchive(md *markdown.Markdown, s *Summary) {
	a := s.Run.Archive
	if a == nil {
		return
	}

	md.H2("Archive")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"File", markdown.Code(baseName(a.Path))},
			{"Reports", strconv.Itoa(len(a.Entries))},
			{"Size", humanSize(a.Size)},
			{"SHA3-256", markdown.Code(a.SHA3)},
		},
	})
	md.PlainText("")
}

func (w *MarkdownWriter) writeFooter(md *markdown.Markdown, s *Summary) {
	md.HorizontalRule()
	md.PlainText("")
	for _, line := range s.SignatureLines() {
		md.PlainText(line)
	}
}
