package report

import (
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Inline styles applied to the rendered document. Most mail clients drop
// <style> blocks, so every element carries its own style attribute.
const (
	bodyStyle       = "font-family:Arial,Helvetica,sans-serif;font-size:14px;color:#222;"
	tableStyle      = "border-collapse:collapse;margin:8px 0;"
	cellStyle       = "border:1px solid #ccc;padding:4px 10px;text-align:left;"
	headerCellStyle = cellStyle + "background:#f2f2f2;"
	codeStyle       = "font-family:Consolas,monospace;background:#f6f8fa;padding:0 3px;"
)

// alertColors maps markdown alert markers to their border colors.
var alertColors = map[string]string{
	"NOTE":      "#0969da",
	"TIP":       "#1a7f37",
	"IMPORTANT": "#8250df",
	"WARNING":   "#9a6700",
	"CAUTION":   "#d1242f",
}

// RenderHTML converts summary markdown into a standalone HTML document
// with inline styles.
func RenderHTML(src []byte) ([]byte, error) {
	md := goldmark.New(
		goldmark.WithExtensions(extension.Table),
		goldmark.WithRendererOptions(html.WithHardWraps()),
	)

	var body bytes.Buffer
	if err := md.Convert(src, &body); err != nil {
		return nil, fmt.Errorf("failed to render markdown: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(&body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse rendered html: %w", err)
	}

	doc.Find("head").AppendHtml(`<meta charset="utf-8">`)
	doc.Find("body").SetAttr("style", bodyStyle)
	doc.Find("table").SetAttr("style", tableStyle)
	doc.Find("th").SetAttr("style", headerCellStyle)
	doc.Find("td").SetAttr("style", cellStyle)
	doc.Find("code").SetAttr("style", codeStyle)
	styleAlerts(doc)

	out, err := doc.Html()
	if err != nil {
		return nil, fmt.Errorf("failed to serialize html: %w", err)
	}
	return []byte("<!DOCTYPE html>\n" + out), nil
}

// styleAlerts turns "[!TIP]" style blockquotes into labelled, colored boxes.
func styleAlerts(doc *goquery.Document) {
	title := cases.Title(language.English)

	doc.Find("blockquote").Each(func(_ int, bq *goquery.Selection) {
		p := bq.Find("p").First()
		inner, err := p.Html()
		if err != nil {
			return
		}
		trimmed := strings.TrimSpace(inner)

		for marker, color := range alertColors {
			prefix := "[!" + marker + "]"
			if !strings.HasPrefix(trimmed, prefix) {
				continue
			}
			rest := strings.TrimSpace(strings.TrimPrefix(trimmed, prefix))
			rest = strings.TrimSpace(strings.TrimPrefix(rest, "<br/>"))
			rest = strings.TrimSpace(strings.TrimPrefix(rest, "<br>"))

			p.SetHtml("<strong>" + title.String(strings.ToLower(marker)) + ":</strong> " + rest)
			bq.SetAttr("style", "margin:8px 0;padding:6px 12px;border-left:4px solid "+color+";")
			return
		}
	})
}

// HTMLWriter outputs run summaries as an HTML document.
type HTMLWriter struct {
	baseWriter
}

// NewHTMLWriter creates an HTMLWriter that outputs to the given writer.
func NewHTMLWriter(output io.Writer) *HTMLWriter {
	return &HTMLWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write renders the summary markdown and outputs it as HTML.
func (w *HTMLWriter) Write(summary *Summary) (int, error) {
	var src bytes.Buffer
	if _, err := NewMarkdownWriter(&src).Write(summary); err != nil {
		return 0, err
	}

	out, err := RenderHTML(src.Bytes())
	if err != nil {
		return 0, err
	}
	return w.output.Write(out)
}

// baseName returns the last element of path.
func baseName(path string) string {
	return filepath.Base(path)
}
