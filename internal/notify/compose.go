package notify

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/wneessen/go-mail"

	"github.com/nao1215/zapreport/internal/config"
	"github.com/nao1215/zapreport/internal/report"
)

// zipContentType is the MIME type of the attached archive.
const zipContentType = mail.ContentType("application/zip")

// mailer identifies the sending program in the X-Mailer header.
const mailer = "zapreport"

// Compose builds the report email for summary with the archive at archivePath attached.
// The HTML body is the rendered summary and the markdown source is the
// plain-text alternative.
func Compose(summary *report.Summary, cfg *config.Config, archivePath string) (*mail.Msg, error) {
	if _, err := os.Stat(archivePath); err != nil {
		return nil, fmt.Errorf("archive not readable: %w", err)
	}

	var text bytes.Buffer
	if _, err := report.NewMarkdownWriter(&text).Write(summary); err != nil {
		return nil, fmt.Errorf("failed to render summary: %w", err)
	}
	html, err := report.RenderHTML(text.Bytes())
	if err != nil {
		return nil, err
	}

	msg := mail.NewMsg()
	if err := msg.From(cfg.MailFrom); err != nil {
		return nil, fmt.Errorf("invalid sender %q: %w", cfg.MailFrom, err)
	}
	if err := msg.To(cfg.MailTo...); err != nil {
		return nil, fmt.Errorf("invalid recipients: %w", err)
	}
	if cfg.ReplyTo != "" {
		if err := msg.ReplyTo(cfg.ReplyTo); err != nil {
			return nil, fmt.Errorf("invalid reply-to %q: %w", cfg.ReplyTo, err)
		}
	}

	msg.Subject(Subject(summary))
	msg.SetDate()
	msg.SetMessageID()
	msg.SetGenHeader(mail.HeaderXMailer, mailer)
	msg.SetBodyString(mail.TypeTextHTML, string(html))
	msg.AddAlternativeString(mail.TypeTextPlain, text.String())
	msg.AttachFile(archivePath,
		mail.WithFileName(filepath.Base(archivePath)),
		mail.WithFileContentType(zipContentType),
	)

	return msg, nil
}

// Subject returns the mail subject of summary, e.g.
// "ZAP Security Scan Report - 01-May-2024".
func Subject(summary *report.Summary) string {
	return summary.Heading()
}
