package notify

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/wneessen/go-mail"

	"github.com/nao1215/zapreport/internal/config"
	"github.com/nao1215/zapreport/internal/model"
	"github.com/nao1215/zapreport/internal/report"
)

// emlSuffix is appended to the archive path in dry-run mode.
const emlSuffix = ".eml"

// Notifier composes the report email and hands it to a Transport, or writes
// it to disk in dry-run mode.
type Notifier struct {
	cfg       *config.Config
	transport Transport
	dryRun    bool
	logger    *slog.Logger
}

// NotifierOption configures a Notifier.
type NotifierOption func(*Notifier)

// WithTransport sets the transport used to deliver messages.
func WithTransport(t Transport) NotifierOption {
	return func(n *Notifier) {
		n.transport = t
	}
}

// WithDryRun writes the message next to the archive instead of sending it.
func WithDryRun(dryRun bool) NotifierOption {
	return func(n *Notifier) {
		n.dryRun = dryRun
	}
}

// WithNotifierLogger sets a custom logger for the notifier.
func WithNotifierLogger(logger *slog.Logger) NotifierOption {
	return func(n *Notifier) {
		n.logger = logger
	}
}

// NewNotifier creates a Notifier. Without WithTransport, an SMTPSender is
// created from cfg on the first send.
func NewNotifier(cfg *config.Config, opts ...NotifierOption) *Notifier {
	n := &Notifier{cfg: cfg}

	for _, opt := range opts {
		opt(n)
	}

	if n.logger == nil {
		n.logger = slog.Default()
	}

	return n
}

// Notify mails the archive at archivePath together with the summary.
func (n *Notifier) Notify(ctx context.Context, summary *report.Summary, archivePath string) (*model.Notification, error) {
	msg, err := Compose(summary, n.cfg, archivePath)
	if err != nil {
		return nil, err
	}

	result := &model.Notification{
		Subject:    Subject(summary),
		Recipients: append([]string(nil), n.cfg.MailTo...),
	}

	if n.dryRun {
		path := archivePath + emlSuffix
		if err := WriteMessage(msg, path); err != nil {
			return result, err
		}
		n.logger.Info("dry run: email written instead of sent", "path", path)
		result.DryRunFile = path
		return result, nil
	}

	transport := n.transport
	if transport == nil {
		sender, err := NewSMTPSender(n.cfg, WithSenderLogger(n.logger))
		if err != nil {
			return result, err
		}
		transport = sender
	}

	if err := transport.Send(ctx, msg); err != nil {
		return result, err
	}

	result.Sent = true
	n.logger.Info("email sent", "recipients", len(result.Recipients), "subject", result.Subject)
	return result, nil
}

// WriteMessage writes msg in RFC 5322 format to path.
func WriteMessage(msg *mail.Msg, path string) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600) //nolint:gosec // path derived from the archive path
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if _, err := msg.WriteTo(f); err != nil {
		_ = f.Close() //nolint:errcheck // already failing
		return fmt.Errorf("failed to write message: %w", err)
	}
	return f.Close()
}
