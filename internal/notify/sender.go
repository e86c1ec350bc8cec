package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"time"

	"github.com/wneessen/go-mail"
	"golang.org/x/net/proxy"

	"github.com/nao1215/zapreport/internal/config"
)

// ErrMissingCredentials is returned when the relay username or password is
// not set. No connection is attempted in that case.
var ErrMissingCredentials = errors.New("SMTP credentials are not set (SMTP_USERNAME, SMTP_PASSWORD)")

// Transport delivers a composed message.
type Transport interface {
	Send(ctx context.Context, msg *mail.Msg) error
}

// SMTPSender sends messages through an authenticated STARTTLS relay.
//
// Design decision: The TLS policy is mandatory, not opportunistic. A relay
// that does not offer STARTTLS fails the send instead of receiving the
// credentials and the archive in clear text.
type SMTPSender struct {
	host     string
	port     int
	username string
	password string
	auth     mail.SMTPAuthType
	timeout  time.Duration
	dialer   proxy.Dialer
	logger   *slog.Logger
}

// SenderOption configures an SMTPSender.
type SenderOption func(*SMTPSender)

// WithSenderLogger sets a custom logger for the sender.
func WithSenderLogger(logger *slog.Logger) SenderOption {
	return func(s *SMTPSender) {
		s.logger = logger
	}
}

// NewSMTPSender creates a sender from the relay settings of cfg.
// It fails with ErrMissingCredentials before anything else when the
// credentials are incomplete.
func NewSMTPSender(cfg *config.Config, opts ...SenderOption) (*SMTPSender, error) {
	if cfg.SMTPUsername == "" || cfg.SMTPPassword == "" {
		return nil, ErrMissingCredentials
	}

	auth, err := authType(cfg.SMTPAuth)
	if err != nil {
		return nil, err
	}

	dialer, err := newDialer(cfg.SMTPProxy)
	if err != nil {
		return nil, err
	}

	s := &SMTPSender{
		host:     cfg.SMTPHost,
		port:     cfg.SMTPPort,
		username: cfg.SMTPUsername,
		password: cfg.SMTPPassword,
		auth:     auth,
		timeout:  cfg.SMTPTimeout,
		dialer:   dialer,
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.logger == nil {
		s.logger = slog.Default()
	}

	return s, nil
}

// Send connects to the relay, upgrades with STARTTLS, authenticates and
// delivers msg. Any failure is returned; nothing is retried.
func (s *SMTPSender) Send(ctx context.Context, msg *mail.Msg) error {
	client, err := mail.NewClient(s.host,
		mail.WithPort(s.port),
		mail.WithTLSPolicy(mail.TLSMandatory),
		mail.WithSMTPAuth(s.auth),
		mail.WithUsername(s.username),
		mail.WithPassword(s.password),
		mail.WithTimeout(s.timeout),
		mail.WithDialContextFunc(func(ctx context.Context, network, address string) (net.Conn, error) {
			return dialWithContext(ctx, s.dialer, network, address)
		}),
	)
	if err != nil {
		return fmt.Errorf("failed to configure SMTP client: %w", err)
	}

	s.logger.Info("sending report email",
		"relay", net.JoinHostPort(s.host, fmt.Sprint(s.port)),
		"mechanism", string(s.auth),
		"smtp_username", s.username,
	)

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("failed to send email via %s: %w", s.host, err)
	}
	return nil
}

// authType maps a configured mechanism name to go-mail's type.
func authType(name string) (mail.SMTPAuthType, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "plain":
		return mail.SMTPAuthPlain, nil
	case "login":
		return mail.SMTPAuthLogin, nil
	default:
		return "", fmt.Errorf("%w: %s", config.ErrInvalidAuthMechanism, name)
	}
}
