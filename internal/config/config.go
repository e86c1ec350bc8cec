package config

import (
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/adrg/xdg"

	"github.com/nao1215/zapreport/internal/model"
)

// Default configuration values.
const (
	// AppName is the application name used for XDG directory paths.
	AppName = "zapreport"

	// DefaultImage is the ZAP container image. The stable tag tracks the
	// latest weekly-tested release.
	DefaultImage = "ghcr.io/zaproxy/zaproxy:stable"

	// DefaultDockerBinary is the container CLI used to run the scanner.
	// Any CLI accepting "run -v ... --rm -t IMAGE CMD" works (e.g. podman).
	DefaultDockerBinary = "docker"

	// DefaultAPIFormat is the API definition format passed to zap-api-scan.py.
	DefaultAPIFormat = "openapi"

	// DefaultParallel scans one target at a time.
	DefaultParallel = 1

	// DefaultSMTPHost is the mail relay host.
	DefaultSMTPHost = "email-smtp.us-east-1.amazonaws.com"

	// DefaultSMTPPort is the submission port; the connection is upgraded with STARTTLS.
	DefaultSMTPPort = 587

	// DefaultSMTPAuth is the SMTP AUTH mechanism.
	DefaultSMTPAuth = "plain"

	// DefaultSMTPTimeout bounds dialing and each SMTP command.
	DefaultSMTPTimeout = 30 * time.Second

	// DefaultSubjectPrefix is the fixed part of the mail subject line.
	DefaultSubjectPrefix = "ZAP Security Scan Report"

	// DefaultHistoryDriver stores run history in a local SQLite file.
	DefaultHistoryDriver = "sqlite"

	// workDirName is the name of the default working directory under the temp dir.
	workDirName = "zap_reports"
)

// Environment variable names.
const (
	// EnvSMTPUsername holds the relay username.
	EnvSMTPUsername = "SMTP_USERNAME"
	// EnvSMTPPassword holds the relay password.
	EnvSMTPPassword = "SMTP_PASSWORD" //nolint:gosec // environment variable name, not a credential
	// EnvCustomURLs is a comma-separated list overriding the configured targets.
	EnvCustomURLs = "CUSTOM_URLS"
	// EnvMailFrom overrides the sender address.
	EnvMailFrom = "ZAPREPORT_MAIL_FROM"
	// EnvMailTo is a comma-separated list overriding the recipients.
	EnvMailTo = "ZAPREPORT_MAIL_TO"
	// EnvWorkDir overrides the working directory.
	EnvWorkDir = "ZAPREPORT_WORKDIR"
)

// DefaultMailFrom is the built-in sender address.
const DefaultMailFrom = "zap-scanner@cloudkeeper.com"

// DefaultMailTo is the built-in distribution list. mail.to and
// ZAPREPORT_MAIL_TO replace it as a whole.
var DefaultMailTo = []string{"security@cloudkeeper.com"}

// DefaultTargets is the built-in target list used when neither arguments,
// CUSTOM_URLS nor the config file provide one.
var DefaultTargets = []string{
	"http://app.cloudkeeper.com",
	"http://auto.cloudkeeper.com",
	"http://gcp.cloudkeeper.com",
}

// Config holds all configuration options for a zapreport run.
// This struct is populated from defaults, the config file, the environment
// and CLI flags, and is passed explicitly to every step rather than read
// from global state.
type Config struct {
	// ConfigFilePath is the path to the configuration file given with --config.
	ConfigFilePath string

	// Verbose enables debug-level logging.
	Verbose bool

	// WorkDir is the root working directory. It holds one subdirectory per
	// target and the final archive.
	WorkDir string

	// KeepWorkDir skips removing previous reports from WorkDir before scanning.
	KeepWorkDir bool

	// Targets is the list of target URLs to scan, in order.
	Targets []string

	// Policy decides whether a failed baseline or active pass aborts the run.
	Policy model.FailurePolicy

	// Parallel is the number of targets scanned concurrently.
	// 1 keeps the run fully sequential.
	Parallel int

	// Passes lists the enabled scan passes. Disabled passes are recorded as skipped.
	Passes []model.PassKind

	// Image is the scanner container image.
	Image string

	// DockerBinary is the container CLI executable.
	DockerBinary string

	// DockerArgs are extra arguments inserted after "run" options and before the image,
	// e.g. ["--network", "host"].
	DockerArgs []string

	// Debug passes -d to the scanner scripts.
	Debug bool

	// AjaxSpider passes -j to the baseline and active scripts.
	AjaxSpider bool

	// APIFormat is the API definition format for the AJAX/API pass.
	APIFormat string

	// AlertsAreSuccess treats scanner exit codes 1 (FAIL alerts) and 2 (WARN alerts)
	// as a completed pass rather than a failure.
	AlertsAreSuccess bool

	// PassTimeout bounds a single pass. 0 means no timeout.
	PassTimeout time.Duration

	// MailEnabled sends the archive after archiving.
	MailEnabled bool

	// DryRun writes the email to a file next to the archive instead of sending it.
	DryRun bool

	// SMTPHost is the relay host name.
	SMTPHost string

	// SMTPPort is the relay port.
	SMTPPort int

	// SMTPUsername is the relay user name, read from SMTP_USERNAME.
	SMTPUsername string

	// SMTPPassword is the relay password, read from SMTP_PASSWORD.
	SMTPPassword string

	// SMTPAuth is the SMTP AUTH mechanism ("plain" or "login").
	SMTPAuth string

	// SMTPProxy is an optional SOCKS5 proxy address (host:port) for the relay connection.
	SMTPProxy string

	// SMTPTimeout bounds dialing the relay and each SMTP command.
	SMTPTimeout time.Duration

	// MailFrom is the sender address.
	MailFrom string

	// MailTo are the recipient addresses.
	MailTo []string

	// ReplyTo is the optional Reply-To address.
	ReplyTo string

	// SubjectPrefix is the subject text preceding the run date.
	SubjectPrefix string

	// Signature is appended to the mail body, one line per line.
	Signature string

	// HistoryEnabled records every run in the history database.
	HistoryEnabled bool

	// HistoryDriver is "sqlite" or "postgres".
	HistoryDriver string

	// HistoryDSN is the PostgreSQL connection string.
	HistoryDSN string

	// DBDir is the directory of the SQLite history database.
	DBDir string
}

// NewConfig creates a new Config with default values.
func NewConfig() *Config {
	return &Config{
		WorkDir:          DefaultWorkDir(),
		Targets:          append([]string(nil), DefaultTargets...),
		Policy:           model.PolicyContinue,
		Parallel:         DefaultParallel,
		Passes:           model.AllPassKinds(),
		Image:            DefaultImage,
		DockerBinary:     DefaultDockerBinary,
		Debug:            true,
		APIFormat:        DefaultAPIFormat,
		AlertsAreSuccess: true,
		MailEnabled:      true,
		SMTPHost:         DefaultSMTPHost,
		SMTPPort:         DefaultSMTPPort,
		SMTPAuth:         DefaultSMTPAuth,
		SMTPTimeout:      DefaultSMTPTimeout,
		MailFrom:         DefaultMailFrom,
		MailTo:           append([]string(nil), DefaultMailTo...),
		SubjectPrefix:    DefaultSubjectPrefix,
		HistoryEnabled:   true,
		HistoryDriver:    DefaultHistoryDriver,
		DBDir:            XDGDataDir(),
	}
}

// DefaultWorkDir returns the default working directory (zap_reports under the temp dir).
func DefaultWorkDir() string {
	return filepath.Join(os.TempDir(), workDirName)
}

// XDGDataDir returns the XDG data directory for zapreport.
// On Linux: ~/.local/share/zapreport
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for zapreport.
// On Linux: ~/.config/zapreport
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// RelayAddress returns the relay address in host:port form.
func (c *Config) RelayAddress() string {
	return net.JoinHostPort(c.SMTPHost, strconv.Itoa(c.SMTPPort))
}

// Validate checks if the configuration is valid.
// It returns the first problem found as a sentinel error.
// Credentials are not checked here; the notifier refuses to connect
// without them so that archive-only commands work without a relay account.
func (c *Config) Validate() error {
	if len(c.Targets) == 0 {
		return ErrNoTarget
	}
	if strings.TrimSpace(c.WorkDir) == "" {
		return ErrNoWorkDir
	}
	if _, err := model.ParseFailurePolicy(string(c.Policy)); err != nil {
		return ErrInvalidPolicy
	}
	if c.Parallel < 1 {
		return ErrInvalidParallel
	}
	if len(c.Passes) == 0 {
		return ErrNoPasses
	}
	if strings.TrimSpace(c.Image) == "" {
		return ErrNoImage
	}
	if c.PassTimeout < 0 {
		return ErrInvalidPassTimeout
	}

	if c.MailEnabled {
		if err := c.ValidateMail(); err != nil {
			return err
		}
	}

	if c.HistoryEnabled {
		switch c.HistoryDriver {
		case "sqlite":
		case "postgres":
			if c.HistoryDSN == "" {
				return ErrMissingHistoryDSN
			}
		default:
			return ErrUnsupportedHistoryDriver
		}
	}

	return nil
}

// ValidateMail checks only the mail relay and addressing settings.
// It is used by commands that send an existing archive.
func (c *Config) ValidateMail() error {
	if strings.TrimSpace(c.MailFrom) == "" {
		return ErrNoSender
	}
	if len(c.MailTo) == 0 {
		return ErrNoRecipients
	}
	if strings.TrimSpace(c.SMTPHost) == "" {
		return ErrNoRelayHost
	}
	if c.SMTPPort < 1 || c.SMTPPort > 65535 {
		return ErrInvalidPort
	}
	if c.SMTPTimeout <= 0 {
		return ErrInvalidSMTPTimeout
	}
	switch strings.ToLower(c.SMTPAuth) {
	case "plain", "login":
	default:
		return ErrInvalidAuthMechanism
	}
	return nil
}

// SplitList splits a comma-separated list, trimming each entry and dropping
// empty ones. It returns nil when nothing remains.
func SplitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
