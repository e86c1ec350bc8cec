package config

import "errors"

// Configuration validation errors.
// Config.Validate and Config.ValidateMail return these; match them with errors.Is.
//
// Design decision: Where the fix is not obvious the message names the config
// key or environment variable to set, because the run command prints the
// error as is.
var (
	// ErrNoTarget is returned when no target URL is configured.
	ErrNoTarget = errors.New("no target specified: pass URLs as arguments, set CUSTOM_URLS or add targets to the config file")

	// ErrNoWorkDir is returned when the working directory is empty.
	ErrNoWorkDir = errors.New("working directory must not be empty")

	// ErrInvalidPolicy is returned when the failure policy is unknown.
	ErrInvalidPolicy = errors.New("invalid failure policy: must be continue or abort")

	// ErrInvalidParallel is returned when the number of concurrently scanned targets is not positive.
	ErrInvalidParallel = errors.New("invalid parallel value: must be at least 1")

	// ErrNoPasses is returned when every scan pass is disabled.
	ErrNoPasses = errors.New("no scan passes enabled")

	// ErrNoImage is returned when the scanner image is empty.
	ErrNoImage = errors.New("scanner image must not be empty")

	// ErrInvalidPassTimeout is returned when the per-pass timeout is negative.
	// Use 0 to let the scanner decide how long a pass takes.
	ErrInvalidPassTimeout = errors.New("invalid pass timeout: must be non-negative")

	// ErrNoSender is returned when mail is enabled but no sender address is set.
	ErrNoSender = errors.New("no sender address: set mail.from or ZAPREPORT_MAIL_FROM")

	// ErrNoRecipients is returned when mail is enabled but no recipient is set.
	ErrNoRecipients = errors.New("no recipients: set mail.to or ZAPREPORT_MAIL_TO")

	// ErrNoRelayHost is returned when mail is enabled but the relay host is empty.
	ErrNoRelayHost = errors.New("mail relay host must not be empty")

	// ErrInvalidPort is returned when the relay port is out of range.
	ErrInvalidPort = errors.New("invalid mail relay port: must be between 1 and 65535")

	// ErrInvalidSMTPTimeout is returned when the relay timeout is not positive.
	ErrInvalidSMTPTimeout = errors.New("invalid mail relay timeout: must be positive")

	// ErrInvalidAuthMechanism is returned when the SMTP AUTH mechanism is unknown.
	ErrInvalidAuthMechanism = errors.New("invalid SMTP auth mechanism: must be plain or login")

	// ErrUnsupportedHistoryDriver is returned for history drivers other than sqlite and postgres.
	ErrUnsupportedHistoryDriver = errors.New("unsupported history driver: must be sqlite or postgres")

	// ErrMissingHistoryDSN is returned when the postgres history driver has no DSN.
	ErrMissingHistoryDSN = errors.New("history driver postgres requires history.dsn")
)
