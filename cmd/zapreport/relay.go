package main

import (
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/nao1215/zapreport/internal/notify"
)

// NewRelayCmd creates the relay command.
func NewRelayCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "relay",
		Short: "Check that the mail relay answers",
		Long: `Relay connects to the configured SMTP relay, prints its greeting and
disconnects. No credentials are sent.

Examples:
  # Probe the configured relay
  zapreport relay

  # Probe another relay through a SOCKS5 proxy
  zapreport relay --host smtp.example.com --port 587 --proxy 127.0.0.1:1080`,
		Args: cobra.NoArgs,
		RunE: runRelayCmd,
	}

	cmd.Flags().String("host", "", "Relay host (default: mail.host from the config)")
	cmd.Flags().Int("port", 0, "Relay port (default: mail.port from the config)")
	cmd.Flags().String("proxy", "", "SOCKS5 proxy address (host:port)")
	cmd.Flags().Duration("timeout", 0, "Connection timeout (default: mail.timeout from the config)")

	return cmd
}

// runRelayCmd executes the relay command.
func runRelayCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if host, _ := flags.GetString("host"); host != "" { //nolint:errcheck // flag is defined above
		cfg.SMTPHost = host
	}
	if port, _ := flags.GetInt("port"); port != 0 { //nolint:errcheck // flag is defined above
		cfg.SMTPPort = port
	}
	if proxy, _ := flags.GetString("proxy"); proxy != "" { //nolint:errcheck // flag is defined above
		cfg.SMTPProxy = proxy
	}
	if timeout, _ := flags.GetDuration("timeout"); timeout > 0 { //nolint:errcheck // flag is defined above
		cfg.SMTPTimeout = timeout
	}

	logger := setupLogger(cmd)

	ctx, stop := signalContext(cmd)
	defer stop()

	logger.Debug("probing relay", "address", cfg.RelayAddress(), "proxy", cfg.SMTPProxy)

	greeting, err := notify.Probe(ctx, cfg.RelayAddress(), cfg.SMTPProxy, cfg.SMTPTimeout)
	if err != nil {
		return fmt.Errorf("relay check failed: %w", err)
	}

	out := cmd.OutOrStdout()
	color.New(color.FgGreen).Fprintf(out, "Relay %s is reachable\n", greeting.Address) //nolint:errcheck // terminal output
	fmt.Fprintf(out, "  Host:    %s\n", greeting.Host)
	fmt.Fprintf(out, "  ESMTP:   %t\n", greeting.ESMTP)
	fmt.Fprintf(out, "  Latency: %s\n", greeting.Latency.Round(time.Millisecond))
	fmt.Fprintf(out, "  Banner:  %s\n", greeting.Banner)
	return nil
}
