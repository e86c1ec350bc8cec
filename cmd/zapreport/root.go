package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for zapreport.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "zapreport",
		Short: "Run OWASP ZAP scans and mail the reports",
		Long: `zapreport scans web applications with OWASP ZAP and mails the results.

For every target it runs three scans in the ZAP container:
- a baseline scan (passive, spider only)
- an API scan against the target's API definition
- a full scan (active attacks)

The HTML reports are bundled into zap_scan_reports_YYYYMMDD.zip and sent
over an authenticated STARTTLS relay. Relay credentials are read from
SMTP_USERNAME and SMTP_PASSWORD.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().Bool("log-json", false, "Write logs as JSON")
	cmd.PersistentFlags().StringP("config", "c", "",
		"Configuration file path (default: .zapreport in current or home directory)")

	cmd.AddCommand(NewRunCmd())
	cmd.AddCommand(NewArchiveCmd())
	cmd.AddCommand(NewNotifyCmd())
	cmd.AddCommand(NewRelayCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
