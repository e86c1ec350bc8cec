package main

import (
	"fmt"
	"path"
	"time"

	"github.com/spf13/cobra"

	"github.com/nao1215/zapreport/internal/archive"
	"github.com/nao1215/zapreport/internal/config"
	"github.com/nao1215/zapreport/internal/model"
	"github.com/nao1215/zapreport/internal/report"
)

// NewNotifyCmd creates the notify command.
func NewNotifyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "notify <archive.zip> [url...]",
		Short: "Mail an existing report archive",
		Long: `Notify sends an archive created by 'zapreport run' or 'zapreport archive'
without scanning again. The summary lists the given URLs (or the configured
targets) and the reports found in the archive for each of them.

Examples:
  # Resend today's archive
  zapreport notify /tmp/zap_reports/zap_scan_reports_20240501.zip

  # Write the email to a file instead of sending it
  zapreport notify --dry-run reports.zip https://app.example.com`,
		Args: cobra.MinimumNArgs(1),
		RunE: runNotifyCmd,
	}

	cmd.Flags().Bool("dry-run", false,
		"Write the email to <archive>.eml instead of sending it")

	return cmd
}

// runNotifyCmd executes the notify command.
func runNotifyCmd(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cfg.DryRun, err = cmd.Flags().GetBool("dry-run"); err != nil {
		return err
	}
	if len(args) > 1 {
		cfg.Targets = args[1:]
	}

	if err := cfg.ValidateMail(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := setupLogger(cmd)

	ctx, stop := signalContext(cmd)
	defer stop()

	run, err := runFromArchive(args[0], cfg, time.Now())
	if err != nil {
		return err
	}

	notifier, err := newNotifier(cfg, nil, logger)
	if err != nil {
		return err
	}

	notification, err := notifier.Notify(ctx, report.NewSummary(run, cfg.SubjectPrefix, cfg.Signature), run.Archive.Path)
	if err != nil {
		return fmt.Errorf("failed to send report: %w", err)
	}

	out := cmd.OutOrStdout()
	if notification.DryRunFile != "" {
		fmt.Fprintf(out, "Email written to %s\n", notification.DryRunFile)
	} else {
		fmt.Fprintf(out, "Email sent to %d recipient(s): %s\n", len(notification.Recipients), notification.Subject)
	}
	return nil
}

// runFromArchive rebuilds a run record from an existing archive. A pass
// counts as succeeded when its report is in the archive.
func runFromArchive(archivePath string, cfg *config.Config, now time.Time) (*model.Run, error) {
	info, err := archive.Inspect(archivePath)
	if err != nil {
		return nil, err
	}

	targets, err := model.NewTargets(cfg.Targets)
	if err != nil {
		return nil, err
	}

	entries := make(map[string]bool, len(info.Entries))
	for _, e := range info.Entries {
		entries[e] = true
	}

	run := model.NewRun(targets, cfg.WorkDir, cfg.Policy, now)
	run.Archive = info
	for _, target := range targets {
		res := model.NewTargetResult(target, "")
		for _, kind := range model.AllPassKinds() {
			name := kind.ReportFileName(target.ID())
			pass := model.PassResult{Kind: kind, ReportPath: path.Join(target.ID(), name)}
			if entries[pass.ReportPath] {
				pass.Status = model.PassSucceeded
				pass.ReportExists = true
				res.Completed = true
			} else {
				pass.Status = model.PassSkipped
				pass.Error = "no report in archive"
			}
			res.Passes = append(res.Passes, pass)
		}
		run.Results = append(run.Results, res)
	}
	run.FinishedAt = now

	return run, nil
}
