package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/nao1215/zapreport/internal/config"
	"github.com/nao1215/zapreport/internal/model"
	"github.com/nao1215/zapreport/internal/notify"
	"github.com/nao1215/zapreport/internal/pipeline"
	"github.com/nao1215/zapreport/internal/report"
	"github.com/nao1215/zapreport/internal/scanner"
)

// NewRunCmd creates the run command.
func NewRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [url...]",
		Short: "Scan the targets, archive the reports and mail them",
		Long: `Run performs a complete scan cycle.

For every target, in order:
- zap-baseline.py  -> <workdir>/<id>/<id>_baseline.html
- zap-api-scan.py  -> <workdir>/<id>/<id>_ajax.html
- zap-full-scan.py -> <workdir>/<id>/<id>_active.html

Then every HTML report is zipped into <workdir>/zap_scan_reports_YYYYMMDD.zip
and mailed to the configured recipients.

Targets are taken from the arguments, else from CUSTOM_URLS (comma-separated),
else from the config file, else from the built-in list.

Examples:
  # Scan the configured targets
  zapreport run

  # Scan two URLs and stop on the first failed baseline or full scan
  zapreport run --policy abort https://app.example.com https://api.example.com

  # Write the email next to the archive instead of sending it
  zapreport run --dry-run

  # Scan three targets at a time, baseline only
  zapreport run --parallel 3 --pass baseline`,
		Args: cobra.ArbitraryArgs,
		RunE: runRunCmd,
	}

	cmd.Flags().String("workdir", config.DefaultWorkDir(),
		"Working directory for reports and the archive")
	cmd.Flags().Bool("keep-workdir", false,
		"Keep reports of previous runs in the working directory")
	cmd.Flags().String("policy", string(model.PolicyContinue),
		"Failure policy for baseline and full scans: continue or abort")
	cmd.Flags().Int("parallel", config.DefaultParallel,
		"Number of targets scanned concurrently")
	cmd.Flags().String("image", config.DefaultImage,
		"ZAP container image")
	cmd.Flags().StringSlice("pass", []string{"baseline", "ajax", "active"},
		"Scan passes to run (baseline, ajax, active)")
	cmd.Flags().Duration("pass-timeout", 0,
		"Maximum duration of a single scan pass (0 = no limit)")
	cmd.Flags().Bool("dry-run", false,
		"Write the email to <archive>.eml instead of sending it")
	cmd.Flags().Bool("no-mail", false,
		"Do not send the report email")
	cmd.Flags().Bool("no-history", false,
		"Do not record the run in the history database")
	cmd.Flags().StringP("output", "o", "",
		"Also write the run summary to a file (.json, .md, .html or text)")

	return cmd
}

// runRunCmd executes the run command.
func runRunCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildRunConfig(cmd, args)
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := setupLogger(cmd)

	ctx, stop := signalContext(cmd)
	defer stop()

	dockerPath, err := scanner.Preflight(cfg.DockerBinary)
	if err != nil {
		return err
	}
	logger.Debug("container CLI found", "path", dockerPath)

	output, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}

	return executeRun(ctx, cfg, runEnv{
		executor:   scanner.NewDockerExecutor(),
		out:        cmd.OutOrStdout(),
		outputPath: output,
		logger:     logger,
		now:        time.Now,
	})
}

// buildRunConfig loads the configuration and applies the run flags and
// positional targets on top of it.
func buildRunConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	if err := applyWorkDirFlag(cmd, cfg); err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("keep-workdir") {
		if cfg.KeepWorkDir, err = flags.GetBool("keep-workdir"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("policy") {
		name, err := flags.GetString("policy")
		if err != nil {
			return nil, err
		}
		if cfg.Policy, err = model.ParseFailurePolicy(name); err != nil {
			return nil, err
		}
	}
	if flags.Changed("parallel") {
		if cfg.Parallel, err = flags.GetInt("parallel"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("image") {
		if cfg.Image, err = flags.GetString("image"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("pass") {
		names, err := flags.GetStringSlice("pass")
		if err != nil {
			return nil, err
		}
		if cfg.Passes, err = config.ParsePasses(names); err != nil {
			return nil, err
		}
	}
	if flags.Changed("pass-timeout") {
		if cfg.PassTimeout, err = flags.GetDuration("pass-timeout"); err != nil {
			return nil, err
		}
	}
	if cfg.DryRun, err = flags.GetBool("dry-run"); err != nil {
		return nil, err
	}
	noMail, err := flags.GetBool("no-mail")
	if err != nil {
		return nil, err
	}
	if noMail {
		cfg.MailEnabled = false
	}
	noHistory, err := flags.GetBool("no-history")
	if err != nil {
		return nil, err
	}
	if noHistory {
		cfg.HistoryEnabled = false
	}

	if len(args) > 0 {
		cfg.Targets = args
	}

	return cfg, nil
}

// runEnv holds what executeRun needs besides the configuration.
type runEnv struct {
	// executor runs the scanner containers.
	executor scanner.Executor

	// transport sends the email. Nil means SMTP through the configured relay.
	transport notify.Transport

	// out receives progress lines and the run summary.
	out io.Writer

	// outputPath is an optional file for a second copy of the summary.
	outputPath string

	logger *slog.Logger
	now    func() time.Time
}

// executeRun builds the run pipeline and executes it.
func executeRun(ctx context.Context, cfg *config.Config, env runEnv) error {
	logger := env.logger

	targets, err := model.NewTargets(cfg.Targets)
	if err != nil {
		return err
	}

	workDir, err := filepath.Abs(cfg.WorkDir)
	if err != nil {
		return fmt.Errorf("invalid work directory: %w", err)
	}

	run := model.NewRun(targets, workDir, cfg.Policy, env.now())
	logger.Info("starting run",
		"run", run.ID,
		"targets", len(targets),
		"policy", cfg.Policy,
		"parallel", cfg.Parallel,
		"workdir", workDir,
	)

	// Resolve the notifier before scanning so that missing credentials
	// fail the run before hours of scanning.
	var notifier *notify.Notifier
	if cfg.MailEnabled {
		notifier, err = newNotifier(cfg, env.transport, logger)
		if err != nil {
			return err
		}
	}

	runner := scanner.NewRunner(env.executor, scanner.SettingsFromConfig(cfg), workDir,
		scanner.WithLogger(logger),
		scanner.WithConsole(env.out),
		scanner.WithPassTimeout(cfg.PassTimeout),
	)
	batch := pipeline.NewBatchProcessor(runner,
		pipeline.WithConcurrency(cfg.Parallel),
		pipeline.WithBatchLogger(logger),
	)

	p := pipeline.New(pipeline.WithLogger(logger), pipeline.WithClock(env.now))
	p.AddSteps(
		pipeline.NewPrepareStep(cfg.KeepWorkDir),
		pipeline.NewScanStep(batch),
		pipeline.NewArchiveStep(logger),
	)
	if notifier != nil {
		p.AddStep(pipeline.NewNotifyStep(notifier, cfg.SubjectPrefix, cfg.Signature))
	}

	if cfg.HistoryEnabled {
		db, err := openHistory(ctx, cfg)
		if err != nil {
			logger.Warn("run will not be recorded", "error", err)
		} else {
			defer db.Close()
			p.Finally(pipeline.NewRecordStep(db, logger))
		}
	}

	writer, closeOutput, err := summaryWriter(env.out, env.outputPath, cfg.Verbose)
	if err != nil {
		return err
	}
	defer closeOutput()
	p.Finally(pipeline.NewReportStep(writer, cfg.SubjectPrefix, cfg.Signature))

	logger.Debug("pipeline ready", "run", run.ID, "steps", p.StepNames())

	return p.Execute(ctx, run)
}

// newNotifier creates the notifier of a run. Without a transport and
// outside dry runs it connects through the SMTP relay, which requires
// credentials.
func newNotifier(cfg *config.Config, transport notify.Transport, logger *slog.Logger) (*notify.Notifier, error) {
	opts := []notify.NotifierOption{
		notify.WithDryRun(cfg.DryRun),
		notify.WithNotifierLogger(logger),
	}

	if transport == nil && !cfg.DryRun {
		sender, err := notify.NewSMTPSender(cfg, notify.WithSenderLogger(logger))
		if err != nil {
			return nil, err
		}
		transport = sender
	}
	if transport != nil {
		opts = append(opts, notify.WithTransport(transport))
	}

	return notify.NewNotifier(cfg, opts...), nil
}

// summaryWriter returns the writer of the run summary: text on out and,
// with path, a second copy in the format matching the file extension.
// The returned function closes the file.
func summaryWriter(out io.Writer, path string, verbose bool) (report.Writer, func(), error) {
	console := report.NewSimpleWriter(out, report.WithVerbose(verbose))
	if path == "" {
		return console, func() {}, nil
	}

	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	// Summaries name internal hosts, so keep them owner-readable.
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600) //nolint:gosec // user-provided output path
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create output file: %w", err)
	}

	var file report.Writer
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		file = report.NewJSONWriter(f, report.WithPrettyPrint())
	case ".md", ".markdown":
		file = report.NewMarkdownWriter(f)
	case ".html", ".htm":
		file = report.NewHTMLWriter(f)
	default:
		file = report.NewSimpleWriter(f, report.WithVerbose(verbose))
	}

	return report.NewMultiWriter(console, file), func() { _ = f.Close() }, nil
}
