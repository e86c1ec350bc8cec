package scanner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/fatih/color"

	"github.com/nao1215/zapreport/internal/model"
	"github.com/nao1215/zapreport/internal/workdir"
)

// ErrAborted is returned when a baseline or active pass failed under the
// abort policy.
var ErrAborted = errors.New("scan aborted")

// Runner scans targets pass by pass.
type Runner struct {
	executor    Executor
	settings    Settings
	root        string
	passTimeout time.Duration
	logger      *slog.Logger
	console     io.Writer
	now         func() time.Time
}

// Option configures a Runner.
type Option func(*Runner)

// WithLogger sets a custom logger for the runner.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		r.logger = logger
	}
}

// WithConsole sets where the colored progress lines are written.
// A nil writer disables them.
func WithConsole(w io.Writer) Option {
	return func(r *Runner) {
		r.console = w
	}
}

// WithPassTimeout bounds every pass. Zero means no timeout.
func WithPassTimeout(d time.Duration) Option {
	return func(r *Runner) {
		if d > 0 {
			r.passTimeout = d
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(r *Runner) {
		r.now = now
	}
}

// NewRunner creates a Runner writing per-target directories under root.
func NewRunner(executor Executor, settings Settings, root string, opts ...Option) *Runner {
	r := &Runner{
		executor: executor,
		settings: settings,
		root:     root,
		now:      time.Now,
	}

	for _, opt := range opts {
		opt(r)
	}

	if r.logger == nil {
		r.logger = slog.Default()
	}

	return r
}

// ScanTarget runs every pass against target in order and returns its result.
//
// The result is always non-nil once the target directory exists. The error is
// ErrAborted (wrapped) when the abort policy stopped the run, or the context
// error when the run was cancelled between passes. Failures under the
// continue policy are only recorded in the result.
func (r *Runner) ScanTarget(ctx context.Context, target model.Target) (*model.TargetResult, error) {
	dir, err := workdir.EnsureTargetDir(r.root, target.ID())
	if err != nil {
		return nil, fmt.Errorf("failed to prepare directory for %s: %w", target.URL(), err)
	}

	result := model.NewTargetResult(target, dir)
	r.printTarget(target)

	kinds := model.AllPassKinds()
	for i, kind := range kinds {
		if err := ctx.Err(); err != nil {
			r.logger.Warn("scan cancelled", "target", target.URL(), "next_pass", kind.String())
			r.skipRemaining(result, target, dir, kinds[i:], "cancelled")
			return result, err
		}

		if !r.enabled(kind) {
			r.logger.Debug("pass disabled", "target", target.URL(), "pass", kind.String())
			result.Passes = append(result.Passes, r.skipped(kind, target, dir, "disabled"))
			r.printPass(target, result.Passes[len(result.Passes)-1])
			continue
		}

		pass := r.runPass(ctx, kind, target, dir)
		result.Passes = append(result.Passes, pass)
		r.printPass(target, pass)

		if err := ctx.Err(); err != nil {
			r.skipRemaining(result, target, dir, kinds[i+1:], "cancelled")
			return result, err
		}

		if !pass.Failed() {
			continue
		}

		if !kind.Critical() {
			r.logger.Warn("non-fatal pass failed, continuing",
				"target", target.URL(),
				"pass", kind.String(),
				"exit_code", pass.ExitCode,
				"error", pass.Error,
			)
			continue
		}

		r.logger.Error("pass failed",
			"target", target.URL(),
			"pass", kind.String(),
			"exit_code", pass.ExitCode,
			"error", pass.Error,
		)

		if r.settings.Policy == model.PolicyAbort {
			r.skipRemaining(result, target, dir, kinds[i+1:], "aborted")
			return result, fmt.Errorf("%w: %s failed for %s: %s", ErrAborted, kind.Title(), target.URL(), pass.Error)
		}
	}

	result.Completed = true
	return result, nil
}

func (r *Runner) runPass(ctx context.Context, kind model.PassKind, target model.Target, dir string) model.PassResult {
	cmd := BuildCommand(r.settings, kind, target, dir)
	pass := model.PassResult{
		Kind:       kind,
		ReportPath: filepath.Join(dir, kind.ReportFileName(target.ID())),
		StartedAt:  r.now(),
	}

	passCtx := ctx
	if r.passTimeout > 0 {
		var cancel context.CancelFunc
		passCtx, cancel = context.WithTimeout(ctx, r.passTimeout)
		defer cancel()
	}

	r.logger.Info("starting pass", "target", target.URL(), "pass", kind.String())
	r.logger.Debug("scanner command", "command", cmd.String())

	res, err := r.executor.Execute(passCtx, cmd)
	pass.FinishedAt = r.now()
	pass.ExitCode = res.ExitCode
	pass.Output = res.Output

	switch {
	case err != nil:
		pass.Status = model.PassFailed
		pass.ExitCode = -1
		pass.Error = err.Error()
	case passCtx.Err() != nil && ctx.Err() == nil:
		pass.Status = model.PassFailed
		pass.Error = fmt.Sprintf("timed out after %s", r.passTimeout)
	default:
		pass.Status = classify(res.ExitCode, r.settings.AlertsAreSuccess)
		if pass.Status == model.PassFailed {
			pass.Error = fmt.Sprintf("scanner exited with code %d", res.ExitCode)
		}
	}

	if _, statErr := os.Stat(pass.ReportPath); statErr == nil {
		pass.ReportExists = true
	}

	r.logger.Info("pass finished",
		"target", target.URL(),
		"pass", kind.String(),
		"status", string(pass.Status),
		"exit_code", pass.ExitCode,
		"elapsed", pass.Duration(),
	)

	return pass
}

func (r *Runner) enabled(kind model.PassKind) bool {
	return slices.Contains(r.settings.Passes, kind)
}

func (r *Runner) skipped(kind model.PassKind, target model.Target, dir, reason string) model.PassResult {
	return model.PassResult{
		Kind:       kind,
		Status:     model.PassSkipped,
		ExitCode:   -1,
		Error:      reason,
		ReportPath: filepath.Join(dir, kind.ReportFileName(target.ID())),
	}
}

func (r *Runner) skipRemaining(result *model.TargetResult, target model.Target, dir string, kinds []model.PassKind, reason string) {
	for _, kind := range kinds {
		result.Passes = append(result.Passes, r.skipped(kind, target, dir, reason))
	}
}

func (r *Runner) printTarget(target model.Target) {
	if r.console == nil {
		return
	}
	color.New(color.FgCyan, color.Bold).Fprintf(r.console, "[+] Scanning %s\n", target.URL()) //nolint:errcheck // console output
}

func (r *Runner) printPass(target model.Target, pass model.PassResult) {
	if r.console == nil {
		return
	}

	var c *color.Color
	switch pass.Status {
	case model.PassSucceeded:
		c = color.New(color.FgGreen)
	case model.PassAlerts:
		c = color.New(color.FgYellow)
	case model.PassSkipped:
		c = color.New(color.FgHiBlack)
	default:
		c = color.New(color.FgRed, color.Bold)
	}

	line := fmt.Sprintf("    %-14s %-9s %s", pass.Kind.Title(), pass.Status, target.ID())
	if pass.Status != model.PassSkipped {
		line += fmt.Sprintf(" (%s)", pass.Duration().Round(time.Second))
	}
	c.Fprintln(r.console, line) //nolint:errcheck // console output
}
