package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/nao1215/zapreport/internal/archive"
	"github.com/nao1215/zapreport/internal/model"
	"github.com/nao1215/zapreport/internal/report"
	"github.com/nao1215/zapreport/internal/workdir"
)

// Step names, recorded in model.Run.PerformedSteps.
const (
	StepPrepare = "prepare"
	StepScan    = "scan"
	StepArchive = "archive"
	StepNotify  = "notify"
	StepRecord  = "record"
	StepReport  = "report"
)

// ErrNoArchive is returned by NotifyStep when no archive was created.
var ErrNoArchive = errors.New("no archive to send")

// PrepareStep prepares the working directory and one directory per target.
type PrepareStep struct {
	// keep leaves existing reports in place instead of emptying the directory.
	keep bool
}

// NewPrepareStep creates a PrepareStep. With keep, previous content of the
// working directory is left alone.
func NewPrepareStep(keep bool) *PrepareStep {
	return &PrepareStep{keep: keep}
}

// Name returns the step name.
func (s *PrepareStep) Name() string {
	return StepPrepare
}

// Do executes the prepare step.
func (s *PrepareStep) Do(_ context.Context, run *model.Run) error {
	prepare := workdir.Reset
	if s.keep {
		prepare = workdir.Ensure
	}
	if err := prepare(run.WorkDir); err != nil {
		return fmt.Errorf("failed to prepare work directory: %w", err)
	}

	for _, target := range run.Targets {
		if _, err := workdir.EnsureTargetDir(run.WorkDir, target.ID()); err != nil {
			return err
		}
	}
	return nil
}

// ScanStep scans every target of the run.
type ScanStep struct {
	batch *BatchProcessor
}

// NewScanStep creates a ScanStep that scans through batch.
func NewScanStep(batch *BatchProcessor) *ScanStep {
	return &ScanStep{batch: batch}
}

// Name returns the step name.
func (s *ScanStep) Name() string {
	return StepScan
}

// Do executes the scan step. Results of scanned targets are stored on the
// run in target order even when the step fails.
func (s *ScanStep) Do(ctx context.Context, run *model.Run) error {
	results, err := s.batch.ProcessBatch(ctx, run.Targets)

	for _, res := range results {
		if res != nil {
			run.Results = append(run.Results, res)
		}
	}

	return err
}

// ArchiveStep zips every HTML report of the run.
type ArchiveStep struct {
	logger *slog.Logger
}

// NewArchiveStep creates an ArchiveStep.
func NewArchiveStep(logger *slog.Logger) *ArchiveStep {
	if logger == nil {
		logger = slog.Default()
	}
	return &ArchiveStep{logger: logger}
}

// Name returns the step name.
func (s *ArchiveStep) Name() string {
	return StepArchive
}

// Do executes the archive step. The archive is named after the run start date.
func (s *ArchiveStep) Do(_ context.Context, run *model.Run) error {
	info, err := archive.Create(run.WorkDir, run.StartedAt)
	if err != nil {
		return fmt.Errorf("failed to create archive: %w", err)
	}
	if len(info.Entries) == 0 {
		s.logger.Warn("no reports found, archive is empty", "path", info.Path)
	}

	s.logger.Info("archive created",
		"path", info.Path,
		"reports", len(info.Entries),
		"size", info.Size,
		"sha3", info.SHA3,
	)
	run.Archive = info
	return nil
}

// Notifier sends the archive of a run. *notify.Notifier implements it.
type Notifier interface {
	Notify(ctx context.Context, summary *report.Summary, archivePath string) (*model.Notification, error)
}

// NotifyStep emails the archive together with the run summary.
type NotifyStep struct {
	notifier  Notifier
	title     string
	signature string
}

// NewNotifyStep creates a NotifyStep. Empty title or signature use the
// report defaults.
func NewNotifyStep(notifier Notifier, title, signature string) *NotifyStep {
	return &NotifyStep{
		notifier:  notifier,
		title:     title,
		signature: signature,
	}
}

// Name returns the step name.
func (s *NotifyStep) Name() string {
	return StepNotify
}

// Do executes the notify step.
func (s *NotifyStep) Do(ctx context.Context, run *model.Run) error {
	if run.Archive == nil {
		return ErrNoArchive
	}

	summary := report.NewSummary(run, s.title, s.signature)
	notification, err := s.notifier.Notify(ctx, summary, run.Archive.Path)
	run.Notification = notification
	if err != nil {
		return fmt.Errorf("failed to send report: %w", err)
	}
	return nil
}

// RunStore stores finished runs. *database.HistoryDB implements it.
type RunStore interface {
	SaveRun(ctx context.Context, run *model.Run) (int64, error)
}

// RecordStep stores the run in the history database.
// Recording failures are logged and never fail the run.
type RecordStep struct {
	store  RunStore
	logger *slog.Logger
}

// NewRecordStep creates a RecordStep.
func NewRecordStep(store RunStore, logger *slog.Logger) *RecordStep {
	if logger == nil {
		logger = slog.Default()
	}
	return &RecordStep{store: store, logger: logger}
}

// Name returns the step name.
func (s *RecordStep) Name() string {
	return StepRecord
}

// Do executes the record step.
func (s *RecordStep) Do(ctx context.Context, run *model.Run) error {
	id, err := s.store.SaveRun(ctx, run)
	if err != nil {
		s.logger.Warn("failed to record run history", "run", run.ID, "error", err)
		return nil
	}
	s.logger.Debug("run recorded", "run", run.ID, "history_id", id)
	return nil
}

// ReportStep writes the run summary, e.g. to the terminal.
type ReportStep struct {
	writer    report.Writer
	title     string
	signature string
}

// NewReportStep creates a ReportStep writing through writer.
func NewReportStep(writer report.Writer, title, signature string) *ReportStep {
	return &ReportStep{
		writer:    writer,
		title:     title,
		signature: signature,
	}
}

// Name returns the step name.
func (s *ReportStep) Name() string {
	return StepReport
}

// Do executes the report step.
func (s *ReportStep) Do(_ context.Context, run *model.Run) error {
	if _, err := s.writer.Write(report.NewSummary(run, s.title, s.signature)); err != nil {
		return fmt.Errorf("failed to write summary: %w", err)
	}
	return nil
}
