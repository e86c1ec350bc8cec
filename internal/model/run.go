package model

import (
	"fmt"
	"strings"
	"time"
)

// FailurePolicy decides what happens when a critical scan pass fails.
type FailurePolicy string

const (
	// PolicyContinue logs pass failures and keeps scanning the remaining
	// passes and targets. This is the default.
	PolicyContinue FailurePolicy = "continue"

	// PolicyAbort stops the whole run on the first failed baseline or
	// active pass. AJAX pass failures never abort.
	PolicyAbort FailurePolicy = "abort"
)

// ParseFailurePolicy parses a policy name (case-insensitive).
func ParseFailurePolicy(name string) (FailurePolicy, error) {
	switch FailurePolicy(strings.ToLower(strings.TrimSpace(name))) {
	case PolicyContinue, "best-effort", "":
		return PolicyContinue, nil
	case PolicyAbort, "fail-fast":
		return PolicyAbort, nil
	default:
		return "", fmt.Errorf("unknown failure policy %q (expected continue or abort)", name)
	}
}

// TargetResult holds the ordered pass results of one target.
type TargetResult struct {
	// URL is the scanned target URL.
	URL string `json:"url"`

	// ID is the target identifier (also the name of its report directory).
	ID string `json:"id"`

	// Dir is the absolute path of the target's report directory.
	Dir string `json:"dir"`

	// Passes contains one result per pass kind, in execution order.
	Passes []PassResult `json:"passes"`

	// Completed is true when the pass sequence ran to its end,
	// i.e. the target was not interrupted by cancellation or abort.
	Completed bool `json:"completed"`
}

// NewTargetResult creates an empty result for the given target.
func NewTargetResult(target Target, dir string) *TargetResult {
	return &TargetResult{
		URL:    target.URL(),
		ID:     target.ID(),
		Dir:    dir,
		Passes: make([]PassResult, 0, len(AllPassKinds())),
	}
}

// Pass returns the result of the given pass kind and whether it exists.
func (r *TargetResult) Pass(kind PassKind) (PassResult, bool) {
	for _, p := range r.Passes {
		if p.Kind == kind {
			return p, true
		}
	}
	return PassResult{}, false
}

// Failures returns the number of failed passes.
func (r *TargetResult) Failures() int {
	n := 0
	for _, p := range r.Passes {
		if p.Failed() {
			n++
		}
	}
	return n
}

// ArchiveInfo describes the zip archive produced by a run.
type ArchiveInfo struct {
	// Path is the absolute path of the archive file.
	Path string `json:"path"`

	// Entries are the slash-separated paths stored in the archive.
	Entries []string `json:"entries"`

	// Size is the archive size in bytes.
	Size int64 `json:"size"`

	// SHA3 is the hex-encoded SHA3-256 digest of the archive file.
	SHA3 string `json:"sha3"`
}

// Notification describes the email sent (or written) for a run.
type Notification struct {
	// Subject is the email subject line.
	Subject string `json:"subject"`

	// Recipients are the To addresses.
	Recipients []string `json:"recipients"`

	// Sent is true once the relay accepted the message.
	Sent bool `json:"sent"`

	// DryRunFile is the .eml path written instead of sending, if any.
	DryRunFile string `json:"dry_run_file,omitempty"`
}

// Run is everything a single zapreport run produced.
type Run struct {
	// ID identifies the run, derived from its start time.
	ID string `json:"id"`

	// StartedAt is when the run started.
	StartedAt time.Time `json:"started_at"`

	// FinishedAt is when the run finished (zero while running).
	FinishedAt time.Time `json:"finished_at"`

	// WorkDir is the root working directory of the run.
	WorkDir string `json:"work_dir"`

	// Policy is the failure policy the run used.
	Policy FailurePolicy `json:"policy"`

	// Targets are the targets to scan, in order.
	Targets []Target `json:"-"`

	// Results holds one entry per target that was scanned.
	Results []*TargetResult `json:"results"`

	// Archive is set once the archive step completed.
	Archive *ArchiveInfo `json:"archive,omitempty"`

	// Notification is set once the notify step completed.
	Notification *Notification `json:"notification,omitempty"`

	// Error is the message of the error that terminated the run, if any.
	Error string `json:"error,omitempty"`

	// PerformedSteps lists the pipeline steps that were executed.
	PerformedSteps []string `json:"performed_steps"`
}

// runIDLayout is the time layout of run identifiers.
const runIDLayout = "20060102-150405"

// NewRun creates a Run for the given targets starting at now.
func NewRun(targets []Target, workDir string, policy FailurePolicy, now time.Time) *Run {
	return &Run{
		ID:             now.Format(runIDLayout),
		StartedAt:      now,
		WorkDir:        workDir,
		Policy:         policy,
		Targets:        targets,
		Results:        make([]*TargetResult, 0, len(targets)),
		PerformedSteps: make([]string, 0),
	}
}

// TargetURLs returns the URLs of every target of the run.
func (r *Run) TargetURLs() []string {
	return URLs(r.Targets)
}

// ScannedURLs returns the URLs of the targets whose pass sequence completed.
func (r *Run) ScannedURLs() []string {
	urls := make([]string, 0, len(r.Results))
	for _, res := range r.Results {
		if res != nil && res.Completed {
			urls = append(urls, res.URL)
		}
	}
	return urls
}

// FailedPasses returns the total number of failed passes across all targets.
func (r *Run) FailedPasses() int {
	n := 0
	for _, res := range r.Results {
		if res != nil {
			n += res.Failures()
		}
	}
	return n
}

// SetError records the error that terminated the run.
func (r *Run) SetError(err error) {
	if err == nil {
		return
	}
	r.Error = err.Error()
}
