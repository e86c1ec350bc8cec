package model

import (
	"fmt"
	"strings"
	"time"
)

// PassKind identifies one of the scan passes run against every target.
// Declaration order is execution order.
type PassKind int

const (
	// PassBaseline is the passive, crawl-only scan.
	PassBaseline PassKind = iota

	// PassAJAX is the API scan driven by an API definition (OpenAPI by default).
	// Its failure is never fatal, regardless of the failure policy.
	PassAJAX

	// PassActive is the full scan that issues attack payloads against the target.
	PassActive
)

// AllPassKinds returns every pass kind in execution order.
func AllPassKinds() []PassKind {
	return []PassKind{PassBaseline, PassAJAX, PassActive}
}

// String returns the short name used in report file names and config files.
func (k PassKind) String() string {
	switch k {
	case PassBaseline:
		return "baseline"
	case PassAJAX:
		return "ajax"
	case PassActive:
		return "active"
	default:
		return "unknown"
	}
}

// Title returns the human-readable pass name used in summaries.
func (k PassKind) Title() string {
	switch k {
	case PassBaseline:
		return "Baseline Scan"
	case PassAJAX:
		return "AJAX Scan"
	case PassActive:
		return "Active Scan"
	default:
		return "Unknown Scan"
	}
}

// Script returns the scanner script that runs inside the container.
func (k PassKind) Script() string {
	switch k {
	case PassBaseline:
		return "zap-baseline.py"
	case PassAJAX:
		return "zap-api-scan.py"
	case PassActive:
		return "zap-full-scan.py"
	default:
		return ""
	}
}

// Critical reports whether a failure of this pass may abort the run
// under the abort failure policy.
func (k PassKind) Critical() bool {
	return k != PassAJAX
}

// ReportFileName returns the report file name for the given target identifier,
// e.g. "app_example_com_baseline.html".
func (k PassKind) ReportFileName(targetID string) string {
	return targetID + "_" + k.String() + ".html"
}

// MarshalText implements encoding.TextMarshaler.
func (k PassKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *PassKind) UnmarshalText(text []byte) error {
	parsed, err := ParsePassKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// ParsePassKind parses a pass name. Matching is case-insensitive and
// accepts "api" as an alias of "ajax" and "full" as an alias of "active".
func ParsePassKind(name string) (PassKind, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "baseline":
		return PassBaseline, nil
	case "ajax", "api":
		return PassAJAX, nil
	case "active", "full":
		return PassActive, nil
	default:
		return 0, fmt.Errorf("unknown scan pass %q (expected baseline, ajax or active)", name)
	}
}

// PassStatus is the outcome of a single scan pass.
type PassStatus string

const (
	// PassSucceeded means the scanner exited cleanly.
	PassSucceeded PassStatus = "succeeded"

	// PassAlerts means the scanner completed and wrote its report but exited
	// with its "alerts raised" codes (1 = FAIL, 2 = WARN).
	PassAlerts PassStatus = "alerts"

	// PassFailed means the scanner could not be started or exited with an error.
	PassFailed PassStatus = "failed"

	// PassSkipped means the pass was disabled or never reached.
	PassSkipped PassStatus = "skipped"
)

// OK reports whether the pass produced a usable result.
func (s PassStatus) OK() bool {
	return s == PassSucceeded || s == PassAlerts
}

// PassResult is the explicit result of one scan pass invocation.
// The runner never unwinds on scanner failures; it records them here and
// lets the caller decide whether to continue.
type PassResult struct {
	// Kind is the pass that was run.
	Kind PassKind `json:"kind"`

	// Status is the outcome of the pass.
	Status PassStatus `json:"status"`

	// ExitCode is the scanner process exit code, or -1 if it never started.
	ExitCode int `json:"exit_code"`

	// StartedAt is when the pass was started.
	StartedAt time.Time `json:"started_at"`

	// FinishedAt is when the pass returned.
	FinishedAt time.Time `json:"finished_at"`

	// Output is the tail of the combined stdout and stderr of the scanner.
	Output string `json:"output,omitempty"`

	// Error describes why the pass failed. Empty on success.
	Error string `json:"error,omitempty"`

	// ReportPath is where the pass was expected to write its HTML report.
	ReportPath string `json:"report_path"`

	// ReportExists is true if the report file existed after the pass returned.
	ReportExists bool `json:"report_exists"`
}

// Duration returns how long the pass took.
func (r PassResult) Duration() time.Duration {
	if r.FinishedAt.IsZero() || r.StartedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// Failed reports whether the pass failed.
func (r PassResult) Failed() bool {
	return r.Status == PassFailed
}
