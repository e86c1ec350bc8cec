package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/nao1215/zapreport/internal/model"
)

func sampleRun(t *testing.T) *model.Run {
	t.Helper()

	targets, err := model.NewTargets([]string{"http://app.cloudkeeper.com", "http://gcp.cloudkeeper.com"})
	if err != nil {
		t.Fatal(err)
	}
	start := time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)
	run := model.NewRun(targets, "/tmp/zap_reports", model.PolicyContinue, start)

	ok := model.NewTargetResult(targets[0], "/tmp/zap_reports/app_cloudkeeper_com")
	ok.Passes = []model.PassResult{
		{Kind: model.PassBaseline, Status: model.PassSucceeded, StartedAt: start, FinishedAt: start.Add(time.Minute)},
		{Kind: model.PassAJAX, Status: model.PassAlerts, ExitCode: 2},
		{Kind: model.PassActive, Status: model.PassSucceeded},
	}
	ok.Completed = true

	second := model.NewTargetResult(targets[1], "/tmp/zap_reports/gcp_cloudkeeper_com")
	second.Passes = []model.PassResult{
		{Kind: model.PassBaseline, Status: model.PassSucceeded},
		{Kind: model.PassAJAX, Status: model.PassSucceeded},
		{Kind: model.PassActive, Status: model.PassSucceeded},
	}
	second.Completed = true

	run.Results = append(run.Results, ok, second)
	run.Archive = &model.ArchiveInfo{
		Path:    "/tmp/zap_reports/zap_scan_reports_20240501.zip",
		Entries: []string{"app_cloudkeeper_com/app_cloudkeeper_com_baseline.html"},
		Size:    2048,
		SHA3:    "abc123",
	}
	return run
}

func TestSummary(t *testing.T) {
	t.Parallel()

	t.Run("defaults are applied", func(t *testing.T) {
		t.Parallel()

		s := NewSummary(sampleRun(t), "", "")
		if s.Title != DefaultTitle {
			t.Errorf("expected default title, got %q", s.Title)
		}
		if got := s.SignatureLines(); len(got) != 1 || got[0] != DefaultSignature {
			t.Errorf("expected default signature, got %v", got)
		}
		if s.Heading() != "ZAP Security Scan Report - 01-May-2024" {
			t.Errorf("unexpected heading %q", s.Heading())
		}
	})

	t.Run("performed passes exclude skipped kinds", func(t *testing.T) {
		t.Parallel()

		run := sampleRun(t)
		for _, res := range run.Results {
			res.Passes[1].Status = model.PassSkipped
		}
		kinds := NewSummary(run, "", "").PerformedPasses()
		if len(kinds) != 2 || kinds[0] != model.PassBaseline || kinds[1] != model.PassActive {
			t.Errorf("expected [baseline active], got %v", kinds)
		}
	})

	t.Run("status line reflects failures", func(t *testing.T) {
		t.Parallel()

		run := sampleRun(t)
		s := NewSummary(run, "", "")
		if !s.Healthy() {
			t.Error("expected healthy run")
		}

		run.Results[0].Passes[2].Status = model.PassFailed
		if s.Healthy() {
			t.Error("expected unhealthy run")
		}
		if !strings.Contains(s.StatusLine(), "1 scan pass failed") {
			t.Errorf("unexpected status line %q", s.StatusLine())
		}

		run.SetError(errors.New("scan aborted"))
		if !strings.Contains(s.StatusLine(), "scan aborted") {
			t.Errorf("expected error in status line, got %q", s.StatusLine())
		}
	})

	t.Run("signature lines are trimmed", func(t *testing.T) {
		t.Parallel()

		s := NewSummary(sampleRun(t), "", "Warm Regards,\n\n  Security Team  \n")
		got := s.SignatureLines()
		if len(got) != 2 || got[1] != "Security Team" {
			t.Errorf("unexpected signature lines %v", got)
		}
	})
}

func TestMarkdownWriter(t *testing.T) {
	t.Parallel()

	t.Run("renders targets, passes, results and archive", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		n, err := NewMarkdownWriter(&buf).Write(NewSummary(sampleRun(t), "", "Warm Regards,\nSecurity Team"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if n != buf.Len() {
			t.Errorf("expected %d bytes reported, got %d", buf.Len(), n)
		}

		out := buf.String()
		for _, want := range []string{
			"# ZAP Security Scan Report - 01-May-2024",
			"Hi Team,",
			"- http://app.cloudkeeper.com",
			"- http://gcp.cloudkeeper.com",
			"1. **Baseline Scan**",
			"2. **AJAX Scan**",
			"3. **Active Scan**",
			"| Target | Baseline Scan | AJAX Scan | Active Scan |",
			"| http://app.cloudkeeper.com | Succeeded | Alerts | Succeeded |",
			"[!TIP]",
			"`zap_scan_reports_20240501.zip`",
			"2.0 KiB",
			"Security Team",
		} {
			if !strings.Contains(out, want) {
				t.Errorf("expected output to contain %q\n%s", want, out)
			}
		}
	})

	t.Run("warns when a pass failed", func(t *testing.T) {
		t.Parallel()

		run := sampleRun(t)
		run.Results[1].Passes[0].Status = model.PassFailed

		var buf bytes.Buffer
		if _, err := NewMarkdownWriter(&buf).Write(NewSummary(run, "", "")); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(buf.String(), "[!WARNING]") {
			t.Errorf("expected warning alert\n%s", buf.String())
		}
	})

	t.Run("incomplete targets are not listed as scanned", func(t *testing.T) {
		t.Parallel()

		run := sampleRun(t)
		run.Results[1].Completed = false

		var buf bytes.Buffer
		if _, err := NewMarkdownWriter(&buf).Write(NewSummary(run, "", "")); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if strings.Contains(buf.String(), "- http://gcp.cloudkeeper.com") {
			t.Errorf("expected incomplete target to be left out of the list\n%s", buf.String())
		}
	})
}

func TestRenderHTML(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	if _, err := NewHTMLWriter(&buf).Write(NewSummary(sampleRun(t), "", "")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out := buf.String()

	for _, want := range []string{
		"<!DOCTYPE html>",
		"<html>",
		`<meta charset="utf-8"/>`,
		"<table style=",
		"<td style=",
		"<li>http://app.cloudkeeper.com</li>",
		"<strong>Tip:</strong>",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("expected html to contain %q\n%s", want, out)
		}
	}
	if strings.Contains(out, "[!TIP]") {
		t.Error("expected alert marker to be replaced")
	}
}

func TestSimpleWriter(t *testing.T) {
	t.Parallel()

	run := sampleRun(t)
	run.Notification = &model.Notification{
		Subject:    "ZAP Security Scan Report - 01-May-2024",
		Recipients: []string{"security@example.com"},
		Sent:       true,
	}

	var buf bytes.Buffer
	if _, err := NewSimpleWriter(&buf, WithVerbose(true)).Write(NewSummary(run, "", "")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out := buf.String()

	for _, want := range []string{
		"ZAP SECURITY SCAN REPORT",
		"Targets:    2 scanned of 2",
		"[+] http://app.cloudkeeper.com",
		"AJAX Scan      Alerts (exit 2",
		"SHA3-256: abc123",
		"security@example.com",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("expected output to contain %q\n%s", want, out)
		}
	}
}

func TestJSONWriter(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	if _, err := NewJSONWriter(&buf, WithPrettyPrint()).Write(NewSummary(sampleRun(t), "", "")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if decoded["id"] != "20240501-093000" {
		t.Errorf("unexpected id %v", decoded["id"])
	}
	if !strings.Contains(buf.String(), `"kind": "ajax"`) {
		t.Errorf("expected pass kinds as text\n%s", buf.String())
	}
}

func TestMultiWriter(t *testing.T) {
	t.Parallel()

	var a, b bytes.Buffer
	mw := NewMultiWriter(NewMarkdownWriter(&a), NewSimpleWriter(&b))
	n, err := mw.Write(NewSummary(sampleRun(t), "", ""))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != a.Len()+b.Len() {
		t.Errorf("expected %d bytes, got %d", a.Len()+b.Len(), n)
	}
}
