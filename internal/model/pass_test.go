package model

import (
	"encoding/json"
	"testing"
	"time"
)

func TestPassKindOrder(t *testing.T) {
	t.Parallel()

	kinds := AllPassKinds()
	expected := []string{"baseline", "ajax", "active"}

	if len(kinds) != len(expected) {
		t.Fatalf("expected %d kinds, got %d", len(expected), len(kinds))
	}
	for i, k := range kinds {
		if k.String() != expected[i] {
			t.Errorf("kind %d: expected %q, got %q", i, expected[i], k.String())
		}
	}
}

func TestPassKindProperties(t *testing.T) {
	t.Parallel()

	tests := []struct {
		kind     PassKind
		script   string
		title    string
		critical bool
	}{
		{PassBaseline, "zap-baseline.py", "Baseline Scan", true},
		{PassAJAX, "zap-api-scan.py", "AJAX Scan", false},
		{PassActive, "zap-full-scan.py", "Active Scan", true},
	}

	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			t.Parallel()

			if tt.kind.Script() != tt.script {
				t.Errorf("expected script %q, got %q", tt.script, tt.kind.Script())
			}
			if tt.kind.Title() != tt.title {
				t.Errorf("expected title %q, got %q", tt.title, tt.kind.Title())
			}
			if tt.kind.Critical() != tt.critical {
				t.Errorf("expected critical=%v, got %v", tt.critical, tt.kind.Critical())
			}
		})
	}

	t.Run("unknown kind", func(t *testing.T) {
		t.Parallel()

		k := PassKind(42)
		if k.String() != "unknown" {
			t.Errorf("expected unknown, got %q", k.String())
		}
		if k.Script() != "" {
			t.Errorf("expected empty script, got %q", k.Script())
		}
	})
}

func TestPassKindReportFileName(t *testing.T) {
	t.Parallel()

	if got := PassActive.ReportFileName("app_example_com"); got != "app_example_com_active.html" {
		t.Errorf("unexpected report file name %q", got)
	}
}

func TestParsePassKind(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    PassKind
		wantErr bool
	}{
		{"baseline", PassBaseline, false},
		{"AJAX", PassAJAX, false},
		{"api", PassAJAX, false},
		{" active ", PassActive, false},
		{"full", PassActive, false},
		{"spider", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()

			got, err := ParsePassKind(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Errorf("expected error for %q", tt.in)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestPassResultJSON(t *testing.T) {
	t.Parallel()

	start := time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)
	result := PassResult{
		Kind:       PassAJAX,
		Status:     PassFailed,
		ExitCode:   3,
		StartedAt:  start,
		FinishedAt: start.Add(90 * time.Second),
	}

	data, err := json.Marshal(result)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var decoded PassResult
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if decoded.Kind != PassAJAX {
		t.Errorf("expected kind ajax, got %v", decoded.Kind)
	}
	if decoded.Duration() != 90*time.Second {
		t.Errorf("expected 90s duration, got %v", decoded.Duration())
	}
	if !decoded.Failed() {
		t.Error("expected Failed() to be true")
	}
}

func TestPassStatusOK(t *testing.T) {
	t.Parallel()

	if !PassSucceeded.OK() || !PassAlerts.OK() {
		t.Error("succeeded and alerts should be OK")
	}
	if PassFailed.OK() || PassSkipped.OK() {
		t.Error("failed and skipped should not be OK")
	}
}
