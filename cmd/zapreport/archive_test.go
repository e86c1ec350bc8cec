package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nao1215/zapreport/internal/model"
)

func TestArchiveCmd(t *testing.T) {
	t.Parallel()

	workDir := t.TempDir()
	dir := filepath.Join(workDir, "app_cloudkeeper_com")
	if err := os.MkdirAll(dir, 0750); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "app_cloudkeeper_com_baseline.html"), []byte("<html></html>"), 0600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "zap.yaml"), []byte("ignored"), 0600); err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"archive", "--workdir", workDir})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got := out.String()
	if !strings.Contains(got, "Reports:  1") {
		t.Errorf("expected one report, got:\n%s", got)
	}
	if !strings.Contains(got, "app_cloudkeeper_com/app_cloudkeeper_com_baseline.html") {
		t.Errorf("expected entry listing, got:\n%s", got)
	}

	matches, err := filepath.Glob(filepath.Join(workDir, "zap_scan_reports_*.zip"))
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) != 1 {
		t.Errorf("expected one archive, got %v", matches)
	}
}

func TestPrintArchive(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	printArchive(&buf, &model.ArchiveInfo{
		Path:    "/tmp/zap_reports/zap_scan_reports_20240501.zip",
		Entries: []string{"a/a_baseline.html", "a/a_active.html"},
		Size:    2048,
		SHA3:    "abc123",
	})

	got := buf.String()
	for _, want := range []string{
		"Archive:  /tmp/zap_reports/zap_scan_reports_20240501.zip",
		"Reports:  2",
		"  - a/a_active.html",
		"Size:     2.0 KiB",
		"SHA3-256: abc123",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("expected %q in output, got:\n%s", want, got)
		}
	}
}
