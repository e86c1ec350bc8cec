package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/nao1215/zapreport/internal/archive"
	"github.com/nao1215/zapreport/internal/config"
	"github.com/nao1215/zapreport/internal/model"
)

func TestRunFromArchive(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	dir := filepath.Join(root, "app_cloudkeeper_com")
	if err := os.MkdirAll(dir, 0750); err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"app_cloudkeeper_com_baseline.html", "app_cloudkeeper_com_active.html"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("<html></html>"), 0600); err != nil {
			t.Fatal(err)
		}
	}
	info, err := archive.Create(root, time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatal(err)
	}

	cfg := config.NewConfig()
	cfg.Targets = []string{"http://app.cloudkeeper.com", "http://gcp.cloudkeeper.com"}
	now := time.Date(2024, 5, 2, 8, 0, 0, 0, time.UTC)

	run, err := runFromArchive(info.Path, cfg, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if run.Archive == nil || run.Archive.SHA3 != info.SHA3 {
		t.Errorf("unexpected archive info %+v", run.Archive)
	}
	if len(run.Results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(run.Results))
	}

	app := run.Results[0]
	if !app.Completed {
		t.Error("expected target with reports to count as scanned")
	}
	if p, _ := app.Pass(model.PassBaseline); p.Status != model.PassSucceeded {
		t.Errorf("expected baseline succeeded, got %s", p.Status)
	}
	if p, _ := app.Pass(model.PassAJAX); p.Status != model.PassSkipped {
		t.Errorf("expected ajax skipped, got %s", p.Status)
	}
	if run.Results[1].Completed {
		t.Error("expected target without reports to be incomplete")
	}
	if got := run.ScannedURLs(); len(got) != 1 || got[0] != "http://app.cloudkeeper.com" {
		t.Errorf("unexpected scanned URLs %v", got)
	}

	t.Run("missing archive", func(t *testing.T) {
		t.Parallel()

		if _, err := runFromArchive(filepath.Join(t.TempDir(), "missing.zip"), cfg, now); err == nil {
			t.Error("expected error for missing archive")
		}
	})
}
