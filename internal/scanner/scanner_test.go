package scanner

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nao1215/zapreport/internal/model"
)

// fakeExecutor records commands and answers with a scripted exit code per scanner script.
type fakeExecutor struct {
	mu       sync.Mutex
	commands []Command
	exit     map[string]int
	startErr map[string]error
	// writeReport creates the -r report file in the mounted directory.
	writeReport bool
}

func (f *fakeExecutor) Execute(_ context.Context, cmd Command) (ExecResult, error) {
	f.mu.Lock()
	f.commands = append(f.commands, cmd)
	f.mu.Unlock()

	script := ""
	for _, s := range []string{"zap-baseline.py", "zap-api-scan.py", "zap-full-scan.py"} {
		if indexOf(cmd.Args, s) >= 0 {
			script = s
		}
	}

	if err := f.startErr[script]; err != nil {
		return ExecResult{ExitCode: -1}, err
	}

	if f.writeReport {
		mount := cmd.Args[indexOf(cmd.Args, "-v")+1]
		dir := strings.TrimSuffix(mount, ":"+containerWorkDir+":rw")
		report := cmd.Args[indexOf(cmd.Args, "-r")+1]
		if err := os.WriteFile(filepath.Join(dir, report), []byte("<html></html>"), 0o600); err != nil {
			return ExecResult{}, err
		}
	}

	return ExecResult{ExitCode: f.exit[script], Output: "scan output for " + script}, nil
}

func (f *fakeExecutor) scripts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]string, 0, len(f.commands))
	for _, cmd := range f.commands {
		for _, s := range []string{"zap-baseline.py", "zap-api-scan.py", "zap-full-scan.py"} {
			if indexOf(cmd.Args, s) >= 0 {
				out = append(out, s)
			}
		}
	}
	return out
}

func indexOf(args []string, want string) int {
	for i, a := range args {
		if a == want {
			return i
		}
	}
	return -1
}

func defaultSettings() Settings {
	return Settings{
		Binary:           "docker",
		Image:            "ghcr.io/zaproxy/zaproxy:stable",
		Debug:            true,
		APIFormat:        "openapi",
		AlertsAreSuccess: true,
		Passes:           model.AllPassKinds(),
		Policy:           model.PolicyContinue,
	}
}

func mustTarget(t *testing.T, raw string) model.Target {
	t.Helper()
	target, err := model.NewTarget(raw)
	if err != nil {
		t.Fatalf("invalid target %q: %v", raw, err)
	}
	return target
}

func TestBuildCommand(t *testing.T) {
	t.Parallel()

	target := mustTarget(t, "http://app.cloudkeeper.com")
	dir := "/tmp/zap_reports/app_cloudkeeper_com"

	t.Run("baseline pass", func(t *testing.T) {
		t.Parallel()

		cmd := BuildCommand(defaultSettings(), model.PassBaseline, target, dir)
		want := "docker run -v /tmp/zap_reports/app_cloudkeeper_com:/zap/wrk/:rw --rm -t " +
			"ghcr.io/zaproxy/zaproxy:stable zap-baseline.py -d -t http://app.cloudkeeper.com " +
			"-r app_cloudkeeper_com_baseline.html"
		if got := cmd.String(); got != want {
			t.Errorf("expected\n%s\ngot\n%s", want, got)
		}
	})

	t.Run("ajax pass carries the API format", func(t *testing.T) {
		t.Parallel()

		cmd := BuildCommand(defaultSettings(), model.PassAJAX, target, dir)
		want := "docker run -v /tmp/zap_reports/app_cloudkeeper_com:/zap/wrk/:rw --rm -t " +
			"ghcr.io/zaproxy/zaproxy:stable zap-api-scan.py -d -t http://app.cloudkeeper.com " +
			"-f openapi -r app_cloudkeeper_com_ajax.html"
		if got := cmd.String(); got != want {
			t.Errorf("expected\n%s\ngot\n%s", want, got)
		}
	})

	t.Run("active pass with ajax spider and extra args", func(t *testing.T) {
		t.Parallel()

		s := defaultSettings()
		s.Debug = false
		s.AjaxSpider = true
		s.ExtraArgs = []string{"--network", "host"}
		cmd := BuildCommand(s, model.PassActive, target, dir)
		want := "docker run -v /tmp/zap_reports/app_cloudkeeper_com:/zap/wrk/:rw --rm -t " +
			"--network host ghcr.io/zaproxy/zaproxy:stable zap-full-scan.py -j -t http://app.cloudkeeper.com " +
			"-r app_cloudkeeper_com_active.html"
		if got := cmd.String(); got != want {
			t.Errorf("expected\n%s\ngot\n%s", want, got)
		}
	})

	t.Run("target with a port mounts a single volume", func(t *testing.T) {
		t.Parallel()

		withPort := mustTarget(t, "http://localhost:8080/api")
		cmd := BuildCommand(defaultSettings(), model.PassBaseline, withPort, "/tmp/zap_reports/"+withPort.ID())

		i := indexOf(cmd.Args, "-v")
		if i < 0 || i+1 >= len(cmd.Args) {
			t.Fatalf("expected -v in %v", cmd.Args)
		}
		volume := cmd.Args[i+1]
		if want := "/tmp/zap_reports/localhost_8080:/zap/wrk/:rw"; volume != want {
			t.Errorf("expected volume %q, got %q", want, volume)
		}
		if n := strings.Count(volume, ":"); n != 2 {
			t.Errorf("expected 2 colons in volume spec, got %d", n)
		}
		if got := cmd.Args[len(cmd.Args)-1]; got != "localhost_8080_baseline.html" {
			t.Errorf("expected report localhost_8080_baseline.html, got %s", got)
		}
	})

	t.Run("ajax spider flag is not passed to the api scan", func(t *testing.T) {
		t.Parallel()

		s := defaultSettings()
		s.AjaxSpider = true
		cmd := BuildCommand(s, model.PassAJAX, target, dir)
		if indexOf(cmd.Args, "-j") >= 0 {
			t.Errorf("unexpected -j in %v", cmd.Args)
		}
	})
}

func TestClassify(t *testing.T) {
	t.Parallel()

	tests := []struct {
		code   int
		alerts bool
		want   model.PassStatus
	}{
		{0, true, model.PassSucceeded},
		{0, false, model.PassSucceeded},
		{1, true, model.PassAlerts},
		{2, true, model.PassAlerts},
		{1, false, model.PassFailed},
		{2, false, model.PassFailed},
		{3, true, model.PassFailed},
		{-1, true, model.PassFailed},
	}

	for _, tt := range tests {
		if got := classify(tt.code, tt.alerts); got != tt.want {
			t.Errorf("classify(%d, %v): expected %s, got %s", tt.code, tt.alerts, tt.want, got)
		}
	}
}

func TestRunnerScanTarget(t *testing.T) {
	t.Parallel()

	target := func(t *testing.T) model.Target {
		t.Helper()
		return mustTarget(t, "https://auto.cloudkeeper.com/login")
	}

	t.Run("runs all passes in order", func(t *testing.T) {
		t.Parallel()

		fake := &fakeExecutor{exit: map[string]int{"zap-full-scan.py": 2}, writeReport: true}
		root := t.TempDir()
		var console bytes.Buffer
		r := NewRunner(fake, defaultSettings(), root, WithConsole(&console))

		result, err := r.ScanTarget(context.Background(), target(t))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !result.Completed {
			t.Error("expected target to be completed")
		}
		if result.Dir != filepath.Join(root, "auto_cloudkeeper_com") {
			t.Errorf("unexpected dir %q", result.Dir)
		}

		want := []string{"zap-baseline.py", "zap-api-scan.py", "zap-full-scan.py"}
		got := fake.scripts()
		if strings.Join(got, ",") != strings.Join(want, ",") {
			t.Errorf("expected scripts %v, got %v", want, got)
		}

		if len(result.Passes) != 3 {
			t.Fatalf("expected 3 passes, got %d", len(result.Passes))
		}
		if result.Passes[2].Status != model.PassAlerts {
			t.Errorf("expected alerts status for exit code 2, got %s", result.Passes[2].Status)
		}
		for _, p := range result.Passes {
			if !p.ReportExists {
				t.Errorf("expected report for %s to exist", p.Kind)
			}
		}
		if !strings.Contains(console.String(), "https://auto.cloudkeeper.com/login") {
			t.Errorf("expected console output to mention the target, got %q", console.String())
		}
	})

	t.Run("ajax failure never aborts", func(t *testing.T) {
		t.Parallel()

		fake := &fakeExecutor{exit: map[string]int{"zap-api-scan.py": 3}}
		s := defaultSettings()
		s.Policy = model.PolicyAbort
		r := NewRunner(fake, s, t.TempDir())

		result, err := r.ScanTarget(context.Background(), target(t))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(fake.scripts()) != 3 {
			t.Errorf("expected all passes to run, got %v", fake.scripts())
		}
		ajax, _ := result.Pass(model.PassAJAX)
		if ajax.Status != model.PassFailed {
			t.Errorf("expected ajax failure to be recorded, got %s", ajax.Status)
		}
		if !result.Completed {
			t.Error("expected target to be completed")
		}
	})

	t.Run("baseline failure aborts under abort policy", func(t *testing.T) {
		t.Parallel()

		fake := &fakeExecutor{exit: map[string]int{"zap-baseline.py": 3}}
		s := defaultSettings()
		s.Policy = model.PolicyAbort
		r := NewRunner(fake, s, t.TempDir())

		result, err := r.ScanTarget(context.Background(), target(t))
		if !errors.Is(err, ErrAborted) {
			t.Fatalf("expected ErrAborted, got %v", err)
		}
		if got := fake.scripts(); len(got) != 1 {
			t.Errorf("expected only the baseline pass to run, got %v", got)
		}
		if result.Completed {
			t.Error("expected target to be incomplete")
		}
		if len(result.Passes) != 3 {
			t.Fatalf("expected 3 pass results, got %d", len(result.Passes))
		}
		for _, p := range result.Passes[1:] {
			if p.Status != model.PassSkipped {
				t.Errorf("expected %s to be skipped, got %s", p.Kind, p.Status)
			}
		}
	})

	t.Run("active failure is recorded under continue policy", func(t *testing.T) {
		t.Parallel()

		fake := &fakeExecutor{exit: map[string]int{"zap-baseline.py": 3, "zap-full-scan.py": 3}}
		r := NewRunner(fake, defaultSettings(), t.TempDir())

		result, err := r.ScanTarget(context.Background(), target(t))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.Failures() != 2 {
			t.Errorf("expected 2 failures, got %d", result.Failures())
		}
		if !result.Completed {
			t.Error("expected target to be completed")
		}
	})

	t.Run("alerts count as failure when configured", func(t *testing.T) {
		t.Parallel()

		fake := &fakeExecutor{exit: map[string]int{"zap-baseline.py": 1}}
		s := defaultSettings()
		s.AlertsAreSuccess = false
		s.Policy = model.PolicyAbort
		r := NewRunner(fake, s, t.TempDir())

		if _, err := r.ScanTarget(context.Background(), target(t)); !errors.Is(err, ErrAborted) {
			t.Errorf("expected ErrAborted, got %v", err)
		}
	})

	t.Run("start failure is a failed pass", func(t *testing.T) {
		t.Parallel()

		fake := &fakeExecutor{startErr: map[string]error{"zap-baseline.py": errors.New("no such file")}}
		r := NewRunner(fake, defaultSettings(), t.TempDir())

		result, err := r.ScanTarget(context.Background(), target(t))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		baseline, _ := result.Pass(model.PassBaseline)
		if baseline.Status != model.PassFailed || baseline.ExitCode != -1 {
			t.Errorf("expected failed pass with exit code -1, got %s/%d", baseline.Status, baseline.ExitCode)
		}
		if !strings.Contains(baseline.Error, "no such file") {
			t.Errorf("expected start error to be recorded, got %q", baseline.Error)
		}
	})

	t.Run("disabled passes are skipped", func(t *testing.T) {
		t.Parallel()

		fake := &fakeExecutor{}
		s := defaultSettings()
		s.Passes = []model.PassKind{model.PassBaseline}
		r := NewRunner(fake, s, t.TempDir())

		result, err := r.ScanTarget(context.Background(), target(t))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got := fake.scripts(); len(got) != 1 || got[0] != "zap-baseline.py" {
			t.Errorf("expected only baseline to run, got %v", got)
		}
		active, _ := result.Pass(model.PassActive)
		if active.Status != model.PassSkipped {
			t.Errorf("expected active to be skipped, got %s", active.Status)
		}
	})

	t.Run("cancelled context stops before the first pass", func(t *testing.T) {
		t.Parallel()

		fake := &fakeExecutor{}
		r := NewRunner(fake, defaultSettings(), t.TempDir())
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		result, err := r.ScanTarget(ctx, target(t))
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
		if len(fake.scripts()) != 0 {
			t.Errorf("expected no passes to run, got %v", fake.scripts())
		}
		if result == nil || result.Completed {
			t.Error("expected an incomplete result")
		}
	})

	t.Run("clock drives pass timestamps", func(t *testing.T) {
		t.Parallel()

		start := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
		var mu sync.Mutex
		tick := 0
		clock := func() time.Time {
			mu.Lock()
			defer mu.Unlock()
			tick++
			return start.Add(time.Duration(tick) * time.Minute)
		}

		r := NewRunner(&fakeExecutor{}, defaultSettings(), t.TempDir(), WithClock(clock))
		result, err := r.ScanTarget(context.Background(), target(t))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if d := result.Passes[0].Duration(); d != time.Minute {
			t.Errorf("expected 1m duration, got %v", d)
		}
	})
}

func TestTailBuffer(t *testing.T) {
	t.Parallel()

	buf := newTailBuffer(4)
	if _, err := buf.Write([]byte("ab")); err != nil {
		t.Fatal(err)
	}
	if buf.String() != "ab" {
		t.Errorf("expected ab, got %q", buf.String())
	}
	if _, err := buf.Write([]byte("cdef")); err != nil {
		t.Fatal(err)
	}
	if got := buf.String(); got != "...\ncdef" {
		t.Errorf("expected truncated tail, got %q", got)
	}
}

func TestDockerExecutor(t *testing.T) {
	t.Parallel()

	sh, err := exec.LookPath("sh")
	if err != nil {
		t.Skip("sh not available")
	}

	t.Run("reports exit code and output", func(t *testing.T) {
		t.Parallel()

		res, err := NewDockerExecutor().Execute(context.Background(), Command{
			Name: sh,
			Args: []string{"-c", "echo scanning; exit 2"},
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if res.ExitCode != 2 {
			t.Errorf("expected exit code 2, got %d", res.ExitCode)
		}
		if !strings.Contains(res.Output, "scanning") {
			t.Errorf("expected output to be captured, got %q", res.Output)
		}
	})

	t.Run("missing binary is a start error", func(t *testing.T) {
		t.Parallel()

		_, err := NewDockerExecutor().Execute(context.Background(), Command{Name: "/nonexistent/docker"})
		if err == nil {
			t.Error("expected start error")
		}
	})
}

func TestPreflight(t *testing.T) {
	t.Parallel()

	if _, err := Preflight("zapreport-no-such-binary"); !errors.Is(err, ErrDockerNotFound) {
		t.Errorf("expected ErrDockerNotFound, got %v", err)
	}
}
