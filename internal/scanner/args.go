package scanner

import (
	"github.com/nao1215/zapreport/internal/config"
	"github.com/nao1215/zapreport/internal/model"
)

// containerWorkDir is where the target directory is mounted in the container.
// The ZAP scripts resolve relative report names against it.
const containerWorkDir = "/zap/wrk/"

// Settings controls how scan commands are built and judged.
type Settings struct {
	// Binary is the container CLI.
	Binary string

	// Image is the scanner image.
	Image string

	// ExtraArgs are inserted before the image name.
	ExtraArgs []string

	// Debug adds -d to every pass.
	Debug bool

	// AjaxSpider adds -j to the baseline and active passes.
	AjaxSpider bool

	// APIFormat is passed with -f to the AJAX/API pass.
	APIFormat string

	// AlertsAreSuccess maps exit codes 1 and 2 to model.PassAlerts.
	AlertsAreSuccess bool

	// Passes are the enabled passes. Others are recorded as skipped.
	Passes []model.PassKind

	// Policy decides whether a critical pass failure stops the run.
	Policy model.FailurePolicy
}

// SettingsFromConfig extracts the scanner settings from cfg.
func SettingsFromConfig(cfg *config.Config) Settings {
	return Settings{
		Binary:           cfg.DockerBinary,
		Image:            cfg.Image,
		ExtraArgs:        append([]string(nil), cfg.DockerArgs...),
		Debug:            cfg.Debug,
		AjaxSpider:       cfg.AjaxSpider,
		APIFormat:        cfg.APIFormat,
		AlertsAreSuccess: cfg.AlertsAreSuccess,
		Passes:           append([]model.PassKind(nil), cfg.Passes...),
		Policy:           cfg.Policy,
	}
}

// BuildCommand returns the container invocation of one pass.
// dir must be the absolute path of the target's report directory.
func BuildCommand(s Settings, kind model.PassKind, target model.Target, dir string) Command {
	args := []string{
		"run",
		"-v", dir + ":" + containerWorkDir + ":rw",
		"--rm",
		"-t",
	}
	args = append(args, s.ExtraArgs...)
	args = append(args, s.Image, kind.Script())

	if s.Debug {
		args = append(args, "-d")
	}
	if s.AjaxSpider && kind != model.PassAJAX {
		args = append(args, "-j")
	}

	args = append(args, "-t", target.URL())

	if kind == model.PassAJAX && s.APIFormat != "" {
		args = append(args, "-f", s.APIFormat)
	}

	args = append(args, "-r", kind.ReportFileName(target.ID()))

	return Command{Name: s.Binary, Args: args}
}

// classify maps a scanner exit code to a pass status.
func classify(exitCode int, alertsAreSuccess bool) model.PassStatus {
	switch exitCode {
	case 0:
		return model.PassSucceeded
	case 1, 2:
		if alertsAreSuccess {
			return model.PassAlerts
		}
		return model.PassFailed
	default:
		return model.PassFailed
	}
}
