package main

import (
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/nao1215/zapreport/internal/archive"
	"github.com/nao1215/zapreport/internal/config"
	"github.com/nao1215/zapreport/internal/model"
)

// NewArchiveCmd creates the archive command.
func NewArchiveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "archive",
		Short: "Zip the HTML reports of the working directory",
		Long: `Archive bundles every .html file under the working directory into
zap_scan_reports_YYYYMMDD.zip (today's date) without scanning or sending mail.
An existing archive of the same day is replaced.

Examples:
  # Archive the reports of the default working directory
  zapreport archive

  # Archive another directory
  zapreport archive --workdir ./reports`,
		Args: cobra.NoArgs,
		RunE: runArchiveCmd,
	}

	cmd.Flags().String("workdir", config.DefaultWorkDir(),
		"Working directory containing the reports")

	return cmd
}

// runArchiveCmd executes the archive command.
func runArchiveCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := applyWorkDirFlag(cmd, cfg); err != nil {
		return err
	}

	logger := setupLogger(cmd)

	info, err := archive.Create(cfg.WorkDir, time.Now())
	if err != nil {
		return fmt.Errorf("failed to create archive: %w", err)
	}
	if len(info.Entries) == 0 {
		logger.Warn("no reports found, archive is empty", "workdir", cfg.WorkDir)
	}

	printArchive(cmd.OutOrStdout(), info)
	return nil
}

// printArchive prints the archive path, entries and digest.
func printArchive(w io.Writer, info *model.ArchiveInfo) {
	fmt.Fprintf(w, "Archive:  %s\n", info.Path)
	fmt.Fprintf(w, "Reports:  %d\n", len(info.Entries))
	for _, e := range info.Entries {
		fmt.Fprintf(w, "  - %s\n", e)
	}
	fmt.Fprintf(w, "Size:     %s\n", humanize.IBytes(uint64(max(info.Size, 0))))
	fmt.Fprintf(w, "SHA3-256: %s\n", info.SHA3)
}
