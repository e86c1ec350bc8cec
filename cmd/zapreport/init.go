package main

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/nao1215/zapreport/internal/config"
)

//go:embed templates/zapreport.yaml
var configTemplate embed.FS

// configFileName is the default configuration file name.
const configFileName = config.DefaultConfigFile

// NewInitCmd creates the init command.
func NewInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize a new zapreport configuration file",
		Long: `Initialize creates a new .zapreport configuration file in the current directory.

The generated file includes:
- The target list and failure policy
- Scanner image and pass settings
- Mail relay and recipient settings
- Run history settings

Relay credentials are never written to the file; set SMTP_USERNAME and
SMTP_PASSWORD in the environment instead.

Examples:
  # Create .zapreport in current directory
  zapreport init

  # Create config file at a specific path
  zapreport init -o ~/.config/zapreport/config.yaml

  # Force overwrite existing file
  zapreport init -f`,
		Args: cobra.NoArgs,
		RunE: runInitCmd,
	}

	cmd.Flags().StringP("output", "o", configFileName,
		"Output file path for the configuration")
	cmd.Flags().BoolP("force", "f", false,
		"Overwrite existing configuration file")

	return cmd
}

// runInitCmd executes the init command.
func runInitCmd(cmd *cobra.Command, _ []string) error {
	outputPath, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}

	force, err := cmd.Flags().GetBool("force")
	if err != nil {
		return err
	}

	if !force {
		if _, err := os.Stat(outputPath); err == nil {
			return fmt.Errorf("configuration file already exists: %s (use -f to overwrite)", outputPath)
		}
	}

	content, err := configTemplate.ReadFile("templates/zapreport.yaml")
	if err != nil {
		return fmt.Errorf("failed to read config template: %w", err)
	}

	dir := filepath.Dir(outputPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	if err := os.WriteFile(outputPath, content, 0600); err != nil {
		return fmt.Errorf("failed to write configuration file: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Created configuration file: %s\n", outputPath)
	fmt.Fprintln(out, "\nEdit this file to configure:")
	fmt.Fprintln(out, "  - The targets to scan")
	fmt.Fprintln(out, "  - The mail sender and recipients")
	fmt.Fprintln(out, "  - Scanner image and passes")
	fmt.Fprintln(out, "\nSet SMTP_USERNAME and SMTP_PASSWORD before running 'zapreport run'.")

	return nil
}
