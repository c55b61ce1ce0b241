package main

import (
	"embed"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/nao1215/spider/internal/config"
	"github.com/spf13/cobra"
)

//go:embed templates/spider.yaml
var configTemplate embed.FS

const templatePath = "templates/spider.yaml"

// configFileName is the default configuration file name.
const configFileName = config.DefaultConfigFile

// errConfigExists is returned by init when the target exists and -f is not given.
var errConfigExists = errors.New("configuration file already exists")

// NewInitCmd creates the init command.
func NewInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize a new spider configuration file",
		Long: `Initialize creates a new .spider.yaml configuration file in the current directory.

The generated file includes defaults applied to every site and commented
examples of per-site cookies, headers, depth and URL patterns.

Examples:
  # Create .spider.yaml in current directory
  spider init

  # Create config file at a specific path
  spider init -o myconfig.yaml

  # Force overwrite existing file
  spider init -f`,
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

	if err := writeConfigTemplate(outputPath, force); err != nil {
		return err
	}

	printInitHelp(cmd.OutOrStdout(), outputPath)
	return nil
}

// writeConfigTemplate writes the embedded template to path, creating parent
// directories. An existing file is only replaced when force is set.
func writeConfigTemplate(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%w: %s (use -f to overwrite)", errConfigExists, path)
		}
	}

	content, err := configTemplate.ReadFile(templatePath)
	if err != nil {
		return fmt.Errorf("failed to read config template: %w", err)
	}

	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	// Cookies and auth headers may end up in this file.
	if err := os.WriteFile(path, content, 0o600); err != nil {
		return fmt.Errorf("failed to write configuration file: %w", err)
	}
	return nil
}

func printInitHelp(out io.Writer, path string) {
	fmt.Fprintf(out, "Created configuration file: %s\n", path)
	fmt.Fprintln(out, "\nEdit this file to configure site-specific settings such as:")
	fmt.Fprintln(out, "  - Cookies and headers sent to a site")
	fmt.Fprintln(out, "  - Crawl depth and User-Agent per site")
	fmt.Fprintln(out, "  - URL path patterns to ignore or follow")
}
