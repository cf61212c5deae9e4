package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/dwsmith1983/actorrelay/internal/config"
)

const configTemplate = `# Platform API key used when a request carries none.
# accountKey: apify_api_xxx
platform:
  baseUrl: https://api.apify.com
  consoleUrl: https://console.apify.com
orchestrator:
  pollInterval: 5s
  maxAttempts: 60
  requestTimeout: 30s
retry:
  maxRetries: 2
  backoff: 500ms
  backoffMultiplier: 2
  maxBackoff: 10s
server:
  addr: ":3000"
  staticDir: ./public
telemetry:
  enabled: false
  endpoint: localhost:4317
`

// NewInitCmd creates the init command.
func NewInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init [project-name]",
		Short: "Initialize a new relay project",
		Long:  "Creates a project directory with a default " + config.FileName + " and an empty public/ directory.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(cmd, args[0])
		},
	}
}

func runInit(cmd *cobra.Command, projectName string) error {
	out := cmd.OutOrStdout()
	bold := color.New(color.Bold)
	_, _ = bold.Fprintf(out, "Initializing relay project: %s\n", projectName)

	if err := os.MkdirAll(filepath.Join(projectName, "public"), 0o755); err != nil {
		return fmt.Errorf("creating directory: %w", err)
	}

	configPath := filepath.Join(projectName, config.FileName)
	if _, err := os.Stat(configPath); err == nil {
		return fmt.Errorf("%s already exists", configPath)
	}
	if err := os.WriteFile(configPath, []byte(configTemplate), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", config.FileName, err)
	}

	_, _ = color.New(color.FgGreen).Fprintf(out, "  created %s\n", configPath)
	_, _ = fmt.Fprintf(out, "\nNext: cd %s && actorrelay serve\n", projectName)
	return nil
}
