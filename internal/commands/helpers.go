// Package commands implements the CLI subcommands for the actorrelay binary.
package commands

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dwsmith1983/actorrelay/internal/config"
	"github.com/dwsmith1983/actorrelay/internal/orchestrator"
	"github.com/dwsmith1983/actorrelay/internal/platform"
	"github.com/dwsmith1983/actorrelay/internal/relay"
	"github.com/dwsmith1983/actorrelay/pkg/types"
)

// commonFlags are shared by every command that talks to the platform.
type commonFlags struct {
	dir    string
	apiKey string
}

func (f *commonFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.dir, "dir", ".", "Project directory containing "+config.FileName)
	cmd.Flags().StringVar(&f.apiKey, "api-key", "", "Platform API key (defaults to accountKey / RELAY_ACCOUNT_KEY)")
}

// buildService wires the platform client, orchestrator and relay service.
func buildService(cfg *types.ProjectConfig, logger *slog.Logger) (*relay.Service, error) {
	popts, err := config.PlatformOptions(cfg)
	if err != nil {
		return nil, err
	}
	runCfg, err := config.RunConfig(cfg)
	if err != nil {
		return nil, err
	}
	client := platform.New(append(popts, platform.WithLogger(logger))...)
	orch := orchestrator.New(client, orchestrator.WithLogger(logger))

	opts := []relay.Option{
		relay.WithRunConfig(runCfg),
		relay.WithLogger(logger),
	}
	if cfg.AccountKey != "" {
		opts = append(opts, relay.WithDefaultAccountKey(cfg.AccountKey))
	}
	return relay.New(client, orch, opts...), nil
}

// parseInputs turns repeated key=value flags into form values. A repeated
// key collects several values, as an array field would.
func parseInputs(pairs []string) (map[string][]string, error) {
	form := make(map[string][]string, len(pairs))
	for _, p := range pairs {
		key, value, ok := strings.Cut(p, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid --input %q: expected key=value", p)
		}
		form[key] = append(form[key], value)
	}
	return form, nil
}
