package commands

import "github.com/spf13/cobra"

// NewRootCmd assembles the actorrelay command tree.
func NewRootCmd(version string) *cobra.Command {
	root := &cobra.Command{
		Use:   "actorrelay",
		Short: "Run platform actors and wait for their outcome",
		Long: `actorrelay starts actors on a remote automation platform and polls each
run until it succeeds, fails or the polling budget runs out. It serves the
same operations over HTTP for browser front ends and API Gateway.`,
		Version:      version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		NewInitCmd(),
		NewActorsCmd(),
		NewSchemaCmd(),
		NewRunCmd(),
		NewServeCmd(),
	)
	return root
}
