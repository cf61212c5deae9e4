package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/dwsmith1983/actorrelay/internal/config"
	"github.com/dwsmith1983/actorrelay/internal/relay"
)

// NewActorsCmd creates the actors command.
func NewActorsCmd() *cobra.Command {
	var flags commonFlags
	cmd := &cobra.Command{
		Use:   "actors",
		Short: "List the actors of the account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runActors(cmd.Context(), cmd.OutOrStdout(), flags)
		},
	}
	flags.register(cmd)
	return cmd
}

func runActors(ctx context.Context, out io.Writer, flags commonFlags) error {
	cfg, err := config.LoadOptional(flags.dir)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	svc, err := buildService(cfg, slog.Default())
	if err != nil {
		return err
	}

	actors, err := svc.ListActors(ctx, relay.Request{AccountKey: flags.apiKey})
	if err != nil {
		return err
	}
	if len(actors) == 0 {
		_, _ = color.New(color.FgYellow).Fprintln(out, "No actors found")
		return nil
	}

	bold := color.New(color.Bold)
	_, _ = bold.Fprintf(out, "%-24s %s\n", "ACTOR ID", "NAME")
	for _, a := range actors {
		_, _ = fmt.Fprintf(out, "%-24s %s\n", a.ActorID, a.Name)
	}
	return nil
}
