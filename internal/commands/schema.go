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

// NewSchemaCmd creates the schema command.
func NewSchemaCmd() *cobra.Command {
	var flags commonFlags
	cmd := &cobra.Command{
		Use:   "schema [actor-id]",
		Short: "Show the input fields of an actor",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSchema(cmd.Context(), cmd.OutOrStdout(), flags, args[0])
		},
	}
	flags.register(cmd)
	return cmd
}

func runSchema(ctx context.Context, out io.Writer, flags commonFlags, actorID string) error {
	cfg, err := config.LoadOptional(flags.dir)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	svc, err := buildService(cfg, slog.Default())
	if err != nil {
		return err
	}

	res, err := svc.Schema(ctx, relay.Request{AccountKey: flags.apiKey, ActorID: actorID})
	if err != nil {
		return err
	}
	if len(res.Fields) == 0 {
		_, _ = color.New(color.FgYellow).Fprintln(out, "No schema fields found")
		return nil
	}

	bold := color.New(color.Bold)
	dim := color.New(color.Faint)
	for _, f := range res.Fields {
		_, _ = bold.Fprintf(out, "%s", f.Label)
		_, _ = fmt.Fprintf(out, "  --input %s=<%s>\n", f.Name, typeOrText(f.Type))
		if f.Description != "" {
			_, _ = dim.Fprintf(out, "    %s\n", f.Description)
		}
	}
	if n := len(res.Properties) - len(res.Fields); n > 0 {
		_, _ = dim.Fprintf(out, "(%d more properties not shown)\n", n)
	}
	return nil
}

func typeOrText(t string) string {
	if t == "" {
		return "string"
	}
	return t
}
