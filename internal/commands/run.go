package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/dwsmith1983/actorrelay/internal/config"
	"github.com/dwsmith1983/actorrelay/internal/relay"
	"github.com/dwsmith1983/actorrelay/pkg/types"
)

type runFlags struct {
	commonFlags
	inputs    []string
	jsonInput string
}

// NewRunCmd creates the run command.
func NewRunCmd() *cobra.Command {
	var flags runFlags
	cmd := &cobra.Command{
		Use:   "run [actor-id]",
		Short: "Run an actor and wait for it to finish",
		Long: `Starts the actor and polls its status until it succeeds, fails or the
polling budget runs out. Input comes either from --input key=value pairs,
typed against the actor's input schema, or from a raw --json object.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runActor(cmd.Context(), cmd.OutOrStdout(), flags, args[0])
		},
	}
	flags.register(cmd)
	cmd.Flags().StringArrayVar(&flags.inputs, "input", nil, "Input value as key=value (repeatable)")
	cmd.Flags().StringVar(&flags.jsonInput, "json", "", "Raw JSON input object")
	cmd.MarkFlagsMutuallyExclusive("input", "json")
	return cmd
}

func runActor(ctx context.Context, out io.Writer, flags runFlags, actorID string) error {
	cfg, err := config.LoadOptional(flags.dir)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	svc, err := buildService(cfg, slog.Default())
	if err != nil {
		return err
	}

	req := relay.Request{AccountKey: flags.apiKey, ActorID: actorID}
	_, _ = color.New(color.Bold).Fprintf(out, "Running actor %s...\n", actorID)

	var outcome types.RunOutcome
	if flags.jsonInput != "" {
		if err := json.Unmarshal([]byte(flags.jsonInput), &req.Input); err != nil {
			return fmt.Errorf("parsing --json: %w", err)
		}
		outcome, err = svc.Run(ctx, req)
	} else {
		form, perr := parseInputs(flags.inputs)
		if perr != nil {
			return perr
		}
		outcome, err = svc.RunForm(ctx, req, form)
	}
	if err != nil {
		return err
	}
	return printOutcome(out, outcome)
}

// printOutcome reports the outcome; anything but success is returned as an
// error so the exit status reflects it.
func printOutcome(out io.Writer, o types.RunOutcome) error {
	switch o.Kind {
	case types.OutcomeSucceeded:
		_, _ = color.New(color.FgGreen).Fprintf(out, "SUCCEEDED")
		_, _ = fmt.Fprintf(out, " run %s after %d status checks\n", o.RunID, o.AttemptsMade)
		data, err := json.MarshalIndent(o.Record, "", "  ")
		if err != nil {
			return fmt.Errorf("encoding run record: %w", err)
		}
		_, _ = fmt.Fprintln(out, string(data))
		return nil
	case types.OutcomeFailed:
		_, _ = color.New(color.FgRed).Fprintf(out, "FAILED")
		_, _ = fmt.Fprintf(out, " %s\n  monitor: %s\n", o.Message, o.MonitorURL)
		return fmt.Errorf("run %s failed", o.RunID)
	case types.OutcomeTimeout:
		_, _ = color.New(color.FgYellow).Fprintf(out, "STILL RUNNING")
		_, _ = fmt.Fprintf(out, " gave up after %d status checks; outcome unknown\n  monitor: %s\n", o.AttemptsMade, o.MonitorURL)
		return fmt.Errorf("run %s timed out", o.RunID)
	case types.OutcomeCancelled:
		_, _ = color.New(color.FgYellow).Fprintf(out, "CANCELLED\n")
		if o.MonitorURL != "" {
			_, _ = fmt.Fprintf(out, "  monitor: %s\n", o.MonitorURL)
		}
		return fmt.Errorf("run cancelled")
	default:
		_, _ = color.New(color.FgRed).Fprintf(out, "ERROR")
		_, _ = fmt.Fprintf(out, " %s: %s\n", o.Kind, o.Message)
		return fmt.Errorf("run did not complete: %s", o.Message)
	}
}
