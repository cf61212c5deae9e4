package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/dwsmith1983/actorrelay/internal/config"
	"github.com/dwsmith1983/actorrelay/internal/server"
	"github.com/dwsmith1983/actorrelay/internal/telemetry"
)

const shutdownTimeout = 10 * time.Second

// NewServeCmd creates the serve command.
func NewServeCmd() *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the relay HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(dir)
		},
	}
	cmd.Flags().StringVar(&dir, "dir", ".", "Project directory containing "+config.FileName)
	return cmd
}

func runServe(dir string) error {
	cfg, err := config.LoadOptional(dir)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	logger := telemetry.SetupLogger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry, err := telemetry.Init(ctx, cfg.Telemetry)
	if err != nil {
		return fmt.Errorf("starting telemetry: %w", err)
	}

	svc, err := buildService(cfg, logger)
	if err != nil {
		return err
	}

	addr := ":3000"
	var maxBody int64
	var staticDir string
	if cfg.Server != nil {
		if cfg.Server.Addr != "" {
			addr = cfg.Server.Addr
		}
		maxBody = cfg.Server.MaxRequestBody
		staticDir = cfg.Server.StaticDir
	}
	srv := server.New(addr, svc, maxBody, staticDir, logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		color.Yellow("\nShutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Stop(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown: %w", err)
		}
		return nil
	})

	err = g.Wait()

	flushCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if terr := shutdownTelemetry(flushCtx); terr != nil {
		fmt.Fprintf(os.Stderr, "telemetry shutdown: %v\n", terr)
	}
	if err != nil {
		return err
	}
	color.Green("Server stopped gracefully")
	return nil
}
