package lambda

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"

	"github.com/dwsmith1983/actorrelay/internal/orchestrator"
	"github.com/dwsmith1983/actorrelay/internal/platform"
	"github.com/dwsmith1983/actorrelay/internal/relay"
	"github.com/dwsmith1983/actorrelay/internal/telemetry"
)

// Init creates shared dependencies from environment variables.
// Reads: PLATFORM_BASE_URL, PLATFORM_CONSOLE_URL, POLL_INTERVAL,
// MAX_ATTEMPTS, RUN_DEADLINE, REQUEST_TIMEOUT, ACCOUNT_KEY_SECRET_ID,
// OUTCOME_EVENT_BUS.
func Init(ctx context.Context) (*Deps, error) {
	return InitWithClients(ctx, Clients{})
}

// InitWithClients is Init with injected AWS clients.
func InitWithClients(ctx context.Context, clients Clients) (*Deps, error) {
	logger := telemetry.NewLogger(os.Stderr)

	runCfg, err := runConfigFromEnv()
	if err != nil {
		return nil, err
	}

	secretID := os.Getenv("ACCOUNT_KEY_SECRET_ID")
	eventBus := os.Getenv("OUTCOME_EVENT_BUS")
	if (secretID != "" && clients.Secrets == nil) || (eventBus != "" && clients.Events == nil) {
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			return nil, fmt.Errorf("loading AWS config: %w", err)
		}
		if clients.Secrets == nil {
			clients.Secrets = secretsmanager.NewFromConfig(awsCfg)
		}
		if clients.Events == nil {
			clients.Events = eventbridge.NewFromConfig(awsCfg)
		}
	}

	client := platform.New(
		platform.WithBaseURL(envOrDefault("PLATFORM_BASE_URL", platform.DefaultBaseURL)),
		platform.WithConsoleURL(envOrDefault("PLATFORM_CONSOLE_URL", platform.DefaultConsoleURL)),
		platform.WithLogger(logger),
	)
	orch := orchestrator.New(client, orchestrator.WithLogger(logger))

	opts := []relay.Option{
		relay.WithRunConfig(runCfg),
		relay.WithLogger(logger),
	}
	if secretID != "" {
		key, err := ResolveAccountKey(ctx, clients.Secrets, secretID)
		if err != nil {
			return nil, err
		}
		opts = append(opts, relay.WithDefaultAccountKey(key))
	}
	if eventBus != "" {
		opts = append(opts, relay.WithPublisher(NewEventPublisher(clients.Events, eventBus)))
	}

	return &Deps{
		Relay:  relay.New(client, orch, opts...),
		Logger: logger,
	}, nil
}

func runConfigFromEnv() (orchestrator.Config, error) {
	var cfg orchestrator.Config
	var err error
	if cfg.PollInterval, err = envDuration("POLL_INTERVAL"); err != nil {
		return cfg, err
	}
	if cfg.Deadline, err = envDuration("RUN_DEADLINE"); err != nil {
		return cfg, err
	}
	if cfg.RequestTimeout, err = envDuration("REQUEST_TIMEOUT"); err != nil {
		return cfg, err
	}
	if v := os.Getenv("MAX_ATTEMPTS"); v != "" {
		if cfg.MaxAttempts, err = strconv.Atoi(v); err != nil {
			return cfg, fmt.Errorf("MAX_ATTEMPTS: %w", err)
		}
	}
	cfg, err = cfg.Normalize()
	if err != nil {
		return cfg, fmt.Errorf("run config: %w", err)
	}
	return cfg, nil
}

func envDuration(key string) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
