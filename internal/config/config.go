// Package config handles loading and validation of relay.yaml.
package config

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dwsmith1983/actorrelay/internal/orchestrator"
	"github.com/dwsmith1983/actorrelay/internal/platform"
	"github.com/dwsmith1983/actorrelay/pkg/types"
)

// FileName is the configuration file looked up in the project directory.
const FileName = "relay.yaml"

// Load reads and parses relay.yaml from the given directory, then applies
// RELAY_* environment overrides.
func Load(dir string) (*types.ProjectConfig, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	var cfg types.ProjectConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return finish(&cfg)
}

// LoadOptional is Load, but a missing relay.yaml yields the defaults.
func LoadOptional(dir string) (*types.ProjectConfig, error) {
	cfg, err := Load(dir)
	if errors.Is(err, os.ErrNotExist) {
		return finish(&types.ProjectConfig{})
	}
	return cfg, err
}

func finish(cfg *types.ProjectConfig) (*types.ProjectConfig, error) {
	if err := applyEnv(cfg); err != nil {
		return nil, fmt.Errorf("reading environment: %w", err)
	}
	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

// applyEnv overrides file values with RELAY_* variables.
func applyEnv(cfg *types.ProjectConfig) error {
	if v := os.Getenv("RELAY_ACCOUNT_KEY"); v != "" {
		cfg.AccountKey = v
	}
	if v := os.Getenv("RELAY_PLATFORM_BASE_URL"); v != "" {
		platformSection(cfg).BaseURL = v
	}
	if v := os.Getenv("RELAY_PLATFORM_CONSOLE_URL"); v != "" {
		platformSection(cfg).ConsoleURL = v
	}
	if v := os.Getenv("RELAY_SERVER_ADDR"); v != "" {
		serverSection(cfg).Addr = v
	}
	if v := os.Getenv("RELAY_POLL_INTERVAL"); v != "" {
		orchestratorSection(cfg).PollInterval = v
	}
	if v := os.Getenv("RELAY_RUN_DEADLINE"); v != "" {
		orchestratorSection(cfg).Deadline = v
	}
	if v := os.Getenv("RELAY_MAX_ATTEMPTS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("RELAY_MAX_ATTEMPTS: %w", err)
		}
		orchestratorSection(cfg).MaxAttempts = n
	}
	return nil
}

func platformSection(cfg *types.ProjectConfig) *types.PlatformConfig {
	if cfg.Platform == nil {
		cfg.Platform = &types.PlatformConfig{}
	}
	return cfg.Platform
}

func serverSection(cfg *types.ProjectConfig) *types.ServerConfig {
	if cfg.Server == nil {
		cfg.Server = &types.ServerConfig{}
	}
	return cfg.Server
}

func orchestratorSection(cfg *types.ProjectConfig) *types.OrchestratorConfig {
	if cfg.Orchestrator == nil {
		cfg.Orchestrator = &types.OrchestratorConfig{}
	}
	return cfg.Orchestrator
}

func validate(cfg *types.ProjectConfig) error {
	if p := cfg.Platform; p != nil {
		for name, raw := range map[string]string{"platform.baseUrl": p.BaseURL, "platform.consoleUrl": p.ConsoleURL} {
			if raw == "" {
				continue
			}
			u, err := url.Parse(raw)
			if err != nil || u.Scheme == "" || u.Host == "" {
				return fmt.Errorf("%s must be an absolute URL, got %q", name, raw)
			}
		}
		if err := checkDuration("platform.requestTimeout", p.RequestTimeout); err != nil {
			return err
		}
	}
	if _, err := RunConfig(cfg); err != nil {
		return err
	}
	if _, err := RetryPolicy(cfg); err != nil {
		return err
	}
	if _, err := BreakerConfig(cfg); err != nil {
		return err
	}
	if s := cfg.Server; s != nil && s.MaxRequestBody < 0 {
		return fmt.Errorf("server.maxRequestBody must not be negative")
	}
	if t := cfg.Telemetry; t != nil && t.Enabled && t.Endpoint == "" {
		return fmt.Errorf("telemetry.endpoint is required when telemetry is enabled")
	}
	return nil
}

func checkDuration(name, raw string) error {
	_, err := parseDuration(name, raw)
	return err
}

func parseDuration(name, raw string) (time.Duration, error) {
	if raw == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", name, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s must not be negative", name)
	}
	return d, nil
}

// RunConfig returns the orchestration bounds, defaults applied.
func RunConfig(cfg *types.ProjectConfig) (orchestrator.Config, error) {
	out := orchestrator.Config{}
	if o := cfg.Orchestrator; o != nil {
		var err error
		if out.PollInterval, err = parseDuration("orchestrator.pollInterval", o.PollInterval); err != nil {
			return out, err
		}
		if out.RequestTimeout, err = parseDuration("orchestrator.requestTimeout", o.RequestTimeout); err != nil {
			return out, err
		}
		if out.Deadline, err = parseDuration("orchestrator.deadline", o.Deadline); err != nil {
			return out, err
		}
		out.MaxAttempts = o.MaxAttempts
	}
	return out.Normalize()
}

// RetryPolicy returns the call-level retry policy. An absent section means
// platform.DefaultRetryPolicy.
func RetryPolicy(cfg *types.ProjectConfig) (platform.RetryPolicy, error) {
	r := cfg.Retry
	if r == nil {
		return platform.DefaultRetryPolicy(), nil
	}
	if r.MaxRetries < 0 {
		return platform.RetryPolicy{}, fmt.Errorf("retry.maxRetries must not be negative")
	}
	if r.BackoffMultiplier < 0 {
		return platform.RetryPolicy{}, fmt.Errorf("retry.backoffMultiplier must not be negative")
	}
	backoff, err := parseDuration("retry.backoff", r.Backoff)
	if err != nil {
		return platform.RetryPolicy{}, err
	}
	maxBackoff, err := parseDuration("retry.maxBackoff", r.MaxBackoff)
	if err != nil {
		return platform.RetryPolicy{}, err
	}
	return platform.RetryPolicy{
		MaxRetries: r.MaxRetries,
		Backoff:    backoff,
		Multiplier: r.BackoffMultiplier,
		MaxBackoff: maxBackoff,
	}, nil
}

// BreakerConfig returns the platform circuit breaker settings.
func BreakerConfig(cfg *types.ProjectConfig) (platform.BreakerConfig, error) {
	out := platform.DefaultBreakerConfig()
	b := cfg.Breaker
	if b == nil {
		return out, nil
	}
	if b.FailThreshold < 0 {
		return out, fmt.Errorf("breaker.failThreshold must not be negative")
	}
	if b.FailThreshold > 0 {
		out.FailThreshold = b.FailThreshold
	}
	cooldown, err := parseDuration("breaker.cooldown", b.Cooldown)
	if err != nil {
		return out, err
	}
	if cooldown > 0 {
		out.Cooldown = cooldown
	}
	window, err := parseDuration("breaker.failWindow", b.FailWindow)
	if err != nil {
		return out, err
	}
	if window > 0 {
		out.FailWindow = window
	}
	return out, nil
}

// PlatformOptions returns client options for the configured platform.
func PlatformOptions(cfg *types.ProjectConfig) ([]platform.Option, error) {
	retry, err := RetryPolicy(cfg)
	if err != nil {
		return nil, err
	}
	breaker, err := BreakerConfig(cfg)
	if err != nil {
		return nil, err
	}
	opts := []platform.Option{
		platform.WithRetryPolicy(retry),
		platform.WithBreakerConfig(breaker),
	}
	if p := cfg.Platform; p != nil {
		if p.BaseURL != "" {
			opts = append(opts, platform.WithBaseURL(p.BaseURL))
		}
		if p.ConsoleURL != "" {
			opts = append(opts, platform.WithConsoleURL(p.ConsoleURL))
		}
		timeout, err := parseDuration("platform.requestTimeout", p.RequestTimeout)
		if err != nil {
			return nil, err
		}
		if timeout > 0 {
			opts = append(opts, platform.WithHTTPClient(&http.Client{Timeout: timeout}))
		}
	}
	return opts, nil
}
