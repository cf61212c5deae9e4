package types

// PlatformConfig locates the remote automation platform.
type PlatformConfig struct {
	BaseURL        string `yaml:"baseUrl,omitempty" json:"baseUrl,omitempty"`
	ConsoleURL     string `yaml:"consoleUrl,omitempty" json:"consoleUrl,omitempty"`
	RequestTimeout string `yaml:"requestTimeout,omitempty" json:"requestTimeout,omitempty"` // e.g. "30s"
}

// OrchestratorConfig bounds the run-and-poll loop. Durations are Go duration
// strings ("2s", "10m").
type OrchestratorConfig struct {
	PollInterval   string `yaml:"pollInterval,omitempty" json:"pollInterval,omitempty"`
	MaxAttempts    int    `yaml:"maxAttempts,omitempty" json:"maxAttempts,omitempty"`
	RequestTimeout string `yaml:"requestTimeout,omitempty" json:"requestTimeout,omitempty"`
	Deadline       string `yaml:"deadline,omitempty" json:"deadline,omitempty"`
}

// RetryPolicy configures retry of a single outbound platform call.
type RetryPolicy struct {
	MaxRetries        int     `yaml:"maxRetries" json:"maxRetries"`
	Backoff           string  `yaml:"backoff,omitempty" json:"backoff,omitempty"`
	BackoffMultiplier float64 `yaml:"backoffMultiplier,omitempty" json:"backoffMultiplier,omitempty"`
	MaxBackoff        string  `yaml:"maxBackoff,omitempty" json:"maxBackoff,omitempty"`
}

// BreakerConfig configures the platform circuit breaker.
type BreakerConfig struct {
	FailThreshold int    `yaml:"failThreshold,omitempty" json:"failThreshold,omitempty"`
	Cooldown      string `yaml:"cooldown,omitempty" json:"cooldown,omitempty"`
	FailWindow    string `yaml:"failWindow,omitempty" json:"failWindow,omitempty"`
}

// ServerConfig configures the HTTP relay.
type ServerConfig struct {
	Addr           string `yaml:"addr,omitempty" json:"addr,omitempty"`
	MaxRequestBody int64  `yaml:"maxRequestBody,omitempty" json:"maxRequestBody,omitempty"`
	StaticDir      string `yaml:"staticDir,omitempty" json:"staticDir,omitempty"`
}

// TelemetryConfig configures OpenTelemetry export.
type TelemetryConfig struct {
	Enabled     bool   `yaml:"enabled" json:"enabled"`
	Endpoint    string `yaml:"endpoint,omitempty" json:"endpoint,omitempty"`
	ServiceName string `yaml:"serviceName,omitempty" json:"serviceName,omitempty"`
}

// ProjectConfig is the top-level relay.yaml configuration.
type ProjectConfig struct {
	AccountKey   string              `yaml:"accountKey,omitempty" json:"-"`
	Platform     *PlatformConfig     `yaml:"platform,omitempty" json:"platform,omitempty"`
	Orchestrator *OrchestratorConfig `yaml:"orchestrator,omitempty" json:"orchestrator,omitempty"`
	Retry        *RetryPolicy        `yaml:"retry,omitempty" json:"retry,omitempty"`
	Breaker      *BreakerConfig      `yaml:"breaker,omitempty" json:"breaker,omitempty"`
	Server       *ServerConfig       `yaml:"server,omitempty" json:"server,omitempty"`
	Telemetry    *TelemetryConfig    `yaml:"telemetry,omitempty" json:"telemetry,omitempty"`
}
