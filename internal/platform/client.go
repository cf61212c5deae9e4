// Package platform is the HTTP client for the remote actor platform.
//
// Every call carries the caller's account key as a bearer token, is wrapped in
// a retry policy and the circuit breaker of that account key, and is recorded
// as an OpenTelemetry client span.
package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/dwsmith1983/actorrelay/internal/clock"
	"github.com/dwsmith1983/actorrelay/internal/metrics"
	"github.com/dwsmith1983/actorrelay/pkg/types"
)

const (
	// DefaultBaseURL is the public platform API.
	DefaultBaseURL = "https://api.apify.com"
	// DefaultConsoleURL is the human-facing console used for monitor links.
	DefaultConsoleURL = "https://console.apify.com"

	maxResponseBytes = 10 << 20
	maxErrorBody     = 200
)

var defaultHTTPClient = &http.Client{Timeout: 30 * time.Second}

// Client talks to the platform API.
type Client struct {
	baseURL    string
	consoleURL string
	httpClient *http.Client
	retry      RetryPolicy
	clock      clock.Clock
	breakers   *breakerSet
	breakerCfg BreakerConfig
	logger     *slog.Logger
	tracer     trace.Tracer
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the API base URL (useful for testing).
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

// WithConsoleURL overrides the console URL used to build monitor links.
func WithConsoleURL(u string) Option {
	return func(c *Client) { c.consoleURL = strings.TrimRight(u, "/") }
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.httpClient = h }
}

// WithRetryPolicy sets the call-level retry policy.
func WithRetryPolicy(p RetryPolicy) Option {
	return func(c *Client) { c.retry = p }
}

// WithClock sets the clock used for retry backoff.
func WithClock(clk clock.Clock) Option {
	return func(c *Client) { c.clock = clk }
}

// WithBreakerConfig sets circuit breaker thresholds.
func WithBreakerConfig(cfg BreakerConfig) Option {
	return func(c *Client) { c.breakerCfg = cfg }
}

type requestTimeoutKey struct{}

// WithRequestTimeout returns a context under which every HTTP attempt made by
// a Client is bounded by d. Each retry gets a fresh budget.
func WithRequestTimeout(ctx context.Context, d time.Duration) context.Context {
	if d <= 0 {
		return ctx
	}
	return context.WithValue(ctx, requestTimeoutKey{}, d)
}

// RequestTimeoutFromContext returns the per-attempt timeout set by
// WithRequestTimeout.
func RequestTimeoutFromContext(ctx context.Context) (time.Duration, bool) {
	d, ok := ctx.Value(requestTimeoutKey{}).(time.Duration)
	return d, ok && d > 0
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// New creates a Client with the given options.
func New(opts ...Option) *Client {
	c := &Client{
		baseURL:    DefaultBaseURL,
		consoleURL: DefaultConsoleURL,
		httpClient: defaultHTTPClient,
		retry:      DefaultRetryPolicy(),
		clock:      clock.Real{},
		breakerCfg: DefaultBreakerConfig(),
		logger:     slog.Default(),
		tracer:     otel.Tracer("github.com/dwsmith1983/actorrelay/internal/platform"),
	}
	for _, o := range opts {
		o(c)
	}
	c.breakers = newBreakerSet(c.breakerCfg, c.logger)
	return c
}

// MonitorURL returns the console link for a run.
func (c *Client) MonitorURL(runID string) string {
	return c.consoleURL + "/view/runs/" + url.PathEscape(runID)
}

// ListActors returns the actors visible to the account.
func (c *Client) ListActors(ctx context.Context, token string) ([]types.Actor, error) {
	data, err := c.call(ctx, "list actors", http.MethodGet, "/v2/acts", token, nil)
	if err != nil {
		return nil, err
	}

	var page struct {
		Items []struct {
			ID   string `json:"id"`
			Name string `json:"name"`
		} `json:"items"`
	}
	if err := json.Unmarshal(data, &page); err != nil {
		return nil, fmt.Errorf("list actors: %w: %v", ErrMalformedResponse, err)
	}

	actors := make([]types.Actor, 0, len(page.Items))
	for _, it := range page.Items {
		actors = append(actors, types.Actor{Name: it.Name, ActorID: it.ID})
	}
	return actors, nil
}

// GetInputSchema returns the actor's input schema. The actor record is
// consulted first, then its default build. An actor without a schema yields
// an empty InputSchema.
func (c *Client) GetInputSchema(ctx context.Context, token, actorID string) (types.InputSchema, error) {
	if actorID == "" {
		return types.InputSchema{}, fmt.Errorf("get actor: actorId is required")
	}

	data, err := c.call(ctx, "get actor", http.MethodGet, "/v2/acts/"+url.PathEscape(actorID), token, nil)
	if err != nil {
		return types.InputSchema{}, err
	}
	schema, found, err := decodeInputSchema(data)
	if err != nil {
		return types.InputSchema{}, fmt.Errorf("get actor: %w", err)
	}
	if found {
		return schema, nil
	}

	data, err = c.call(ctx, "get default build", http.MethodGet,
		"/v2/acts/"+url.PathEscape(actorID)+"/builds/default", token, nil)
	if err != nil {
		var te *TransportError
		if errors.As(err, &te) && te.StatusCode == http.StatusNotFound {
			return types.InputSchema{}, nil
		}
		return types.InputSchema{}, err
	}
	schema, _, err = decodeInputSchema(data)
	if err != nil {
		return types.InputSchema{}, fmt.Errorf("get default build: %w", err)
	}
	return schema, nil
}

// decodeInputSchema reads data.inputSchema, which the platform sends either
// as an object or as a JSON-encoded string.
func decodeInputSchema(data json.RawMessage) (types.InputSchema, bool, error) {
	var holder struct {
		InputSchema json.RawMessage `json:"inputSchema"`
	}
	if err := json.Unmarshal(data, &holder); err != nil {
		return types.InputSchema{}, false, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	raw := bytes.TrimSpace(holder.InputSchema)
	if len(raw) == 0 || string(raw) == "null" {
		return types.InputSchema{}, false, nil
	}

	if raw[0] == '"' {
		var encoded string
		if err := json.Unmarshal(raw, &encoded); err != nil {
			return types.InputSchema{}, false, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
		}
		if strings.TrimSpace(encoded) == "" {
			return types.InputSchema{}, false, nil
		}
		raw = []byte(encoded)
	}

	var schema types.InputSchema
	if err := json.Unmarshal(raw, &schema); err != nil {
		return types.InputSchema{}, false, fmt.Errorf("%w: input schema: %v", ErrMalformedResponse, err)
	}
	return schema, true, nil
}

// StartRun launches one run of the actor with the given input.
func (c *Client) StartRun(ctx context.Context, token, actorID string, input map[string]interface{}) (types.RunHandle, error) {
	if input == nil {
		input = map[string]interface{}{}
	}
	data, err := c.call(ctx, "start run", http.MethodPost, "/v2/acts/"+url.PathEscape(actorID)+"/runs", token, input)
	if err != nil {
		return types.RunHandle{}, err
	}

	var run struct {
		ID    string `json:"id"`
		ActID string `json:"actId"`
	}
	if err := json.Unmarshal(data, &run); err != nil {
		return types.RunHandle{}, fmt.Errorf("start run: %w: %v", ErrMalformedResponse, err)
	}
	if run.ID == "" {
		return types.RunHandle{}, fmt.Errorf("start run: %w: missing run id", ErrMalformedResponse)
	}

	actor := run.ActID
	if actor == "" {
		actor = actorID
	}
	return types.RunHandle{
		RunID:      run.ID,
		ActorID:    actor,
		MonitorURL: c.MonitorURL(run.ID),
	}, nil
}

// GetRun fetches the current status record of a run.
func (c *Client) GetRun(ctx context.Context, token, runID string) (types.RunRecord, error) {
	data, err := c.call(ctx, "get run", http.MethodGet, "/v2/actor-runs/"+url.PathEscape(runID), token, nil)
	if err != nil {
		return types.RunRecord{}, err
	}

	var fields map[string]interface{}
	if err := json.Unmarshal(data, &fields); err != nil {
		return types.RunRecord{}, fmt.Errorf("get run: %w: %v", ErrMalformedResponse, err)
	}
	status, _ := fields["status"].(string)
	if status == "" {
		return types.RunRecord{}, fmt.Errorf("get run: %w: missing status", ErrMalformedResponse)
	}
	msg, _ := fields["statusMessage"].(string)

	return types.RunRecord{
		RunID:         runID,
		Status:        types.RunStatus(status),
		StatusMessage: msg,
		Fields:        fields,
	}, nil
}

// call performs one logical platform call and returns the "data" member of
// the response envelope.
func (c *Client) call(ctx context.Context, op, method, path, token string, body interface{}) (json.RawMessage, error) {
	ctx, span := c.tracer.Start(ctx, "platform "+op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", method),
			attribute.String("url.path", path),
		))
	defer span.End()

	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("%s: marshaling body: %w", op, err)
		}
	}

	var respBody []byte
	onRetry := func(retry int, err error) {
		span.AddEvent("retry", trace.WithAttributes(attribute.Int("retry", retry)))
		c.logger.Warn("retrying platform call", "op", op, "retry", retry, "error", err)
	}
	// POST creates a run; resending it after an ambiguous failure could
	// launch a second one.
	retryable := c.retry.IsRetryable
	if method == http.MethodPost {
		retryable = c.retry.IsResendable
	}
	breaker := c.breakers.forKey(token)
	err := c.retry.doWith(ctx, c.clock, retryable, onRetry, func(ctx context.Context) error {
		out, err := breaker.Execute(func() (interface{}, error) {
			return c.once(ctx, op, method, path, token, payload)
		})
		if err != nil {
			if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
				return &TransportError{Op: op, Err: err}
			}
			return err
		}
		respBody = out.([]byte)
		return nil
	})
	if err != nil {
		metrics.PlatformCallErrors.Add(1)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(respBody, &envelope); err != nil {
		return nil, fmt.Errorf("%s: %w: %v", op, ErrMalformedResponse, err)
	}
	if len(envelope.Data) == 0 || string(envelope.Data) == "null" {
		return nil, fmt.Errorf("%s: %w: missing data", op, ErrMalformedResponse)
	}
	return envelope.Data, nil
}

func (c *Client) once(ctx context.Context, op, method, path, token string, payload []byte) ([]byte, error) {
	metrics.PlatformCalls.Add(1)

	if d, ok := RequestTimeoutFromContext(ctx); ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}

	var body io.Reader = http.NoBody
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("%s: creating request: %w", op, err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &TransportError{Op: op, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, &TransportError{Op: op, Err: fmt.Errorf("reading response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := string(respBody)
		if len(msg) > maxErrorBody {
			msg = msg[:maxErrorBody]
		}
		return nil, &TransportError{Op: op, StatusCode: resp.StatusCode, Body: msg}
	}
	return respBody, nil
}
