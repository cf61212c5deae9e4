// Package relay implements the three relay operations (list actors, read an
// actor's input schema, run an actor and await the outcome) on top of the
// platform client and the orchestrator. It is shared by the HTTP server, the
// Lambda handler and the CLI.
package relay

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dwsmith1983/actorrelay/internal/formschema"
	"github.com/dwsmith1983/actorrelay/internal/metrics"
	"github.com/dwsmith1983/actorrelay/internal/orchestrator"
	"github.com/dwsmith1983/actorrelay/pkg/types"
)

// ErrInvalidRequest marks a request rejected before any platform call.
var ErrInvalidRequest = errors.New("invalid request")

// Catalog reads actor definitions from the platform.
type Catalog interface {
	ListActors(ctx context.Context, token string) ([]types.Actor, error)
	GetInputSchema(ctx context.Context, token, actorID string) (types.InputSchema, error)
}

// Runner starts a run and waits for its outcome.
type Runner interface {
	RunAndAwait(ctx context.Context, req types.RunRequest, cfg orchestrator.Config) (types.RunOutcome, error)
}

// Publisher receives an event for every finished run.
type Publisher interface {
	PublishOutcome(ctx context.Context, evt types.OutcomeEvent) error
}

// Service dispatches relay operations.
type Service struct {
	catalog    Catalog
	runner     Runner
	runCfg     orchestrator.Config
	defaultKey string
	publisher  Publisher
	logger     *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithRunConfig sets the orchestration bounds used by Run.
func WithRunConfig(cfg orchestrator.Config) Option {
	return func(s *Service) { s.runCfg = cfg }
}

// WithDefaultAccountKey sets the key used when a request carries none.
func WithDefaultAccountKey(key string) Option {
	return func(s *Service) { s.defaultKey = key }
}

// WithPublisher enables outcome events.
func WithPublisher(p Publisher) Option {
	return func(s *Service) { s.publisher = p }
}

// WithLogger overrides the default logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New creates a Service.
func New(catalog Catalog, runner Runner, opts ...Option) *Service {
	s := &Service{
		catalog: catalog,
		runner:  runner,
		runCfg:  orchestrator.DefaultConfig(),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RunConfig returns the bounds applied to every run.
func (s *Service) RunConfig() orchestrator.Config { return s.runCfg }

// Request is the body accepted by every relay operation. Fields not needed
// by an operation are ignored.
type Request struct {
	AccountKey string                 `json:"apiKey"`
	ActorID    string                 `json:"actorId"`
	Input      map[string]interface{} `json:"input"`
	// RequestID correlates logs and outcome events; set by the transport.
	RequestID string `json:"-"`
}

// SchemaResult is an actor's input schema plus its rendered form fields.
type SchemaResult struct {
	InputSchema types.InputSchema               `json:"inputSchema"`
	Properties  map[string]types.SchemaProperty `json:"properties"`
	Fields      []types.FormField               `json:"fields"`
}

func (s *Service) accountKey(req Request) (string, error) {
	if req.AccountKey != "" {
		return req.AccountKey, nil
	}
	if s.defaultKey != "" {
		return s.defaultKey, nil
	}
	return "", fmt.Errorf("%w: apiKey is required", ErrInvalidRequest)
}

// ListActors lists the account's actors.
func (s *Service) ListActors(ctx context.Context, req Request) ([]types.Actor, error) {
	key, err := s.accountKey(req)
	if err != nil {
		return nil, err
	}
	actors, err := s.catalog.ListActors(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("listing actors: %w", err)
	}
	return actors, nil
}

// Schema reads an actor's input schema and derives its form fields.
func (s *Service) Schema(ctx context.Context, req Request) (SchemaResult, error) {
	key, err := s.accountKey(req)
	if err != nil {
		return SchemaResult{}, err
	}
	if req.ActorID == "" {
		return SchemaResult{}, fmt.Errorf("%w: actorId is required", ErrInvalidRequest)
	}
	schema, err := s.catalog.GetInputSchema(ctx, key, req.ActorID)
	if err != nil {
		return SchemaResult{}, fmt.Errorf("reading schema of %s: %w", req.ActorID, err)
	}
	props := schema.Properties
	if props == nil {
		props = map[string]types.SchemaProperty{}
	}
	return SchemaResult{
		InputSchema: schema,
		Properties:  props,
		Fields:      formschema.Fields(schema),
	}, nil
}

// Run starts the actor and waits for the outcome. The error is non-nil only
// when the request is invalid; every platform-side result is an outcome.
func (s *Service) Run(ctx context.Context, req Request) (types.RunOutcome, error) {
	key, err := s.accountKey(req)
	if err != nil {
		return types.RunOutcome{}, err
	}
	out, err := s.runner.RunAndAwait(ctx, types.RunRequest{
		AccountKey: key,
		ActorID:    req.ActorID,
		Input:      req.Input,
	}, s.runCfg)
	if err != nil {
		// A bad run config is the server's fault and surfaces as a 500.
		if errors.Is(err, orchestrator.ErrInvalidRequest) {
			return types.RunOutcome{}, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
		}
		return types.RunOutcome{}, err
	}
	s.publish(ctx, req, out)
	return out, nil
}

// RunForm coerces raw form values against the actor's schema, then runs it.
func (s *Service) RunForm(ctx context.Context, req Request, form map[string][]string) (types.RunOutcome, error) {
	res, err := s.Schema(ctx, req)
	if err != nil {
		return types.RunOutcome{}, err
	}
	req.Input = formschema.Coerce(res.Fields, form)
	return s.Run(ctx, req)
}

// publish is best effort: failures are logged and counted, never returned.
func (s *Service) publish(ctx context.Context, req Request, out types.RunOutcome) {
	if s.publisher == nil {
		return
	}
	evt := types.OutcomeEvent{
		RequestID:    req.RequestID,
		ActorID:      req.ActorID,
		RunID:        out.RunID,
		Kind:         out.Kind,
		MonitorURL:   out.MonitorURL,
		Message:      out.Message,
		AttemptsMade: out.AttemptsMade,
	}
	// The caller may have gone away; the event still describes a real run.
	if err := s.publisher.PublishOutcome(context.WithoutCancel(ctx), evt); err != nil {
		metrics.OutcomeEventErrors.Add(1)
		s.logger.Warn("failed to publish outcome event",
			"requestID", req.RequestID, "runID", out.RunID, "error", err)
		return
	}
	metrics.OutcomeEvents.Add(1)
}
