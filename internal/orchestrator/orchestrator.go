// Package orchestrator starts a remote actor run and polls it to a terminal
// state under a bounded budget.
//
// One call to RunAndAwait walks the state machine in internal/lifecycle:
//
//	STARTED -> POLLING -> DONE_SUCCESS | DONE_FAILURE | DONE_TIMEOUT
//	STARTED -> DONE_TRANSPORT_ERROR | DONE_MALFORMED | DONE_CANCELLED
//	POLLING -> DONE_TRANSPORT_ERROR | DONE_MALFORMED | DONE_CANCELLED
//
// and converts the final state into exactly one types.RunOutcome. Calls share
// no mutable state; an Orchestrator is safe for concurrent use.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/dwsmith1983/actorrelay/internal/clock"
	"github.com/dwsmith1983/actorrelay/internal/lifecycle"
	"github.com/dwsmith1983/actorrelay/internal/metrics"
	"github.com/dwsmith1983/actorrelay/internal/platform"
	"github.com/dwsmith1983/actorrelay/pkg/types"
)

const instrumentation = "github.com/dwsmith1983/actorrelay/internal/orchestrator"

// ErrInvalidRequest is returned when a RunRequest fails validation. No
// platform call is made.
var ErrInvalidRequest = errors.New("invalid run request")

// RunAPI is the subset of the platform client the orchestrator drives.
type RunAPI interface {
	StartRun(ctx context.Context, token, actorID string, input map[string]interface{}) (types.RunHandle, error)
	GetRun(ctx context.Context, token, runID string) (types.RunRecord, error)
}

// Orchestrator runs actors and awaits their outcome.
type Orchestrator struct {
	api      RunAPI
	clock    clock.Clock
	logger   *slog.Logger
	tracer   trace.Tracer
	attempts metric.Int64Histogram
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithClock substitutes the scheduling primitive (tests pass a clock.Fake).
func WithClock(c clock.Clock) Option {
	return func(o *Orchestrator) { o.clock = c }
}

// WithLogger overrides the default logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.logger = l
		}
	}
}

// New creates an Orchestrator over api.
func New(api RunAPI, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		api:    api,
		clock:  clock.Real{},
		logger: slog.Default(),
		tracer: otel.Tracer(instrumentation),
	}
	for _, opt := range opts {
		opt(o)
	}
	hist, err := otel.Meter(instrumentation).Int64Histogram("actorrelay.run.status_checks",
		metric.WithDescription("Status checks made per orchestration call"))
	if err != nil {
		o.logger.Warn("creating status check histogram", "error", err)
	}
	o.attempts = hist
	return o
}

// RunAndAwait starts the actor and polls until SUCCEEDED, FAILED, the budget
// is exhausted or ctx is cancelled. The error is non-nil only for an invalid
// request or config, in which case nothing was sent to the platform.
func (o *Orchestrator) RunAndAwait(ctx context.Context, req types.RunRequest, cfg Config) (types.RunOutcome, error) {
	if err := req.Validate(); err != nil {
		return types.RunOutcome{}, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	cfg, err := cfg.Normalize()
	if err != nil {
		return types.RunOutcome{}, err
	}

	ctx, span := o.tracer.Start(ctx, "orchestrator.RunAndAwait",
		trace.WithAttributes(attribute.String("actor.id", req.ActorID)))
	defer span.End()

	r := &run{
		Orchestrator: o,
		req:          req,
		cfg:          cfg,
		machine:      lifecycle.NewMachine(),
		logger:       o.logger.With("actorID", req.ActorID),
	}
	out := r.execute(ctx)

	span.SetAttributes(
		attribute.String("run.id", out.RunID),
		attribute.String("run.outcome", string(out.Kind)),
		attribute.Int("run.status_checks", out.AttemptsMade),
	)
	if o.attempts != nil {
		o.attempts.Record(ctx, int64(out.AttemptsMade),
			metric.WithAttributes(attribute.String("outcome", string(out.Kind))))
	}
	countOutcome(out.Kind)
	return out, nil
}

// run is the state of one orchestration call.
type run struct {
	*Orchestrator
	req     types.RunRequest
	cfg     Config
	machine *lifecycle.Machine
	logger  *slog.Logger
	handle  types.RunHandle
	checks  int
}

func (r *run) execute(ctx context.Context) types.RunOutcome {
	if err := ctx.Err(); err != nil {
		return r.finish(r.cancelled())
	}

	cctx := platform.WithRequestTimeout(ctx, r.cfg.RequestTimeout)
	h, err := r.api.StartRun(cctx, r.req.AccountKey, r.req.ActorID, r.req.Input)
	if err == nil && h.RunID == "" {
		err = fmt.Errorf("start run: %w: missing run id", platform.ErrMalformedResponse)
	}
	if err != nil {
		return r.finish(r.callFailed(ctx, "start run", err))
	}
	r.handle = h
	metrics.RunsStarted.Add(1)
	r.logger = r.logger.With("runID", r.handle.RunID)
	r.logger.Info("run started", "monitorURL", r.handle.MonitorURL)
	r.advance(types.StatePolling)

	started := r.clock.Now()
	for {
		if ctx.Err() != nil {
			return r.finish(r.cancelled())
		}

		r.checks++
		metrics.StatusPolls.Add(1)
		rec, err := r.api.GetRun(cctx, r.req.AccountKey, r.handle.RunID)
		if err != nil {
			return r.finish(r.callFailed(ctx, "get run", err))
		}
		r.logger.Debug("run status", "status", rec.Status, "check", r.checks)

		switch rec.Status {
		case types.RunSucceeded:
			return r.finish(types.RunOutcome{
				Kind:   types.OutcomeSucceeded,
				Record: rec.Fields,
			})
		case types.RunFailed:
			return r.finish(types.RunOutcome{
				Kind:       types.OutcomeFailed,
				ReasonCode: string(rec.Status),
				Message:    rec.StatusMessage,
			})
		}

		// No wait after the final attempt.
		if r.cfg.MaxAttempts > 0 && r.checks >= r.cfg.MaxAttempts {
			return r.finish(r.timeout())
		}
		if r.cfg.Deadline > 0 && r.clock.Now().Add(r.cfg.PollInterval).Sub(started) > r.cfg.Deadline {
			return r.finish(r.timeout())
		}
		if err := r.clock.Sleep(ctx, r.cfg.PollInterval); err != nil {
			return r.finish(r.cancelled())
		}
	}
}

// callFailed maps an outbound call error to an outcome. Cancellation of the
// caller's ctx wins over whatever the transport reported.
func (r *run) callFailed(ctx context.Context, op string, err error) types.RunOutcome {
	if ctx.Err() != nil {
		return r.cancelled()
	}
	kind := types.OutcomeTransportError
	if errors.Is(err, platform.ErrMalformedResponse) {
		kind = types.OutcomeMalformed
	}
	r.logger.Error("platform call failed", "op", op, "outcome", kind, "error", err)
	return types.RunOutcome{
		Kind:    kind,
		Message: err.Error(),
		Err:     err,
	}
}

func (r *run) timeout() types.RunOutcome {
	return types.RunOutcome{
		Kind:    types.OutcomeTimeout,
		Message: "run still in progress; outcome unknown",
	}
}

func (r *run) cancelled() types.RunOutcome {
	return types.RunOutcome{
		Kind:    types.OutcomeCancelled,
		Message: "orchestration cancelled",
	}
}

// finish stamps the run identity onto the outcome and moves the machine to
// its terminal state.
func (r *run) finish(out types.RunOutcome) types.RunOutcome {
	out.RunID = r.handle.RunID
	out.MonitorURL = r.handle.MonitorURL
	out.AttemptsMade = r.checks
	r.advance(lifecycle.TerminalFor(out.Kind))
	r.logger.Info("run finished",
		"outcome", out.Kind,
		"statusChecks", out.AttemptsMade,
		"monitorURL", out.MonitorURL,
	)
	return out
}

func (r *run) advance(to types.OrchestrationState) {
	if err := r.machine.Advance(to); err != nil {
		r.logger.Error("orchestration state machine", "error", err)
	}
}

func countOutcome(kind types.OutcomeKind) {
	switch kind {
	case types.OutcomeSucceeded:
		metrics.RunsSucceeded.Add(1)
	case types.OutcomeFailed:
		metrics.RunsFailed.Add(1)
	case types.OutcomeTimeout:
		metrics.RunsTimedOut.Add(1)
	case types.OutcomeCancelled:
		metrics.RunsCancelled.Add(1)
	case types.OutcomeMalformed:
		metrics.MalformedResponses.Add(1)
	case types.OutcomeTransportError:
		metrics.TransportErrors.Add(1)
	}
}
