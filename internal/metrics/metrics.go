// Package metrics exposes runtime counters via expvar.
package metrics

import "expvar"

var (
	RunsStarted        = expvar.NewInt("runs_started")
	RunsSucceeded      = expvar.NewInt("runs_succeeded")
	RunsFailed         = expvar.NewInt("runs_failed")
	RunsTimedOut       = expvar.NewInt("runs_timed_out")
	RunsCancelled      = expvar.NewInt("runs_cancelled")
	TransportErrors    = expvar.NewInt("transport_errors")
	MalformedResponses = expvar.NewInt("malformed_responses")
	StatusPolls        = expvar.NewInt("status_polls")
	PlatformCalls      = expvar.NewInt("platform_calls")
	PlatformCallErrors = expvar.NewInt("platform_call_errors")
	CallRetries        = expvar.NewInt("call_retries")
	BreakerOpened      = expvar.NewInt("breaker_opened")
	OutcomeEvents      = expvar.NewInt("outcome_events_published")
	OutcomeEventErrors = expvar.NewInt("outcome_events_failed")
)
