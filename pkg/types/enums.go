// Package types defines the public domain types for the actor relay.
package types

// RunStatus is the status string reported by the remote platform for a run.
type RunStatus string

// RunStatus values reported by the platform. Only RunSucceeded and RunFailed
// are terminal; everything else keeps the poll loop going.
const (
	RunReady     RunStatus = "READY"
	RunRunning   RunStatus = "RUNNING"
	RunSucceeded RunStatus = "SUCCEEDED"
	RunFailed    RunStatus = "FAILED"
	RunTimingOut RunStatus = "TIMING-OUT"
	RunTimedOut  RunStatus = "TIMED-OUT"
	RunAborting  RunStatus = "ABORTING"
	RunAborted   RunStatus = "ABORTED"
)

// IsTerminal reports whether no further status change will occur.
func (s RunStatus) IsTerminal() bool {
	return s == RunSucceeded || s == RunFailed
}

// OutcomeKind discriminates the variants of a RunOutcome.
type OutcomeKind string

// OutcomeKind values. Exactly one is produced per orchestration call.
const (
	OutcomeSucceeded      OutcomeKind = "SUCCEEDED"
	OutcomeFailed         OutcomeKind = "FAILED"
	OutcomeTimeout        OutcomeKind = "TIMEOUT"
	OutcomeTransportError OutcomeKind = "TRANSPORT_ERROR"
	OutcomeMalformed      OutcomeKind = "MALFORMED_RESPONSE"
	OutcomeCancelled      OutcomeKind = "CANCELLED"
)

// OrchestrationState is a node of the per-run orchestration state machine.
type OrchestrationState string

// OrchestrationState values. Every DONE_* state is terminal.
const (
	StateStarted            OrchestrationState = "STARTED"
	StatePolling            OrchestrationState = "POLLING"
	StateDoneSuccess        OrchestrationState = "DONE_SUCCESS"
	StateDoneFailure        OrchestrationState = "DONE_FAILURE"
	StateDoneTimeout        OrchestrationState = "DONE_TIMEOUT"
	StateDoneTransportError OrchestrationState = "DONE_TRANSPORT_ERROR"
	StateDoneMalformed      OrchestrationState = "DONE_MALFORMED"
	StateDoneCancelled      OrchestrationState = "DONE_CANCELLED"
)

// FailureCategory classifies why an outbound platform call failed.
type FailureCategory string

const (
	FailureTransient FailureCategory = "TRANSIENT"
	FailurePermanent FailureCategory = "PERMANENT"
	FailureTimeout   FailureCategory = "TIMEOUT"
)

// FieldKind is the HTML input kind rendered for a schema property.
type FieldKind string

const (
	FieldText   FieldKind = "text"
	FieldNumber FieldKind = "number"
)
