// Package lifecycle implements the per-run orchestration state machine.
package lifecycle

import (
	"fmt"

	"github.com/dwsmith1983/actorrelay/pkg/types"
)

// Transition table: from -> allowed tos
var validTransitions = map[types.OrchestrationState][]types.OrchestrationState{
	types.StateStarted: {
		types.StatePolling,
		types.StateDoneTransportError,
		types.StateDoneMalformed,
		types.StateDoneCancelled,
	},
	types.StatePolling: {
		types.StateDoneSuccess,
		types.StateDoneFailure,
		types.StateDoneTimeout,
		types.StateDoneTransportError,
		types.StateDoneMalformed,
		types.StateDoneCancelled,
	},
	types.StateDoneSuccess:        {},
	types.StateDoneFailure:        {},
	types.StateDoneTimeout:        {},
	types.StateDoneTransportError: {},
	types.StateDoneMalformed:      {},
	types.StateDoneCancelled:      {},
}

// CanTransition checks if moving from one state to another is valid.
func CanTransition(from, to types.OrchestrationState) bool {
	allowed, ok := validTransitions[from]
	if !ok {
		return false
	}
	for _, s := range allowed {
		if s == to {
			return true
		}
	}
	return false
}

// Transition validates a move, returning an error if it is invalid.
func Transition(from, to types.OrchestrationState) error {
	if !CanTransition(from, to) {
		return fmt.Errorf("invalid transition from %s to %s", from, to)
	}
	return nil
}

// IsTerminal returns true if the state is a DONE_* state.
func IsTerminal(s types.OrchestrationState) bool {
	allowed, ok := validTransitions[s]
	return ok && len(allowed) == 0
}

// TerminalFor maps an outcome kind to the DONE_* state it ends in.
func TerminalFor(kind types.OutcomeKind) types.OrchestrationState {
	switch kind {
	case types.OutcomeSucceeded:
		return types.StateDoneSuccess
	case types.OutcomeFailed:
		return types.StateDoneFailure
	case types.OutcomeTimeout:
		return types.StateDoneTimeout
	case types.OutcomeMalformed:
		return types.StateDoneMalformed
	case types.OutcomeCancelled:
		return types.StateDoneCancelled
	default:
		return types.StateDoneTransportError
	}
}

// Machine tracks one run's state. It is not safe for concurrent use; each
// orchestration call owns its own Machine.
type Machine struct {
	state   types.OrchestrationState
	history []types.OrchestrationState
}

// NewMachine returns a machine in STARTED.
func NewMachine() *Machine {
	return &Machine{
		state:   types.StateStarted,
		history: []types.OrchestrationState{types.StateStarted},
	}
}

// State returns the current state.
func (m *Machine) State() types.OrchestrationState { return m.state }

// History returns every state visited, in order.
func (m *Machine) History() []types.OrchestrationState {
	out := make([]types.OrchestrationState, len(m.history))
	copy(out, m.history)
	return out
}

// Advance moves to the next state if the transition is valid.
func (m *Machine) Advance(to types.OrchestrationState) error {
	if err := Transition(m.state, to); err != nil {
		return err
	}
	m.state = to
	m.history = append(m.history, to)
	return nil
}
