package lifecycle

import (
	"testing"

	"github.com/dwsmith1983/actorrelay/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidTransitions(t *testing.T) {
	tests := []struct {
		from  types.OrchestrationState
		to    types.OrchestrationState
		valid bool
	}{
		{types.StateStarted, types.StatePolling, true},
		{types.StateStarted, types.StateDoneTransportError, true},
		{types.StateStarted, types.StateDoneMalformed, true},
		{types.StateStarted, types.StateDoneCancelled, true},
		{types.StateStarted, types.StateDoneSuccess, false},
		{types.StateStarted, types.StateDoneTimeout, false},
		{types.StatePolling, types.StateDoneSuccess, true},
		{types.StatePolling, types.StateDoneFailure, true},
		{types.StatePolling, types.StateDoneTimeout, true},
		{types.StatePolling, types.StateDoneTransportError, true},
		{types.StatePolling, types.StateStarted, false},
		{types.StatePolling, types.StatePolling, false},
		{types.StateDoneSuccess, types.StatePolling, false},
		{types.StateDoneTimeout, types.StateDoneSuccess, false},
		{types.StateDoneFailure, types.StateStarted, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.valid, CanTransition(tt.from, tt.to))
			err := Transition(tt.from, tt.to)
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestIsTerminal(t *testing.T) {
	assert.True(t, IsTerminal(types.StateDoneSuccess))
	assert.True(t, IsTerminal(types.StateDoneFailure))
	assert.True(t, IsTerminal(types.StateDoneTimeout))
	assert.True(t, IsTerminal(types.StateDoneTransportError))
	assert.True(t, IsTerminal(types.StateDoneMalformed))
	assert.True(t, IsTerminal(types.StateDoneCancelled))
	assert.False(t, IsTerminal(types.StateStarted))
	assert.False(t, IsTerminal(types.StatePolling))
	assert.False(t, IsTerminal("BOGUS"))
}

func TestTerminalFor(t *testing.T) {
	assert.Equal(t, types.StateDoneSuccess, TerminalFor(types.OutcomeSucceeded))
	assert.Equal(t, types.StateDoneFailure, TerminalFor(types.OutcomeFailed))
	assert.Equal(t, types.StateDoneTimeout, TerminalFor(types.OutcomeTimeout))
	assert.Equal(t, types.StateDoneMalformed, TerminalFor(types.OutcomeMalformed))
	assert.Equal(t, types.StateDoneCancelled, TerminalFor(types.OutcomeCancelled))
	assert.Equal(t, types.StateDoneTransportError, TerminalFor(types.OutcomeTransportError))
}

func TestMachine(t *testing.T) {
	m := NewMachine()
	assert.Equal(t, types.StateStarted, m.State())

	require.NoError(t, m.Advance(types.StatePolling))
	require.NoError(t, m.Advance(types.StateDoneSuccess))
	assert.Error(t, m.Advance(types.StatePolling), "terminal states are never left")

	assert.Equal(t, []types.OrchestrationState{
		types.StateStarted, types.StatePolling, types.StateDoneSuccess,
	}, m.History())
}
