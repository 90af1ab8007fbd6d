package state

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robot-control/roc/internal/fault"
)

func TestValidTransitions(t *testing.T) {
	tests := []struct {
		name    string
		current State
		event   Event
		want    State
	}{
		{"start from init", StateInit, EventStart, StateReady},
		{"trip from ready", StateReady, EventTrip, StateEStopped},
		{"reset from estopped", StateEStopped, EventReset, StateReady},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next, err := ValidateTransition(tt.current, tt.event)
			require.NoError(t, err)
			assert.Equal(t, tt.want, next)
		})
	}
}

func TestInvalidTransitionsFailWithStateError(t *testing.T) {
	states := []State{StateInit, StateReady, StateEStopped}
	events := []Event{EventStart, EventTrip, EventReset}

	for _, s := range states {
		for _, e := range events {
			if _, ok := Transitions[s][e]; ok {
				continue
			}
			next, err := ValidateTransition(s, e)
			require.Error(t, err, "state %s event %s", s, e)
			assert.True(t, errors.Is(err, fault.ErrState))
			assert.Equal(t, s, next, "failed validation must not change state")

			var stateErr *fault.StateError
			require.True(t, errors.As(err, &stateErr))
			assert.Equal(t, string(s), stateErr.State)
			assert.Equal(t, string(e), stateErr.Event)
		}
	}
}

func TestUnknownStateFails(t *testing.T) {
	_, err := ValidateTransition(State("bogus"), EventStart)
	assert.True(t, errors.Is(err, fault.ErrState))
}

func TestValidateReset(t *testing.T) {
	t.Run("safe resume succeeds", func(t *testing.T) {
		next, err := ValidateReset(StateEStopped, true)
		require.NoError(t, err)
		assert.Equal(t, StateReady, next)
	})

	t.Run("unsafe resume is a safety violation not a state error", func(t *testing.T) {
		next, err := ValidateReset(StateEStopped, false)
		require.Error(t, err)
		assert.True(t, errors.Is(err, fault.ErrSafety))
		assert.False(t, errors.Is(err, fault.ErrState))
		assert.Equal(t, StateEStopped, next)
	})

	t.Run("reset outside estopped is a state error even when safe", func(t *testing.T) {
		_, err := ValidateReset(StateReady, true)
		assert.True(t, errors.Is(err, fault.ErrState))
	})
}
