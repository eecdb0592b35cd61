package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusHappyPath(t *testing.T) {
	s := StatusPending
	for _, next := range []ProcessingStatus{StatusScoring, StatusAIEvaluation, StatusComplete} {
		var err error
		s, err = s.Transition(next)
		require.NoError(t, err)
	}
	assert.Equal(t, StatusComplete, s)
	assert.True(t, s.Terminal())
}

func TestStatusErrorReachableFromAnywhere(t *testing.T) {
	for _, s := range []ProcessingStatus{StatusPending, StatusScoring, StatusAIEvaluation, StatusComplete, StatusError} {
		assert.True(t, s.CanTransition(StatusError), "from %s", s)
	}
}

func TestStatusIllegalJumps(t *testing.T) {
	cases := []struct{ from, to ProcessingStatus }{
		{StatusPending, StatusAIEvaluation},
		{StatusPending, StatusComplete},
		{StatusScoring, StatusComplete},
		{StatusAIEvaluation, StatusScoring},
	}
	for _, c := range cases {
		_, err := c.from.Transition(c.to)
		assert.ErrorIs(t, err, ErrConflict, "%s -> %s", c.from, c.to)
	}
}

func TestStatusRescoreRestarts(t *testing.T) {
	for _, from := range []ProcessingStatus{StatusError, StatusComplete} {
		next, err := from.Transition(StatusScoring)
		require.NoError(t, err, string(from))
		assert.Equal(t, StatusScoring, next)
	}
}

func TestStatusValid(t *testing.T) {
	assert.True(t, StatusPending.Valid())
	assert.False(t, ProcessingStatus("queued").Valid())
}
