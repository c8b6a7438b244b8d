package order

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatus_TransitionTable(t *testing.T) {
	cases := []struct {
		from    Status
		to      Status
		allowed bool
	}{
		{StatusPending, StatusPreparing, true},
		{StatusPending, StatusCancelled, true},
		{StatusPending, StatusReady, false},
		{StatusPending, StatusCompleted, false},

		{StatusPreparing, StatusReady, true},
		{StatusPreparing, StatusCancelled, true},
		{StatusPreparing, StatusCompleted, false},
		{StatusPreparing, StatusPending, false},

		{StatusReady, StatusCompleted, true},
		// The cancellation window closes once the order is ready.
		{StatusReady, StatusCancelled, false},
		{StatusReady, StatusPreparing, false},

		{StatusCompleted, StatusPending, false},
		{StatusCompleted, StatusCancelled, false},
		{StatusCancelled, StatusPending, false},
		{StatusCancelled, StatusCompleted, false},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.allowed, tc.from.CanTransition(tc.to),
			"%s -> %s", tc.from, tc.to)
	}
}

func TestStatus_Terminal(t *testing.T) {
	assert.True(t, StatusCompleted.Terminal())
	assert.True(t, StatusCancelled.Terminal())
	assert.False(t, StatusPending.Terminal())
	assert.False(t, StatusPreparing.Terminal())
	assert.False(t, StatusReady.Terminal())
}

func TestStatus_Valid(t *testing.T) {
	assert.True(t, StatusPending.Valid())
	assert.False(t, Status("delivered").Valid())
	assert.False(t, Status("").Valid())
}
