package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExecutionStatusTerminal(t *testing.T) {
	assert.False(t, ExecutionPending.Terminal())
	assert.False(t, ExecutionRunning.Terminal())
	assert.True(t, ExecutionCompleted.Terminal())
	assert.True(t, ExecutionFailed.Terminal())
	assert.True(t, ExecutionCancelled.Terminal())
}

func TestExecutionStatusCanTransition(t *testing.T) {
	tests := []struct {
		from ExecutionStatus
		to   ExecutionStatus
		want bool
	}{
		{ExecutionPending, ExecutionRunning, true},
		{ExecutionPending, ExecutionFailed, true},
		{ExecutionPending, ExecutionCancelled, true},
		{ExecutionPending, ExecutionPending, false},
		{ExecutionRunning, ExecutionCompleted, true},
		{ExecutionRunning, ExecutionFailed, true},
		{ExecutionRunning, ExecutionPending, false},
		{ExecutionRunning, ExecutionRunning, false},
		{ExecutionCompleted, ExecutionRunning, false},
		{ExecutionFailed, ExecutionPending, false},
		{ExecutionCancelled, ExecutionRunning, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.from.CanTransition(tt.to), "%s -> %s", tt.from, tt.to)
	}
}
