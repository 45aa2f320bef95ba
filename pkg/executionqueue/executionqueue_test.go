package executionqueue

import (
	"context"
	"testing"

	"github.com/qtforge/cortex/pkg/constants"
	"github.com/qtforge/cortex/pkg/core"
	"github.com/qtforge/cortex/pkg/lumber"

	"github.com/alphayan/redisqueue/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingRunner struct {
	tasks []*core.ExecutionTask
}

func (r *recordingRunner) Run(ctx context.Context, task *core.ExecutionTask) error {
	r.tasks = append(r.tasks, task)
	return nil
}

func newTestLogger(t *testing.T) lumber.Logger {
	t.Helper()
	logger, err := lumber.NewLogger(&lumber.LoggingConfig{EnableConsole: true, ConsoleLevel: lumber.Error}, false, lumber.InstanceZapLogger)
	require.NoError(t, err)
	return logger
}

func TestQueues(t *testing.T) {
	queues := Queues()
	assert.Len(t, queues, 6)
	assert.Contains(t, queues, "unit")
	assert.Contains(t, queues, "static")
	assert.Contains(t, queues, "memory")
}

func TestStreamFor(t *testing.T) {
	assert.Equal(t, constants.ExecutionStream+":unit", streamFor("unit"))
	assert.Equal(t, constants.ExecutionStream+":system", streamFor("system"))
}

func TestProcess(t *testing.T) {
	runner := &recordingRunner{}
	c := &consumer{runner: runner, logger: newTestLogger(t)}

	msg := &redisqueue.Message{
		ID: "1-0",
		Values: map[string]interface{}{
			"task": `{"execution_id":"exec-1","project_id":"proj-1","kind":"unit","test_case_ids":["case-1"]}`,
		},
	}
	require.NoError(t, c.process(msg))
	require.Len(t, runner.tasks, 1)
	assert.Equal(t, "exec-1", runner.tasks[0].ExecutionID)
	assert.Equal(t, core.UnitTest, runner.tasks[0].Kind)
	assert.Equal(t, []string{"case-1"}, runner.tasks[0].TestCaseIDs)
}

func TestProcessDiscardsMalformedMessages(t *testing.T) {
	runner := &recordingRunner{}
	c := &consumer{runner: runner, logger: newTestLogger(t)}

	// missing task field
	require.NoError(t, c.process(&redisqueue.Message{ID: "1-0", Values: map[string]interface{}{}}))
	// undecodable payload
	require.NoError(t, c.process(&redisqueue.Message{ID: "1-1", Values: map[string]interface{}{"task": "{broken"}}))
	assert.Empty(t, runner.tasks)
}
