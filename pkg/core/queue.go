package core

import "context"

// ExecutionTask is the payload enqueued for the worker pool per execution.
type ExecutionTask struct {
	ExecutionID string   `json:"execution_id"`
	ProjectID   string   `json:"project_id"`
	Kind        TestKind `json:"kind"`
	// TestCaseIDs is the ordered selection to run. Empty means the whole
	// project suite for the kind.
	TestCaseIDs []string `json:"test_case_ids,omitempty"`
	// IR carries an inline record for ad-hoc runs with no stored case, e.g.
	// a static analysis or system-test triggered directly on a project.
	IR *TestIR `json:"test_ir,omitempty"`
}

// ExecutionProducer enqueues execution tasks onto the redis stream.
type ExecutionProducer interface {
	// Enqueue places the task on the stream for the kind's queue.
	Enqueue(ctx context.Context, task *ExecutionTask) error
}

// ExecutionConsumer drains execution tasks and hands them to the runner.
type ExecutionConsumer interface {
	// Run blocks consuming tasks until the context is cancelled.
	Run(ctx context.Context) error
}

// ExecutionEvent is the lifecycle notification published per state change.
type ExecutionEvent struct {
	ExecutionID string          `json:"execution_id"`
	ProjectID   string          `json:"project_id"`
	Status      ExecutionStatus `json:"status"`
	Timestamp   int64           `json:"timestamp"`
}

// EventProducer publishes execution lifecycle events to the event stream.
// Implementations must be best-effort; event loss never fails an execution.
type EventProducer interface {
	Notify(ctx context.Context, event *ExecutionEvent) error
	Close() error
}

// ExecutionRunner drives one queued execution end to end: state transitions,
// per-case adapter dispatch, partial result persistence and artifacts.
type ExecutionRunner interface {
	Run(ctx context.Context, task *ExecutionTask) error
}
