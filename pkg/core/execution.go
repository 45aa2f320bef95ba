package core

import (
	"context"
	"time"

	"gopkg.in/guregu/null.v4/zero"
)

// ExecutionStatus specifies the status of a test execution.
// The machine is a strict forward one:
// pending -> running -> {completed | failed | cancelled}.
type ExecutionStatus string

// Execution status values.
const (
	ExecutionPending   ExecutionStatus = "pending"
	ExecutionRunning   ExecutionStatus = "running"
	ExecutionCompleted ExecutionStatus = "completed"
	ExecutionFailed    ExecutionStatus = "failed"
	ExecutionCancelled ExecutionStatus = "cancelled"
)

// Terminal reports whether the status is final.
func (s ExecutionStatus) Terminal() bool {
	return s == ExecutionCompleted || s == ExecutionFailed || s == ExecutionCancelled
}

// CanTransition reports whether the forward machine allows moving to next.
func (s ExecutionStatus) CanTransition(next ExecutionStatus) bool {
	switch s {
	case ExecutionPending:
		return next == ExecutionRunning || next.Terminal()
	case ExecutionRunning:
		return next.Terminal()
	default:
		return false
	}
}

// Artifact is one file produced by a pipeline and recorded on the execution.
type Artifact struct {
	Type string `json:"type"`
	Path string `json:"path"`
}

// TestExecution is a durable record of one run of one pipeline.
type TestExecution struct {
	ID              string                 `db:"id" json:"id"`
	ProjectID       string                 `db:"project_id" json:"project_id"`
	TestCaseID      zero.String            `db:"test_case_id" json:"test_case_id,omitempty"`
	ExecutorType    TestKind               `db:"executor_type" json:"executor_type"`
	Status          ExecutionStatus        `db:"status" json:"status"`
	Total           int                    `db:"total" json:"total"`
	Passed          int                    `db:"passed" json:"passed"`
	Failed          int                    `db:"failed" json:"failed"`
	Skipped         int                    `db:"skipped" json:"skipped"`
	DurationSeconds float64                `db:"duration_seconds" json:"duration_seconds"`
	Logs            string                 `db:"logs" json:"logs,omitempty"`
	ErrorMessage    zero.String            `db:"error_message" json:"error_message,omitempty"`
	Coverage        *CoverageSummary       `db:"-" json:"coverage,omitempty"`
	Artifacts       []Artifact             `db:"-" json:"artifacts,omitempty"`
	Extras          map[string]interface{} `db:"-" json:"extras,omitempty"`
	Created         time.Time              `db:"created_at" json:"created_at"`
	Started         zero.Time              `db:"started_at" json:"started_at,omitempty"`
	Completed       zero.Time              `db:"completed_at" json:"completed_at,omitempty"`
}

// ExecutionStore defines datastore operations for working with executions.
type ExecutionStore interface {
	// Create persists a new execution in pending state.
	Create(ctx context.Context, execution *TestExecution) error
	// Find the execution in datastore by id.
	Find(ctx context.Context, executionID string) (*TestExecution, error)
	// FindByProject returns executions of a project, newest first.
	FindByProject(ctx context.Context, projectID string, offset, limit int) ([]*TestExecution, error)
	// MarkRunning moves a pending execution to running and stamps started_at.
	MarkRunning(ctx context.Context, executionID string, startedAt time.Time) error
	// Finish moves an execution to a terminal state with its final counts,
	// duration, logs, coverage and artifacts.
	Finish(ctx context.Context, execution *TestExecution) error
}
