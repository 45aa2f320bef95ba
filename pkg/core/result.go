package core

import (
	"context"
	"time"

	"gopkg.in/guregu/null.v4/zero"
)

// ResultOutcome specifies the outcome of a single case inside an execution.
type ResultOutcome string

// Result outcome values.
const (
	ResultPassed  ResultOutcome = "passed"
	ResultFailed  ResultOutcome = "failed"
	ResultError   ResultOutcome = "error"
	ResultSkipped ResultOutcome = "skipped"
)

// Assertion is one framework assertion recorded on a result.
type Assertion struct {
	Expression string `json:"expression"`
	Expanded   string `json:"expanded,omitempty"`
	File       string `json:"file,omitempty"`
	Line       int    `json:"line,omitempty"`
	Passed     bool   `json:"passed"`
}

// TestResult is the per-case detail inside an execution.
type TestResult struct {
	ID              string           `db:"id" json:"id"`
	ExecutionID     string           `db:"execution_id" json:"execution_id"`
	TestCaseID      zero.String      `db:"test_case_id" json:"test_case_id,omitempty"`
	Name            string           `db:"name" json:"name"`
	Outcome         ResultOutcome    `db:"outcome" json:"outcome"`
	DurationSeconds float64          `db:"duration_seconds" json:"duration_seconds"`
	ErrorMessage    zero.String      `db:"error_message" json:"error_message,omitempty"`
	LogPath         zero.String      `db:"log_path" json:"log_path,omitempty"`
	ScreenshotPath  zero.String      `db:"screenshot_path" json:"screenshot_path,omitempty"`
	Coverage        *CoverageSummary `db:"-" json:"coverage,omitempty"`
	Assertions      []Assertion      `db:"-" json:"assertions,omitempty"`
	NeedsReview     bool             `db:"needs_review" json:"needs_review"`
	Created         time.Time        `db:"created_at" json:"created_at"`
}

// ResultStore defines datastore operations for working with per-case results.
type ResultStore interface {
	// Create persists results in the datastore.
	Create(ctx context.Context, results ...*TestResult) error
	// FindByExecution returns the results of an execution in insertion order.
	FindByExecution(ctx context.Context, executionID string) ([]*TestResult, error)
}
