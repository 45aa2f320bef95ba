package core

import (
	"context"
	"time"
)

// ExecutionConfig carries the per-execution filesystem and timing context an
// adapter needs. The runner constructs it from the project record.
type ExecutionConfig struct {
	ExecutionID string
	Project     *Project
	SourcePath  string
	BuildPath   string
	BinaryPath  string
	ArtifactDir string
	Timeout     time.Duration
}

// Outcome is the uniform result shape every pipeline adapter maps its tool
// output to. Adapters never raise to the runner on expected failure modes;
// they return an Outcome with ErrorMessage set instead.
type Outcome struct {
	Passed          bool                   `json:"passed"`
	Total           int                    `json:"total"`
	PassedTests     int                    `json:"passed_tests"`
	FailedTests     int                    `json:"failed_tests"`
	SkippedTests    int                    `json:"skipped_tests"`
	DurationSeconds float64                `json:"duration_seconds"`
	Logs            string                 `json:"logs,omitempty"`
	ErrorMessage    string                 `json:"error_message,omitempty"`
	Coverage        *CoverageSummary       `json:"coverage,omitempty"`
	Artifacts       []Artifact             `json:"artifacts,omitempty"`
	Extras          map[string]interface{} `json:"extras,omitempty"`
}

// Adapter is implemented by every tool pipeline: AI-generated unit tests,
// static analyzers, the GUI runner and the memory instrumenter.
type Adapter interface {
	// Execute runs the pipeline described by the IR and maps its output to
	// the uniform outcome. Only programmer errors are returned as error.
	Execute(ctx context.Context, ir *TestIR, cfg *ExecutionConfig) (*Outcome, error)
}
