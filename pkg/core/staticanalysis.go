package core

import (
	"context"
	"time"
)

// Issue severities reported by the analyzer adapters.
const (
	SeverityError       = "error"
	SeverityWarning     = "warning"
	SeverityStyle       = "style"
	SeverityPerformance = "performance"
	SeverityInformation = "information"
)

// Issue is the uniform record every analyzer output is mapped to.
type Issue struct {
	File     string `json:"file"`
	Line     int    `json:"line"`
	Column   int    `json:"column"`
	Severity string `json:"severity"`
	ID       string `json:"id"`
	Message  string `json:"message"`
	Tool     string `json:"tool"`
}

// StaticAnalysis is the metadata of one analyzer run. The bulky issue list
// lives on the filesystem under a timestamped directory; only the summary is
// materialized in the record.
type StaticAnalysis struct {
	ID           string    `db:"id" json:"id"`
	ProjectID    string    `db:"project_id" json:"project_id"`
	Tool         string    `db:"tool" json:"tool"`
	Timestamp    string    `db:"run_timestamp" json:"timestamp"`
	ResultsPath  string    `db:"results_path" json:"results_path"`
	TotalIssues  int       `db:"total_issues" json:"total_issues"`
	ErrorCount   int       `db:"error_count" json:"error_count"`
	WarningCount int       `db:"warning_count" json:"warning_count"`
	StyleCount   int       `db:"style_count" json:"style_count"`
	Created      time.Time `db:"created_at" json:"created_at"`
}

// StaticAnalysisStore defines datastore operations for analyzer runs.
type StaticAnalysisStore interface {
	// Create persists a new analysis record.
	Create(ctx context.Context, analysis *StaticAnalysis) error
	// FindByProject returns analysis records of a project, newest first.
	FindByProject(ctx context.Context, projectID string, offset, limit int) ([]*StaticAnalysis, error)
}
