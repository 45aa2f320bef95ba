package core

import (
	"context"
	"time"

	"gopkg.in/guregu/null.v4/zero"
)

// Priority specifies how urgent a test case is.
type Priority string

// Priority values.
const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// TestCase represents a runnable test definition belonging to a project.
// (project_id, name, kind) is unique.
type TestCase struct {
	ID          string      `db:"id" json:"id"`
	ProjectID   string      `db:"project_id" json:"project_id"`
	Name        string      `db:"name" json:"name"`
	Description zero.String `db:"description" json:"description,omitempty"`
	Kind        TestKind    `db:"kind" json:"kind"`
	Priority    Priority    `db:"priority" json:"priority"`
	Tags        []string    `db:"-" json:"tags,omitempty"`
	IR          *TestIR     `db:"-" json:"test_ir"`
	Created     time.Time   `db:"created_at" json:"created_at"`
	Updated     time.Time   `db:"updated_at" json:"-"`
}

// TestCaseStore defines datastore operations for working with test cases.
type TestCaseStore interface {
	// Create persists a new test case in the datastore.
	Create(ctx context.Context, testCase *TestCase) error
	// Find the test case in datastore by id.
	Find(ctx context.Context, testCaseID string) (*TestCase, error)
	// FindByIDs loads the given test cases preserving the input order.
	FindByIDs(ctx context.Context, testCaseIDs []string) ([]*TestCase, error)
	// FindByProject returns all cases of a project ordered by creation time.
	FindByProject(ctx context.Context, projectID string, offset, limit int) ([]*TestCase, error)
	// Update persists changes to the test case in the datastore.
	Update(ctx context.Context, testCase *TestCase) error
	// Delete removes the test case, cascading to its results.
	Delete(ctx context.Context, testCaseID string) error
}
