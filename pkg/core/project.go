package core

import (
	"context"
	"time"

	"gopkg.in/guregu/null.v4/zero"
)

// ProjectKind classifies what the project is primarily tested with.
type ProjectKind string

// Project kind values.
const (
	UnitProject        ProjectKind = "unit"
	IntegrationProject ProjectKind = "integration"
	StaticProject      ProjectKind = "static"
	UIProject          ProjectKind = "ui"
)

// Project represents one uploaded source tree and its scratch locations.
type Project struct {
	ID         string      `db:"id" json:"id"`
	Name       string      `db:"name" json:"name"`
	Kind       ProjectKind `db:"kind" json:"kind"`
	Language   string      `db:"language" json:"language"`
	Framework  zero.String `db:"framework" json:"framework,omitempty"`
	SourcePath string      `db:"source_path" json:"source_path"`
	BuildPath  zero.String `db:"build_path" json:"build_path,omitempty"`
	BinaryPath zero.String `db:"binary_path" json:"binary_path,omitempty"`
	Created    time.Time   `db:"created_at" json:"created_at"`
	Updated    time.Time   `db:"updated_at" json:"-"`
}

// ProjectStore defines datastore operations for working with projects.
type ProjectStore interface {
	// Create persists a new project in the datastore.
	Create(ctx context.Context, project *Project) error
	// Find the project in datastore by id.
	Find(ctx context.Context, projectID string) (*Project, error)
	// FindByName finds the project in datastore by its unique name.
	FindByName(ctx context.Context, name string) (*Project, error)
	// List returns projects ordered by creation time.
	List(ctx context.Context, offset, limit int) ([]*Project, error)
	// Update persists changes to the project in the datastore.
	Update(ctx context.Context, project *Project) error
	// Delete removes the project, cascading to its cases, executions and analyses.
	Delete(ctx context.Context, projectID string) error
}
