package artifacts

import (
	"os"
	"path/filepath"

	"github.com/qtforge/cortex/config"
	"github.com/qtforge/cortex/pkg/constants"
)

// Store lays out the durable artifact tree under one configurable root:
// uploads/, projects/, static_analysis/, system_runs/. Project sources can be
// relocated out of the served tree with the workspace project root.
type Store struct {
	root        string
	projectRoot string
}

// New resolves the artifact and project roots from the workspace config and
// creates them. The upload directory is created here too, the save of the
// first uploaded archive must not depend on a prior extraction.
func New(cfg *config.Config) (*Store, error) {
	root := cfg.Workspace.ArtifactRoot
	if root == "" {
		root = filepath.Join(cfg.Workspace.Root, "artifacts")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	projectRoot := cfg.Workspace.ProjectRoot
	if projectRoot == "" {
		projectRoot = filepath.Join(abs, "projects")
	}
	absProjects, err := filepath.Abs(projectRoot)
	if err != nil {
		return nil, err
	}
	for _, dir := range []string{abs, filepath.Join(abs, "uploads"), absProjects} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, err
		}
	}
	return &Store{root: abs, projectRoot: absProjects}, nil
}

// Root returns the absolute artifact root, served statically by the API.
func (s *Store) Root() string { return s.root }

// UploadPath returns where an uploaded archive is stored.
func (s *Store) UploadPath(uploadID string) string {
	return filepath.Join(s.root, "uploads", uploadID+".zip")
}

// ProjectDir returns (and creates) the extraction root of a project.
func (s *Store) ProjectDir(projectID string) (string, error) {
	return s.ensure(filepath.Join(s.projectRoot, projectID))
}

// StaticAnalysisDir returns (and creates) the timestamped results directory
// of one analyzer run.
func (s *Store) StaticAnalysisDir(projectID, timestamp string) (string, error) {
	return s.ensure(filepath.Join(s.root, "static_analysis", projectID, timestamp))
}

// ExecutionDir returns (and creates) the per-execution artifact directory.
func (s *Store) ExecutionDir(executionID string) (string, error) {
	return s.ensure(filepath.Join(s.root, "system_runs", executionID))
}

// URLPath rewrites an absolute artifact path to its served URL under the
// artifact prefix. Paths outside the root pass through unchanged.
func (s *Store) URLPath(path string) string {
	rel, err := filepath.Rel(s.root, path)
	if err != nil || rel == ".." || filepath.IsAbs(rel) || len(rel) >= 3 && rel[:3] == ".."+string(filepath.Separator) {
		return path
	}
	return constants.ArtifactURLPrefix + "/" + filepath.ToSlash(rel)
}

func (s *Store) ensure(dir string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}
	return dir, nil
}
