package core

import "context"

// Tool names probed at startup.
const (
	ToolCMake    = "cmake"
	ToolCompiler = "g++"
	ToolMake     = "make"
	ToolGcov     = "gcov"
	ToolLcov     = "lcov"
	ToolGenhtml  = "genhtml"
	ToolClazyBin = "clazy-standalone"
	ToolDrMemory = "drmemory"
	ToolRobot    = "robot"
	ToolXvfbRun  = "xvfb-run"
	ToolJava     = "java"
)

// Tool describes the availability of one external binary.
type Tool struct {
	Name    string `json:"name"`
	Path    string `json:"path,omitempty"`
	Version string `json:"version,omitempty"`
	Found   bool   `json:"found"`
	Hint    string `json:"hint,omitempty"`
}

// ToolSet is a read-only snapshot of the probed external binaries.
type ToolSet map[string]*Tool

// Get returns the probed entry for name, or a not-found placeholder.
func (t ToolSet) Get(name string) *Tool {
	if tool, ok := t[name]; ok {
		return tool
	}
	return &Tool{Name: name}
}

// Has reports whether the named tool was found.
func (t ToolSet) Has(name string) bool {
	tool, ok := t[name]
	return ok && tool.Found
}

// Path returns the resolved path of the named tool, empty when missing.
func (t ToolSet) Path(name string) string {
	if tool, ok := t[name]; ok && tool.Found {
		return tool.Path
	}
	return ""
}

// ToolFinder locates external binaries by config path, conventional install
// locations and the system search path. The snapshot is process-wide and
// refreshable on demand; no component hardcodes paths.
type ToolFinder interface {
	// Tools returns the current snapshot.
	Tools() ToolSet
	// Refresh re-probes all tools and returns the new snapshot.
	Refresh(ctx context.Context) ToolSet
}
