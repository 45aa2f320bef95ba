package toolprobe

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/qtforge/cortex/config"
	"github.com/qtforge/cortex/pkg/core"
	"github.com/qtforge/cortex/pkg/lumber"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestFinder(t *testing.T) *finder {
	t.Helper()
	logger, err := lumber.NewLogger(&lumber.LoggingConfig{EnableConsole: true, ConsoleLevel: lumber.Error}, false, lumber.InstanceZapLogger)
	require.NoError(t, err)
	return &finder{cfg: &config.Config{}, logger: logger}
}

func writeFakeTool(t *testing.T, banner string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell-script tool stub")
	}
	path := filepath.Join(t.TempDir(), "faketool")
	script := "#!/bin/sh\necho \"" + banner + "\"\n"
	require.NoError(t, os.WriteFile(path, []byte(script), 0755))
	return path
}

func TestProbeConfigPathWins(t *testing.T) {
	f := newTestFinder(t)
	toolPath := writeFakeTool(t, "faketool version 1.2.3")

	spec := probeSpec{
		name:         "faketool",
		versionArg:   "--version",
		hint:         "install faketool",
		conventional: []string{"/nonexistent/faketool"},
		configPath:   func(tools *config.ToolsConfig) string { return toolPath },
	}
	tool := f.probe(context.Background(), spec)
	require.True(t, tool.Found)
	assert.Equal(t, toolPath, tool.Path)
	assert.Equal(t, "faketool version 1.2.3", tool.Version)
}

func TestProbeMissingTool(t *testing.T) {
	f := newTestFinder(t)
	spec := probeSpec{
		name:       "definitely-not-installed-anywhere",
		hint:       "install it from example.org",
		configPath: func(tools *config.ToolsConfig) string { return "" },
	}
	tool := f.probe(context.Background(), spec)
	assert.False(t, tool.Found)
	assert.Empty(t, tool.Path)
	assert.Equal(t, "install it from example.org", tool.Hint)
}

func TestProbeSkipsDirectoryCandidate(t *testing.T) {
	f := newTestFinder(t)
	spec := probeSpec{
		name:       "definitely-not-installed-anywhere",
		configPath: func(tools *config.ToolsConfig) string { return t.TempDir() },
	}
	tool := f.probe(context.Background(), spec)
	assert.False(t, tool.Found)
}

func TestVersionEmptyWithoutArg(t *testing.T) {
	f := newTestFinder(t)
	assert.Empty(t, f.version(context.Background(), "/usr/bin/true", ""))
}

func TestRefreshCoversEverySpec(t *testing.T) {
	f := newTestFinder(t)
	tools := f.Refresh(context.Background())
	require.Len(t, tools, len(probeSpecs))
	for _, spec := range probeSpecs {
		_, ok := tools[spec.name]
		assert.True(t, ok, spec.name)
	}
	assert.Len(t, f.Tools(), len(probeSpecs))
}

// adapters look tools up by the shared core names, a spec keyed by anything
// else silently reports the tool missing
func TestProbeSpecsUseSharedToolNames(t *testing.T) {
	names := map[string]bool{}
	for _, spec := range probeSpecs {
		names[spec.name] = true
	}
	for _, name := range []string{
		core.ToolCMake, core.ToolCompiler, core.ToolCppcheck, core.ToolClazyBin,
		core.ToolDrMemory, core.ToolRobot,
	} {
		assert.True(t, names[name], name)
	}
}

func TestCandidatesOrder(t *testing.T) {
	f := newTestFinder(t)
	f.cfg.Tools.Cppcheck = "/opt/cppcheck/bin/cppcheck"

	spec := probeSpec{
		name:         "cppcheck",
		aliases:      []string{"cppcheck-alias"},
		conventional: []string{"/usr/bin/cppcheck"},
		configPath:   func(tools *config.ToolsConfig) string { return tools.Cppcheck },
	}
	candidates := f.candidates(spec)
	assert.Equal(t, []string{"/opt/cppcheck/bin/cppcheck", "/usr/bin/cppcheck", "cppcheck", "cppcheck-alias"}, candidates)
}
