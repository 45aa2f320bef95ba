package staticanalysis

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/qtforge/cortex/pkg/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilterIssues(t *testing.T) {
	issues := []core.Issue{
		{File: "src/widget.cpp", Severity: core.SeverityError},
		{File: "/usr/include/qt5/QtCore/qstring.h", Severity: core.SeverityWarning},
		{File: "/usr/local/include/boost/optional.hpp", Severity: core.SeverityWarning},
		{File: "C:/Program Files/Cppcheck/cfg/std.cfg", Severity: core.SeverityStyle},
		{File: "stage/build/autogen/moc_widget.cpp", Severity: core.SeverityError},
		{File: "src/scene.cpp", Severity: core.SeverityStyle},
	}
	filtered := filterIssues(issues)
	require.Len(t, filtered, 2)
	assert.Equal(t, "src/widget.cpp", filtered[0].File)
	assert.Equal(t, "src/scene.cpp", filtered[1].File)
}

func TestSummarize(t *testing.T) {
	issues := []core.Issue{
		{Severity: core.SeverityError},
		{Severity: core.SeverityError},
		{Severity: core.SeverityWarning},
		{Severity: core.SeverityStyle},
		{Severity: core.SeverityPerformance},
	}
	summary := summarize(issues)
	assert.Equal(t, 2, summary.errors)
	assert.Equal(t, 1, summary.warnings)
	assert.Equal(t, 2, summary.styles)
}

func TestDiscoverFiles(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "build"), 0755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, ".git"), 0755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "src"), 0755))
	for _, name := range []string{
		"widget.cpp",
		"widget.h",
		"moc_widget.cpp",
		"qrc_resources.cpp",
		"ui_mainwindow.h",
		"README.md",
		"build/generated.cpp",
		".git/hooks.cpp",
		"src/scene.cpp",
	} {
		require.NoError(t, os.WriteFile(filepath.Join(root, filepath.FromSlash(name)), []byte("// x\n"), 0644))
	}

	files, err := discoverFiles([]string{root}, nil)
	require.NoError(t, err)

	names := make([]string, 0, len(files))
	for _, f := range files {
		names = append(names, filepath.Base(f))
	}
	assert.ElementsMatch(t, []string{"widget.cpp", "widget.h", "scene.cpp"}, names)
}

func TestDiscoverFilesExcludes(t *testing.T) {
	root := t.TempDir()
	for _, name := range []string{"widget.cpp", "widget_generated.cpp"} {
		require.NoError(t, os.WriteFile(filepath.Join(root, name), []byte("// x\n"), 0644))
	}

	files, err := discoverFiles([]string{root}, []string{"*_generated.cpp"})
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "widget.cpp", filepath.Base(files[0]))
}

func TestNormalizeSeverity(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"error", core.SeverityError},
		{"warning", core.SeverityWarning},
		{"portability", core.SeverityWarning},
		{"performance", core.SeverityPerformance},
		{"information", core.SeverityInformation},
		{"debug", core.SeverityInformation},
		{"style", core.SeverityStyle},
		{"", core.SeverityStyle},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, normalizeSeverity(tt.in), tt.in)
	}
}

func TestParseClazyOutput(t *testing.T) {
	out := `widget.cpp:42:9: warning: Missing reference in range-for with non trivial type [-Wclazy-range-loop-reference]
widget.cpp:50:5: error: old style connect [-Wclazy-old-style-connect]
some unrelated diagnostic line
`
	issues := parseClazyOutput(out)
	require.Len(t, issues, 2)

	assert.Equal(t, "widget.cpp", issues[0].File)
	assert.Equal(t, 42, issues[0].Line)
	assert.Equal(t, 9, issues[0].Column)
	assert.Equal(t, core.SeverityWarning, issues[0].Severity)
	assert.Equal(t, "clazy-range-loop-reference", issues[0].ID)
	assert.Equal(t, core.ToolClazy, issues[0].Tool)

	assert.Equal(t, core.SeverityError, issues[1].Severity)
	assert.Equal(t, "clazy-old-style-connect", issues[1].ID)
}
