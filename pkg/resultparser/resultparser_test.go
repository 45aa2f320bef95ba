package resultparser

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/qtforge/cortex/pkg/core"
	errs "github.com/qtforge/cortex/pkg/errors"
	"github.com/qtforge/cortex/pkg/lumber"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeToolFinder struct {
	set core.ToolSet
}

func (f *fakeToolFinder) Tools() core.ToolSet                      { return f.set }
func (f *fakeToolFinder) Refresh(ctx context.Context) core.ToolSet { return f.set }

func newTestParser(t *testing.T, set core.ToolSet) core.ResultParser {
	logger, err := lumber.NewLogger(&lumber.LoggingConfig{EnableConsole: true, ConsoleLevel: lumber.Error}, false, lumber.InstanceZapLogger)
	require.NoError(t, err)
	return New(&fakeToolFinder{set: set}, logger)
}

const sampleReportXML = `<?xml version="1.0" encoding="UTF-8"?>
<Catch2TestRun name="cortex_tests">
  <TestCase name="addition works" tags="[math][fast]" filename="test_cases.cpp" line="4">
    <OverallResult success="true" durationInSeconds="0.001"/>
    <OverallResults successes="3" failures="0"/>
  </TestCase>
  <TestCase name="division checks" tags="[math]" filename="test_cases.cpp" line="12">
    <Section name="by zero">
      <OverallResults successes="1" failures="1"/>
    </Section>
    <Expression success="false" filename="test_cases.cpp" line="15">
      <Original>result == 2</Original>
      <Expanded>3 == 2</Expanded>
    </Expression>
    <OverallResult success="false" durationInSeconds="0.002"/>
  </TestCase>
  <OverallResults successes="4" failures="1"/>
</Catch2TestRun>`

func TestParseReportXML(t *testing.T) {
	p := newTestParser(t, core.ToolSet{})

	report, err := p.ParseReport(sampleReportXML, "")
	require.NoError(t, err)

	assert.Empty(t, report.Fallback)
	assert.Equal(t, 2, report.TotalCases)
	assert.Equal(t, 1, report.PassedCases)
	assert.Equal(t, 1, report.FailedCases)
	assert.Equal(t, 4, report.Assertions.Successes)
	assert.Equal(t, 1, report.Assertions.Failures)

	require.Len(t, report.Cases, 2)
	first := report.Cases[0]
	assert.Equal(t, "addition works", first.Name)
	assert.Equal(t, []string{"math", "fast"}, first.Tags)
	assert.True(t, first.Success)
	assert.Equal(t, 3, first.Successes)

	second := report.Cases[1]
	assert.False(t, second.Success)
	// case totals derived from section rollups
	assert.Equal(t, 1, second.Successes)
	assert.Equal(t, 1, second.Failures)
	assert.Equal(t, "3 == 2", second.Message)
	require.Len(t, second.Sections, 1)
	assert.Equal(t, "by zero", second.Sections[0].Name)

	// the case count always matches passed plus failed
	assert.Equal(t, report.TotalCases, report.PassedCases+report.FailedCases)
}

func TestParseReportConsoleFallback(t *testing.T) {
	p := newTestParser(t, core.ToolSet{})
	console := `===============================================================================
test cases: 5 | 4 passed | 1 failed
assertions: 12 | 10 passed | 2 failed
`
	report, err := p.ParseReport("<Catch2TestRun><broken", console)
	require.NoError(t, err)

	assert.Equal(t, "regex", report.Fallback)
	assert.Equal(t, 5, report.TotalCases)
	assert.Equal(t, 4, report.PassedCases)
	assert.Equal(t, 1, report.FailedCases)
	assert.Equal(t, 10, report.Assertions.Successes)
	assert.Equal(t, 2, report.Assertions.Failures)
}

func TestParseReportAllPassedLiteral(t *testing.T) {
	p := newTestParser(t, core.ToolSet{})

	report, err := p.ParseReport("", "All tests passed (7 assertions in 3 test cases)")
	require.NoError(t, err)

	assert.Equal(t, "literal", report.Fallback)
	assert.Equal(t, 3, report.TotalCases)
	assert.Equal(t, 3, report.PassedCases)
	assert.Equal(t, 0, report.FailedCases)
	assert.Equal(t, 7, report.Assertions.Successes)
}

func TestParseReportUnparseable(t *testing.T) {
	p := newTestParser(t, core.ToolSet{})

	report, err := p.ParseReport("", "Segmentation fault (core dumped)")
	assert.Nil(t, report)
	assert.ErrorIs(t, err, errs.ErrParseOutput)
}

func TestParseTags(t *testing.T) {
	assert.Nil(t, parseTags(""))
	assert.Equal(t, []string{"math"}, parseTags("[math]"))
	assert.Equal(t, []string{"math", "fast", "ui"}, parseTags("[math][fast][ui]"))
}

func TestParseLcovInfo(t *testing.T) {
	info := `TN:
SF:/stage/widget.cpp
FNF:4
FNH:3
LF:100
LH:80
BRF:20
BRH:10
end_of_record
SF:/stage/scene.cpp
FNF:2
FNH:2
LF:50
LH:40
BRF:8
BRH:6
end_of_record
`
	summary := parseLcovInfo(info)
	assert.Equal(t, 150, summary.LinesTotal)
	assert.Equal(t, 120, summary.LinesCovered)
	assert.Equal(t, 28, summary.BranchesTotal)
	assert.Equal(t, 16, summary.BranchesCovered)
	assert.Equal(t, 6, summary.FunctionsTotal)
	assert.Equal(t, 5, summary.FunctionsCovered)
	assert.InDelta(t, 80.0, summary.Percentage, 0.01)
}

func TestParseGcovFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "widget.cpp.gcov")
	content := `        -:    0:Source:widget.cpp
        -:    1:#include "widget.h"
        5:    2:void Widget::show() {
    #####:    3:    hidden();
        5:    4:}
    =====:    5:int never() { return 1; }
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	covered, total := parseGcovFile(path)
	assert.Equal(t, 4, total)
	assert.Equal(t, 2, covered)
}

func TestCollectCoverageNoTools(t *testing.T) {
	p := newTestParser(t, core.ToolSet{})

	summary, err := p.CollectCoverage(context.Background(), t.TempDir())
	assert.NoError(t, err)
	assert.Nil(t, summary)
}

func TestCollectCoverageGcovWithoutDataFiles(t *testing.T) {
	p := newTestParser(t, core.ToolSet{
		core.ToolGcov: {Name: core.ToolGcov, Found: true, Path: "/usr/bin/gcov"},
	})

	summary, err := p.CollectCoverage(context.Background(), t.TempDir())
	require.NoError(t, err)
	require.NotNil(t, summary)
	assert.Equal(t, "no coverage data files were produced", summary.Warning)
	assert.Zero(t, summary.LinesTotal)
	assert.Zero(t, summary.Percentage)
}
