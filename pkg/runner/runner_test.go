package runner

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/qtforge/cortex/config"
	"github.com/qtforge/cortex/pkg/artifacts"
	"github.com/qtforge/cortex/pkg/constants"
	"github.com/qtforge/cortex/pkg/core"
	errs "github.com/qtforge/cortex/pkg/errors"
	"github.com/qtforge/cortex/pkg/lumber"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/guregu/null.v4/zero"
)

type fakeExecutionStore struct {
	core.ExecutionStore
	executions map[string]*core.TestExecution
	running    []string
	finished   []core.TestExecution
}

func (s *fakeExecutionStore) Find(ctx context.Context, executionID string) (*core.TestExecution, error) {
	execution, ok := s.executions[executionID]
	if !ok {
		return nil, errs.ErrRowsNotFound
	}
	return execution, nil
}

func (s *fakeExecutionStore) MarkRunning(ctx context.Context, executionID string, startedAt time.Time) error {
	s.running = append(s.running, executionID)
	return nil
}

func (s *fakeExecutionStore) Finish(ctx context.Context, execution *core.TestExecution) error {
	s.finished = append(s.finished, *execution)
	return nil
}

type fakeProjectStore struct {
	core.ProjectStore
	projects map[string]*core.Project
}

func (s *fakeProjectStore) Find(ctx context.Context, projectID string) (*core.Project, error) {
	project, ok := s.projects[projectID]
	if !ok {
		return nil, errs.ErrRowsNotFound
	}
	return project, nil
}

type fakeTestCaseStore struct {
	core.TestCaseStore
	cases []*core.TestCase
}

func (s *fakeTestCaseStore) FindByIDs(ctx context.Context, testCaseIDs []string) ([]*core.TestCase, error) {
	found := []*core.TestCase{}
	for _, id := range testCaseIDs {
		for _, testCase := range s.cases {
			if testCase.ID == id {
				found = append(found, testCase)
			}
		}
	}
	return found, nil
}

func (s *fakeTestCaseStore) FindByProject(ctx context.Context, projectID string, offset, limit int) ([]*core.TestCase, error) {
	found := []*core.TestCase{}
	for _, testCase := range s.cases {
		if testCase.ProjectID == projectID {
			found = append(found, testCase)
		}
	}
	return found, nil
}

type fakeResultStore struct {
	core.ResultStore
	results []*core.TestResult
}

func (s *fakeResultStore) Create(ctx context.Context, results ...*core.TestResult) error {
	s.results = append(s.results, results...)
	return nil
}

type noopEvents struct{}

func (noopEvents) Notify(ctx context.Context, event *core.ExecutionEvent) error { return nil }
func (noopEvents) Close() error                                                 { return nil }

type fakeAdapter struct {
	execute func(ctx context.Context, ir *core.TestIR, cfg *core.ExecutionConfig) (*core.Outcome, error)
}

func (a *fakeAdapter) Execute(ctx context.Context, ir *core.TestIR, cfg *core.ExecutionConfig) (*core.Outcome, error) {
	return a.execute(ctx, ir, cfg)
}

type fixture struct {
	runner     core.ExecutionRunner
	artifacts  *artifacts.Store
	executions *fakeExecutionStore
	projects   *fakeProjectStore
	cases      *fakeTestCaseStore
	results    *fakeResultStore
}

func newFixture(t *testing.T, adapters map[core.TestKind]core.Adapter) *fixture {
	t.Helper()
	logger, err := lumber.NewLogger(&lumber.LoggingConfig{EnableConsole: true, ConsoleLevel: lumber.Error}, false, lumber.InstanceZapLogger)
	require.NoError(t, err)

	cfg := &config.Config{}
	cfg.Workspace.ArtifactRoot = t.TempDir()
	artifactStore, err := artifacts.New(cfg)
	require.NoError(t, err)

	executions := &fakeExecutionStore{executions: map[string]*core.TestExecution{}}
	projects := &fakeProjectStore{projects: map[string]*core.Project{}}
	cases := &fakeTestCaseStore{}
	results := &fakeResultStore{}

	stores := &core.DBStores{
		ProjectStore:   projects,
		TestCaseStore:  cases,
		ExecutionStore: executions,
		ResultStore:    results,
	}
	return &fixture{
		runner:     New(stores, artifactStore, noopEvents{}, adapters, logger),
		artifacts:  artifactStore,
		executions: executions,
		projects:   projects,
		cases:      cases,
		results:    results,
	}
}

func (f *fixture) seed(t *testing.T, kind core.TestKind) (*core.Project, *core.TestExecution) {
	t.Helper()
	project := &core.Project{ID: "proj-1", Name: "diagramscene", SourcePath: t.TempDir()}
	execution := &core.TestExecution{ID: "exec-1", ProjectID: project.ID, ExecutorType: kind, Status: core.ExecutionPending}
	f.projects.projects[project.ID] = project
	f.executions.executions[execution.ID] = execution
	return project, execution
}

func unitIR(code string) *core.TestIR {
	return &core.TestIR{Type: core.UnitTest, TargetFile: "widget.cpp", TestCode: code}
}

func TestRunSkipsNonPendingExecution(t *testing.T) {
	f := newFixture(t, nil)
	_, execution := f.seed(t, core.UnitTest)
	execution.Status = core.ExecutionRunning

	err := f.runner.Run(context.Background(), &core.ExecutionTask{ExecutionID: execution.ID})
	require.NoError(t, err)
	assert.Empty(t, f.executions.running)
	assert.Empty(t, f.executions.finished)
}

func TestRunMissingExecution(t *testing.T) {
	f := newFixture(t, nil)
	err := f.runner.Run(context.Background(), &core.ExecutionTask{ExecutionID: "missing"})
	assert.ErrorIs(t, err, errs.ErrRowsNotFound)
}

func TestRunMissingProject(t *testing.T) {
	f := newFixture(t, nil)
	_, execution := f.seed(t, core.UnitTest)
	delete(f.projects.projects, execution.ProjectID)

	err := f.runner.Run(context.Background(), &core.ExecutionTask{ExecutionID: execution.ID})
	require.NoError(t, err)
	require.Len(t, f.executions.finished, 1)
	finished := f.executions.finished[0]
	assert.Equal(t, core.ExecutionFailed, finished.Status)
	assert.Contains(t, finished.ErrorMessage.String, "not found")
}

func TestRunNoAdapterForExecutorType(t *testing.T) {
	f := newFixture(t, map[core.TestKind]core.Adapter{})
	_, execution := f.seed(t, core.MemoryTest)

	err := f.runner.Run(context.Background(), &core.ExecutionTask{ExecutionID: execution.ID})
	require.NoError(t, err)
	require.Len(t, f.executions.finished, 1)
	finished := f.executions.finished[0]
	assert.Equal(t, core.ExecutionFailed, finished.Status)
	assert.Contains(t, finished.ErrorMessage.String, "no adapter registered")
}

func TestRunNoMatchingCases(t *testing.T) {
	f := newFixture(t, map[core.TestKind]core.Adapter{
		core.UnitTest: &fakeAdapter{},
	})
	_, execution := f.seed(t, core.UnitTest)
	// the project only carries cases of another kind
	f.cases.cases = []*core.TestCase{
		{ID: "case-ui", ProjectID: execution.ProjectID, Kind: core.UITest, IR: &core.TestIR{Type: core.UITest, SuiteDir: "gui"}},
	}

	err := f.runner.Run(context.Background(), &core.ExecutionTask{ExecutionID: execution.ID})
	require.NoError(t, err)
	require.Len(t, f.executions.finished, 1)
	assert.Equal(t, core.ExecutionFailed, f.executions.finished[0].Status)
	assert.Contains(t, f.executions.finished[0].ErrorMessage.String, "no test cases matched")
}

func TestRunSingleCaseCompletes(t *testing.T) {
	adapter := &fakeAdapter{execute: func(ctx context.Context, ir *core.TestIR, cfg *core.ExecutionConfig) (*core.Outcome, error) {
		return &core.Outcome{
			Passed:      true,
			Total:       3,
			PassedTests: 3,
			Logs:        "All tests passed (3 assertions in 3 test cases)",
			Artifacts:   []core.Artifact{{Type: "log", Path: "/tmp/run.log"}},
		}, nil
	}}
	f := newFixture(t, map[core.TestKind]core.Adapter{core.UnitTest: adapter})
	_, execution := f.seed(t, core.UnitTest)
	f.cases.cases = []*core.TestCase{
		{ID: "case-1", ProjectID: execution.ProjectID, Name: "widget_bounds", Kind: core.UnitTest, IR: unitIR("TEST_CASE(\"b\"){}")},
	}

	err := f.runner.Run(context.Background(), &core.ExecutionTask{ExecutionID: execution.ID, TestCaseIDs: []string{"case-1"}})
	require.NoError(t, err)

	assert.Equal(t, []string{execution.ID}, f.executions.running)
	require.Len(t, f.executions.finished, 1)
	finished := f.executions.finished[0]
	assert.Equal(t, core.ExecutionCompleted, finished.Status)
	assert.Equal(t, 3, finished.Total)
	assert.Equal(t, 3, finished.Passed)
	assert.Contains(t, finished.Logs, "=== widget_bounds ===")
	assert.False(t, finished.ErrorMessage.Valid)

	require.Len(t, f.results.results, 1)
	result := f.results.results[0]
	assert.Equal(t, core.ResultPassed, result.Outcome)
	assert.Equal(t, zero.StringFrom("case-1"), result.TestCaseID)
	assert.Equal(t, "/tmp/run.log", result.LogPath.String)
}

func TestRunInlineIRSkipsCaseLookup(t *testing.T) {
	var seenIR *core.TestIR
	adapter := &fakeAdapter{execute: func(ctx context.Context, ir *core.TestIR, cfg *core.ExecutionConfig) (*core.Outcome, error) {
		seenIR = ir
		return &core.Outcome{Passed: true, Total: 1, PassedTests: 1}, nil
	}}
	f := newFixture(t, map[core.TestKind]core.Adapter{core.StaticTest: adapter})
	_, execution := f.seed(t, core.StaticTest)

	task := &core.ExecutionTask{
		ExecutionID: execution.ID,
		IR:          &core.TestIR{Type: core.StaticTest, Tool: core.ToolCppcheck},
	}
	require.NoError(t, f.runner.Run(context.Background(), task))

	require.NotNil(t, seenIR)
	assert.Equal(t, core.ToolCppcheck, seenIR.Tool)
	require.Len(t, f.results.results, 1)
	assert.Equal(t, "static", f.results.results[0].Name)
	assert.False(t, f.results.results[0].TestCaseID.Valid)
}

func TestRunPersistsResultsPerCase(t *testing.T) {
	adapter := &fakeAdapter{execute: func(ctx context.Context, ir *core.TestIR, cfg *core.ExecutionConfig) (*core.Outcome, error) {
		if ir.TargetFile == "scene.cpp" {
			return nil, errors.New("compiler driver crashed")
		}
		return &core.Outcome{Passed: true, Total: 2, PassedTests: 2}, nil
	}}
	f := newFixture(t, map[core.TestKind]core.Adapter{core.UnitTest: adapter})
	_, execution := f.seed(t, core.UnitTest)
	f.cases.cases = []*core.TestCase{
		{ID: "case-1", ProjectID: execution.ProjectID, Name: "widget", Kind: core.UnitTest, IR: unitIR("a")},
		{ID: "case-2", ProjectID: execution.ProjectID, Name: "scene", Kind: core.UnitTest,
			IR: &core.TestIR{Type: core.UnitTest, TargetFile: "scene.cpp", TestCode: "b"}},
	}

	err := f.runner.Run(context.Background(), &core.ExecutionTask{ExecutionID: execution.ID, TestCaseIDs: []string{"case-1", "case-2"}})
	require.NoError(t, err)

	// the first result survives the second case's hard failure
	require.Len(t, f.results.results, 2)
	assert.Equal(t, core.ResultPassed, f.results.results[0].Outcome)
	assert.Equal(t, core.ResultError, f.results.results[1].Outcome)
	assert.Equal(t, "compiler driver crashed", f.results.results[1].ErrorMessage.String)

	require.Len(t, f.executions.finished, 1)
	finished := f.executions.finished[0]
	assert.Equal(t, core.ExecutionFailed, finished.Status)
	assert.Equal(t, 2, finished.Total)
	assert.Equal(t, "compiler driver crashed", finished.ErrorMessage.String)
}

func TestRunFailingSuiteFailsExecution(t *testing.T) {
	// a GUI runner exiting with its failed-test count reports the failure in
	// the counters only, the pipeline itself ran clean
	adapter := &fakeAdapter{execute: func(ctx context.Context, ir *core.TestIR, cfg *core.ExecutionConfig) (*core.Outcome, error) {
		return &core.Outcome{Total: 1, FailedTests: 1}, nil
	}}
	f := newFixture(t, map[core.TestKind]core.Adapter{core.SystemTest: adapter})
	_, execution := f.seed(t, core.SystemTest)

	task := &core.ExecutionTask{
		ExecutionID: execution.ID,
		IR:          &core.TestIR{Type: core.SystemTest, SuiteDir: "gui_tests"},
	}
	require.NoError(t, f.runner.Run(context.Background(), task))

	require.Len(t, f.executions.finished, 1)
	finished := f.executions.finished[0]
	assert.Equal(t, core.ExecutionFailed, finished.Status)
	assert.Equal(t, 1, finished.Failed)
	assert.False(t, finished.ErrorMessage.Valid)

	require.Len(t, f.results.results, 1)
	assert.Equal(t, core.ResultFailed, f.results.results[0].Outcome)
}

func TestRunRewritesArtifactPathsToServedForm(t *testing.T) {
	adapter := &fakeAdapter{execute: func(ctx context.Context, ir *core.TestIR, cfg *core.ExecutionConfig) (*core.Outcome, error) {
		return &core.Outcome{
			Passed:      true,
			Total:       1,
			PassedTests: 1,
			Artifacts: []core.Artifact{
				{Type: "log", Path: filepath.Join(cfg.ArtifactDir, "run.log")},
				{Type: "report", Path: "/var/log/external.log"},
			},
		}, nil
	}}
	f := newFixture(t, map[core.TestKind]core.Adapter{core.UnitTest: adapter})
	_, execution := f.seed(t, core.UnitTest)
	f.cases.cases = []*core.TestCase{
		{ID: "case-1", ProjectID: execution.ProjectID, Name: "widget", Kind: core.UnitTest, IR: unitIR("a")},
	}

	require.NoError(t, f.runner.Run(context.Background(), &core.ExecutionTask{ExecutionID: execution.ID, TestCaseIDs: []string{"case-1"}}))

	require.Len(t, f.executions.finished, 1)
	artifactList := f.executions.finished[0].Artifacts
	require.Len(t, artifactList, 2)
	assert.Equal(t, constants.ArtifactURLPrefix+"/system_runs/exec-1/run.log", artifactList[0].Path)
	// paths outside the artifact root pass through unchanged
	assert.Equal(t, "/var/log/external.log", artifactList[1].Path)

	require.Len(t, f.results.results, 1)
	assert.Equal(t, constants.ArtifactURLPrefix+"/system_runs/exec-1/run.log", f.results.results[0].LogPath.String)
}

func TestRunContainsAdapterPanic(t *testing.T) {
	adapter := &fakeAdapter{execute: func(ctx context.Context, ir *core.TestIR, cfg *core.ExecutionConfig) (*core.Outcome, error) {
		panic("nil map write")
	}}
	f := newFixture(t, map[core.TestKind]core.Adapter{core.UnitTest: adapter})
	_, execution := f.seed(t, core.UnitTest)
	f.cases.cases = []*core.TestCase{
		{ID: "case-1", ProjectID: execution.ProjectID, Name: "widget", Kind: core.UnitTest, IR: unitIR("a")},
	}

	err := f.runner.Run(context.Background(), &core.ExecutionTask{ExecutionID: execution.ID, TestCaseIDs: []string{"case-1"}})
	require.NoError(t, err)

	require.Len(t, f.results.results, 1)
	assert.Equal(t, core.ResultError, f.results.results[0].Outcome)
	assert.Contains(t, f.results.results[0].ErrorMessage.String, "adapter panicked")
	require.Len(t, f.executions.finished, 1)
	assert.Equal(t, core.ExecutionFailed, f.executions.finished[0].Status)
}

func TestRunRejectsInvalidCaseIR(t *testing.T) {
	adapter := &fakeAdapter{execute: func(ctx context.Context, ir *core.TestIR, cfg *core.ExecutionConfig) (*core.Outcome, error) {
		t.Fatal("adapter must not run on invalid IR")
		return nil, nil
	}}
	f := newFixture(t, map[core.TestKind]core.Adapter{core.UnitTest: adapter})
	_, execution := f.seed(t, core.UnitTest)
	f.cases.cases = []*core.TestCase{
		{ID: "case-1", ProjectID: execution.ProjectID, Name: "empty", Kind: core.UnitTest,
			IR: &core.TestIR{Type: core.UnitTest}},
	}

	err := f.runner.Run(context.Background(), &core.ExecutionTask{ExecutionID: execution.ID, TestCaseIDs: []string{"case-1"}})
	require.NoError(t, err)

	require.Len(t, f.results.results, 1)
	assert.Equal(t, core.ResultError, f.results.results[0].Outcome)
	assert.Contains(t, f.results.results[0].ErrorMessage.String, "invalid test IR")
}

func TestResultFromOutcome(t *testing.T) {
	u := unit{caseID: zero.StringFrom("case-1"), name: "widget"}
	tests := []struct {
		name    string
		outcome *core.Outcome
		want    core.ResultOutcome
	}{
		{"error wins", &core.Outcome{Passed: true, ErrorMessage: "boom"}, core.ResultError},
		{"passed", &core.Outcome{Passed: true, Total: 2, PassedTests: 2}, core.ResultPassed},
		{"all skipped", &core.Outcome{Total: 3, SkippedTests: 3}, core.ResultSkipped},
		{"failed", &core.Outcome{Total: 2, PassedTests: 1, FailedTests: 1}, core.ResultFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := resultFromOutcome("exec-1", u, tt.outcome)
			assert.Equal(t, tt.want, result.Outcome)
			assert.Equal(t, "exec-1", result.ExecutionID)
			assert.NotEmpty(t, result.ID)
		})
	}
}

func TestResultFromOutcomeArtifactPaths(t *testing.T) {
	outcome := &core.Outcome{
		Passed: true,
		Artifacts: []core.Artifact{
			{Type: "log", Path: "/artifacts/run.log"},
			{Type: "screenshot", Path: "/artifacts/fail.png"},
			{Type: "report", Path: "/artifacts/report.html"},
		},
	}
	result := resultFromOutcome("exec-1", unit{name: "gui"}, outcome)
	assert.Equal(t, "/artifacts/run.log", result.LogPath.String)
	assert.Equal(t, "/artifacts/fail.png", result.ScreenshotPath.String)
}
