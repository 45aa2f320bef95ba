package runner

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/qtforge/cortex/pkg/artifacts"
	"github.com/qtforge/cortex/pkg/constants"
	"github.com/qtforge/cortex/pkg/core"
	errs "github.com/qtforge/cortex/pkg/errors"
	"github.com/qtforge/cortex/pkg/lumber"
	"github.com/qtforge/cortex/pkg/utils"

	"gopkg.in/guregu/null.v4/zero"
)

type runner struct {
	stores    *core.DBStores
	artifacts *artifacts.Store
	events    core.EventProducer
	adapters  map[core.TestKind]core.Adapter
	logger    lumber.Logger
}

// New returns the ExecutionRunner. Adapters are a closed dispatch table keyed
// by the IR type tag; unknown tags are validation errors, never a dispatch
// failure.
func New(stores *core.DBStores,
	artifactStore *artifacts.Store,
	events core.EventProducer,
	adapters map[core.TestKind]core.Adapter,
	logger lumber.Logger) core.ExecutionRunner {
	return &runner{
		stores:    stores,
		artifacts: artifactStore,
		events:    events,
		adapters:  adapters,
		logger:    logger,
	}
}

func (r *runner) Run(ctx context.Context, task *core.ExecutionTask) error {
	execution, err := r.stores.ExecutionStore.Find(ctx, task.ExecutionID)
	if err != nil {
		r.logger.Errorf("execution %s not found on pickup: %v", task.ExecutionID, err)
		return err
	}
	if execution.Status != core.ExecutionPending {
		// redelivered message for an execution another worker already moved
		r.logger.Warnf("skipping execution %s in state %s", execution.ID, execution.Status)
		return nil
	}

	project, err := r.stores.ProjectStore.Find(ctx, execution.ProjectID)
	if err != nil {
		r.finish(ctx, execution, core.ExecutionFailed, fmt.Sprintf("project %s not found: %v", execution.ProjectID, err))
		return nil
	}

	startedAt := time.Now()
	if err := r.stores.ExecutionStore.MarkRunning(ctx, execution.ID, startedAt); err != nil {
		r.logger.Errorf("failed to mark execution %s running: %v", execution.ID, err)
		return err
	}
	execution.Status = core.ExecutionRunning
	execution.Started = zero.TimeFrom(startedAt)
	r.notify(ctx, execution)

	adapter, ok := r.adapters[execution.ExecutorType]
	if !ok {
		r.finish(ctx, execution, core.ExecutionFailed, fmt.Sprintf("no adapter registered for executor type %q", execution.ExecutorType))
		return nil
	}

	units, err := r.resolveUnits(ctx, execution, task)
	if err != nil {
		r.finish(ctx, execution, core.ExecutionFailed, err.Error())
		return nil
	}

	cfg, err := r.executionConfig(execution, project)
	if err != nil {
		r.finish(ctx, execution, core.ExecutionFailed, err.Error())
		return nil
	}

	r.runUnits(ctx, execution, adapter, units, cfg, startedAt)
	return nil
}

// unit is one adapter invocation: a stored case or an ad-hoc inline IR.
type unit struct {
	caseID zero.String
	name   string
	ir     *core.TestIR
}

func (r *runner) resolveUnits(ctx context.Context, execution *core.TestExecution, task *core.ExecutionTask) ([]unit, error) {
	if task.IR != nil {
		return []unit{{name: string(execution.ExecutorType), ir: task.IR}}, nil
	}

	var cases []*core.TestCase
	var err error
	if len(task.TestCaseIDs) > 0 {
		cases, err = r.stores.TestCaseStore.FindByIDs(ctx, task.TestCaseIDs)
	} else {
		cases, err = r.stores.TestCaseStore.FindByProject(ctx, execution.ProjectID, 0, 10000)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load test cases: %w", err)
	}

	units := make([]unit, 0, len(cases))
	for _, testCase := range cases {
		if len(task.TestCaseIDs) == 0 && testCase.Kind != execution.ExecutorType {
			continue
		}
		units = append(units, unit{
			caseID: zero.StringFrom(testCase.ID),
			name:   testCase.Name,
			ir:     testCase.IR,
		})
	}
	if len(units) == 0 {
		return nil, errs.New("no test cases matched the execution")
	}
	return units, nil
}

func (r *runner) executionConfig(execution *core.TestExecution, project *core.Project) (*core.ExecutionConfig, error) {
	buildPath := project.BuildPath.String
	if buildPath == "" {
		buildPath = filepath.Join(project.SourcePath, "build")
	}
	if err := os.MkdirAll(buildPath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create build path %s: %w", buildPath, err)
	}
	artifactDir, err := r.artifacts.ExecutionDir(execution.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to create artifact directory: %w", err)
	}
	return &core.ExecutionConfig{
		ExecutionID: execution.ID,
		Project:     project,
		SourcePath:  project.SourcePath,
		BuildPath:   buildPath,
		BinaryPath:  project.BinaryPath.String,
		ArtifactDir: artifactDir,
		Timeout:     constants.DefaultPhaseTimeout,
	}, nil
}

// runUnits drives the per-case sequential loop. Results are persisted per
// case so earlier results survive a later crash.
func (r *runner) runUnits(ctx context.Context,
	execution *core.TestExecution,
	adapter core.Adapter,
	units []unit,
	cfg *core.ExecutionConfig,
	startedAt time.Time) {
	logs := &strings.Builder{}
	hardFailure := false

	for _, u := range units {
		outcome := r.runUnit(ctx, adapter, u, cfg)

		// artifact paths are persisted in their served form
		for i := range outcome.Artifacts {
			outcome.Artifacts[i].Path = r.artifacts.URLPath(outcome.Artifacts[i].Path)
		}

		execution.Total += outcome.Total
		execution.Passed += outcome.PassedTests
		execution.Failed += outcome.FailedTests
		execution.Skipped += outcome.SkippedTests
		if outcome.Logs != "" {
			fmt.Fprintf(logs, "=== %s ===\n%s\n", u.name, outcome.Logs)
		}
		if execution.Coverage == nil && outcome.Coverage != nil {
			execution.Coverage = outcome.Coverage
		}
		execution.Artifacts = append(execution.Artifacts, outcome.Artifacts...)
		if len(outcome.Extras) > 0 {
			if execution.Extras == nil {
				execution.Extras = map[string]interface{}{}
			}
			for k, v := range outcome.Extras {
				execution.Extras[k] = v
			}
		}
		if outcome.ErrorMessage != "" {
			hardFailure = true
			if !execution.ErrorMessage.Valid {
				execution.ErrorMessage = zero.StringFrom(outcome.ErrorMessage)
			}
		}
		// failing cases fail the execution even when the pipeline itself ran
		// clean, e.g. a suite whose runner exits with its failed-test count
		if outcome.FailedTests > 0 {
			hardFailure = true
		}

		result := resultFromOutcome(execution.ID, u, outcome)
		if err := r.stores.ResultStore.Create(ctx, result); err != nil {
			r.logger.Errorf("failed to persist result for case %s of execution %s: %v", u.name, execution.ID, err)
		}
		r.logger.Infof("execution %s case %s finished: passed=%v total=%d", execution.ID, u.name, outcome.Passed, outcome.Total)
	}

	execution.Logs = logs.String()
	status := core.ExecutionCompleted
	if hardFailure {
		status = core.ExecutionFailed
	}
	r.finishAt(ctx, execution, status, startedAt)
}

// runUnit invokes the adapter for one case, translating validation failures
// and panics into error outcomes so the loop continues.
func (r *runner) runUnit(ctx context.Context, adapter core.Adapter, u unit, cfg *core.ExecutionConfig) (outcome *core.Outcome) {
	defer func() {
		if p := recover(); p != nil {
			r.logger.Errorf("adapter panicked on case %s: %v", u.name, p)
			outcome = &core.Outcome{ErrorMessage: fmt.Sprintf("adapter panicked: %v", p)}
		}
	}()

	if u.ir == nil {
		return &core.Outcome{ErrorMessage: "test case carries no IR"}
	}
	if err := u.ir.Validate(); err != nil {
		return &core.Outcome{ErrorMessage: fmt.Sprintf("invalid test IR: %v", err)}
	}
	result, err := adapter.Execute(ctx, u.ir, cfg)
	if err != nil {
		// only programmer errors surface here, expected failures come back
		// inside the outcome
		r.logger.Errorf("adapter failed on case %s: %v", u.name, err)
		return &core.Outcome{ErrorMessage: err.Error()}
	}
	return result
}

func resultFromOutcome(executionID string, u unit, outcome *core.Outcome) *core.TestResult {
	result := &core.TestResult{
		ID:              utils.GenerateUUID(),
		ExecutionID:     executionID,
		TestCaseID:      u.caseID,
		Name:            u.name,
		DurationSeconds: outcome.DurationSeconds,
		Coverage:        outcome.Coverage,
		Created:         time.Now(),
	}
	switch {
	case outcome.ErrorMessage != "":
		result.Outcome = core.ResultError
		result.ErrorMessage = zero.StringFrom(outcome.ErrorMessage)
	case outcome.Passed:
		result.Outcome = core.ResultPassed
	case outcome.Total > 0 && outcome.Total == outcome.SkippedTests:
		result.Outcome = core.ResultSkipped
	default:
		result.Outcome = core.ResultFailed
	}
	for _, artifact := range outcome.Artifacts {
		switch artifact.Type {
		case "log":
			result.LogPath = zero.StringFrom(artifact.Path)
		case "screenshot":
			result.ScreenshotPath = zero.StringFrom(artifact.Path)
		}
	}
	return result
}

func (r *runner) finish(ctx context.Context, execution *core.TestExecution, status core.ExecutionStatus, errorMessage string) {
	execution.ErrorMessage = zero.StringFrom(errorMessage)
	r.logger.Errorf("execution %s: %s", execution.ID, errorMessage)
	started := execution.Started.Time
	if !execution.Started.Valid {
		started = time.Now()
	}
	r.finishAt(ctx, execution, status, started)
}

func (r *runner) finishAt(ctx context.Context, execution *core.TestExecution, status core.ExecutionStatus, startedAt time.Time) {
	completedAt := time.Now()
	execution.Status = status
	execution.Completed = zero.TimeFrom(completedAt)
	if execution.DurationSeconds == 0 {
		execution.DurationSeconds = completedAt.Sub(startedAt).Seconds()
	}
	if err := r.stores.ExecutionStore.Finish(ctx, execution); err != nil {
		r.logger.Errorf("failed to finish execution %s: %v", execution.ID, err)
		return
	}
	r.notify(ctx, execution)
}

func (r *runner) notify(ctx context.Context, execution *core.TestExecution) {
	// best effort, event loss never fails an execution
	if err := r.events.Notify(ctx, &core.ExecutionEvent{
		ExecutionID: execution.ID,
		ProjectID:   execution.ProjectID,
		Status:      execution.Status,
		Timestamp:   time.Now().Unix(),
	}); err != nil {
		r.logger.Warnf("failed to publish execution event for %s: %v", execution.ID, err)
	}
}
