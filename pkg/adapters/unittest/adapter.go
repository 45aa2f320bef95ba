package unittest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/qtforge/cortex/pkg/constants"
	"github.com/qtforge/cortex/pkg/core"
	"github.com/qtforge/cortex/pkg/lumber"
)

// adapter drives the core pipeline for AI-generated tests:
// repair -> stage -> build+run -> parse -> coverage.
type adapter struct {
	stager   core.Stager
	repairer core.Repairer
	driver   core.BuildDriver
	parser   core.ResultParser
	logger   lumber.Logger
}

// New returns the unit/integration test adapter.
func New(stager core.Stager,
	repairer core.Repairer,
	driver core.BuildDriver,
	parser core.ResultParser,
	logger lumber.Logger) core.Adapter {
	return &adapter{
		stager:   stager,
		repairer: repairer,
		driver:   driver,
		parser:   parser,
		logger:   logger,
	}
}

func (a *adapter) Execute(ctx context.Context, ir *core.TestIR, cfg *core.ExecutionConfig) (*core.Outcome, error) {
	started := time.Now()
	outcome := &core.Outcome{}
	logs := &strings.Builder{}

	repaired, changes := a.repairer.Repair(ir.TestCode)
	for _, change := range changes {
		logs.WriteString("[repairer] " + change + "\n")
	}

	staged, err := a.stager.Stage(ctx, cfg.SourcePath, repaired, cfg.Project)
	if err != nil {
		outcome.ErrorMessage = fmt.Sprintf("staging failed: %v", err)
		outcome.Logs = logs.String()
		outcome.DurationSeconds = time.Since(started).Seconds()
		return outcome, nil
	}

	runOutcome, err := a.driver.BuildAndRun(ctx, staged, cfg.Timeout)
	if err != nil {
		return nil, err
	}
	logs.WriteString(runOutcome.Logs)
	outcome.DurationSeconds = time.Since(started).Seconds()

	if !runOutcome.Success && runOutcome.ReportXML == "" {
		// the pipeline died before the test binary produced a report
		if runOutcome.TimedOut {
			outcome.ErrorMessage = fmt.Sprintf("%s phase timed out after %s", runOutcome.Phase, cfg.Timeout)
		} else {
			outcome.ErrorMessage = fmt.Sprintf("%s phase failed with exit code %d", runOutcome.Phase, runOutcome.ExitCode)
		}
		outcome.Logs = logs.String()
		return outcome, nil
	}

	report, perr := a.parser.ParseReport(runOutcome.ReportXML, runOutcome.Logs)
	if perr != nil {
		outcome.ErrorMessage = "test output could not be parsed, raw output preserved in logs"
		outcome.Logs = logs.String()
		return outcome, nil
	}
	if report.Fallback != "" {
		logs.WriteString("[parser] report recovered via " + report.Fallback + " fallback\n")
	}

	outcome.Total = report.TotalCases
	outcome.PassedTests = report.PassedCases
	outcome.FailedTests = report.FailedCases
	outcome.Passed = report.FailedCases == 0 && report.TotalCases > 0
	outcome.Extras = map[string]interface{}{
		"assertions": report.Assertions,
	}

	if staged.CoverageEnabled {
		coverage, cerr := a.parser.CollectCoverage(ctx, filepath.Join(staged.Dir, "build"))
		if cerr != nil {
			a.logger.Warnf("coverage collection failed for execution %s: %v", cfg.ExecutionID, cerr)
		} else {
			outcome.Coverage = coverage
		}
	}

	outcome.Artifacts = a.persistArtifacts(cfg, runOutcome.ReportXML, logs.String())
	outcome.Logs = logs.String()
	return outcome, nil
}

func (a *adapter) persistArtifacts(cfg *core.ExecutionConfig, reportXML, logs string) []core.Artifact {
	artifacts := []core.Artifact{}
	if reportXML != "" {
		path := filepath.Join(cfg.ArtifactDir, constants.TestReportFile)
		if err := os.WriteFile(path, []byte(reportXML), 0644); err == nil {
			artifacts = append(artifacts, core.Artifact{Type: "report", Path: path})
		} else {
			a.logger.Warnf("failed to persist report artifact: %v", err)
		}
	}
	path := filepath.Join(cfg.ArtifactDir, "build.log")
	if err := os.WriteFile(path, []byte(logs), 0644); err == nil {
		artifacts = append(artifacts, core.Artifact{Type: "log", Path: path})
	}
	return artifacts
}
