package core

import (
	"context"
	"time"
)

// StagedBuild is a freshly created, ASCII-pathed scratch directory containing
// everything the build tool needs for one execution.
type StagedBuild struct {
	// Dir is the stage root. Every character of its absolute path is ASCII
	// unless all fallbacks failed, in which case Warnings says so.
	Dir string
	// TestFile is the path of the repaired test translation unit.
	TestFile string
	// Target is the executable name configured in the build script.
	Target string
	// CoverageEnabled records whether coverage flags were compiled in.
	CoverageEnabled bool
	// Warnings collects non-fatal staging notes, surfaced in execution logs.
	Warnings []string
}

// Stager creates scratch build directories for one execution each.
type Stager interface {
	// Stage copies user sources, the vendored test framework, resources and a
	// generated entry point into a fresh stage and emits the build script.
	Stage(ctx context.Context, sourceDir, testSource string, project *Project) (*StagedBuild, error)
}

// Repairer is the deterministic syntactic pass that massages LLM-produced
// C++ toward compilability. Never semantic; idempotent on its own output.
type Repairer interface {
	// Repair returns the repaired source and a log of every substitution.
	Repair(source string) (repaired string, changes []string)
}

// Build phases reported in a RunOutcome.
const (
	PhaseClean     = "clean"
	PhaseProbe     = "probe"
	PhaseConfigure = "configure"
	PhaseBuild     = "build"
	PhaseRun       = "run"
)

// RunOutcome is the result of driving configure -> build -> execute on a stage.
type RunOutcome struct {
	// Phase is the last phase that ran.
	Phase string
	// Success is true when every phase, including the test run, succeeded.
	// A test binary reporting failed assertions still counts as Success;
	// failures are carried in the report.
	Success bool
	ExitCode int
	TimedOut bool
	// Logs is the accumulated transcript of all phases.
	Logs string
	// Diagnosis is the targeted failure analysis block, empty on success.
	Diagnosis string
	// ReportXML is the contents of the framework XML report when produced.
	ReportXML string
}

// BuildDriver invokes the external toolchain on a staged build.
type BuildDriver interface {
	BuildAndRun(ctx context.Context, staged *StagedBuild, timeout time.Duration) (*RunOutcome, error)
}

// ResultParser turns framework and coverage tool output into uniform shapes.
type ResultParser interface {
	// ParseReport parses the framework XML, falling back to regex extraction
	// and finally to the all-passed literal before giving up.
	ParseReport(reportXML, consoleOutput string) (*TestReport, error)
	// CollectCoverage captures coverage from the build tree, preferring lcov
	// and degrading to raw gcov with a warning.
	CollectCoverage(ctx context.Context, buildDir string) (*CoverageSummary, error)
}

// LLMClient is the narrow interface to a chat-completions endpoint.
// The core's correctness does not depend on its output being valid C++.
type LLMClient interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// TestGenerator produces Catch2 test source for a target file of a project.
type TestGenerator interface {
	GenerateTestSource(ctx context.Context, project *Project, targetFile string, kind TestKind) (string, error)
}
