package memcheck

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/qtforge/cortex/pkg/constants"
	"github.com/qtforge/cortex/pkg/core"
	errs "github.com/qtforge/cortex/pkg/errors"
	"github.com/qtforge/cortex/pkg/lumber"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// MemoryError is one instrumenter finding parsed from an "Error #N" block.
type MemoryError struct {
	ID         int      `json:"id"`
	Type       string   `json:"type"`
	Severity   string   `json:"severity"`
	Message    string   `json:"message"`
	StackTrace []string `json:"stack_trace"`
}

// memory error types
const (
	TypeMemoryLeak        = "memory_leak"
	TypeInvalidAccess     = "invalid_access"
	TypeUninitializedRead = "uninitialized_read"
	TypeUnknown           = "unknown"
)

type adapter struct {
	tools  core.ToolFinder
	logger lumber.Logger
}

// New returns the memory-instrumentation adapter.
func New(tools core.ToolFinder, logger lumber.Logger) core.Adapter {
	return &adapter{tools: tools, logger: logger}
}

func (a *adapter) Execute(ctx context.Context, ir *core.TestIR, cfg *core.ExecutionConfig) (*core.Outcome, error) {
	started := time.Now()
	outcome := &core.Outcome{}

	drmemory := a.tools.Tools().Get(core.ToolDrMemory)
	if !drmemory.Found {
		outcome.ErrorMessage = errs.ToolMissingErr(drmemory.Name, drmemory.Hint).Error()
		return outcome, nil
	}

	binary := ir.BinaryPath
	if !filepath.IsAbs(binary) {
		binary = filepath.Join(cfg.SourcePath, binary)
	}
	if _, err := os.Stat(binary); err != nil {
		outcome.ErrorMessage = fmt.Sprintf("target binary %s does not exist", ir.BinaryPath)
		return outcome, nil
	}

	args := []string{"-batch", "--", binary}
	args = append(args, ir.Args...)

	runCtx, cancel := context.WithTimeout(ctx, constants.DefaultMemcheckTimeout)
	defer cancel()
	cmd := exec.CommandContext(runCtx, drmemory.Path, args...)
	cmd.Dir = cfg.SourcePath
	out, err := cmd.CombinedOutput()
	outcome.Logs = string(out)
	outcome.DurationSeconds = time.Since(started).Seconds()

	if runCtx.Err() == context.DeadlineExceeded {
		outcome.ErrorMessage = fmt.Sprintf("memory instrumentation timed out after %s", constants.DefaultMemcheckTimeout)
		return outcome, nil
	}
	// the instrumenter exits non-zero when it found errors, that is a
	// finding, not a crash
	if err != nil && len(out) == 0 {
		outcome.ErrorMessage = err.Error()
		return outcome, nil
	}

	memErrors := ParseReport(string(out))
	errorCount := 0
	for _, memErr := range memErrors {
		if memErr.Severity == core.SeverityError {
			errorCount++
		}
	}

	summaryPath := filepath.Join(cfg.ArtifactDir, "memory_report.json")
	if payload, merr := json.MarshalIndent(memErrors, "", "  "); merr == nil {
		if werr := os.WriteFile(summaryPath, payload, 0644); werr == nil {
			outcome.Artifacts = append(outcome.Artifacts, core.Artifact{Type: "memory_report", Path: summaryPath})
		}
	}

	outcome.Total = len(memErrors)
	outcome.FailedTests = errorCount
	outcome.PassedTests = len(memErrors) - errorCount
	outcome.Passed = len(memErrors) == 0
	outcome.Extras = map[string]interface{}{
		"memory_errors": len(memErrors),
	}
	return outcome, nil
}

var errorHeaderRegexp = regexp.MustCompile(`^Error #(\d+):\s*(.*)$`)

// ParseReport parses "Error #N: TYPE ..." blocks and their indented stack
// frames from the instrumenter transcript.
func ParseReport(output string) []MemoryError {
	memErrors := []MemoryError{}
	var current *MemoryError

	scanner := bufio.NewScanner(strings.NewReader(output))
	for scanner.Scan() {
		line := scanner.Text()
		if m := errorHeaderRegexp.FindStringSubmatch(strings.TrimSpace(line)); m != nil {
			if current != nil {
				memErrors = append(memErrors, *current)
			}
			id := 0
			fmt.Sscanf(m[1], "%d", &id)
			message := m[2]
			errType, severity := classify(message)
			current = &MemoryError{ID: id, Type: errType, Severity: severity, Message: message}
			continue
		}
		if current == nil {
			continue
		}
		trimmed := strings.TrimSpace(line)
		// stack frames are "# 0 module!function [file:line]" lines
		if strings.HasPrefix(trimmed, "#") {
			current.StackTrace = append(current.StackTrace, trimmed)
			continue
		}
		if trimmed == "" {
			memErrors = append(memErrors, *current)
			current = nil
		}
	}
	if current != nil {
		memErrors = append(memErrors, *current)
	}
	return memErrors
}

func classify(message string) (errType, severity string) {
	upper := strings.ToUpper(message)
	switch {
	case strings.Contains(upper, "LEAK"):
		return TypeMemoryLeak, core.SeverityError
	case strings.Contains(upper, "UNADDRESSABLE"), strings.Contains(upper, "INVALID HEAP"):
		return TypeInvalidAccess, core.SeverityError
	case strings.Contains(upper, "UNINITIALIZED"):
		return TypeUninitializedRead, core.SeverityWarning
	default:
		return TypeUnknown, core.SeverityWarning
	}
}
