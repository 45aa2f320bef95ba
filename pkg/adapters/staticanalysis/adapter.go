package staticanalysis

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

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// systemIncludePrefixes are paths whose issues never belong to the user.
var systemIncludePrefixes = []string{"/usr/include/", "/usr/local/include/", "C:/Program Files"}

// toolRunner invokes one analyzer and maps its output to uniform issues.
type toolRunner interface {
	run(ctx context.Context, ir *core.TestIR, files []string, cfg *core.ExecutionConfig) ([]core.Issue, string, error)
}

type adapter struct {
	tools     core.ToolFinder
	artifacts *artifacts.Store
	analyses  core.StaticAnalysisStore
	runners   map[string]toolRunner
	logger    lumber.Logger
}

// New returns the static-analysis adapter. It routes to a per-tool runner by
// the IR's tool tag.
func New(tools core.ToolFinder,
	artifactStore *artifacts.Store,
	analyses core.StaticAnalysisStore,
	logger lumber.Logger) core.Adapter {
	return &adapter{
		tools:     tools,
		artifacts: artifactStore,
		analyses:  analyses,
		logger:    logger,
		runners: map[string]toolRunner{
			core.ToolCppcheck: &cppcheckRunner{tools: tools, logger: logger},
			core.ToolClazy:    &clazyRunner{tools: tools, logger: logger},
		},
	}
}

func (a *adapter) Execute(ctx context.Context, ir *core.TestIR, cfg *core.ExecutionConfig) (*core.Outcome, error) {
	started := time.Now()
	outcome := &core.Outcome{}

	runner, ok := a.runners[ir.Tool]
	if !ok {
		outcome.ErrorMessage = fmt.Sprintf("unsupported analysis tool %q", ir.Tool)
		return outcome, nil
	}

	roots := ir.Paths
	if len(roots) == 0 {
		roots = []string{cfg.SourcePath}
	}
	files, err := discoverFiles(roots, ir.Excludes)
	if err != nil {
		outcome.ErrorMessage = fmt.Sprintf("file discovery failed: %v", err)
		return outcome, nil
	}
	if len(files) == 0 {
		outcome.ErrorMessage = "no source files found under the scan roots"
		return outcome, nil
	}

	runCtx, cancel := context.WithTimeout(ctx, constants.DefaultAnalyzerTimeout)
	defer cancel()
	issues, logs, err := runner.run(runCtx, ir, files, cfg)
	outcome.Logs = logs
	outcome.DurationSeconds = time.Since(started).Seconds()
	if err != nil {
		if runCtx.Err() == context.DeadlineExceeded {
			outcome.ErrorMessage = fmt.Sprintf("%s timed out after %s: %v", ir.Tool, constants.DefaultAnalyzerTimeout, errs.ErrToolTimeout)
		} else {
			outcome.ErrorMessage = err.Error()
		}
		return outcome, nil
	}

	issues = filterIssues(issues)
	summary := summarize(issues)

	resultsPath, werr := a.persistResults(cfg, ir.Tool, issues, summary)
	if werr != nil {
		a.logger.Errorf("failed to persist analysis results for execution %s: %v", cfg.ExecutionID, werr)
	} else {
		outcome.Artifacts = append(outcome.Artifacts, core.Artifact{Type: "analysis", Path: resultsPath})
	}

	outcome.Total = len(issues)
	outcome.FailedTests = summary.errors
	outcome.PassedTests = len(issues) - summary.errors
	outcome.Passed = summary.errors == 0
	outcome.Extras = map[string]interface{}{
		"tool":          ir.Tool,
		"total_issues":  len(issues),
		"error_count":   summary.errors,
		"warning_count": summary.warnings,
		"style_count":   summary.styles,
	}
	return outcome, nil
}

// discoverFiles recursively collects source and header files, skipping build
// trees and generated files.
func discoverFiles(roots, excludes []string) ([]string, error) {
	files := []string{}
	for _, root := range roots {
		err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			name := info.Name()
			if info.IsDir() {
				if strings.HasPrefix(name, ".") || strings.HasPrefix(name, "build") {
					return filepath.SkipDir
				}
				return nil
			}
			ext := strings.ToLower(filepath.Ext(name))
			if !contains(constants.SourceExtensions, ext) && !contains(constants.HeaderExtensions, ext) {
				return nil
			}
			for _, prefix := range constants.GeneratedFilePrefixes {
				if strings.HasPrefix(name, prefix) {
					return nil
				}
			}
			for _, pattern := range excludes {
				if matched, _ := filepath.Match(pattern, name); matched {
					return nil
				}
			}
			files = append(files, path)
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return files, nil
}

func contains(haystack []string, needle string) bool {
	for _, s := range haystack {
		if s == needle {
			return true
		}
	}
	return false
}

// filterIssues drops issues from system include paths and build trees.
func filterIssues(issues []core.Issue) []core.Issue {
	out := make([]core.Issue, 0, len(issues))
	for _, issue := range issues {
		file := filepath.ToSlash(issue.File)
		if underSystemInclude(file) || underBuildDir(file) {
			continue
		}
		out = append(out, issue)
	}
	return out
}

func underSystemInclude(file string) bool {
	for _, prefix := range systemIncludePrefixes {
		if strings.HasPrefix(file, prefix) {
			return true
		}
	}
	return false
}

func underBuildDir(file string) bool {
	for _, segment := range strings.Split(file, "/") {
		if segment == "build" {
			return true
		}
	}
	return false
}

type issueSummary struct {
	errors   int
	warnings int
	styles   int
}

func summarize(issues []core.Issue) issueSummary {
	summary := issueSummary{}
	for _, issue := range issues {
		switch issue.Severity {
		case core.SeverityError:
			summary.errors++
		case core.SeverityWarning:
			summary.warnings++
		default:
			summary.styles++
		}
	}
	return summary
}

// persistResults writes the full issue list under the timestamped analysis
// directory and materializes the summary record.
func (a *adapter) persistResults(cfg *core.ExecutionConfig, tool string, issues []core.Issue, summary issueSummary) (string, error) {
	timestamp := time.Now().UTC().Format("20060102T150405")
	dir, err := a.artifacts.StaticAnalysisDir(cfg.Project.ID, timestamp)
	if err != nil {
		return "", err
	}
	resultsPath := filepath.Join(dir, "results.json")
	payload, err := json.MarshalIndent(map[string]interface{}{
		"tool":   tool,
		"issues": issues,
	}, "", "  ")
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(resultsPath, payload, 0644); err != nil {
		return "", err
	}

	record := &core.StaticAnalysis{
		ID:           utils.GenerateUUID(),
		ProjectID:    cfg.Project.ID,
		Tool:         tool,
		Timestamp:    timestamp,
		ResultsPath:  resultsPath,
		TotalIssues:  len(issues),
		ErrorCount:   summary.errors,
		WarningCount: summary.warnings,
		StyleCount:   summary.styles,
		Created:      time.Now(),
	}
	if err := a.analyses.Create(context.Background(), record); err != nil {
		a.logger.Errorf("failed to record analysis for project %s: %v", cfg.Project.ID, err)
	}
	return resultsPath, nil
}
