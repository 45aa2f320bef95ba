package resultparser

import (
	"bufio"
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/qtforge/cortex/pkg/core"
)

const coverageToolTimeout = 2 * time.Minute

// CollectCoverage captures coverage from a build tree. lcov gives the full
// line/branch/function rollup; with only gcov the branch and function totals
// stay zero and a warning says so.
func (p *parser) CollectCoverage(ctx context.Context, buildDir string) (*core.CoverageSummary, error) {
	tools := p.tools.Tools()
	if tools.Has(core.ToolLcov) {
		summary, err := p.collectWithLcov(ctx, tools.Path(core.ToolLcov), buildDir)
		if err == nil {
			return summary, nil
		}
		p.logger.Warnf("lcov capture failed, falling back to gcov: %v", err)
	}
	if tools.Has(core.ToolGcov) {
		return p.collectWithGcov(ctx, tools.Path(core.ToolGcov), buildDir)
	}
	return nil, nil
}

func (p *parser) collectWithLcov(ctx context.Context, lcovPath, buildDir string) (*core.CoverageSummary, error) {
	ctx, cancel := context.WithTimeout(ctx, coverageToolTimeout)
	defer cancel()

	infoPath := filepath.Join(buildDir, "coverage.info")
	cmd := exec.CommandContext(ctx, lcovPath,
		"--capture", "--directory", buildDir, "--output-file", infoPath)
	cmd.Dir = buildDir
	if out, err := cmd.CombinedOutput(); err != nil {
		p.logger.Debugf("lcov output: %s", string(out))
		return nil, err
	}
	raw, err := os.ReadFile(infoPath)
	if err != nil {
		return nil, err
	}
	return parseLcovInfo(string(raw)), nil
}

// parseLcovInfo sums the per-file LF/LH/BRF/BRH/FNF/FNH records into one
// rollup.
func parseLcovInfo(info string) *core.CoverageSummary {
	summary := &core.CoverageSummary{}
	scanner := bufio.NewScanner(strings.NewReader(info))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case strings.HasPrefix(line, "LF:"):
			summary.LinesTotal += atoi(line[3:])
		case strings.HasPrefix(line, "LH:"):
			summary.LinesCovered += atoi(line[3:])
		case strings.HasPrefix(line, "BRF:"):
			summary.BranchesTotal += atoi(line[4:])
		case strings.HasPrefix(line, "BRH:"):
			summary.BranchesCovered += atoi(line[4:])
		case strings.HasPrefix(line, "FNF:"):
			summary.FunctionsTotal += atoi(line[4:])
		case strings.HasPrefix(line, "FNH:"):
			summary.FunctionsCovered += atoi(line[4:])
		}
	}
	if summary.LinesTotal > 0 {
		summary.Percentage = 100 * float64(summary.LinesCovered) / float64(summary.LinesTotal)
	}
	return summary
}

func (p *parser) collectWithGcov(ctx context.Context, gcovPath, buildDir string) (*core.CoverageSummary, error) {
	summary := &core.CoverageSummary{
		Warning: "coverage captured with gcov only, branch and function totals are unavailable",
	}
	gcdaFiles := []string{}
	_ = filepath.Walk(buildDir, func(path string, info os.FileInfo, err error) error {
		if err == nil && !info.IsDir() && strings.HasSuffix(path, ".gcda") {
			gcdaFiles = append(gcdaFiles, path)
		}
		return nil
	})
	if len(gcdaFiles) == 0 {
		summary.Warning = "no coverage data files were produced"
		return summary, nil
	}

	for _, gcda := range gcdaFiles {
		dir := filepath.Dir(gcda)
		runCtx, cancel := context.WithTimeout(ctx, coverageToolTimeout)
		cmd := exec.CommandContext(runCtx, gcovPath, filepath.Base(gcda))
		cmd.Dir = dir
		if out, err := cmd.CombinedOutput(); err != nil {
			p.logger.Debugf("gcov failed for %s: %v, output: %s", gcda, err, string(out))
			cancel()
			continue
		}
		cancel()
		gcovFiles, _ := filepath.Glob(filepath.Join(dir, "*.gcov"))
		for _, gcovFile := range gcovFiles {
			covered, total := parseGcovFile(gcovFile)
			summary.LinesCovered += covered
			summary.LinesTotal += total
			os.Remove(gcovFile)
		}
	}
	if summary.LinesTotal > 0 {
		summary.Percentage = 100 * float64(summary.LinesCovered) / float64(summary.LinesTotal)
	}
	return summary, nil
}

// parseGcovFile counts executable lines and hits in the gcov line format
// `exec_count:line_no:source`. `-` marks non-executable lines, `#####` and
// `=====` mark executable lines never hit.
func parseGcovFile(path string) (covered, total int) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0
	}
	defer f.Close()
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		parts := strings.SplitN(scanner.Text(), ":", 3)
		if len(parts) < 3 {
			continue
		}
		count := strings.TrimSpace(parts[0])
		if count == "-" {
			continue
		}
		total++
		if count != "#####" && count != "=====" {
			covered++
		}
	}
	return covered, total
}
