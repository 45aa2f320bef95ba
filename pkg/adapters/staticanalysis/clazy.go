package staticanalysis

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/qtforge/cortex/pkg/constants"
	"github.com/qtforge/cortex/pkg/core"
	errs "github.com/qtforge/cortex/pkg/errors"
	"github.com/qtforge/cortex/pkg/lumber"
)

type clazyRunner struct {
	tools  core.ToolFinder
	logger lumber.Logger
}

// clazy diagnostic line: file:line:col: warning: message [-Wclazy-check]
var clazyLineRegexp = regexp.MustCompile(`^(.+?):(\d+):(\d+):\s+(warning|error):\s+(.*?)\s+\[-W(clazy-[\w-]+)\]`)

func (c *clazyRunner) run(ctx context.Context, ir *core.TestIR, files []string, cfg *core.ExecutionConfig) ([]core.Issue, string, error) {
	tool := c.tools.Tools().Get(core.ToolClazyBin)
	if !tool.Found {
		return nil, "", errs.ToolMissingErr(tool.Name, tool.Hint)
	}

	compileCommands := filepath.Join(cfg.SourcePath, "compile_commands.json")
	if _, err := os.Stat(compileCommands); err != nil {
		// clazy-standalone needs a compilation database, emit one covering
		// the discovered files when the project has none
		if werr := writeCompileCommands(compileCommands, cfg.SourcePath, files); werr != nil {
			return nil, "", fmt.Errorf("failed to emit compile commands database: %w", werr)
		}
		c.logger.Debugf("emitted compile_commands.json for project %s", cfg.Project.Name)
	}

	checks := "level1"
	if len(ir.Checks) > 0 {
		checks = strings.Join(ir.Checks, ",")
	}

	logs := &strings.Builder{}
	issues := []core.Issue{}
	for _, file := range files {
		// headers are analyzed through their including sources
		if contains(constants.HeaderExtensions, strings.ToLower(filepath.Ext(file))) {
			continue
		}
		cmd := exec.CommandContext(ctx, tool.Path, "-checks="+checks, "-p", compileCommands, file)
		out, err := cmd.CombinedOutput()
		logs.Write(out)
		if ctx.Err() != nil {
			return nil, logs.String(), err
		}
		issues = append(issues, parseClazyOutput(string(out))...)
	}
	return issues, logs.String(), nil
}

func parseClazyOutput(out string) []core.Issue {
	issues := []core.Issue{}
	for _, line := range strings.Split(out, "\n") {
		m := clazyLineRegexp.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		lineNo, _ := strconv.Atoi(m[2])
		column, _ := strconv.Atoi(m[3])
		severity := core.SeverityWarning
		if m[4] == "error" {
			severity = core.SeverityError
		}
		issues = append(issues, core.Issue{
			File:     m[1],
			Line:     lineNo,
			Column:   column,
			Severity: severity,
			ID:       m[6],
			Message:  m[5],
			Tool:     core.ToolClazy,
		})
	}
	return issues
}

// writeCompileCommands emits a minimal compilation database: one g++ entry
// per source file with the detected toolkit include path.
func writeCompileCommands(path, sourceDir string, files []string) error {
	qtInclude := detectQtIncludePath()
	entries := []map[string]string{}
	for _, file := range files {
		ext := strings.ToLower(filepath.Ext(file))
		if !contains(constants.SourceExtensions, ext) {
			continue
		}
		command := "g++ -std=c++17 -fPIC -c " + file
		if qtInclude != "" {
			command += " -I" + qtInclude
			for _, module := range []string{"QtCore", "QtGui", "QtWidgets"} {
				if dirExists(filepath.Join(qtInclude, module)) {
					command += " -I" + filepath.Join(qtInclude, module)
				}
			}
		}
		entries = append(entries, map[string]string{
			"directory": sourceDir,
			"command":   command,
			"file":      file,
		})
	}
	payload, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, payload, 0644)
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
