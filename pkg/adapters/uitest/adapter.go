package uitest

import (
	"context"
	"encoding/xml"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"time"

	"github.com/qtforge/cortex/pkg/core"
	errs "github.com/qtforge/cortex/pkg/errors"
	"github.com/qtforge/cortex/pkg/lumber"
)

// robot runner exit-code convention
const (
	exitAllPassed       = 0
	exitMaxFailureCount = 249
	exitUsageError      = 252
	exitSuiteNotFound   = 253
)

type adapter struct {
	tools  core.ToolFinder
	logger lumber.Logger
}

// New returns the GUI suite adapter.
func New(tools core.ToolFinder, logger lumber.Logger) core.Adapter {
	return &adapter{tools: tools, logger: logger}
}

func (a *adapter) Execute(ctx context.Context, ir *core.TestIR, cfg *core.ExecutionConfig) (*core.Outcome, error) {
	started := time.Now()
	outcome := &core.Outcome{}

	tools := a.tools.Tools()
	robot := tools.Get(core.ToolRobot)
	if !robot.Found {
		outcome.ErrorMessage = errs.ToolMissingErr(robot.Name, robot.Hint).Error()
		return outcome, nil
	}

	suiteDir := ir.SuiteDir
	if !filepath.IsAbs(suiteDir) {
		suiteDir = filepath.Join(cfg.SourcePath, suiteDir)
	}
	entry := ir.Entry
	if entry == "" {
		entry = "."
	}

	name := robot.Path
	args := []string{"--outputdir", cfg.ArtifactDir, filepath.Join(suiteDir, entry)}
	// headless workers have no display server, wrap with the virtual display
	if runtime.GOOS == "linux" && tools.Has(core.ToolXvfbRun) {
		args = append([]string{"-a", name}, args...)
		name = tools.Path(core.ToolXvfbRun)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Minute
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, name, args...)
	cmd.Dir = suiteDir
	out, err := cmd.CombinedOutput()
	outcome.Logs = string(out)
	outcome.DurationSeconds = time.Since(started).Seconds()

	if runCtx.Err() == context.DeadlineExceeded {
		outcome.ErrorMessage = fmt.Sprintf("GUI suite timed out after %s", timeout)
		return outcome, nil
	}

	exitCode := 0
	if err != nil {
		exitErr, ok := err.(*exec.ExitError)
		if !ok {
			outcome.ErrorMessage = err.Error()
			return outcome, nil
		}
		exitCode = exitErr.ExitCode()
	}

	outcome.Artifacts = a.collectArtifacts(cfg.ArtifactDir)
	a.applyStats(outcome, cfg.ArtifactDir)

	switch {
	case exitCode == exitAllPassed:
		outcome.Passed = true
		if outcome.Total == 0 {
			outcome.Total = 1
			outcome.PassedTests = 1
		}
	case exitCode >= 1 && exitCode <= exitMaxFailureCount:
		// the exit code is the failed-test count
		outcome.FailedTests = exitCode
		if outcome.Total < exitCode {
			outcome.Total = exitCode
		}
	case exitCode == exitUsageError:
		outcome.ErrorMessage = "GUI runner rejected its invocation, check the suite entry file"
	case exitCode == exitSuiteNotFound:
		outcome.ErrorMessage = fmt.Sprintf("GUI suite %s not found or contains no tests", ir.SuiteDir)
	default:
		outcome.ErrorMessage = fmt.Sprintf("GUI runner failed with internal error, exit code %d", exitCode)
	}
	return outcome, nil
}

// robotOutput is the statistics block of the runner's output.xml.
type robotOutput struct {
	XMLName    xml.Name `xml:"robot"`
	Statistics struct {
		Total struct {
			Stats []struct {
				Pass int `xml:"pass,attr"`
				Fail int `xml:"fail,attr"`
				Skip int `xml:"skip,attr"`
			} `xml:"stat"`
		} `xml:"total"`
	} `xml:"statistics"`
}

// applyStats refines the exit-code counts with the real totals from
// output.xml when it is readable.
func (a *adapter) applyStats(outcome *core.Outcome, artifactDir string) {
	raw, err := os.ReadFile(filepath.Join(artifactDir, "output.xml"))
	if err != nil {
		return
	}
	parsed := robotOutput{}
	if err := xml.Unmarshal(raw, &parsed); err != nil {
		a.logger.Debugf("could not parse runner output.xml: %v", err)
		return
	}
	if len(parsed.Statistics.Total.Stats) == 0 {
		return
	}
	stat := parsed.Statistics.Total.Stats[0]
	outcome.Total = stat.Pass + stat.Fail + stat.Skip
	outcome.PassedTests = stat.Pass
	outcome.FailedTests = stat.Fail
	outcome.SkippedTests = stat.Skip
}

func (a *adapter) collectArtifacts(artifactDir string) []core.Artifact {
	artifacts := []core.Artifact{}
	for _, file := range []struct{ name, kind string }{
		{"report.html", "report"},
		{"log.html", "log"},
		{"output.xml", "output"},
	} {
		path := filepath.Join(artifactDir, file.name)
		if _, err := os.Stat(path); err == nil {
			artifacts = append(artifacts, core.Artifact{Type: file.kind, Path: path})
		}
	}
	screenshots, _ := filepath.Glob(filepath.Join(artifactDir, "*.png"))
	for _, screenshot := range screenshots {
		artifacts = append(artifacts, core.Artifact{Type: "screenshot", Path: screenshot})
	}
	return artifacts
}
