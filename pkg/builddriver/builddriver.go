package builddriver

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/qtforge/cortex/config"
	"github.com/qtforge/cortex/pkg/constants"
	"github.com/qtforge/cortex/pkg/core"
	"github.com/qtforge/cortex/pkg/lumber"
)

const buildSubdir = "build"

type driver struct {
	cfg    *config.Config
	tools  core.ToolFinder
	logger lumber.Logger
}

// New returns a new BuildDriver.
func New(cfg *config.Config, tools core.ToolFinder, logger lumber.Logger) core.BuildDriver {
	return &driver{cfg: cfg, tools: tools, logger: logger}
}

func (d *driver) BuildAndRun(ctx context.Context, staged *core.StagedBuild, timeout time.Duration) (*core.RunOutcome, error) {
	if timeout <= 0 {
		timeout = constants.DefaultPhaseTimeout
	}
	outcome := &core.RunOutcome{}
	transcript := &strings.Builder{}
	for _, warning := range staged.Warnings {
		transcript.WriteString("[stager] " + warning + "\n")
	}

	tools := d.tools.Tools()
	env := d.buildEnv(tools)
	d.switchConsoleToUTF8(ctx)

	// clean stale configure state, leftover cache metadata from a previous
	// run causes opaque generator failures
	outcome.Phase = core.PhaseClean
	os.Remove(filepath.Join(staged.Dir, buildSubdir, "CMakeCache.txt"))
	os.RemoveAll(filepath.Join(staged.Dir, buildSubdir, "CMakeFiles"))

	outcome.Phase = core.PhaseProbe
	cmake := tools.Get(core.ToolCMake)
	if !cmake.Found {
		outcome.Diagnosis = toolMissingDiagnosis(cmake)
		outcome.Logs = transcript.String() + outcome.Diagnosis
		return outcome, nil
	}
	probe := d.run(ctx, timeout, staged.Dir, env, cmake.Path, "--version")
	transcript.WriteString(probe.render("probe"))
	if !probe.ok() {
		outcome.ExitCode = probe.exitCode
		outcome.TimedOut = probe.timedOut
		outcome.Diagnosis = fmt.Sprintf("the build generator at %s failed its version probe, the installation is broken", cmake.Path)
		outcome.Logs = transcript.String()
		return outcome, nil
	}

	outcome.Phase = core.PhaseConfigure
	configureArgs := d.configureArgs(tools)
	configure := d.run(ctx, timeout, staged.Dir, env, cmake.Path, configureArgs...)
	transcript.WriteString(configure.render("configure"))
	if !configure.ok() {
		outcome.ExitCode = configure.exitCode
		outcome.TimedOut = configure.timedOut
		outcome.Diagnosis = configureDiagnosis(cmake.Path, configureArgs, configure)
		outcome.Logs = transcript.String()
		return outcome, nil
	}

	outcome.Phase = core.PhaseBuild
	build := d.run(ctx, timeout, staged.Dir, env, cmake.Path, "--build", buildSubdir)
	transcript.WriteString(build.render("build"))
	if !build.ok() {
		outcome.ExitCode = build.exitCode
		outcome.TimedOut = build.timedOut
		outcome.Diagnosis = buildDiagnosis(build)
		outcome.Logs = transcript.String()
		return outcome, nil
	}

	outcome.Phase = core.PhaseRun
	binary := filepath.Join(staged.Dir, buildSubdir, staged.Target)
	if runtime.GOOS == "windows" {
		binary += ".exe"
	}
	reportPath := filepath.Join(staged.Dir, buildSubdir, constants.TestReportFile)
	testRun := d.run(ctx, timeout, filepath.Join(staged.Dir, buildSubdir), env,
		binary, "--reporter", "xml", "--out", reportPath)
	transcript.WriteString(testRun.render("run"))

	if raw, err := os.ReadFile(reportPath); err == nil {
		outcome.ReportXML = string(raw)
	}
	outcome.ExitCode = testRun.exitCode
	outcome.TimedOut = testRun.timedOut
	// a non-zero exit with a report present is failed assertions, not a
	// driver failure; the report carries the detail
	outcome.Success = testRun.err == nil || (outcome.ReportXML != "" && !testRun.timedOut && !testRun.crashed())
	if !outcome.Success {
		outcome.Diagnosis = runDiagnosis(binary, testRun)
	}
	outcome.Logs = transcript.String()
	return outcome, nil
}

// buildEnv tunes the child environment: compiler and toolkit bin directories
// prepended to the search path, UTF-8 locale, offscreen platform off Windows.
func (d *driver) buildEnv(tools core.ToolSet) []string {
	env := os.Environ()
	prepend := []string{}
	if compiler := tools.Path(core.ToolCompiler); compiler != "" {
		prepend = append(prepend, filepath.Dir(compiler))
	}
	if d.cfg.Tools.QtDir != "" {
		prepend = append(prepend, filepath.Join(d.cfg.Tools.QtDir, "bin"))
	}
	if len(prepend) > 0 {
		path := strings.Join(prepend, string(os.PathListSeparator))
		if current := os.Getenv("PATH"); current != "" {
			path += string(os.PathListSeparator) + current
		}
		env = setEnv(env, "PATH", path)
	}
	env = setEnv(env, "LC_ALL", "C.UTF-8")
	env = setEnv(env, "LANG", "C.UTF-8")
	if runtime.GOOS != "windows" && os.Getenv("QT_QPA_PLATFORM") == "" {
		env = setEnv(env, "QT_QPA_PLATFORM", "offscreen")
	}
	return env
}

func (d *driver) configureArgs(tools core.ToolSet) []string {
	args := []string{"-S", ".", "-B", buildSubdir}
	if runtime.GOOS == "windows" {
		args = append(args, "-G", "MinGW Makefiles")
	} else {
		args = append(args, "-G", "Unix Makefiles")
	}
	if compiler := tools.Path(core.ToolCompiler); compiler != "" {
		args = append(args, "-DCMAKE_CXX_COMPILER="+filepath.ToSlash(compiler))
	}
	if d.cfg.Tools.QtDir != "" {
		if _, err := os.Stat(d.cfg.Tools.QtDir); err == nil {
			args = append(args, "-DCMAKE_PREFIX_PATH="+filepath.ToSlash(d.cfg.Tools.QtDir))
		}
	}
	return args
}

// switchConsoleToUTF8 moves the Windows console to code page 65001 so
// compiler diagnostics survive the transcript without mojibake. Best effort,
// a locked-down console never blocks a build.
func (d *driver) switchConsoleToUTF8(ctx context.Context) {
	args := consoleCodePageArgs()
	if len(args) == 0 {
		return
	}
	if out, err := exec.CommandContext(ctx, args[0], args[1:]...).CombinedOutput(); err != nil {
		d.logger.Debugf("console code page switch failed: %v: %s", err, string(out))
	}
}

// consoleCodePageArgs returns the chcp invocation on Windows and nil
// elsewhere.
func consoleCodePageArgs() []string {
	if runtime.GOOS != "windows" {
		return nil
	}
	return []string{"cmd", "/c", "chcp", "65001"}
}

func setEnv(env []string, key, value string) []string {
	prefix := key + "="
	for i, kv := range env {
		if strings.HasPrefix(kv, prefix) {
			env[i] = prefix + value
			return env
		}
	}
	return append(env, prefix+value)
}

// phaseResult captures one external invocation.
type phaseResult struct {
	command  string
	output   string
	exitCode int
	timedOut bool
	err      error
}

func (p *phaseResult) ok() bool { return p.err == nil && !p.timedOut }

// crashed reports a system-fault exit, e.g. an access violation on Windows.
func (p *phaseResult) crashed() bool {
	return p.exitCode == accessViolationExitCode || p.exitCode < 0
}

func (p *phaseResult) render(phase string) string {
	b := &strings.Builder{}
	fmt.Fprintf(b, "==> [%s] %s\n", phase, p.command)
	b.WriteString(p.output)
	if p.timedOut {
		fmt.Fprintf(b, "[%s] timed out\n", phase)
	} else if p.err != nil {
		fmt.Fprintf(b, "[%s] exited with code %d\n", phase, p.exitCode)
	}
	return b.String()
}

// run executes one phase with its own timeout. Phase runs happen on the
// calling goroutine; the runner dispatches executions off the API path.
func (d *driver) run(ctx context.Context, timeout time.Duration, dir string, env []string, name string, args ...string) *phaseResult {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	cmd.Env = env
	out, err := cmd.CombinedOutput()

	result := &phaseResult{
		command: name + " " + strings.Join(args, " "),
		output:  string(out),
		err:     err,
	}
	if ctx.Err() == context.DeadlineExceeded {
		result.timedOut = true
	}
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			result.exitCode = exitErr.ExitCode()
		} else {
			result.exitCode = -1
		}
	}
	return result
}
