package staticanalysis

import (
	"context"
	"encoding/xml"
	"os/exec"
	"strings"

	"github.com/qtforge/cortex/pkg/core"
	errs "github.com/qtforge/cortex/pkg/errors"
	"github.com/qtforge/cortex/pkg/lumber"
)

type cppcheckRunner struct {
	tools  core.ToolFinder
	logger lumber.Logger
}

// cppcheck XML v2 output shape.
type cppcheckReport struct {
	XMLName xml.Name `xml:"results"`
	Errors  struct {
		Errors []struct {
			ID       string `xml:"id,attr"`
			Severity string `xml:"severity,attr"`
			Msg      string `xml:"msg,attr"`
			Location []struct {
				File   string `xml:"file,attr"`
				Line   int    `xml:"line,attr"`
				Column int    `xml:"column,attr"`
			} `xml:"location"`
		} `xml:"error"`
	} `xml:"errors"`
}

func (c *cppcheckRunner) run(ctx context.Context, ir *core.TestIR, files []string, cfg *core.ExecutionConfig) ([]core.Issue, string, error) {
	tool := c.tools.Tools().Get("cppcheck")
	if !tool.Found {
		return nil, "", errs.ToolMissingErr(tool.Name, tool.Hint)
	}

	args := []string{"--xml", "--xml-version=2", "--inline-suppr"}
	if len(ir.Checks) > 0 {
		args = append(args, "--enable="+strings.Join(ir.Checks, ","))
	} else {
		args = append(args, "--enable=warning,style,performance")
	}
	for _, rule := range ir.Rules {
		args = append(args, "--rule="+rule)
	}
	if qtInclude := detectQtIncludePath(); qtInclude != "" {
		args = append(args, "-I", qtInclude)
	}
	args = append(args, files...)

	cmd := exec.CommandContext(ctx, tool.Path, args...)
	// cppcheck writes the XML report to stderr, diagnostics to stdout
	out, err := cmd.CombinedOutput()
	if err != nil && ctx.Err() != nil {
		return nil, string(out), err
	}

	report := cppcheckReport{}
	xmlStart := strings.Index(string(out), "<?xml")
	if xmlStart < 0 {
		return nil, string(out), errs.ErrParseOutput
	}
	if uerr := xml.Unmarshal(out[xmlStart:], &report); uerr != nil {
		return nil, string(out), errs.ErrParseOutput
	}

	issues := make([]core.Issue, 0, len(report.Errors.Errors))
	for _, e := range report.Errors.Errors {
		issue := core.Issue{
			ID:       e.ID,
			Severity: normalizeSeverity(e.Severity),
			Message:  e.Msg,
			Tool:     core.ToolCppcheck,
		}
		if len(e.Location) > 0 {
			issue.File = e.Location[0].File
			issue.Line = e.Location[0].Line
			issue.Column = e.Location[0].Column
		}
		issues = append(issues, issue)
	}
	return issues, string(out), nil
}

func normalizeSeverity(severity string) string {
	switch severity {
	case "error":
		return core.SeverityError
	case "warning", "portability":
		return core.SeverityWarning
	case "performance":
		return core.SeverityPerformance
	case "information", "debug":
		return core.SeverityInformation
	default:
		return core.SeverityStyle
	}
}

// detectQtIncludePath probes the conventional toolkit include locations.
func detectQtIncludePath() string {
	for _, candidate := range []string{"/usr/include/x86_64-linux-gnu/qt5", "/usr/include/qt5", "/usr/include/qt6"} {
		if dirExists(candidate) {
			return candidate
		}
	}
	return ""
}
