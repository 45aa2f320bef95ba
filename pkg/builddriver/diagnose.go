package builddriver

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/qtforge/cortex/pkg/core"
)

// accessViolationExitCode is the Windows STATUS_ACCESS_VIOLATION code,
// surfaced specifically because Qt autogen crashes this way on bad paths.
const accessViolationExitCode = -1073741819 // 0xC0000005

func toolMissingDiagnosis(tool *core.Tool) string {
	return fmt.Sprintf("required tool %q was not found. %s\n", tool.Name, tool.Hint)
}

func configureDiagnosis(cmakePath string, args []string, result *phaseResult) string {
	b := &strings.Builder{}
	b.WriteString("=== configure failed ===\n")
	fmt.Fprintf(b, "exit code: %d", result.exitCode)
	if runtime.GOOS == "windows" {
		fmt.Fprintf(b, " (0x%08X)", uint32(result.exitCode))
		if result.exitCode == accessViolationExitCode {
			b.WriteString(" ACCESS VIOLATION")
		}
	}
	b.WriteString("\n")
	fmt.Fprintf(b, "command: %s %s\n", cmakePath, strings.Join(args, " "))
	b.WriteString("output:\n")
	b.WriteString(result.output)
	b.WriteString("likely causes:\n")
	b.WriteString("  - the Qt installation is missing or CMAKE_PREFIX_PATH does not point at it\n")
	b.WriteString("  - the stage path contains characters the generator cannot handle\n")
	b.WriteString("  - the emitted CMakeLists.txt references a source that failed to stage\n")
	return b.String()
}

// errorBuckets classify a failed build transcript into a targeted diagnosis.
// Order matters: the first matching bucket wins.
var errorBuckets = []struct {
	keywords  []string
	diagnosis string
}{
	{
		[]string{"AutoMoc", "AUTOMOC", "autogen"},
		"the toolkit code generator failed. This is usually a path problem: verify the stage path is ASCII-only and the autogen output directory is writable.",
	},
	{
		[]string{"is private within this context", "private member"},
		"the test reaches a private member without the testing access shim. The member's class is not covered by the header shim; access it through a public API instead.",
	},
	{
		[]string{"was not declared in this scope", "undeclared identifier", "has not been declared"},
		"the test references a name that does not exist in the user sources. The generated test likely hallucinated an identifier.",
	},
	{
		[]string{"incomplete type"},
		"a type is used where only a forward declaration is visible. The test needs the defining header included.",
	},
	{
		[]string{"invalid conversion", "cannot convert"},
		"an argument or assignment has the wrong type. The generated test passes incompatible values.",
	},
	{
		[]string{"no matching function"},
		"no overload matches the call. The generated test uses a constructor or function signature that does not exist.",
	},
}

func buildDiagnosis(result *phaseResult) string {
	b := &strings.Builder{}
	b.WriteString("=== build failed ===\n")
	for _, bucket := range errorBuckets {
		for _, keyword := range bucket.keywords {
			if strings.Contains(result.output, keyword) {
				fmt.Fprintf(b, "matched %q: %s\n", keyword, bucket.diagnosis)
				return b.String()
			}
		}
	}
	b.WriteString("no known error pattern matched, inspect the compiler output above\n")
	return b.String()
}

func runDiagnosis(binary string, result *phaseResult) string {
	b := &strings.Builder{}
	b.WriteString("=== test run failed ===\n")
	fmt.Fprintf(b, "binary: %s\n", binary)
	if result.timedOut {
		b.WriteString("the test binary exceeded its timeout, a test is likely hanging on user input or an event loop\n")
		return b.String()
	}
	fmt.Fprintf(b, "exit code: %d", result.exitCode)
	if runtime.GOOS == "windows" && result.exitCode == accessViolationExitCode {
		fmt.Fprintf(b, " (0x%08X) ACCESS VIOLATION, the test dereferenced an invalid pointer", uint32(result.exitCode))
	}
	b.WriteString("\n")
	return b.String()
}
