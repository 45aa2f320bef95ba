package builddriver

import (
	"testing"

	"github.com/qtforge/cortex/pkg/core"

	"github.com/stretchr/testify/assert"
)

func TestBuildDiagnosisBuckets(t *testing.T) {
	tests := []struct {
		name   string
		output string
		want   string
	}{
		{
			name:   "automoc_failure",
			output: "AutoMoc subprocess error: cannot write moc_widget.cpp",
			want:   "code generator failed",
		},
		{
			name:   "private_member",
			output: "error: 'int MainWindow::counter' is private within this context",
			want:   "testing access shim",
		},
		{
			name:   "undeclared_identifier",
			output: "error: 'frobnicate' was not declared in this scope",
			want:   "hallucinated an identifier",
		},
		{
			name:   "incomplete_type",
			output: "error: invalid use of incomplete type 'class DiagramScene'",
			want:   "forward declaration",
		},
		{
			name:   "bad_conversion",
			output: "error: invalid conversion from 'int' to 'QWidget*'",
			want:   "wrong type",
		},
		{
			name:   "no_overload",
			output: "error: no matching function for call to 'DiagramItem::DiagramItem()'",
			want:   "no overload matches",
		},
		{
			name:   "unknown_failure",
			output: "collect2: error: ld returned 1 exit status",
			want:   "no known error pattern matched",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			diagnosis := buildDiagnosis(&phaseResult{output: tt.output, exitCode: 1})
			assert.Contains(t, diagnosis, "=== build failed ===")
			assert.Contains(t, diagnosis, tt.want)
		})
	}
}

// buckets are ordered, the first match wins even when several apply
func TestBuildDiagnosisBucketOrder(t *testing.T) {
	output := "AutoMoc error\nerror: 'x' was not declared in this scope"
	diagnosis := buildDiagnosis(&phaseResult{output: output, exitCode: 1})
	assert.Contains(t, diagnosis, "code generator failed")
	assert.NotContains(t, diagnosis, "hallucinated")
}

func TestConfigureDiagnosis(t *testing.T) {
	result := &phaseResult{output: "CMake Error: could not find Qt5Config.cmake\n", exitCode: 1}
	diagnosis := configureDiagnosis("/usr/bin/cmake", []string{"-S", ".", "-B", "build"}, result)

	assert.Contains(t, diagnosis, "=== configure failed ===")
	assert.Contains(t, diagnosis, "exit code: 1")
	assert.Contains(t, diagnosis, "/usr/bin/cmake -S . -B build")
	assert.Contains(t, diagnosis, "Qt5Config.cmake")
	assert.Contains(t, diagnosis, "likely causes:")
}

func TestRunDiagnosisTimeout(t *testing.T) {
	diagnosis := runDiagnosis("/stage/build/cortex_tests", &phaseResult{timedOut: true})
	assert.Contains(t, diagnosis, "=== test run failed ===")
	assert.Contains(t, diagnosis, "exceeded its timeout")
}

func TestRunDiagnosisExitCode(t *testing.T) {
	diagnosis := runDiagnosis("/stage/build/cortex_tests", &phaseResult{exitCode: 134})
	assert.Contains(t, diagnosis, "exit code: 134")
}

func TestToolMissingDiagnosis(t *testing.T) {
	diagnosis := toolMissingDiagnosis(&core.Tool{Name: "cmake", Hint: "install cmake and ensure it is on PATH"})
	assert.Contains(t, diagnosis, `"cmake"`)
	assert.Contains(t, diagnosis, "install cmake")
}
