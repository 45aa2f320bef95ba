package core

import (
	errs "github.com/qtforge/cortex/pkg/errors"
)

// TestKind is the discriminator tag of a test IR. Adapters are selected
// from a table keyed by this tag.
type TestKind string

// Test kind values.
const (
	UnitTest        TestKind = "unit"
	IntegrationTest TestKind = "integration"
	StaticTest      TestKind = "static"
	UITest          TestKind = "ui"
	SystemTest      TestKind = "system"
	MemoryTest      TestKind = "memory"
)

// Static-analysis tool names accepted in a static IR.
const (
	ToolCppcheck = "cppcheck"
	ToolClazy    = "clazy"
)

// TestIR is the discriminated record stored on a test case that tells an
// adapter what to do. Only the fields of the variant selected by Type are set.
type TestIR struct {
	Type TestKind `json:"type"`

	// unit / integration
	TargetFile string `json:"target_file,omitempty"`
	TestCode   string `json:"test_code,omitempty"`

	// static
	Tool     string   `json:"tool,omitempty"`
	Paths    []string `json:"paths,omitempty"`
	Checks   []string `json:"checks,omitempty"`
	Excludes []string `json:"excludes,omitempty"`
	Rules    []string `json:"rules,omitempty"`

	// ui / system
	SuiteDir string `json:"suite_dir,omitempty"`
	Entry    string `json:"entry,omitempty"`

	// memory
	BinaryPath string   `json:"binary_path,omitempty"`
	Args       []string `json:"args,omitempty"`
}

// Validate checks that the IR carries the fields its variant requires.
// An unknown type tag is a validation error, never a dispatch failure.
func (ir *TestIR) Validate() error {
	if ir == nil {
		return errs.ErrInvalidTestIR
	}
	switch ir.Type {
	case UnitTest, IntegrationTest:
		if ir.TestCode == "" {
			return errs.MissingInReqErr("test_ir.test_code")
		}
	case StaticTest:
		if ir.Tool != ToolCppcheck && ir.Tool != ToolClazy {
			return errs.InvalidInReqErr("test_ir.tool")
		}
	case UITest, SystemTest:
		if ir.SuiteDir == "" {
			return errs.MissingInReqErr("test_ir.suite_dir")
		}
	case MemoryTest:
		if ir.BinaryPath == "" {
			return errs.MissingInReqErr("test_ir.binary_path")
		}
	default:
		return errs.ErrInvalidTestIR
	}
	return nil
}
