package llm

import (
	"strings"
	"testing"

	"github.com/qtforge/cortex/pkg/core"

	"github.com/stretchr/testify/assert"
)

func TestStripCodeFences(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			"cpp fence",
			"Here you go:\n```cpp\nTEST_CASE(\"a\") {}\n```\nHope that helps!",
			"TEST_CASE(\"a\") {}",
		},
		{
			"bare fence",
			"```\nTEST_CASE(\"a\") {}\n```",
			"TEST_CASE(\"a\") {}",
		},
		{
			"c++ fence",
			"```c++\nint x = 1;\n```",
			"int x = 1;",
		},
		{
			"no fence passes through",
			"  TEST_CASE(\"a\") {}\n",
			"TEST_CASE(\"a\") {}",
		},
		{
			"multiple fences joined",
			"```cpp\n#include \"widget.h\"\n```\nand then\n```cpp\nTEST_CASE(\"b\") {}\n```",
			"#include \"widget.h\"\n\nTEST_CASE(\"b\") {}",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, stripCodeFences(tt.in))
		})
	}
}

func TestEnsureFrameworkInclude(t *testing.T) {
	out := ensureFrameworkInclude("TEST_CASE(\"a\") {}\n")
	assert.True(t, strings.HasPrefix(out, "#include \"catch_amalgamated.hpp\"\n"))

	already := "#include \"catch_amalgamated.hpp\"\nTEST_CASE(\"a\") {}\n"
	assert.Equal(t, already, ensureFrameworkInclude(already))

	v3Header := "#include <catch2/catch_test_macros.hpp>\nTEST_CASE(\"a\") {}\n"
	assert.Equal(t, v3Header, ensureFrameworkInclude(v3Header))
}

func TestBuildPrompt(t *testing.T) {
	project := &core.Project{Name: "diagramscene"}

	prompt := buildPrompt(project, "widget.cpp", "class Widget {};", core.UnitTest)
	assert.Contains(t, prompt, "unit tests")
	assert.Contains(t, prompt, "\"diagramscene\"")
	assert.Contains(t, prompt, "class Widget {};")
	assert.Contains(t, prompt, "do NOT define a main function")

	prompt = buildPrompt(project, "widget.cpp", "class Widget {};", core.IntegrationTest)
	assert.Contains(t, prompt, "integration tests")
}
