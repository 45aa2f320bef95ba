package llm

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/qtforge/cortex/pkg/core"
	"github.com/qtforge/cortex/pkg/lumber"
)

type generator struct {
	client core.LLMClient
	logger lumber.Logger
}

// NewGenerator returns a TestGenerator backed by the given client.
func NewGenerator(client core.LLMClient, logger lumber.Logger) core.TestGenerator {
	return &generator{client: client, logger: logger}
}

func (g *generator) GenerateTestSource(ctx context.Context, project *core.Project, targetFile string, kind core.TestKind) (string, error) {
	path := targetFile
	if !filepath.IsAbs(path) {
		path = filepath.Join(project.SourcePath, targetFile)
	}
	source, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read target file %s: %w", targetFile, err)
	}

	prompt := buildPrompt(project, targetFile, string(source), kind)
	completion, err := g.client.Generate(ctx, prompt)
	if err != nil {
		return "", err
	}

	testSource := stripCodeFences(completion)
	testSource = ensureFrameworkInclude(testSource)
	g.logger.Debugf("generated %d bytes of test source for %s", len(testSource), targetFile)
	return testSource, nil
}

func buildPrompt(project *core.Project, targetFile, source string, kind core.TestKind) string {
	scope := "unit tests exercising each public function in isolation"
	if kind == core.IntegrationTest {
		scope = "integration tests exercising interactions between the classes"
	}
	b := &strings.Builder{}
	fmt.Fprintf(b, "Write Catch2 v3 %s for the following C++ file from the %q project.\n", scope, project.Name)
	b.WriteString("Rules:\n")
	b.WriteString("- emit only C++ code, no explanations\n")
	b.WriteString("- include \"catch_amalgamated.hpp\" once, include the file's own header\n")
	b.WriteString("- do NOT define a main function\n")
	b.WriteString("- wrap logical operators in assertions in an extra pair of parentheses\n")
	fmt.Fprintf(b, "\nFile %s:\n```cpp\n%s\n```\n", targetFile, source)
	return b.String()
}

var codeFenceRegexp = regexp.MustCompile("(?s)```(?:cpp|c\\+\\+|cxx)?\\s*\\n(.*?)```")

// stripCodeFences extracts the code from a fenced block, LLMs wrap output in
// one despite instructions. Input without fences passes through unchanged.
func stripCodeFences(completion string) string {
	matches := codeFenceRegexp.FindAllStringSubmatch(completion, -1)
	if len(matches) == 0 {
		return strings.TrimSpace(completion)
	}
	blocks := make([]string, 0, len(matches))
	for _, m := range matches {
		blocks = append(blocks, strings.TrimSpace(m[1]))
	}
	return strings.Join(blocks, "\n\n")
}

func ensureFrameworkInclude(source string) string {
	if strings.Contains(source, "catch_amalgamated.hpp") || strings.Contains(source, "catch2/catch") {
		return source
	}
	return "#include \"catch_amalgamated.hpp\"\n" + source
}
