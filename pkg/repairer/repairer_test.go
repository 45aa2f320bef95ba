package repairer

import (
	"strings"
	"testing"

	"github.com/qtforge/cortex/pkg/lumber"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLogger(t *testing.T) lumber.Logger {
	logger, err := lumber.NewLogger(&lumber.LoggingConfig{EnableConsole: true, ConsoleLevel: lumber.Error}, false, lumber.InstanceZapLogger)
	require.NoError(t, err)
	return logger
}

func TestStripStrayMain(t *testing.T) {
	r := New(newTestLogger(t))
	src := `#include <catch_amalgamated.hpp>
TEST_CASE("adds", "[math]") {
	CHECK(1 + 1 == 2);
}
int main(int argc, char** argv) {
	return Catch::Session().run(argc, argv);
}
`
	repaired, changes := r.Repair(src)
	assert.NotContains(t, repaired, "int main")
	assert.Contains(t, repaired, `TEST_CASE("adds", "[math]")`)
	assert.Contains(t, strings.Join(changes, "\n"), "strip-stray-main")
}

func TestStripStrayMainIgnoresStringsAndComments(t *testing.T) {
	r := New(newTestLogger(t))
	src := `// int main() { not real }
TEST_CASE("doc", "[doc]") {
	CHECK(describe() == "int main() { return 0; }");
}
`
	repaired, changes := r.Repair(src)
	assert.Equal(t, src, repaired)
	assert.Empty(t, changes)
}

func TestDedupeFrameworkInclude(t *testing.T) {
	r := New(newTestLogger(t))
	src := "#include <catch_amalgamated.hpp>\n#include \"catch_amalgamated.hpp\"\n#include <catch2/catch.hpp>\nTEST_CASE(\"x\", \"[x]\") {\n}\n"
	repaired, changes := r.Repair(src)
	assert.Equal(t, 1, strings.Count(repaired, "catch"))
	assert.Len(t, changes, 2)
}

func TestRewriteLineIsValid(t *testing.T) {
	r := New(newTestLogger(t))
	src := `TEST_CASE("line", "[line]") {
	QLineF line(arrow->line());
	CHECK(!line.isNull());
	QLineF other;
	REQUIRE(other.isValid());
	QRectF rect;
	CHECK(rect.isValid());
}
`
	repaired, _ := r.Repair(src)
	assert.Contains(t, repaired, "REQUIRE(!other.isNull());")
	// only variables declared as QLineF are rewritten
	assert.Contains(t, repaired, "CHECK(rect.isValid());")
	assert.NotContains(t, repaired, "other.isValid()")
}

func TestRewriteBadConstructors(t *testing.T) {
	r := New(newTestLogger(t))
	src := `TEST_CASE("ctor", "[ctor]") {
	MainWindow window(MainWindow);
	DiagramItem item();
	QPointF point();
}
`
	repaired, _ := r.Repair(src)
	assert.Contains(t, repaired, "MainWindow window(nullptr);")
	assert.Contains(t, repaired, "DiagramItem item(nullptr, nullptr);")
	// unknown types keep their empty constructor
	assert.Contains(t, repaired, "QPointF point();")
}

func TestRewritePrivateEnums(t *testing.T) {
	r := New(newTestLogger(t))
	src := `TEST_CASE("enum", "[enum]") {
	DiagramItem item(nullptr, nullptr);
	CHECK(item.diagramType() == DiagramItem::DiagramType::Step);
	CHECK(item.diagramType() != DiagramItem::Io);
}
`
	repaired, _ := r.Repair(src)
	assert.Contains(t, repaired, "item.diagramType() == 1")
	assert.Contains(t, repaired, "item.diagramType() != 2")
	assert.NotContains(t, repaired, "DiagramItem::DiagramType")
}

func TestBalanceBracesAppendsMissing(t *testing.T) {
	r := New(newTestLogger(t))
	src := `TEST_CASE("open", "[open]") {
	SECTION("inner") {
		CHECK(true);
`
	repaired, changes := r.Repair(src)
	masked := repaired
	assert.Equal(t, strings.Count(masked, "{"), strings.Count(masked, "}"))
	assert.Contains(t, strings.Join(changes, "\n"), "closing brace")
}

func TestBalanceBracesIgnoresLiterals(t *testing.T) {
	r := New(newTestLogger(t))
	src := `TEST_CASE("braces", "[braces]") {
	CHECK(parse("{") == '{');
}
`
	repaired, changes := r.Repair(src)
	assert.Equal(t, src, repaired)
	assert.Empty(t, changes)
}

func TestBalanceBracesTerminatesDanglingCall(t *testing.T) {
	r := New(newTestLogger(t))
	src := `TEST_CASE("dangling", "[dangling]") {
	CHECK(compute(1,
`
	repaired, changes := r.Repair(src)
	assert.Contains(t, repaired, ");")
	assert.Equal(t, strings.Count(repaired, "{"), strings.Count(repaired, "}"))
	assert.NotEmpty(t, changes)
}

func TestParenthesizeLogicalAssertions(t *testing.T) {
	r := New(newTestLogger(t))
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "bare_or",
			in:   "\tCHECK(a == 1 || b == 2);\n",
			want: "\tCHECK((a == 1 || b == 2));\n",
		},
		{
			name: "bare_and",
			in:   "\tREQUIRE(x && y);\n",
			want: "\tREQUIRE((x && y));\n",
		},
		{
			name: "already_wrapped",
			in:   "\tCHECK((a || b));\n",
			want: "\tCHECK((a || b));\n",
		},
		{
			name: "no_logical_op",
			in:   "\tCHECK(a == b);\n",
			want: "\tCHECK(a == b);\n",
		},
		{
			name: "operator_in_string",
			in:   "\tCHECK(value == \"a || b\");\n",
			want: "\tCHECK(value == \"a || b\");\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repaired, _ := r.Repair(tt.in)
			assert.Equal(t, tt.want, repaired)
		})
	}
}

func TestEmitTypeStubsOnlyWhenConfigured(t *testing.T) {
	src := "TEST_CASE(\"stub\", \"[stub]\") {\n\tHelper helper;\n}\n"

	plain := New(newTestLogger(t))
	repaired, _ := plain.Repair(src)
	assert.NotContains(t, repaired, "CORTEX_STUB")

	stubbed := New(newTestLogger(t), WithTypeStubs(map[string]string{"Helper": "struct Helper {};"}))
	repaired, changes := stubbed.Repair(src)
	assert.Contains(t, repaired, "#ifndef CORTEX_STUB_HELPER")
	assert.Contains(t, repaired, "struct Helper {};")
	assert.Contains(t, strings.Join(changes, "\n"), "warning")
}

// a second run over repaired output must change nothing
func TestRepairIsIdempotent(t *testing.T) {
	r := New(newTestLogger(t))
	src := `#include <catch_amalgamated.hpp>
#include <catch_amalgamated.hpp>
TEST_CASE("all", "[all]") {
	MainWindow window(MainWindow);
	CHECK(a || b);
	SECTION("open") {
		CHECK(true);
`
	repaired, changes := r.Repair(src)
	assert.NotEmpty(t, changes)

	again, changes := r.Repair(repaired)
	assert.Equal(t, repaired, again)
	assert.Empty(t, changes)
}
