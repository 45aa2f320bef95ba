package repairer

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/qtforge/cortex/pkg/core"
	"github.com/qtforge/cortex/pkg/lumber"
)

// repairer normalizes LLM-produced C++ with an ordered sequence of
// deterministic syntactic passes. Passes never reason about semantics; any
// construct they cannot fix is left for the build diagnostics.
type repairer struct {
	logger lumber.Logger
	// stubTypes optionally maps a private type name to a minimal stub body
	// emitted when the type is referenced. Last resort, always warned about.
	stubTypes map[string]string
}

// Option configures the repairer.
type Option func(*repairer)

// WithTypeStubs enables emitting include-guarded stubs for the given types.
func WithTypeStubs(stubs map[string]string) Option {
	return func(r *repairer) { r.stubTypes = stubs }
}

// New returns a new Repairer.
func New(logger lumber.Logger, opts ...Option) core.Repairer {
	r := &repairer{logger: logger}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

type pass struct {
	name string
	fn   func(r *repairer, src string) (string, []string)
}

var passes = []pass{
	{"strip-stray-main", (*repairer).stripStrayMain},
	{"dedupe-framework-include", (*repairer).dedupeFrameworkInclude},
	{"rewrite-line-isvalid", (*repairer).rewriteLineIsValid},
	{"rewrite-bad-constructors", (*repairer).rewriteBadConstructors},
	{"rewrite-private-enums", (*repairer).rewritePrivateEnums},
	{"emit-type-stubs", (*repairer).emitTypeStubs},
	{"balance-braces", (*repairer).balanceBraces},
	{"parenthesize-logical-assertions", (*repairer).parenthesizeLogicalAssertions},
}

func (r *repairer) Repair(source string) (string, []string) {
	changes := make([]string, 0)
	for _, p := range passes {
		repaired, notes := p.fn(r, source)
		for _, note := range notes {
			changes = append(changes, p.name+": "+note)
			r.logger.Debugf("repairer %s: %s", p.name, note)
		}
		source = repaired
	}
	return source, changes
}

var mainSignatureRegexp = regexp.MustCompile(`(?m)^[ \t]*(?:int|void|auto)\s+main\s*\([^)]*\)\s*(?:->\s*int\s*)?\{`)

// stripStrayMain removes any top-level main function. LLMs frequently include
// one despite instructions; the stage supplies its own entry point.
func (r *repairer) stripStrayMain(src string) (string, []string) {
	notes := []string{}
	for {
		masked := maskCode(src)
		loc := mainSignatureRegexp.FindStringIndex(masked)
		if loc == nil {
			break
		}
		// loc[1]-1 is the opening brace, walk the mask to its close
		end := matchingBrace(masked, loc[1]-1)
		if end < 0 {
			// unterminated main, drop everything from the signature down
			notes = append(notes, fmt.Sprintf("stripped stray unterminated main at line %d", lineOf(src, loc[0])))
			src = src[:loc[0]]
			break
		}
		notes = append(notes, fmt.Sprintf("stripped stray main at line %d", lineOf(src, loc[0])))
		src = src[:loc[0]] + src[end+1:]
	}
	return src, notes
}

var frameworkIncludeRegexp = regexp.MustCompile(`(?m)^[ \t]*#include\s*["<](?:catch2/)?catch(?:_amalgamated)?\.hpp[">][ \t]*\r?\n?`)

// dedupeFrameworkInclude keeps the first framework include and drops the rest.
func (r *repairer) dedupeFrameworkInclude(src string) (string, []string) {
	notes := []string{}
	seen := false
	out := frameworkIncludeRegexp.ReplaceAllStringFunc(src, func(match string) string {
		if !seen {
			seen = true
			return match
		}
		notes = append(notes, "removed duplicate framework include")
		return ""
	})
	return out, notes
}

var lineDeclRegexp = regexp.MustCompile(`\bQLineF\s+(\w+)\b`)

// rewriteLineIsValid rewrites the non-existent QLineF::isValid() call to the
// real null check on every variable declared as QLineF.
func (r *repairer) rewriteLineIsValid(src string) (string, []string) {
	notes := []string{}
	vars := map[string]bool{}
	for _, m := range lineDeclRegexp.FindAllStringSubmatch(src, -1) {
		vars[m[1]] = true
	}
	for name := range vars {
		callRegexp := regexp.MustCompile(`\b` + regexp.QuoteMeta(name) + `\.isValid\(\)`)
		if !callRegexp.MatchString(src) {
			continue
		}
		src = callRegexp.ReplaceAllString(src, "!"+name+".isNull()")
		notes = append(notes, fmt.Sprintf("rewrote %s.isValid() to !%s.isNull()", name, name))
	}
	return src, notes
}

// ctorArgFixes lists types whose no-argument construction does not compile,
// with placeholder arguments that do.
var ctorArgFixes = map[string]string{
	"DiagramItem": "nullptr, nullptr",
	"Arrow":       "nullptr, nullptr",
}

// matches both the expression form Type(Type) and the declaration form
// Type name(Type)
var selfArgCtorRegexp = regexp.MustCompile(`\b([A-Z]\w*)(\s+\w+)?\s*\(\s*([A-Z]\w*)\s*\)`)

// rewriteBadConstructors fixes a typename used as its own constructor argument
// and no-argument construction of types that require parameters.
func (r *repairer) rewriteBadConstructors(src string) (string, []string) {
	notes := []string{}
	src = selfArgCtorRegexp.ReplaceAllStringFunc(src, func(match string) string {
		m := selfArgCtorRegexp.FindStringSubmatch(match)
		if m[1] != m[3] {
			return match
		}
		notes = append(notes, fmt.Sprintf("rewrote %s(%s) to %s(nullptr)", m[1], m[3], m[1]))
		return m[1] + m[2] + "(nullptr)"
	})
	for typeName, args := range ctorArgFixes {
		emptyCtorRegexp := regexp.MustCompile(`\b` + typeName + `(\s+\w+)?\s*\(\s*\)`)
		if !emptyCtorRegexp.MatchString(src) {
			continue
		}
		src = emptyCtorRegexp.ReplaceAllString(src, typeName+"${1}("+args+")")
		notes = append(notes, fmt.Sprintf("rewrote %s() to %s(%s)", typeName, typeName, args))
	}
	return src, notes
}

// enumConstFixes maps references to private enum members to their documented
// integer constants.
var enumConstFixes = map[string]string{
	"DiagramItem::DiagramType::Conditional": "0",
	"DiagramItem::DiagramType::Step":        "1",
	"DiagramItem::DiagramType::Io":          "2",
	"DiagramItem::Conditional":              "0",
	"DiagramItem::Step":                     "1",
	"DiagramItem::Io":                       "2",
}

func (r *repairer) rewritePrivateEnums(src string) (string, []string) {
	notes := []string{}
	for member, literal := range enumConstFixes {
		if !strings.Contains(src, member) {
			continue
		}
		src = strings.ReplaceAll(src, member, literal)
		notes = append(notes, fmt.Sprintf("replaced private enum member %s with %s", member, literal))
	}
	return src, notes
}

func (r *repairer) emitTypeStubs(src string) (string, []string) {
	if len(r.stubTypes) == 0 {
		return src, nil
	}
	notes := []string{}
	stubs := strings.Builder{}
	for typeName, body := range r.stubTypes {
		if !regexp.MustCompile(`\b` + regexp.QuoteMeta(typeName) + `\b`).MatchString(src) {
			continue
		}
		guard := "CORTEX_STUB_" + strings.ToUpper(typeName)
		stubs.WriteString("#ifndef " + guard + "\n#define " + guard + "\n" + body + "\n#endif\n")
		notes = append(notes, fmt.Sprintf("warning: emitted last-resort stub for type %s", typeName))
	}
	if stubs.Len() == 0 {
		return src, nil
	}
	return stubs.String() + src, notes
}

// balanceBraces appends closing braces when the file has more opens than
// closes, counting only braces outside strings, chars and comments. A
// dangling unterminated call at file end gets a heuristic `);`.
func (r *repairer) balanceBraces(src string) (string, []string) {
	notes := []string{}
	masked := maskCode(src)

	parens := strings.Count(masked, "(") - strings.Count(masked, ")")
	trimmed := strings.TrimRight(masked, " \t\r\n")
	if parens > 0 && (strings.HasSuffix(trimmed, "(") || strings.HasSuffix(trimmed, ",")) {
		src += "\n);"
		masked = maskCode(src)
		notes = append(notes, "appended ); to terminate dangling call at end of file")
	}

	diff := strings.Count(masked, "{") - strings.Count(masked, "}")
	if diff > 0 {
		src += "\n" + strings.Repeat("}\n", diff)
		notes = append(notes, fmt.Sprintf("appended %d closing brace(s)", diff))
	} else if diff < 0 {
		notes = append(notes, fmt.Sprintf("warning: %d more closing brace(s) than opening, left as-is", -diff))
	}
	return src, notes
}

var assertionRegexp = regexp.MustCompile(`(?m)^([ \t]*)(CHECK|REQUIRE|CHECK_FALSE|REQUIRE_FALSE)\((.*)\);[ \t]*$`)

// parenthesizeLogicalAssertions rewrites assertions containing logical
// operators to the framework's required double-parenthesis form.
func (r *repairer) parenthesizeLogicalAssertions(src string) (string, []string) {
	notes := []string{}
	out := assertionRegexp.ReplaceAllStringFunc(src, func(match string) string {
		m := assertionRegexp.FindStringSubmatch(match)
		indent, macro, body := m[1], m[2], m[3]
		if !containsTopLevelLogicalOp(body) {
			return match
		}
		if isFullyParenthesized(body) {
			return match
		}
		notes = append(notes, fmt.Sprintf("wrapped logical assertion %s(%s)", macro, body))
		return indent + macro + "((" + body + "));"
	})
	return out, notes
}

// containsTopLevelLogicalOp reports whether || or && appears outside nested
// parentheses' string/char literals.
func containsTopLevelLogicalOp(body string) bool {
	masked := maskCode(body)
	return strings.Contains(masked, "||") || strings.Contains(masked, "&&")
}

// isFullyParenthesized reports whether one outer pair of parentheses spans
// the whole body.
func isFullyParenthesized(body string) bool {
	body = strings.TrimSpace(body)
	if !strings.HasPrefix(body, "(") || !strings.HasSuffix(body, ")") {
		return false
	}
	masked := maskCode(body)
	depth := 0
	for i := 0; i < len(masked); i++ {
		switch masked[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 && i != len(masked)-1 {
				return false
			}
		}
	}
	return depth == 0
}
