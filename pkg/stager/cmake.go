package stager

import (
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"github.com/qtforge/cortex/pkg/constants"
)

// writeCMakeLists emits the minimal build script for a stage: toolkit
// auto-generation enabled with a pinned output directory, the testing macro
// defined, coverage flags when the tools are present, and a platform
// appropriate toolkit probe.
func (s *stager) writeCMakeLists(dir string, userSources []string, coverage bool) error {
	sort.Strings(userSources)

	sources := []string{
		constants.CatchMainWrapperFile,
		constants.TestCasesFile,
		"catch_amalgamated.cpp",
	}
	sources = append(sources, userSources...)

	qrcs, _ := filepath.Glob(filepath.Join(dir, "*.qrc"))
	for _, qrc := range qrcs {
		sources = append(sources, filepath.Base(qrc))
	}

	b := &strings.Builder{}
	b.WriteString("cmake_minimum_required(VERSION 3.16)\n")
	b.WriteString("project(cortex_tests LANGUAGES CXX)\n\n")
	b.WriteString("set(CMAKE_CXX_STANDARD 17)\n")
	b.WriteString("set(CMAKE_CXX_STANDARD_REQUIRED ON)\n\n")
	b.WriteString("set(CMAKE_AUTOMOC ON)\n")
	b.WriteString("set(CMAKE_AUTOUIC ON)\n")
	b.WriteString("set(CMAKE_AUTORCC ON)\n")
	// stale autogen metadata from a previous configure causes opaque
	// failures, pin the output directory under the build tree
	b.WriteString("set(CMAKE_AUTOGEN_BUILD_DIR ${CMAKE_BINARY_DIR}/autogen)\n\n")
	b.WriteString("add_definitions(-D" + constants.TestingAccessMacro + ")\n\n")

	if s.cfg.Tools.QtDir != "" {
		b.WriteString("list(APPEND CMAKE_PREFIX_PATH \"" + filepath.ToSlash(s.cfg.Tools.QtDir) + "\")\n")
	}
	// newer toolkit major on Windows, older on Linux, matching what the
	// platform installers ship
	if runtime.GOOS == "windows" {
		b.WriteString("find_package(Qt6 COMPONENTS Widgets Core Gui REQUIRED)\n")
		b.WriteString("set(QT_LIBS Qt6::Widgets Qt6::Core Qt6::Gui)\n\n")
	} else {
		b.WriteString("find_package(Qt5 COMPONENTS Widgets Core Gui REQUIRED)\n")
		b.WriteString("set(QT_LIBS Qt5::Widgets Qt5::Core Qt5::Gui)\n\n")
	}

	b.WriteString("add_executable(cortex_tests\n")
	for _, source := range sources {
		b.WriteString("    " + source + "\n")
	}
	b.WriteString(")\n\n")
	b.WriteString("target_link_libraries(cortex_tests PRIVATE ${QT_LIBS})\n")

	if coverage {
		b.WriteString("target_compile_options(cortex_tests PRIVATE --coverage -O0)\n")
		b.WriteString("target_link_options(cortex_tests PRIVATE --coverage)\n")
	}
	if runtime.GOOS == "windows" {
		// force a console subsystem so the test output reaches stdout
		b.WriteString("set_target_properties(cortex_tests PROPERTIES WIN32_EXECUTABLE FALSE)\n")
	}

	return os.WriteFile(filepath.Join(dir, "CMakeLists.txt"), []byte(b.String()), 0644)
}
