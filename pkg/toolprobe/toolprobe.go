package toolprobe

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/qtforge/cortex/config"
	"github.com/qtforge/cortex/pkg/core"
	"github.com/qtforge/cortex/pkg/lumber"

	"golang.org/x/sync/errgroup"
)

const versionProbeTimeout = 10 * time.Second

type finder struct {
	cfg    *config.Config
	logger lumber.Logger

	mu    sync.RWMutex
	tools core.ToolSet
}

// New probes all external binaries once and returns the finder. The snapshot
// is refreshable on demand via Refresh.
func New(cfg *config.Config, logger lumber.Logger) core.ToolFinder {
	f := &finder{cfg: cfg, logger: logger}
	f.Refresh(context.Background())
	return f
}

func (f *finder) Tools() core.ToolSet {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.tools
}

func (f *finder) Refresh(ctx context.Context) core.ToolSet {
	tools := make(core.ToolSet, len(probeSpecs))
	var toolsMu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	for _, spec := range probeSpecs {
		spec := spec
		g.Go(func() error {
			tool := f.probe(gctx, spec)
			toolsMu.Lock()
			tools[tool.Name] = tool
			toolsMu.Unlock()
			if tool.Found {
				f.logger.Debugf("tool %s found at %s, version: %s", tool.Name, tool.Path, tool.Version)
			} else {
				f.logger.Warnf("tool %s not found. %s", tool.Name, tool.Hint)
			}
			return nil
		})
	}
	//nolint:errcheck
	g.Wait()

	f.mu.Lock()
	f.tools = tools
	f.mu.Unlock()
	return tools
}

func (f *finder) probe(ctx context.Context, spec probeSpec) *core.Tool {
	tool := &core.Tool{Name: spec.name, Hint: spec.hint}

	for _, candidate := range f.candidates(spec) {
		if candidate == "" {
			continue
		}
		path := candidate
		if !filepath.IsAbs(path) {
			resolved, err := exec.LookPath(path)
			if err != nil {
				continue
			}
			path = resolved
		} else if info, err := os.Stat(path); err != nil || info.IsDir() {
			continue
		}
		tool.Found = true
		tool.Path = path
		tool.Version = f.version(ctx, path, spec.versionArg)
		return tool
	}
	return tool
}

// candidates orders the lookup: explicit config path, conventional install
// locations, then the system search path.
func (f *finder) candidates(spec probeSpec) []string {
	candidates := []string{spec.configPath(&f.cfg.Tools)}
	candidates = append(candidates, spec.conventional...)
	candidates = append(candidates, spec.name)
	candidates = append(candidates, spec.aliases...)
	return candidates
}

func (f *finder) version(ctx context.Context, path, versionArg string) string {
	if versionArg == "" {
		return ""
	}
	ctx, cancel := context.WithTimeout(ctx, versionProbeTimeout)
	defer cancel()
	out, err := exec.CommandContext(ctx, path, versionArg).CombinedOutput()
	if err != nil {
		return ""
	}
	// first line carries the version banner for every tool probed here
	line := strings.SplitN(strings.TrimSpace(string(out)), "\n", 2)[0]
	return strings.TrimSpace(line)
}

type probeSpec struct {
	name         string
	versionArg   string
	hint         string
	aliases      []string
	conventional []string
	configPath   func(tools *config.ToolsConfig) string
}

var probeSpecs = []probeSpec{
	{
		name:       core.ToolCMake,
		versionArg: "--version",
		hint:       "install cmake (https://cmake.org/download) and ensure it is on PATH",
		conventional: []string{
			"/usr/bin/cmake",
			"/usr/local/bin/cmake",
			"C:/Qt/Tools/CMake_64/bin/cmake.exe",
			"C:/Program Files/CMake/bin/cmake.exe",
		},
		configPath: func(t *config.ToolsConfig) string { return t.CMake },
	},
	{
		name:       core.ToolCompiler,
		versionArg: "--version",
		hint:       "install g++ (build-essential on Debian, MinGW on Windows)",
		aliases:    []string{"c++", "clang++"},
		conventional: []string{
			"/usr/bin/g++",
			"C:/Qt/Tools/mingw1120_64/bin/g++.exe",
		},
		configPath: func(t *config.ToolsConfig) string { return t.Compiler },
	},
	{
		name:       core.ToolMake,
		versionArg: "--version",
		hint:       "install make (build-essential on Debian, mingw32-make on Windows)",
		aliases:    []string{"mingw32-make"},
		conventional: []string{
			"/usr/bin/make",
			"C:/Qt/Tools/mingw1120_64/bin/mingw32-make.exe",
		},
		configPath: func(t *config.ToolsConfig) string { return "" },
	},
	{
		name:         core.ToolGcov,
		versionArg:   "--version",
		hint:         "gcov ships with gcc; install the gcc package",
		conventional: []string{"/usr/bin/gcov"},
		configPath:   func(t *config.ToolsConfig) string { return "" },
	},
	{
		name:         core.ToolLcov,
		versionArg:   "--version",
		hint:         "install lcov to get line/branch/function coverage rollups",
		conventional: []string{"/usr/bin/lcov"},
		configPath:   func(t *config.ToolsConfig) string { return t.Lcov },
	},
	{
		name:         core.ToolGenhtml,
		versionArg:   "--version",
		hint:         "genhtml ships with lcov",
		conventional: []string{"/usr/bin/genhtml"},
		configPath:   func(t *config.ToolsConfig) string { return "" },
	},
	{
		name:         core.ToolCppcheck,
		versionArg:   "--version",
		hint:         "install cppcheck (https://cppcheck.sourceforge.io)",
		conventional: []string{"/usr/bin/cppcheck", "C:/Program Files/Cppcheck/cppcheck.exe"},
		configPath:   func(t *config.ToolsConfig) string { return t.Cppcheck },
	},
	{
		name:         core.ToolClazyBin,
		versionArg:   "--version",
		hint:         "install clazy (apt install clazy) for Qt-aware static analysis",
		conventional: []string{"/usr/bin/clazy-standalone", "/usr/local/bin/clazy-standalone"},
		configPath:   func(t *config.ToolsConfig) string { return t.Clazy },
	},
	{
		name:       core.ToolDrMemory,
		versionArg: "-version",
		hint:       "install Dr. Memory (https://drmemory.org) for memory instrumentation",
		conventional: []string{
			"/usr/local/bin/drmemory",
			"C:/Program Files (x86)/Dr. Memory/bin/drmemory.exe",
		},
		configPath: func(t *config.ToolsConfig) string { return t.DrMemory },
	},
	{
		name:         core.ToolRobot,
		versionArg:   "--version",
		hint:         "pip install robotframework to run GUI suites",
		conventional: []string{"/usr/local/bin/robot", "/usr/bin/robot"},
		configPath:   func(t *config.ToolsConfig) string { return t.Robot },
	},
	{
		name:         core.ToolXvfbRun,
		versionArg:   "",
		hint:         "install xvfb to run GUI suites on headless workers",
		conventional: []string{"/usr/bin/xvfb-run"},
		configPath:   func(t *config.ToolsConfig) string { return "" },
	},
	{
		name:         core.ToolJava,
		versionArg:   "-version",
		hint:         "install a Java runtime or set JAVA_HOME for the image-matching library",
		conventional: javaCandidates(),
		configPath:   func(t *config.ToolsConfig) string { return "" },
	},
}

func javaCandidates() []string {
	candidates := []string{}
	if home := os.Getenv("JAVA_HOME"); home != "" {
		bin := "java"
		if runtime.GOOS == "windows" {
			bin = "java.exe"
		}
		candidates = append(candidates, filepath.Join(home, "bin", bin))
	}
	candidates = append(candidates, "/usr/bin/java")
	return candidates
}
