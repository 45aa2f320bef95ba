package stager

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/qtforge/cortex/config"
	"github.com/qtforge/cortex/pkg/constants"
	"github.com/qtforge/cortex/pkg/core"
	"github.com/qtforge/cortex/pkg/lumber"
	"github.com/qtforge/cortex/pkg/utils"
)

// sourceBlocklist are user files never copied into a stage. The stage
// supplies its own entry point; a second main breaks the link.
var sourceBlocklist = map[string]bool{
	"main.cpp":  true,
	"main.cc":   true,
	"main.cxx":  true,
	constants.TestCasesFile:        true,
	constants.CatchMainWrapperFile: true,
}

type stager struct {
	cfg    *config.Config
	tools  core.ToolFinder
	logger lumber.Logger
}

// New returns a new Stager.
func New(cfg *config.Config, tools core.ToolFinder, logger lumber.Logger) core.Stager {
	return &stager{cfg: cfg, tools: tools, logger: logger}
}

func (s *stager) Stage(ctx context.Context, sourceDir, testSource string, project *core.Project) (*core.StagedBuild, error) {
	staged := &core.StagedBuild{Target: "cortex_tests"}

	root, warning := s.pickScratchRoot(sourceDir)
	if warning != "" {
		staged.Warnings = append(staged.Warnings, warning)
	}

	dir := filepath.Join(root, "stage_"+utils.RandString(10))
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create stage directory %s: %w", dir, err)
	}
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	staged.Dir = absDir
	s.logger.Debugf("staging build for project %s in %s", project.Name, absDir)

	if err := s.copyFramework(absDir); err != nil {
		return nil, err
	}

	tools := s.tools.Tools()
	staged.CoverageEnabled = tools.Has(core.ToolGcov) || tools.Has(core.ToolLcov)

	if err := os.WriteFile(filepath.Join(absDir, constants.CatchMainWrapperFile), []byte(mainWrapperSource()), 0644); err != nil {
		return nil, err
	}

	testFile := filepath.Join(absDir, constants.TestCasesFile)
	if err := os.WriteFile(testFile, []byte(testSource), 0644); err != nil {
		return nil, err
	}
	staged.TestFile = testFile

	sources, warnings, err := s.copyUserSources(sourceDir, absDir)
	if err != nil {
		return nil, err
	}
	staged.Warnings = append(staged.Warnings, warnings...)

	if err := s.stageResources(sourceDir, absDir); err != nil {
		return nil, err
	}

	if err := s.writeCMakeLists(absDir, sources, staged.CoverageEnabled); err != nil {
		return nil, err
	}
	return staged, nil
}

// pickScratchRoot enforces the ASCII-path rule. The underlying code generator
// mishandles non-ASCII build paths, so every candidate path is checked
// character by character before use.
func (s *stager) pickScratchRoot(sourceDir string) (root, warning string) {
	candidates := []string{
		filepath.Join(sourceDir, "build_tests"),
	}
	if s.cfg.Workspace.StageRoot != "" {
		candidates = append(candidates, s.cfg.Workspace.StageRoot)
	}
	candidates = append(candidates,
		filepath.Join(os.TempDir(), "cortex_stages"),
		fixedASCIIRoot(),
	)
	for _, candidate := range candidates {
		abs, err := filepath.Abs(candidate)
		if err != nil || !utils.IsASCII(abs) {
			continue
		}
		if !usableDir(abs) {
			continue
		}
		return abs, ""
	}
	// every fallback failed, use the original and let the caller know
	original := filepath.Join(sourceDir, "build_tests")
	if err := os.MkdirAll(original, 0755); err != nil {
		original = os.TempDir()
	}
	return original, "no ASCII-only writable scratch root available, build may fail on generated sources"
}

func fixedASCIIRoot() string {
	if runtime.GOOS == "windows" {
		return "C:/temp/cortex_stages"
	}
	return "/tmp/cortex_stages"
}

// usableDir creates the directory if needed and verifies it is writable.
func usableDir(dir string) bool {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return false
	}
	probe, err := os.CreateTemp(dir, ".probe")
	if err != nil {
		return false
	}
	probe.Close()
	os.Remove(probe.Name())
	return true
}

func (s *stager) copyFramework(dir string) error {
	catchDir := s.cfg.Tools.CatchDir
	if catchDir == "" {
		catchDir = "third_party/catch2"
	}
	for _, name := range []string{"catch_amalgamated.cpp", "catch_amalgamated.hpp"} {
		if err := copyFile(filepath.Join(catchDir, name), filepath.Join(dir, name)); err != nil {
			return fmt.Errorf("failed to copy vendored framework file %s: %w", name, err)
		}
	}
	return nil
}

// copyUserSources flattens every source and header of the project root into
// the stage, applying the header shim and identifier rewrites during copy.
// Returns the staged source file names.
func (s *stager) copyUserSources(sourceDir, dir string) (sources, warnings []string, err error) {
	err = filepath.Walk(sourceDir, func(path string, info os.FileInfo, werr error) error {
		if werr != nil {
			return werr
		}
		if info.IsDir() {
			name := info.Name()
			if strings.HasPrefix(name, ".") || strings.HasPrefix(name, "build") || name == "stage" {
				return filepath.SkipDir
			}
			return nil
		}
		name := info.Name()
		if sourceBlocklist[name] {
			s.logger.Debugf("skipping blocklisted source %s", name)
			return nil
		}
		isSource := hasExtension(name, constants.SourceExtensions)
		isHeader := hasExtension(name, constants.HeaderExtensions)
		if !isSource && !isHeader {
			return nil
		}
		for _, prefix := range constants.GeneratedFilePrefixes {
			if strings.HasPrefix(name, prefix) {
				return nil
			}
		}
		raw, rerr := os.ReadFile(path)
		if rerr != nil {
			return rerr
		}
		content, notes := transformSource(name, string(raw))
		warnings = append(warnings, notes...)
		if werr := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); werr != nil {
			return werr
		}
		if isSource {
			sources = append(sources, name)
		}
		return nil
	})
	return sources, warnings, err
}

func hasExtension(name string, extensions []string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range extensions {
		if ext == e {
			return true
		}
	}
	return false
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return err
	}
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()
	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Sync()
}
