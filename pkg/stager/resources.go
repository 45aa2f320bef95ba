package stager

import (
	"encoding/xml"
	"os"
	"path/filepath"
	"strings"

	"github.com/qtforge/cortex/pkg/constants"
)

// qrcManifest models the resource manifest format: an RCC root enumerating
// binary assets per resource prefix.
type qrcManifest struct {
	XMLName   xml.Name `xml:"RCC"`
	Resources []struct {
		Prefix string   `xml:"prefix,attr"`
		Files  []string `xml:"file"`
	} `xml:"qresource"`
}

// stageResources copies the project's declared resource trees into the stage:
// every .qrc manifest with its referenced assets preserving relative layout,
// plus the conventional asset directories.
func (s *stager) stageResources(sourceDir, dir string) error {
	entries, err := os.ReadDir(sourceDir)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".qrc") {
			continue
		}
		manifestPath := filepath.Join(sourceDir, entry.Name())
		if err := copyFile(manifestPath, filepath.Join(dir, entry.Name())); err != nil {
			return err
		}
		assets, err := parseManifest(manifestPath)
		if err != nil {
			s.logger.Warnf("failed to parse resource manifest %s: %v", entry.Name(), err)
			continue
		}
		for _, asset := range assets {
			src := filepath.Join(sourceDir, filepath.FromSlash(asset))
			if _, err := os.Stat(src); err != nil {
				s.logger.Warnf("resource %s declared in %s is missing", asset, entry.Name())
				continue
			}
			if err := copyFile(src, filepath.Join(dir, filepath.FromSlash(asset))); err != nil {
				return err
			}
		}
	}

	for _, assetDir := range constants.AssetDirs {
		src := filepath.Join(sourceDir, assetDir)
		if info, err := os.Stat(src); err != nil || !info.IsDir() {
			continue
		}
		if err := copyTree(src, filepath.Join(dir, assetDir)); err != nil {
			return err
		}
	}
	return nil
}

// parseManifest returns the asset paths referenced by a resource manifest,
// relative to the manifest's directory.
func parseManifest(path string) ([]string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	manifest := qrcManifest{}
	if err := xml.Unmarshal(raw, &manifest); err != nil {
		return nil, err
	}
	assets := []string{}
	for _, resource := range manifest.Resources {
		assets = append(assets, resource.Files...)
	}
	return assets, nil
}

func copyTree(src, dst string) error {
	return filepath.Walk(src, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if info.IsDir() {
			return os.MkdirAll(target, 0755)
		}
		return copyFile(path, target)
	})
}
