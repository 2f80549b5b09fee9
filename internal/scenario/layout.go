package scenario

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/hubctl/hubctl/internal/slugs"
)

// Dir returns the directory a scenario is extracted to:
// <root>/<type>/<index slug>.
func Dir(root string, s *Scenario) (string, error) {
	typ, err := s.Type()
	if err != nil {
		return "", fmt.Errorf("scenario %s: %w", s.Index(), err)
	}
	slug, ok := slugs.IndexSlug(s.Index())
	if !ok {
		return "", fmt.Errorf("scenario index %q cannot name a directory", s.Index())
	}
	return filepath.Join(root, strings.ToLower(string(typ)), slug), nil
}

// FindDirs returns every directory under root holding a metadata.json,
// sorted. Hidden directories, including staging directories left by an
// interrupted extract, are skipped. A missing root yields nothing.
func FindDirs(root string) ([]string, error) {
	var dirs []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) && path == root {
				return filepath.SkipAll
			}
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		if _, err := os.Stat(filepath.Join(path, FileMetadata)); err == nil {
			dirs = append(dirs, path)
			return filepath.SkipDir
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", root, err)
	}
	sort.Strings(dirs)
	return dirs, nil
}
