package ingest

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/fyrsmithlabs/litweaver/internal/ignore"
)

// Discover returns the slash-separated paths, relative to papersDir, of every
// PDF below papersDir that is not excluded by its .litweaverignore file.
// The extension check is case-insensitive. The result is sorted.
//
// A missing papersDir yields an error matching os.ErrNotExist.
func Discover(papersDir string) ([]string, error) {
	files, _, err := discover(papersDir)
	return files, err
}

// discover is Discover that also reports ignore patterns that were skipped as
// malformed.
func discover(papersDir string) ([]string, []string, error) {
	info, err := os.Stat(papersDir)
	if err != nil {
		return nil, nil, fmt.Errorf("papers directory %s: %w", papersDir, err)
	}
	if !info.IsDir() {
		return nil, nil, fmt.Errorf("papers directory %s is not a directory", papersDir)
	}

	matcher, err := ignore.Load(papersDir)
	if err != nil {
		return nil, nil, err
	}

	var files []string
	err = filepath.WalkDir(papersDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path == papersDir {
			return nil
		}

		rel, err := filepath.Rel(papersDir, path)
		if err != nil {
			return fmt.Errorf("computing relative path: %w", err)
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if matcher.Match(rel, true) {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() || !strings.EqualFold(filepath.Ext(path), ".pdf") {
			return nil
		}
		if matcher.Match(rel, false) {
			return nil
		}
		files = append(files, rel)
		return nil
	})
	if err != nil {
		return nil, nil, fmt.Errorf("walking papers directory: %w", err)
	}

	sort.Strings(files)
	return files, matcher.Invalid, nil
}
