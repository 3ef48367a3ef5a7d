// Package ignore reads .litweaverignore files: gitignore-style patterns that
// exclude PDFs or whole subdirectories of a papers directory from processing.
package ignore

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/fyrsmithlabs/litweaver/internal/sanitize"
)

// FileName is the ignore file looked up in the papers directory.
const FileName = ".litweaverignore"

// rule is one parsed pattern line.
type rule struct {
	glob     string
	negate   bool // "!pattern" re-includes a match
	dirOnly  bool // "pattern/" only matches directories
	anchored bool // pattern contains a slash and matches the full relative path
}

// Matcher decides whether a path below the papers directory is ignored.
// The zero value ignores nothing.
type Matcher struct {
	rules []rule

	// Invalid holds pattern lines that were skipped because they are malformed.
	Invalid []string
}

// Load reads FileName from dir. A missing file yields an empty Matcher.
func Load(dir string) (*Matcher, error) {
	f, err := os.Open(filepath.Join(dir, FileName))
	if errors.Is(err, os.ErrNotExist) {
		return &Matcher{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", FileName, err)
	}
	defer f.Close()

	return Parse(f)
}

// Parse reads gitignore-style lines from r.
func Parse(r io.Reader) (*Matcher, error) {
	m := &Matcher{}
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), " \t\r")
		if line == "" || strings.HasPrefix(line, "#") || seen[line] {
			continue
		}
		seen[line] = true

		ru, ok := parseLine(line)
		if !ok {
			m.Invalid = append(m.Invalid, line)
			continue
		}
		m.rules = append(m.rules, ru)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read ignore patterns: %w", err)
	}

	return m, nil
}

func parseLine(line string) (rule, bool) {
	var ru rule

	if strings.HasPrefix(line, "!") {
		ru.negate = true
		line = line[1:]
	}
	if strings.HasSuffix(line, "/") {
		ru.dirOnly = true
		line = strings.TrimSuffix(line, "/")
	}
	if strings.HasPrefix(line, "/") {
		ru.anchored = true
		line = strings.TrimPrefix(line, "/")
	}
	if strings.Contains(line, "/") {
		ru.anchored = true
	}

	if line == "" || sanitize.ValidateGlobPattern(line) != nil {
		return rule{}, false
	}
	ru.glob = line
	return ru, true
}

// Len returns the number of active patterns.
func (m *Matcher) Len() int {
	return len(m.rules)
}

// Match reports whether relPath (relative to the papers directory) is ignored.
// The last matching pattern wins, so a later "!pattern" re-includes a path.
func (m *Matcher) Match(relPath string, isDir bool) bool {
	if m == nil || len(m.rules) == 0 {
		return false
	}

	p := filepath.ToSlash(filepath.Clean(relPath))
	base := path.Base(p)

	ignored := false
	for _, ru := range m.rules {
		if ru.dirOnly && !isDir {
			continue
		}
		var matched bool
		if ru.anchored {
			matched, _ = path.Match(ru.glob, p)
		} else {
			matched, _ = path.Match(ru.glob, base)
		}
		if matched {
			ignored = !ru.negate
		}
	}
	return ignored
}
