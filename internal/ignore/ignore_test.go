package ignore

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLine(t *testing.T) {
	tests := []struct {
		line string
		want rule
		ok   bool
	}{
		{"*.pdf", rule{glob: "*.pdf"}, true},
		{"drafts/", rule{glob: "drafts", dirOnly: true}, true},
		{"/old.pdf", rule{glob: "old.pdf", anchored: true}, true},
		{"archive/*.pdf", rule{glob: "archive/*.pdf", anchored: true}, true},
		{"!keep.pdf", rule{glob: "keep.pdf", negate: true}, true},
		{"/", rule{}, false},
		{"$(whoami).pdf", rule{}, false},
		{"[bad", rule{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			got, ok := parseLine(tt.line)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParse(t *testing.T) {
	input := strings.Join([]string{
		"# drafts are not ready",
		"",
		"drafts/",
		"*-draft.pdf",
		"*-draft.pdf",
		"[broken",
		"/top-only.pdf",
		"archive/2019-*.pdf",
		"*.tmp.pdf",
		"!final.tmp.pdf",
	}, "\n")

	m, err := Parse(strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, 6, m.Len())
	assert.Equal(t, []string{"[broken"}, m.Invalid)

	tests := []struct {
		path    string
		isDir   bool
		ignored bool
	}{
		{"drafts", true, true},
		{"sub/drafts", true, true},
		{"drafts", false, false},
		{"paper-draft.pdf", false, true},
		{"nested/paper-draft.pdf", false, true},
		{"paper.pdf", false, false},
		{"top-only.pdf", false, true},
		{"sub/top-only.pdf", false, false},
		{"archive/2019-a.pdf", false, true},
		{"archive/2020-a.pdf", false, false},
		{"x.tmp.pdf", false, true},
		{"final.tmp.pdf", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.ignored, m.Match(tt.path, tt.isDir))
		})
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte("skip.pdf\n"), 0644))

	m, err := Load(dir)
	require.NoError(t, err)
	assert.True(t, m.Match("skip.pdf", false))
	assert.False(t, m.Match("keep.pdf", false))
}

func TestLoad_MissingFile(t *testing.T) {
	m, err := Load(t.TempDir())
	require.NoError(t, err)
	assert.Zero(t, m.Len())
	assert.False(t, m.Match("anything.pdf", false))
}

func TestMatch_NilMatcher(t *testing.T) {
	var m *Matcher
	assert.False(t, m.Match("a.pdf", false))
}
