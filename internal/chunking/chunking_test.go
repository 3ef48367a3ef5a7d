package chunking

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/litweaver/internal/extraction"
)

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"defaults", Config{ChunkSize: DefaultChunkSize, ChunkOverlap: DefaultChunkOverlap}, false},
		{"no overlap", Config{ChunkSize: 10}, false},
		{"zero size", Config{ChunkSize: 0}, true},
		{"negative overlap", Config{ChunkSize: 10, ChunkOverlap: -1}, true},
		{"overlap equals size", Config{ChunkSize: 10, ChunkOverlap: 10}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidConfig)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestNew_InvalidConfig(t *testing.T) {
	_, err := New(Config{ChunkSize: 5, ChunkOverlap: 8})
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestChunker_Split(t *testing.T) {
	c, err := New(Config{ChunkSize: 60, ChunkOverlap: 10})
	require.NoError(t, err)

	page1 := strings.Repeat("Transformers replace recurrence with attention. ", 5)
	page3 := "Short conclusion."

	doc := &extraction.Document{Pages: []extraction.Page{
		{Number: 1, Text: page1},
		{Number: 3, Text: page3},
	}}

	chunks, err := c.Split(doc)
	require.NoError(t, err)
	require.Greater(t, len(chunks), 2)

	for i, ch := range chunks {
		assert.Equal(t, i, ch.Index)
		assert.NotEmpty(t, strings.TrimSpace(ch.Text))
		assert.LessOrEqual(t, utf8.RuneCountInString(ch.Text), 60, "chunk %d too long: %q", i, ch.Text)
	}

	last := chunks[len(chunks)-1]
	assert.Equal(t, 3, last.Page)
	assert.Equal(t, page3, last.Text)
	assert.Equal(t, 1, chunks[0].Page)
}

func TestChunker_SplitKeepsShortPageWhole(t *testing.T) {
	c, err := New(Config{ChunkSize: DefaultChunkSize, ChunkOverlap: DefaultChunkOverlap})
	require.NoError(t, err)

	doc := &extraction.Document{Pages: []extraction.Page{{Number: 1, Text: "A single paragraph."}}}
	chunks, err := c.Split(doc)
	require.NoError(t, err)

	require.Len(t, chunks, 1)
	assert.Equal(t, Chunk{Text: "A single paragraph.", Index: 0, Page: 1}, chunks[0])
}

func TestChunker_SplitText_Blank(t *testing.T) {
	c, err := New(Config{ChunkSize: 100, ChunkOverlap: 0})
	require.NoError(t, err)

	parts, err := c.SplitText(" \n\n\t ")
	require.NoError(t, err)
	assert.Empty(t, parts)
}

func TestChunker_SplitEmptyDocument(t *testing.T) {
	c, err := New(Config{ChunkSize: 100})
	require.NoError(t, err)

	chunks, err := c.Split(&extraction.Document{})
	require.NoError(t, err)
	assert.Empty(t, chunks)
}
