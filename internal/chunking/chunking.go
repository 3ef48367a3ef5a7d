// Package chunking splits extracted documents into overlapping text chunks
// sized for embedding, using langchaingo's recursive character splitter.
package chunking

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/textsplitter"

	"github.com/fyrsmithlabs/litweaver/internal/extraction"
)

const (
	DefaultChunkSize    = 1000
	DefaultChunkOverlap = 200
)

// DefaultSeparators are tried in order: paragraphs, lines, sentences, words, characters.
var DefaultSeparators = []string{"\n\n", "\n", ". ", " ", ""}

// ErrInvalidConfig indicates bad chunk size or overlap.
var ErrInvalidConfig = errors.New("invalid chunking config")

// Config controls chunk sizes, measured in characters.
type Config struct {
	ChunkSize    int
	ChunkOverlap int
	Separators   []string
}

// Validate checks that size is positive and overlap is in [0, size).
func (c Config) Validate() error {
	if c.ChunkSize <= 0 {
		return fmt.Errorf("%w: chunk size must be positive, got %d", ErrInvalidConfig, c.ChunkSize)
	}
	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		return fmt.Errorf("%w: chunk overlap must be in [0, %d), got %d", ErrInvalidConfig, c.ChunkSize, c.ChunkOverlap)
	}
	return nil
}

// Chunk is one piece of a document.
type Chunk struct {
	Text  string
	Index int // position within the document, starting at 0
	Page  int // 1-based page the chunk was taken from
}

// Chunker splits documents into chunks.
type Chunker struct {
	splitter textsplitter.RecursiveCharacter
}

// New creates a Chunker. Empty separators fall back to DefaultSeparators.
func New(cfg Config) (*Chunker, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	seps := cfg.Separators
	if len(seps) == 0 {
		seps = DefaultSeparators
	}

	return &Chunker{
		splitter: textsplitter.NewRecursiveCharacter(
			textsplitter.WithChunkSize(cfg.ChunkSize),
			textsplitter.WithChunkOverlap(cfg.ChunkOverlap),
			textsplitter.WithSeparators(seps),
		),
	}, nil
}

// Split chunks doc page by page so every chunk keeps its page number.
// Whitespace-only chunks are dropped and indexes run across the whole document.
func (c *Chunker) Split(doc *extraction.Document) ([]Chunk, error) {
	var chunks []Chunk
	for _, page := range doc.Pages {
		texts, err := c.SplitText(page.Text)
		if err != nil {
			return nil, fmt.Errorf("failed to split page %d: %w", page.Number, err)
		}
		for _, text := range texts {
			chunks = append(chunks, Chunk{
				Text:  text,
				Index: len(chunks),
				Page:  page.Number,
			})
		}
	}
	return chunks, nil
}

// SplitText splits plain text, dropping whitespace-only pieces.
func (c *Chunker) SplitText(text string) ([]string, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	parts, err := c.splitter.SplitText(text)
	if err != nil {
		return nil, err
	}

	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out, nil
}
