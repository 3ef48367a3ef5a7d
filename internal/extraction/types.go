package extraction

import (
	"context"
	"errors"
	"strings"
)

var (
	// ErrUnsupportedFile indicates the file is not a PDF.
	ErrUnsupportedFile = errors.New("unsupported file type")

	// ErrNoText indicates the PDF has no extractable text, e.g. a scanned document.
	ErrNoText = errors.New("no extractable text")

	// ErrMalformedPDF indicates the PDF could not be parsed.
	ErrMalformedPDF = errors.New("malformed PDF")
)

// Page is the text of one PDF page.
type Page struct {
	Number int
	Text   string
}

// Document is the extracted content of a PDF file.
type Document struct {
	Path  string
	Title string
	Pages []Page
}

// Text joins the text of all pages, separated by blank lines.
func (d *Document) Text() string {
	parts := make([]string, 0, len(d.Pages))
	for _, p := range d.Pages {
		parts = append(parts, p.Text)
	}
	return strings.Join(parts, "\n\n")
}

// Extractor extracts text from a document on disk.
type Extractor interface {
	Extract(ctx context.Context, path string) (*Document, error)
}
