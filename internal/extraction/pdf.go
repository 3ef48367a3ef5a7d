package extraction

import (
	"context"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/ledongthuc/pdf"
)

// PDFExtractor implements Extractor using github.com/ledongthuc/pdf.
type PDFExtractor struct{}

// NewPDFExtractor creates a new PDFExtractor.
func NewPDFExtractor() *PDFExtractor {
	return &PDFExtractor{}
}

// Extract reads every page of the PDF at path. Pages without text are
// omitted; a document with no text at all fails with ErrNoText.
func (e *PDFExtractor) Extract(ctx context.Context, path string) (doc *Document, err error) {
	if !strings.EqualFold(filepath.Ext(path), ".pdf") {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFile, path)
	}

	defer func() {
		if r := recover(); r != nil {
			doc = nil
			err = fmt.Errorf("%w: %s: %v", ErrMalformedPDF, path, r)
		}
	}()

	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF file: %w", err)
	}
	defer f.Close()

	doc = &Document{Path: path, Title: documentTitle(r)}

	for i := 1; i <= r.NumPage(); i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}

		raw, err := page.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("failed to extract text from page %d: %w", i, err)
		}

		if text := normalizeWhitespace(raw); text != "" {
			doc.Pages = append(doc.Pages, Page{Number: i, Text: text})
		}
	}

	if len(doc.Pages) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoText, path)
	}

	return doc, nil
}

func documentTitle(r *pdf.Reader) string {
	title := r.Trailer().Key("Info").Key("Title")
	if title.IsNull() {
		return ""
	}
	return strings.TrimSpace(title.Text())
}

var (
	horizontalSpace = regexp.MustCompile(`[ \t\f\v\x{00a0}]+`)
	excessNewlines  = regexp.MustCompile(`\n{3,}`)
)

// normalizeWhitespace collapses runs of spaces, trims every line and keeps
// at most one blank line between paragraphs.
func normalizeWhitespace(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	s = strings.ReplaceAll(s, "\x00", "")
	s = horizontalSpace.ReplaceAllString(s, " ")

	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	s = strings.Join(lines, "\n")

	return strings.TrimSpace(excessNewlines.ReplaceAllString(s, "\n\n"))
}
