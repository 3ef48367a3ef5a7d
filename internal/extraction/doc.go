// Package extraction turns PDF files into per-page plain text.
//
// PDFExtractor is built on github.com/ledongthuc/pdf. Pages keep their
// 1-based numbers so later stages can attribute chunks to pages.
// Malformed PDFs can make the parser panic; Extract recovers and reports
// those as ordinary errors.
package extraction
