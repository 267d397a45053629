// Package loader turns raw document files into plain text.
package loader

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloo-solutions/docqa/internal/domain"
)

// Extractor pulls the text out of one file format.
type Extractor interface {
	Extract(ctx context.Context, path string) (string, error)
}

// Loader selects the extractor for a document by its format tag.
type Loader struct {
	pdf  Extractor
	docx Extractor
	text Extractor
}

// New creates a Loader with the built-in extractors.
func New() *Loader {
	return NewWithExtractors(&PDFExtractor{}, &DOCXExtractor{}, &TextExtractor{})
}

// NewWithExtractors creates a Loader with explicit extractors.
func NewWithExtractors(pdf, docx, text Extractor) *Loader {
	return &Loader{pdf: pdf, docx: docx, text: text}
}

// Load returns the plain text of doc. Unsupported formats fail with
// domain.ErrUnsupportedFormat; extraction failures with domain.ErrIngestion.
func (l *Loader) Load(ctx context.Context, doc domain.RawDocument) (string, error) {
	var extractor Extractor
	switch doc.Format {
	case domain.FormatPDF:
		extractor = l.pdf
	case domain.FormatDOCX:
		extractor = l.docx
	case domain.FormatText:
		extractor = l.text
	default:
		return "", domain.ErrUnsupportedFormat.WithCause(fmt.Errorf("format %q of %s", doc.Format, doc.Name))
	}

	if err := ctx.Err(); err != nil {
		return "", domain.ErrIngestion.WithCause(err)
	}

	text, err := extractor.Extract(ctx, doc.Path)
	if err != nil {
		return "", domain.ErrIngestion.WithCause(fmt.Errorf("%s: %w", doc.Name, err))
	}

	return normalizeNewlines(text), nil
}

func normalizeNewlines(s string) string {
	if !strings.Contains(s, "\r") {
		return s
	}
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\r", "\n")
}
