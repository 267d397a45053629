package domain

import (
	"path/filepath"
	"strings"
	"time"
)

// Format identifies how a raw document's text is extracted.
type Format string

const (
	FormatPDF  Format = "pdf"
	FormatDOCX Format = "docx"
	FormatText Format = "text"
)

const (
	MimePDF  = "application/pdf"
	MimeDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	MimeText = "text/plain"
)

// ParseFormat derives the format from a MIME type, falling back to the file
// extension. It returns false for anything outside the supported set.
func ParseFormat(name, mimeType string) (Format, bool) {
	mt := strings.ToLower(strings.TrimSpace(mimeType))
	if i := strings.IndexByte(mt, ';'); i >= 0 {
		mt = strings.TrimSpace(mt[:i])
	}
	switch mt {
	case MimePDF:
		return FormatPDF, true
	case MimeDOCX:
		return FormatDOCX, true
	case MimeText:
		return FormatText, true
	}

	switch strings.ToLower(filepath.Ext(name)) {
	case ".pdf":
		return FormatPDF, true
	case ".docx":
		return FormatDOCX, true
	case ".txt":
		return FormatText, true
	}
	return "", false
}

// MimeType returns the canonical MIME type for the format.
func (f Format) MimeType() string {
	switch f {
	case FormatPDF:
		return MimePDF
	case FormatDOCX:
		return MimeDOCX
	case FormatText:
		return MimeText
	}
	return "application/octet-stream"
}

// IsValid reports whether f is one of the supported formats.
func (f Format) IsValid() bool {
	switch f {
	case FormatPDF, FormatDOCX, FormatText:
		return true
	}
	return false
}

// RawDocument is a downloaded file awaiting extraction. It only lives for the
// duration of one ingestion.
type RawDocument struct {
	ID     string
	Name   string
	Format Format
	Path   string
}

// StoredFile describes a file held by the remote file store.
type StoredFile struct {
	ID           string
	Name         string
	MimeType     string
	Size         int64
	ModifiedTime time.Time
}

// Supported reports whether the file can be processed.
func (f StoredFile) Supported() bool {
	_, ok := ParseFormat(f.Name, f.MimeType)
	return ok
}
