package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseFormat(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		mimeType string
		expected Format
		ok       bool
	}{
		{"pdf by mime", "report", MimePDF, FormatPDF, true},
		{"docx by mime", "report", MimeDOCX, FormatDOCX, true},
		{"text by mime with charset", "readme", "text/plain; charset=utf-8", FormatText, true},
		{"pdf by extension", "Report.PDF", "", FormatPDF, true},
		{"docx by extension", "notes.docx", "application/octet-stream", FormatDOCX, true},
		{"text by extension", "notes.txt", "", FormatText, true},
		{"markdown unsupported", "notes.md", "text/markdown", "", false},
		{"legacy doc unsupported", "notes.doc", "application/msword", "", false},
		{"no hints", "notes", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			format, ok := ParseFormat(tt.filename, tt.mimeType)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.expected, format)
		})
	}
}

func TestFormat_MimeType(t *testing.T) {
	assert.Equal(t, MimePDF, FormatPDF.MimeType())
	assert.Equal(t, MimeDOCX, FormatDOCX.MimeType())
	assert.Equal(t, MimeText, FormatText.MimeType())
	assert.Equal(t, "application/octet-stream", Format("odt").MimeType())
}

func TestFormat_IsValid(t *testing.T) {
	assert.True(t, FormatPDF.IsValid())
	assert.True(t, FormatDOCX.IsValid())
	assert.True(t, FormatText.IsValid())
	assert.False(t, Format("").IsValid())
	assert.False(t, Format("rtf").IsValid())
}

func TestStoredFile_Supported(t *testing.T) {
	assert.True(t, StoredFile{Name: "a.pdf"}.Supported())
	assert.True(t, StoredFile{Name: "blob", MimeType: MimeText}.Supported())
	assert.False(t, StoredFile{Name: "image.png", MimeType: "image/png"}.Supported())
}

func TestConversationTurns(t *testing.T) {
	now := time.Now()
	sources := []TextChunk{{Index: 0, DocumentID: "d1", Start: 0, End: 5, Text: "hello"}}

	user := NewUserTurn("what is X?", "notes.txt", now)
	assert.Equal(t, RoleUser, user.Role)
	assert.Empty(t, user.Sources)
	assert.False(t, user.Failed())

	assistant := NewAssistantTurn("X is Y", sources, "notes.txt", now)
	assert.Equal(t, RoleAssistant, assistant.Role)
	assert.Equal(t, sources, assistant.Sources)
	assert.False(t, assistant.Failed())

	failed := NewAssistantErrorTurn(ErrGeneration.WithCause(errors.New("rate limited")), "notes.txt", now)
	assert.Equal(t, RoleAssistant, failed.Role)
	assert.True(t, failed.Failed())
	assert.Contains(t, failed.Content, "rate limited")
	assert.Nil(t, failed.Sources)
}

func TestTextChunk_Len(t *testing.T) {
	c := TextChunk{Start: 800, End: 1800}
	assert.Equal(t, 1000, c.Len())
}
