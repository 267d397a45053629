package loader

import (
	"bytes"
	"context"
	"errors"
	"os"
	"unicode/utf8"
)

var errInvalidUTF8 = errors.New("file is not valid UTF-8 text")

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// TextExtractor decodes plain UTF-8 files.
type TextExtractor struct{}

// Extract reads the file and returns its content without a leading BOM.
func (e *TextExtractor) Extract(ctx context.Context, path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}

	data = bytes.TrimPrefix(data, utf8BOM)
	if !utf8.Valid(data) {
		return "", errInvalidUTF8
	}

	return string(data), nil
}
