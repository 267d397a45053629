package loader

import (
	"archive/zip"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

const docxBodyPart = "word/document.xml"

var errMissingDocxBody = errors.New("docx archive has no " + docxBodyPart)

// DOCXExtractor reads paragraph text from the main document part of a
// WordprocessingML archive.
type DOCXExtractor struct{}

// Extract returns one line per paragraph.
func (e *DOCXExtractor) Extract(ctx context.Context, path string) (string, error) {
	archive, err := zip.OpenReader(path)
	if err != nil {
		return "", fmt.Errorf("failed to open docx archive: %w", err)
	}
	defer archive.Close()

	for _, f := range archive.File {
		if f.Name != docxBodyPart {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return "", fmt.Errorf("failed to open %s: %w", docxBodyPart, err)
		}
		defer rc.Close()
		return extractParagraphs(ctx, rc)
	}

	return "", errMissingDocxBody
}

// extractParagraphs emits paragraphs in the order they close. Paragraphs
// nested in text boxes come out before the paragraph that anchors them.
func extractParagraphs(ctx context.Context, r io.Reader) (string, error) {
	dec := xml.NewDecoder(r)

	var (
		paragraphs []string
		open       []*strings.Builder
		inText     bool
	)

	current := func() *strings.Builder {
		if len(open) == 0 {
			return nil
		}
		return open[len(open)-1]
	}

	for {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("failed to parse %s: %w", docxBodyPart, err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "p":
				open = append(open, &strings.Builder{})
			case "t":
				inText = true
			case "tab":
				if b := current(); b != nil {
					b.WriteByte('\t')
				}
			case "br", "cr":
				if b := current(); b != nil {
					b.WriteByte('\n')
				}
			case "Fallback":
				// mc:Fallback repeats the mc:Choice content for older readers.
				if err := dec.Skip(); err != nil {
					return "", fmt.Errorf("failed to parse %s: %w", docxBodyPart, err)
				}
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "p":
				if b := current(); b != nil {
					paragraphs = append(paragraphs, b.String())
					open = open[:len(open)-1]
				}
			case "t":
				inText = false
			}
		case xml.CharData:
			if b := current(); inText && b != nil {
				b.Write(t)
			}
		}
	}

	return strings.Join(paragraphs, "\n"), nil
}
