// Package chunker splits extracted document text into overlapping chunks.
package chunker

import (
	"strings"
	"unicode"

	"github.com/cloo-solutions/docqa/internal/domain"
)

const (
	DefaultSize    = 1000
	DefaultOverlap = 200
)

// Config controls chunk boundaries. Sizes are in runes.
type Config struct {
	Size      int
	Overlap   int
	Separator rune
}

// DefaultConfig returns the chunking policy used for every document.
func DefaultConfig() Config {
	return Config{
		Size:      DefaultSize,
		Overlap:   DefaultOverlap,
		Separator: '\n',
	}
}

// Splitter cuts text into chunks of about Size runes where consecutive
// chunks share Overlap runes. A chunk only runs past Size when it carries a
// whitespace run, so that no chunk is blank.
type Splitter struct {
	cfg Config
}

// New creates a Splitter, replacing unusable settings with defaults.
func New(cfg Config) *Splitter {
	if cfg.Size <= 0 {
		cfg.Size = DefaultSize
	}
	if cfg.Overlap < 0 {
		cfg.Overlap = 0
	}
	if cfg.Overlap >= cfg.Size {
		cfg.Overlap = cfg.Size / 5
	}
	if cfg.Separator == 0 {
		cfg.Separator = '\n'
	}
	return &Splitter{cfg: cfg}
}

// NewDefault creates a Splitter with DefaultConfig.
func NewDefault() *Splitter {
	return New(DefaultConfig())
}

// Config returns the effective configuration.
func (s *Splitter) Config() Config {
	return s.cfg
}

// Split returns the chunks of text in source order. Whitespace-only text
// yields no chunks.
func (s *Splitter) Split(documentID, text string) []domain.TextChunk {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	runes := []rune(text)
	n := len(runes)
	size, overlap := s.cfg.Size, s.cfg.Overlap

	chunks := make([]domain.TextChunk, 0, n/(size-overlap)+1)
	start := 0
	for {
		end := start + size
		if end >= n {
			end = n
		} else {
			// Cut after the last separator in the window, but only past the
			// overlap so the next chunk still starts after this one.
			minCut := start + overlap
			for i := end; i > minCut; i-- {
				if runes[i-1] == s.cfg.Separator {
					end = i
					break
				}
			}
		}

		if isBlank(runes[start:end]) {
			word := nextNonSpace(runes, end)
			if word < 0 {
				// Trailing whitespace belongs to the previous chunk.
				last := &chunks[len(chunks)-1]
				last.End = n
				last.Text = string(runes[last.Start:n])
				break
			}
			end = wordEnd(runes, word, word+size)
		}

		chunks = append(chunks, domain.TextChunk{
			Index:      len(chunks),
			DocumentID: documentID,
			Start:      start,
			End:        end,
			Text:       string(runes[start:end]),
		})

		if end >= n {
			break
		}

		next := end - overlap
		if next <= start {
			next = end
		}
		start = next
	}

	return chunks
}

func isBlank(runes []rune) bool {
	for _, r := range runes {
		if !unicode.IsSpace(r) {
			return false
		}
	}
	return true
}

func nextNonSpace(runes []rune, from int) int {
	for i := from; i < len(runes); i++ {
		if !unicode.IsSpace(runes[i]) {
			return i
		}
	}
	return -1
}

// wordEnd returns the end of the word starting at i, capped at limit.
func wordEnd(runes []rune, i, limit int) int {
	if limit > len(runes) {
		limit = len(runes)
	}
	for i < limit && !unicode.IsSpace(runes[i]) {
		i++
	}
	return i
}

// Reconstruct joins chunks back into the source text by dropping the
// overlapping prefix of every chunk after the first.
func Reconstruct(chunks []domain.TextChunk) string {
	var b strings.Builder
	prevEnd := 0
	for i, c := range chunks {
		runes := []rune(c.Text)
		skip := 0
		if i > 0 {
			skip = prevEnd - c.Start
		}
		if skip < 0 {
			skip = 0
		}
		if skip > len(runes) {
			skip = len(runes)
		}
		b.WriteString(string(runes[skip:]))
		prevEnd = c.End
	}
	return b.String()
}
