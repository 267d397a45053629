package domain

// TextChunk is a contiguous span of a document's extracted text. Start and End
// are rune offsets into that text; Text is exactly the runes in [Start, End).
type TextChunk struct {
	Index      int
	DocumentID string
	Start      int
	End        int
	Text       string
}

// Len returns the chunk length in runes.
func (c TextChunk) Len() int {
	return c.End - c.Start
}
