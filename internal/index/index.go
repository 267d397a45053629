package index

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"

	"github.com/blevesearch/bleve"
	"github.com/cloo-solutions/docqa/internal/domain"
)

// DefaultBatchSize is the number of chunks embedded per request during Build.
const DefaultBatchSize = 64

var errNoChunks = errors.New("document produced no chunks")

// Embedder turns text into vectors. The same embedder must serve Build and
// Query for a given index.
type Embedder interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
	GenerateEmbeddings(ctx context.Context, texts []string) ([][]float32, error)
}

// Options tune index construction.
type Options struct {
	BatchSize int
}

// Index holds one document's chunks and their embeddings. It is immutable
// once Build returns and safe for concurrent queries.
type Index struct {
	documentID string
	embedder   Embedder
	chunks     []domain.TextChunk
	vectors    [][]float32
	norms      []float64
	dimensions int
	keyword    bleve.Index
}

type keywordDoc struct {
	Text string `json:"text"`
}

// Hit is a ranked chunk with its score.
type Hit struct {
	Chunk    domain.TextChunk
	Score    float64
	position int
}

// Build embeds every chunk and returns the finished index. Nothing is
// returned unless every chunk was embedded.
func Build(ctx context.Context, embedder Embedder, chunks []domain.TextChunk, opts Options) (*Index, error) {
	if len(chunks) == 0 {
		return nil, domain.ErrEmptyDocument.WithCause(errNoChunks)
	}

	batchSize := opts.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	vectors := make([][]float32, 0, len(chunks))
	for start := 0; start < len(chunks); start += batchSize {
		if err := ctx.Err(); err != nil {
			return nil, domain.ErrEmbeddingService.WithCause(err)
		}

		end := start + batchSize
		if end > len(chunks) {
			end = len(chunks)
		}

		texts := make([]string, 0, end-start)
		for _, c := range chunks[start:end] {
			texts = append(texts, c.Text)
		}

		batch, err := embedder.GenerateEmbeddings(ctx, texts)
		if err != nil {
			return nil, classifyEmbeddingError(err)
		}
		if len(batch) != len(texts) {
			return nil, domain.ErrEmbeddingService.WithCause(
				fmt.Errorf("expected %d embeddings, got %d", len(texts), len(batch)))
		}
		vectors = append(vectors, batch...)
	}

	dimensions := len(vectors[0])
	if dimensions == 0 {
		return nil, domain.ErrEmbeddingService.WithCause(errors.New("embedding service returned an empty vector"))
	}
	norms := make([]float64, len(vectors))
	for i, v := range vectors {
		if len(v) != dimensions {
			return nil, domain.ErrDimensionMismatch.WithCause(
				fmt.Errorf("chunk %d has %d dimensions, expected %d", i, len(v), dimensions))
		}
		norms[i] = norm(v)
	}

	keyword, err := buildKeywordIndex(chunks)
	if err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeInternalError, "failed to build keyword index", err)
	}

	owned := make([]domain.TextChunk, len(chunks))
	copy(owned, chunks)

	return &Index{
		documentID: chunks[0].DocumentID,
		embedder:   embedder,
		chunks:     owned,
		vectors:    vectors,
		norms:      norms,
		dimensions: dimensions,
		keyword:    keyword,
	}, nil
}

func buildKeywordIndex(chunks []domain.TextChunk) (bleve.Index, error) {
	idx, err := bleve.NewMemOnly(bleve.NewIndexMapping())
	if err != nil {
		return nil, err
	}

	batch := idx.NewBatch()
	for i, c := range chunks {
		if err := batch.Index(strconv.Itoa(i), keywordDoc{Text: c.Text}); err != nil {
			_ = idx.Close()
			return nil, err
		}
	}
	if err := idx.Batch(batch); err != nil {
		_ = idx.Close()
		return nil, err
	}
	return idx, nil
}

func classifyEmbeddingError(err error) error {
	switch domain.CodeOf(err) {
	case domain.ErrCodeEmbeddingService, domain.ErrCodeDimensionMismatch:
		return err
	default:
		return domain.ErrEmbeddingService.WithCause(err)
	}
}

// Len returns the number of indexed chunks.
func (x *Index) Len() int {
	return len(x.chunks)
}

// DocumentID returns the id of the indexed document.
func (x *Index) DocumentID() string {
	return x.documentID
}

// Dimensions returns the vector dimension shared by every entry.
func (x *Index) Dimensions() int {
	return x.dimensions
}

// Chunks returns a copy of the indexed chunks in document order.
func (x *Index) Chunks() []domain.TextChunk {
	out := make([]domain.TextChunk, len(x.chunks))
	copy(out, x.chunks)
	return out
}

// Query returns up to k chunks ranked by cosine similarity to text. Equal
// scores keep document order.
func (x *Index) Query(ctx context.Context, text string, k int) ([]domain.TextChunk, error) {
	hits, err := x.Search(ctx, text, k)
	if err != nil {
		return nil, err
	}

	out := make([]domain.TextChunk, len(hits))
	for i, h := range hits {
		out[i] = h.Chunk
	}
	return out, nil
}

// Search is Query with scores attached.
func (x *Index) Search(ctx context.Context, text string, k int) ([]Hit, error) {
	if k <= 0 {
		return []Hit{}, nil
	}

	q, err := x.embedder.GenerateEmbedding(ctx, text)
	if err != nil {
		return nil, classifyEmbeddingError(err)
	}
	if len(q) != x.dimensions {
		return nil, domain.ErrDimensionMismatch.WithCause(
			fmt.Errorf("query has %d dimensions, index has %d", len(q), x.dimensions))
	}

	qNorm := norm(q)
	hits := make([]Hit, len(x.chunks))
	for i, c := range x.chunks {
		hits[i] = Hit{Chunk: c, Score: cosine(q, x.vectors[i], qNorm, x.norms[i])}
	}

	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Score > hits[j].Score
	})

	if k < len(hits) {
		hits = hits[:k]
	}
	return hits, nil
}

// Keyword runs a lexical match over the chunk text and returns up to k hits.
func (x *Index) Keyword(q string, k int) ([]Hit, error) {
	if k <= 0 {
		return []Hit{}, nil
	}

	query := bleve.NewMatchQuery(q)
	searchReq := bleve.NewSearchRequestOptions(query, len(x.chunks), 0, false)
	res, err := x.keyword.Search(searchReq)
	if err != nil {
		return nil, fmt.Errorf("keyword search failed: %w", err)
	}

	hits := make([]Hit, 0, len(res.Hits))
	for _, h := range res.Hits {
		i, err := strconv.Atoi(h.ID)
		if err != nil || i < 0 || i >= len(x.chunks) {
			continue
		}
		hits = append(hits, Hit{Chunk: x.chunks[i], Score: h.Score, position: i})
	}

	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].position < hits[j].position
	})

	if k < len(hits) {
		hits = hits[:k]
	}
	return hits, nil
}

// Close releases the keyword index.
func (x *Index) Close() error {
	return x.keyword.Close()
}

func norm(v []float32) float64 {
	var sum float64
	for _, f := range v {
		sum += float64(f) * float64(f)
	}
	return math.Sqrt(sum)
}

func cosine(a, b []float32, na, nb float64) float64 {
	if na == 0 || nb == 0 {
		return 0
	}
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot / (na * nb)
}
