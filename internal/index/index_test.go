package index

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/cloo-solutions/docqa/internal/chunker"
	"github.com/cloo-solutions/docqa/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// keywordEmbedder maps text onto a fixed vocabulary so similarity follows
// shared words.
type keywordEmbedder struct {
	vocab []string
	calls int
}

func (e *keywordEmbedder) vec(text string) []float32 {
	lower := strings.ToLower(text)
	v := make([]float32, len(e.vocab))
	for i, w := range e.vocab {
		v[i] = float32(strings.Count(lower, w))
	}
	return v
}

func (e *keywordEmbedder) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	return e.vec(text), nil
}

func (e *keywordEmbedder) GenerateEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	e.calls++
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = e.vec(t)
	}
	return out, nil
}

type MockEmbedder struct {
	mock.Mock
}

func (m *MockEmbedder) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	args := m.Called(ctx, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]float32), args.Error(1)
}

func (m *MockEmbedder) GenerateEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	args := m.Called(ctx, texts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([][]float32), args.Error(1)
}

func chunksOf(texts ...string) []domain.TextChunk {
	out := make([]domain.TextChunk, len(texts))
	offset := 0
	for i, t := range texts {
		n := len([]rune(t))
		out[i] = domain.TextChunk{Index: i, DocumentID: "doc-1", Start: offset, End: offset + n, Text: t}
		offset += n
	}
	return out
}

func TestBuild_EmptyChunks(t *testing.T) {
	embedder := new(MockEmbedder)

	idx, err := Build(context.Background(), embedder, nil, Options{})

	assert.Nil(t, idx)
	assert.True(t, errors.Is(err, domain.ErrEmptyDocument))
	embedder.AssertNotCalled(t, "GenerateEmbeddings")
}

func TestBuild_LenMatchesChunks(t *testing.T) {
	embedder := &keywordEmbedder{vocab: []string{"alpha", "beta", "gamma"}}
	chunks := chunksOf("alpha one", "beta two", "gamma three", "alpha beta")

	idx, err := Build(context.Background(), embedder, chunks, Options{BatchSize: 3})

	require.NoError(t, err)
	assert.Equal(t, 4, idx.Len())
	assert.Equal(t, 3, idx.Dimensions())
	assert.Equal(t, "doc-1", idx.DocumentID())
	assert.Equal(t, chunks, idx.Chunks())
	assert.Equal(t, 2, embedder.calls)
}

func TestBuild_EmbeddingFailureIsAllOrNothing(t *testing.T) {
	embedder := new(MockEmbedder)
	ctx := context.Background()
	chunks := chunksOf("a", "b", "c")

	embedder.On("GenerateEmbeddings", ctx, []string{"a", "b"}).Return([][]float32{{1, 0}, {0, 1}}, nil).Once()
	embedder.On("GenerateEmbeddings", ctx, []string{"c"}).Return(nil, errors.New("quota exceeded")).Once()

	idx, err := Build(ctx, embedder, chunks, Options{BatchSize: 2})

	assert.Nil(t, idx)
	assert.True(t, errors.Is(err, domain.ErrEmbeddingService))
	embedder.AssertExpectations(t)
}

func TestBuild_DimensionMismatch(t *testing.T) {
	embedder := new(MockEmbedder)
	ctx := context.Background()
	chunks := chunksOf("a", "b")

	embedder.On("GenerateEmbeddings", ctx, []string{"a", "b"}).Return([][]float32{{1, 0, 0}, {0, 1}}, nil)

	idx, err := Build(ctx, embedder, chunks, Options{})

	assert.Nil(t, idx)
	assert.True(t, errors.Is(err, domain.ErrDimensionMismatch))
}

func TestBuild_KeepsTypedEmbedderErrors(t *testing.T) {
	embedder := new(MockEmbedder)
	ctx := context.Background()
	typed := domain.ErrDimensionMismatch.WithCause(errors.New("got 512"))

	embedder.On("GenerateEmbeddings", ctx, []string{"a"}).Return(nil, typed)

	_, err := Build(ctx, embedder, chunksOf("a"), Options{})

	assert.True(t, errors.Is(err, domain.ErrDimensionMismatch))
	assert.False(t, errors.Is(err, domain.ErrEmbeddingService))
}

func TestQuery_RanksBySimilarity(t *testing.T) {
	embedder := &keywordEmbedder{vocab: []string{"refund", "shipping", "warranty"}}
	chunks := chunksOf(
		"Shipping takes five days.",
		"Refunds are issued within 30 days. Refund requests need a receipt.",
		"The warranty covers two years.",
	)
	idx, err := Build(context.Background(), embedder, chunks, Options{})
	require.NoError(t, err)

	results, err := idx.Query(context.Background(), "How do I get a refund?", 2)

	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, 1, results[0].Index)
}

func TestQuery_TiesKeepDocumentOrder(t *testing.T) {
	embedder := &keywordEmbedder{vocab: []string{"same"}}
	chunks := chunksOf("same", "same", "same", "same", "same")
	idx, err := Build(context.Background(), embedder, chunks, Options{})
	require.NoError(t, err)

	results, err := idx.Query(context.Background(), "same", 3)

	require.NoError(t, err)
	require.Len(t, results, 3)
	for i, r := range results {
		assert.Equal(t, i, r.Index)
	}
}

func TestQuery_IsDeterministic(t *testing.T) {
	embedder := &keywordEmbedder{vocab: []string{"go", "rust", "zig", "c"}}
	chunks := chunksOf("go go rust", "rust zig", "zig c go", "c c c", "go")
	idx, err := Build(context.Background(), embedder, chunks, Options{})
	require.NoError(t, err)

	first, err := idx.Query(context.Background(), "go and zig", 4)
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		again, err := idx.Query(context.Background(), "go and zig", 4)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestQuery_KLargerThanIndexReturnsEveryChunkOnce(t *testing.T) {
	text := strings.Repeat("a", 2500)
	chunks := chunker.NewDefault().Split("doc-1", text)
	require.Len(t, chunks, 3)

	embedder := &keywordEmbedder{vocab: []string{"a", "b"}}
	idx, err := Build(context.Background(), embedder, chunks, Options{})
	require.NoError(t, err)

	results, err := idx.Query(context.Background(), "anything", 4)

	require.NoError(t, err)
	require.Len(t, results, 3)
	seen := map[int]bool{}
	for _, r := range results {
		assert.False(t, seen[r.Index])
		seen[r.Index] = true
	}
}

func TestQuery_NonPositiveK(t *testing.T) {
	embedder := &keywordEmbedder{vocab: []string{"a"}}
	idx, err := Build(context.Background(), embedder, chunksOf("a"), Options{})
	require.NoError(t, err)

	results, err := idx.Query(context.Background(), "a", 0)

	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestQuery_DimensionMismatch(t *testing.T) {
	embedder := new(MockEmbedder)
	ctx := context.Background()
	embedder.On("GenerateEmbeddings", ctx, []string{"a"}).Return([][]float32{{1, 0, 0}}, nil)
	embedder.On("GenerateEmbedding", ctx, "question").Return([]float32{1, 0}, nil)

	idx, err := Build(ctx, embedder, chunksOf("a"), Options{})
	require.NoError(t, err)

	results, err := idx.Query(ctx, "question", 4)

	assert.Nil(t, results)
	assert.True(t, errors.Is(err, domain.ErrDimensionMismatch))
}

func TestQuery_EmbeddingFailure(t *testing.T) {
	embedder := new(MockEmbedder)
	ctx := context.Background()
	embedder.On("GenerateEmbeddings", ctx, []string{"a"}).Return([][]float32{{1, 0}}, nil)
	embedder.On("GenerateEmbedding", ctx, "question").Return(nil, errors.New("timeout"))

	idx, err := Build(ctx, embedder, chunksOf("a"), Options{})
	require.NoError(t, err)

	_, err = idx.Query(ctx, "question", 4)

	assert.True(t, errors.Is(err, domain.ErrEmbeddingService))
}

func TestKeyword_FindsMatchingPassages(t *testing.T) {
	embedder := &keywordEmbedder{vocab: []string{"x"}}
	chunks := chunksOf(
		"The invoice must be paid within thirty days.",
		"Late invoices accrue interest. Invoice disputes go to billing.",
		"Office hours are nine to five.",
	)
	idx, err := Build(context.Background(), embedder, chunks, Options{})
	require.NoError(t, err)
	defer idx.Close()

	hits, err := idx.Keyword("invoice", 5)

	require.NoError(t, err)
	require.Len(t, hits, 2)
	indexes := []int{hits[0].Chunk.Index, hits[1].Chunk.Index}
	assert.ElementsMatch(t, []int{0, 1}, indexes)
	assert.GreaterOrEqual(t, hits[0].Score, hits[1].Score)
}

func TestKeyword_NoMatch(t *testing.T) {
	embedder := &keywordEmbedder{vocab: []string{"x"}}
	idx, err := Build(context.Background(), embedder, chunksOf("alpha", "beta"), Options{})
	require.NoError(t, err)

	hits, err := idx.Keyword("omega", 5)

	require.NoError(t, err)
	assert.Empty(t, hits)
}

// strictEmbedder rejects blank input the way the embedding service does.
type strictEmbedder struct {
	keywordEmbedder
}

func (e *strictEmbedder) GenerateEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	for _, t := range texts {
		if strings.TrimSpace(t) == "" {
			return nil, domain.ErrEmbeddingService.WithCause(errors.New("text cannot be empty"))
		}
	}
	return e.keywordEmbedder.GenerateEmbeddings(ctx, texts)
}

func TestBuild_WhitespaceHeavyDocument(t *testing.T) {
	text := strings.Repeat("refund ", 130) + strings.Repeat(" ", 3000) + "\n\n\n" + strings.Repeat("\n", 1500) + "shipping tail"
	chunks := chunker.NewDefault().Split("doc-1", text)

	idx, err := Build(context.Background(), &strictEmbedder{keywordEmbedder{vocab: []string{"refund", "shipping"}}}, chunks, Options{})

	require.NoError(t, err)
	assert.Equal(t, len(chunks), idx.Len())

	top, err := idx.Query(context.Background(), "shipping", 1)
	require.NoError(t, err)
	require.Len(t, top, 1)
	assert.Contains(t, top[0].Text, "shipping")
}
