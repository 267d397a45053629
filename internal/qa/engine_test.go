package qa

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/cloo-solutions/docqa/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockRetriever struct {
	mock.Mock
}

func (m *MockRetriever) Query(ctx context.Context, text string, k int) ([]domain.TextChunk, error) {
	args := m.Called(ctx, text, k)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.TextChunk), args.Error(1)
}

type MockGenerator struct {
	mock.Mock
}

func (m *MockGenerator) Generate(ctx context.Context, prompt string, temperature float32) (string, error) {
	args := m.Called(ctx, prompt, temperature)
	return args.String(0), args.Error(1)
}

func sampleChunks() []domain.TextChunk {
	return []domain.TextChunk{
		{Index: 2, DocumentID: "d", Text: "Refunds are issued within 30 days."},
		{Index: 0, DocumentID: "d", Text: "Receipts are required."},
	}
}

func TestEngine_Answer_Success(t *testing.T) {
	retriever := new(MockRetriever)
	generator := new(MockGenerator)
	engine := NewEngine(generator)
	chunks := sampleChunks()

	retriever.On("Query", mock.Anything, "What is the refund policy?", TopK).Return(chunks, nil)
	generator.On("Generate", mock.Anything, mock.MatchedBy(func(prompt string) bool {
		return strings.Contains(prompt, "Refunds are issued within 30 days.\n\nReceipts are required.") &&
			strings.Contains(prompt, "Question: What is the refund policy?")
	}), float32(0)).Return("Refunds are issued within 30 days.", nil).Once()

	answer, err := engine.Answer(context.Background(), retriever, "What is the refund policy?")

	require.NoError(t, err)
	assert.Equal(t, "Refunds are issued within 30 days.", answer.Text)
	assert.Equal(t, chunks, answer.Sources)
	retriever.AssertExpectations(t)
	generator.AssertExpectations(t)
}

func TestEngine_Answer_ReturnsGeneratorTextVerbatim(t *testing.T) {
	retriever := new(MockRetriever)
	generator := new(MockGenerator)
	engine := NewEngine(generator)
	raw := "  I don't know.\n\n"

	retriever.On("Query", mock.Anything, "q", TopK).Return(sampleChunks(), nil)
	generator.On("Generate", mock.Anything, mock.Anything, float32(0)).Return(raw, nil)

	answer, err := engine.Answer(context.Background(), retriever, "q")

	require.NoError(t, err)
	assert.Equal(t, raw, answer.Text)
}

func TestEngine_Answer_EmptyRetrievalStillGenerates(t *testing.T) {
	retriever := new(MockRetriever)
	generator := new(MockGenerator)
	engine := NewEngine(generator)

	retriever.On("Query", mock.Anything, "q", TopK).Return([]domain.TextChunk{}, nil)
	generator.On("Generate", mock.Anything, BuildPrompt("q", nil), float32(0)).Return("I don't know.", nil).Once()

	answer, err := engine.Answer(context.Background(), retriever, "q")

	require.NoError(t, err)
	assert.Equal(t, "I don't know.", answer.Text)
	assert.Empty(t, answer.Sources)
	generator.AssertExpectations(t)
}

func TestEngine_Answer_GenerationFailureNoRetry(t *testing.T) {
	retriever := new(MockRetriever)
	generator := new(MockGenerator)
	engine := NewEngine(generator)
	cause := errors.New("503 service unavailable")

	retriever.On("Query", mock.Anything, "q", TopK).Return(sampleChunks(), nil)
	generator.On("Generate", mock.Anything, mock.Anything, float32(0)).Return("", cause).Once()

	answer, err := engine.Answer(context.Background(), retriever, "q")

	assert.Equal(t, Answer{}, answer)
	assert.True(t, errors.Is(err, domain.ErrGeneration))
	assert.True(t, errors.Is(err, cause))
	generator.AssertNumberOfCalls(t, "Generate", 1)
}

func TestEngine_Answer_RetrievalErrorPropagates(t *testing.T) {
	retriever := new(MockRetriever)
	generator := new(MockGenerator)
	engine := NewEngine(generator)
	retrievalErr := domain.ErrEmbeddingService.WithCause(errors.New("timeout"))

	retriever.On("Query", mock.Anything, "q", TopK).Return(nil, retrievalErr)

	_, err := engine.Answer(context.Background(), retriever, "q")

	assert.True(t, errors.Is(err, domain.ErrEmbeddingService))
	generator.AssertNotCalled(t, "Generate")
}

func TestEngine_Answer_EmptyQuestion(t *testing.T) {
	retriever := new(MockRetriever)
	generator := new(MockGenerator)
	engine := NewEngine(generator)

	_, err := engine.Answer(context.Background(), retriever, "   ")

	assert.True(t, errors.Is(err, domain.ErrEmptyQuestion))
	retriever.AssertNotCalled(t, "Query")
	generator.AssertNotCalled(t, "Generate")
}

func TestBuildPrompt(t *testing.T) {
	prompt := BuildPrompt("Who signs?", []domain.TextChunk{{Text: "first"}, {Text: "second"}})

	assert.Contains(t, prompt, "Context:\nfirst\n\nsecond\n\nQuestion: Who signs?")
	assert.Less(t, strings.Index(prompt, "first"), strings.Index(prompt, "second"))
}
