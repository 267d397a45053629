package openai

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"strings"

	"github.com/cloo-solutions/docqa/internal/domain"
	openai "github.com/sashabaranov/go-openai"
)

const (
	// DefaultEmbeddingModel is the OpenAI model used for generating embeddings
	DefaultEmbeddingModel = openai.SmallEmbedding3
	// DefaultEmbeddingDimensions is the dimension of text-embedding-3-small vectors
	DefaultEmbeddingDimensions = 1536
	// DefaultChatModel answers questions over retrieved context
	DefaultChatModel = openai.GPT4o
	// DefaultBatchSize bounds the number of inputs per embeddings request
	DefaultBatchSize = 64
)

var (
	// ErrEmptyText is returned when text is empty
	ErrEmptyText = errors.New("text cannot be empty")
	// ErrNoAPIKey is returned when OpenAI API key is not set
	ErrNoAPIKey = errors.New("OPENAI_API_KEY environment variable not set")
	// ErrEmptyCompletion is returned when the model returns no choices
	ErrEmptyCompletion = errors.New("no completion choices returned")
)

// EmbeddingAPI defines the interface for embedding generation
type EmbeddingAPI interface {
	CreateEmbeddings(ctx context.Context, texts []string) ([][]float32, error)
}

// ChatAPI defines the interface for chat completions
type ChatAPI interface {
	CreateCompletion(ctx context.Context, prompt string, temperature float32) (string, error)
}

// Client wraps the OpenAI API for embeddings and answer generation
type Client struct {
	embeddings EmbeddingAPI
	chat       ChatAPI
	dimensions int
	batchSize  int
}

type Config struct {
	APIKey              string
	BaseURL             string
	EmbeddingModel      openai.EmbeddingModel
	EmbeddingDimensions int
	ChatModel           string
	BatchSize           int
}

// OpenAIAdapter implements EmbeddingAPI and ChatAPI on top of go-openai.
type OpenAIAdapter struct {
	client         *openai.Client
	embeddingModel openai.EmbeddingModel
	dimensions     int
	chatModel      string
}

func NewOpenAIAdapter(cfg Config) *OpenAIAdapter {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	embeddingModel := cfg.EmbeddingModel
	if embeddingModel == "" {
		embeddingModel = DefaultEmbeddingModel
	}
	chatModel := cfg.ChatModel
	if chatModel == "" {
		chatModel = DefaultChatModel
	}

	adapter := &OpenAIAdapter{
		client:         openai.NewClientWithConfig(clientCfg),
		embeddingModel: embeddingModel,
		chatModel:      chatModel,
	}
	// Only the text-embedding-3 family accepts a requested size.
	if supportsDimensions(embeddingModel) {
		adapter.dimensions = cfg.EmbeddingDimensions
	}
	return adapter
}

// CreateEmbeddings calls the OpenAI API to embed a batch of inputs
func (a *OpenAIAdapter) CreateEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	resp, err := a.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input:      texts,
		Model:      a.embeddingModel,
		Dimensions: a.dimensions,
	})
	if err != nil {
		return nil, err
	}

	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("expected %d embeddings, got %d", len(texts), len(resp.Data))
	}

	out := make([][]float32, len(texts))
	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= len(out) {
			return nil, fmt.Errorf("embedding index %d out of range", d.Index)
		}
		out[d.Index] = d.Embedding
	}
	return out, nil
}

func supportsDimensions(model openai.EmbeddingModel) bool {
	return strings.HasPrefix(string(model), "text-embedding-3-")
}

// CreateCompletion sends a single user message and returns the first choice.
func (a *OpenAIAdapter) CreateCompletion(ctx context.Context, prompt string, temperature float32) (string, error) {
	// go-openai drops a zero temperature from the request body, which leaves
	// the server default in place.
	if temperature == 0 {
		temperature = math.SmallestNonzeroFloat32
	}

	resp, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: a.chatModel,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: temperature,
	})
	if err != nil {
		return "", err
	}

	if len(resp.Choices) == 0 {
		return "", ErrEmptyCompletion
	}

	return resp.Choices[0].Message.Content, nil
}

// NewClient creates a new OpenAI client using defaults.
func NewClient(apiKey string) *Client {
	return NewClientWithConfig(Config{APIKey: apiKey})
}

// NewClientWithConfig creates a new OpenAI client with explicit configuration.
func NewClientWithConfig(cfg Config) *Client {
	adapter := NewOpenAIAdapter(cfg)
	return newClient(adapter, adapter, cfg.EmbeddingDimensions, cfg.BatchSize)
}

func newClient(embeddings EmbeddingAPI, chat ChatAPI, dimensions, batchSize int) *Client {
	if dimensions <= 0 {
		dimensions = DefaultEmbeddingDimensions
	}
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Client{
		embeddings: embeddings,
		chat:       chat,
		dimensions: dimensions,
		batchSize:  batchSize,
	}
}

// NewClientFromEnv creates a new OpenAI client using OPENAI_API_KEY environment variable
func NewClientFromEnv() (*Client, error) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return nil, ErrNoAPIKey
	}
	return NewClient(apiKey), nil
}

// Dimensions returns the embedding dimension every vector must have.
func (c *Client) Dimensions() int {
	return c.dimensions
}

// GenerateEmbedding generates an embedding for the given text
func (c *Client) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	vectors, err := c.GenerateEmbeddings(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// GenerateEmbeddings embeds texts in batches, preserving input order. Any
// failure aborts the whole call.
func (c *Client) GenerateEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	for _, text := range texts {
		if strings.TrimSpace(text) == "" {
			return nil, domain.ErrEmbeddingService.WithCause(ErrEmptyText)
		}
	}

	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += c.batchSize {
		end := start + c.batchSize
		if end > len(texts) {
			end = len(texts)
		}

		batch, err := c.embeddings.CreateEmbeddings(ctx, texts[start:end])
		if err != nil {
			return nil, domain.ErrEmbeddingService.WithCause(fmt.Errorf("failed to create embedding: %w", err))
		}
		if len(batch) != end-start {
			return nil, domain.ErrEmbeddingService.WithCause(
				fmt.Errorf("expected %d embeddings, got %d", end-start, len(batch)))
		}

		for _, vec := range batch {
			if len(vec) != c.dimensions {
				return nil, domain.ErrDimensionMismatch.WithCause(
					fmt.Errorf("got %d dimensions, expected %d", len(vec), c.dimensions))
			}
		}
		out = append(out, batch...)
	}

	return out, nil
}

// Generate produces an answer for prompt. Failures are returned as
// domain.ErrGeneration carrying the cause.
func (c *Client) Generate(ctx context.Context, prompt string, temperature float32) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", domain.ErrGeneration.WithCause(ErrEmptyText)
	}

	text, err := c.chat.CreateCompletion(ctx, prompt, temperature)
	if err != nil {
		return "", domain.ErrGeneration.WithCause(err)
	}

	return text, nil
}
