// Package qa answers questions from the passages retrieved out of a
// document index.
package qa

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloo-solutions/docqa/internal/domain"
	"github.com/cloo-solutions/docqa/internal/telemetry"
)

const (
	// TopK is the number of passages retrieved per question.
	TopK = 4
	// Temperature keeps generation deterministic.
	Temperature float32 = 0
)

const promptTemplate = `Use the following pieces of context to answer the question at the end. If the context does not contain the answer, say that you don't know instead of making one up.

Context:
%s

Question: %s
Helpful Answer:`

// Retriever ranks document passages for a question.
type Retriever interface {
	Query(ctx context.Context, text string, k int) ([]domain.TextChunk, error)
}

// Generator produces text for a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string, temperature float32) (string, error)
}

// Answer is a generated answer and the passages it was grounded on.
type Answer struct {
	Text    string
	Sources []domain.TextChunk
}

// Engine runs retrieve-then-generate for one question at a time.
type Engine struct {
	generator Generator
}

// NewEngine creates an Engine backed by generator.
func NewEngine(generator Generator) *Engine {
	return &Engine{generator: generator}
}

// Answer retrieves the top passages for question and asks the generator once.
// Retrieval errors are returned unchanged; generation errors come back as
// domain.ErrGeneration.
func (e *Engine) Answer(ctx context.Context, retriever Retriever, question string) (Answer, error) {
	ctx, span := telemetry.StartSpan(ctx, "qa.Answer", telemetry.SpanAttributes{
		Operation: "answer",
	})
	defer span.End()

	if strings.TrimSpace(question) == "" {
		return Answer{}, domain.ErrEmptyQuestion
	}

	sources, err := retriever.Query(ctx, question, TopK)
	if err != nil {
		span.SetError(err)
		return Answer{}, err
	}
	span.SetData("sources", len(sources))

	text, err := e.generator.Generate(ctx, BuildPrompt(question, sources), Temperature)
	if err != nil {
		span.SetError(err)
		if domain.CodeOf(err) == domain.ErrCodeGeneration {
			return Answer{}, err
		}
		return Answer{}, domain.ErrGeneration.WithCause(err)
	}

	return Answer{Text: text, Sources: sources}, nil
}

// BuildPrompt renders the single prompt sent for a question. Passages keep
// their rank order and are separated by blank lines.
func BuildPrompt(question string, sources []domain.TextChunk) string {
	texts := make([]string, len(sources))
	for i, s := range sources {
		texts[i] = s.Text
	}
	return fmt.Sprintf(promptTemplate, strings.Join(texts, "\n\n"), question)
}
