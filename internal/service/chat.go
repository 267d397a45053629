package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/cloo-solutions/docqa/internal/domain"
	"github.com/cloo-solutions/docqa/internal/index"
	"github.com/cloo-solutions/docqa/internal/metrics"
	"github.com/cloo-solutions/docqa/internal/qa"
	"github.com/cloo-solutions/docqa/internal/session"
	"github.com/cloo-solutions/docqa/internal/telemetry"
)

// DefaultPassageLimit caps keyword lookups when no limit is given.
const DefaultPassageLimit = 5

const maxPassageLimit = 50

var errQueryRequired = errors.New("query is required")

// SessionManager is the conversation state the chat service drives
type SessionManager interface {
	Ask(ctx context.Context, question string) (qa.Answer, error)
	Snapshot() session.QASession
	History() []domain.ConversationTurn
	Clear()
	Passages(q string, k int) ([]index.Hit, error)
}

// SessionStatus summarizes the active session.
type SessionStatus struct {
	Active       bool
	DocumentID   string
	DocumentName string
	ChunkCount   int
	TurnCount    int
}

// ChatService answers questions about the active document
type ChatService struct {
	sessions SessionManager
	metrics  *metrics.Metrics
}

func NewChatService(sessions SessionManager) *ChatService {
	return &ChatService{sessions: sessions}
}

// WithMetrics attaches Prometheus collectors.
func (s *ChatService) WithMetrics(m *metrics.Metrics) *ChatService {
	s.metrics = m
	return s
}

// Ask answers question from the active document.
func (s *ChatService) Ask(ctx context.Context, question string) (qa.Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return qa.Answer{}, domain.ErrEmptyQuestion
	}

	snap := s.sessions.Snapshot()
	ctx, span := telemetry.StartSpan(ctx, "service.chat.Ask", telemetry.SpanAttributes{
		DocumentID: snap.DocumentID,
		Operation:  "ask",
	})
	defer span.End()

	started := time.Now()
	answer, err := s.sessions.Ask(ctx, question)
	s.metrics.ObserveQuestion(started, domain.CodeOf(err))
	if err != nil {
		span.SetError(err)
		return qa.Answer{}, err
	}
	return answer, nil
}

// Status reports which document is active and how long the history is.
func (s *ChatService) Status() SessionStatus {
	snap := s.sessions.Snapshot()
	status := SessionStatus{
		Active:       snap.Active(),
		DocumentID:   snap.DocumentID,
		DocumentName: snap.DocumentName,
		TurnCount:    len(snap.Turns),
	}
	if snap.Active() {
		status.ChunkCount = snap.Index.Len()
	}
	return status
}

// History returns the conversation in order.
func (s *ChatService) History() []domain.ConversationTurn {
	return s.sessions.History()
}

// Clear empties the conversation and keeps the index.
func (s *ChatService) Clear() {
	s.sessions.Clear()
}

// FindPassages runs a keyword lookup in the active document.
func (s *ChatService) FindPassages(q string, limit int) ([]index.Hit, error) {
	if strings.TrimSpace(q) == "" {
		return nil, domain.ErrMissingRequiredField.WithCause(errQueryRequired)
	}
	if limit <= 0 {
		limit = DefaultPassageLimit
	}
	if limit > maxPassageLimit {
		limit = maxPassageLimit
	}
	return s.sessions.Passages(q, limit)
}
