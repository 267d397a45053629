// Package session holds the active document index and the conversation
// about it.
package session

import (
	"context"
	"time"

	"github.com/cloo-solutions/docqa/internal/domain"
	"github.com/cloo-solutions/docqa/internal/index"
	"github.com/cloo-solutions/docqa/internal/qa"
)

var now = time.Now

// Answerer answers a question against a retriever.
type Answerer interface {
	Answer(ctx context.Context, retriever qa.Retriever, question string) (qa.Answer, error)
}

// QASession is the state of one user's conversation. Values are never
// mutated in place; every transition returns a new QASession.
type QASession struct {
	Index        *index.Index
	DocumentID   string
	DocumentName string
	Turns        []domain.ConversationTurn
}

// Active reports whether a document has been indexed.
func (s QASession) Active() bool {
	return s.Index != nil
}

// Bind installs idx as the active index. History is dropped when the index
// belongs to a different document than the current one.
func Bind(s QASession, documentID, documentName string, idx *index.Index) QASession {
	turns := copyTurns(s.Turns, 0)
	if s.DocumentID != documentID {
		turns = nil
	}
	return QASession{
		Index:        idx,
		DocumentID:   documentID,
		DocumentName: documentName,
		Turns:        turns,
	}
}

// Clear empties the history and keeps the index.
func Clear(s QASession) QASession {
	s.Turns = nil
	return s
}

// Ask answers question from the active index and records the exchange.
// Without an active document it fails with domain.ErrNoActiveDocument and
// leaves the history alone. When answering fails after the question was
// accepted, the question and an error turn are still recorded and the error
// is returned.
func Ask(ctx context.Context, s QASession, engine Answerer, question string) (QASession, qa.Answer, error) {
	if !s.Active() {
		return s, qa.Answer{}, domain.ErrNoActiveDocument
	}

	answer, err := engine.Answer(ctx, s.Index, question)
	if err != nil {
		if domain.CodeOf(err) == domain.ErrCodeValidation {
			return s, qa.Answer{}, err
		}
		at := now()
		turns := copyTurns(s.Turns, 2)
		turns = append(turns,
			domain.NewUserTurn(question, s.DocumentName, at),
			domain.NewAssistantErrorTurn(err, s.DocumentName, at),
		)
		s.Turns = turns
		return s, qa.Answer{}, err
	}

	at := now()
	turns := copyTurns(s.Turns, 2)
	turns = append(turns,
		domain.NewUserTurn(question, s.DocumentName, at),
		domain.NewAssistantTurn(answer.Text, answer.Sources, s.DocumentName, at),
	)
	s.Turns = turns
	return s, answer, nil
}

func copyTurns(turns []domain.ConversationTurn, extra int) []domain.ConversationTurn {
	if len(turns) == 0 && extra == 0 {
		return nil
	}
	out := make([]domain.ConversationTurn, len(turns), len(turns)+extra)
	copy(out, turns)
	return out
}
