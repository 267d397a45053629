package session

import (
	"context"
	"log"
	"sync"

	"github.com/cloo-solutions/docqa/internal/domain"
	"github.com/cloo-solutions/docqa/internal/index"
	"github.com/cloo-solutions/docqa/internal/qa"
)

// Manager owns the process-wide session. Builds are serialized, questions
// run against a snapshot of the index, and the finished index replaces the
// old one in a single step.
type Manager struct {
	engine Answerer

	buildMu sync.Mutex
	mu      sync.RWMutex
	state   QASession
}

// NewManager creates a Manager with no active document.
func NewManager(engine Answerer) *Manager {
	return &Manager{engine: engine}
}

// BeginBuild reserves the build slot. The returned release func must be
// called once the build ends, whatever its outcome.
func (m *Manager) BeginBuild() (func(), error) {
	if !m.buildMu.TryLock() {
		return nil, domain.ErrConcurrentBuildRejected
	}
	var once sync.Once
	return func() { once.Do(m.buildMu.Unlock) }, nil
}

// Install makes idx the active index and releases the one it replaces.
func (m *Manager) Install(documentID, documentName string, idx *index.Index) {
	m.mu.Lock()
	defer m.mu.Unlock()
	old := m.state.Index
	m.state = Bind(m.state, documentID, documentName, idx)
	if old != nil && old != idx {
		if err := old.Close(); err != nil {
			log.Printf("failed to close replaced index for %s: %v", old.DocumentID(), err)
		}
	}
}

// Snapshot returns a copy of the current session.
func (m *Manager) Snapshot() QASession {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s := m.state
	s.Turns = copyTurns(m.state.Turns, 0)
	return s
}

// History returns the conversation turns in order.
func (m *Manager) History() []domain.ConversationTurn {
	return m.Snapshot().Turns
}

// Clear drops the conversation history.
func (m *Manager) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = Clear(m.state)
}

// Ask answers question from the active document. Generation runs without
// holding the session lock; the resulting turns are recorded only if the
// same document is still active, even when it was re-processed meanwhile.
func (m *Manager) Ask(ctx context.Context, question string) (qa.Answer, error) {
	snap := m.Snapshot()

	next, answer, err := Ask(ctx, snap, m.engine, question)

	if added := next.Turns[len(snap.Turns):]; len(added) > 0 {
		m.mu.Lock()
		if m.state.Active() && m.state.DocumentID == snap.DocumentID {
			m.state.Turns = append(copyTurns(m.state.Turns, len(added)), added...)
		}
		m.mu.Unlock()
	}

	return answer, err
}

// Passages runs a keyword lookup over the active document. The read lock is
// held for the whole lookup so Install cannot close the index under it.
func (m *Manager) Passages(q string, k int) ([]index.Hit, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.state.Active() {
		return nil, domain.ErrNoActiveDocument
	}
	return m.state.Index.Keyword(q, k)
}
