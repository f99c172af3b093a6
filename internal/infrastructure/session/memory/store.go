// Package memory keeps session history in process memory. Used when no
// Postgres DSN is configured, and by tests.
package memory

import (
	"context"
	"sync"

	"github.com/ntria/tax-assistant/internal/core/domain"
)

type Store struct {
	mu       sync.RWMutex
	sessions map[string][]domain.ConversationTurn
	maxTurns int
}

func NewStore(maxTurns int) *Store {
	if maxTurns <= 0 {
		maxTurns = 50
	}
	return &Store{
		sessions: make(map[string][]domain.ConversationTurn),
		maxTurns: maxTurns,
	}
}

func (s *Store) RecentTurns(_ context.Context, sessionID string, limit int) ([]domain.ConversationTurn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	turns := s.sessions[sessionID]
	if limit > 0 && len(turns) > limit {
		turns = turns[len(turns)-limit:]
	}
	out := make([]domain.ConversationTurn, len(turns))
	copy(out, turns)
	return out, nil
}

func (s *Store) AppendTurn(_ context.Context, sessionID string, turn domain.ConversationTurn) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	turns := append(s.sessions[sessionID], turn)
	if len(turns) > s.maxTurns {
		turns = turns[len(turns)-s.maxTurns:]
	}
	s.sessions[sessionID] = turns
	return nil
}
