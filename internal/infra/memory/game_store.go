package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"buzz-quiz-service/internal/domain"
)

// GameStore is an in-memory implementation of app.GameStore. Aggregates are
// deep-copied on the way in and out so callers never share mutable state
// with the store.
type GameStore struct {
	mu    sync.RWMutex
	games map[string]domain.Game
}

func NewGameStore() *GameStore {
	return &GameStore{
		games: make(map[string]domain.Game),
	}
}

func (s *GameStore) GetGame(_ context.Context, gameID string) (domain.Game, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	game, ok := s.games[gameID]
	if !ok {
		return domain.Game{}, fmt.Errorf("game %s: %w", gameID, domain.ErrNotFound)
	}
	return game.Clone(), nil
}

func (s *GameStore) SaveGame(_ context.Context, game domain.Game) (domain.Game, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.games[game.ID] = game.Clone()
	return game, nil
}

func (s *GameStore) FindQueueingGames(_ context.Context) ([]domain.Game, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	queueing := make([]domain.Game, 0)
	for _, game := range s.games {
		if game.State == domain.GameQueuing {
			queueing = append(queueing, game.Clone())
		}
	}
	return queueing, nil
}

// SetQuestionState applies the conditional question-state update in one step
// under the store lock.
func (s *GameStore) SetQuestionState(_ context.Context, gameID, questionID string, from, to domain.QuestionState, beginAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	game, ok := s.games[gameID]
	if !ok {
		return fmt.Errorf("game %s: %w", gameID, domain.ErrNotFound)
	}
	question, err := game.QuestionByID(questionID)
	if err != nil {
		return err
	}
	if question.State != from {
		return fmt.Errorf("question %s is %s, expected %s: %w", questionID, question.State, from, domain.ErrConflict)
	}
	question.State = to
	if !beginAt.IsZero() {
		question.BeginAt = beginAt
	}
	s.games[gameID] = game
	return nil
}
