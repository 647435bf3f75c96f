package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"buzz-quiz-service/internal/domain"
	"github.com/redis/go-redis/v9"
)

const queueingSetKey = "games:queueing"

// conditional question updates retry a few times when the watched key
// changes under the optimistic transaction.
const txRetries = 5

// GameStore persists game aggregates as JSON values in Redis and keeps a set
// of queueing game ids as the lobby index. Conditional question updates run
// as optimistic WATCH transactions keyed by the game, so a concurrent writer
// cannot be overwritten silently.
type GameStore struct {
	client *redis.Client
}

func NewGameStore(client *redis.Client) *GameStore {
	return &GameStore{client: client}
}

func (s *GameStore) GetGame(ctx context.Context, gameID string) (domain.Game, error) {
	raw, err := s.client.Get(ctx, s.key(gameID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.Game{}, fmt.Errorf("game %s: %w", gameID, domain.ErrNotFound)
	}
	if err != nil {
		return domain.Game{}, fmt.Errorf("get game %s: %w", gameID, err)
	}
	var game domain.Game
	if err := json.Unmarshal(raw, &game); err != nil {
		return domain.Game{}, fmt.Errorf("unmarshal game %s: %w", gameID, err)
	}
	return game, nil
}

func (s *GameStore) SaveGame(ctx context.Context, game domain.Game) (domain.Game, error) {
	raw, err := json.Marshal(game)
	if err != nil {
		return domain.Game{}, fmt.Errorf("marshal game %s: %w", game.ID, err)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.key(game.ID), raw, 0)
	if game.State == domain.GameQueuing {
		pipe.SAdd(ctx, queueingSetKey, game.ID)
	} else {
		pipe.SRem(ctx, queueingSetKey, game.ID)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return domain.Game{}, fmt.Errorf("save game %s: %w", game.ID, err)
	}
	return game, nil
}

func (s *GameStore) FindQueueingGames(ctx context.Context) ([]domain.Game, error) {
	ids, err := s.client.SMembers(ctx, queueingSetKey).Result()
	if err != nil {
		return nil, fmt.Errorf("list queueing games: %w", err)
	}
	games := make([]domain.Game, 0, len(ids))
	for _, id := range ids {
		game, err := s.GetGame(ctx, id)
		if errors.Is(err, domain.ErrNotFound) {
			// stale index entry, drop it
			_ = s.client.SRem(ctx, queueingSetKey, id).Err()
			continue
		}
		if err != nil {
			return nil, err
		}
		games = append(games, game)
	}
	return games, nil
}

// SetQuestionState moves one question of one game between states in a single
// conditional write against the stored aggregate.
func (s *GameStore) SetQuestionState(ctx context.Context, gameID, questionID string, from, to domain.QuestionState, beginAt time.Time) error {
	key := s.key(gameID)

	update := func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return fmt.Errorf("game %s: %w", gameID, domain.ErrNotFound)
		}
		if err != nil {
			return err
		}
		var game domain.Game
		if err := json.Unmarshal(raw, &game); err != nil {
			return fmt.Errorf("unmarshal game %s: %w", gameID, err)
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

		updated, err := json.Marshal(game)
		if err != nil {
			return fmt.Errorf("marshal game %s: %w", gameID, err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, updated, 0)
			return nil
		})
		return err
	}

	for i := 0; i < txRetries; i++ {
		err := s.client.Watch(ctx, update, key)
		if !errors.Is(err, redis.TxFailedErr) {
			return err
		}
	}
	return fmt.Errorf("question %s in game %s kept changing under update: %w", questionID, gameID, domain.ErrConflict)
}

func (s *GameStore) key(gameID string) string {
	return "game:" + gameID
}
