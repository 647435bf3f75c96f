package redis

import (
	"context"
	"encoding/json"

	"buzz-quiz-service/internal/domain"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// Pub/sub channels physical answering devices listen on.
const (
	QueueingChannel = "devices:queueing"
	QuestionChannel = "devices:question"
)

// DeviceBus broadcasts engine events to answering devices over Redis
// pub/sub. Delivery is best-effort; publish failures are logged and dropped.
type DeviceBus struct {
	client *redis.Client
}

func NewDeviceBus(client *redis.Client) *DeviceBus {
	return &DeviceBus{client: client}
}

// QueueingGameEvent is the payload for queueing-list broadcasts.
type QueueingGameEvent struct {
	Games []QueueingGame `json:"games"`
}

// QueueingGame is the joinable-game summary a device shows in its lobby.
type QueueingGame struct {
	ID        string         `json:"id"`
	Title     string         `json:"title"`
	ColorCode []domain.Color `json:"colorCode"`
}

// QuestionEvent is the payload for question open/close broadcasts. Colors is
// only set on open and lists the valid answer colors in display order, so
// devices know which buttons to arm.
type QuestionEvent struct {
	Event  string         `json:"event"`
	GameID string         `json:"gameId"`
	Colors []domain.Color `json:"colors,omitempty"`
}

func (b *DeviceBus) QueueingGamesChanged(ctx context.Context, games []domain.Game) {
	event := QueueingGameEvent{Games: make([]QueueingGame, 0, len(games))}
	for _, game := range games {
		event.Games = append(event.Games, QueueingGame{
			ID:        game.ID,
			Title:     game.Quiz.Title,
			ColorCode: game.ColorCode,
		})
	}
	b.publish(ctx, QueueingChannel, event)
}

func (b *DeviceBus) QuestionOpened(ctx context.Context, gameID string, colors []domain.Color) {
	b.publish(ctx, QuestionChannel, QuestionEvent{Event: "opened", GameID: gameID, Colors: colors})
}

func (b *DeviceBus) QuestionClosed(ctx context.Context, gameID string) {
	b.publish(ctx, QuestionChannel, QuestionEvent{Event: "closed", GameID: gameID})
}

func (b *DeviceBus) publish(ctx context.Context, channel string, payload any) {
	raw, err := json.Marshal(payload)
	if err != nil {
		log.Error().Err(err).Str("channel", channel).Msg("marshal device event")
		return
	}
	if err := b.client.Publish(ctx, channel, raw).Err(); err != nil {
		log.Warn().Err(err).Str("channel", channel).Msg("publish device event")
	}
}
