package memory

import (
	"context"

	"buzz-quiz-service/internal/domain"
	"github.com/rs/zerolog/log"
)

// LogDeviceBus is a device notifier that only logs, for running without a
// broker and for tests.
type LogDeviceBus struct{}

func NewLogDeviceBus() *LogDeviceBus {
	return &LogDeviceBus{}
}

func (LogDeviceBus) QueueingGamesChanged(_ context.Context, games []domain.Game) {
	log.Debug().Int("queueing", len(games)).Msg("queueing game list changed")
}

func (LogDeviceBus) QuestionOpened(_ context.Context, gameID string, colors []domain.Color) {
	log.Debug().Str("game", gameID).Interface("colors", colors).Msg("question opened")
}

func (LogDeviceBus) QuestionClosed(_ context.Context, gameID string) {
	log.Debug().Str("game", gameID).Msg("question closed")
}

// NopViewerNotifier drops viewer updates, for wiring the engine without a
// websocket hub.
type NopViewerNotifier struct{}

func NewNopViewerNotifier() *NopViewerNotifier {
	return &NopViewerNotifier{}
}

func (NopViewerNotifier) RosterChanged(string, []domain.Player) {}

func (NopViewerNotifier) AnswerCountChanged(string, int) {}
