package domain

import (
	"fmt"
	"time"
)

// GameState is the lifecycle status of a running game.
type GameState string

const (
	GameQueuing GameState = "QUEUING"
	GameInGame  GameState = "IN_GAME"
	GameEnded   GameState = "ENDED"
)

// CanTransition reports whether moving from s to next is a legal lifecycle
// step. Only QUEUING->IN_GAME and IN_GAME->ENDED are allowed.
func (s GameState) CanTransition(next GameState) bool {
	switch {
	case s == GameQueuing && next == GameInGame:
		return true
	case s == GameInGame && next == GameEnded:
		return true
	}
	return false
}

// QuestionState is the per-question status, independent of the game state.
type QuestionState string

const (
	QuestionPending    QuestionState = "PENDING"
	QuestionInProgress QuestionState = "IN_PROGRESS"
	QuestionEnded      QuestionState = "ENDED"
)

// Answer is one selectable option of a question. Color is assigned at game
// creation, not at authoring time.
type Answer struct {
	ID      string `json:"id"`
	Text    string `json:"text"`
	Correct bool   `json:"correct"`
	Color   Color  `json:"color,omitempty"`
}

// Question models an MCQ question. Exactly one answer should be correct, but
// that is the quiz author's responsibility, not enforced here.
type Question struct {
	ID          string        `json:"id"`
	Text        string        `json:"text"`
	State       QuestionState `json:"state,omitempty"`
	Answers     []Answer      `json:"answers"`
	AnswerCount int           `json:"answerCount"`
	BeginAt     time.Time     `json:"beginAt,omitempty"`
}

// AnswerByColor returns the answer carrying the given color, or nil if the
// color maps to no answer of this question.
func (q *Question) AnswerByColor(color Color) *Answer {
	for i := range q.Answers {
		if q.Answers[i].Color == color {
			return &q.Answers[i]
		}
	}
	return nil
}

// AnswerColors returns the colors of the answers in display order.
func (q *Question) AnswerColors() []Color {
	colors := make([]Color, len(q.Answers))
	for i, a := range q.Answers {
		colors[i] = a.Color
	}
	return colors
}

// Quiz is the authored, reusable template a game is created from.
type Quiz struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Questions   []Question `json:"questions"`
}

// Clone returns a deep copy, so a game snapshot stays independent of the
// authored quiz.
func (q Quiz) Clone() Quiz {
	out := q
	out.Questions = make([]Question, len(q.Questions))
	for i, question := range q.Questions {
		cq := question
		cq.Answers = append([]Answer(nil), question.Answers...)
		out.Questions[i] = cq
	}
	return out
}

// Player is one joined answering device. The id is an opaque generated
// token, not a human login.
type Player struct {
	ID    string `json:"id"`
	Color Color  `json:"color"`
	Score int    `json:"score"`
}

// Game is one live playthrough of a quiz: its own shuffled quiz snapshot,
// players, and state. ColorCode is the 8-color room code shown to joiners,
// unrelated to any single answer.
type Game struct {
	ID        string    `json:"id"`
	State     GameState `json:"state"`
	Quiz      Quiz      `json:"quiz"`
	Players   []Player  `json:"players"`
	ColorCode []Color   `json:"colorCode"`
}

// Clone deep-copies the aggregate so stores can hand out snapshots without
// aliasing the caller's mutations.
func (g Game) Clone() Game {
	out := g
	out.Quiz = g.Quiz.Clone()
	out.Players = append([]Player(nil), g.Players...)
	out.ColorCode = append([]Color(nil), g.ColorCode...)
	return out
}

// QuestionByID finds a question in the game's snapshot.
func (g *Game) QuestionByID(questionID string) (*Question, error) {
	for i := range g.Quiz.Questions {
		if g.Quiz.Questions[i].ID == questionID {
			return &g.Quiz.Questions[i], nil
		}
	}
	return nil, fmt.Errorf("question %s in game %s: %w", questionID, g.ID, ErrNotFound)
}

// InProgressQuestion resolves the singleton question currently accepting
// answers. Zero or more than one in-progress questions is an invariant
// violation, not a lookup miss.
func (g *Game) InProgressQuestion() (*Question, error) {
	var found *Question
	for i := range g.Quiz.Questions {
		if g.Quiz.Questions[i].State != QuestionInProgress {
			continue
		}
		if found != nil {
			return nil, fmt.Errorf("game %s has multiple questions in progress: %w", g.ID, ErrInternal)
		}
		found = &g.Quiz.Questions[i]
	}
	if found == nil {
		return nil, fmt.Errorf("game %s has no question in progress: %w", g.ID, ErrInternal)
	}
	return found, nil
}

// PlayerByID finds a joined player.
func (g *Game) PlayerByID(playerID string) (*Player, error) {
	for i := range g.Players {
		if g.Players[i].ID == playerID {
			return &g.Players[i], nil
		}
	}
	return nil, fmt.Errorf("player %s in game %s: %w", playerID, g.ID, ErrNotFound)
}

// TakenColors returns the colors currently held by joined players.
func (g *Game) TakenColors() []Color {
	colors := make([]Color, 0, len(g.Players))
	for _, p := range g.Players {
		colors = append(colors, p.Color)
	}
	return colors
}
