package app

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"buzz-quiz-service/internal/domain"
	"github.com/google/uuid"
)

// GameStore abstracts how game aggregates are persisted (in-memory, Redis, etc).
type GameStore interface {
	GetGame(ctx context.Context, gameID string) (domain.Game, error)
	SaveGame(ctx context.Context, game domain.Game) (domain.Game, error)
	FindQueueingGames(ctx context.Context) ([]domain.Game, error)
	// SetQuestionState conditionally moves one question of one game from
	// state `from` to state `to` in a single store operation; beginAt stamps
	// the question when it opens. Fails with domain.ErrConflict when the
	// question is not in `from`.
	SetQuestionState(ctx context.Context, gameID, questionID string, from, to domain.QuestionState, beginAt time.Time) error
}

// QuizRepository loads authored quiz content (from cache/backing store).
type QuizRepository interface {
	GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
}

// ViewerNotifier pushes best-effort updates to spectator clients. Delivery
// is fire-and-forget; failures must not fail the triggering operation.
type ViewerNotifier interface {
	RosterChanged(gameID string, players []domain.Player)
	AnswerCountChanged(gameID string, count int)
}

// DeviceNotifier broadcasts to physical answering devices so they know when
// to arm or disarm their buttons. Fire-and-forget, like ViewerNotifier.
type DeviceNotifier interface {
	QueueingGamesChanged(ctx context.Context, games []domain.Game)
	QuestionOpened(ctx context.Context, gameID string, colors []domain.Color)
	QuestionClosed(ctx context.Context, gameID string)
}

// GameService contains the game session use cases: creation, admission,
// question flow, answer scoring. All read-modify-write cycles on one game
// run under that game's exclusive lock so concurrent submissions and joins
// cannot lose updates.
type GameService struct {
	games   GameStore
	quizzes QuizRepository
	viewers ViewerNotifier
	devices DeviceNotifier

	clock func() time.Time

	rngMu sync.Mutex
	rng   *rand.Rand

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex
}

// Option customizes a GameService, mainly for deterministic tests.
type Option func(*GameService)

// WithClock fixes the time source.
func WithClock(clock func() time.Time) Option {
	return func(s *GameService) { s.clock = clock }
}

// WithRand fixes the random source used for shuffles and color picks.
func WithRand(rng *rand.Rand) Option {
	return func(s *GameService) { s.rng = rng }
}

func NewGameService(games GameStore, quizzes QuizRepository, viewers ViewerNotifier, devices DeviceNotifier, opts ...Option) *GameService {
	s := &GameService{
		games:   games,
		quizzes: quizzes,
		viewers: viewers,
		devices: devices,
		clock:   time.Now,
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
		locks:   make(map[string]*sync.Mutex),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// lockGame acquires the per-game mutex and returns its unlock func.
func (s *GameService) lockGame(gameID string) func() {
	s.locksMu.Lock()
	mu, ok := s.locks[gameID]
	if !ok {
		mu = &sync.Mutex{}
		s.locks[gameID] = mu
	}
	s.locksMu.Unlock()

	mu.Lock()
	return mu.Unlock
}

// CreateGame snapshots the authored quiz into a new queueing game: question
// and answer order are shuffled independently per game, answers get palette
// colors, and an 8-color room code is drawn.
func (s *GameService) CreateGame(ctx context.Context, quizID string) (domain.Game, error) {
	quiz, err := s.quizzes.GetQuiz(ctx, quizID)
	if err != nil {
		return domain.Game{}, err
	}

	snapshot := quiz.Clone()

	s.rngMu.Lock()
	s.rng.Shuffle(len(snapshot.Questions), func(i, j int) {
		snapshot.Questions[i], snapshot.Questions[j] = snapshot.Questions[j], snapshot.Questions[i]
	})
	for i := range snapshot.Questions {
		q := &snapshot.Questions[i]
		q.State = domain.QuestionPending
		q.AnswerCount = 0
		s.rng.Shuffle(len(q.Answers), func(a, b int) {
			q.Answers[a], q.Answers[b] = q.Answers[b], q.Answers[a]
		})
		domain.AssignAnswerColors(q.Answers, s.rng)
	}
	code := domain.RoomCode(s.rng)
	s.rngMu.Unlock()

	game := domain.Game{
		ID:        uuid.NewString(),
		State:     domain.GameQueuing,
		Quiz:      snapshot,
		Players:   []domain.Player{},
		ColorCode: code,
	}

	saved, err := s.games.SaveGame(ctx, game)
	if err != nil {
		return domain.Game{}, err
	}
	s.notifyQueueingGames(ctx)
	return saved, nil
}

// GetGame returns the aggregate as currently persisted.
func (s *GameService) GetGame(ctx context.Context, gameID string) (domain.Game, error) {
	return s.games.GetGame(ctx, gameID)
}

// ListQueueingGames returns all games still accepting joins.
func (s *GameService) ListQueueingGames(ctx context.Context) ([]domain.Game, error) {
	return s.games.FindQueueingGames(ctx)
}

// GetPlayers returns the roster of a game.
func (s *GameService) GetPlayers(ctx context.Context, gameID string) ([]domain.Player, error) {
	game, err := s.games.GetGame(ctx, gameID)
	if err != nil {
		return nil, err
	}
	return game.Players, nil
}

// AdmitPlayer joins a new player into a queueing game, assigning a color no
// current player holds. Joining a non-queueing game is a conflict; a full
// palette is a capacity failure.
func (s *GameService) AdmitPlayer(ctx context.Context, gameID string) (domain.Player, error) {
	unlock := s.lockGame(gameID)
	defer unlock()

	game, err := s.games.GetGame(ctx, gameID)
	if err != nil {
		return domain.Player{}, err
	}
	if game.State != domain.GameQueuing {
		return domain.Player{}, fmt.Errorf("game %s must be queueing to be joinable, state is %s: %w", gameID, game.State, domain.ErrConflict)
	}

	free := domain.AvailableColors(game.TakenColors())
	if len(free) == 0 {
		return domain.Player{}, fmt.Errorf("no player colors left in game %s: %w", gameID, domain.ErrCapacity)
	}

	s.rngMu.Lock()
	color := free[s.rng.Intn(len(free))]
	s.rngMu.Unlock()

	player := domain.Player{ID: uuid.NewString(), Color: color}
	game.Players = append(game.Players, player)

	saved, err := s.games.SaveGame(ctx, game)
	if err != nil {
		return domain.Player{}, err
	}
	s.viewers.RosterChanged(gameID, saved.Players)
	return player, nil
}

// StartGame moves a queueing game into play and tells devices the queueing
// list changed.
func (s *GameService) StartGame(ctx context.Context, gameID string) error {
	if err := s.transitionGame(ctx, gameID, domain.GameInGame); err != nil {
		return err
	}
	s.notifyQueueingGames(ctx)
	return nil
}

// EndGame moves a running game into its terminal state.
func (s *GameService) EndGame(ctx context.Context, gameID string) error {
	return s.transitionGame(ctx, gameID, domain.GameEnded)
}

func (s *GameService) transitionGame(ctx context.Context, gameID string, next domain.GameState) error {
	unlock := s.lockGame(gameID)
	defer unlock()

	game, err := s.games.GetGame(ctx, gameID)
	if err != nil {
		return err
	}
	if !game.State.CanTransition(next) {
		return fmt.Errorf("game %s cannot move from %s to %s: %w", gameID, game.State, next, domain.ErrConflict)
	}
	game.State = next
	_, err = s.games.SaveGame(ctx, game)
	return err
}

// OpenQuestion moves a pending question into progress, stamps the scoring
// clock origin, and arms devices with the valid answer colors.
func (s *GameService) OpenQuestion(ctx context.Context, gameID, questionID string) error {
	unlock := s.lockGame(gameID)
	defer unlock()

	game, err := s.games.GetGame(ctx, gameID)
	if err != nil {
		return err
	}
	if game.State != domain.GameInGame {
		return fmt.Errorf("game %s is %s, questions can only open in-game: %w", gameID, game.State, domain.ErrConflict)
	}
	question, err := game.QuestionByID(questionID)
	if err != nil {
		return err
	}
	if question.State != domain.QuestionPending {
		return fmt.Errorf("question %s is %s, not pending: %w", questionID, question.State, domain.ErrConflict)
	}
	for i := range game.Quiz.Questions {
		if game.Quiz.Questions[i].State == domain.QuestionInProgress {
			return fmt.Errorf("question %s is already in progress in game %s: %w", game.Quiz.Questions[i].ID, gameID, domain.ErrConflict)
		}
	}

	if err := s.games.SetQuestionState(ctx, gameID, questionID, domain.QuestionPending, domain.QuestionInProgress, s.clock()); err != nil {
		return err
	}
	s.devices.QuestionOpened(ctx, gameID, question.AnswerColors())
	return nil
}

// CloseQuestion ends an in-progress question and tells devices to stop
// accepting input.
func (s *GameService) CloseQuestion(ctx context.Context, gameID, questionID string) error {
	unlock := s.lockGame(gameID)
	defer unlock()

	game, err := s.games.GetGame(ctx, gameID)
	if err != nil {
		return err
	}
	question, err := game.QuestionByID(questionID)
	if err != nil {
		return err
	}
	if question.State != domain.QuestionInProgress {
		return fmt.Errorf("question %s is %s, not in progress: %w", questionID, question.State, domain.ErrConflict)
	}

	if err := s.games.SetQuestionState(ctx, gameID, questionID, domain.QuestionInProgress, domain.QuestionEnded, time.Time{}); err != nil {
		return err
	}
	s.devices.QuestionClosed(ctx, gameID)
	return nil
}

// SubmitAnswer evaluates a device's color pick against the question
// currently in progress. Every accepted submission bumps the question's
// answer count; only a correct one changes the player's score. Returns
// whether the pick was correct.
func (s *GameService) SubmitAnswer(ctx context.Context, gameID, playerID string, color domain.Color) (bool, error) {
	unlock := s.lockGame(gameID)
	defer unlock()

	game, err := s.games.GetGame(ctx, gameID)
	if err != nil {
		return false, err
	}
	player, err := game.PlayerByID(playerID)
	if err != nil {
		return false, err
	}
	question, err := game.InProgressQuestion()
	if err != nil {
		return false, err
	}

	answer := question.AnswerByColor(color)
	correct := answer != nil && answer.Correct

	question.AnswerCount++
	if award := awardPoints(correct, s.clock().Sub(question.BeginAt)); award > 0 {
		player.Score += award
	}

	if _, err := s.games.SaveGame(ctx, game); err != nil {
		return false, err
	}
	s.viewers.AnswerCountChanged(gameID, question.AnswerCount)
	return correct, nil
}

// GetScores returns a player id to score mapping. Read-only.
func (s *GameService) GetScores(ctx context.Context, gameID string) (map[string]int, error) {
	game, err := s.games.GetGame(ctx, gameID)
	if err != nil {
		return nil, err
	}
	scores := make(map[string]int, len(game.Players))
	for _, p := range game.Players {
		scores[p.ID] = p.Score
	}
	return scores, nil
}

func (s *GameService) notifyQueueingGames(ctx context.Context) {
	queueing, err := s.games.FindQueueingGames(ctx)
	if err != nil {
		return
	}
	s.devices.QueueingGamesChanged(ctx, queueing)
}
