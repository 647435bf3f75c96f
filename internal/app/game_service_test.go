package app_test

import (
	"context"
	"math/rand"
	"sync"
	"testing"
	"time"

	"buzz-quiz-service/internal/app"
	"buzz-quiz-service/internal/domain"
	"buzz-quiz-service/internal/infra/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateGameSnapshotsQuiz(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	game, err := env.service.CreateGame(ctx, "quiz-1")
	require.NoError(t, err)

	assert.Equal(t, domain.GameQueuing, game.State)
	assert.Len(t, game.ColorCode, domain.RoomCodeLength)
	require.Len(t, game.Quiz.Questions, 2)
	for _, q := range game.Quiz.Questions {
		assert.Equal(t, domain.QuestionPending, q.State)
		seen := make(map[domain.Color]bool)
		for _, a := range q.Answers {
			require.NotEmpty(t, a.Color)
			assert.False(t, seen[a.Color], "duplicate answer color in question %s", q.ID)
			seen[a.Color] = true
		}
	}

	// Mutating the authored quiz must not leak into the running game.
	env.authored["quiz-1"].Questions[0].Text = "tampered"
	stored, err := env.service.GetGame(ctx, game.ID)
	require.NoError(t, err)
	for _, q := range stored.Quiz.Questions {
		assert.NotEqual(t, "tampered", q.Text)
	}
}

func TestCreateGameUnknownQuiz(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.service.CreateGame(context.Background(), "no-such-quiz")
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestFullGameScenario(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	game, err := env.service.CreateGame(ctx, "quiz-1")
	require.NoError(t, err)
	assert.Equal(t, domain.GameQueuing, game.State)

	// Admit 3 players, all with distinct colors.
	players := make([]domain.Player, 0, 3)
	for i := 0; i < 3; i++ {
		p, err := env.service.AdmitPlayer(ctx, game.ID)
		require.NoError(t, err)
		players = append(players, p)
	}
	colors := map[domain.Color]bool{}
	for _, p := range players {
		assert.False(t, colors[p.Color], "duplicate player color %s", p.Color)
		colors[p.Color] = true
	}
	roster, err := env.service.GetPlayers(ctx, game.ID)
	require.NoError(t, err)
	assert.Len(t, roster, 3)
	assert.Equal(t, 3, env.viewers.rosterCalls())

	require.NoError(t, env.service.StartGame(ctx, game.ID))
	started, err := env.service.GetGame(ctx, game.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.GameInGame, started.State)

	// Open question 1.
	q1 := started.Quiz.Questions[0]
	require.NoError(t, env.service.OpenQuestion(ctx, game.ID, q1.ID))
	opened, err := env.service.GetGame(ctx, game.ID)
	require.NoError(t, err)
	openedQ1, err := opened.QuestionByID(q1.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.QuestionInProgress, openedQ1.State)
	assert.False(t, openedQ1.BeginAt.IsZero())
	assert.Equal(t, q1.AnswerColors(), env.devices.lastOpenedColors())

	// Player A answers correctly within 50ms.
	env.clock.Advance(50 * time.Millisecond)
	correct, err := env.service.SubmitAnswer(ctx, game.ID, players[0].ID, correctColor(t, openedQ1))
	require.NoError(t, err)
	assert.True(t, correct)
	scores, err := env.service.GetScores(ctx, game.ID)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, scores[players[0].ID], 600)
	assert.LessOrEqual(t, scores[players[0].ID], 1000)

	// Player B answers incorrectly: no score, count still bumps.
	wrong := wrongColor(t, openedQ1)
	correct, err = env.service.SubmitAnswer(ctx, game.ID, players[1].ID, wrong)
	require.NoError(t, err)
	assert.False(t, correct)
	scores, err = env.service.GetScores(ctx, game.ID)
	require.NoError(t, err)
	assert.Zero(t, scores[players[1].ID])

	current, err := env.service.GetGame(ctx, game.ID)
	require.NoError(t, err)
	currentQ1, err := current.QuestionByID(q1.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, currentQ1.AnswerCount)
	assert.Equal(t, 2, env.viewers.lastCount())

	// Close question 1; a late submission fails as an inconsistency.
	require.NoError(t, env.service.CloseQuestion(ctx, game.ID, q1.ID))
	_, err = env.service.SubmitAnswer(ctx, game.ID, players[2].ID, wrong)
	require.ErrorIs(t, err, domain.ErrInternal)

	// End game; joining afterwards conflicts.
	require.NoError(t, env.service.EndGame(ctx, game.ID))
	ended, err := env.service.GetGame(ctx, game.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.GameEnded, ended.State)
	_, err = env.service.AdmitPlayer(ctx, game.ID)
	require.ErrorIs(t, err, domain.ErrConflict)
}

func TestIllegalGameTransitions(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	game, err := env.service.CreateGame(ctx, "quiz-1")
	require.NoError(t, err)

	// Ending a game that never started skips a state.
	require.ErrorIs(t, env.service.EndGame(ctx, game.ID), domain.ErrConflict)

	require.NoError(t, env.service.StartGame(ctx, game.ID))
	// Starting twice conflicts.
	require.ErrorIs(t, env.service.StartGame(ctx, game.ID), domain.ErrConflict)

	require.NoError(t, env.service.EndGame(ctx, game.ID))
	// Nothing leads out of ENDED.
	require.ErrorIs(t, env.service.StartGame(ctx, game.ID), domain.ErrConflict)
	require.ErrorIs(t, env.service.EndGame(ctx, game.ID), domain.ErrConflict)

	require.ErrorIs(t, env.service.StartGame(ctx, "missing"), domain.ErrNotFound)
}

func TestQuestionFlowConflicts(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	game, err := env.service.CreateGame(ctx, "quiz-1")
	require.NoError(t, err)
	q1 := game.Quiz.Questions[0].ID
	q2 := game.Quiz.Questions[1].ID

	// Questions cannot open while the game queues.
	require.ErrorIs(t, env.service.OpenQuestion(ctx, game.ID, q1), domain.ErrConflict)

	require.NoError(t, env.service.StartGame(ctx, game.ID))
	require.NoError(t, env.service.OpenQuestion(ctx, game.ID, q1))

	// Only one question may run at a time.
	require.ErrorIs(t, env.service.OpenQuestion(ctx, game.ID, q2), domain.ErrConflict)
	// Reopening the running question conflicts too.
	require.ErrorIs(t, env.service.OpenQuestion(ctx, game.ID, q1), domain.ErrConflict)

	require.NoError(t, env.service.CloseQuestion(ctx, game.ID, q1))
	// Closed questions stay closed.
	require.ErrorIs(t, env.service.CloseQuestion(ctx, game.ID, q1), domain.ErrConflict)
	require.ErrorIs(t, env.service.OpenQuestion(ctx, game.ID, q1), domain.ErrConflict)

	require.NoError(t, env.service.OpenQuestion(ctx, game.ID, q2))
	require.ErrorIs(t, env.service.OpenQuestion(ctx, game.ID, "missing"), domain.ErrNotFound)
	assert.Equal(t, 1, env.devices.closedCalls())
}

func TestAdmitPlayerCapacity(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	game, err := env.service.CreateGame(ctx, "quiz-1")
	require.NoError(t, err)

	for i := 0; i < domain.PaletteSize(); i++ {
		_, err := env.service.AdmitPlayer(ctx, game.ID)
		require.NoError(t, err)
	}
	_, err = env.service.AdmitPlayer(ctx, game.ID)
	require.ErrorIs(t, err, domain.ErrCapacity)
}

func TestConcurrentAdmitsGetDistinctColors(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	game, err := env.service.CreateGame(ctx, "quiz-1")
	require.NoError(t, err)

	var wg sync.WaitGroup
	results := make(chan domain.Player, domain.PaletteSize())
	for i := 0; i < domain.PaletteSize(); i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p, err := env.service.AdmitPlayer(ctx, game.ID)
			if err == nil {
				results <- p
			}
		}()
	}
	wg.Wait()
	close(results)

	colors := map[domain.Color]bool{}
	admitted := 0
	for p := range results {
		assert.False(t, colors[p.Color], "duplicate color %s handed out", p.Color)
		colors[p.Color] = true
		admitted++
	}
	assert.Equal(t, domain.PaletteSize(), admitted)
}

func TestConcurrentSubmissionsCountEachOnce(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	game, err := env.service.CreateGame(ctx, "quiz-1")
	require.NoError(t, err)

	players := make([]domain.Player, 4)
	for i := range players {
		players[i], err = env.service.AdmitPlayer(ctx, game.ID)
		require.NoError(t, err)
	}
	require.NoError(t, env.service.StartGame(ctx, game.ID))
	qID := game.Quiz.Questions[0].ID
	require.NoError(t, env.service.OpenQuestion(ctx, game.ID, qID))

	opened, err := env.service.GetGame(ctx, game.ID)
	require.NoError(t, err)
	question, err := opened.QuestionByID(qID)
	require.NoError(t, err)
	correct := correctColor(t, question)

	var wg sync.WaitGroup
	for _, p := range players {
		wg.Add(1)
		go func(playerID string) {
			defer wg.Done()
			_, err := env.service.SubmitAnswer(ctx, game.ID, playerID, correct)
			assert.NoError(t, err)
		}(p.ID)
	}
	wg.Wait()

	final, err := env.service.GetGame(ctx, game.ID)
	require.NoError(t, err)
	finalQ, err := final.QuestionByID(qID)
	require.NoError(t, err)
	assert.Equal(t, len(players), finalQ.AnswerCount)

	scores, err := env.service.GetScores(ctx, game.ID)
	require.NoError(t, err)
	for _, p := range players {
		assert.GreaterOrEqual(t, scores[p.ID], 600)
	}
}

func TestSubmitAnswerUnknownPlayer(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	game, err := env.service.CreateGame(ctx, "quiz-1")
	require.NoError(t, err)
	require.NoError(t, env.service.StartGame(ctx, game.ID))
	require.NoError(t, env.service.OpenQuestion(ctx, game.ID, game.Quiz.Questions[0].ID))

	_, err = env.service.SubmitAnswer(ctx, game.ID, "ghost", domain.ColorRed)
	require.ErrorIs(t, err, domain.ErrNotFound)
}

// --- test environment ---

type testEnv struct {
	service  *app.GameService
	authored map[string]domain.Quiz
	viewers  *recordingViewers
	devices  *recordingDevices
	clock    *fakeClock
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	authored := map[string]domain.Quiz{
		"quiz-1": {
			ID:    "quiz-1",
			Title: "Capitals",
			Questions: []domain.Question{
				{
					ID:   "q1",
					Text: "Capital of France?",
					Answers: []domain.Answer{
						{ID: "a1", Text: "Paris", Correct: true},
						{ID: "a2", Text: "Lyon"},
						{ID: "a3", Text: "Nice"},
						{ID: "a4", Text: "Lille"},
					},
				},
				{
					ID:   "q2",
					Text: "Capital of Spain?",
					Answers: []domain.Answer{
						{ID: "a1", Text: "Madrid", Correct: true},
						{ID: "a2", Text: "Barcelona"},
						{ID: "a3", Text: "Sevilla"},
						{ID: "a4", Text: "Bilbao"},
					},
				},
			},
		},
	}

	viewers := &recordingViewers{}
	devices := &recordingDevices{}
	clock := &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}

	service := app.NewGameService(
		memory.NewGameStore(),
		memory.NewQuizRepository(memory.NewStaticQuizLoader(authored), 5*time.Minute),
		viewers,
		devices,
		app.WithClock(clock.Now),
		app.WithRand(rand.New(rand.NewSource(1))),
	)
	return &testEnv{service: service, authored: authored, viewers: viewers, devices: devices, clock: clock}
}

func correctColor(t *testing.T, q *domain.Question) domain.Color {
	t.Helper()
	for _, a := range q.Answers {
		if a.Correct {
			return a.Color
		}
	}
	t.Fatalf("question %s has no correct answer", q.ID)
	return ""
}

func wrongColor(t *testing.T, q *domain.Question) domain.Color {
	t.Helper()
	for _, a := range q.Answers {
		if !a.Correct {
			return a.Color
		}
	}
	t.Fatalf("question %s has no wrong answer", q.ID)
	return ""
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type recordingViewers struct {
	mu      sync.Mutex
	rosters int
	counts  []int
}

func (v *recordingViewers) RosterChanged(string, []domain.Player) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.rosters++
}

func (v *recordingViewers) AnswerCountChanged(_ string, count int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.counts = append(v.counts, count)
}

func (v *recordingViewers) rosterCalls() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.rosters
}

func (v *recordingViewers) lastCount() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	if len(v.counts) == 0 {
		return 0
	}
	return v.counts[len(v.counts)-1]
}

type recordingDevices struct {
	mu       sync.Mutex
	queueing int
	opened   [][]domain.Color
	closed   int
}

func (d *recordingDevices) QueueingGamesChanged(_ context.Context, _ []domain.Game) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.queueing++
}

func (d *recordingDevices) QuestionOpened(_ context.Context, _ string, colors []domain.Color) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.opened = append(d.opened, colors)
}

func (d *recordingDevices) QuestionClosed(_ context.Context, _ string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed++
}

func (d *recordingDevices) lastOpenedColors() []domain.Color {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.opened) == 0 {
		return nil
	}
	return d.opened[len(d.opened)-1]
}

func (d *recordingDevices) closedCalls() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}
