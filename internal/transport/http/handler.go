package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"buzz-quiz-service/internal/app"
	"buzz-quiz-service/internal/domain"
	"github.com/rs/zerolog/log"
)

// Handler maps the HTTP surface 1:1 onto the game session engine.
type Handler struct {
	service *app.GameService
}

func NewHandler(service *app.GameService) *Handler {
	return &Handler{service: service}
}

// Register wires all game routes onto the mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/quiz/{quizId}/play", h.playQuiz)
	mux.HandleFunc("GET /api/game/queueing", h.listQueueing)
	mux.HandleFunc("GET /api/game/{gameId}", h.getGame)
	mux.HandleFunc("GET /api/game/{gameId}/players", h.getPlayers)
	mux.HandleFunc("POST /api/game/{gameId}/join", h.joinGame)
	mux.HandleFunc("POST /api/game/{gameId}/start", h.startGame)
	mux.HandleFunc("POST /api/game/{gameId}/end", h.endGame)
	mux.HandleFunc("POST /api/game/{gameId}/question/{questionId}/begin", h.beginQuestion)
	mux.HandleFunc("POST /api/game/{gameId}/question/{questionId}/end", h.endQuestion)
	mux.HandleFunc("POST /api/game/{gameId}/answer/{playerId}", h.answerQuestion)
	mux.HandleFunc("GET /api/game/{gameId}/score", h.getScore)
}

func (h *Handler) playQuiz(w http.ResponseWriter, r *http.Request) {
	game, err := h.service.CreateGame(r.Context(), r.PathValue("quizId"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, game)
}

func (h *Handler) listQueueing(w http.ResponseWriter, r *http.Request) {
	games, err := h.service.ListQueueingGames(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, games)
}

func (h *Handler) getGame(w http.ResponseWriter, r *http.Request) {
	game, err := h.service.GetGame(r.Context(), r.PathValue("gameId"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, game)
}

func (h *Handler) getPlayers(w http.ResponseWriter, r *http.Request) {
	players, err := h.service.GetPlayers(r.Context(), r.PathValue("gameId"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, players)
}

func (h *Handler) joinGame(w http.ResponseWriter, r *http.Request) {
	player, err := h.service.AdmitPlayer(r.Context(), r.PathValue("gameId"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, player)
}

func (h *Handler) startGame(w http.ResponseWriter, r *http.Request) {
	if err := h.service.StartGame(r.Context(), r.PathValue("gameId")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) endGame(w http.ResponseWriter, r *http.Request) {
	if err := h.service.EndGame(r.Context(), r.PathValue("gameId")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) beginQuestion(w http.ResponseWriter, r *http.Request) {
	if err := h.service.OpenQuestion(r.Context(), r.PathValue("gameId"), r.PathValue("questionId")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) endQuestion(w http.ResponseWriter, r *http.Request) {
	if err := h.service.CloseQuestion(r.Context(), r.PathValue("gameId"), r.PathValue("questionId")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// answerQuestion takes the picked color as a JSON string body ("RED") and
// returns the correctness result as a JSON bool, so the device learns
// immediately whether its submission was right.
func (h *Handler) answerQuestion(w http.ResponseWriter, r *http.Request) {
	var color domain.Color
	if err := json.NewDecoder(r.Body).Decode(&color); err != nil {
		http.Error(w, "body must be a JSON color string", http.StatusBadRequest)
		return
	}
	correct, err := h.service.SubmitAnswer(r.Context(), r.PathValue("gameId"), r.PathValue("playerId"), color)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, correct)
}

func (h *Handler) getScore(w http.ResponseWriter, r *http.Request) {
	scores, err := h.service.GetScores(r.Context(), r.PathValue("gameId"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, scores)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Warn().Err(err).Msg("write response")
	}
}

// writeError maps the engine's error kinds onto distinct status codes.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrConflict):
		status = http.StatusConflict
	case errors.Is(err, domain.ErrCapacity):
		status = http.StatusTooManyRequests
	case errors.Is(err, domain.ErrInternal):
		status = http.StatusInternalServerError
	}
	http.Error(w, err.Error(), status)
}
