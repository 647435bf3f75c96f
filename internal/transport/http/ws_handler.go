package http

import (
	"net/http"
	"sync"

	"buzz-quiz-service/internal/domain"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// ViewerHub pushes roster and answer-count updates to spectator websockets,
// grouped per game. It implements app.ViewerNotifier; broadcasts never block
// on a slow client.
type ViewerHub struct {
	upgrader websocket.Upgrader

	mu    sync.RWMutex
	rooms map[string]map[*viewerClient]struct{}
}

type viewerClient struct {
	conn *websocket.Conn
	send chan viewerEvent
}

type viewerEvent struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

type answerCountPayload struct {
	Count int `json:"count"`
}

func NewViewerHub() *ViewerHub {
	return &ViewerHub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		rooms: make(map[string]map[*viewerClient]struct{}),
	}
}

// ServeWS upgrades a spectator connection and subscribes it to one game's
// updates until the peer disconnects.
func (h *ViewerHub) ServeWS(w http.ResponseWriter, r *http.Request) {
	gameID := r.URL.Query().Get("gameId")
	if gameID == "" {
		http.Error(w, "missing gameId", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("ws upgrade failed")
		return
	}

	client := &viewerClient{conn: conn, send: make(chan viewerEvent, 16)}
	h.register(gameID, client)
	defer h.unregister(gameID, client)

	go func() {
		for event := range client.send {
			if err := conn.WriteJSON(event); err != nil {
				log.Debug().Err(err).Str("game", gameID).Msg("ws write error")
				return
			}
		}
	}()

	// Viewers only listen; drain until the peer goes away.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// RosterChanged broadcasts the new player list to the game's viewers.
func (h *ViewerHub) RosterChanged(gameID string, players []domain.Player) {
	h.broadcast(gameID, viewerEvent{Type: "players", Payload: players})
}

// AnswerCountChanged broadcasts the running submission count for the open
// question.
func (h *ViewerHub) AnswerCountChanged(gameID string, count int) {
	h.broadcast(gameID, viewerEvent{Type: "answerCount", Payload: answerCountPayload{Count: count}})
}

func (h *ViewerHub) register(gameID string, client *viewerClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.rooms[gameID]; !ok {
		h.rooms[gameID] = make(map[*viewerClient]struct{})
	}
	h.rooms[gameID][client] = struct{}{}
}

func (h *ViewerHub) unregister(gameID string, client *viewerClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	room, ok := h.rooms[gameID]
	if !ok {
		return
	}
	if _, ok := room[client]; ok {
		delete(room, client)
		close(client.send)
		_ = client.conn.Close()
	}
	if len(room) == 0 {
		delete(h.rooms, gameID)
	}
}

func (h *ViewerHub) broadcast(gameID string, event viewerEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.rooms[gameID] {
		select {
		case client.send <- event:
		default:
			// slow client, drop the update
		}
	}
}
