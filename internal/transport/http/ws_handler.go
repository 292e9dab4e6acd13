package http

import (
	"net/http"
	"strconv"

	"github.com/NikitaKuzlyaev/GridArena-sub000/internal/app"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// WSHandler streams contest standings to websocket clients.
type WSHandler struct {
	hub      *app.StandingsHub
	log      *zap.Logger
	upgrader websocket.Upgrader
}

func NewWSHandler(hub *app.StandingsHub, log *zap.Logger) *WSHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &WSHandler{
		hub: hub,
		log: log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

// ServeStandings upgrades the request and pushes every standings update of
// ?contestId= until the client goes away.
func (h *WSHandler) ServeStandings(w http.ResponseWriter, r *http.Request) {
	contestID, err := strconv.ParseInt(r.URL.Query().Get("contestId"), 10, 64)
	if err != nil || contestID <= 0 {
		http.Error(w, "missing or invalid contestId", http.StatusBadRequest)
		return
	}

	// Subscribe before upgrading so an unknown contest is a plain HTTP error.
	updates, cancel, err := h.hub.Subscribe(r.Context(), contestID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	defer cancel()

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Debug("ws upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	// The client never sends anything meaningful; reading only detects disconnects.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case st, ok := <-updates:
			if !ok {
				return
			}
			if err := conn.WriteJSON(outboundMessage[any]{Type: "standings", Payload: st}); err != nil {
				h.log.Debug("ws write error", zap.Error(err))
				return
			}
		case <-closed:
			return
		case <-r.Context().Done():
			return
		}
	}
}
