package api

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const writeWait = 10 * time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// StreamEvents handles GET /v1/runs/{id}/events. It sends every task transition of the
// run as a JSON text message and closes normally once the run finishes.
func (h *Handler) StreamEvents(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	events, err := h.store.Events(id)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("Failed to upgrade connection", zap.String("run", id), zap.Error(err))
		return
	}
	defer conn.Close()

	past, updates, cancel := events.Subscribe()
	defer cancel()

	// the client never sends anything; reading surfaces its close
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for _, t := range past {
		if err := h.writeEvent(conn, t); err != nil {
			return
		}
	}

	for {
		select {
		case t, ok := <-updates:
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "run finished"),
					time.Now().Add(writeWait))
				_ = conn.SetReadDeadline(time.Now().Add(writeWait))
				<-gone
				return
			}
			if err := h.writeEvent(conn, t); err != nil {
				return
			}
		case <-gone:
			return
		}
	}
}

func (h *Handler) writeEvent(conn *websocket.Conn, v any) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteJSON(v); err != nil {
		if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
			h.logger.Debug("Event stream write failed", zap.Error(err))
		}
		return err
	}
	return nil
}
