package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// LiveFeed streams each accepted capture for an endpoint to the connected
// client. The browser client works by polling alone; this is an optional
// push channel.
func (h *Handler) LiveFeed(w http.ResponseWriter, r *http.Request) {
	endpointID := chi.URLParam(r, "endpointID")

	exists, err := h.Store.EndpointExists(r.Context(), endpointID)
	if err != nil {
		h.respondStorageError(w, err)
		return
	}
	if !exists {
		h.respondNotFound(w)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.Log.WithError(err).Error("websocket upgrade failed")
		return
	}

	connID := uuid.New().String()
	h.clientsMu.Lock()
	if h.clients[endpointID] == nil {
		h.clients[endpointID] = make(map[string]*websocket.Conn)
	}
	h.clients[endpointID][connID] = conn
	h.clientsMu.Unlock()

	defer func() {
		h.clientsMu.Lock()
		delete(h.clients[endpointID], connID)
		h.clientsMu.Unlock()
		conn.Close()
	}()

	// Keep the connection open; we only write.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.Log.WithError(err).Debug("websocket closed")
			}
			return
		}
	}
}
