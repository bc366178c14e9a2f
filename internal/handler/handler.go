package handler

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/shashiX07/webhook-service/internal/store"
)

// Local display format used at the API boundary. Storage stays UTC.
const displayTimeFormat = "2006-01-02 15:04:05"

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type Handler struct {
	Store store.Store
	Log   *logrus.Logger

	idleWindow time.Duration

	clients   map[string]map[string]*websocket.Conn // endpoint id -> conn id -> conn
	clientsMu sync.Mutex
}

func NewHandler(s store.Store, log *logrus.Logger, idleWindow time.Duration) *Handler {
	return &Handler{
		Store:      s,
		Log:        log,
		idleWindow: idleWindow,
		clients:    make(map[string]map[string]*websocket.Conn),
	}
}

func formatLocal(t time.Time) string {
	return t.In(time.Local).Format(displayTimeFormat)
}

func (h *Handler) respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.Log.WithError(err).Error("failed to write response")
	}
}

func (h *Handler) respondNotFound(w http.ResponseWriter) {
	h.respondJSON(w, http.StatusNotFound, map[string]any{
		"success": false,
		"error":   "Webhook endpoint not found",
	})
}

// Detail stays in the log; clients get a generic envelope.
func (h *Handler) respondStorageError(w http.ResponseWriter, err error) {
	h.Log.WithError(err).Error("storage error")
	h.respondJSON(w, http.StatusInternalServerError, map[string]any{
		"success": false,
		"error":   "Database error",
	})
}

// requestPayload is the wire view of a stored record, shared by the list API
// and the live feed.
func requestPayload(req *store.Request) map[string]any {
	return map[string]any{
		"id":        req.ID,
		"endpoint":  req.EndpointID,
		"method":    req.Method,
		"headers":   rawOrNull(req.Headers),
		"body":      rawOrNull(req.Body),
		"query":     rawOrNull(req.Query),
		"params":    rawOrNull(req.Params),
		"timestamp": formatLocal(req.Timestamp),
		"ip":        req.IP,
	}
}

func rawOrNull(s string) json.RawMessage {
	if s == "" {
		return json.RawMessage("null")
	}
	return json.RawMessage(s)
}

func (h *Handler) broadcast(endpointID string, payload any) {
	h.clientsMu.Lock()
	defer h.clientsMu.Unlock()

	for id, conn := range h.clients[endpointID] {
		if err := conn.WriteJSON(payload); err != nil {
			conn.Close()
			delete(h.clients[endpointID], id)
		}
	}
}

func baseURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}
	return scheme + "://" + r.Host
}
