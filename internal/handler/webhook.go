package handler

import (
	"encoding/json"
	"io"
	"mime"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/shashiX07/webhook-service/internal/store"
)

// Capture accepts any HTTP method aimed at a registered endpoint and stores
// a snapshot of the request. An unknown endpoint is rejected before anything
// is written.
func (h *Handler) Capture(w http.ResponseWriter, r *http.Request) {
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

	body, err := io.ReadAll(r.Body)
	if err != nil {
		h.Log.WithError(err).WithField("endpoint", endpointID).Warn("failed to read request body")
		body = nil
	}
	defer r.Body.Close()

	req := &store.Request{
		EndpointID: endpointID,
		Method:     r.Method,
		Headers:    marshalHeaders(r.Header),
		Body:       encodeBody(r.Header.Get("Content-Type"), body),
		Query:      marshalQuery(r.URL.Query()),
		Params:     marshalParams(endpointID),
		Timestamp:  time.Now().UTC(),
		IP:         clientIP(r),
	}

	if err := h.Store.AppendRequest(r.Context(), req); err != nil {
		h.respondStorageError(w, err)
		return
	}

	h.broadcast(endpointID, map[string]any{
		"type":    "new-request",
		"payload": requestPayload(req),
	})

	h.respondJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"message":   "Webhook received successfully",
		"timestamp": formatLocal(req.Timestamp),
	})
}

func marshalHeaders(header http.Header) string {
	b, _ := json.Marshal(map[string][]string(header))
	return string(b)
}

// encodeBody renders the payload as JSON text: JSON bodies stay structured,
// form bodies become a flat map, anything else is kept as a JSON string.
// A payload that fails to parse never fails the capture.
func encodeBody(contentType string, body []byte) string {
	if len(body) == 0 {
		return "null"
	}

	mediaType := contentType
	if mt, _, err := mime.ParseMediaType(contentType); err == nil {
		mediaType = mt
	}

	switch {
	case strings.Contains(mediaType, "json"):
		if json.Valid(body) {
			return string(body)
		}
	case mediaType == "application/x-www-form-urlencoded":
		if values, err := url.ParseQuery(string(body)); err == nil {
			return marshalQuery(values)
		}
	}

	raw, _ := json.Marshal(string(body))
	return string(raw)
}

func marshalQuery(values url.Values) string {
	flat := make(map[string]string, len(values))
	for k, v := range values {
		if len(v) > 0 {
			flat[k] = v[0]
		}
	}
	b, _ := json.Marshal(flat)
	return string(b)
}

func marshalParams(endpointID string) string {
	b, _ := json.Marshal(map[string]string{"endpoint": endpointID})
	return string(b)
}

// clientIP strips the port from the peer address. RealIP middleware has
// already resolved X-Forwarded-For / X-Real-Ip when the deployment sits
// behind a proxy.
func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
