package handler

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/shashiX07/webhook-service/internal/store"
)

// GenerateWebhook creates a fresh endpoint, or returns an existing one when
// the client passes its stored id back via ?endpoint=.
func (h *Handler) GenerateWebhook(w http.ResponseWriter, r *http.Request) {
	endpoint, reused, err := h.Store.EnsureEndpoint(r.Context(), r.URL.Query().Get("endpoint"))
	if err != nil {
		h.respondStorageError(w, err)
		return
	}

	resp := map[string]any{
		"success":   true,
		"endpoint":  endpoint.ID,
		"url":       baseURL(r) + "/webhook/" + endpoint.ID,
		"createdAt": formatLocal(endpoint.CreatedAt),
	}
	if reused {
		resp["reused"] = true
	}
	h.respondJSON(w, http.StatusOK, resp)
}

func (h *Handler) ListRequests(w http.ResponseWriter, r *http.Request) {
	endpointID := chi.URLParam(r, "endpointID")

	reqs, err := h.Store.ListRequests(r.Context(), endpointID)
	if errors.Is(err, store.ErrNotFound) {
		h.respondNotFound(w)
		return
	}
	if err != nil {
		h.respondStorageError(w, err)
		return
	}

	payload := make([]map[string]any, 0, len(reqs))
	for _, req := range reqs {
		payload = append(payload, requestPayload(req))
	}

	h.respondJSON(w, http.StatusOK, map[string]any{
		"success":       true,
		"endpoint":      endpointID,
		"totalRequests": len(payload),
		"requests":      payload,
	})
}

func (h *Handler) ClearRequests(w http.ResponseWriter, r *http.Request) {
	endpointID := chi.URLParam(r, "endpointID")

	cleared, err := h.Store.ClearRequests(r.Context(), endpointID)
	if errors.Is(err, store.ErrNotFound) {
		h.respondNotFound(w)
		return
	}
	if err != nil {
		h.respondStorageError(w, err)
		return
	}

	h.Log.WithField("endpoint", endpointID).WithField("cleared", cleared).Info("requests cleared")
	h.respondJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "All requests cleared",
	})
}

// Refresh deletes endpoints with no recent activity. Records are purged
// before their endpoint rows inside the store.
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	cutoff := time.Now().UTC().Add(-h.idleWindow)
	deleted, err := h.Store.SweepIdle(r.Context(), cutoff)
	if err != nil {
		h.respondStorageError(w, err)
		return
	}

	message := "No unused endpoints found."
	if len(deleted) > 0 {
		message = fmt.Sprintf("%d endpoints deleted.", len(deleted))
	}
	h.respondJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"deleted": deleted,
		"message": message,
	})
}
