package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shashiX07/webhook-service/internal/store"
)

func newTestRouter(t *testing.T, s store.Store) *chi.Mux {
	t.Helper()
	log := logrus.New()
	log.SetOutput(io.Discard)
	h := NewHandler(s, log, time.Hour)

	r := chi.NewRouter()
	r.Get("/api/generate-webhook", h.GenerateWebhook)
	r.Get("/api/webhook/{endpointID}/requests", h.ListRequests)
	r.Delete("/api/webhook/{endpointID}/requests", h.ClearRequests)
	r.Delete("/api/refresh", h.Refresh)
	r.HandleFunc("/webhook/{endpointID}", h.Capture)
	return r
}

func newTestEnv(t *testing.T) (*chi.Mux, *store.SQLiteStore) {
	t.Helper()
	s, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return newTestRouter(t, s), s
}

func doRequest(t *testing.T, router http.Handler, req *http.Request) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return rec, body
}

func generateEndpoint(t *testing.T, router http.Handler) string {
	t.Helper()
	rec, body := doRequest(t, router, httptest.NewRequest("GET", "/api/generate-webhook", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	return body["endpoint"].(string)
}

func TestGenerateWebhook(t *testing.T) {
	router, _ := newTestEnv(t)

	rec, body := doRequest(t, router, httptest.NewRequest("GET", "/api/generate-webhook", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["success"])

	id := body["endpoint"].(string)
	assert.Len(t, id, 64)
	assert.Equal(t, "http://example.com/webhook/"+id, body["url"])
	assert.NotEmpty(t, body["createdAt"])
	assert.NotContains(t, body, "reused")
}

func TestGenerateWebhookReuse(t *testing.T) {
	router, _ := newTestEnv(t)

	_, first := doRequest(t, router, httptest.NewRequest("GET", "/api/generate-webhook", nil))
	id := first["endpoint"].(string)

	rec, second := doRequest(t, router, httptest.NewRequest("GET", "/api/generate-webhook?endpoint="+id, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, id, second["endpoint"])
	assert.Equal(t, true, second["reused"])
	assert.Equal(t, first["createdAt"], second["createdAt"])
}

func TestGenerateWebhookUnknownSuppliedID(t *testing.T) {
	router, _ := newTestEnv(t)

	rec, body := doRequest(t, router, httptest.NewRequest("GET", "/api/generate-webhook?endpoint=stale-id", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEqual(t, "stale-id", body["endpoint"])
	assert.NotContains(t, body, "reused")
}

func TestListRequestsUnknownEndpoint(t *testing.T) {
	router, _ := newTestEnv(t)

	rec, body := doRequest(t, router, httptest.NewRequest("GET", "/api/webhook/unknown/requests", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "Webhook endpoint not found", body["error"])
}

func TestClearRequests(t *testing.T) {
	router, _ := newTestEnv(t)
	id := generateEndpoint(t, router)

	for i := 0; i < 2; i++ {
		rec, _ := doRequest(t, router, httptest.NewRequest("POST", "/webhook/"+id, nil))
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec, body := doRequest(t, router, httptest.NewRequest("DELETE", "/api/webhook/"+id+"/requests", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "All requests cleared", body["message"])

	_, listed := doRequest(t, router, httptest.NewRequest("GET", "/api/webhook/"+id+"/requests", nil))
	assert.EqualValues(t, 0, listed["totalRequests"])

	// Clearing again is still a success
	rec, _ = doRequest(t, router, httptest.NewRequest("DELETE", "/api/webhook/"+id+"/requests", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestClearRequestsUnknownEndpoint(t *testing.T) {
	router, _ := newTestEnv(t)

	rec, body := doRequest(t, router, httptest.NewRequest("DELETE", "/api/webhook/unknown/requests", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, false, body["success"])
}

func TestRefreshNothingEligible(t *testing.T) {
	router, _ := newTestEnv(t)
	generateEndpoint(t, router)

	rec, body := doRequest(t, router, httptest.NewRequest("DELETE", "/api/refresh", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["success"])
	assert.Empty(t, body["deleted"])
	assert.Equal(t, "No unused endpoints found.", body["message"])
}

// sweepStore cans the sweep result so the handler envelope can be checked
// without backdating rows.
type sweepStore struct {
	store.Store
	deleted []string
}

func (s *sweepStore) SweepIdle(ctx context.Context, cutoff time.Time) ([]string, error) {
	return s.deleted, nil
}

func TestRefreshReportsDeleted(t *testing.T) {
	_, s := newTestEnv(t)
	router := newTestRouter(t, &sweepStore{Store: s, deleted: []string{"a", "b"}})

	rec, body := doRequest(t, router, httptest.NewRequest("DELETE", "/api/refresh", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []any{"a", "b"}, body["deleted"])
	assert.Equal(t, "2 endpoints deleted.", body["message"])
}
