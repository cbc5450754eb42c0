package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"telecom-assistant/internal/config"
	"telecom-assistant/internal/index"
	"telecom-assistant/internal/models"
	"telecom-assistant/internal/session"
	"telecom-assistant/internal/telemetry"
)

type echoAssistant struct{}

func (echoAssistant) Respond(ctx context.Context, conv models.Conversation, question string) (models.Conversation, models.Answer) {
	answer := models.Answer{
		Text:   "echo: " + question,
		Source: models.SourceDocuments,
		Chunks: []models.SearchResult{{Chunk: models.Chunk{DocumentID: "plans.pdf", PageNumber: 2, Section: "DATA"}, Similarity: 0.8}},
	}
	return conv.Append(models.Turn{Question: question, Answer: answer.Text, Source: answer.Source}), answer
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.LoadConfig("does-not-exist.yaml")
	require.NoError(t, err)
	cfg.Server.Mode = gin.TestMode
	cfg.Server.RequestTimeout = 5 * time.Second
	return cfg
}

func newTestServer(t *testing.T) (*Server, *index.Lazy) {
	t.Helper()
	lazy := index.NewLazy(func(ctx context.Context) (*index.Index, error) {
		return &index.Index{}, nil
	})
	srv, err := New(testConfig(t), echoAssistant{}, session.NewMemoryStore(time.Hour), lazy, telemetry.NewMetrics())
	require.NoError(t, err)
	return srv, lazy
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestChat_Conversation(t *testing.T) {
	srv, _ := newTestServer(t)
	h := srv.Handler()

	rec := do(t, h, http.MethodPost, "/api/chat", `{"question":"How much is unlimited data?"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var first chatResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &first))
	assert.NotEmpty(t, first.SessionID)
	assert.Equal(t, "echo: How much is unlimited data?", first.Answer)
	assert.Equal(t, models.SourceDocuments, first.Source)
	require.Len(t, first.Sources, 1)
	assert.Equal(t, "plans.pdf", first.Sources[0].Document)
	assert.Len(t, first.History, 1)

	rec = do(t, h, http.MethodPost, "/api/chat", `{"session_id":"`+first.SessionID+`","question":"And roaming?"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var second chatResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &second))
	assert.Equal(t, first.SessionID, second.SessionID)
	require.Len(t, second.History, 2)
	assert.Equal(t, "And roaming?", second.History[1].Question)

	rec = do(t, h, http.MethodGet, "/api/chat/"+first.SessionID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var hist historyResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &hist))
	assert.Len(t, hist.History, 2)
	assert.NotEmpty(t, hist.Greeting)

	rec = do(t, h, http.MethodDelete, "/api/chat/"+first.SessionID, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/chat/"+first.SessionID, "")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &hist))
	assert.Empty(t, hist.History)
}

func TestChat_BadRequest(t *testing.T) {
	srv, _ := newTestServer(t)

	for _, body := range []string{`{}`, `{"question":"   "}`, `not json`} {
		rec := do(t, srv.Handler(), http.MethodPost, "/api/chat", body)
		require.Equal(t, http.StatusBadRequest, rec.Code, body)

		var errResp ErrorResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &errResp))
		assert.Equal(t, "bad_request", errResp.ErrorCode)
	}
}

func TestIndexPage(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := do(t, srv.Handler(), http.MethodGet, "/", "")

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Telecom Support Assistant")
	assert.Contains(t, body, "<li>Data Packages</li>")
	assert.Contains(t, body, "Clear conversation")
}

func TestHealthAndReady(t *testing.T) {
	srv, lazy := newTestServer(t)
	h := srv.Handler()

	assert.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/health", "").Code)
	assert.Equal(t, http.StatusServiceUnavailable, do(t, h, http.MethodGet, "/ready", "").Code)

	_, err := lazy.Get(context.Background())
	require.NoError(t, err)

	rec := do(t, h, http.MethodGet, "/ready", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ready","chunks":0}`, rec.Body.String())
}

func TestMetricsEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := do(t, srv.Handler(), http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestRequestID(t *testing.T) {
	srv, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", rec.Header().Get(RequestIDHeader))

	rec = do(t, srv.Handler(), http.MethodGet, "/health", "")
	assert.NotEmpty(t, rec.Header().Get(RequestIDHeader))
}
