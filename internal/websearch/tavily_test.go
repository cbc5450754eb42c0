package websearch

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"telecom-assistant/internal/config"
	"telecom-assistant/internal/models"
)

func newTavily(url string) *Tavily {
	return NewTavily(config.WebSearchConfig{
		BaseURL:     url + "/",
		Key:         "tvly-test",
		SearchDepth: "basic",
		Timeout:     time.Second,
	})
}

func TestTavily_Search(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, "Bearer tvly-test", r.Header.Get("Authorization"))

		var req searchRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "weather in Colombo", req.Query)
		assert.Equal(t, 2, req.MaxResults)
		assert.Equal(t, "basic", req.SearchDepth)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"results":[
			{"title":"Colombo weather","url":"https://a.example","content":"Sunny, 31C","score":0.9},
			{"title":"Forecast","url":"https://b.example","content":"Rain later","score":0.8},
			{"title":"Extra","url":"https://c.example","content":"ignored","score":0.1}
		]}`))
	}))
	defer srv.Close()

	results, err := newTavily(srv.URL).Search(context.Background(), " weather in Colombo ", 2)
	require.NoError(t, err)
	assert.Equal(t, []models.WebResult{
		{Title: "Colombo weather", Snippet: "Sunny, 31C", URL: "https://a.example"},
		{Title: "Forecast", Snippet: "Rain later", URL: "https://b.example"},
	}, results)
}

func TestTavily_NoResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"results":[]}`))
	}))
	defer srv.Close()

	results, err := newTavily(srv.URL).Search(context.Background(), "q", 3)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestTavily_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"detail":"invalid api key"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := newTavily(srv.URL).Search(context.Background(), "q", 3)
	require.ErrorIs(t, err, ErrStatus)
	assert.Contains(t, err.Error(), "401")
}

func TestTavily_BadJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`not json`))
	}))
	defer srv.Close()

	_, err := newTavily(srv.URL).Search(context.Background(), "q", 3)
	assert.Error(t, err)
}

func TestTavily_EmptyQuery(t *testing.T) {
	_, err := newTavily("http://unused").Search(context.Background(), "  ", 3)
	assert.ErrorIs(t, err, ErrEmptyQuery)
}
