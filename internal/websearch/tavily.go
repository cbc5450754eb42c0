package websearch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"telecom-assistant/internal/config"
	"telecom-assistant/internal/models"
)

const maxErrorBody = 512

var (
	ErrEmptyQuery = errors.New("empty search query")
	ErrStatus     = errors.New("unexpected search status")
)

// Searcher returns ranked web results for a query.
type Searcher interface {
	Search(ctx context.Context, query string, maxResults int) ([]models.WebResult, error)
}

// Tavily is a client for the Tavily search API.
type Tavily struct {
	baseURL string
	apiKey  string
	depth   string
	client  *http.Client
}

type searchRequest struct {
	Query       string `json:"query"`
	MaxResults  int    `json:"max_results"`
	SearchDepth string `json:"search_depth,omitempty"`
}

type searchResponse struct {
	Results []struct {
		Title   string  `json:"title"`
		URL     string  `json:"url"`
		Content string  `json:"content"`
		Score   float64 `json:"score"`
	} `json:"results"`
}

func NewTavily(cfg config.WebSearchConfig) *Tavily {
	return &Tavily{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.Key,
		depth:   cfg.SearchDepth,
		client:  &http.Client{Timeout: cfg.Timeout},
	}
}

func (t *Tavily) Search(ctx context.Context, query string, maxResults int) ([]models.WebResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}

	body, err := json.Marshal(searchRequest{Query: query, MaxResults: maxResults, SearchDepth: t.depth})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+"/search", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build search request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+t.apiKey)

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, fmt.Errorf("%w: %d %s", ErrStatus, resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var parsed searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	results := make([]models.WebResult, 0, len(parsed.Results))
	for _, r := range parsed.Results {
		if maxResults > 0 && len(results) == maxResults {
			break
		}
		results = append(results, models.WebResult{Title: r.Title, Snippet: r.Content, URL: r.URL})
	}
	log.Debug().Str("query", query).Int("results", len(results)).Msg("Web search done")
	return results, nil
}
