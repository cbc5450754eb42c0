package llmservice

import (
	"context"
	"errors"
	"fmt"
	"strings"

	genai "github.com/google/generative-ai-go/genai"
	"github.com/rs/zerolog/log"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"telecom-assistant/internal/config"
)

const (
	autoModel          = "auto"
	defaultGeminiModel = "models/gemini-1.5-flash"
	// used when the model list cannot be fetched at all
	unlistedGeminiModel = "models/gemini-pro"
	generateContent     = "generateContent"
)

// Gemini calls the Google Gemini API.
type Gemini struct {
	client      *genai.Client
	model       string
	temperature float32
}

// NewGemini creates a client. Model "auto" picks the first listed flash or pro
// model that supports content generation.
func NewGemini(ctx context.Context, cfg config.LLMConfig) (*Gemini, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.Key))
	if err != nil {
		return nil, fmt.Errorf("error initializing gemini: %w", err)
	}

	model := cfg.Model
	if model == "" || model == autoModel {
		model = discoverModel(ctx, client)
	}
	log.Info().Str("model", model).Msg("Using gemini model")

	return &Gemini{client: client, model: model, temperature: float32(cfg.Temperature)}, nil
}

// Model returns the resolved model name.
func (g *Gemini) Model() string { return g.model }

func (g *Gemini) Generate(ctx context.Context, req Request) (string, error) {
	model := g.client.GenerativeModel(g.model)
	model.SetTemperature(g.temperature)
	if req.JSON {
		model.ResponseMIMEType = "application/json"
	}

	resp, err := model.GenerateContent(ctx, genai.Text(req.Prompt))
	if err != nil {
		return "", err
	}
	text := responseText(resp)
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}

func (g *Gemini) Close() error {
	return g.client.Close()
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			b.WriteString(string(t))
		}
	}
	return b.String()
}

func discoverModel(ctx context.Context, client *genai.Client) string {
	var models []*genai.ModelInfo
	it := client.ListModels(ctx)
	for {
		m, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			log.Warn().Err(err).Msg("Could not list gemini models")
			return unlistedGeminiModel
		}
		models = append(models, m)
	}
	return pickModel(models)
}

func pickModel(models []*genai.ModelInfo) string {
	for _, m := range models {
		if !supports(m.SupportedGenerationMethods, generateContent) {
			continue
		}
		if strings.Contains(m.Name, "flash") || strings.Contains(m.Name, "pro") {
			return m.Name
		}
	}
	return defaultGeminiModel
}

func supports(methods []string, method string) bool {
	for _, m := range methods {
		if m == method {
			return true
		}
	}
	return false
}
