package llmservice

import (
	"context"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"

	"telecom-assistant/internal/config"
)

// LangChain adapts any langchaingo model to Generator.
type LangChain struct {
	llm         llms.Model
	temperature float64
}

func NewLangChain(llm llms.Model, temperature float64) *LangChain {
	return &LangChain{llm: llm, temperature: temperature}
}

// NewOpenAI talks to an OpenAI compatible chat endpoint such as OpenRouter.
func NewOpenAI(cfg config.LLMConfig) (*LangChain, error) {
	opts := []openai.Option{
		openai.WithToken(strings.TrimPrefix(cfg.Key, "Bearer ")),
		openai.WithModel(cfg.Model),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
	}
	llm, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("error initializing openai: %w", err)
	}
	return NewLangChain(llm, cfg.Temperature), nil
}

func NewOllama(cfg config.LLMConfig) (*LangChain, error) {
	opts := []ollama.Option{ollama.WithModel(cfg.Model)}
	if cfg.BaseURL != "" {
		opts = append(opts, ollama.WithServerURL(cfg.BaseURL))
	}
	llm, err := ollama.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("error initializing ollama: %w", err)
	}
	return NewLangChain(llm, cfg.Temperature), nil
}

func (l *LangChain) Generate(ctx context.Context, req Request) (string, error) {
	opts := []llms.CallOption{llms.WithTemperature(l.temperature)}
	if req.JSON {
		opts = append(opts, llms.WithJSONMode())
	}

	text, err := llms.GenerateFromSinglePrompt(ctx, l.llm, req.Prompt, opts...)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}
