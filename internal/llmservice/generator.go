package llmservice

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"telecom-assistant/internal/config"
)

var (
	ErrEmptyResponse   = errors.New("llm returned an empty response")
	ErrUnknownProvider = errors.New("unknown llm provider")
)

// Request is a single prompt sent to the model.
type Request struct {
	Prompt string
	// JSON asks the model to reply with a JSON object.
	JSON bool
}

// Generator produces a text completion for a prompt.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// New builds the configured provider guarded by timeouts, retries, rate
// limiting and a circuit breaker. When a fallback model is configured it is
// tried after the primary model fails.
func New(ctx context.Context, cfg config.LLMConfig) (Generator, error) {
	log.Debug().Interface("config", map[string]string{
		"provider":       cfg.Provider,
		"base_url":       cfg.BaseURL,
		"model":          cfg.Model,
		"fallback_model": cfg.FallbackModel,
	}).Msg("Loaded llm config")

	primary, err := newProvider(ctx, cfg)
	if err != nil {
		return nil, err
	}
	limiter := newLimiter(cfg.RatePerMinute)

	chain := Chain{NewGuard("llm-primary", primary, cfg, limiter)}
	if cfg.FallbackModel != "" && cfg.FallbackModel != cfg.Model {
		fbCfg := cfg
		fbCfg.Model = cfg.FallbackModel
		fallback, err := newProvider(ctx, fbCfg)
		if err != nil {
			return nil, fmt.Errorf("fallback model: %w", err)
		}
		chain = append(chain, NewGuard("llm-fallback", fallback, cfg, limiter))
	}
	if len(chain) == 1 {
		return chain[0], nil
	}
	return chain, nil
}

func newProvider(ctx context.Context, cfg config.LLMConfig) (Generator, error) {
	switch cfg.Provider {
	case "gemini":
		return NewGemini(ctx, cfg)
	case "openai":
		return NewOpenAI(cfg)
	case "ollama":
		return NewOllama(cfg)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, cfg.Provider)
	}
}

func newLimiter(perMinute int) *rate.Limiter {
	if perMinute <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), max(1, perMinute/10))
}
