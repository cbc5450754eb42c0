package llmservice

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"telecom-assistant/internal/config"
)

const defaultBackoff = 500 * time.Millisecond

// Guard protects a Generator with a per-call timeout, bounded retries with
// exponential backoff, a shared rate limiter and a circuit breaker.
type Guard struct {
	name    string
	next    Generator
	timeout time.Duration
	retries int
	backoff time.Duration
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker
}

func NewGuard(name string, next Generator, cfg config.LLMConfig, limiter *rate.Limiter) *Guard {
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			log.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("Circuit breaker state changed")
		},
	})

	return &Guard{
		name:    name,
		next:    next,
		timeout: cfg.Timeout,
		retries: max(0, cfg.MaxRetries),
		backoff: defaultBackoff,
		limiter: limiter,
		breaker: breaker,
	}
}

// WithBackoff sets the delay before the first retry; later retries double it.
func (g *Guard) WithBackoff(d time.Duration) *Guard {
	g.backoff = d
	return g
}

func (g *Guard) Generate(ctx context.Context, req Request) (string, error) {
	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("%s: rate limit: %w", g.name, err)
		}
	}

	result, err := g.breaker.Execute(func() (interface{}, error) {
		return g.withRetries(ctx, req)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			log.Warn().Str("breaker", g.name).Msg("LLM circuit open, skipping call")
		}
		return "", fmt.Errorf("%s: %w", g.name, err)
	}
	return result.(string), nil
}

func (g *Guard) withRetries(ctx context.Context, req Request) (string, error) {
	var lastErr error
	for attempt := 0; attempt <= g.retries; attempt++ {
		if attempt > 0 {
			delay := g.backoff * time.Duration(1<<(attempt-1))
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(delay):
			}
		}

		text, err := g.call(ctx, req)
		if err == nil {
			return text, nil
		}
		lastErr = err
		log.Warn().Err(err).Str("llm", g.name).Int("attempt", attempt+1).Msg("LLM call failed")
		if ctx.Err() != nil {
			break
		}
	}
	return "", lastErr
}

func (g *Guard) call(ctx context.Context, req Request) (string, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}
	return g.next.Generate(ctx, req)
}
