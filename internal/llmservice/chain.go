package llmservice

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"
)

// Chain tries each generator in order and returns the first successful reply.
type Chain []Generator

func (c Chain) Generate(ctx context.Context, req Request) (string, error) {
	var errs []error
	for i, g := range c {
		text, err := g.Generate(ctx, req)
		if err == nil {
			return text, nil
		}
		errs = append(errs, err)
		if ctx.Err() != nil {
			break
		}
		if i < len(c)-1 {
			log.Warn().Err(err).Msg("Primary model failed, trying fallback model")
		}
	}
	if len(errs) == 0 {
		return "", ErrEmptyResponse
	}
	return "", errors.Join(errs...)
}
