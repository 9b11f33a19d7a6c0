package modelclient

import (
	"context"

	"github.com/modelcouncil/council/pkg/clienterrors"
	"github.com/modelcouncil/council/pkg/ratelimit"
)

// RateLimited wraps a ModelClient with a token-bucket limiter (teacher's
// internal/generators/openaicompat rate limiter, generalized here to any
// adapter instead of one HTTP transport) so a wide council fan-out cannot
// exceed one provider's request budget regardless of which adapter backs it.
type RateLimited struct {
	inner   ModelClient
	limiter *ratelimit.Limiter
}

// NewRateLimited wraps inner with limiter. A nil limiter makes this a
// transparent passthrough.
func NewRateLimited(inner ModelClient, limiter *ratelimit.Limiter) *RateLimited {
	return &RateLimited{inner: inner, limiter: limiter}
}

// Complete implements ModelClient, blocking for a token before delegating.
func (r *RateLimited) Complete(ctx context.Context, modelID, systemPrompt, userPrompt string) (string, error) {
	if r.limiter != nil {
		if err := r.limiter.Wait(ctx); err != nil {
			return "", clienterrors.TimeoutErr(r.inner.Name(), err)
		}
	}
	return r.inner.Complete(ctx, modelID, systemPrompt, userPrompt)
}

// Name implements ModelClient.
func (r *RateLimited) Name() string {
	return r.inner.Name()
}
