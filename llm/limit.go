package llm

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

type limitedClient struct {
	inner   Client
	limiter *rate.Limiter
}

// Limited wraps a client with a token-bucket rate limiter. Calls block until
// the limiter admits them or the context is cancelled.
func Limited(c Client, rps float64, burst int) Client {
	if burst <= 0 {
		burst = 1
	}
	return &limitedClient{
		inner:   c,
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
	}
}

func (c *limitedClient) Generate(ctx context.Context, prompt string) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", err
	}
	return c.inner.Generate(ctx, prompt)
}

// GenerateWithRetry calls Generate under a per-attempt timeout, retrying once
// on failure. Network-bound extraction steps use this so a transient provider
// error degrades to the next tier instead of hanging the pipeline.
func GenerateWithRetry(ctx context.Context, c Client, prompt string, timeout time.Duration) (string, error) {
	attempt := func() (string, error) {
		callCtx := ctx
		if timeout > 0 {
			var cancel context.CancelFunc
			callCtx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}
		return c.Generate(callCtx, prompt)
	}

	out, err := attempt()
	if err == nil {
		return out, nil
	}
	if ctx.Err() != nil {
		return "", err
	}
	return attempt()
}
