package ratelimit

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"
)

// TokenLimiter bounds how many model tokens are spent per minute.
type TokenLimiter struct {
	limiter   *rate.Limiter
	perMinute int
}

// NewTokenLimiter allows tokensPerMinute tokens per minute with a full-minute burst.
func NewTokenLimiter(tokensPerMinute int) *TokenLimiter {
	if tokensPerMinute <= 0 {
		return &TokenLimiter{limiter: rate.NewLimiter(rate.Inf, 0)}
	}
	return &TokenLimiter{
		limiter:   rate.NewLimiter(rate.Limit(float64(tokensPerMinute)/time.Minute.Seconds()), tokensPerMinute),
		perMinute: tokensPerMinute,
	}
}

// Wait blocks until n tokens are available.
func (t *TokenLimiter) Wait(ctx context.Context, n int) error {
	if t.perMinute > 0 && n > t.perMinute {
		return fmt.Errorf("request needs %d tokens, more than the %d per minute budget", n, t.perMinute)
	}
	return t.limiter.WaitN(ctx, n)
}

// GetRemaining returns the tokens currently available.
func (t *TokenLimiter) GetRemaining() int {
	if t.perMinute == 0 {
		return -1
	}
	return int(t.limiter.Tokens())
}
