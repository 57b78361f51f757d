package edgar

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Limiter gates outbound requests. Satisfied by MinIntervalLimiter in
// production and by no-op fakes in tests.
type Limiter interface {
	Wait(ctx context.Context) error
}

// MinIntervalLimiter enforces a minimum delay between consecutive requests
// to EDGAR hosts, which ask automated clients to stay under a request rate
// rather than burst.
type MinIntervalLimiter struct {
	limiter *rate.Limiter
}

func NewMinIntervalLimiter(interval time.Duration) *MinIntervalLimiter {
	if interval <= 0 {
		return &MinIntervalLimiter{limiter: rate.NewLimiter(rate.Inf, 1)}
	}
	return &MinIntervalLimiter{limiter: rate.NewLimiter(rate.Every(interval), 1)}
}

func (l *MinIntervalLimiter) Wait(ctx context.Context) error {
	return l.limiter.Wait(ctx)
}
