// Package ratelimit implements the cooperative delay inserted between
// outbound plant API requests. The provider allows 120 requests per minute;
// a uniformly random whole-second delay in [2,5] keeps a sequential fetch
// loop comfortably under that limit.
package ratelimit

import (
	"context"
	"math/rand"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

// Default delay bounds in whole seconds. These are configuration defaults,
// not invariants; adjust for providers with different limits.
const (
	DefaultMinSeconds = 2
	DefaultMaxSeconds = 5
)

// Prometheus metrics for rate limit suspensions.
var (
	rateLimitWaitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "trefle_rate_limit_waits_total",
		Help: "Total number of rate-limit suspensions",
	})

	rateLimitWaitSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "trefle_rate_limit_wait_seconds",
		Help:    "Duration of rate-limit suspensions in seconds",
		Buckets: []float64{1, 2, 3, 4, 5, 6},
	})
)

// Limiter suspends the calling goroutine for a random whole-second duration
// between requests. It holds no request-scoped state and is safe to share
// across a fetch loop's suspension points.
type Limiter struct {
	minSeconds int
	maxSeconds int
	rng        *rand.Rand
	logger     zerolog.Logger
}

// NewLimiter creates a limiter with the given bounds in seconds. Bounds are
// normalized so min <= max and neither is negative.
func NewLimiter(minSeconds, maxSeconds int, logger zerolog.Logger) *Limiter {
	if minSeconds < 0 {
		minSeconds = 0
	}
	if maxSeconds < minSeconds {
		maxSeconds = minSeconds
	}
	return &Limiter{
		minSeconds: minSeconds,
		maxSeconds: maxSeconds,
		rng:        rand.New(rand.NewSource(time.Now().UnixNano())),
		logger:     logger.With().Str("component", "ratelimit").Logger(),
	}
}

// Wait suspends until the drawn delay elapses or ctx is cancelled. A
// cancellation returns ctx.Err(); the caller stops at this suspension point.
func (l *Limiter) Wait(ctx context.Context) error {
	d := l.delay()

	rateLimitWaitsTotal.Inc()
	rateLimitWaitSeconds.Observe(d.Seconds())

	l.logger.Debug().
		Dur("delay", d).
		Msg("Rate limit suspension")

	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		l.logger.Debug().Msg("Suspension interrupted by context")
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// delay draws a uniform whole-second duration in [min, max].
func (l *Limiter) delay() time.Duration {
	secs := l.minSeconds
	if l.maxSeconds > l.minSeconds {
		secs += l.rng.Intn(l.maxSeconds - l.minSeconds + 1)
	}
	return time.Duration(secs) * time.Second
}
