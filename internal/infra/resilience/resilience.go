// Package resilience provides fault-tolerance patterns for outbound calls:
// retry with exponential backoff, circuit breaker, and bulkhead.
package resilience

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// Config holds resilience parameters.
type Config struct {
	MaxRetries     int
	InitialBackoff time.Duration
	MaxConcurrency int
}

// ErrBreakerOpen is returned by Guard.Do while the breaker rejects calls.
var ErrBreakerOpen = errors.New("circuit breaker open")

// Permanent marks an error that must not be retried.
type Permanent struct {
	Err error
}

func (p *Permanent) Error() string { return p.Err.Error() }

func (p *Permanent) Unwrap() error { return p.Err }

// RetryWithBackoff executes fn with exponential backoff + jitter.
// It respects context cancellation and stops early on *Permanent errors.
func RetryWithBackoff(ctx context.Context, cfg Config, fn func() error) error {
	var lastErr error
	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		var perm *Permanent
		if errors.As(lastErr, &perm) {
			return lastErr
		}

		if attempt < cfg.MaxRetries {
			backoff := time.Duration(math.Pow(2, float64(attempt))) * cfg.InitialBackoff
			wait := backoff
			if half := int64(backoff / 2); half > 0 {
				wait += time.Duration(rand.Int63n(half))
			}

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
			}
		}
	}
	return lastErr
}

// NewCircuitBreaker creates a circuit breaker that trips at a 60% failure
// ratio over at least five requests. State changes are logged.
func NewCircuitBreaker(name string, logger *zap.Logger) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 3,                // half-open: allow 3 requests
		Interval:    30 * time.Second, // closed: reset counters every 30s
		Timeout:     10 * time.Second, // open -> half-open after 10s
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 5 && failureRatio >= 0.6
		},
		IsSuccessful: func(err error) bool {
			// Business rejections are answers, not outages.
			var perm *Permanent
			return err == nil || errors.As(err, &perm)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			if logger != nil {
				logger.Warn("circuit breaker state change",
					zap.String("breaker", name),
					zap.String("from", from.String()),
					zap.String("to", to.String()),
				)
			}
		},
	})
}

// Bulkhead limits concurrent access to a resource.
type Bulkhead struct {
	sem chan struct{}
}

// NewBulkhead creates a bulkhead with the given max concurrency.
func NewBulkhead(maxConcurrency int) *Bulkhead {
	if maxConcurrency <= 0 {
		maxConcurrency = 1
	}
	return &Bulkhead{sem: make(chan struct{}, maxConcurrency)}
}

// Acquire blocks until a slot is available or context is cancelled.
func (b *Bulkhead) Acquire(ctx context.Context) error {
	select {
	case b.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Release frees a slot.
func (b *Bulkhead) Release() {
	<-b.sem
}

// Guard bundles a breaker, a bulkhead and the retry policy for one dependency.
type Guard struct {
	cb       *gobreaker.CircuitBreaker
	bulkhead *Bulkhead
	cfg      Config
}

// NewGuard creates a Guard.
func NewGuard(cb *gobreaker.CircuitBreaker, cfg Config) *Guard {
	return &Guard{cb: cb, bulkhead: NewBulkhead(cfg.MaxConcurrency), cfg: cfg}
}

// Do runs fn inside the bulkhead and breaker. Idempotent calls are retried
// with backoff; others run exactly once.
func (g *Guard) Do(ctx context.Context, idempotent bool, fn func() error) error {
	if err := g.bulkhead.Acquire(ctx); err != nil {
		return err
	}
	defer g.bulkhead.Release()

	_, err := g.cb.Execute(func() (any, error) {
		if !idempotent {
			return nil, fn()
		}
		return nil, RetryWithBackoff(ctx, g.cfg, fn)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return ErrBreakerOpen
	}
	var perm *Permanent
	if errors.As(err, &perm) {
		return perm.Err
	}
	return err
}
