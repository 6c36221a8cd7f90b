// Package resilience provides fault-tolerance patterns for ledger writes and
// backing-store connections: retry with exponential backoff, circuit breaker
// and bulkhead.
package resilience

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"time"

	"github.com/sony/gobreaker"

	"github.com/raycargo/backoffice/internal/domain"
)

// Config holds resilience parameters.
type Config struct {
	MaxRetries     int
	InitialBackoff time.Duration
	MaxConcurrency int
}

// RetryWithBackoff executes fn with exponential backoff + jitter.
// It respects context cancellation.
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

// NewCircuitBreaker creates a circuit breaker with sensible defaults.
func NewCircuitBreaker(name string) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 3,                // half-open: allow 3 requests
		Interval:    30 * time.Second, // closed: reset counters every 30s
		Timeout:     10 * time.Second, // open -> half-open after 10s
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 5 && failureRatio >= 0.6
		},
	})
}

// Bulkhead limits concurrent access to a resource.
type Bulkhead struct {
	sem chan struct{}
}

// NewBulkhead creates a bulkhead with the given max concurrency.
func NewBulkhead(maxConcurrency int) *Bulkhead {
	if maxConcurrency < 1 {
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

// Guard runs calls against one backing resource through a bulkhead and a
// circuit breaker. Errors the caller classifies as expected (not found,
// validation, conflicts) do not count as breaker failures.
type Guard struct {
	name     string
	breaker  *gobreaker.CircuitBreaker
	bulkhead *Bulkhead
}

// NewGuard builds a Guard named after the protected resource.
func NewGuard(name string, maxConcurrency int) *Guard {
	return &Guard{
		name:     name,
		breaker:  NewCircuitBreaker(name),
		bulkhead: NewBulkhead(maxConcurrency),
	}
}

// Do runs fn. A bulkhead wait that outlives ctx becomes *domain.ErrTimeout and
// an open breaker becomes *domain.ErrCircuitOpen.
func (g *Guard) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := g.bulkhead.Acquire(ctx); err != nil {
		return &domain.ErrTimeout{Operation: g.name + " bulkhead"}
	}
	defer g.bulkhead.Release()

	var expected error
	_, err := g.breaker.Execute(func() (any, error) {
		err := fn(ctx)
		if err != nil && !countsAsFailure(err) {
			expected = err
			return nil, nil
		}
		return nil, err
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return &domain.ErrCircuitOpen{Service: g.name}
	}
	if err != nil {
		return err
	}
	return expected
}

// Name is the protected resource.
func (g *Guard) Name() string { return g.name }

// State reports the breaker state for health output.
func (g *Guard) State() string {
	return g.breaker.State().String()
}

func countsAsFailure(err error) bool {
	var (
		notFound   *domain.ErrNotFound
		validation *domain.ErrValidation
		conflict   *domain.ErrConflict
		transition *domain.ErrInvalidTransition
		concurrent *domain.ErrConcurrentModification
	)
	switch {
	case errors.As(err, &notFound),
		errors.As(err, &validation),
		errors.As(err, &conflict),
		errors.As(err, &transition),
		errors.As(err, &concurrent):
		return false
	}
	return true
}
