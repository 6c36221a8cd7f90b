package resilience_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raycargo/backoffice/internal/domain"
	"github.com/raycargo/backoffice/internal/infra/resilience"
)

func TestRetryWithBackoff_Success(t *testing.T) {
	cfg := resilience.Config{MaxRetries: 3, InitialBackoff: 10 * time.Millisecond}

	callCount := 0
	err := resilience.RetryWithBackoff(context.Background(), cfg, func() error {
		callCount++
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 1, callCount)
}

func TestRetryWithBackoff_RetriesOnFailure(t *testing.T) {
	cfg := resilience.Config{MaxRetries: 3, InitialBackoff: 10 * time.Millisecond}

	callCount := 0
	err := resilience.RetryWithBackoff(context.Background(), cfg, func() error {
		callCount++
		if callCount < 3 {
			return errors.New("temporary error")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, callCount)
}

func TestRetryWithBackoff_ExhaustsRetries(t *testing.T) {
	cfg := resilience.Config{MaxRetries: 2, InitialBackoff: time.Millisecond}

	err := resilience.RetryWithBackoff(context.Background(), cfg, func() error {
		return errors.New("persistent error")
	})

	assert.EqualError(t, err, "persistent error")
}

func TestRetryWithBackoff_RespectsContext(t *testing.T) {
	cfg := resilience.Config{MaxRetries: 5, InitialBackoff: time.Second}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := resilience.RetryWithBackoff(ctx, cfg, func() error {
		return errors.New("error")
	})

	assert.ErrorIs(t, err, context.Canceled)
}

func TestBulkhead_AcquireRelease(t *testing.T) {
	bh := resilience.NewBulkhead(2)

	require.NoError(t, bh.Acquire(context.Background()))
	require.NoError(t, bh.Acquire(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	assert.Error(t, bh.Acquire(ctx), "third acquire should time out")

	bh.Release()
	assert.NoError(t, bh.Acquire(context.Background()))
}

func TestGuard_NotFoundDoesNotTripBreaker(t *testing.T) {
	g := resilience.NewGuard("ledger", 4)

	for i := 0; i < 10; i++ {
		err := g.Do(context.Background(), func(context.Context) error {
			return &domain.ErrNotFound{Resource: "ledger", ID: "prov-x"}
		})
		var nf *domain.ErrNotFound
		require.ErrorAs(t, err, &nf)
	}
	assert.Equal(t, "closed", g.State())
}

func TestGuard_OpensAfterRepeatedFailures(t *testing.T) {
	g := resilience.NewGuard("ledger", 4)
	boom := errors.New("connection refused")

	for i := 0; i < 5; i++ {
		assert.ErrorIs(t, g.Do(context.Background(), func(context.Context) error { return boom }), boom)
	}

	called := false
	err := g.Do(context.Background(), func(context.Context) error {
		called = true
		return nil
	})

	var open *domain.ErrCircuitOpen
	assert.ErrorAs(t, err, &open)
	assert.False(t, called)
	assert.Equal(t, "open", g.State())
}
