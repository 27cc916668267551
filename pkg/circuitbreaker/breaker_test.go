package circuitbreaker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBreakerOpensAfterThreshold(t *testing.T) {
	cb := New("test", Config{FailureThreshold: 3, Timeout: time.Minute})
	boom := errors.New("boom")

	for i := 0; i < 3; i++ {
		err := cb.Execute(context.Background(), func() error { return boom })
		assert.ErrorIs(t, err, boom)
	}

	assert.Equal(t, StateOpen, cb.State())

	err := cb.Execute(context.Background(), func() error { return nil })
	assert.ErrorIs(t, err, ErrCircuitOpen)
}

func TestBreakerSuccessResetsConsecutiveFailures(t *testing.T) {
	cb := New("test", Config{FailureThreshold: 3, Timeout: time.Minute})
	boom := errors.New("boom")

	cb.Execute(context.Background(), func() error { return boom })
	cb.Execute(context.Background(), func() error { return boom })
	cb.Execute(context.Background(), func() error { return nil })
	cb.Execute(context.Background(), func() error { return boom })

	assert.Equal(t, StateClosed, cb.State())
}

func TestBreakerRecoversThroughHalfOpen(t *testing.T) {
	cb := New("test", Config{
		FailureThreshold: 1,
		SuccessThreshold: 2,
		MaxRequests:      2,
		Timeout:          10 * time.Millisecond,
	})
	boom := errors.New("boom")

	cb.Execute(context.Background(), func() error { return boom })
	require.Equal(t, StateOpen, cb.State())

	time.Sleep(15 * time.Millisecond)
	require.Equal(t, StateHalfOpen, cb.State())

	require.NoError(t, cb.Execute(context.Background(), func() error { return nil }))
	require.NoError(t, cb.Execute(context.Background(), func() error { return nil }))

	assert.Equal(t, StateClosed, cb.State())
}

func TestBreakerHalfOpenFailureReopens(t *testing.T) {
	cb := New("test", Config{
		FailureThreshold: 1,
		Timeout:          10 * time.Millisecond,
	})
	boom := errors.New("boom")

	cb.Execute(context.Background(), func() error { return boom })
	time.Sleep(15 * time.Millisecond)
	require.Equal(t, StateHalfOpen, cb.State())

	cb.Execute(context.Background(), func() error { return boom })
	assert.Equal(t, StateOpen, cb.State())
}

func TestBreakerLimitsHalfOpenProbes(t *testing.T) {
	cb := New("test", Config{
		FailureThreshold: 1,
		SuccessThreshold: 5,
		MaxRequests:      1,
		Timeout:          10 * time.Millisecond,
	})
	boom := errors.New("boom")

	cb.Execute(context.Background(), func() error { return boom })
	time.Sleep(15 * time.Millisecond)
	require.Equal(t, StateHalfOpen, cb.State())

	release := make(chan struct{})
	done := make(chan error)
	go func() {
		done <- cb.Execute(context.Background(), func() error {
			<-release
			return nil
		})
	}()

	// The in-flight probe holds the only half-open slot.
	time.Sleep(5 * time.Millisecond)
	err := cb.Execute(context.Background(), func() error { return nil })
	assert.ErrorIs(t, err, ErrTooManyRequests)

	close(release)
	require.NoError(t, <-done)
}
