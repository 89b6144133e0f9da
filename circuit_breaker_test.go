package beanstalk

import (
	"errors"
	"testing"
	"time"

	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCircuitBreakerConfig(t *testing.T) {
	newBreaker := NewCircuitBreakerConfig(1, time.Minute, time.Minute)

	cb := newBreaker("localhost:11300")
	require.NotNil(t, cb)
	assert.Equal(t, "localhost:11300", cb.Name())
	assert.Equal(t, gobreaker.StateClosed, cb.State())
}

func TestCircuitBreaker_TripsOnFailureRatio(t *testing.T) {
	cb := NewCircuitBreakerConfig(1, time.Minute, time.Minute)("test")
	dialErr := errors.New("dial failed")

	fail := func() (*Connection, error) { return nil, dialErr }
	succeed := func() (*Connection, error) { return &Connection{}, nil }

	// trips on the third request, 2 of 3 failed
	_, err := cb.Execute(succeed)
	require.NoError(t, err)
	_, err = cb.Execute(fail)
	require.ErrorIs(t, err, dialErr)
	assert.Equal(t, gobreaker.StateClosed, cb.State())

	_, err = cb.Execute(fail)
	require.ErrorIs(t, err, dialErr)
	assert.Equal(t, gobreaker.StateOpen, cb.State())

	_, err = cb.Execute(succeed)
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
}

func TestCircuitBreaker_StaysClosedBelowMinimum(t *testing.T) {
	cb := NewCircuitBreakerConfig(1, time.Minute, time.Minute)("test")

	for range 2 {
		_, err := cb.Execute(func() (*Connection, error) { return nil, errors.New("boom") })
		require.Error(t, err)
	}
	assert.Equal(t, gobreaker.StateClosed, cb.State())
}
