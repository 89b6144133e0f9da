package beanstalk

import (
	"time"

	"github.com/sony/gobreaker/v2"
)

// CircuitBreaker guards the creation of new connections of a ConnectionPool.
type CircuitBreaker = gobreaker.CircuitBreaker[*Connection]

// NewCircuitBreakerConfig returns a function that creates a circuit breaker
// for a server address. The breaker opens when at least 3 dials were attempted
// in the interval and 60% of them failed.
func NewCircuitBreakerConfig(maxRequests uint32, interval, timeout time.Duration) func(string) *CircuitBreaker {
	return func(serverAddr string) *CircuitBreaker {
		settings := gobreaker.Settings{
			Name:        serverAddr,
			MaxRequests: maxRequests,
			Interval:    interval,
			Timeout:     timeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
				return counts.Requests >= 3 && failureRatio >= 0.6
			},
		}
		return gobreaker.NewCircuitBreaker[*Connection](settings)
	}
}
