package external

import (
	"errors"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"

	"github.com/pharmaguard-client/internal/domain"
)

// CircuitBreakerConfig represents circuit breaker configuration
type CircuitBreakerConfig struct {
	MaxRequests  uint32        `json:"max_requests"`
	Interval     time.Duration `json:"interval"`
	Timeout      time.Duration `json:"timeout"`
	MinRequests  uint32        `json:"min_requests"`
	FailureRatio float64       `json:"failure_ratio"`
}

// DefaultCircuitBreakerConfig trips after three requests with a 60% failure
// ratio and probes again after a minute.
func DefaultCircuitBreakerConfig() CircuitBreakerConfig {
	return CircuitBreakerConfig{
		MaxRequests:  1,
		Interval:     30 * time.Second,
		Timeout:      60 * time.Second,
		MinRequests:  3,
		FailureRatio: 0.6,
	}
}

// newCircuitBreaker builds a breaker that counts transport failures and 5xx
// answers. A 4xx answer means the service is up and rejected the input, so it
// does not count against the service.
func newCircuitBreaker(name string, config CircuitBreakerConfig, logger *logrus.Logger) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: config.MaxRequests,
		Interval:    config.Interval,
		Timeout:     config.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < config.MinRequests {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= config.FailureRatio
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.WithFields(logrus.Fields{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("Circuit breaker state changed")
		},
		IsSuccessful: func(err error) bool {
			if err == nil {
				return true
			}
			var svc *domain.ServiceError
			return errors.As(err, &svc) && svc.ClientSide()
		},
	})
}
