package services

import (
	"errors"
	"log"
	"sync"

	gobreaker "github.com/sony/gobreaker/v2"

	"projecthub/recommender/internal/config"
	"projecthub/recommender/internal/models"
)

// BreakerRegistry keeps one circuit breaker per named operation (usually a
// model or provider name). Breakers open, half-open and close independently
// of each other; all state transitions happen inside gobreaker under its own
// lock, so concurrent callers can never observe a stale CLOSED state after a
// threshold-crossing failure.
type BreakerRegistry interface {
	Execute(key string, fn func() (interface{}, error)) (interface{}, error)
	State(key string) string
}

type breakerRegistry struct {
	cfg config.BreakerConfig

	mu       sync.Mutex
	breakers map[string]*gobreaker.CircuitBreaker[interface{}]
}

func NewBreakerRegistry(cfg config.BreakerConfig) BreakerRegistry {
	return &breakerRegistry{
		cfg:      cfg,
		breakers: make(map[string]*gobreaker.CircuitBreaker[interface{}]),
	}
}

// Execute implements BreakerRegistry. When the breaker for key is open the
// call short-circuits with models.ErrCircuitOpen and fn is never invoked.
func (r *breakerRegistry) Execute(key string, fn func() (interface{}, error)) (interface{}, error) {
	result, err := r.breaker(key).Execute(fn)
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, models.ErrCircuitOpen
		}
		return nil, err
	}
	return result, nil
}

// State implements BreakerRegistry. Unknown keys report "closed" since their
// breaker would start closed anyway.
func (r *breakerRegistry) State(key string) string {
	r.mu.Lock()
	cb, ok := r.breakers[key]
	r.mu.Unlock()

	if !ok {
		return gobreaker.StateClosed.String()
	}
	return cb.State().String()
}

func (r *breakerRegistry) breaker(key string) *gobreaker.CircuitBreaker[interface{}] {
	r.mu.Lock()
	defer r.mu.Unlock()

	if cb, ok := r.breakers[key]; ok {
		return cb
	}

	threshold := r.cfg.FailureThreshold
	cb := gobreaker.NewCircuitBreaker[interface{}](gobreaker.Settings{
		Name:        key,
		MaxRequests: r.cfg.HalfOpenMaxCalls,
		Interval:    r.cfg.MonitoringPeriod,
		Timeout:     r.cfg.RecoveryTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Printf("⚡ Circuit breaker %s: %s -> %s\n", name, from.String(), to.String())
		},
	})

	r.breakers[key] = cb
	return cb
}
