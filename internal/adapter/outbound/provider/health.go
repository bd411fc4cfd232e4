package provider

import (
	"errors"
	"sync"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/Maxborland/cutroom/internal/module/catalog"
	apperrors "github.com/Maxborland/cutroom/internal/shared/errors"
)

// HealthMonitor tracks provider health with one circuit breaker per
// provider. Only transient failures count against a breaker;
// cancellations and validation errors say nothing about provider
// health.
type HealthMonitor struct {
	mu       sync.Mutex
	breakers map[catalog.Provider]*gobreaker.CircuitBreaker[any]

	failureThreshold uint32
	timeout          time.Duration
}

// HealthMonitorConfig contains health monitor configuration.
type HealthMonitorConfig struct {
	FailureThreshold uint32
	Timeout          time.Duration
}

// DefaultHealthMonitorConfig returns the default configuration.
func DefaultHealthMonitorConfig() *HealthMonitorConfig {
	return &HealthMonitorConfig{
		FailureThreshold: 5,
		Timeout:          60 * time.Second,
	}
}

// NewHealthMonitor creates a health monitor.
func NewHealthMonitor(cfg *HealthMonitorConfig) *HealthMonitor {
	if cfg == nil {
		cfg = DefaultHealthMonitorConfig()
	}
	return &HealthMonitor{
		breakers:         make(map[catalog.Provider]*gobreaker.CircuitBreaker[any]),
		failureThreshold: cfg.FailureThreshold,
		timeout:          cfg.Timeout,
	}
}

// Guard runs fn through the provider's circuit breaker. An open
// breaker fails fast with a transient error; otherwise fn's own error
// is returned unchanged.
func (m *HealthMonitor) Guard(p catalog.Provider, fn func() error) error {
	var callErr error
	_, err := m.breaker(p).Execute(func() (any, error) {
		callErr = fn()
		if callErr != nil && apperrors.IsRetryable(callErr) && !apperrors.IsCancelled(callErr) {
			return nil, callErr
		}
		return nil, nil
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return apperrors.Transient("provider "+string(p)+" circuit open", err)
	}
	return callErr
}

// IsHealthy reports whether the provider's breaker currently admits
// traffic.
func (m *HealthMonitor) IsHealthy(p catalog.Provider) bool {
	return m.breaker(p).State() != gobreaker.StateOpen
}

func (m *HealthMonitor) breaker(p catalog.Provider) *gobreaker.CircuitBreaker[any] {
	m.mu.Lock()
	defer m.mu.Unlock()
	if cb, ok := m.breakers[p]; ok {
		return cb
	}
	threshold := m.failureThreshold
	cb := gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:    string(p),
		Timeout: m.timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
	})
	m.breakers[p] = cb
	return cb
}
