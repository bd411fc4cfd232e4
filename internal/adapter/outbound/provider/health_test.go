package provider

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Maxborland/cutroom/internal/module/catalog"
	apperrors "github.com/Maxborland/cutroom/internal/shared/errors"
)

func TestHealthMonitor_OpensAfterConsecutiveTransientFailures(t *testing.T) {
	m := NewHealthMonitor(&HealthMonitorConfig{FailureThreshold: 3, Timeout: time.Minute})

	transient := func() error { return apperrors.Transient("upstream down", nil) }
	for i := 0; i < 3; i++ {
		err := m.Guard(catalog.ProviderFal, transient)
		require.Error(t, err)
	}
	assert.False(t, m.IsHealthy(catalog.ProviderFal))

	// Open breaker fails fast without invoking the call.
	called := false
	err := m.Guard(catalog.ProviderFal, func() error {
		called = true
		return nil
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsRetryable(err))
	assert.False(t, called)
}

func TestHealthMonitor_TerminalErrorsDoNotTrip(t *testing.T) {
	m := NewHealthMonitor(&HealthMonitorConfig{FailureThreshold: 2, Timeout: time.Minute})

	for i := 0; i < 10; i++ {
		err := m.Guard(catalog.ProviderReplicate, func() error {
			return apperrors.Provider("bad prompt")
		})
		assert.ErrorIs(t, err, apperrors.ErrProvider)
	}
	assert.True(t, m.IsHealthy(catalog.ProviderReplicate))
}

func TestHealthMonitor_CancellationDoesNotTrip(t *testing.T) {
	m := NewHealthMonitor(&HealthMonitorConfig{FailureThreshold: 2, Timeout: time.Minute})

	for i := 0; i < 10; i++ {
		err := m.Guard(catalog.ProviderFal, func() error {
			return apperrors.Cancelled("video generation")
		})
		assert.True(t, apperrors.IsCancelled(err))
	}
	assert.True(t, m.IsHealthy(catalog.ProviderFal))
}

func TestHealthMonitor_ProvidersAreIndependent(t *testing.T) {
	m := NewHealthMonitor(&HealthMonitorConfig{FailureThreshold: 1, Timeout: time.Minute})

	_ = m.Guard(catalog.ProviderFal, func() error {
		return apperrors.Transient("upstream down", nil)
	})

	assert.False(t, m.IsHealthy(catalog.ProviderFal))
	assert.True(t, m.IsHealthy(catalog.ProviderReplicate))
}

func TestHealthMonitor_GuardReturnsFnError(t *testing.T) {
	m := NewHealthMonitor(nil)

	err := m.Guard(catalog.ProviderFal, func() error {
		return apperrors.NoMedia("fal")
	})
	assert.ErrorIs(t, err, apperrors.ErrNoMedia)

	assert.NoError(t, m.Guard(catalog.ProviderFal, func() error { return nil }))
}
