package resilience

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coreflow-dev/agentcore/pkg/apierr"
	"github.com/coreflow-dev/agentcore/pkg/config"
)

func testCircuitConfig() config.CircuitConfig {
	return config.CircuitConfig{FailureThreshold: 2, SuccessThreshold: 1, TimeoutSeconds: 1, HalfOpenMaxCalls: 1}
}

func TestCircuitBreaker_TripsAfterFailureThreshold(t *testing.T) {
	b := NewCircuitBreaker("test", testCircuitConfig())
	require.NoError(t, b.Allow())
	b.RecordFailure()
	assert.Equal(t, CircuitClosed, b.State())

	require.NoError(t, b.Allow())
	b.RecordFailure()
	assert.Equal(t, CircuitOpen, b.State())

	err := b.Allow()
	assert.True(t, apierr.Is(err, apierr.KindIllegalState))
}

func TestCircuitBreaker_HalfOpensAfterTimeoutAndCloses(t *testing.T) {
	b := NewCircuitBreaker("test", testCircuitConfig())
	b.RecordFailure()
	b.RecordFailure()
	require.Equal(t, CircuitOpen, b.State())

	time.Sleep(1100 * time.Millisecond)
	assert.Equal(t, CircuitHalfOpen, b.State())

	require.NoError(t, b.Allow())
	b.RecordSuccess()
	assert.Equal(t, CircuitClosed, b.State())
}

func TestCircuitBreaker_HalfOpenFailureReopens(t *testing.T) {
	b := NewCircuitBreaker("test", testCircuitConfig())
	b.RecordFailure()
	b.RecordFailure()
	time.Sleep(1100 * time.Millisecond)
	require.Equal(t, CircuitHalfOpen, b.State())

	require.NoError(t, b.Allow())
	b.RecordFailure()
	assert.Equal(t, CircuitOpen, b.State())
}

func TestCircuitBreaker_Reset(t *testing.T) {
	b := NewCircuitBreaker("test", testCircuitConfig())
	b.RecordFailure()
	b.RecordFailure()
	require.Equal(t, CircuitOpen, b.State())
	b.Reset()
	assert.Equal(t, CircuitClosed, b.State())
}

func TestBreakers_GetCreatesLazilyAndResetRequiresExisting(t *testing.T) {
	cfg := &config.Config{Circuits: map[string]config.CircuitConfig{}}
	d := NewBreakers(cfg)

	err := d.Reset("never-used")
	assert.True(t, apierr.Is(err, apierr.KindNotFound))

	b := d.Get("vector_store")
	assert.Equal(t, CircuitClosed, b.State())
	require.NoError(t, d.Reset("vector_store"))
}
