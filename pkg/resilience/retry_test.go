package resilience

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coreflow-dev/agentcore/pkg/apierr"
)

func TestRetryPolicy_RetriesTransientUntilSuccess(t *testing.T) {
	p := RetryPolicy{MaxAttempts: 5, InitialInterval: 1, MaxInterval: 2, Multiplier: 1.0}
	attempts := 0
	err := p.Do(context.Background(), "test", "x", func(_ context.Context) error {
		attempts++
		if attempts < 3 {
			return apierr.Transient("test", "x", errors.New("boom"))
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestRetryPolicy_StopsOnNonRetryableError(t *testing.T) {
	p := RetryPolicy{MaxAttempts: 5, InitialInterval: 1, MaxInterval: 2, Multiplier: 1.0}
	attempts := 0
	err := p.Do(context.Background(), "test", "x", func(_ context.Context) error {
		attempts++
		return apierr.Validation("test", "x", "bad input")
	})
	require.Error(t, err)
	assert.Equal(t, 1, attempts)
	assert.True(t, apierr.Is(err, apierr.KindValidation))
}

func TestRetryPolicy_GivesUpAfterMaxAttempts(t *testing.T) {
	p := RetryPolicy{MaxAttempts: 3, InitialInterval: 1, MaxInterval: 2, Multiplier: 1.0}
	attempts := 0
	err := p.Do(context.Background(), "test", "x", func(_ context.Context) error {
		attempts++
		return apierr.Transient("test", "x", errors.New("still down"))
	})
	require.Error(t, err)
	assert.Equal(t, 3, attempts)
}
