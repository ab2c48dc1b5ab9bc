package chain_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/uccwallet/internal/chain"
	walleterr "github.com/mrz1836/uccwallet/pkg/errors"
)

func fastRetry(attempts int) chain.RetryConfig {
	return chain.RetryConfig{MaxAttempts: attempts, BaseDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond}
}

func TestRetry_SuccessFirstAttempt(t *testing.T) {
	t.Parallel()
	attempts := 0
	result, err := chain.Retry(context.Background(), func() (string, error) {
		attempts++
		return "0x1", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "0x1", result)
	assert.Equal(t, 1, attempts)
}

func TestRetry_SuccessAfterRetry(t *testing.T) {
	t.Parallel()
	attempts := 0
	result, err := chain.RetryWithConfig(context.Background(), fastRetry(4), func() (int, error) {
		attempts++
		if attempts < 3 {
			return 0, chain.WrapRetryable(errors.New("connection reset"))
		}
		return 42, nil
	})

	require.NoError(t, err)
	assert.Equal(t, 42, result)
	assert.Equal(t, 3, attempts)
}

var errReverted = errors.New("execution reverted")

func TestRetry_NonRetryableError(t *testing.T) {
	t.Parallel()
	attempts := 0

	_, err := chain.RetryWithConfig(context.Background(), fastRetry(4), func() (string, error) {
		attempts++
		return "", errReverted
	})

	require.ErrorIs(t, err, errReverted)
	assert.Equal(t, 1, attempts)
}

func TestRetry_MaxAttempts(t *testing.T) {
	t.Parallel()
	attempts := 0

	_, err := chain.RetryWithConfig(context.Background(), fastRetry(3), func() (string, error) {
		attempts++
		return "", chain.ErrRateLimited
	})

	require.ErrorIs(t, err, chain.ErrRateLimited)
	assert.Equal(t, 3, attempts)
}

func TestRetry_ZeroAttemptsRunsOnce(t *testing.T) {
	t.Parallel()
	attempts := 0

	_, err := chain.RetryWithConfig(context.Background(), chain.RetryConfig{}, func() (string, error) {
		attempts++
		return "", chain.ErrRetryable
	})

	require.Error(t, err)
	assert.Equal(t, 1, attempts)
}

func TestRetry_ContextCancellation(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	attempts := 0

	cfg := chain.RetryConfig{MaxAttempts: 10, BaseDelay: time.Second, MaxDelay: time.Second}
	_, err := chain.RetryWithConfig(ctx, cfg, func() (string, error) {
		attempts++
		cancel()
		return "", chain.ErrRetryable
	})

	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, attempts)
}

func TestIsRetryable(t *testing.T) {
	t.Parallel()

	assert.True(t, chain.IsRetryable(chain.ErrRetryable))
	assert.True(t, chain.IsRetryable(walleterr.ErrTimeout))
	assert.True(t, chain.IsRetryable(chain.ErrRateLimited))
	assert.True(t, chain.IsRetryable(context.DeadlineExceeded))
	assert.True(t, chain.IsRetryable(fmt.Errorf("eth_call: %w", context.DeadlineExceeded)))

	assert.False(t, chain.IsRetryable(errReverted))
	assert.False(t, chain.IsRetryable(context.Canceled))
	assert.False(t, chain.IsRetryable(nil))
	assert.NoError(t, chain.WrapRetryable(nil))
}
