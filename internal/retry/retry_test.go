package retry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ujanalytics/costctl/internal/errors"
	"github.com/ujanalytics/costctl/internal/logger"
)

func fastConfig(attempts int) Config {
	return Config{
		MaxAttempts:   attempts,
		InitialDelay:  time.Millisecond,
		BackoffFactor: 1.0,
	}
}

func TestDo_SucceedsFirstAttempt(t *testing.T) {
	calls := 0
	err := Do(context.Background(), logger.Nop(), fastConfig(4), DefaultClassifier, func(ctx context.Context) error {
		calls++
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestDo_RetriesThrottlingUntilCap(t *testing.T) {
	calls := 0
	throttled := errors.New(errors.TypeThrottling, "rate exceeded")

	err := Do(context.Background(), logger.Nop(), fastConfig(4), DefaultClassifier, func(ctx context.Context) error {
		calls++
		return throttled
	})

	require.Error(t, err)
	assert.Equal(t, 4, calls)
	assert.Equal(t, errors.TypeThrottling, errors.TypeOf(err))
}

func TestDo_PermissionFailsFast(t *testing.T) {
	calls := 0
	denied := errors.New(errors.TypePermission, "access denied")

	err := Do(context.Background(), logger.Nop(), fastConfig(4), DefaultClassifier, func(ctx context.Context) error {
		calls++
		return denied
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestDo_NotFoundRetriedExactlyOnce(t *testing.T) {
	calls := 0
	missing := errors.New(errors.TypeNotFound, "stream not found")

	err := Do(context.Background(), logger.Nop(), fastConfig(4), DefaultClassifier, func(ctx context.Context) error {
		calls++
		return missing
	})

	require.Error(t, err)
	assert.Equal(t, 2, calls)
}

func TestDo_ValidationNeverRetried(t *testing.T) {
	calls := 0
	invalid := errors.New(errors.TypeValidation, "missing field")

	err := Do(context.Background(), logger.Nop(), fastConfig(4), DefaultClassifier, func(ctx context.Context) error {
		calls++
		return invalid
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestDo_RecoversAfterTransientFailure(t *testing.T) {
	calls := 0
	throttled := errors.New(errors.TypeThrottling, "rate exceeded")

	err := Do(context.Background(), logger.Nop(), fastConfig(4), DefaultClassifier, func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return throttled
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDo_ContextCancelledDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	throttled := errors.New(errors.TypeThrottling, "rate exceeded")
	cfg := Config{MaxAttempts: 3, InitialDelay: time.Minute, BackoffFactor: 2.0}

	err := Do(ctx, logger.Nop(), cfg, DefaultClassifier, func(ctx context.Context) error {
		return throttled
	})

	assert.ErrorIs(t, err, context.Canceled)
}
