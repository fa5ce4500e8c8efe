package retry

import (
	"context"
	"time"

	"github.com/ujanalytics/costctl/internal/errors"
	"github.com/ujanalytics/costctl/internal/logger"
)

// Decision tells the retry loop what to do with a failed attempt.
type Decision int

const (
	// Retry waits out the backoff delay and tries again.
	Retry Decision = iota
	// FailFast surfaces the error immediately.
	FailFast
)

// Classifier maps an error and the attempt index (0-based) to a Decision.
type Classifier func(err error, attempt int) Decision

// Config controls the backoff schedule.
type Config struct {
	MaxAttempts   int
	InitialDelay  time.Duration
	BackoffFactor float64
}

// DefaultConfig matches the schedule used by the managers: up to three
// retries starting at one second and doubling.
func DefaultConfig() Config {
	return Config{
		MaxAttempts:   4,
		InitialDelay:  time.Second,
		BackoffFactor: 2.0,
	}
}

// DefaultClassifier implements the standard policy: throttling retried
// until the attempt cap, permission failures surfaced immediately,
// not-found retried exactly once (the first attempt may race a
// not-yet-visible resource), validation and state errors never retried.
func DefaultClassifier(err error, attempt int) Decision {
	if errors.IsRetryable(err) {
		return Retry
	}
	if errors.IsNotFound(err) {
		if attempt == 0 {
			return Retry
		}
		return FailFast
	}

	switch errors.TypeOf(err) {
	case errors.TypePermission, errors.TypeValidation, errors.TypeState:
		return FailFast
	default:
		return Retry
	}
}

// Do runs op with exponential backoff according to cfg, consulting
// classify after each failure. Context cancellation aborts the wait
// between attempts and surfaces ctx.Err().
func Do(ctx context.Context, log logger.Logger, cfg Config, classify Classifier, op func(ctx context.Context) error) error {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	if classify == nil {
		classify = DefaultClassifier
	}

	delay := cfg.InitialDelay
	var lastErr error

	for attempt := 0; attempt < cfg.MaxAttempts; attempt++ {
		lastErr = op(ctx)
		if lastErr == nil {
			return nil
		}

		if classify(lastErr, attempt) == FailFast {
			return lastErr
		}
		if attempt == cfg.MaxAttempts-1 {
			break
		}

		log.WithFields(map[string]interface{}{
			"attempt": attempt + 1,
			"delay":   delay.String(),
		}).Warn("operation failed, retrying: " + lastErr.Error())

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}

		delay = time.Duration(float64(delay) * cfg.BackoffFactor)
	}

	return lastErr
}
