package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/unstuck-ai/helpnet-backend/pkg/logging"
)

func quickConfig(maxRetries int) *Config {
	return &Config{
		MaxRetries:      maxRetries,
		InitialDelay:    time.Millisecond,
		MaxDelay:        10 * time.Millisecond,
		BackoffFactor:   2.0,
		JitterFactor:    0.1,
		LogRetryAttempt: false,
	}
}

func TestRetrySuccessFirstTry(t *testing.T) {
	result, err := Retry(context.Background(), func() (string, error) {
		return "ok", nil
	}, quickConfig(3), logging.NoopLogger{})

	assert.NoError(t, err)
	assert.Equal(t, "ok", result)
}

func TestRetrySuccessAfterFailures(t *testing.T) {
	attempts := 0
	result, err := Retry(context.Background(), func() (int, error) {
		attempts++
		if attempts < 3 {
			return 0, errors.New("transient")
		}
		return 42, nil
	}, quickConfig(5), logging.NoopLogger{})

	assert.NoError(t, err)
	assert.Equal(t, 42, result)
	assert.Equal(t, 3, attempts)
}

func TestRetryExhausted(t *testing.T) {
	wantErr := errors.New("persistent")
	_, err := Retry(context.Background(), func() (string, error) {
		return "", wantErr
	}, quickConfig(2), logging.NoopLogger{})

	assert.Error(t, err)
	assert.ErrorIs(t, err, wantErr)
}

func TestRetryShouldRetryPredicate(t *testing.T) {
	fatal := errors.New("fatal")
	attempts := 0
	cfg := quickConfig(5)
	cfg.ShouldRetry = func(err error, attempt int) bool {
		return !errors.Is(err, fatal)
	}

	_, err := Retry(context.Background(), func() (string, error) {
		attempts++
		return "", fatal
	}, cfg, logging.NoopLogger{})

	assert.ErrorIs(t, err, fatal)
	assert.Equal(t, 1, attempts, "non-retryable error must stop immediately")
}

func TestRetryContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Retry(ctx, func() (string, error) {
		return "", errors.New("never retried")
	}, quickConfig(3), logging.NoopLogger{})

	assert.ErrorIs(t, err, context.Canceled)
}

func TestConfigValidate(t *testing.T) {
	cfg := DefaultConfig()
	assert.NoError(t, cfg.Validate())

	cfg.BackoffFactor = 0.5
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.JitterFactor = 1.5
	assert.Error(t, cfg.Validate())
}
