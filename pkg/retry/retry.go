package retry

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	mathrand "math/rand"
	"time"

	"github.com/unstuck-ai/helpnet-backend/pkg/logging"
)

// Config holds the configuration for retry operations.
type Config struct {
	MaxRetries      int           // Maximum number of attempts
	InitialDelay    time.Duration // Initial delay between retries
	MaxDelay        time.Duration // Maximum delay between retries
	BackoffFactor   float64       // Multiplier for exponential backoff
	JitterFactor    float64       // Fraction of the delay added as jitter
	LogRetryAttempt bool
	// ShouldRetry decides whether an error at a given attempt is retryable.
	ShouldRetry func(error, int) bool
}

// DefaultConfig returns a default configuration for retry operations.
func DefaultConfig() *Config {
	return &Config{
		MaxRetries:      5,
		InitialDelay:    time.Second,
		MaxDelay:        30 * time.Second,
		BackoffFactor:   2.0,
		JitterFactor:    0.2,
		LogRetryAttempt: true,
	}
}

func (c *Config) Validate() error {
	if c.MaxRetries < 0 {
		return errors.New("MaxRetries must be >= 0")
	}
	if c.InitialDelay <= 0 {
		return errors.New("InitialDelay must be positive")
	}
	if c.MaxDelay <= 0 {
		return errors.New("MaxDelay must be positive")
	}
	if c.BackoffFactor < 1.0 {
		return errors.New("BackoffFactor must be >= 1.0")
	}
	if c.JitterFactor < 0 || c.JitterFactor > 1.0 {
		return errors.New("JitterFactor must be between 0.0 and 1.0")
	}
	return nil
}

func secureFloat64() float64 {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return mathrand.Float64()
	}
	return float64(binary.BigEndian.Uint64(b[:])) / (1 << 64)
}

func delayWithJitter(baseDelay time.Duration, jitterFactor float64) time.Duration {
	sleepDuration := baseDelay
	if jitterFactor > 0 {
		sleepDuration += time.Duration(jitterFactor * float64(baseDelay) * secureFloat64())
	}
	return sleepDuration
}

func nextDelay(currentDelay time.Duration, backoffFactor float64, maxDelay time.Duration) time.Duration {
	next := time.Duration(float64(currentDelay) * backoffFactor)
	if next > maxDelay {
		next = maxDelay
	}
	return next
}

// Retry executes the operation with exponential backoff until it succeeds,
// the attempts are exhausted, or the context is cancelled.
func Retry[T any](ctx context.Context, operation func() (T, error), cfg *Config, logger logging.Logger) (T, error) {
	var zero T
	var err error

	if cfg == nil {
		cfg = DefaultConfig()
	} else if err := cfg.Validate(); err != nil {
		return zero, fmt.Errorf("invalid retry config: %w", err)
	}

	delay := cfg.InitialDelay

	for attempt := 0; attempt < cfg.MaxRetries; attempt++ {
		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		default:
		}

		result, opErr := operation()
		if opErr == nil {
			return result, nil
		}
		err = opErr

		if cfg.ShouldRetry != nil && !cfg.ShouldRetry(err, attempt+1) {
			return zero, err
		}

		sleepDuration := delayWithJitter(delay, cfg.JitterFactor)
		if cfg.LogRetryAttempt {
			logger.Warnf("Attempt %d/%d failed: %v. Retrying in %v...", attempt+1, cfg.MaxRetries, err, sleepDuration)
		}

		select {
		case <-time.After(sleepDuration):
			delay = nextDelay(delay, cfg.BackoffFactor, cfg.MaxDelay)
		case <-ctx.Done():
			return zero, ctx.Err()
		}
	}

	return zero, fmt.Errorf("operation failed after %d attempts: %w", cfg.MaxRetries, err)
}

// RetryFunc is a convenience wrapper for operations that only return an error.
func RetryFunc(ctx context.Context, operation func() error, cfg *Config, logger logging.Logger) error {
	_, err := Retry(ctx, func() (struct{}, error) {
		return struct{}{}, operation()
	}, cfg, logger)
	return err
}
