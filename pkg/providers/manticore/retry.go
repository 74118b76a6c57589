package manticore

import (
	"context"
	"database/sql/driver"
	"errors"
	"math/rand"
	"strings"
	"time"

	"github.com/Roguelazer/advsearch/pkg/log"
)

// RetryConfig defines retry behavior for operations against the daemon.
type RetryConfig struct {
	MaxAttempts   int           `toml:"max_attempts"`
	BaseDelay     time.Duration `toml:"base_delay"`
	MaxDelay      time.Duration `toml:"max_delay"`
	JitterPercent float64       `toml:"jitter_percent"`
}

func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:   3,
		BaseDelay:     250 * time.Millisecond,
		MaxDelay:      5 * time.Second,
		JitterPercent: 0.1,
	}
}

type retrier struct {
	config RetryConfig
	logger *log.Logger
}

func newRetrier(config RetryConfig, logger *log.Logger) *retrier {
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = DefaultRetryConfig().MaxAttempts
	}
	if config.BaseDelay <= 0 {
		config.BaseDelay = DefaultRetryConfig().BaseDelay
	}
	if config.MaxDelay <= 0 {
		config.MaxDelay = DefaultRetryConfig().MaxDelay
	}
	return &retrier{config: config, logger: logger}
}

// do runs op with exponential backoff, retrying only transient failures.
func (r *retrier) do(ctx context.Context, op func(ctx context.Context) error) error {
	var lastErr error
	for attempt := 1; attempt <= r.config.MaxAttempts; attempt++ {
		lastErr = op(ctx)
		if lastErr == nil {
			return nil
		}
		if !isRetryable(lastErr) {
			return lastErr
		}
		if attempt == r.config.MaxAttempts {
			break
		}

		delay := r.backoffDelay(attempt)
		r.logger.Debugf("retrying after %v (attempt %d/%d): %v", delay, attempt, r.config.MaxAttempts, lastErr)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
	return lastErr
}

// backoffDelay is baseDelay * 2^(attempt-1) with jitter, capped at MaxDelay.
func (r *retrier) backoffDelay(attempt int) time.Duration {
	delay := r.config.BaseDelay * time.Duration(1<<(attempt-1))
	if r.config.JitterPercent > 0 {
		maxJitter := time.Duration(float64(delay) * r.config.JitterPercent)
		if maxJitter > 0 {
			delay += time.Duration(rand.Int63n(int64(maxJitter)))
		}
	}
	if delay > r.config.MaxDelay {
		delay = r.config.MaxDelay
	}
	return delay
}

// isRetryable reports whether an error is transient. Syntax errors and
// context cancellation never retry; connection level failures do.
func isRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if errors.Is(err, driver.ErrBadConn) {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, marker := range []string{
		"connection refused",
		"connection reset",
		"broken pipe",
		"i/o timeout",
		"invalid connection",
		"server shutdown in progress",
	} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
