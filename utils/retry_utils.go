package utils

import (
	"context"
	"errors"
	"math/rand"
	"net"
	"time"

	"github.com/agari-platform/folio/models"
)

// HTTPStatusCoder is implemented by errors that carry an HTTP status code,
// letting the retry loop classify them without knowing the client type.
type HTTPStatusCoder interface {
	HTTPStatusCode() int
}

// RetryConfig bounds a retry loop. Attempts counts total tries, not
// retries: Attempts=3 means one call plus up to two retries.
type RetryConfig struct {
	Attempts  int
	BaseDelay time.Duration
	MaxDelay  time.Duration
}

// DefaultRetryConfig matches the provisioning contract: three attempts
// with exponential backoff starting at 250ms.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		Attempts:  3,
		BaseDelay: 250 * time.Millisecond,
		MaxDelay:  5 * time.Second,
	}
}

// IsRetryableHTTPStatus reports whether an HTTP status is worth retrying.
func IsRetryableHTTPStatus(code int) bool {
	if code == 408 || code == 429 {
		return true
	}
	return code >= 500 && code <= 599
}

// IsTransient reports whether an error should be retried: per-call
// timeouts, network timeouts, and retryable HTTP statuses. Everything
// else (4xx, conflicts, validation failures) aborts immediately.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, models.ErrTimeout) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var sc HTTPStatusCoder
	if errors.As(err, &sc) {
		return IsRetryableHTTPStatus(sc.HTTPStatusCode())
	}
	return false
}

// Retry runs fn until it succeeds, fails non-transiently, exhausts the
// configured attempts, or the parent context is done. Cancellation of the
// parent context stops the loop even when the last error was transient.
func Retry(ctx context.Context, cfg RetryConfig, fn func(ctx context.Context) error) error {
	if cfg.Attempts <= 0 {
		cfg.Attempts = 1
	}

	var lastErr error
	delay := cfg.BaseDelay

	for attempt := 1; attempt <= cfg.Attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			if lastErr != nil {
				return lastErr
			}
			return err
		}

		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if !IsTransient(lastErr) || attempt == cfg.Attempts {
			return lastErr
		}

		select {
		case <-ctx.Done():
			return lastErr
		case <-time.After(JitterSleep(delay)):
		}

		delay *= 2
		if cfg.MaxDelay > 0 && delay > cfg.MaxDelay {
			delay = cfg.MaxDelay
		}
	}

	return lastErr
}

// JitterSleep spreads a backoff delay by +/-20% so concurrent retry loops
// do not synchronise against the identity provider.
func JitterSleep(base time.Duration) time.Duration {
	if base <= 0 {
		return 0
	}
	j := 0.2
	delta := base.Seconds() * j
	low := base.Seconds() - delta
	high := base.Seconds() + delta
	if low < 0 {
		low = 0
	}
	v := low + rand.Float64()*(high-low)
	return time.Duration(v * float64(time.Second))
}
