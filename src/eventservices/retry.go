package eventservices

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	log "github.com/sirupsen/logrus"
)

const (
	defaultMaxRetries = 2
	defaultRetryDelay = 1 * time.Second
)

// HTTPStatusError is returned by the brokerage and data clients when the
// server responds with a non-2xx status. Retryable callers use the code to
// decide whether to try again.
type HTTPStatusError struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *HTTPStatusError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("http status %s: %s", e.Status, e.Body)
	}
	return fmt.Sprintf("http status %s", e.Status)
}

// IsTransient reports whether err is worth retrying: server-side 5xx,
// gateway timeouts, and network-level timeouts or connection failures.
// Client errors (4xx) are permanent and never retried.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var statusErr *HTTPStatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode >= 500
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	return false
}

// WithRetry runs fn up to maxRetries+1 times, sleeping a fixed delay between
// attempts, and gives up immediately on non-transient errors.
func WithRetry(ctx context.Context, label string, fn func() error) error {
	var err error
	for attempt := 0; attempt <= defaultMaxRetries; attempt++ {
		if err = fn(); err == nil {
			return nil
		}

		if !IsTransient(err) {
			return err
		}

		if attempt == defaultMaxRetries {
			break
		}

		log.Warnf("WithRetry: %s failed (attempt %d/%d), retrying: %v", label, attempt+1, defaultMaxRetries+1, err)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(defaultRetryDelay):
		}
	}

	return fmt.Errorf("WithRetry: %s failed after %d attempts: %w", label, defaultMaxRetries+1, err)
}
