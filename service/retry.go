package service

import (
	"context"
	"errors"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/htc101524/BoardGameMondays-sub002/models"
)

const (
	maxAttempts      = 3
	retryBackoffBase = 50 * time.Millisecond
)

// withRetry runs fn up to maxAttempts times, retrying only transient
// persistence failures (serialization conflicts, deadlocks). Every other
// error, and the final transient one, is returned as-is.
func withRetry[T any](ctx context.Context, fn func() (T, error)) (T, error) {
	var zero T
	var err error

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		var result T
		result, err = fn()
		if err == nil {
			return result, nil
		}
		if !errors.Is(err, models.ErrTransientPersistence) {
			return zero, err
		}
		if attempt == maxAttempts {
			break
		}

		log.WithError(err).WithField("attempt", attempt).Warn("Transient persistence failure, retrying")

		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(retryBackoffBase * time.Duration(attempt)):
		}
	}

	return zero, err
}
