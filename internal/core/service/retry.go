package service

import (
	"context"
	"errors"
	"time"
)

// RunWithRetry executes op, retrying with a fixed backoff when it fails with
// conflict. Errors matching an entry in passthrough are returned immediately
// without retrying, as is any error that matches neither; on the last attempt
// the conflict itself is returned. The backoff sleep honors ctx cancellation.
func RunWithRetry[T any](ctx context.Context, maxAttempts int, backoff time.Duration, conflict error, op func() (T, error), passthrough ...error) (T, error) {
	var zero T

	for attempt := 1; ; attempt++ {
		result, err := op()
		if err == nil {
			return result, nil
		}

		for _, allowed := range passthrough {
			if errors.Is(err, allowed) {
				return zero, err
			}
		}

		if !errors.Is(err, conflict) {
			return zero, err
		}

		if attempt >= maxAttempts {
			return zero, err
		}

		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(backoff):
		}
	}
}
