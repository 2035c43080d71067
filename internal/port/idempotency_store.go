package port

import "context"

type IdempotencyStore interface {
	// SetIdempotency sets a key for idempotency check, returns false if already exists
	SetIdempotency(ctx context.Context, key string) (bool, error)
	// ClearIdempotency removes a key so the request may legitimately be retried
	ClearIdempotency(ctx context.Context, key string) error
}
