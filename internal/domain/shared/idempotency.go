package shared

import (
	"context"
	"time"
)

// IdempotencyStore remembers processed request keys so retried
// mutating operations, payment creation and advance adjustment in
// particular, do not double-apply.
type IdempotencyStore interface {
	// MarkProcessed records key for ttl and reports whether it was
	// newly recorded. False means the request is a replay.
	MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error)

	// IsProcessed reports whether key has a live record.
	IsProcessed(ctx context.Context, key string) (bool, error)

	Close() error
}

// IdempotencyConfig controls replay detection.
type IdempotencyConfig struct {
	// TTL is how long a processed key is remembered; after it lapses
	// the same key is accepted again.
	TTL time.Duration

	Enabled bool
}

// DefaultIdempotencyConfig remembers keys for 24 hours.
func DefaultIdempotencyConfig() IdempotencyConfig {
	return IdempotencyConfig{TTL: 24 * time.Hour, Enabled: true}
}
