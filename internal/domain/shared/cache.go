package shared

import (
	"context"
	"time"
)

// SummaryCache caches expensive read-model payloads (stock summary,
// dashboard KPIs) as opaque bytes. Implementations must treat entries
// as disposable: a miss is always safe, the caller recomputes from the
// database.
//
// Cache keys follow the pattern:
// - Stock summary: summary:stock
// - Dashboard KPIs: summary:dashboard
type SummaryCache interface {
	// Get retrieves a cached payload. The second return is false on a
	// miss (including an expired entry); that is not an error.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores a payload with the given TTL. A ttl of 0 means the
	// implementation's default TTL.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Invalidate removes the given keys. Missing keys are ignored.
	Invalidate(ctx context.Context, keys ...string) error

	// Close releases any resources held by the cache.
	Close() error
}

// CacheKeyStockSummary caches the full stock summary payload
const CacheKeyStockSummary = "summary:stock"

// CacheKeyDashboard caches the dashboard KPI payload
const CacheKeyDashboard = "summary:dashboard"
