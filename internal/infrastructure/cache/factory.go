package cache

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/karkhana-erp/backend/internal/domain/shared"
	"github.com/karkhana-erp/backend/internal/infrastructure/config"
)

// Factory creates cache-backed stores based on configuration.
// Redis is preferred for distributed deployments; the in-memory
// implementations serve single-instance setups and tests.
type Factory struct {
	cfg              *config.Config
	logger           *zap.Logger
	inMemoryFallback bool
}

// FactoryOption configures the cache factory
type FactoryOption func(*Factory)

// WithLogger sets the logger for the factory
func WithLogger(logger *zap.Logger) FactoryOption {
	return func(f *Factory) {
		f.logger = logger
	}
}

// WithInMemoryFallback enables falling back to in-memory stores when
// Redis is unreachable. Without it, Redis failures are returned as errors.
func WithInMemoryFallback() FactoryOption {
	return func(f *Factory) {
		f.inMemoryFallback = true
	}
}

// NewFactory creates a new cache factory
func NewFactory(cfg *config.Config, opts ...FactoryOption) *Factory {
	f := &Factory{
		cfg:    cfg,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func (f *Factory) redisConfig() RedisConfig {
	return RedisConfig{
		Host:     f.cfg.Redis.Host,
		Port:     f.cfg.Redis.Port,
		Password: f.cfg.Redis.Password,
		DB:       f.cfg.Redis.DB,
	}
}

// CreateIdempotencyStore creates an idempotency store per configuration.
// With Redis enabled it connects to Redis, optionally falling back to
// the in-memory store when the connection fails.
func (f *Factory) CreateIdempotencyStore() (shared.IdempotencyStore, error) {
	if !f.cfg.Cache.UseRedis {
		f.logger.Info("using in-memory idempotency store")
		return NewInMemoryIdempotencyStore(), nil
	}

	store, err := NewRedisIdempotencyStore(f.redisConfig())
	if err != nil {
		if f.inMemoryFallback {
			f.logger.Warn("Redis unavailable, falling back to in-memory idempotency store",
				zap.Error(err))
			return NewInMemoryIdempotencyStore(), nil
		}
		return nil, fmt.Errorf("failed to create Redis idempotency store: %w", err)
	}

	f.logger.Info("using Redis idempotency store",
		zap.String("addr", f.cfg.Redis.Addr()))
	return store, nil
}

// CreateSummaryCache creates a summary cache per configuration. The
// stock summary TTL serves as the default TTL; callers pass explicit
// TTLs for other summaries.
func (f *Factory) CreateSummaryCache() (shared.SummaryCache, error) {
	defaultTTL := f.cfg.Cache.StockSummaryTTL

	if !f.cfg.Cache.UseRedis {
		f.logger.Info("using in-memory summary cache")
		return NewInMemorySummaryCache(defaultTTL), nil
	}

	cache, err := NewRedisSummaryCache(f.redisConfig(), defaultTTL)
	if err != nil {
		if f.inMemoryFallback {
			f.logger.Warn("Redis unavailable, falling back to in-memory summary cache",
				zap.Error(err))
			return NewInMemorySummaryCache(defaultTTL), nil
		}
		return nil, fmt.Errorf("failed to create Redis summary cache: %w", err)
	}

	f.logger.Info("using Redis summary cache",
		zap.String("addr", f.cfg.Redis.Addr()))
	return cache, nil
}
