package domain

import (
	"context"
	"time"
)

// Cache defines the interface for caching operations. The main
// consumer is the merchant metadata resolver, which sits on the hot
// path of every decision.
type Cache interface {
	// Get retrieves a value from cache. Returns nil, nil if key not found.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value in cache with expiration.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes a value from cache.
	Delete(ctx context.Context, key string) error

	// GetMerchant retrieves cached merchant metadata.
	GetMerchant(ctx context.Context, account string) (*MerchantMetadata, error)

	// SetMerchant caches merchant metadata.
	SetMerchant(ctx context.Context, account string, meta *MerchantMetadata, ttl time.Duration) error

	// Health check.
	Ping(ctx context.Context) error

	// Lifecycle.
	Close() error
}

// CacheConfig holds configuration for cache initialization.
type CacheConfig struct {
	// Type is the cache type: "memory" or "redis"
	Type string

	// Local LRU cache settings (Community tier)
	LocalMaxSize int
	LocalTTL     time.Duration

	// Redis settings (Pro tier)
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Two-phase settings
	EnableTwoPhase bool // If true, check local first, then Redis
}
