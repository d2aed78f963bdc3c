package a2a

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/BaSui01/agentlink/agent/card"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// CardCache is the TTL cache seam in front of card resolution. The
// cache is advisory: implementations swallow backend errors and report
// a miss, so a broken cache never breaks resolution.
type CardCache interface {
	Get(ctx context.Context, url string) (*card.Card, bool)
	Set(ctx context.Context, url string, c *card.Card)
	Purge(ctx context.Context)
}

// MemoryCardCache is an in-process CardCache with per-entry expiry.
type MemoryCardCache struct {
	mu      sync.RWMutex
	entries map[string]memoryCardEntry
	ttl     time.Duration
}

type memoryCardEntry struct {
	card      *card.Card
	expiresAt time.Time
}

// DefaultCardTTL is used when no TTL is configured.
const DefaultCardTTL = 5 * time.Minute

// NewMemoryCardCache creates a MemoryCardCache with the given TTL.
func NewMemoryCardCache(ttl time.Duration) *MemoryCardCache {
	if ttl <= 0 {
		ttl = DefaultCardTTL
	}
	return &MemoryCardCache{
		entries: make(map[string]memoryCardEntry),
		ttl:     ttl,
	}
}

func (m *MemoryCardCache) Get(_ context.Context, url string) (*card.Card, bool) {
	m.mu.RLock()
	entry, ok := m.entries[url]
	m.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if time.Now().After(entry.expiresAt) {
		// Expired entries are dropped on read so the map cannot grow
		// without bound across distinct urls. A concurrent Set may
		// have refreshed the entry; only remove the one we saw.
		m.mu.Lock()
		if current, still := m.entries[url]; still && current.expiresAt.Equal(entry.expiresAt) {
			delete(m.entries, url)
		}
		m.mu.Unlock()
		return nil, false
	}
	return entry.card.Clone(), true
}

func (m *MemoryCardCache) Set(_ context.Context, url string, c *card.Card) {
	if c == nil {
		return
	}
	m.mu.Lock()
	m.entries[url] = memoryCardEntry{
		card:      c.Clone(),
		expiresAt: time.Now().Add(m.ttl),
	}
	m.mu.Unlock()
}

func (m *MemoryCardCache) Purge(_ context.Context) {
	m.mu.Lock()
	m.entries = make(map[string]memoryCardEntry)
	m.mu.Unlock()
}

// RedisCardCacheConfig holds configuration for the Redis-backed card
// cache.
type RedisCardCacheConfig struct {
	// Addr is the Redis address.
	Addr string `yaml:"addr" json:"addr"`
	// Password is the Redis password.
	Password string `yaml:"password" json:"password"`
	// DB is the Redis database number.
	DB int `yaml:"db" json:"db"`
	// KeyPrefix namespaces cache keys.
	KeyPrefix string `yaml:"key_prefix" json:"key_prefix"`
	// TTL is the per-entry expiry.
	TTL time.Duration `yaml:"ttl" json:"ttl"`
	// PoolSize is the connection pool size.
	PoolSize int `yaml:"pool_size" json:"pool_size"`
}

// DefaultRedisCardCacheConfig returns a RedisCardCacheConfig with
// sensible defaults.
func DefaultRedisCardCacheConfig() RedisCardCacheConfig {
	return RedisCardCacheConfig{
		Addr:      "localhost:6379",
		KeyPrefix: "agentlink:",
		TTL:       DefaultCardTTL,
		PoolSize:  10,
	}
}

// RedisCardCache is a CardCache backed by Redis, letting peer
// processes share resolved cards.
type RedisCardCache struct {
	client    *redis.Client
	keyPrefix string
	ttl       time.Duration
	logger    *zap.Logger
}

// NewRedisCardCache creates a RedisCardCache and verifies
// connectivity.
func NewRedisCardCache(config RedisCardCacheConfig, logger *zap.Logger) (*RedisCardCache, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	client := redis.NewClient(&redis.Options{
		Addr:     config.Addr,
		Password: config.Password,
		DB:       config.DB,
		PoolSize: config.PoolSize,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	ttl := config.TTL
	if ttl <= 0 {
		ttl = DefaultCardTTL
	}
	keyPrefix := config.KeyPrefix
	if keyPrefix == "" {
		keyPrefix = "agentlink:"
	}

	return &RedisCardCache{
		client:    client,
		keyPrefix: keyPrefix + "card:",
		ttl:       ttl,
		logger:    logger.With(zap.String("component", "redis_card_cache")),
	}, nil
}

func (r *RedisCardCache) key(url string) string {
	return r.keyPrefix + url
}

func (r *RedisCardCache) Get(ctx context.Context, url string) (*card.Card, bool) {
	data, err := r.client.Get(ctx, r.key(url)).Bytes()
	if err != nil {
		if err != redis.Nil {
			r.logger.Debug("cache get failed", zap.String("url", url), zap.Error(err))
		}
		return nil, false
	}

	var c card.Card
	if err := json.Unmarshal(data, &c); err != nil {
		r.logger.Warn("cache entry corrupt, dropping", zap.String("url", url), zap.Error(err))
		r.client.Del(ctx, r.key(url))
		return nil, false
	}
	return &c, true
}

func (r *RedisCardCache) Set(ctx context.Context, url string, c *card.Card) {
	if c == nil {
		return
	}
	data, err := json.Marshal(c)
	if err != nil {
		r.logger.Warn("cache set marshal failed", zap.String("url", url), zap.Error(err))
		return
	}
	if err := r.client.Set(ctx, r.key(url), data, r.ttl).Err(); err != nil {
		r.logger.Debug("cache set failed", zap.String("url", url), zap.Error(err))
	}
}

func (r *RedisCardCache) Purge(ctx context.Context) {
	iter := r.client.Scan(ctx, 0, r.keyPrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		r.client.Del(ctx, iter.Val())
	}
	if err := iter.Err(); err != nil {
		r.logger.Debug("cache purge scan failed", zap.Error(err))
	}
}

// Close releases the Redis connection.
func (r *RedisCardCache) Close() error {
	return r.client.Close()
}

// Ensure both caches implement CardCache.
var (
	_ CardCache = (*MemoryCardCache)(nil)
	_ CardCache = (*RedisCardCache)(nil)
)
