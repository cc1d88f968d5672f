package services

import (
	"context"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// CacheStats is a point-in-time counter snapshot.
type CacheStats struct {
	Hits    int64 `json:"hits"`
	Misses  int64 `json:"misses"`
	Entries int64 `json:"entries"`
}

// ICacheService is the cache capability used by AddressService. Values are
// serialized JSON.
type ICacheService interface {
	Get(ctx context.Context, key string) (string, bool)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	Stats() CacheStats
}

// LRUCacheService is the in-process L1 cache.
type LRUCacheService struct {
	cache  *lru.Cache[string, string]
	hits   atomic.Int64
	misses atomic.Int64
}

// NewLRUCacheService builds an LRU cache of the given capacity.
func NewLRUCacheService(size int) (*LRUCacheService, error) {
	cache, err := lru.New[string, string](size)
	if err != nil {
		return nil, err
	}
	return &LRUCacheService{cache: cache}, nil
}

func (s *LRUCacheService) Get(_ context.Context, key string) (string, bool) {
	value, ok := s.cache.Get(key)
	if ok {
		s.hits.Add(1)
	} else {
		s.misses.Add(1)
	}
	return value, ok
}

func (s *LRUCacheService) Set(_ context.Context, key, value string) error {
	s.cache.Add(key, value)
	return nil
}

func (s *LRUCacheService) Delete(_ context.Context, key string) error {
	s.cache.Remove(key)
	return nil
}

func (s *LRUCacheService) Stats() CacheStats {
	return CacheStats{
		Hits:    s.hits.Load(),
		Misses:  s.misses.Load(),
		Entries: int64(s.cache.Len()),
	}
}

// RedisCacheService is the shared L2 cache.
type RedisCacheService struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	logger *zap.Logger
	hits   atomic.Int64
	misses atomic.Int64
}

// NewRedisCacheService wraps a connected Redis client.
func NewRedisCacheService(client *redis.Client, prefix string, ttl time.Duration, logger *zap.Logger) *RedisCacheService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisCacheService{client: client, prefix: prefix, ttl: ttl, logger: logger}
}

func (s *RedisCacheService) key(key string) string {
	if s.prefix == "" {
		return key
	}
	return s.prefix + ":" + key
}

func (s *RedisCacheService) Get(ctx context.Context, key string) (string, bool) {
	value, err := s.client.Get(ctx, s.key(key)).Result()
	if err == redis.Nil {
		s.misses.Add(1)
		return "", false
	}
	if err != nil {
		s.logger.Warn("Redis get failed", zap.String("key", key), zap.Error(err))
		s.misses.Add(1)
		return "", false
	}
	s.hits.Add(1)
	return value, true
}

func (s *RedisCacheService) Set(ctx context.Context, key, value string) error {
	return s.client.Set(ctx, s.key(key), value, s.ttl).Err()
}

func (s *RedisCacheService) Delete(ctx context.Context, key string) error {
	return s.client.Del(ctx, s.key(key)).Err()
}

func (s *RedisCacheService) Stats() CacheStats {
	return CacheStats{Hits: s.hits.Load(), Misses: s.misses.Load()}
}

// HybridCacheService layers the in-process LRU in front of Redis. Reads fill
// the L1 on an L2 hit; writes and deletes go to both layers.
type HybridCacheService struct {
	l1 ICacheService
	l2 ICacheService
}

// NewHybridCacheService composes two cache layers.
func NewHybridCacheService(l1, l2 ICacheService) *HybridCacheService {
	return &HybridCacheService{l1: l1, l2: l2}
}

func (s *HybridCacheService) Get(ctx context.Context, key string) (string, bool) {
	if value, ok := s.l1.Get(ctx, key); ok {
		return value, true
	}
	value, ok := s.l2.Get(ctx, key)
	if ok {
		_ = s.l1.Set(ctx, key, value)
	}
	return value, ok
}

func (s *HybridCacheService) Set(ctx context.Context, key, value string) error {
	if err := s.l1.Set(ctx, key, value); err != nil {
		return err
	}
	return s.l2.Set(ctx, key, value)
}

func (s *HybridCacheService) Delete(ctx context.Context, key string) error {
	if err := s.l1.Delete(ctx, key); err != nil {
		return err
	}
	return s.l2.Delete(ctx, key)
}

func (s *HybridCacheService) Stats() CacheStats {
	l1 := s.l1.Stats()
	l2 := s.l2.Stats()
	return CacheStats{
		Hits:    l1.Hits + l2.Hits,
		Misses:  l2.Misses,
		Entries: l1.Entries,
	}
}
