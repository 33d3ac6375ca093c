package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"projecthub/recommender/internal/models"
)

// RecommendationCache stores the last generated result per student. Reads
// past the entry's expiry behave as a miss even before eviction, and every
// read hands back an independent copy so no caller can corrupt another.
type RecommendationCache interface {
	Get(ctx context.Context, studentID uuid.UUID) (*models.RecommendationResult, error)
	Set(ctx context.Context, studentID uuid.UUID, result *models.RecommendationResult, ttl time.Duration) error
	Invalidate(ctx context.Context, studentID uuid.UUID) error
	InvalidateAll(ctx context.Context, studentID uuid.UUID) error
}

const cacheKeyPrefix = "recommendations:student:"

type redisRecommendationCache struct {
	client *redis.Client
}

func NewRedisRecommendationCache(client *redis.Client) RecommendationCache {
	return &redisRecommendationCache{client: client}
}

// Get implements RecommendationCache. A missing or expired key is a miss,
// not an error.
func (c *redisRecommendationCache) Get(ctx context.Context, studentID uuid.UUID) (*models.RecommendationResult, error) {
	data, err := c.client.Get(ctx, cacheKeyPrefix+studentID.String()).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("cache read failed: %w", err)
	}

	var result models.RecommendationResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("failed to decode cached recommendation: %w", err)
	}

	if time.Now().After(result.ExpiresAt) {
		return nil, nil
	}

	return &result, nil
}

// Set implements RecommendationCache.
func (c *redisRecommendationCache) Set(ctx context.Context, studentID uuid.UUID, result *models.RecommendationResult, ttl time.Duration) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to encode recommendation for cache: %w", err)
	}

	if err := c.client.Set(ctx, cacheKeyPrefix+studentID.String(), data, ttl).Err(); err != nil {
		return fmt.Errorf("cache write failed: %w", err)
	}
	return nil
}

// Invalidate implements RecommendationCache.
func (c *redisRecommendationCache) Invalidate(ctx context.Context, studentID uuid.UUID) error {
	if err := c.client.Del(ctx, cacheKeyPrefix+studentID.String()).Err(); err != nil {
		return fmt.Errorf("cache invalidation failed: %w", err)
	}
	return nil
}

// InvalidateAll implements RecommendationCache. It clears every key
// associated with the student, used on force-refresh.
func (c *redisRecommendationCache) InvalidateAll(ctx context.Context, studentID uuid.UUID) error {
	pattern := cacheKeyPrefix + studentID.String() + "*"

	iter := c.client.Scan(ctx, 0, pattern, 0).Iterator()
	for iter.Next(ctx) {
		if err := c.client.Del(ctx, iter.Val()).Err(); err != nil {
			return fmt.Errorf("cache invalidation failed: %w", err)
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("cache scan failed: %w", err)
	}
	return nil
}

// memoryRecommendationCache is the in-process implementation, used in tests
// and when no Redis address is configured. Copies go in and out via JSON so
// cached entries are never shared with callers.
type memoryRecommendationCache struct {
	mu      sync.RWMutex
	entries map[uuid.UUID]memoryCacheEntry
}

type memoryCacheEntry struct {
	data      []byte
	expiresAt time.Time
}

func NewMemoryRecommendationCache() RecommendationCache {
	return &memoryRecommendationCache{
		entries: make(map[uuid.UUID]memoryCacheEntry),
	}
}

// Get implements RecommendationCache.
func (c *memoryRecommendationCache) Get(_ context.Context, studentID uuid.UUID) (*models.RecommendationResult, error) {
	c.mu.RLock()
	entry, ok := c.entries[studentID]
	c.mu.RUnlock()

	if !ok || time.Now().After(entry.expiresAt) {
		return nil, nil
	}

	var result models.RecommendationResult
	if err := json.Unmarshal(entry.data, &result); err != nil {
		return nil, fmt.Errorf("failed to decode cached recommendation: %w", err)
	}

	if time.Now().After(result.ExpiresAt) {
		return nil, nil
	}

	return &result, nil
}

// Set implements RecommendationCache.
func (c *memoryRecommendationCache) Set(_ context.Context, studentID uuid.UUID, result *models.RecommendationResult, ttl time.Duration) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to encode recommendation for cache: %w", err)
	}

	c.mu.Lock()
	c.entries[studentID] = memoryCacheEntry{
		data:      data,
		expiresAt: time.Now().Add(ttl),
	}
	c.mu.Unlock()
	return nil
}

// Invalidate implements RecommendationCache.
func (c *memoryRecommendationCache) Invalidate(_ context.Context, studentID uuid.UUID) error {
	c.mu.Lock()
	delete(c.entries, studentID)
	c.mu.Unlock()
	return nil
}

// InvalidateAll implements RecommendationCache.
func (c *memoryRecommendationCache) InvalidateAll(ctx context.Context, studentID uuid.UUID) error {
	return c.Invalidate(ctx, studentID)
}
