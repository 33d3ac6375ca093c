package services

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"projecthub/recommender/internal/config"
	"projecthub/recommender/internal/models"
)

// RateLimiter enforces per-user and global request quotas plus the monthly
// spend ceiling before any provider call is attempted. Allow is called once
// per routed request; RecordUsage afterwards with the real token cost.
type RateLimiter interface {
	Allow(ctx context.Context, userID string) error
	RecordUsage(ctx context.Context, userID string, tokens int, cost float64) error
	BudgetStatus(ctx context.Context) (*models.BudgetStatus, error)
}

const (
	userQuotaKey   = "ratelimit:user:%s:%s"
	globalQuotaKey = "ratelimit:global:%s"
	monthlySpend   = "budget:spend:%s"
)

type redisRateLimiter struct {
	client    *redis.Client
	rateCfg   config.RateLimitConfig
	budgetCfg config.BudgetConfig
}

func NewRedisRateLimiter(client *redis.Client, rateCfg config.RateLimitConfig, budgetCfg config.BudgetConfig) RateLimiter {
	return &redisRateLimiter{
		client:    client,
		rateCfg:   rateCfg,
		budgetCfg: budgetCfg,
	}
}

// Allow implements RateLimiter. The spend ceiling is checked before any
// counter moves, so a budget-denied call consumes no quota. Quota counters
// are incremented atomically; an increment that lands past the quota is
// rolled into a denial so racing callers cannot both squeeze through the
// last slot, and a global denial has already consumed the user slot.
func (r *redisRateLimiter) Allow(ctx context.Context, userID string) error {
	spend, err := r.currentSpend(ctx)
	if err != nil {
		return err
	}
	if spend >= r.budgetCfg.MonthlyLimit {
		return models.ErrBudgetExceeded
	}

	bucket := time.Now().UTC().Format("200601021504")

	userKey := fmt.Sprintf(userQuotaKey, userID, bucket)
	count, err := r.client.Incr(ctx, userKey).Result()
	if err != nil {
		return fmt.Errorf("rate limiter user increment failed: %w", err)
	}
	r.client.Expire(ctx, userKey, 2*time.Minute)
	if count > int64(r.rateCfg.UserPerMinute) {
		return models.ErrRateLimitExceeded
	}

	globalKey := fmt.Sprintf(globalQuotaKey, bucket)
	count, err = r.client.Incr(ctx, globalKey).Result()
	if err != nil {
		return fmt.Errorf("rate limiter global increment failed: %w", err)
	}
	r.client.Expire(ctx, globalKey, 2*time.Minute)
	if count > int64(r.rateCfg.GlobalPerMinute) {
		return models.ErrRateLimitExceeded
	}

	return nil
}

// RecordUsage implements RateLimiter.
func (r *redisRateLimiter) RecordUsage(ctx context.Context, userID string, tokens int, cost float64) error {
	month := time.Now().UTC().Format("2006-01")
	if err := r.client.IncrByFloat(ctx, fmt.Sprintf(monthlySpend, month), cost).Err(); err != nil {
		return fmt.Errorf("failed to record spend: %w", err)
	}
	if err := r.client.IncrBy(ctx, "usage:tokens:"+userID, int64(tokens)).Err(); err != nil {
		return fmt.Errorf("failed to record token usage: %w", err)
	}
	return nil
}

// BudgetStatus implements RateLimiter.
func (r *redisRateLimiter) BudgetStatus(ctx context.Context) (*models.BudgetStatus, error) {
	spend, err := r.currentSpend(ctx)
	if err != nil {
		return nil, err
	}
	return buildBudgetStatus(spend, r.budgetCfg.MonthlyLimit), nil
}

func (r *redisRateLimiter) currentSpend(ctx context.Context) (float64, error) {
	month := time.Now().UTC().Format("2006-01")
	val, err := r.client.Get(ctx, fmt.Sprintf(monthlySpend, month)).Result()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read monthly spend: %w", err)
	}
	spend, _ := strconv.ParseFloat(val, 64)
	return spend, nil
}

// memoryRateLimiter is the in-process implementation, used in tests and when
// no Redis address is configured.
type memoryRateLimiter struct {
	rateCfg   config.RateLimitConfig
	budgetCfg config.BudgetConfig

	mu      sync.Mutex
	bucket  string
	buckets map[string]int
	spend   float64
	tokens  map[string]int
}

func NewMemoryRateLimiter(rateCfg config.RateLimitConfig, budgetCfg config.BudgetConfig) RateLimiter {
	return &memoryRateLimiter{
		rateCfg:   rateCfg,
		budgetCfg: budgetCfg,
		buckets:   make(map[string]int),
		tokens:    make(map[string]int),
	}
}

// Allow implements RateLimiter. Spend is checked before the counters move,
// matching the Redis implementation.
func (m *memoryRateLimiter) Allow(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.spend >= m.budgetCfg.MonthlyLimit {
		return models.ErrBudgetExceeded
	}

	bucket := time.Now().UTC().Format("200601021504")
	if bucket != m.bucket {
		// Minute rolled over; every existing counter is stale.
		m.bucket = bucket
		m.buckets = make(map[string]int)
	}

	userKey := "user:" + userID + ":" + bucket
	m.buckets[userKey]++
	if m.buckets[userKey] > m.rateCfg.UserPerMinute {
		return models.ErrRateLimitExceeded
	}

	globalKey := "global:" + bucket
	m.buckets[globalKey]++
	if m.buckets[globalKey] > m.rateCfg.GlobalPerMinute {
		return models.ErrRateLimitExceeded
	}

	return nil
}

// RecordUsage implements RateLimiter.
func (m *memoryRateLimiter) RecordUsage(_ context.Context, userID string, tokens int, cost float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.spend += cost
	m.tokens[userID] += tokens
	return nil
}

// BudgetStatus implements RateLimiter.
func (m *memoryRateLimiter) BudgetStatus(_ context.Context) (*models.BudgetStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return buildBudgetStatus(m.spend, m.budgetCfg.MonthlyLimit), nil
}

func buildBudgetStatus(spend, limit float64) *models.BudgetStatus {
	status := &models.BudgetStatus{
		CurrentSpend:    spend,
		MonthlyLimit:    limit,
		RemainingBudget: limit - spend,
	}
	if limit > 0 {
		status.BudgetUtilization = spend / limit
	}
	return status
}
