// Package ratelimit 提供基于 Redis 的分布式请求限流（GCRA 算法）
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis_rate/v10"
	"github.com/redis/go-redis/v9"
)

// RateLimiter 限流器接口
type RateLimiter interface {
	// Allow 判断 key 在给定规则下是否放行
	Allow(ctx context.Context, key string, limit Limit) (*Result, error)
}

// Limit 限流规则：每 Period 允许 Rate 个请求，突发上限 Burst
type Limit struct {
	Rate   int
	Period time.Duration
	Burst  int
}

// Result 单次限流判断的结果
type Result struct {
	// 是否放行
	Allowed bool
	// 当前窗口剩余配额
	Remaining int
	// 配额完全恢复所需时间
	ResetAfter time.Duration
	// 被拒绝时建议的重试等待时间
	RetryAfter time.Duration
}

// RedisRateLimiter 基于 redis_rate 的限流器实现
// 多实例部署共享同一份配额，限流状态存储在 Redis
type RedisRateLimiter struct {
	limiter *redis_rate.Limiter
}

// NewRedisRateLimiter 创建 Redis 限流器
func NewRedisRateLimiter(rdb *redis.Client) *RedisRateLimiter {
	return &RedisRateLimiter{limiter: redis_rate.NewLimiter(rdb)}
}

// Allow 判断是否放行
func (r *RedisRateLimiter) Allow(ctx context.Context, key string, limit Limit) (*Result, error) {
	res, err := r.limiter.Allow(ctx, key, redis_rate.Limit{
		Rate:   limit.Rate,
		Period: limit.Period,
		Burst:  limit.Burst,
	})
	if err != nil {
		return nil, fmt.Errorf("rate limit check failed: %w", err)
	}

	return &Result{
		Allowed:    res.Allowed > 0,
		Remaining:  res.Remaining,
		ResetAfter: res.ResetAfter,
		RetryAfter: res.RetryAfter,
	}, nil
}
