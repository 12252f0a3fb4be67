package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/habitforge/habitforge/internal/config"
	redis "github.com/redis/go-redis/v9"
)

const keyCompletionUser = "completion:user:%s"

// CompletionLimiter throttles XP-granting writes per user. A nil
// limiter (no Redis configured) allows everything.
type CompletionLimiter struct {
	enabled bool

	bucket *TokenBucket
	rate   float64
	burst  int
}

func NewCompletionLimiter(cfg config.Config) (*CompletionLimiter, error) {
	addr := strings.TrimSpace(cfg.RedisAddr)
	if addr == "" {
		return nil, nil
	}
	if cfg.RateLimitPerUserRate <= 0 || cfg.RateLimitPerUserBurst <= 0 {
		return nil, errors.New("completion rate limit must be positive")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: strings.TrimSpace(cfg.RedisPassword),
		DB:       cfg.RedisDB,
	})

	return &CompletionLimiter{
		enabled: true,
		bucket:  NewTokenBucket(client),
		rate:    cfg.RateLimitPerUserRate,
		burst:   cfg.RateLimitPerUserBurst,
	}, nil
}

func (l *CompletionLimiter) Enabled() bool {
	return l != nil && l.enabled
}

func (l *CompletionLimiter) AllowUser(ctx context.Context, userID snowflake.ID) (bool, error) {
	if !l.Enabled() {
		return true, nil
	}
	return l.bucket.Allow(ctx, fmt.Sprintf(keyCompletionUser, userID.String()), l.rate, l.burst)
}
