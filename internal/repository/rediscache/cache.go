// Package rediscache decorates the rule and coupon repositories with a
// short-TTL read-through cache. Usage counters are never cached: every
// reservation decision goes to the source of truth.
package rediscache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mpro775/tagdod-promo-engine/internal/domain"
	"github.com/mpro775/tagdod-promo-engine/internal/repository"
)

const (
	activeRulesKey  = "promo:rules:active"
	couponKeyPrefix = "promo:coupon:"
	autoCouponsKey  = "promo:coupons:auto"
)

// RuleRepository wraps a repository.RuleRepository with a read-through cache
// for the active rule set. Writes (BumpStats) always pass through.
type RuleRepository struct {
	inner  repository.RuleRepository
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewRuleRepository creates a caching rule repository decorator.
func NewRuleRepository(inner repository.RuleRepository, client *redis.Client, ttl time.Duration, logger *slog.Logger) *RuleRepository {
	return &RuleRepository{inner: inner, client: client, ttl: ttl, logger: logger}
}

// ListActive serves the active rule set from cache when fresh. The cached set
// ignores now, so the TTL must stay short enough that window edges are honored
// promptly; callers still re-filter by window in the matcher.
func (r *RuleRepository) ListActive(ctx context.Context, now time.Time) ([]domain.PriceRule, error) {
	var rules []domain.PriceRule
	if hit, err := cacheGet(ctx, r.client, activeRulesKey, &rules); err != nil {
		r.logger.WarnContext(ctx, "rule cache read failed", slog.String("error", err.Error()))
	} else if hit {
		return rules, nil
	}

	rules, err := r.inner.ListActive(ctx, now)
	if err != nil {
		return nil, err
	}

	if err := cacheSet(ctx, r.client, activeRulesKey, rules, r.ttl); err != nil {
		r.logger.WarnContext(ctx, "rule cache write failed", slog.String("error", err.Error()))
	}
	return rules, nil
}

// GetByID passes through to the source repository.
func (r *RuleRepository) GetByID(ctx context.Context, id string) (*domain.PriceRule, error) {
	return r.inner.GetByID(ctx, id)
}

// BumpStats passes through to the source repository.
func (r *RuleRepository) BumpStats(ctx context.Context, id string, delta domain.RuleStatsDelta) error {
	return r.inner.BumpStats(ctx, id, delta)
}

// CouponRepository wraps a repository.CouponRepository with a read-through
// cache on coupon lookups. Cached coupons carry a possibly stale used_count;
// reservations never consult it, so the quota stays exact.
type CouponRepository struct {
	inner  repository.CouponRepository
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewCouponRepository creates a caching coupon repository decorator.
func NewCouponRepository(inner repository.CouponRepository, client *redis.Client, ttl time.Duration, logger *slog.Logger) *CouponRepository {
	return &CouponRepository{inner: inner, client: client, ttl: ttl, logger: logger}
}

// GetByCode serves a coupon from cache when fresh, falling back to the source.
func (r *CouponRepository) GetByCode(ctx context.Context, code string) (*domain.Coupon, error) {
	key := couponKeyPrefix + code

	var coupon domain.Coupon
	if hit, err := cacheGet(ctx, r.client, key, &coupon); err != nil {
		r.logger.WarnContext(ctx, "coupon cache read failed", slog.String("error", err.Error()))
	} else if hit {
		return &coupon, nil
	}

	found, err := r.inner.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}

	if err := cacheSet(ctx, r.client, key, found, r.ttl); err != nil {
		r.logger.WarnContext(ctx, "coupon cache write failed", slog.String("error", err.Error()))
	}
	return found, nil
}

// ListAutoApply serves the auto-apply coupon set from cache when fresh.
func (r *CouponRepository) ListAutoApply(ctx context.Context) ([]domain.Coupon, error) {
	var coupons []domain.Coupon
	if hit, err := cacheGet(ctx, r.client, autoCouponsKey, &coupons); err != nil {
		r.logger.WarnContext(ctx, "coupon cache read failed", slog.String("error", err.Error()))
	} else if hit {
		return coupons, nil
	}

	coupons, err := r.inner.ListAutoApply(ctx)
	if err != nil {
		return nil, err
	}

	if err := cacheSet(ctx, r.client, autoCouponsKey, coupons, r.ttl); err != nil {
		r.logger.WarnContext(ctx, "coupon cache write failed", slog.String("error", err.Error()))
	}
	return coupons, nil
}

// RecordRedemption passes through and invalidates the coupon's cache entry so
// the stale used_count does not outlive the redemption longer than necessary.
func (r *CouponRepository) RecordRedemption(ctx context.Context, red *domain.Redemption) error {
	if err := r.inner.RecordRedemption(ctx, red); err != nil {
		return err
	}
	if err := r.client.Del(ctx, couponKeyPrefix+red.Code).Err(); err != nil {
		r.logger.WarnContext(ctx, "coupon cache invalidation failed", slog.String("error", err.Error()))
	}
	return nil
}

// MarkReleased passes through to the source repository.
func (r *CouponRepository) MarkReleased(ctx context.Context, code, orderID string) error {
	return r.inner.MarkReleased(ctx, code, orderID)
}

func cacheGet(ctx context.Context, client *redis.Client, key string, dest any) (bool, error) {
	data, err := client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("redis get %s: %w", key, err)
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return false, fmt.Errorf("unmarshal cached %s: %w", key, err)
	}
	return true, nil
}

func cacheSet(ctx context.Context, client *redis.Client, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	if err := client.Set(ctx, key, data, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}
