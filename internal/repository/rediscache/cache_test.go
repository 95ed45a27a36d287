package rediscache

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mpro775/tagdod-promo-engine/internal/domain"
)

// stubRuleRepo counts calls so tests can tell cache hits from pass-throughs.
type stubRuleRepo struct {
	rules       []domain.PriceRule
	listCalls   int
	getCalls    int
	bumpedRules []string
}

func (s *stubRuleRepo) ListActive(ctx context.Context, now time.Time) ([]domain.PriceRule, error) {
	s.listCalls++
	return s.rules, nil
}

func (s *stubRuleRepo) GetByID(ctx context.Context, id string) (*domain.PriceRule, error) {
	s.getCalls++
	for i := range s.rules {
		if s.rules[i].ID == id {
			return &s.rules[i], nil
		}
	}
	return nil, nil
}

func (s *stubRuleRepo) BumpStats(ctx context.Context, id string, delta domain.RuleStatsDelta) error {
	s.bumpedRules = append(s.bumpedRules, id)
	return nil
}

type stubCouponRepo struct {
	coupon      *domain.Coupon
	getCalls    int
	listCalls   int
	redemptions int
}

func (s *stubCouponRepo) GetByCode(ctx context.Context, code string) (*domain.Coupon, error) {
	s.getCalls++
	return s.coupon, nil
}

func (s *stubCouponRepo) ListAutoApply(ctx context.Context) ([]domain.Coupon, error) {
	s.listCalls++
	return []domain.Coupon{*s.coupon}, nil
}

func (s *stubCouponRepo) RecordRedemption(ctx context.Context, r *domain.Redemption) error {
	s.redemptions++
	return nil
}

func (s *stubCouponRepo) MarkReleased(ctx context.Context, code, orderID string) error {
	return nil
}

func setupTestRedis(t *testing.T) (*goredis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return client, mr
}

func cacheTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestRuleRepository_ListActive_ServesFromCache(t *testing.T) {
	client, _ := setupTestRedis(t)
	inner := &stubRuleRepo{rules: []domain.PriceRule{{ID: "rule-1", Name: "ten off", Active: true}}}
	repo := NewRuleRepository(inner, client, 5*time.Second, cacheTestLogger())

	first, err := repo.ListActive(context.Background(), time.Now().UTC())
	require.NoError(t, err)
	second, err := repo.ListActive(context.Background(), time.Now().UTC())
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, inner.listCalls)
}

func TestRuleRepository_ListActive_RefetchesAfterTTL(t *testing.T) {
	client, mr := setupTestRedis(t)
	inner := &stubRuleRepo{rules: []domain.PriceRule{{ID: "rule-1", Active: true}}}
	repo := NewRuleRepository(inner, client, 5*time.Second, cacheTestLogger())

	_, err := repo.ListActive(context.Background(), time.Now().UTC())
	require.NoError(t, err)

	mr.FastForward(6 * time.Second)

	_, err = repo.ListActive(context.Background(), time.Now().UTC())
	require.NoError(t, err)
	assert.Equal(t, 2, inner.listCalls)
}

func TestRuleRepository_ListActive_CorruptEntryFallsThrough(t *testing.T) {
	client, mr := setupTestRedis(t)
	inner := &stubRuleRepo{rules: []domain.PriceRule{{ID: "rule-1", Active: true}}}
	repo := NewRuleRepository(inner, client, 5*time.Second, cacheTestLogger())

	require.NoError(t, mr.Set(activeRulesKey, "{not json"))

	rules, err := repo.ListActive(context.Background(), time.Now().UTC())
	require.NoError(t, err)
	assert.Len(t, rules, 1)
	assert.Equal(t, 1, inner.listCalls)
}

func TestRuleRepository_BumpStats_PassesThrough(t *testing.T) {
	client, _ := setupTestRedis(t)
	inner := &stubRuleRepo{}
	repo := NewRuleRepository(inner, client, 5*time.Second, cacheTestLogger())

	require.NoError(t, repo.BumpStats(context.Background(), "rule-1", domain.RuleStatsDelta{AppliedCount: 1}))
	assert.Equal(t, []string{"rule-1"}, inner.bumpedRules)
}

func TestCouponRepository_GetByCode_ServesFromCache(t *testing.T) {
	client, _ := setupTestRedis(t)
	inner := &stubCouponRepo{coupon: &domain.Coupon{Code: "SUMMER2024", Status: domain.CouponStatusActive}}
	repo := NewCouponRepository(inner, client, 5*time.Second, cacheTestLogger())

	first, err := repo.GetByCode(context.Background(), "SUMMER2024")
	require.NoError(t, err)
	second, err := repo.GetByCode(context.Background(), "SUMMER2024")
	require.NoError(t, err)

	assert.Equal(t, first.Code, second.Code)
	assert.Equal(t, 1, inner.getCalls)
}

func TestCouponRepository_RecordRedemption_InvalidatesCoupon(t *testing.T) {
	client, _ := setupTestRedis(t)
	inner := &stubCouponRepo{coupon: &domain.Coupon{Code: "SUMMER2024", Status: domain.CouponStatusActive}}
	repo := NewCouponRepository(inner, client, 5*time.Second, cacheTestLogger())

	_, err := repo.GetByCode(context.Background(), "SUMMER2024")
	require.NoError(t, err)

	err = repo.RecordRedemption(context.Background(), &domain.Redemption{Code: "SUMMER2024"})
	require.NoError(t, err)
	assert.Equal(t, 1, inner.redemptions)

	// The cached entry is gone, so the next read goes to the source again.
	_, err = repo.GetByCode(context.Background(), "SUMMER2024")
	require.NoError(t, err)
	assert.Equal(t, 2, inner.getCalls)
}

func TestCouponRepository_ListAutoApply_ServesFromCache(t *testing.T) {
	client, _ := setupTestRedis(t)
	inner := &stubCouponRepo{coupon: &domain.Coupon{Code: "WELCOME", Visibility: domain.CouponVisibilityPublic}}
	repo := NewCouponRepository(inner, client, 5*time.Second, cacheTestLogger())

	_, err := repo.ListAutoApply(context.Background())
	require.NoError(t, err)
	_, err = repo.ListAutoApply(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, inner.listCalls)
}
