package service

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/mpro775/tagdod-promo-engine/internal/domain"
	"github.com/mpro775/tagdod-promo-engine/internal/event"
	"github.com/mpro775/tagdod-promo-engine/internal/repository"
	pkgkafka "github.com/mpro775/tagdod-promo-engine/pkg/kafka"
)

// --- Mock Repositories ---

type mockRuleRepository struct {
	mock.Mock
}

func (m *mockRuleRepository) ListActive(ctx context.Context, now time.Time) ([]domain.PriceRule, error) {
	args := m.Called(ctx, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.PriceRule), args.Error(1)
}

func (m *mockRuleRepository) GetByID(ctx context.Context, id string) (*domain.PriceRule, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PriceRule), args.Error(1)
}

func (m *mockRuleRepository) BumpStats(ctx context.Context, id string, delta domain.RuleStatsDelta) error {
	args := m.Called(ctx, id, delta)
	return args.Error(0)
}

type mockCouponRepository struct {
	mock.Mock
}

func (m *mockCouponRepository) GetByCode(ctx context.Context, code string) (*domain.Coupon, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Coupon), args.Error(1)
}

func (m *mockCouponRepository) ListAutoApply(ctx context.Context) ([]domain.Coupon, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Coupon), args.Error(1)
}

func (m *mockCouponRepository) RecordRedemption(ctx context.Context, r *domain.Redemption) error {
	args := m.Called(ctx, r)
	return args.Error(0)
}

func (m *mockCouponRepository) MarkReleased(ctx context.Context, code, orderID string) error {
	args := m.Called(ctx, code, orderID)
	return args.Error(0)
}

type mockUsageCounter struct {
	mock.Mock
}

func (m *mockUsageCounter) TryReserve(ctx context.Context, key repository.UsageKey) (domain.ReserveOutcome, error) {
	args := m.Called(ctx, key)
	return args.Get(0).(domain.ReserveOutcome), args.Error(1)
}

func (m *mockUsageCounter) Release(ctx context.Context, key repository.UsageKey) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func (m *mockUsageCounter) UserCount(ctx context.Context, subject repository.UsageSubject, ref, userID string) (int, error) {
	args := m.Called(ctx, subject, ref, userID)
	return args.Int(0), args.Error(1)
}

// --- Test Helpers ---

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

// newTestEventProducer returns a producer pointed at a broker that does not
// exist; publish failures are logged, never surfaced.
func newTestEventProducer(t *testing.T) *event.Producer {
	t.Helper()
	logger := newTestLogger()
	kafkaCfg := pkgkafka.DefaultProducerConfig([]string{"localhost:9092"})
	return event.NewProducer(pkgkafka.NewProducer(kafkaCfg, logger), logger)
}

func int64Ptr(v int64) *int64 {
	return &v
}
