package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mpro775/tagdod-promo-engine/internal/domain"
	"github.com/mpro775/tagdod-promo-engine/internal/engine"
	"github.com/mpro775/tagdod-promo-engine/internal/event"
	"github.com/mpro775/tagdod-promo-engine/internal/repository"
	apperrors "github.com/mpro775/tagdod-promo-engine/pkg/errors"
)

// CouponService validates, redeems, and releases coupon codes.
type CouponService struct {
	coupons  repository.CouponRepository
	rules    repository.RuleRepository
	usage    repository.UsageCounter
	producer *event.Producer
	logger   *slog.Logger
}

// NewCouponService creates a new coupon service.
func NewCouponService(
	coupons repository.CouponRepository,
	rules repository.RuleRepository,
	usage repository.UsageCounter,
	producer *event.Producer,
	logger *slog.Logger,
) *CouponService {
	return &CouponService{
		coupons:  coupons,
		rules:    rules,
		usage:    usage,
		producer: producer,
		logger:   logger,
	}
}

// ValidateInput holds the parameters for a coupon validation.
type ValidateInput struct {
	Code   string
	UserID string
	Lines  []domain.CartLine
}

// RedeemInput holds the parameters for a coupon redemption at order
// placement. AppliedRuleIDs are the limited price rules whose quota the order
// also consumes.
type RedeemInput struct {
	Code           string
	UserID         string
	OrderID        string
	Lines          []domain.CartLine
	AppliedRuleIDs []string
	IdempotencyKey string
}

// ReleaseInput holds the parameters for returning a redemption when its order
// is cancelled.
type ReleaseInput struct {
	Code           string
	UserID         string
	OrderID        string
	AppliedRuleIDs []string
}

// Validate checks a coupon code against a cart without consuming quota.
// Business-rule failures come back inside the result, never as errors.
func (s *CouponService) Validate(ctx context.Context, input *ValidateInput) (*domain.CouponValidationResult, error) {
	code := strings.ToUpper(strings.TrimSpace(input.Code))
	if code == "" {
		return nil, apperrors.InvalidInput("coupon code is required")
	}

	coupon, err := s.getCoupon(ctx, code)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			couponValidations.WithLabelValues(domain.ReasonNotFound).Inc()
			return &domain.CouponValidationResult{Valid: false, Reason: domain.ReasonNotFound}, nil
		}
		return nil, err
	}

	userCount := 0
	if input.UserID != "" {
		userCount, err = s.usage.UserCount(ctx, repository.SubjectCoupon, code, input.UserID)
		if err != nil {
			return nil, apperrors.Unavailable("usage storage unavailable", err)
		}
	}

	result := engine.ValidateCoupon(coupon, engine.CouponContext{
		Now:                 time.Now().UTC(),
		Subtotal:            domain.Subtotal(input.Lines),
		Lines:               input.Lines,
		UserRedemptionCount: userCount,
	})
	couponValidations.WithLabelValues(validationOutcome(result.Reason)).Inc()
	return &result, nil
}

// Redeem validates the coupon, then atomically consumes one unit of its
// global and per-user quota plus the quota of every applied limited rule.
// Partial reservations are compensated: if any claim fails, everything
// claimed before it is released. Retried calls with the same idempotency key
// do not double-record the audit row.
func (s *CouponService) Redeem(ctx context.Context, input *RedeemInput) (*domain.CouponValidationResult, error) {
	code := strings.ToUpper(strings.TrimSpace(input.Code))
	if code == "" {
		return nil, apperrors.InvalidInput("coupon code is required")
	}
	if input.OrderID == "" {
		return nil, apperrors.InvalidInput("order id is required")
	}

	result, err := s.Validate(ctx, &ValidateInput{Code: code, UserID: input.UserID, Lines: input.Lines})
	if err != nil {
		return nil, err
	}
	if !result.Valid {
		return result, nil
	}

	coupon, err := s.getCoupon(ctx, code)
	if err != nil {
		return nil, err
	}

	couponKey := repository.UsageKey{
		Subject:      repository.SubjectCoupon,
		Ref:          code,
		UserID:       input.UserID,
		GlobalLimit:  coupon.UsageLimit,
		PerUserLimit: coupon.UsageLimitPerUser,
	}

	outcome, err := s.tryReserve(ctx, couponKey)
	if err != nil {
		return nil, err
	}
	if outcome != domain.ReserveOK {
		return reserveRejection(outcome), nil
	}

	// Claim the applied limited rules' quotas; on failure, unwind everything
	// claimed so far including the coupon itself.
	claimed := []repository.UsageKey{couponKey}
	for _, ruleID := range input.AppliedRuleIDs {
		key, err := s.ruleUsageKey(ctx, ruleID, input.UserID)
		if err != nil {
			s.releaseAll(ctx, claimed)
			return nil, err
		}
		if key == nil {
			continue // unlimited rule, nothing to claim
		}

		outcome, err := s.tryReserve(ctx, *key)
		if err != nil {
			s.releaseAll(ctx, claimed)
			return nil, err
		}
		if outcome != domain.ReserveOK {
			s.releaseAll(ctx, claimed)
			return reserveRejection(outcome), nil
		}
		claimed = append(claimed, *key)
	}

	red := &domain.Redemption{
		ID:             uuid.New().String(),
		Code:           code,
		UserID:         input.UserID,
		OrderID:        input.OrderID,
		DiscountAmount: result.DiscountAmount,
		IdempotencyKey: input.IdempotencyKey,
		CreatedAt:      time.Now().UTC(),
	}
	if err := s.coupons.RecordRedemption(ctx, red); err != nil {
		s.logger.ErrorContext(ctx, "failed to record redemption",
			slog.String("code", code),
			slog.String("order_id", input.OrderID),
			slog.String("error", err.Error()),
		)
		// The quota claim stands; the audit row is best-effort.
	}

	if err := s.producer.PublishCouponRedeemed(ctx, red); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish coupon.redeemed event",
			slog.String("code", code),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "coupon redeemed",
		slog.String("code", code),
		slog.String("user_id", input.UserID),
		slog.String("order_id", input.OrderID),
		slog.Int64("discount_amount", red.DiscountAmount),
	)

	return result, nil
}

// Release returns the quota a cancelled order consumed, symmetric with
// Redeem. Counters never go below zero, so releasing more than was reserved
// is harmless.
func (s *CouponService) Release(ctx context.Context, input *ReleaseInput) error {
	code := strings.ToUpper(strings.TrimSpace(input.Code))
	if code == "" {
		return apperrors.InvalidInput("coupon code is required")
	}

	if err := s.usage.Release(ctx, repository.UsageKey{
		Subject: repository.SubjectCoupon,
		Ref:     code,
		UserID:  input.UserID,
	}); err != nil {
		return apperrors.Unavailable("usage storage unavailable", err)
	}

	for _, ruleID := range input.AppliedRuleIDs {
		if err := s.usage.Release(ctx, repository.UsageKey{
			Subject: repository.SubjectRule,
			Ref:     ruleID,
			UserID:  input.UserID,
		}); err != nil {
			s.logger.ErrorContext(ctx, "failed to release rule usage",
				slog.String("rule_id", ruleID),
				slog.String("error", err.Error()),
			)
		}
	}

	if input.OrderID != "" {
		if err := s.coupons.MarkReleased(ctx, code, input.OrderID); err != nil {
			s.logger.ErrorContext(ctx, "failed to mark redemption released",
				slog.String("code", code),
				slog.String("order_id", input.OrderID),
				slog.String("error", err.Error()),
			)
		}
	}

	if err := s.producer.PublishCouponReleased(ctx, code, input.UserID, input.OrderID); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish coupon.released event",
			slog.String("code", code),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "coupon released",
		slog.String("code", code),
		slog.String("order_id", input.OrderID),
	)

	return nil
}

// getCoupon fetches a coupon, retrying once on a transient storage failure.
func (s *CouponService) getCoupon(ctx context.Context, code string) (*domain.Coupon, error) {
	coupon, err := s.coupons.GetByCode(ctx, code)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, err
		}
		s.logger.WarnContext(ctx, "coupon lookup failed, retrying",
			slog.String("code", code),
			slog.String("error", err.Error()),
		)
		coupon, err = s.coupons.GetByCode(ctx, code)
		if err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				return nil, err
			}
			return nil, apperrors.Unavailable("coupon storage unavailable", err)
		}
	}
	return coupon, nil
}

// tryReserve claims one quota unit, retrying once on a transient storage
// failure. Limit rejections are outcomes, not errors, and are never retried.
func (s *CouponService) tryReserve(ctx context.Context, key repository.UsageKey) (domain.ReserveOutcome, error) {
	outcome, err := s.usage.TryReserve(ctx, key)
	if err != nil {
		s.logger.WarnContext(ctx, "usage reservation failed, retrying",
			slog.String("subject", string(key.Subject)),
			slog.String("ref", key.Ref),
			slog.String("error", err.Error()),
		)
		outcome, err = s.usage.TryReserve(ctx, key)
		if err != nil {
			return 0, apperrors.Unavailable("usage storage unavailable", err)
		}
	}
	usageReservations.WithLabelValues(string(key.Subject), reserveLabel(outcome)).Inc()
	return outcome, nil
}

// ruleUsageKey builds the usage key for an applied rule, or nil when the rule
// carries no usage limits at all.
func (s *CouponService) ruleUsageKey(ctx context.Context, ruleID, userID string) (*repository.UsageKey, error) {
	rule, err := s.rules.GetByID(ctx, ruleID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.InvalidInput("unknown rule id " + ruleID)
		}
		return nil, apperrors.Unavailable("rule storage unavailable", err)
	}
	if rule.MaxUses == 0 && rule.MaxUsesPerUser == 0 {
		return nil, nil
	}
	return &repository.UsageKey{
		Subject:      repository.SubjectRule,
		Ref:          ruleID,
		UserID:       userID,
		GlobalLimit:  rule.MaxUses,
		PerUserLimit: rule.MaxUsesPerUser,
	}, nil
}

func (s *CouponService) releaseAll(ctx context.Context, keys []repository.UsageKey) {
	for _, key := range keys {
		if err := s.usage.Release(ctx, key); err != nil {
			s.logger.ErrorContext(ctx, "failed to release usage during unwind",
				slog.String("subject", string(key.Subject)),
				slog.String("ref", key.Ref),
				slog.String("error", err.Error()),
			)
		}
	}
}

func reserveRejection(outcome domain.ReserveOutcome) *domain.CouponValidationResult {
	reason := domain.ReasonLimitExceeded
	if outcome == domain.ReserveUserLimitExceeded {
		reason = domain.ReasonUserLimitExceeded
	}
	return &domain.CouponValidationResult{Valid: false, Reason: reason}
}

func reserveLabel(outcome domain.ReserveOutcome) string {
	switch outcome {
	case domain.ReserveOK:
		return "ok"
	case domain.ReserveLimitExceeded:
		return "limit_exceeded"
	case domain.ReserveUserLimitExceeded:
		return "user_limit_exceeded"
	default:
		return "unknown"
	}
}
