package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/mpro775/tagdod-promo-engine/internal/domain"
	"github.com/mpro775/tagdod-promo-engine/internal/engine"
	"github.com/mpro775/tagdod-promo-engine/internal/repository"
	apperrors "github.com/mpro775/tagdod-promo-engine/pkg/errors"
)

// PricingService evaluates price rules and coupons against carts.
type PricingService struct {
	rules      repository.RuleRepository
	coupons    repository.CouponRepository
	usage      repository.UsageCounter
	taxRateBps int64
	logger     *slog.Logger
}

// NewPricingService creates a new pricing service. taxRateBps is the flat tax
// rate in basis points applied to the post-discount subtotal.
func NewPricingService(
	rules repository.RuleRepository,
	coupons repository.CouponRepository,
	usage repository.UsageCounter,
	taxRateBps int64,
	logger *slog.Logger,
) *PricingService {
	return &PricingService{
		rules:      rules,
		coupons:    coupons,
		usage:      usage,
		taxRateBps: taxRateBps,
		logger:     logger,
	}
}

// QuoteInput holds the parameters for a cart quote.
type QuoteInput struct {
	Lines        []domain.CartLine
	UserID       string
	AccountType  string
	Currency     string
	CouponCode   string
	ShippingCost int64
}

// Quote is the full pricing evaluation result for a cart.
type Quote struct {
	Lines        []domain.EffectivePriceResult  `json:"lines"`
	CouponResult *domain.CouponValidationResult `json:"coupon_result,omitempty"`
	AutoApplied  []string                       `json:"auto_applied,omitempty"`
	Breakdown    domain.DiscountBreakdown       `json:"breakdown"`
	Totals       domain.OrderTotals             `json:"totals"`
}

// PriceLineInput holds the parameters for a single-line evaluation.
type PriceLineInput struct {
	Line        domain.CartLine
	AccountType string
	Currency    string
}

// Quote evaluates the active rule set and the given coupon code against the
// cart and returns the stacked totals. Rule telemetry is bumped best-effort;
// a telemetry failure never fails the quote.
func (s *PricingService) Quote(ctx context.Context, input *QuoteInput) (*Quote, error) {
	if len(input.Lines) == 0 {
		return nil, apperrors.InvalidInput("cart must contain at least one line")
	}
	for i, l := range input.Lines {
		if l.UnitPrice < 0 {
			return nil, apperrors.InvalidInput(fmt.Sprintf("line %d: unit price must not be negative", i))
		}
		if l.Quantity <= 0 {
			return nil, apperrors.InvalidInput(fmt.Sprintf("line %d: quantity must be positive", i))
		}
	}

	now := time.Now().UTC()

	rules, err := s.listRules(ctx, now)
	if err != nil {
		return nil, err
	}

	priced := make([]engine.PricedLine, len(input.Lines))
	results := make([]domain.EffectivePriceResult, len(input.Lines))
	applied := make(map[string]domain.RuleStatsDelta)
	for i, line := range input.Lines {
		evalCtx := domain.EvalContext{
			VariantID:   line.VariantID,
			ProductID:   line.ProductID,
			CategoryID:  line.CategoryID,
			BrandID:     line.BrandID,
			Currency:    input.Currency,
			Qty:         line.Quantity,
			AccountType: input.AccountType,
			Now:         now,
		}
		selected := engine.SelectRule(engine.MatchRules(rules, evalCtx))
		result := engine.ApplyEffects(selected, line.UnitPrice)

		priced[i] = engine.PricedLine{Line: line, Result: result}
		results[i] = result

		if selected != nil {
			rulesApplied.Inc()
			delta := applied[selected.ID]
			delta.Views++
			delta.AppliedCount++
			delta.Revenue += result.EffectivePrice * int64(line.Quantity)
			delta.Savings += result.Savings * int64(line.Quantity)
			applied[selected.ID] = delta
		}
	}

	quote := &Quote{Lines: results}

	var explicit *domain.Coupon
	if input.CouponCode != "" {
		coupon, result, err := s.validateCode(ctx, input.CouponCode, input.UserID, input.Lines, now)
		if err != nil {
			return nil, err
		}
		quote.CouponResult = &result
		if result.Valid {
			explicit = coupon
		}
	}

	auto, autoApplied, err := s.autoApplyCoupons(ctx, explicit, input.UserID, input.Lines, now)
	if err != nil {
		return nil, err
	}
	quote.AutoApplied = autoApplied

	quote.Breakdown = engine.StackDiscounts(engine.StackInput{
		Lines:        priced,
		Explicit:     explicit,
		Auto:         auto,
		ShippingCost: input.ShippingCost,
	})
	quote.Totals = engine.AggregateTotals(domain.Subtotal(input.Lines), quote.Breakdown, input.ShippingCost, s.taxRateBps)

	s.bumpStats(ctx, applied)
	quotesTotal.Inc()

	return quote, nil
}

// PriceLine evaluates the active rule set against a single line and returns
// its effective price. No coupons, no telemetry.
func (s *PricingService) PriceLine(ctx context.Context, input *PriceLineInput) (*domain.EffectivePriceResult, error) {
	if input.Line.UnitPrice < 0 {
		return nil, apperrors.InvalidInput("unit price must not be negative")
	}
	if input.Line.Quantity <= 0 {
		input.Line.Quantity = 1
	}

	now := time.Now().UTC()
	rules, err := s.listRules(ctx, now)
	if err != nil {
		return nil, err
	}

	evalCtx := domain.EvalContext{
		VariantID:   input.Line.VariantID,
		ProductID:   input.Line.ProductID,
		CategoryID:  input.Line.CategoryID,
		BrandID:     input.Line.BrandID,
		Currency:    input.Currency,
		Qty:         input.Line.Quantity,
		AccountType: input.AccountType,
		Now:         now,
	}
	selected := engine.SelectRule(engine.MatchRules(rules, evalCtx))
	result := engine.ApplyEffects(selected, input.Line.UnitPrice)
	return &result, nil
}

// listRules fetches the active rule set, retrying once on a transient storage
// failure before reporting the engine unavailable.
func (s *PricingService) listRules(ctx context.Context, now time.Time) ([]domain.PriceRule, error) {
	rules, err := s.rules.ListActive(ctx, now)
	if err != nil {
		s.logger.WarnContext(ctx, "rule listing failed, retrying",
			slog.String("error", err.Error()),
		)
		rules, err = s.rules.ListActive(ctx, now)
		if err != nil {
			return nil, apperrors.Unavailable("rule storage unavailable", err)
		}
	}
	return rules, nil
}

// validateCode fetches and validates an explicit coupon code. An unknown code
// is a NOT_FOUND validation result, not an error.
func (s *PricingService) validateCode(ctx context.Context, code, userID string, lines []domain.CartLine, now time.Time) (*domain.Coupon, domain.CouponValidationResult, error) {
	normalized := strings.ToUpper(strings.TrimSpace(code))

	coupon, err := s.coupons.GetByCode(ctx, normalized)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			couponValidations.WithLabelValues(domain.ReasonNotFound).Inc()
			return nil, domain.CouponValidationResult{Valid: false, Reason: domain.ReasonNotFound}, nil
		}
		return nil, domain.CouponValidationResult{}, apperrors.Unavailable("coupon storage unavailable", err)
	}

	userCount := 0
	if userID != "" {
		userCount, err = s.usage.UserCount(ctx, repository.SubjectCoupon, normalized, userID)
		if err != nil {
			return nil, domain.CouponValidationResult{}, apperrors.Unavailable("usage storage unavailable", err)
		}
	}

	result := engine.ValidateCoupon(coupon, engine.CouponContext{
		Now:                 now,
		Subtotal:            domain.Subtotal(lines),
		Lines:               lines,
		UserRedemptionCount: userCount,
	})
	couponValidations.WithLabelValues(validationOutcome(result.Reason)).Inc()
	return coupon, result, nil
}

// autoApplyCoupons validates every public coupon against the cart and returns
// the ones that pass, skipping the explicit coupon's code. Auto-apply is
// advisory pricing, so a storage failure here degrades to no auto coupons
// instead of failing the quote.
func (s *PricingService) autoApplyCoupons(ctx context.Context, explicit *domain.Coupon, userID string, lines []domain.CartLine, now time.Time) ([]domain.Coupon, []string, error) {
	candidates, err := s.coupons.ListAutoApply(ctx)
	if err != nil {
		s.logger.WarnContext(ctx, "auto-apply coupon listing failed",
			slog.String("error", err.Error()),
		)
		return nil, nil, nil
	}

	var (
		auto  []domain.Coupon
		codes []string
	)
	for i := range candidates {
		c := &candidates[i]
		if explicit != nil && c.Code == explicit.Code {
			continue
		}

		userCount := 0
		if userID != "" {
			userCount, err = s.usage.UserCount(ctx, repository.SubjectCoupon, c.Code, userID)
			if err != nil {
				return nil, nil, apperrors.Unavailable("usage storage unavailable", err)
			}
		}

		result := engine.ValidateCoupon(c, engine.CouponContext{
			Now:                 now,
			Subtotal:            domain.Subtotal(lines),
			Lines:               lines,
			UserRedemptionCount: userCount,
		})
		if result.Valid {
			auto = append(auto, *c)
			codes = append(codes, c.Code)
		}
	}
	return auto, codes, nil
}

// bumpStats applies telemetry deltas for the rules applied in a quote.
// Failures are logged, never surfaced.
func (s *PricingService) bumpStats(ctx context.Context, applied map[string]domain.RuleStatsDelta) {
	for id, delta := range applied {
		if err := s.rules.BumpStats(ctx, id, delta); err != nil {
			s.logger.ErrorContext(ctx, "failed to bump rule stats",
				slog.String("rule_id", id),
				slog.String("error", err.Error()),
			)
		}
	}
}
