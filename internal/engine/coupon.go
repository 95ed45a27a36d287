package engine

import (
	"sort"
	"time"

	"github.com/mpro775/tagdod-promo-engine/internal/domain"
)

// CouponContext carries everything coupon validation needs besides the coupon
// document itself. Subtotal and Lines describe the cart being checked;
// UserRedemptionCount is the user's prior redemption count for this code.
type CouponContext struct {
	Now                 time.Time
	Subtotal            int64
	Lines               []domain.CartLine
	UserRedemptionCount int
}

// ValidateCoupon runs the ordered validation checks for a coupon against a
// cart and user context, short-circuiting on the first failure. Business-rule
// failures come back as a typed result, never an error. A nil or soft-deleted
// coupon yields NOT_FOUND.
func ValidateCoupon(c *domain.Coupon, in CouponContext) domain.CouponValidationResult {
	if c == nil || c.IsDeleted() {
		return rejected(domain.ReasonNotFound)
	}

	if c.Status != domain.CouponStatusActive {
		return rejected(domain.ReasonInactive)
	}

	if c.ValidFrom != nil && in.Now.Before(*c.ValidFrom) {
		return rejected(domain.ReasonNotYetValid)
	}
	if c.ValidUntil != nil && in.Now.After(*c.ValidUntil) {
		return rejected(domain.ReasonExpired)
	}

	if c.UsageLimit > 0 && c.UsedCount >= c.UsageLimit {
		return rejected(domain.ReasonLimitExceeded)
	}
	if c.UsageLimitPerUser > 0 && in.UserRedemptionCount >= c.UsageLimitPerUser {
		return rejected(domain.ReasonUserLimitExceeded)
	}

	switch c.AppliesTo {
	case domain.AppliesToSpecificProducts, domain.AppliesToSpecificCategories, domain.AppliesToSpecificBrands:
		if !anyLineApplies(c, in.Lines) {
			return rejected(domain.ReasonNotApplicable)
		}
	case domain.AppliesToMinimumOrderAmount:
		if in.Subtotal < c.MinimumOrderAmount {
			return rejected(domain.ReasonBelowMinimum)
		}
	}

	discount, _ := CouponDiscount(c, in.Subtotal, in.Lines, 0)
	return domain.CouponValidationResult{
		Valid:          true,
		DiscountType:   c.Type,
		DiscountAmount: discount,
	}
}

func rejected(reason string) domain.CouponValidationResult {
	return domain.CouponValidationResult{Valid: false, Reason: reason}
}

func anyLineApplies(c *domain.Coupon, lines []domain.CartLine) bool {
	for _, l := range lines {
		if c.AppliesToLine(l) {
			return true
		}
	}
	return false
}

// CouponDiscount computes the monetary discount a coupon grants against the
// given basis amount (the post-item-discount subtotal at stacking time, or
// the raw subtotal at validation time). The second return value is the
// shipping discount, non-zero only for free_shipping coupons.
//
// percentage: basis * value(bps) / 10000, capped at MaximumDiscountAmount.
// fixed_amount: min(value, basis).
// free_shipping: zero subtotal discount; the full shipping cost is discounted.
// buy_x_get_y: price of the cheapest GetYQuantity eligible units once
// BuyXQuantity eligible units are present in the cart.
func CouponDiscount(c *domain.Coupon, basis int64, lines []domain.CartLine, shippingCost int64) (discount, shippingDiscount int64) {
	switch c.Type {
	case domain.CouponTypePercentage:
		discount = basisPointsOf(basis, c.DiscountValue)
		if c.MaximumDiscountAmount > 0 && discount > c.MaximumDiscountAmount {
			discount = c.MaximumDiscountAmount
		}

	case domain.CouponTypeFixedAmount:
		discount = c.DiscountValue
		if discount > basis {
			discount = basis
		}

	case domain.CouponTypeFreeShipping:
		shippingDiscount = shippingCost

	case domain.CouponTypeBuyXGetY:
		discount = buyXGetYDiscount(c, lines)
		if discount > basis {
			discount = basis
		}
	}

	if discount < 0 {
		discount = 0
	}
	return discount, shippingDiscount
}

// buyXGetYDiscount expands eligible lines into per-unit prices, and once at
// least BuyXQuantity eligible units are in the cart, discounts the cheapest
// GetYQuantity units. When GetYProductID is set, only that product's units
// are candidates for the free units.
func buyXGetYDiscount(c *domain.Coupon, lines []domain.CartLine) int64 {
	if c.BuyXQuantity <= 0 || c.GetYQuantity <= 0 {
		return 0
	}

	var eligibleUnits int
	var candidates []int64
	for _, l := range lines {
		if !c.AppliesToLine(l) {
			continue
		}
		eligibleUnits += l.Quantity
		if c.GetYProductID != "" && l.ProductID != c.GetYProductID {
			continue
		}
		for i := 0; i < l.Quantity; i++ {
			candidates = append(candidates, l.UnitPrice)
		}
	}

	if eligibleUnits < c.BuyXQuantity || len(candidates) == 0 {
		return 0
	}

	sort.Slice(candidates, func(i, j int) bool { return candidates[i] < candidates[j] })

	n := c.GetYQuantity
	if n > len(candidates) {
		n = len(candidates)
	}
	var discount int64
	for _, p := range candidates[:n] {
		discount += p
	}
	return discount
}
