package engine

import (
	"github.com/mpro775/tagdod-promo-engine/internal/domain"
)

// PricedLine pairs a cart line with its per-unit effective price result.
type PricedLine struct {
	Line   domain.CartLine
	Result domain.EffectivePriceResult
}

// StackInput is everything the stacker combines: per-line rule pricing, an
// optional already-validated explicit coupon, validated auto-applied coupons,
// and the shipping cost a free_shipping coupon would discount.
type StackInput struct {
	Lines        []PricedLine
	Explicit     *domain.Coupon
	Auto         []domain.Coupon
	ShippingCost int64
}

// StackDiscounts combines per-item rule discounts, the explicit coupon, and
// auto-applied coupons without double counting:
//
//   - the items discount is the sum of per-line rule savings;
//   - coupon discounts are computed against the post-item-discount subtotal;
//   - an auto coupon stacks only if its applicability scope does not overlap
//     an already-applied coupon on the same line items;
//   - the combined coupon discount never exceeds the post-item subtotal.
//
// Every output field is non-negative.
func StackDiscounts(in StackInput) domain.DiscountBreakdown {
	var breakdown domain.DiscountBreakdown

	var subtotal int64
	for _, pl := range in.Lines {
		subtotal += pl.Line.LineTotal()
		perUnit := pl.Result.OriginalPrice - pl.Result.EffectivePrice
		if perUnit > 0 {
			breakdown.ItemsDiscount += perUnit * int64(pl.Line.Quantity)
		}
	}

	postItemSubtotal := subtotal - breakdown.ItemsDiscount
	if postItemSubtotal < 0 {
		postItemSubtotal = 0
	}

	lines := make([]domain.CartLine, len(in.Lines))
	for i, pl := range in.Lines {
		lines[i] = pl.Line
	}

	// Line indexes already claimed by an applied coupon's scope.
	claimed := make(map[int]bool)

	if in.Explicit != nil {
		discount, shipping := CouponDiscount(in.Explicit, postItemSubtotal, lines, in.ShippingCost)
		if discount > postItemSubtotal {
			discount = postItemSubtotal
		}
		breakdown.CouponDiscount = discount
		breakdown.ShippingDiscount = shipping
		markScope(in.Explicit, lines, claimed)
	}

	remaining := postItemSubtotal - breakdown.CouponDiscount
	if remaining < 0 {
		remaining = 0
	}
	for i := range in.Auto {
		auto := &in.Auto[i]
		if overlapsScope(auto, lines, claimed) {
			continue
		}
		discount, shipping := CouponDiscount(auto, postItemSubtotal, lines, in.ShippingCost-breakdown.ShippingDiscount)
		if discount > remaining {
			discount = remaining
		}
		breakdown.AutoDiscountsTotal += discount
		breakdown.ShippingDiscount += shipping
		remaining -= discount
		markScope(auto, lines, claimed)
	}

	if breakdown.ShippingDiscount > in.ShippingCost {
		breakdown.ShippingDiscount = in.ShippingCost
	}

	return breakdown
}

func markScope(c *domain.Coupon, lines []domain.CartLine, claimed map[int]bool) {
	for i, l := range lines {
		if c.AppliesToLine(l) {
			claimed[i] = true
		}
	}
}

func overlapsScope(c *domain.Coupon, lines []domain.CartLine, claimed map[int]bool) bool {
	for i, l := range lines {
		if claimed[i] && c.AppliesToLine(l) {
			return true
		}
	}
	return false
}
