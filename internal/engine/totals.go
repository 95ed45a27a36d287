package engine

import (
	"github.com/mpro775/tagdod-promo-engine/internal/domain"
)

// AggregateTotals folds all discounts, shipping, and tax into the final
// totals. Tax applies to the post-discount subtotal at the given flat rate in
// basis points. All amounts are integer minor units, so intermediate sums are
// exact; rounding happens only where percentages are applied.
func AggregateTotals(subtotal int64, d domain.DiscountBreakdown, shippingCost, taxRateBps int64) domain.OrderTotals {
	taxable := subtotal - d.ItemsDiscount - d.CouponDiscount - d.AutoDiscountsTotal
	if taxable < 0 {
		taxable = 0
	}

	tax := basisPointsOf(taxable, taxRateBps)

	total := taxable + shippingCost - d.ShippingDiscount + tax
	if total < 0 {
		total = 0
	}

	return domain.OrderTotals{
		Subtotal:           subtotal,
		ItemsDiscount:      d.ItemsDiscount,
		CouponDiscount:     d.CouponDiscount,
		AutoDiscountsTotal: d.AutoDiscountsTotal,
		ShippingCost:       shippingCost,
		ShippingDiscount:   d.ShippingDiscount,
		Tax:                tax,
		Total:              total,
	}
}
