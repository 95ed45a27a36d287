package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mpro775/tagdod-promo-engine/internal/domain"
)

func pricedLine(unitPrice, effective int64, qty int) PricedLine {
	return PricedLine{
		Line: domain.CartLine{VariantID: "v", UnitPrice: unitPrice, Quantity: qty},
		Result: domain.EffectivePriceResult{
			OriginalPrice:  unitPrice,
			EffectivePrice: effective,
			Savings:        unitPrice - effective,
		},
	}
}

func TestStackDiscounts_ItemsOnly(t *testing.T) {
	breakdown := StackDiscounts(StackInput{
		Lines: []PricedLine{
			pricedLine(10000, 8000, 2), // 2000 off per unit, twice
			pricedLine(500, 500, 1),    // no rule applied
		},
	})

	assert.Equal(t, int64(4000), breakdown.ItemsDiscount)
	assert.Equal(t, int64(0), breakdown.CouponDiscount)
	assert.Equal(t, int64(0), breakdown.AutoDiscountsTotal)
	assert.Equal(t, int64(0), breakdown.ShippingDiscount)
}

func TestStackDiscounts_CouponComputedOnPostItemSubtotal(t *testing.T) {
	coupon := activeCoupon("TEN")
	coupon.DiscountValue = 1000 // 10%

	breakdown := StackDiscounts(StackInput{
		Lines:    []PricedLine{pricedLine(10000, 8000, 1)},
		Explicit: &coupon,
	})

	// 10% of the post-item subtotal 8000, not of 10000.
	assert.Equal(t, int64(2000), breakdown.ItemsDiscount)
	assert.Equal(t, int64(800), breakdown.CouponDiscount)
}

func TestStackDiscounts_AutoSkippedWhenScopeOverlaps(t *testing.T) {
	explicit := activeCoupon("EXPLICIT")
	explicit.Type = domain.CouponTypeFixedAmount
	explicit.DiscountValue = 500

	overlapping := activeCoupon("AUTO1")
	overlapping.Type = domain.CouponTypeFixedAmount
	overlapping.DiscountValue = 300

	breakdown := StackDiscounts(StackInput{
		Lines:    []PricedLine{pricedLine(5000, 5000, 1)},
		Explicit: &explicit,
		Auto:     []domain.Coupon{overlapping},
	})

	// Both coupons cover all products, so the auto coupon's scope overlaps
	// the explicit one and is skipped.
	assert.Equal(t, int64(500), breakdown.CouponDiscount)
	assert.Equal(t, int64(0), breakdown.AutoDiscountsTotal)
}

func TestStackDiscounts_AutoStacksOnDisjointScope(t *testing.T) {
	explicit := activeCoupon("BOOKS")
	explicit.Type = domain.CouponTypeFixedAmount
	explicit.DiscountValue = 500
	explicit.AppliesTo = domain.AppliesToSpecificCategories
	explicit.ApplicableIDs = []string{"books"}

	auto := activeCoupon("TOYS")
	auto.Type = domain.CouponTypeFixedAmount
	auto.DiscountValue = 300
	auto.AppliesTo = domain.AppliesToSpecificCategories
	auto.ApplicableIDs = []string{"toys"}

	lines := []PricedLine{
		{
			Line:   domain.CartLine{CategoryID: "books", UnitPrice: 3000, Quantity: 1},
			Result: domain.EffectivePriceResult{OriginalPrice: 3000, EffectivePrice: 3000},
		},
		{
			Line:   domain.CartLine{CategoryID: "toys", UnitPrice: 2000, Quantity: 1},
			Result: domain.EffectivePriceResult{OriginalPrice: 2000, EffectivePrice: 2000},
		},
	}

	breakdown := StackDiscounts(StackInput{Lines: lines, Explicit: &explicit, Auto: []domain.Coupon{auto}})
	assert.Equal(t, int64(500), breakdown.CouponDiscount)
	assert.Equal(t, int64(300), breakdown.AutoDiscountsTotal)
}

func TestStackDiscounts_CombinedCouponsNeverExceedPostItemSubtotal(t *testing.T) {
	explicit := activeCoupon("BIG")
	explicit.Type = domain.CouponTypeFixedAmount
	explicit.DiscountValue = 900
	explicit.AppliesTo = domain.AppliesToSpecificCategories
	explicit.ApplicableIDs = []string{"books"}

	auto := activeCoupon("HUGE")
	auto.Type = domain.CouponTypeFixedAmount
	auto.DiscountValue = 800
	auto.AppliesTo = domain.AppliesToSpecificCategories
	auto.ApplicableIDs = []string{"toys"}

	lines := []PricedLine{
		{
			Line:   domain.CartLine{CategoryID: "books", UnitPrice: 600, Quantity: 1},
			Result: domain.EffectivePriceResult{OriginalPrice: 600, EffectivePrice: 600},
		},
		{
			Line:   domain.CartLine{CategoryID: "toys", UnitPrice: 400, Quantity: 1},
			Result: domain.EffectivePriceResult{OriginalPrice: 400, EffectivePrice: 400},
		},
	}

	breakdown := StackDiscounts(StackInput{Lines: lines, Explicit: &explicit, Auto: []domain.Coupon{auto}})
	total := breakdown.CouponDiscount + breakdown.AutoDiscountsTotal
	assert.LessOrEqual(t, total, int64(1000))
	assert.GreaterOrEqual(t, breakdown.CouponDiscount, int64(0))
	assert.GreaterOrEqual(t, breakdown.AutoDiscountsTotal, int64(0))
}

func TestStackDiscounts_OversizedExplicitCouponClampedToPostItemSubtotal(t *testing.T) {
	explicit := activeCoupon("MEGA")
	explicit.Type = domain.CouponTypePercentage
	explicit.DiscountValue = 15000 // 150%
	explicit.AppliesTo = domain.AppliesToSpecificCategories
	explicit.ApplicableIDs = []string{"books"}

	auto := activeCoupon("TOYS")
	auto.Type = domain.CouponTypeFixedAmount
	auto.DiscountValue = 300
	auto.AppliesTo = domain.AppliesToSpecificCategories
	auto.ApplicableIDs = []string{"toys"}

	lines := []PricedLine{
		{
			Line:   domain.CartLine{CategoryID: "books", UnitPrice: 600, Quantity: 1},
			Result: domain.EffectivePriceResult{OriginalPrice: 600, EffectivePrice: 600},
		},
		{
			Line:   domain.CartLine{CategoryID: "toys", UnitPrice: 400, Quantity: 1},
			Result: domain.EffectivePriceResult{OriginalPrice: 400, EffectivePrice: 400},
		},
	}

	breakdown := StackDiscounts(StackInput{Lines: lines, Explicit: &explicit, Auto: []domain.Coupon{auto}})

	// The explicit discount is capped at the full post-item subtotal, leaving
	// nothing for the auto coupon to take.
	assert.Equal(t, int64(1000), breakdown.CouponDiscount)
	assert.Equal(t, int64(0), breakdown.AutoDiscountsTotal)
}

func TestStackDiscounts_FreeShippingCoupon(t *testing.T) {
	coupon := activeCoupon("SHIP")
	coupon.Type = domain.CouponTypeFreeShipping

	breakdown := StackDiscounts(StackInput{
		Lines:        []PricedLine{pricedLine(1000, 1000, 1)},
		Explicit:     &coupon,
		ShippingCost: 499,
	})

	assert.Equal(t, int64(0), breakdown.CouponDiscount)
	assert.Equal(t, int64(499), breakdown.ShippingDiscount)
}

func TestStackDiscounts_ShippingDiscountClampedToCost(t *testing.T) {
	a := activeCoupon("SHIP1")
	a.Type = domain.CouponTypeFreeShipping
	a.AppliesTo = domain.AppliesToSpecificCategories
	a.ApplicableIDs = []string{"books"}

	b := activeCoupon("SHIP2")
	b.Type = domain.CouponTypeFreeShipping
	b.AppliesTo = domain.AppliesToSpecificCategories
	b.ApplicableIDs = []string{"toys"}

	lines := []PricedLine{
		{
			Line:   domain.CartLine{CategoryID: "books", UnitPrice: 100, Quantity: 1},
			Result: domain.EffectivePriceResult{OriginalPrice: 100, EffectivePrice: 100},
		},
		{
			Line:   domain.CartLine{CategoryID: "toys", UnitPrice: 100, Quantity: 1},
			Result: domain.EffectivePriceResult{OriginalPrice: 100, EffectivePrice: 100},
		},
	}

	breakdown := StackDiscounts(StackInput{Lines: lines, Explicit: &a, Auto: []domain.Coupon{b}, ShippingCost: 500})
	assert.Equal(t, int64(500), breakdown.ShippingDiscount)
}

func TestAggregateTotals(t *testing.T) {
	totals := AggregateTotals(10000, domain.DiscountBreakdown{
		ItemsDiscount:  2000,
		CouponDiscount: 800,
	}, 500, 0)

	assert.Equal(t, int64(10000), totals.Subtotal)
	assert.Equal(t, int64(2000), totals.ItemsDiscount)
	assert.Equal(t, int64(800), totals.CouponDiscount)
	assert.Equal(t, int64(500), totals.ShippingCost)
	assert.Equal(t, int64(0), totals.Tax)
	assert.Equal(t, int64(7700), totals.Total)
}

func TestAggregateTotals_TaxOnPostDiscountSubtotal(t *testing.T) {
	// 10% tax on 8000, not on 10000.
	totals := AggregateTotals(10000, domain.DiscountBreakdown{ItemsDiscount: 2000}, 0, 1000)
	assert.Equal(t, int64(800), totals.Tax)
	assert.Equal(t, int64(8800), totals.Total)
}

func TestAggregateTotals_NeverNegative(t *testing.T) {
	totals := AggregateTotals(1000, domain.DiscountBreakdown{
		ItemsDiscount:  800,
		CouponDiscount: 500,
	}, 0, 0)

	assert.Equal(t, int64(0), totals.Total)
}

func TestAggregateTotals_FreeShippingReducesTotal(t *testing.T) {
	totals := AggregateTotals(5000, domain.DiscountBreakdown{
		ShippingDiscount: 499,
	}, 499, 0)

	assert.Equal(t, int64(5000), totals.Total)
	assert.Equal(t, int64(499), totals.ShippingDiscount)
}
