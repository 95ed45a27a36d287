package engine

import (
	"github.com/mpro775/tagdod-promo-engine/internal/domain"
)

// ApplyEffects resolves a rule's effect descriptor into a concrete price for
// the given original price. Precedence when a rule carries several pricing
// effects: special_price over percent_off over amount_off. The effective
// price is clamped to [0, originalPrice], so savings is never negative.
// A nil rule leaves the original price untouched.
func ApplyEffects(rule *domain.PriceRule, originalPrice int64) domain.EffectivePriceResult {
	result := domain.EffectivePriceResult{
		OriginalPrice:  originalPrice,
		EffectivePrice: originalPrice,
	}
	if rule == nil {
		return result
	}

	effective := originalPrice
	e := rule.Effects
	switch {
	case e.SpecialPrice != nil:
		effective = *e.SpecialPrice
	case e.PercentOffBps != nil:
		effective = originalPrice - basisPointsOf(originalPrice, *e.PercentOffBps)
	case e.AmountOff != nil:
		effective = originalPrice - *e.AmountOff
	}

	if effective < 0 {
		effective = 0
	}
	if effective > originalPrice {
		effective = originalPrice
	}

	result.EffectivePrice = effective
	result.AppliedRuleID = rule.ID
	result.Savings = originalPrice - effective
	result.Badge = e.Badge
	result.GiftSKU = e.GiftSKU
	return result
}

// basisPointsOf returns bps/10000 of amount, rounded half up. This is the
// single rounding point for every percentage computation in the engine.
func basisPointsOf(amount, bps int64) int64 {
	return (amount*bps + 5000) / 10000
}
