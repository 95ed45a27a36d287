// Package engine implements the pure pricing and promotion computation:
// rule matching and selection, effect application, coupon validation,
// discount stacking, and order totals aggregation. Nothing in this package
// performs I/O or mutates shared state.
package engine

import (
	"github.com/mpro775/tagdod-promo-engine/internal/domain"
)

// MatchRules returns the subset of rules that are active, inside their
// validity window, not soft-deleted, and whose every specified condition
// matches the context. Unspecified condition fields are wildcards. An empty
// result is a normal outcome, not an error.
func MatchRules(rules []domain.PriceRule, evalCtx domain.EvalContext) []domain.PriceRule {
	var matched []domain.PriceRule
	for _, r := range rules {
		if ruleMatches(&r, evalCtx) {
			matched = append(matched, r)
		}
	}
	return matched
}

func ruleMatches(r *domain.PriceRule, evalCtx domain.EvalContext) bool {
	if !r.Active || r.IsDeleted() || !r.InWindow(evalCtx.Now) {
		return false
	}

	c := r.Conditions
	if len(c.VariantIDs) > 0 && !contains(c.VariantIDs, evalCtx.VariantID) {
		return false
	}
	if len(c.ProductIDs) > 0 && !contains(c.ProductIDs, evalCtx.ProductID) {
		return false
	}
	if len(c.CategoryIDs) > 0 && !contains(c.CategoryIDs, evalCtx.CategoryID) {
		return false
	}
	if len(c.BrandIDs) > 0 && !contains(c.BrandIDs, evalCtx.BrandID) {
		return false
	}
	if len(c.Currencies) > 0 && !contains(c.Currencies, evalCtx.Currency) {
		return false
	}
	if c.MinQty > 0 && evalCtx.Qty < c.MinQty {
		return false
	}
	if len(c.AccountTypes) > 0 && !contains(c.AccountTypes, evalCtx.AccountType) {
		return false
	}

	return true
}

func contains(xs []string, s string) bool {
	if s == "" {
		return false
	}
	for _, x := range xs {
		if x == s {
			return true
		}
	}
	return false
}
