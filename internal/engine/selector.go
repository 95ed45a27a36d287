package engine

import (
	"sort"

	"github.com/mpro775/tagdod-promo-engine/internal/domain"
)

// SelectRule deterministically picks at most one rule from the matched set:
// highest priority first, then the most specific conditions, then the most
// recently created. Returns nil when the set is empty, in which case the
// original price stands.
func SelectRule(matched []domain.PriceRule) *domain.PriceRule {
	if len(matched) == 0 {
		return nil
	}

	ranked := make([]domain.PriceRule, len(matched))
	copy(ranked, matched)

	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := &ranked[i], &ranked[j]
		if a.Priority != b.Priority {
			return a.Priority > b.Priority
		}
		as, bs := a.Conditions.Specificity(), b.Conditions.Specificity()
		if as != bs {
			return as > bs
		}
		return a.CreatedAt.After(b.CreatedAt)
	})

	return &ranked[0]
}
