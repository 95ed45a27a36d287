package domain

import (
	"time"
)

// PriceRule is a prioritized, time-windowed, condition-matched discount that
// applies automatically to matching cart lines. A rule with no conditions
// matches everything; each absent condition field is a wildcard.
type PriceRule struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Active   bool   `json:"active"`
	Priority int    `json:"priority"`

	// Either bound may be absent; an absent bound is open-ended.
	StartAt *time.Time `json:"start_at,omitempty"`
	EndAt   *time.Time `json:"end_at,omitempty"`

	Conditions RuleConditions `json:"conditions"`
	Effects    RuleEffects    `json:"effects"`

	MaxUses        int `json:"max_uses"`
	MaxUsesPerUser int `json:"max_uses_per_user"`
	CurrentUses    int `json:"current_uses"`

	Stats RuleStats `json:"stats"`

	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
}

// RuleConditions restricts which evaluation contexts a rule applies to.
// Empty slices and zero values are wildcards.
type RuleConditions struct {
	CategoryIDs  []string `json:"category_ids,omitempty"`
	ProductIDs   []string `json:"product_ids,omitempty"`
	VariantIDs   []string `json:"variant_ids,omitempty"`
	BrandIDs     []string `json:"brand_ids,omitempty"`
	Currencies   []string `json:"currencies,omitempty"`
	MinQty       int      `json:"min_qty,omitempty"`
	AccountTypes []string `json:"account_types,omitempty"`
}

// Specificity returns the number of non-wildcard condition fields. Used to
// break priority ties: a more specific rule wins.
func (c RuleConditions) Specificity() int {
	n := 0
	if len(c.CategoryIDs) > 0 {
		n++
	}
	if len(c.ProductIDs) > 0 {
		n++
	}
	if len(c.VariantIDs) > 0 {
		n++
	}
	if len(c.BrandIDs) > 0 {
		n++
	}
	if len(c.Currencies) > 0 {
		n++
	}
	if c.MinQty > 0 {
		n++
	}
	if len(c.AccountTypes) > 0 {
		n++
	}
	return n
}

// RuleEffects describes what a matching rule does to a price. A single rule
// may carry more than one pricing effect; precedence is
// special_price > percent_off > amount_off. Badge and GiftSKU are non-pricing
// metadata passed through unmodified.
type RuleEffects struct {
	SpecialPrice  *int64 `json:"special_price,omitempty"`
	PercentOffBps *int64 `json:"percent_off_bps,omitempty"`
	AmountOff     *int64 `json:"amount_off,omitempty"`
	Badge         string `json:"badge,omitempty"`
	GiftSKU       string `json:"gift_sku,omitempty"`
}

// RuleStats holds write-only telemetry counters for a rule.
type RuleStats struct {
	Views        int64 `json:"views"`
	AppliedCount int64 `json:"applied_count"`
	Revenue      int64 `json:"revenue"`
	Savings      int64 `json:"savings"`
}

// RuleStatsDelta is an increment applied to a rule's telemetry counters.
type RuleStatsDelta struct {
	Views        int64
	AppliedCount int64
	Revenue      int64
	Savings      int64
}

// InWindow reports whether now falls inside the rule's validity window.
// Four cases: no bounds set, only a start, only an end, or both.
func (r *PriceRule) InWindow(now time.Time) bool {
	switch {
	case r.StartAt == nil && r.EndAt == nil:
		return true
	case r.StartAt != nil && r.EndAt == nil:
		return !now.Before(*r.StartAt)
	case r.StartAt == nil && r.EndAt != nil:
		return !now.After(*r.EndAt)
	default:
		return !now.Before(*r.StartAt) && !now.After(*r.EndAt)
	}
}

// IsDeleted reports whether the rule is soft-deleted.
func (r *PriceRule) IsDeleted() bool {
	return r.DeletedAt != nil
}
