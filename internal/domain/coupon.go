package domain

import (
	"time"
)

// Coupon type constants.
const (
	CouponTypePercentage   = "percentage"
	CouponTypeFixedAmount  = "fixed_amount"
	CouponTypeFreeShipping = "free_shipping"
	CouponTypeBuyXGetY     = "buy_x_get_y"
)

// Coupon status constants.
const (
	CouponStatusActive   = "active"
	CouponStatusInactive = "inactive"
)

// Coupon visibility constants. Public coupons are auto-applied at quote time;
// private and hidden coupons require the user to submit the code.
const (
	CouponVisibilityPublic  = "public"
	CouponVisibilityPrivate = "private"
	CouponVisibilityHidden  = "hidden"
)

// Coupon applicability scope constants.
const (
	AppliesToAllProducts        = "all_products"
	AppliesToSpecificProducts   = "specific_products"
	AppliesToSpecificCategories = "specific_categories"
	AppliesToSpecificBrands     = "specific_brands"
	AppliesToMinimumOrderAmount = "minimum_order_amount"
)

// Coupon is a user-supplied or auto-applied code granting a discount, subject
// to global and per-user usage quotas and an applicability scope.
//
// DiscountValue is in minor units for fixed_amount and in basis points for
// percentage (2000 = 20%). All other amounts are minor units.
type Coupon struct {
	ID          string `json:"id"`
	Code        string `json:"code"`
	Description string `json:"description,omitempty"`
	Type        string `json:"type"`
	Status      string `json:"status"`
	Visibility  string `json:"visibility"`

	DiscountValue         int64 `json:"discount_value"`
	MinimumOrderAmount    int64 `json:"minimum_order_amount"`
	MaximumDiscountAmount int64 `json:"maximum_discount_amount"`

	UsageLimit        int `json:"usage_limit"`
	UsageLimitPerUser int `json:"usage_limit_per_user"`
	UsedCount         int `json:"used_count"`

	ValidFrom  *time.Time `json:"valid_from,omitempty"`
	ValidUntil *time.Time `json:"valid_until,omitempty"`

	AppliesTo     string   `json:"applies_to"`
	ApplicableIDs []string `json:"applicable_ids,omitempty"`

	BuyXQuantity  int    `json:"buy_x_quantity,omitempty"`
	GetYQuantity  int    `json:"get_y_quantity,omitempty"`
	GetYProductID string `json:"get_y_product_id,omitempty"`

	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
}

// ValidCouponTypes returns the set of valid coupon types.
func ValidCouponTypes() []string {
	return []string{
		CouponTypePercentage,
		CouponTypeFixedAmount,
		CouponTypeFreeShipping,
		CouponTypeBuyXGetY,
	}
}

// IsValidCouponType checks whether the given type string is a valid coupon type.
func IsValidCouponType(t string) bool {
	for _, v := range ValidCouponTypes() {
		if v == t {
			return true
		}
	}
	return false
}

// IsDeleted reports whether the coupon is soft-deleted.
func (c *Coupon) IsDeleted() bool {
	return c.DeletedAt != nil
}

// AppliesToLine reports whether the coupon's applicability scope covers the
// given cart line. all_products and minimum_order_amount scopes cover every
// line; the specific_* scopes require an ID-list intersection.
func (c *Coupon) AppliesToLine(line CartLine) bool {
	switch c.AppliesTo {
	case AppliesToSpecificProducts:
		return containsString(c.ApplicableIDs, line.ProductID)
	case AppliesToSpecificCategories:
		return containsString(c.ApplicableIDs, line.CategoryID)
	case AppliesToSpecificBrands:
		return containsString(c.ApplicableIDs, line.BrandID)
	default:
		return true
	}
}

func containsString(xs []string, s string) bool {
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
